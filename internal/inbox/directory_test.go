package inbox_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PaulBabatuyi/marketchat/internal/inbox"
	"github.com/PaulBabatuyi/marketchat/internal/logging"
)

// marketFixture: "me" buys bike and lamp, sells desk.
func marketFixture() *fakeBackend {
	f := newFakeBackend()
	f.addUser("me", "Me")
	f.addUser("sam", "Sam")
	f.addUser("ana", "Ana")
	f.addListing("bike", "Road bike")
	f.addListing("lamp", "Desk lamp")
	f.addListing("desk", "Oak desk")

	f.addConversation("c-bike", "bike", "me", "sam", at(10))
	f.addConversation("c-lamp", "lamp", "me", "ana", at(30))
	f.addConversation("c-desk", "desk", "ana", "me", at(20))

	f.addMessage("b1", "c-bike", "sam", "still available?", at(5), false)
	f.addMessage("b2", "c-bike", "me", "yes", at(10), false)
	f.addMessage("l1", "c-lamp", "ana", "hi", at(25), false)
	f.addMessage("l2", "c-lamp", "ana", "price?", at(30), false)
	f.addMessage("d1", "c-desk", "ana", "ok", at(20), true)
	return f
}

func newBuilder(f *fakeBackend) *inbox.DirectoryBuilder {
	return inbox.NewDirectoryBuilder(f, 2, logging.Nop())
}

func TestDirectoryBuilder_Empty(t *testing.T) {
	f := marketFixture()

	got, err := newBuilder(f).Build(context.Background(), "nobody")

	require.NoError(t, err)
	require.Empty(t, got)
	require.NotNil(t, got)
	require.Zero(t, f.identityCalls.Load())
	require.Zero(t, f.listingCalls.Load())
}

func TestDirectoryBuilder_BuildsSortedSummaries(t *testing.T) {
	f := marketFixture()

	got, err := newBuilder(f).Build(context.Background(), "me")
	require.NoError(t, err)
	require.Len(t, got, 3)

	require.Equal(t, []string{"c-lamp", "c-desk", "c-bike"},
		[]string{got[0].ConversationID, got[1].ConversationID, got[2].ConversationID})

	lamp := got[0]
	require.Equal(t, "Ana", lamp.Counterpart.Username)
	require.Equal(t, "Desk lamp", lamp.Listing.Title)
	require.Equal(t, 2, lamp.Unread)
	require.NotNil(t, lamp.LastMessage)
	require.Equal(t, "l2", lamp.LastMessage.ID)

	bike := got[2]
	require.Equal(t, "Sam", bike.Counterpart.Username)
	// own message does not count
	require.Equal(t, 1, bike.Unread)

	require.Equal(t, int32(1), f.identityCalls.Load())
	require.Equal(t, int32(1), f.listingCalls.Load())
}

func TestDirectoryBuilder_TiesBreakByConversationID(t *testing.T) {
	f := newFakeBackend()
	f.addConversation("c2", "l", "me", "x", at(1))
	f.addConversation("c1", "l", "y", "me", at(1))

	got, err := newBuilder(f).Build(context.Background(), "me")

	require.NoError(t, err)
	require.Equal(t, "c1", got[0].ConversationID)
	require.Equal(t, "c2", got[1].ConversationID)
}

func TestDirectoryBuilder_BatchFailureFailsBuild(t *testing.T) {
	for name, setup := range map[string]func(*fakeBackend){
		"identities": func(f *fakeBackend) { f.identitiesErr = errors.New("users down") },
		"listings":   func(f *fakeBackend) { f.listingsErr = errors.New("listings down") },
	} {
		t.Run(name, func(t *testing.T) {
			f := marketFixture()
			setup(f)

			got, err := newBuilder(f).Build(context.Background(), "me")

			require.ErrorIs(t, err, inbox.ErrDirectoryUnavailable)
			require.Nil(t, got)
		})
	}
}

func TestDirectoryBuilder_ListFailure(t *testing.T) {
	f := marketFixture()
	f.listErr = errors.New("boom")

	_, err := newBuilder(f).Build(context.Background(), "me")

	require.ErrorIs(t, err, inbox.ErrDirectoryUnavailable)
}

func TestDirectoryBuilder_PerThreadFailureIsLocal(t *testing.T) {
	f := marketFixture()
	f.latestErr["c-bike"] = errors.New("timeout")
	f.unreadErr["c-lamp"] = errors.New("timeout")

	got, err := newBuilder(f).Build(context.Background(), "me")
	require.NoError(t, err)
	require.Len(t, got, 3)

	byID := map[string]inbox.ThreadSummary{}
	for _, s := range got {
		byID[s.ConversationID] = s
	}

	require.True(t, byID["c-bike"].PreviewUnavailable)
	require.Nil(t, byID["c-bike"].LastMessage)
	require.Equal(t, 1, byID["c-bike"].Unread)

	require.True(t, byID["c-lamp"].UnreadUnavailable)
	require.NotNil(t, byID["c-lamp"].LastMessage)

	require.False(t, byID["c-desk"].PreviewUnavailable)
	require.False(t, byID["c-desk"].UnreadUnavailable)
}

func TestDirectoryBuilder_MissingEntriesGetPlaceholders(t *testing.T) {
	f := newFakeBackend()
	f.addConversation("c1", "gone", "me", "ghost", at(1))

	got, err := newBuilder(f).Build(context.Background(), "me")

	require.NoError(t, err)
	require.Equal(t, inbox.Identity{ID: "ghost", Username: inbox.UnknownUsername}, got[0].Counterpart)
	require.Equal(t, inbox.UnknownListing, got[0].Listing.Title)
	require.Nil(t, got[0].LastMessage)
	require.False(t, got[0].PreviewUnavailable)
}

// gatedBackend holds every per-thread lookup until target lookups have been
// in flight at the same time, and records the highest count it saw.
type gatedBackend struct {
	*fakeBackend
	target   int32
	inFlight atomic.Int32
	peak     atomic.Int32
	reached  chan struct{}
	once     sync.Once
}

func newGatedBackend(f *fakeBackend, target int32) *gatedBackend {
	return &gatedBackend{fakeBackend: f, target: target, reached: make(chan struct{})}
}

func (g *gatedBackend) enter() {
	n := g.inFlight.Add(1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if n >= g.target {
		g.once.Do(func() { close(g.reached) })
	}
	select {
	case <-g.reached:
	case <-time.After(2 * time.Second):
	}
}

func (g *gatedBackend) GetLatestMessage(ctx context.Context, conversationID string) (*inbox.Message, error) {
	g.enter()
	defer g.inFlight.Add(-1)
	return g.fakeBackend.GetLatestMessage(ctx, conversationID)
}

func (g *gatedBackend) CountUnread(ctx context.Context, conversationID, excludeSender string) (int, error) {
	g.enter()
	defer g.inFlight.Add(-1)
	return g.fakeBackend.CountUnread(ctx, conversationID, excludeSender)
}

func TestDirectoryBuilder_PerThreadLookupsRunConcurrently(t *testing.T) {
	f := marketFixture()
	// Three threads, two lookups each, all allowed at once.
	g := newGatedBackend(f, 6)

	start := time.Now()
	got, err := inbox.NewDirectoryBuilder(g, 8, logging.Nop()).Build(context.Background(), "me")

	require.NoError(t, err)
	require.Len(t, got, 3)
	require.EqualValues(t, 6, g.peak.Load())
	require.Less(t, time.Since(start), time.Second)
}

func TestDirectoryBuilder_PerThreadLookupsRespectLimit(t *testing.T) {
	f := newFakeBackend()
	for i := range 5 {
		id := fmt.Sprintf("c%d", i)
		f.addConversation(id, "l"+id, "me", "u"+id, at(i))
	}
	g := newGatedBackend(f, 2)

	got, err := inbox.NewDirectoryBuilder(g, 2, logging.Nop()).Build(context.Background(), "me")

	require.NoError(t, err)
	require.Len(t, got, 5)
	require.EqualValues(t, 2, g.peak.Load())
}
