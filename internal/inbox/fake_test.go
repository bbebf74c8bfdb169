package inbox_test

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PaulBabatuyi/marketchat/internal/inbox"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return epoch.Add(time.Duration(sec) * time.Second) }

type fakeSubscription struct {
	conversationID string
	onEvent        func(inbox.Message)
	released       atomic.Bool
}

func (s *fakeSubscription) Release() { s.released.Store(true) }

// deliver plays the feed: it calls the handler whether or not the
// subscription was released.
func (s *fakeSubscription) deliver(m inbox.Message) { s.onEvent(m) }

type sentNotification struct {
	recipient, title, body string
}

// recordingNotifier is the default Notifier of fakeBackend.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (r *recordingNotifier) SendNotification(_ context.Context, recipient, title, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotification{recipient, title, body})
	return nil
}

// fakeBackend is an in-memory inbox.Backend.
type fakeBackend struct {
	inbox.Notifier
	inbox.NotificationSource

	mu         sync.Mutex
	convs      []inbox.Conversation
	messages   map[string][]inbox.Message
	identities map[string]inbox.Identity
	listings   map[string]inbox.ListingSummary
	seq        int

	listErr       error
	identitiesErr error
	listingsErr   error
	latestErr     map[string]error
	unreadErr     map[string]error
	historyErr    error
	subscribeErr  error
	sendErr       error
	markReadErr   error
	// beforeSendReturn runs after a message is stored and before
	// SendMessage returns it.
	beforeSendReturn func(inbox.Message)

	identityCalls atomic.Int32
	listingCalls  atomic.Int32
	sendCalls     atomic.Int32
	markReads     []string
	subs          []*fakeSubscription
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		Notifier:   &recordingNotifier{},
		messages:   make(map[string][]inbox.Message),
		identities: make(map[string]inbox.Identity),
		listings:   make(map[string]inbox.ListingSummary),
		latestErr:  make(map[string]error),
		unreadErr:  make(map[string]error),
		seq:        1000,
	}
}

func (f *fakeBackend) addUser(id, name string) {
	f.identities[id] = inbox.Identity{ID: id, Username: name}
}

func (f *fakeBackend) addListing(id, title string) {
	f.listings[id] = inbox.ListingSummary{ID: id, Title: title, Price: 1500}
}

func (f *fakeBackend) addConversation(id, listing, buyer, seller string, activity time.Time) {
	f.convs = append(f.convs, inbox.Conversation{
		ID: id, ListingID: listing, BuyerID: buyer, SellerID: seller, LastActivityAt: activity,
	})
}

func (f *fakeBackend) addMessage(id, conv, sender, body string, created time.Time, read bool) inbox.Message {
	m := inbox.Message{ID: id, ConversationID: conv, SenderID: sender, Body: body, CreatedAt: created, Read: read}
	f.messages[conv] = append(f.messages[conv], m)
	return m
}

func (f *fakeBackend) lastSub() *fakeSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.subs) == 0 {
		return nil
	}
	return f.subs[len(f.subs)-1]
}

func (f *fakeBackend) markReadCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.markReads)
}

func (f *fakeBackend) ListConversationsForUser(_ context.Context, userID string) ([]inbox.Conversation, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []inbox.Conversation
	for _, c := range f.convs {
		if c.BuyerID == userID || c.SellerID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeBackend) BatchGetIdentities(_ context.Context, ids []string) (map[string]inbox.Identity, error) {
	f.identityCalls.Add(1)
	if f.identitiesErr != nil {
		return nil, f.identitiesErr
	}
	out := make(map[string]inbox.Identity)
	for _, id := range ids {
		if ident, ok := f.identities[id]; ok {
			out[id] = ident
		}
	}
	return out, nil
}

func (f *fakeBackend) BatchGetListingSummaries(_ context.Context, ids []string) (map[string]inbox.ListingSummary, error) {
	f.listingCalls.Add(1)
	if f.listingsErr != nil {
		return nil, f.listingsErr
	}
	out := make(map[string]inbox.ListingSummary)
	for _, id := range ids {
		if l, ok := f.listings[id]; ok {
			out[id] = l
		}
	}
	return out, nil
}

func (f *fakeBackend) GetLatestMessage(_ context.Context, conversationID string) (*inbox.Message, error) {
	if err := f.latestErr[conversationID]; err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.messages[conversationID]
	if len(msgs) == 0 {
		return nil, nil
	}
	last := msgs[len(msgs)-1]
	return &last, nil
}

func (f *fakeBackend) CountUnread(_ context.Context, conversationID, excludeSender string) (int, error) {
	if err := f.unreadErr[conversationID]; err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.messages[conversationID] {
		if !m.Read && m.SenderID != excludeSender {
			n++
		}
	}
	return n, nil
}

func (f *fakeBackend) GetConversation(_ context.Context, conversationID string) (inbox.Conversation, error) {
	for _, c := range f.convs {
		if c.ID == conversationID {
			return c, nil
		}
	}
	return inbox.Conversation{}, inbox.ErrNotFound
}

func (f *fakeBackend) StartConversation(_ context.Context, listingID, buyerID, sellerID string) (inbox.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.convs {
		if c.ListingID == listingID && c.BuyerID == buyerID {
			return c, nil
		}
	}
	f.seq++
	c := inbox.Conversation{
		ID: fmt.Sprintf("c%d", f.seq), ListingID: listingID, BuyerID: buyerID, SellerID: sellerID, LastActivityAt: at(f.seq),
	}
	f.convs = append(f.convs, c)
	return c, nil
}

func (f *fakeBackend) ListMessages(_ context.Context, conversationID string) ([]inbox.Message, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.messages[conversationID]), nil
}

func (f *fakeBackend) MarkRead(_ context.Context, conversationID, viewerID string) error {
	if f.markReadErr != nil {
		return f.markReadErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markReads = append(f.markReads, conversationID)
	msgs := f.messages[conversationID]
	for i := range msgs {
		if msgs[i].SenderID != viewerID {
			msgs[i].Read = true
		}
	}
	return nil
}

func (f *fakeBackend) SendMessage(_ context.Context, conversationID, senderID, body string) (inbox.Message, error) {
	f.sendCalls.Add(1)
	if f.sendErr != nil {
		return inbox.Message{}, f.sendErr
	}
	f.mu.Lock()
	f.seq++
	m := inbox.Message{
		ID:             fmt.Sprintf("m%d", f.seq),
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      at(f.seq),
	}
	f.messages[conversationID] = append(f.messages[conversationID], m)
	hook := f.beforeSendReturn
	f.mu.Unlock()

	if hook != nil {
		hook(m)
	}
	return m, nil
}

func (f *fakeBackend) SubscribeMessages(_ context.Context, conversationID string, onEvent func(inbox.Message)) (inbox.Subscription, error) {
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &fakeSubscription{conversationID: conversationID, onEvent: onEvent}
	f.subs = append(f.subs, s)
	return s, nil
}
