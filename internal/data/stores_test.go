package data

import (
	"context"
	"os"
	"testing"

	"github.com/PaulBabatuyi/marketchat/internal/db"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func setupDB(t *testing.T) *db.Client {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set; skipping integration test")
	}

	ctx := context.Background()
	c, err := db.New(ctx, uri, "marketchat_data_test")
	if err != nil {
		t.Fatalf("db.New failed: %v", err)
	}

	// ensure clean collections in case previous runs left data
	_ = c.ConversationsCollection().Drop(ctx)
	_ = c.MessagesCollection().Drop(ctx)
	_ = c.UsersCollection().Drop(ctx)
	_ = c.ListingsCollection().Drop(ctx)
	_ = c.NotificationsCollection().Drop(ctx)

	if err := c.CreateIndexes(ctx); err != nil {
		t.Fatalf("CreateIndexes failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func TestConversationFindOrCreateIsUniquePerListingAndBuyer(t *testing.T) {
	c := setupDB(t)
	convs := NewConversationsStore(c.ConversationsCollection())
	ctx := context.Background()

	first, err := convs.FindOrCreate(ctx, "listing-1", "buyer", "seller")
	if err != nil {
		t.Fatalf("FindOrCreate failed: %v", err)
	}
	again, err := convs.FindOrCreate(ctx, "listing-1", "buyer", "seller")
	if err != nil {
		t.Fatalf("second FindOrCreate failed: %v", err)
	}
	if first.ID != again.ID {
		t.Fatalf("expected the same conversation, got %s and %s", first.ID.Hex(), again.ID.Hex())
	}

	if _, err := convs.FindOrCreate(ctx, "listing-2", "buyer", "seller"); err != nil {
		t.Fatalf("FindOrCreate listing-2 failed: %v", err)
	}

	forSeller, err := convs.ListForUser(ctx, "seller")
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if len(forSeller) != 2 {
		t.Fatalf("expected 2 conversations for seller, got %d", len(forSeller))
	}

	if _, err := convs.GetByID(ctx, bson.NewObjectID()); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMessagesHistoryUnreadAndMarkRead(t *testing.T) {
	c := setupDB(t)
	convs := NewConversationsStore(c.ConversationsCollection())
	msgs := NewMessagesStore(c.MessagesCollection(), c.ConversationsCollection())
	ctx := context.Background()

	conv, err := convs.FindOrCreate(ctx, "listing-1", "buyer", "seller")
	if err != nil {
		t.Fatalf("FindOrCreate failed: %v", err)
	}

	latest, err := msgs.Latest(ctx, conv.ID)
	if err != nil || latest != nil {
		t.Fatalf("expected no latest message, got %v, %v", latest, err)
	}

	for _, m := range []struct{ from, body string }{
		{"buyer", "Is this still available?"},
		{"seller", "Yes"},
		{"seller", "Want to see it?"},
	} {
		if _, err := msgs.SaveMessage(ctx, conv.ID, m.from, m.body); err != nil {
			t.Fatalf("SaveMessage failed: %v", err)
		}
	}

	history, err := msgs.ListForConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("ListForConversation failed: %v", err)
	}
	if len(history) != 3 || history[0].Body != "Is this still available?" {
		t.Fatalf("unexpected history: %+v", history)
	}

	latest, err = msgs.Latest(ctx, conv.ID)
	if err != nil || latest == nil || latest.Body != "Want to see it?" {
		t.Fatalf("unexpected latest: %+v, %v", latest, err)
	}

	unread, err := msgs.CountUnread(ctx, conv.ID, "buyer")
	if err != nil || unread != 2 {
		t.Fatalf("expected 2 unread for buyer, got %d, %v", unread, err)
	}

	flipped, err := msgs.MarkRead(ctx, conv.ID, "buyer")
	if err != nil || flipped != 2 {
		t.Fatalf("expected 2 flipped, got %d, %v", flipped, err)
	}
	flipped, err = msgs.MarkRead(ctx, conv.ID, "buyer")
	if err != nil || flipped != 0 {
		t.Fatalf("expected second MarkRead to flip nothing, got %d, %v", flipped, err)
	}

	// seller's unread is the buyer's message, untouched by the buyer marking
	unread, err = msgs.CountUnread(ctx, conv.ID, "seller")
	if err != nil || unread != 1 {
		t.Fatalf("expected 1 unread for seller, got %d, %v", unread, err)
	}

	bumped, err := convs.GetByID(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !bumped.LastActivityAt.Equal(latest.CreatedAt) {
		t.Fatalf("expected last activity %v, got %v", latest.CreatedAt, bumped.LastActivityAt)
	}
}

func TestBatchLookups(t *testing.T) {
	c := setupDB(t)
	ctx := context.Background()

	alice, bob := bson.NewObjectID(), bson.NewObjectID()
	_, err := c.UsersCollection().InsertMany(ctx, []any{
		bson.M{"_id": alice, "username": "alice", "password": "secret"},
		bson.M{"_id": bob, "username": "bob"},
	})
	if err != nil {
		t.Fatalf("seed users failed: %v", err)
	}
	bike := bson.NewObjectID()
	_, err = c.ListingsCollection().InsertOne(ctx, bson.M{"_id": bike, "seller_id": bob.Hex(), "title": "Road bike", "price": 350, "thumbnail_url": "https://img/bike.jpg"})
	if err != nil {
		t.Fatalf("seed listing failed: %v", err)
	}

	identities, err := NewUsersStore(c.UsersCollection()).BatchGetIdentities(ctx, []string{alice.Hex(), bob.Hex(), "bogus", bson.NewObjectID().Hex()})
	if err != nil {
		t.Fatalf("BatchGetIdentities failed: %v", err)
	}
	if len(identities) != 2 || identities[alice.Hex()].Username != "alice" {
		t.Fatalf("unexpected identities: %+v", identities)
	}

	listings, err := NewListingsStore(c.ListingsCollection()).BatchGetSummaries(ctx, []string{bike.Hex()})
	if err != nil {
		t.Fatalf("BatchGetSummaries failed: %v", err)
	}
	if got := listings[bike.Hex()]; got == nil || got.Title != "Road bike" || got.Price != 350 || got.SellerID != bob.Hex() {
		t.Fatalf("unexpected listing: %+v", got)
	}
}

func TestNotifications(t *testing.T) {
	c := setupDB(t)
	store := NewNotificationsStore(c.NotificationsCollection())
	ctx := context.Background()

	first, err := store.Create(ctx, "alice", "Role changed", "You are now a moderator")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Create(ctx, "alice", "Balance changed", "+50"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Create(ctx, "bob", "New message", "hi"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	list, err := store.ListForUser(ctx, "alice", 10)
	if err != nil || len(list) != 2 {
		t.Fatalf("expected 2 notifications, got %d, %v", len(list), err)
	}
	if list[0].Title != "Balance changed" {
		t.Fatalf("expected newest first, got %s", list[0].Title)
	}

	if err := store.MarkRead(ctx, first.ID, "bob"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for foreign recipient, got %v", err)
	}
	if err := store.MarkRead(ctx, first.ID, "alice"); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}

	n, err := store.MarkAllRead(ctx, "alice")
	if err != nil || n != 1 {
		t.Fatalf("expected 1 flipped, got %d, %v", n, err)
	}
}
