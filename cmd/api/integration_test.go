package main

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/v2/bson"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/PaulBabatuyi/marketchat/internal/auth"
	"github.com/PaulBabatuyi/marketchat/internal/client"
	"github.com/PaulBabatuyi/marketchat/internal/data"
	"github.com/PaulBabatuyi/marketchat/internal/db"
	"github.com/PaulBabatuyi/marketchat/internal/feed"
	"github.com/PaulBabatuyi/marketchat/internal/logging"
)

func TestMongoConversationFlow(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set; skipping integration test")
	}

	ctx := context.Background()
	dbClient, err := db.New(ctx, uri, "marketchat_api_test")
	if err != nil {
		t.Fatalf("db.New failed: %v", err)
	}
	defer func() {
		_ = dbClient.Database().Drop(context.Background())
		_ = dbClient.Close(context.Background())
	}()
	if err := dbClient.CreateIndexes(ctx); err != nil {
		t.Fatalf("CreateIndexes failed: %v", err)
	}

	buyer, seller, listing := bson.NewObjectID(), bson.NewObjectID(), bson.NewObjectID()
	if _, err := dbClient.UsersCollection().InsertMany(ctx, []any{
		bson.M{"_id": buyer, "username": "buyer"},
		bson.M{"_id": seller, "username": "seller"},
	}); err != nil {
		t.Fatalf("seed users: %v", err)
	}
	if _, err := dbClient.ListingsCollection().InsertOne(ctx, bson.M{"_id": listing, "seller_id": seller.Hex(), "title": "Desk", "price": 80}); err != nil {
		t.Fatalf("seed listing: %v", err)
	}

	st := stores{
		conversations: data.NewConversationsStore(dbClient.ConversationsCollection()),
		messages:      data.NewMessagesStore(dbClient.MessagesCollection(), dbClient.ConversationsCollection()),
		users:         data.NewUsersStore(dbClient.UsersCollection()),
		listings:      data.NewListingsStore(dbClient.ListingsCollection()),
		notifications: data.NewNotificationsStore(dbClient.NotificationsCollection()),
	}
	jwtMgr := auth.NewJWTManager("test-secret", time.Hour)

	lis := bufconn.Listen(bufSize)
	s := grpc.NewServer(
		grpc.UnaryInterceptor(authUnaryInterceptor(jwtMgr)),
		grpc.StreamInterceptor(authStreamInterceptor(jwtMgr)),
	)
	hub := feed.NewHub()
	registerService(s, newServer(st, hub, feed.NewLocalBroker(hub), validator.New()))
	go func() { _ = s.Serve(lis) }()
	defer s.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("failed to dial bufnet: %v", err)
	}
	defer conn.Close()

	token, _, err := jwtMgr.GenerateToken(buyer.Hex(), "buyer")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	c := client.New(conn, token, logging.Nop())

	conv, err := c.StartConversation(ctx, listing.Hex(), buyer.Hex(), seller.Hex())
	if err != nil {
		t.Fatalf("StartConversation RPC failed: %v", err)
	}
	again, err := c.StartConversation(ctx, listing.Hex(), buyer.Hex(), seller.Hex())
	if err != nil || again.ID != conv.ID {
		t.Fatalf("second StartConversation = %v, %v; want %s", again.ID, err, conv.ID)
	}

	sent, err := c.SendMessage(ctx, conv.ID, buyer.Hex(), "Would you take 70?")
	if err != nil {
		t.Fatalf("SendMessage RPC failed: %v", err)
	}
	history, err := c.ListMessages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("ListMessages RPC failed: %v", err)
	}
	if len(history) != 1 || history[0].ID != sent.ID {
		t.Fatalf("history = %+v, want the sent message", history)
	}

	ids, err := c.BatchGetIdentities(ctx, []string{seller.Hex()})
	if err != nil || ids[seller.Hex()].Username != "seller" {
		t.Fatalf("BatchGetIdentities = %v, %v", ids, err)
	}
}
