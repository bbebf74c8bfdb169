package main

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/v2/bson"
	"google.golang.org/grpc"

	v1 "github.com/PaulBabatuyi/marketchat/api/messaging/v1"
	"github.com/PaulBabatuyi/marketchat/internal/data"
	"github.com/PaulBabatuyi/marketchat/internal/feed"
)

type conversationStore interface {
	ListForUser(ctx context.Context, userID string) ([]*data.Conversation, error)
	GetByID(ctx context.Context, id bson.ObjectID) (*data.Conversation, error)
	FindOrCreate(ctx context.Context, listingID, buyerID, sellerID string) (*data.Conversation, error)
}

type messageStore interface {
	SaveMessage(ctx context.Context, conversationID bson.ObjectID, senderID, body string) (*data.Message, error)
	ListForConversation(ctx context.Context, conversationID bson.ObjectID) ([]*data.Message, error)
	Latest(ctx context.Context, conversationID bson.ObjectID) (*data.Message, error)
	CountUnread(ctx context.Context, conversationID bson.ObjectID, excludeSender string) (int64, error)
	MarkRead(ctx context.Context, conversationID bson.ObjectID, viewerID string) (int64, error)
}

type identityStore interface {
	BatchGetIdentities(ctx context.Context, ids []string) (map[string]*data.Identity, error)
}

type listingStore interface {
	BatchGetSummaries(ctx context.Context, ids []string) (map[string]*data.ListingSummary, error)
}

type notificationStore interface {
	Create(ctx context.Context, recipientID, title, body string) (*data.Notification, error)
	ListForUser(ctx context.Context, recipientID string, limit int64) ([]*data.Notification, error)
	MarkRead(ctx context.Context, id bson.ObjectID, recipientID string) error
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
}

// stores bundles the persistence the service reads and writes.
type stores struct {
	conversations conversationStore
	messages      messageStore
	users         identityStore
	listings      listingStore
	notifications notificationStore
}

// Server implements the messaging service on top of the stores and the feed.
type Server struct {
	v1.UnimplementedMessagingServiceServer

	conversations conversationStore
	msgs          messageStore
	users         identityStore
	listings      listingStore
	notifications notificationStore

	hub      *feed.Hub
	broker   feed.Broker
	validate *validator.Validate
}

// newServer returns a ready-to-use Server. Stream subscriptions attach to hub;
// new messages and notifications are published through broker, which fans
// them back into hub on every instance.
func newServer(st stores, hub *feed.Hub, broker feed.Broker, v *validator.Validate) *Server {
	return &Server{
		conversations: st.conversations,
		msgs:          st.messages,
		users:         st.users,
		listings:      st.listings,
		notifications: st.notifications,
		hub:           hub,
		broker:        broker,
		validate:      v,
	}
}

// registerService registers the MessagingService on the given gRPC server.
func registerService(s *grpc.Server, srv *Server) {
	v1.RegisterMessagingServiceServer(s, srv)
}
