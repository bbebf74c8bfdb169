package data

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ConversationsStore provides conversation database operations.
type ConversationsStore struct {
	coll *mongo.Collection
}

// NewConversationsStore returns a ConversationsStore using the given collection.
func NewConversationsStore(coll *mongo.Collection) *ConversationsStore {
	return &ConversationsStore{coll: coll}
}

// ListForUser returns every conversation where userID is buyer or seller,
// most recently active first.
func (s *ConversationsStore) ListForUser(ctx context.Context, userID string) ([]*Conversation, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"buyer_id": userID},
			bson.M{"seller_id": userID},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "last_activity_at", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	conversations := []*Conversation{}
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

// GetByID finds a conversation by id.
func (s *ConversationsStore) GetByID(ctx context.Context, id bson.ObjectID) (*Conversation, error) {
	var c Conversation
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindOrCreate returns the conversation for (listingID, buyerID), creating it on
// first contact. The unique index on (listing_id, buyer_id) keeps concurrent
// first contacts from creating two documents; the loser of that race re-reads.
func (s *ConversationsStore) FindOrCreate(ctx context.Context, listingID, buyerID, sellerID string) (*Conversation, error) {
	at := now()
	filter := bson.M{"listing_id": listingID, "buyer_id": buyerID}
	update := bson.M{"$setOnInsert": bson.M{
		"seller_id":        sellerID,
		"created_at":       at,
		"last_activity_at": at,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var c Conversation
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&c)
	if mongo.IsDuplicateKeyError(err) {
		err = s.coll.FindOne(ctx, filter).Decode(&c)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
