package data

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MessagesStore provides message database operations.
type MessagesStore struct {
	coll          *mongo.Collection
	conversations *mongo.Collection
}

// NewMessagesStore returns a MessagesStore. conversations is bumped on every
// insert so directory ordering follows message activity.
func NewMessagesStore(coll, conversations *mongo.Collection) *MessagesStore {
	return &MessagesStore{coll: coll, conversations: conversations}
}

// SaveMessage inserts a message and moves the conversation's last activity forward.
func (m *MessagesStore) SaveMessage(ctx context.Context, conversationID bson.ObjectID, senderID, body string) (*Message, error) {
	msg := &Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      now(),
	}

	result, err := m.coll.InsertOne(ctx, msg)
	if err != nil {
		return nil, err
	}
	msg.ID = result.InsertedID.(bson.ObjectID)

	// $max so a slow insert never moves last activity backwards.
	_, err = m.conversations.UpdateOne(ctx,
		bson.M{"_id": conversationID},
		bson.M{"$max": bson.M{"last_activity_at": msg.CreatedAt}},
	)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// historySort orders by creation time, then id for messages created in the same millisecond.
func historySort(dir int) bson.D {
	return bson.D{{Key: "created_at", Value: dir}, {Key: "_id", Value: dir}}
}

// ListForConversation returns the whole history of a conversation, oldest first.
// There is no page limit.
func (m *MessagesStore) ListForConversation(ctx context.Context, conversationID bson.ObjectID) ([]*Message, error) {
	cursor, err := m.coll.Find(ctx, bson.M{"conversation_id": conversationID}, options.Find().SetSort(historySort(1)))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	messages := []*Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// Latest returns the newest message of a conversation, or nil when it has none.
func (m *MessagesStore) Latest(ctx context.Context, conversationID bson.ObjectID) (*Message, error) {
	var msg Message
	err := m.coll.FindOne(ctx, bson.M{"conversation_id": conversationID}, options.FindOne().SetSort(historySort(-1))).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func unreadFilter(conversationID bson.ObjectID, excludeSender string) bson.M {
	return bson.M{
		"conversation_id": conversationID,
		"read":            false,
		"sender_id":       bson.M{"$ne": excludeSender},
	}
}

// CountUnread counts unread messages not authored by excludeSender.
func (m *MessagesStore) CountUnread(ctx context.Context, conversationID bson.ObjectID, excludeSender string) (int64, error) {
	return m.coll.CountDocuments(ctx, unreadFilter(conversationID, excludeSender))
}

// MarkRead flips every unread message not authored by viewerID to read and
// returns how many changed. Calling it again changes nothing.
func (m *MessagesStore) MarkRead(ctx context.Context, conversationID bson.ObjectID, viewerID string) (int64, error) {
	res, err := m.coll.UpdateMany(ctx, unreadFilter(conversationID, viewerID), bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
