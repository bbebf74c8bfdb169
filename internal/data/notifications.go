package data

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// NotificationsStore provides notification database operations.
type NotificationsStore struct {
	coll *mongo.Collection
}

// NewNotificationsStore returns a NotificationsStore using the given collection.
func NewNotificationsStore(coll *mongo.Collection) *NotificationsStore {
	return &NotificationsStore{coll: coll}
}

// Create stores an unread notification for recipientID.
func (n *NotificationsStore) Create(ctx context.Context, recipientID, title, body string) (*Notification, error) {
	notif := &Notification{
		RecipientID: recipientID,
		Title:       title,
		Body:        body,
		CreatedAt:   now(),
	}
	result, err := n.coll.InsertOne(ctx, notif)
	if err != nil {
		return nil, err
	}
	notif.ID = result.InsertedID.(bson.ObjectID)
	return notif, nil
}

// ListForUser returns the newest notifications of a user, newest first.
func (n *NotificationsStore) ListForUser(ctx context.Context, recipientID string, limit int64) ([]*Notification, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)

	cursor, err := n.coll.Find(ctx, bson.M{"recipient_id": recipientID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	notifications := []*Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkRead flips one notification of recipientID to read. Marking an already
// read notification is not an error; an id owned by someone else is ErrNotFound.
func (n *NotificationsStore) MarkRead(ctx context.Context, id bson.ObjectID, recipientID string) error {
	res, err := n.coll.UpdateOne(ctx,
		bson.M{"_id": id, "recipient_id": recipientID},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead flips every unread notification of recipientID.
func (n *NotificationsStore) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	res, err := n.coll.UpdateMany(ctx,
		bson.M{"recipient_id": recipientID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
