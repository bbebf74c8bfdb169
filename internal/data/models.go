package data

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrInvalidID = errors.New("invalid id")
)

// Conversation maps to the conversations collection: one document per
// (listing, buyer) pair.
type Conversation struct {
	ID             bson.ObjectID `bson:"_id,omitempty"`
	ListingID      string        `bson:"listing_id"`
	BuyerID        string        `bson:"buyer_id"`
	SellerID       string        `bson:"seller_id"`
	LastActivityAt time.Time     `bson:"last_activity_at"`
	CreatedAt      time.Time     `bson:"created_at"`
}

// HasParticipant reports whether userID is the buyer or the seller.
func (c *Conversation) HasParticipant(userID string) bool {
	return userID != "" && (c.BuyerID == userID || c.SellerID == userID)
}

// Counterpart returns the other participant from userID's point of view.
func (c *Conversation) Counterpart(userID string) string {
	if c.BuyerID == userID {
		return c.SellerID
	}
	return c.BuyerID
}

// Message maps to the messages collection. Only Read ever changes after insert.
type Message struct {
	ID             bson.ObjectID `bson:"_id,omitempty"`
	ConversationID bson.ObjectID `bson:"conversation_id"`
	SenderID       string        `bson:"sender_id"`
	Body           string        `bson:"body"`
	Read           bool          `bson:"read"`
	CreatedAt      time.Time     `bson:"created_at"`
}

// Identity is the public projection of a users document.
type Identity struct {
	ID       bson.ObjectID `bson:"_id"`
	Username string        `bson:"username"`
}

// ListingSummary is the projection of a listings document shown in thread rows.
type ListingSummary struct {
	ID           bson.ObjectID `bson:"_id"`
	SellerID     string        `bson:"seller_id"`
	Title        string        `bson:"title"`
	Price        int64         `bson:"price"`
	ThumbnailURL string        `bson:"thumbnail_url"`
}

// Notification maps to the notifications collection.
type Notification struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	RecipientID string        `bson:"recipient_id"`
	Title       string        `bson:"title"`
	Body        string        `bson:"body"`
	Read        bool          `bson:"read"`
	CreatedAt   time.Time     `bson:"created_at"`
}

// ParseID converts a hex id into an ObjectID.
func ParseID(hex string) (bson.ObjectID, error) {
	id, err := bson.ObjectIDFromHex(hex)
	if err != nil {
		return bson.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, hex)
	}
	return id, nil
}

// objectIDs converts and de-duplicates hex ids, skipping malformed ones.
func objectIDs(ids []string) []bson.ObjectID {
	return lo.Uniq(lo.FilterMap(ids, func(hex string, _ int) (bson.ObjectID, bool) {
		id, err := bson.ObjectIDFromHex(hex)
		return id, err == nil
	}))
}

// now returns the current time at the precision MongoDB stores.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
