// Package inbox is the client side of marketplace messaging. It builds the
// thread directory, keeps the open thread's message log consistent across the
// request/response path and the push feed, tracks read state and runs the
// notification bell.
package inbox

import "time"

// Conversation is one (listing, buyer, seller) thread.
type Conversation struct {
	ID             string
	ListingID      string
	BuyerID        string
	SellerID       string
	LastActivityAt time.Time
}

// Counterpart returns the other participant from userID's point of view.
func (c Conversation) Counterpart(userID string) string {
	if c.BuyerID == userID {
		return c.SellerID
	}
	return c.BuyerID
}

// Message is immutable except for Read, which only moves from false to true.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Body           string
	Read           bool
	CreatedAt      time.Time
}

// Identity is the public profile of a user as shown in thread rows.
type Identity struct {
	ID       string
	Username string
}

// ListingSummary is the listing snapshot shown in a thread row. Price is in
// minor currency units.
type ListingSummary struct {
	ID           string
	Title        string
	Price        int64
	ThumbnailURL string
}

// Notification is one entry of a user's notification bell.
type Notification struct {
	ID          string
	RecipientID string
	Title       string
	Body        string
	Read        bool
	CreatedAt   time.Time
}

// ThreadSummary is the directory row of one conversation. It is derived and
// never stored.
type ThreadSummary struct {
	ConversationID string
	Counterpart    Identity
	Listing        ListingSummary
	LastMessage    *Message
	Unread         int
	LastActivityAt time.Time

	// Set when the per-thread lookup failed and the field holds a placeholder.
	PreviewUnavailable bool
	UnreadUnavailable  bool
}

// Placeholders used when a batch lookup succeeds but has no entry for an id.
const (
	UnknownUsername = "unknown user"
	UnknownListing  = "listing unavailable"
)
