package inbox

import "context"

// Subscription is a live push subscription. Release stops delivery; it is safe
// to call more than once.
type Subscription interface {
	Release()
}

// DirectorySource provides the lookups the directory is built from.
type DirectorySource interface {
	ListConversationsForUser(ctx context.Context, userID string) ([]Conversation, error)
	BatchGetIdentities(ctx context.Context, ids []string) (map[string]Identity, error)
	BatchGetListingSummaries(ctx context.Context, ids []string) (map[string]ListingSummary, error)
	// GetLatestMessage returns nil when the conversation has no messages.
	GetLatestMessage(ctx context.Context, conversationID string) (*Message, error)
	CountUnread(ctx context.Context, conversationID, excludeSender string) (int, error)
}

// ConversationSource resolves and creates conversations.
type ConversationSource interface {
	GetConversation(ctx context.Context, conversationID string) (Conversation, error)
	// StartConversation returns the existing conversation for (listing, buyer)
	// or creates it.
	StartConversation(ctx context.Context, listingID, buyerID, sellerID string) (Conversation, error)
}

// MessageSource is the message read/write path plus its push feed.
type MessageSource interface {
	// ListMessages returns the full history, oldest first.
	ListMessages(ctx context.Context, conversationID string) ([]Message, error)
	// MarkRead is idempotent.
	MarkRead(ctx context.Context, conversationID, viewerID string) error
	// SendMessage returns the stored record with its assigned id.
	SendMessage(ctx context.Context, conversationID, senderID, body string) (Message, error)
	SubscribeMessages(ctx context.Context, conversationID string, onEvent func(Message)) (Subscription, error)
}

// Backend is every collaborator the view and the bell consume.
type Backend interface {
	DirectorySource
	ConversationSource
	MessageSource
	Notifier
	NotificationSource
}
