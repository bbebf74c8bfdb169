package v1

import (
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Conversation groups all messages between one buyer and one seller about one listing.
type Conversation struct {
	Id             string                 `json:"id"`
	ListingId      string                 `json:"listing_id"`
	BuyerId        string                 `json:"buyer_id"`
	SellerId       string                 `json:"seller_id"`
	LastActivityAt *timestamppb.Timestamp `json:"last_activity_at,omitempty"`
}

// Message is a single chat line inside a conversation.
type Message struct {
	Id             string                 `json:"id"`
	ConversationId string                 `json:"conversation_id"`
	SenderId       string                 `json:"sender_id"`
	Body           string                 `json:"body"`
	Read           bool                   `json:"read"`
	CreatedAt      *timestamppb.Timestamp `json:"created_at,omitempty"`
}

type Identity struct {
	Id       string `json:"id"`
	Username string `json:"username"`
}

// ListingSummary is the listing snapshot shown next to a thread. Price is in
// whole units of the marketplace currency.
type ListingSummary struct {
	Id           string `json:"id"`
	Title        string `json:"title"`
	Price        int64  `json:"price"`
	ThumbnailUrl string `json:"thumbnail_url"`
}

type Notification struct {
	Id          string                 `json:"id"`
	RecipientId string                 `json:"recipient_id"`
	Title       string                 `json:"title"`
	Body        string                 `json:"body"`
	Read        bool                   `json:"read"`
	CreatedAt   *timestamppb.Timestamp `json:"created_at,omitempty"`
}

// Event is pushed on the subscription streams. Exactly one field is set.
type Event struct {
	Message      *Message      `json:"message,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
}

type ListConversationsRequest struct {
	UserId string `json:"user_id" validate:"required"`
}

type ListConversationsResponse struct {
	Conversations []*Conversation `json:"conversations"`
}

type GetConversationRequest struct {
	ConversationId string `json:"conversation_id" validate:"required"`
}

type StartConversationRequest struct {
	ListingId string `json:"listing_id" validate:"required"`
	BuyerId   string `json:"buyer_id" validate:"required"`
	SellerId  string `json:"seller_id" validate:"required,nefield=BuyerId"`
}

type BatchGetIdentitiesRequest struct {
	Ids []string `json:"ids" validate:"required,min=1,max=500,dive,required"`
}

type BatchGetIdentitiesResponse struct {
	Identities map[string]*Identity `json:"identities"`
}

type BatchGetListingSummariesRequest struct {
	Ids []string `json:"ids" validate:"required,min=1,max=500,dive,required"`
}

type BatchGetListingSummariesResponse struct {
	Listings map[string]*ListingSummary `json:"listings"`
}

type GetLatestMessageRequest struct {
	ConversationId string `json:"conversation_id" validate:"required"`
}

// GetLatestMessageResponse leaves Message nil for a conversation without messages.
type GetLatestMessageResponse struct {
	Message *Message `json:"message,omitempty"`
}

type CountUnreadRequest struct {
	ConversationId string `json:"conversation_id" validate:"required"`
	ExcludeSender  string `json:"exclude_sender" validate:"required"`
}

type CountUnreadResponse struct {
	Count int64 `json:"count"`
}

type ListMessagesRequest struct {
	ConversationId string `json:"conversation_id" validate:"required"`
}

type ListMessagesResponse struct {
	Messages []*Message `json:"messages"`
}

type MarkReadRequest struct {
	ConversationId string `json:"conversation_id" validate:"required"`
	ViewerId       string `json:"viewer_id" validate:"required"`
}

type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

type SendMessageRequest struct {
	ConversationId string `json:"conversation_id" validate:"required"`
	SenderId       string `json:"sender_id" validate:"required"`
	Body           string `json:"body" validate:"required,max=4000"`
}

type SubscribeMessagesRequest struct {
	ConversationId string `json:"conversation_id" validate:"required"`
}

type SendNotificationRequest struct {
	RecipientId string `json:"recipient_id" validate:"required"`
	Title       string `json:"title" validate:"required,max=200"`
	Body        string `json:"body" validate:"max=2000"`
}

type ListNotificationsRequest struct {
	UserId string `json:"user_id" validate:"required"`
	Limit  int32  `json:"limit" validate:"gte=0,lte=200"`
}

type ListNotificationsResponse struct {
	Notifications []*Notification `json:"notifications"`
}

type MarkNotificationReadRequest struct {
	NotificationId string `json:"notification_id" validate:"required"`
}

type MarkAllNotificationsReadRequest struct {
	UserId string `json:"user_id" validate:"required"`
}

type SubscribeNotificationsRequest struct {
	UserId string `json:"user_id" validate:"required"`
}
