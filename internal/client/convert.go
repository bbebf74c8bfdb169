package client

import (
	"time"

	"google.golang.org/protobuf/types/known/timestamppb"

	v1 "github.com/PaulBabatuyi/marketchat/api/messaging/v1"
	"github.com/PaulBabatuyi/marketchat/internal/inbox"
)

func fromTimestamp(ts *timestamppb.Timestamp) time.Time {
	if ts == nil {
		return time.Time{}
	}
	return ts.AsTime()
}

func fromWireConversation(c *v1.Conversation) inbox.Conversation {
	return inbox.Conversation{
		ID:             c.Id,
		ListingID:      c.ListingId,
		BuyerID:        c.BuyerId,
		SellerID:       c.SellerId,
		LastActivityAt: fromTimestamp(c.LastActivityAt),
	}
}

func fromWireMessage(m *v1.Message) inbox.Message {
	return inbox.Message{
		ID:             m.Id,
		ConversationID: m.ConversationId,
		SenderID:       m.SenderId,
		Body:           m.Body,
		Read:           m.Read,
		CreatedAt:      fromTimestamp(m.CreatedAt),
	}
}

func fromWireNotification(n *v1.Notification) inbox.Notification {
	return inbox.Notification{
		ID:          n.Id,
		RecipientID: n.RecipientId,
		Title:       n.Title,
		Body:        n.Body,
		Read:        n.Read,
		CreatedAt:   fromTimestamp(n.CreatedAt),
	}
}
