package main

import (
	"google.golang.org/protobuf/types/known/timestamppb"

	v1 "github.com/PaulBabatuyi/marketchat/api/messaging/v1"
	"github.com/PaulBabatuyi/marketchat/internal/data"
)

func toWireConversation(c *data.Conversation) *v1.Conversation {
	return &v1.Conversation{
		Id:             c.ID.Hex(),
		ListingId:      c.ListingID,
		BuyerId:        c.BuyerID,
		SellerId:       c.SellerID,
		LastActivityAt: timestamppb.New(c.LastActivityAt),
	}
}

func toWireMessage(m *data.Message) *v1.Message {
	return &v1.Message{
		Id:             m.ID.Hex(),
		ConversationId: m.ConversationID.Hex(),
		SenderId:       m.SenderID,
		Body:           m.Body,
		Read:           m.Read,
		CreatedAt:      timestamppb.New(m.CreatedAt),
	}
}

func toWireNotification(n *data.Notification) *v1.Notification {
	return &v1.Notification{
		Id:          n.ID.Hex(),
		RecipientId: n.RecipientID,
		Title:       n.Title,
		Body:        n.Body,
		Read:        n.Read,
		CreatedAt:   timestamppb.New(n.CreatedAt),
	}
}
