// Package client implements inbox.Backend over the messaging gRPC API.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	v1 "github.com/PaulBabatuyi/marketchat/api/messaging/v1"
	"github.com/PaulBabatuyi/marketchat/internal/inbox"
)

var errNotSubscribed = errors.New("stream closed before subscribing")

// Client calls the messaging service on behalf of one signed-in user.
type Client struct {
	rpc   v1.MessagingServiceClient
	token string
	log   zerolog.Logger
}

var _ inbox.Backend = (*Client)(nil)

func New(cc grpc.ClientConnInterface, token string, log zerolog.Logger) *Client {
	return &Client{
		rpc:   v1.NewMessagingServiceClient(cc),
		token: token,
		log:   log,
	}
}

// Dial connects to addr. The caller closes the returned connection.
func Dial(addr, token string, creds credentials.TransportCredentials, log zerolog.Logger) (*Client, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return New(conn, token, log), conn, nil
}

func (c *Client) outgoing(ctx context.Context) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
}

// mapErr turns NotFound into inbox.ErrNotFound and keeps every other status.
func mapErr(err error) error {
	if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
		return fmt.Errorf("%w: %s", inbox.ErrNotFound, st.Message())
	}
	return err
}

func (c *Client) ListConversationsForUser(ctx context.Context, userID string) ([]inbox.Conversation, error) {
	res, err := c.rpc.ListConversations(c.outgoing(ctx), &v1.ListConversationsRequest{UserId: userID})
	if err != nil {
		return nil, mapErr(err)
	}
	return lo.Map(res.Conversations, func(conv *v1.Conversation, _ int) inbox.Conversation {
		return fromWireConversation(conv)
	}), nil
}

func (c *Client) BatchGetIdentities(ctx context.Context, ids []string) (map[string]inbox.Identity, error) {
	if len(ids) == 0 {
		return map[string]inbox.Identity{}, nil
	}
	res, err := c.rpc.BatchGetIdentities(c.outgoing(ctx), &v1.BatchGetIdentitiesRequest{Ids: ids})
	if err != nil {
		return nil, mapErr(err)
	}
	out := make(map[string]inbox.Identity, len(res.Identities))
	for id, ident := range res.Identities {
		if ident != nil {
			out[id] = inbox.Identity{ID: ident.Id, Username: ident.Username}
		}
	}
	return out, nil
}

func (c *Client) BatchGetListingSummaries(ctx context.Context, ids []string) (map[string]inbox.ListingSummary, error) {
	if len(ids) == 0 {
		return map[string]inbox.ListingSummary{}, nil
	}
	res, err := c.rpc.BatchGetListingSummaries(c.outgoing(ctx), &v1.BatchGetListingSummariesRequest{Ids: ids})
	if err != nil {
		return nil, mapErr(err)
	}
	out := make(map[string]inbox.ListingSummary, len(res.Listings))
	for id, l := range res.Listings {
		if l != nil {
			out[id] = inbox.ListingSummary{ID: l.Id, Title: l.Title, Price: l.Price, ThumbnailURL: l.ThumbnailUrl}
		}
	}
	return out, nil
}

func (c *Client) GetLatestMessage(ctx context.Context, conversationID string) (*inbox.Message, error) {
	res, err := c.rpc.GetLatestMessage(c.outgoing(ctx), &v1.GetLatestMessageRequest{ConversationId: conversationID})
	if err != nil {
		return nil, mapErr(err)
	}
	if res.Message == nil {
		return nil, nil
	}
	m := fromWireMessage(res.Message)
	return &m, nil
}

func (c *Client) CountUnread(ctx context.Context, conversationID, excludeSender string) (int, error) {
	res, err := c.rpc.CountUnread(c.outgoing(ctx), &v1.CountUnreadRequest{
		ConversationId: conversationID,
		ExcludeSender:  excludeSender,
	})
	if err != nil {
		return 0, mapErr(err)
	}
	return int(res.Count), nil
}

func (c *Client) GetConversation(ctx context.Context, conversationID string) (inbox.Conversation, error) {
	res, err := c.rpc.GetConversation(c.outgoing(ctx), &v1.GetConversationRequest{ConversationId: conversationID})
	if err != nil {
		return inbox.Conversation{}, mapErr(err)
	}
	return fromWireConversation(res), nil
}

func (c *Client) StartConversation(ctx context.Context, listingID, buyerID, sellerID string) (inbox.Conversation, error) {
	res, err := c.rpc.StartConversation(c.outgoing(ctx), &v1.StartConversationRequest{
		ListingId: listingID,
		BuyerId:   buyerID,
		SellerId:  sellerID,
	})
	if err != nil {
		return inbox.Conversation{}, mapErr(err)
	}
	return fromWireConversation(res), nil
}

func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]inbox.Message, error) {
	res, err := c.rpc.ListMessages(c.outgoing(ctx), &v1.ListMessagesRequest{ConversationId: conversationID})
	if err != nil {
		return nil, mapErr(err)
	}
	return lo.Map(res.Messages, func(m *v1.Message, _ int) inbox.Message {
		return fromWireMessage(m)
	}), nil
}

func (c *Client) MarkRead(ctx context.Context, conversationID, viewerID string) error {
	_, err := c.rpc.MarkRead(c.outgoing(ctx), &v1.MarkReadRequest{ConversationId: conversationID, ViewerId: viewerID})
	return mapErr(err)
}

func (c *Client) SendMessage(ctx context.Context, conversationID, senderID, body string) (inbox.Message, error) {
	res, err := c.rpc.SendMessage(c.outgoing(ctx), &v1.SendMessageRequest{
		ConversationId: conversationID,
		SenderId:       senderID,
		Body:           body,
	})
	if err != nil {
		return inbox.Message{}, mapErr(err)
	}
	return fromWireMessage(res), nil
}

func (c *Client) SendNotification(ctx context.Context, recipientID, title, body string) error {
	_, err := c.rpc.SendNotification(c.outgoing(ctx), &v1.SendNotificationRequest{
		RecipientId: recipientID,
		Title:       title,
		Body:        body,
	})
	return mapErr(err)
}

func (c *Client) ListNotifications(ctx context.Context, userID string, limit int) ([]inbox.Notification, error) {
	res, err := c.rpc.ListNotifications(c.outgoing(ctx), &v1.ListNotificationsRequest{UserId: userID, Limit: int32(limit)})
	if err != nil {
		return nil, mapErr(err)
	}
	return lo.Map(res.Notifications, func(n *v1.Notification, _ int) inbox.Notification {
		return fromWireNotification(n)
	}), nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, notificationID string) error {
	_, err := c.rpc.MarkNotificationRead(c.outgoing(ctx), &v1.MarkNotificationReadRequest{NotificationId: notificationID})
	return mapErr(err)
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	_, err := c.rpc.MarkAllNotificationsRead(c.outgoing(ctx), &v1.MarkAllNotificationsReadRequest{UserId: userID})
	return mapErr(err)
}

func (c *Client) SubscribeMessages(ctx context.Context, conversationID string, onEvent func(inbox.Message)) (inbox.Subscription, error) {
	return c.subscribe(ctx, "messages",
		func(ctx context.Context) (grpc.ServerStreamingClient[v1.Event], error) {
			return c.rpc.SubscribeMessages(ctx, &v1.SubscribeMessagesRequest{ConversationId: conversationID})
		},
		func(ev *v1.Event) {
			if ev.Message != nil {
				onEvent(fromWireMessage(ev.Message))
			}
		})
}

func (c *Client) SubscribeNotifications(ctx context.Context, userID string, onEvent func(inbox.Notification)) (inbox.Subscription, error) {
	return c.subscribe(ctx, "notifications",
		func(ctx context.Context) (grpc.ServerStreamingClient[v1.Event], error) {
			return c.rpc.SubscribeNotifications(ctx, &v1.SubscribeNotificationsRequest{UserId: userID})
		},
		func(ev *v1.Event) {
			if ev.Notification != nil {
				onEvent(fromWireNotification(ev.Notification))
			}
		})
}

// subscribe opens a stream and returns once the server confirmed it is
// attached. Events are delivered from one goroutine in arrival order until
// the subscription is released or the stream ends. The stream outlives ctx;
// only Release ends it.
func (c *Client) subscribe(
	ctx context.Context,
	kind string,
	open func(context.Context) (grpc.ServerStreamingClient[v1.Event], error),
	deliver func(*v1.Event),
) (inbox.Subscription, error) {
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(c.outgoing(ctx)))

	stream, err := open(streamCtx)
	if err != nil {
		cancel()
		return nil, mapErr(err)
	}
	header, err := stream.Header()
	if err != nil {
		cancel()
		return nil, mapErr(err)
	}
	if len(header.Get(v1.SubscribedHeader)) == 0 {
		// No header means the server ended the stream; Recv carries the status.
		_, err := stream.Recv()
		cancel()
		if err == nil || errors.Is(err, io.EOF) {
			err = errNotSubscribed
		}
		return nil, mapErr(err)
	}

	sub := &subscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for {
			ev, err := stream.Recv()
			if err != nil {
				if streamCtx.Err() == nil {
					c.log.Warn().Err(err).Str("kind", kind).Msg("subscription ended")
				}
				return
			}
			deliver(ev)
		}
	}()
	return sub, nil
}

type subscription struct {
	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

// Release cancels the stream. It does not wait for an event already being
// delivered.
func (s *subscription) Release() {
	s.once.Do(s.cancel)
}

// Done is closed when the delivery goroutine has exited.
func (s *subscription) Done() <-chan struct{} { return s.done }
