package main

import (
	"context"
	"errors"
	"html"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"

	v1 "github.com/PaulBabatuyi/marketchat/api/messaging/v1"
	"github.com/PaulBabatuyi/marketchat/internal/auth"
	"github.com/PaulBabatuyi/marketchat/internal/data"
	"github.com/PaulBabatuyi/marketchat/internal/feed"
	"github.com/PaulBabatuyi/marketchat/internal/logging"
	"github.com/PaulBabatuyi/marketchat/internal/metrics"
	"github.com/PaulBabatuyi/marketchat/internal/middleware"
	"github.com/PaulBabatuyi/marketchat/internal/normalize"
)

const defaultNotificationLimit = 20

func requireClaims(ctx context.Context) (*auth.Claims, error) {
	claims, ok := getClaimsFromContext(ctx)
	if !ok {
		return nil, status.Errorf(codes.Unauthenticated, "missing auth claims")
	}
	return claims, nil
}

// requireSelf rejects requests made on behalf of another user.
func requireSelf(ctx context.Context, userID string) (*auth.Claims, error) {
	claims, err := requireClaims(ctx)
	if err != nil {
		return nil, err
	}
	if claims.UserID != userID {
		return nil, status.Errorf(codes.PermissionDenied, "cannot act for another user")
	}
	return claims, nil
}

// storeError maps a store failure onto a status, logging unexpected ones.
func storeError(ctx context.Context, err error, what string) error {
	switch {
	case errors.Is(err, data.ErrNotFound):
		return status.Errorf(codes.NotFound, "%s not found", what)
	case errors.Is(err, data.ErrInvalidID):
		return status.Errorf(codes.InvalidArgument, "%v", err)
	}
	log := logging.FromContext(ctx)
	log.Error().Err(err).Str("resource", what).Msg("store call failed")
	return status.Errorf(codes.Internal, "failed to access %s", what)
}

// participantConversation loads a conversation the caller takes part in.
func (s *Server) participantConversation(ctx context.Context, conversationID string) (*data.Conversation, *auth.Claims, error) {
	claims, err := requireClaims(ctx)
	if err != nil {
		return nil, nil, err
	}
	id, err := data.ParseID(conversationID)
	if err != nil {
		return nil, nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		return nil, nil, storeError(ctx, err, "conversation")
	}
	if !conv.HasParticipant(claims.UserID) {
		return nil, nil, status.Errorf(codes.PermissionDenied, "not a participant of this conversation")
	}
	return conv, claims, nil
}

// ListConversations returns every conversation the caller is buyer or seller in.
func (s *Server) ListConversations(ctx context.Context, req *v1.ListConversationsRequest) (*v1.ListConversationsResponse, error) {
	if _, err := requireSelf(ctx, req.UserId); err != nil {
		return nil, err
	}
	convs, err := s.conversations.ListForUser(ctx, req.UserId)
	if err != nil {
		return nil, storeError(ctx, err, "conversations")
	}
	resp := &v1.ListConversationsResponse{Conversations: make([]*v1.Conversation, 0, len(convs))}
	for _, c := range convs {
		resp.Conversations = append(resp.Conversations, toWireConversation(c))
	}
	return resp, nil
}

func (s *Server) GetConversation(ctx context.Context, req *v1.GetConversationRequest) (*v1.Conversation, error) {
	conv, _, err := s.participantConversation(ctx, req.ConversationId)
	if err != nil {
		return nil, err
	}
	return toWireConversation(conv), nil
}

// StartConversation is called by the buyer on first contact about a listing.
// It returns the existing conversation when there already is one. The seller
// is the listing's owner; a request naming anyone else is rejected.
func (s *Server) StartConversation(ctx context.Context, req *v1.StartConversationRequest) (*v1.Conversation, error) {
	if _, err := requireSelf(ctx, req.BuyerId); err != nil {
		return nil, err
	}
	found, err := s.listings.BatchGetSummaries(ctx, []string{req.ListingId})
	if err != nil {
		return nil, storeError(ctx, err, "listing")
	}
	listing, ok := found[req.ListingId]
	if !ok {
		return nil, status.Error(codes.NotFound, "listing not found")
	}
	switch listing.SellerID {
	case "":
		return nil, status.Error(codes.FailedPrecondition, "listing has no seller")
	case req.BuyerId:
		return nil, status.Error(codes.InvalidArgument, "cannot start a conversation about your own listing")
	case req.SellerId:
	default:
		return nil, status.Error(codes.InvalidArgument, "seller_id is not the listing's seller")
	}

	conv, err := s.conversations.FindOrCreate(ctx, req.ListingId, req.BuyerId, listing.SellerID)
	if err != nil {
		return nil, storeError(ctx, err, "conversation")
	}
	if conv.SellerID != listing.SellerID {
		log := logging.FromContext(ctx)
		log.Warn().Str("conversation_id", conv.ID.Hex()).Msg("conversation seller differs from listing seller")
		return nil, status.Error(codes.FailedPrecondition, "conversation belongs to another seller")
	}
	return toWireConversation(conv), nil
}

func (s *Server) BatchGetIdentities(ctx context.Context, req *v1.BatchGetIdentitiesRequest) (*v1.BatchGetIdentitiesResponse, error) {
	found, err := s.users.BatchGetIdentities(ctx, req.Ids)
	if err != nil {
		return nil, storeError(ctx, err, "identities")
	}
	resp := &v1.BatchGetIdentitiesResponse{Identities: make(map[string]*v1.Identity, len(found))}
	for id, ident := range found {
		resp.Identities[id] = &v1.Identity{Id: id, Username: ident.Username}
	}
	return resp, nil
}

func (s *Server) BatchGetListingSummaries(ctx context.Context, req *v1.BatchGetListingSummariesRequest) (*v1.BatchGetListingSummariesResponse, error) {
	found, err := s.listings.BatchGetSummaries(ctx, req.Ids)
	if err != nil {
		return nil, storeError(ctx, err, "listings")
	}
	resp := &v1.BatchGetListingSummariesResponse{Listings: make(map[string]*v1.ListingSummary, len(found))}
	for id, l := range found {
		resp.Listings[id] = &v1.ListingSummary{Id: id, Title: l.Title, Price: l.Price, ThumbnailUrl: l.ThumbnailURL}
	}
	return resp, nil
}

func (s *Server) GetLatestMessage(ctx context.Context, req *v1.GetLatestMessageRequest) (*v1.GetLatestMessageResponse, error) {
	conv, _, err := s.participantConversation(ctx, req.ConversationId)
	if err != nil {
		return nil, err
	}
	m, err := s.msgs.Latest(ctx, conv.ID)
	if err != nil {
		return nil, storeError(ctx, err, "messages")
	}
	if m == nil {
		return &v1.GetLatestMessageResponse{}, nil
	}
	return &v1.GetLatestMessageResponse{Message: toWireMessage(m)}, nil
}

func (s *Server) CountUnread(ctx context.Context, req *v1.CountUnreadRequest) (*v1.CountUnreadResponse, error) {
	conv, _, err := s.participantConversation(ctx, req.ConversationId)
	if err != nil {
		return nil, err
	}
	n, err := s.msgs.CountUnread(ctx, conv.ID, req.ExcludeSender)
	if err != nil {
		return nil, storeError(ctx, err, "messages")
	}
	return &v1.CountUnreadResponse{Count: n}, nil
}

// ListMessages returns the full history of a conversation, oldest first.
func (s *Server) ListMessages(ctx context.Context, req *v1.ListMessagesRequest) (*v1.ListMessagesResponse, error) {
	conv, _, err := s.participantConversation(ctx, req.ConversationId)
	if err != nil {
		return nil, err
	}
	msgs, err := s.msgs.ListForConversation(ctx, conv.ID)
	if err != nil {
		return nil, storeError(ctx, err, "messages")
	}
	resp := &v1.ListMessagesResponse{Messages: make([]*v1.Message, 0, len(msgs))}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, toWireMessage(m))
	}
	return resp, nil
}

// MarkRead flags every message the counterpart sent as read by the viewer.
func (s *Server) MarkRead(ctx context.Context, req *v1.MarkReadRequest) (*v1.MarkReadResponse, error) {
	conv, claims, err := s.participantConversation(ctx, req.ConversationId)
	if err != nil {
		return nil, err
	}
	if claims.UserID != req.ViewerId {
		return nil, status.Errorf(codes.PermissionDenied, "cannot act for another user")
	}
	n, err := s.msgs.MarkRead(ctx, conv.ID, req.ViewerId)
	if err != nil {
		return nil, storeError(ctx, err, "messages")
	}
	return &v1.MarkReadResponse{Updated: n}, nil
}

// SendMessage stores a message and publishes it to the conversation feed.
// Publishing is best effort: the message is persisted and shows up in
// ListMessages either way.
func (s *Server) SendMessage(ctx context.Context, req *v1.SendMessageRequest) (*v1.Message, error) {
	conv, claims, err := s.participantConversation(ctx, req.ConversationId)
	if err != nil {
		return nil, err
	}
	if claims.UserID != req.SenderId {
		return nil, status.Errorf(codes.PermissionDenied, "cannot send as another user")
	}
	body := normalize.Body(req.Body)
	if body == "" {
		return nil, status.Errorf(codes.InvalidArgument, "message body is empty")
	}

	saved, err := s.msgs.SaveMessage(ctx, conv.ID, claims.UserID, html.EscapeString(body))
	if err != nil {
		return nil, storeError(ctx, err, "message")
	}
	metrics.MessagesSent.Inc()

	msg := toWireMessage(saved)
	if err := s.broker.Publish(ctx, feed.MessageTopic(msg.ConversationId), &v1.Event{Message: msg}); err != nil {
		log := logging.FromContext(ctx)
		log.Warn().Err(err).Str("conversation_id", msg.ConversationId).Msg("message publish failed")
	}
	return msg, nil
}

// SendNotification stores a notification for any user and publishes it to
// their feed.
func (s *Server) SendNotification(ctx context.Context, req *v1.SendNotificationRequest) (*emptypb.Empty, error) {
	if _, err := requireClaims(ctx); err != nil {
		return nil, err
	}
	n, err := s.notifications.Create(ctx, req.RecipientId, req.Title, req.Body)
	if err != nil {
		return nil, storeError(ctx, err, "notification")
	}
	metrics.NotificationsSent.Inc()

	if err := s.broker.Publish(ctx, feed.NotificationTopic(req.RecipientId), &v1.Event{Notification: toWireNotification(n)}); err != nil {
		log := logging.FromContext(ctx)
		log.Warn().Err(err).Str("recipient_id", req.RecipientId).Msg("notification publish failed")
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) ListNotifications(ctx context.Context, req *v1.ListNotificationsRequest) (*v1.ListNotificationsResponse, error) {
	if _, err := requireSelf(ctx, req.UserId); err != nil {
		return nil, err
	}
	limit := int64(req.Limit)
	if limit == 0 {
		limit = defaultNotificationLimit
	}
	items, err := s.notifications.ListForUser(ctx, req.UserId, limit)
	if err != nil {
		return nil, storeError(ctx, err, "notifications")
	}
	resp := &v1.ListNotificationsResponse{Notifications: make([]*v1.Notification, 0, len(items))}
	for _, n := range items {
		resp.Notifications = append(resp.Notifications, toWireNotification(n))
	}
	return resp, nil
}

// MarkNotificationRead only matches notifications addressed to the caller.
func (s *Server) MarkNotificationRead(ctx context.Context, req *v1.MarkNotificationReadRequest) (*emptypb.Empty, error) {
	claims, err := requireClaims(ctx)
	if err != nil {
		return nil, err
	}
	id, err := data.ParseID(req.NotificationId)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	if err := s.notifications.MarkRead(ctx, id, claims.UserID); err != nil {
		return nil, storeError(ctx, err, "notification")
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) MarkAllNotificationsRead(ctx context.Context, req *v1.MarkAllNotificationsReadRequest) (*emptypb.Empty, error) {
	if _, err := requireSelf(ctx, req.UserId); err != nil {
		return nil, err
	}
	if _, err := s.notifications.MarkAllRead(ctx, req.UserId); err != nil {
		return nil, storeError(ctx, err, "notifications")
	}
	return &emptypb.Empty{}, nil
}

// SubscribeMessages pushes every message stored in the conversation from now
// on until the client goes away.
func (s *Server) SubscribeMessages(req *v1.SubscribeMessagesRequest, stream grpc.ServerStreamingServer[v1.Event]) error {
	if err := middleware.Validate(s.validate, req); err != nil {
		return err
	}
	if _, _, err := s.participantConversation(stream.Context(), req.ConversationId); err != nil {
		return err
	}
	return s.attach(stream, feed.MessageTopic(req.ConversationId), "messages")
}

// SubscribeNotifications pushes the caller's new notifications.
func (s *Server) SubscribeNotifications(req *v1.SubscribeNotificationsRequest, stream grpc.ServerStreamingServer[v1.Event]) error {
	if err := middleware.Validate(s.validate, req); err != nil {
		return err
	}
	if _, err := requireSelf(stream.Context(), req.UserId); err != nil {
		return err
	}
	return s.attach(stream, feed.NotificationTopic(req.UserId), "notifications")
}

// attach registers stream on topic, confirms the subscription with the
// subscribed header and blocks until the client disconnects. The header goes
// out before any event: publishers wait on the stream lock until it is sent.
func (s *Server) attach(stream grpc.ServerStreamingServer[v1.Event], topic, kind string) error {
	ls := &lockedStream{stream: stream}
	ls.mu.Lock()
	id := s.hub.Register(topic, ls)
	defer s.hub.Unregister(topic, id)
	err := stream.SendHeader(metadata.Pairs(v1.SubscribedHeader, "true"))
	ls.mu.Unlock()
	if err != nil {
		return status.Errorf(codes.Internal, "failed to confirm subscription: %v", err)
	}

	gauge := metrics.ActiveSubscriptions.WithLabelValues(kind)
	gauge.Inc()
	defer gauge.Dec()

	<-stream.Context().Done()
	return nil
}

// lockedStream lets attach hold back publishers until the header is out.
type lockedStream struct {
	mu     sync.Mutex
	stream grpc.ServerStreamingServer[v1.Event]
}

func (l *lockedStream) Send(ev *v1.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stream.Send(ev)
}
