package v1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

const serviceName = "marketchat.messaging.v1.MessagingService"

// SubscribedHeader is sent in the response header of a subscription stream
// once the server has attached it to the feed.
const SubscribedHeader = "x-marketchat-subscribed"

const (
	MessagingService_ListConversations_FullMethodName        = "/" + serviceName + "/ListConversations"
	MessagingService_GetConversation_FullMethodName          = "/" + serviceName + "/GetConversation"
	MessagingService_StartConversation_FullMethodName        = "/" + serviceName + "/StartConversation"
	MessagingService_BatchGetIdentities_FullMethodName       = "/" + serviceName + "/BatchGetIdentities"
	MessagingService_BatchGetListingSummaries_FullMethodName = "/" + serviceName + "/BatchGetListingSummaries"
	MessagingService_GetLatestMessage_FullMethodName         = "/" + serviceName + "/GetLatestMessage"
	MessagingService_CountUnread_FullMethodName              = "/" + serviceName + "/CountUnread"
	MessagingService_ListMessages_FullMethodName             = "/" + serviceName + "/ListMessages"
	MessagingService_MarkRead_FullMethodName                 = "/" + serviceName + "/MarkRead"
	MessagingService_SendMessage_FullMethodName              = "/" + serviceName + "/SendMessage"
	MessagingService_SubscribeMessages_FullMethodName        = "/" + serviceName + "/SubscribeMessages"
	MessagingService_SendNotification_FullMethodName         = "/" + serviceName + "/SendNotification"
	MessagingService_ListNotifications_FullMethodName        = "/" + serviceName + "/ListNotifications"
	MessagingService_MarkNotificationRead_FullMethodName     = "/" + serviceName + "/MarkNotificationRead"
	MessagingService_MarkAllNotificationsRead_FullMethodName = "/" + serviceName + "/MarkAllNotificationsRead"
	MessagingService_SubscribeNotifications_FullMethodName   = "/" + serviceName + "/SubscribeNotifications"
)

// MessagingServiceServer is the server API for MessagingService.
type MessagingServiceServer interface {
	ListConversations(context.Context, *ListConversationsRequest) (*ListConversationsResponse, error)
	GetConversation(context.Context, *GetConversationRequest) (*Conversation, error)
	StartConversation(context.Context, *StartConversationRequest) (*Conversation, error)
	BatchGetIdentities(context.Context, *BatchGetIdentitiesRequest) (*BatchGetIdentitiesResponse, error)
	BatchGetListingSummaries(context.Context, *BatchGetListingSummariesRequest) (*BatchGetListingSummariesResponse, error)
	GetLatestMessage(context.Context, *GetLatestMessageRequest) (*GetLatestMessageResponse, error)
	CountUnread(context.Context, *CountUnreadRequest) (*CountUnreadResponse, error)
	ListMessages(context.Context, *ListMessagesRequest) (*ListMessagesResponse, error)
	MarkRead(context.Context, *MarkReadRequest) (*MarkReadResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*Message, error)
	SubscribeMessages(*SubscribeMessagesRequest, grpc.ServerStreamingServer[Event]) error
	SendNotification(context.Context, *SendNotificationRequest) (*emptypb.Empty, error)
	ListNotifications(context.Context, *ListNotificationsRequest) (*ListNotificationsResponse, error)
	MarkNotificationRead(context.Context, *MarkNotificationReadRequest) (*emptypb.Empty, error)
	MarkAllNotificationsRead(context.Context, *MarkAllNotificationsReadRequest) (*emptypb.Empty, error)
	SubscribeNotifications(*SubscribeNotificationsRequest, grpc.ServerStreamingServer[Event]) error
}

// UnimplementedMessagingServiceServer can be embedded to have forward compatible implementations.
type UnimplementedMessagingServiceServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedMessagingServiceServer) ListConversations(context.Context, *ListConversationsRequest) (*ListConversationsResponse, error) {
	return nil, unimplemented("ListConversations")
}
func (UnimplementedMessagingServiceServer) GetConversation(context.Context, *GetConversationRequest) (*Conversation, error) {
	return nil, unimplemented("GetConversation")
}
func (UnimplementedMessagingServiceServer) StartConversation(context.Context, *StartConversationRequest) (*Conversation, error) {
	return nil, unimplemented("StartConversation")
}
func (UnimplementedMessagingServiceServer) BatchGetIdentities(context.Context, *BatchGetIdentitiesRequest) (*BatchGetIdentitiesResponse, error) {
	return nil, unimplemented("BatchGetIdentities")
}
func (UnimplementedMessagingServiceServer) BatchGetListingSummaries(context.Context, *BatchGetListingSummariesRequest) (*BatchGetListingSummariesResponse, error) {
	return nil, unimplemented("BatchGetListingSummaries")
}
func (UnimplementedMessagingServiceServer) GetLatestMessage(context.Context, *GetLatestMessageRequest) (*GetLatestMessageResponse, error) {
	return nil, unimplemented("GetLatestMessage")
}
func (UnimplementedMessagingServiceServer) CountUnread(context.Context, *CountUnreadRequest) (*CountUnreadResponse, error) {
	return nil, unimplemented("CountUnread")
}
func (UnimplementedMessagingServiceServer) ListMessages(context.Context, *ListMessagesRequest) (*ListMessagesResponse, error) {
	return nil, unimplemented("ListMessages")
}
func (UnimplementedMessagingServiceServer) MarkRead(context.Context, *MarkReadRequest) (*MarkReadResponse, error) {
	return nil, unimplemented("MarkRead")
}
func (UnimplementedMessagingServiceServer) SendMessage(context.Context, *SendMessageRequest) (*Message, error) {
	return nil, unimplemented("SendMessage")
}
func (UnimplementedMessagingServiceServer) SubscribeMessages(*SubscribeMessagesRequest, grpc.ServerStreamingServer[Event]) error {
	return unimplemented("SubscribeMessages")
}
func (UnimplementedMessagingServiceServer) SendNotification(context.Context, *SendNotificationRequest) (*emptypb.Empty, error) {
	return nil, unimplemented("SendNotification")
}
func (UnimplementedMessagingServiceServer) ListNotifications(context.Context, *ListNotificationsRequest) (*ListNotificationsResponse, error) {
	return nil, unimplemented("ListNotifications")
}
func (UnimplementedMessagingServiceServer) MarkNotificationRead(context.Context, *MarkNotificationReadRequest) (*emptypb.Empty, error) {
	return nil, unimplemented("MarkNotificationRead")
}
func (UnimplementedMessagingServiceServer) MarkAllNotificationsRead(context.Context, *MarkAllNotificationsReadRequest) (*emptypb.Empty, error) {
	return nil, unimplemented("MarkAllNotificationsRead")
}
func (UnimplementedMessagingServiceServer) SubscribeNotifications(*SubscribeNotificationsRequest, grpc.ServerStreamingServer[Event]) error {
	return unimplemented("SubscribeNotifications")
}

// RegisterMessagingServiceServer registers srv on the given gRPC server.
func RegisterMessagingServiceServer(s grpc.ServiceRegistrar, srv MessagingServiceServer) {
	s.RegisterService(&MessagingService_ServiceDesc, srv)
}

// unaryHandler adapts a typed server method to grpc.MethodHandler, running the
// configured interceptor chain when present.
func unaryHandler[Req, Res any](fullMethod string, call func(MessagingServiceServer, context.Context, *Req) (*Res, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(MessagingServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(MessagingServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func streamHandler[Req, Res any](call func(MessagingServiceServer, *Req, grpc.ServerStreamingServer[Res]) error) grpc.StreamHandler {
	return func(srv any, stream grpc.ServerStream) error {
		in := new(Req)
		if err := stream.RecvMsg(in); err != nil {
			return err
		}
		return call(srv.(MessagingServiceServer), in, &grpc.GenericServerStream[Req, Res]{ServerStream: stream})
	}
}

// MessagingService_ServiceDesc is the grpc.ServiceDesc for MessagingService.
var MessagingService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*MessagingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListConversations", Handler: unaryHandler(MessagingService_ListConversations_FullMethodName, MessagingServiceServer.ListConversations)},
		{MethodName: "GetConversation", Handler: unaryHandler(MessagingService_GetConversation_FullMethodName, MessagingServiceServer.GetConversation)},
		{MethodName: "StartConversation", Handler: unaryHandler(MessagingService_StartConversation_FullMethodName, MessagingServiceServer.StartConversation)},
		{MethodName: "BatchGetIdentities", Handler: unaryHandler(MessagingService_BatchGetIdentities_FullMethodName, MessagingServiceServer.BatchGetIdentities)},
		{MethodName: "BatchGetListingSummaries", Handler: unaryHandler(MessagingService_BatchGetListingSummaries_FullMethodName, MessagingServiceServer.BatchGetListingSummaries)},
		{MethodName: "GetLatestMessage", Handler: unaryHandler(MessagingService_GetLatestMessage_FullMethodName, MessagingServiceServer.GetLatestMessage)},
		{MethodName: "CountUnread", Handler: unaryHandler(MessagingService_CountUnread_FullMethodName, MessagingServiceServer.CountUnread)},
		{MethodName: "ListMessages", Handler: unaryHandler(MessagingService_ListMessages_FullMethodName, MessagingServiceServer.ListMessages)},
		{MethodName: "MarkRead", Handler: unaryHandler(MessagingService_MarkRead_FullMethodName, MessagingServiceServer.MarkRead)},
		{MethodName: "SendMessage", Handler: unaryHandler(MessagingService_SendMessage_FullMethodName, MessagingServiceServer.SendMessage)},
		{MethodName: "SendNotification", Handler: unaryHandler(MessagingService_SendNotification_FullMethodName, MessagingServiceServer.SendNotification)},
		{MethodName: "ListNotifications", Handler: unaryHandler(MessagingService_ListNotifications_FullMethodName, MessagingServiceServer.ListNotifications)},
		{MethodName: "MarkNotificationRead", Handler: unaryHandler(MessagingService_MarkNotificationRead_FullMethodName, MessagingServiceServer.MarkNotificationRead)},
		{MethodName: "MarkAllNotificationsRead", Handler: unaryHandler(MessagingService_MarkAllNotificationsRead_FullMethodName, MessagingServiceServer.MarkAllNotificationsRead)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "SubscribeMessages", Handler: streamHandler(MessagingServiceServer.SubscribeMessages), ServerStreams: true},
		{StreamName: "SubscribeNotifications", Handler: streamHandler(MessagingServiceServer.SubscribeNotifications), ServerStreams: true},
	},
	Metadata: "marketchat/messaging/v1",
}

// MessagingServiceClient is the client API for MessagingService.
type MessagingServiceClient interface {
	ListConversations(ctx context.Context, in *ListConversationsRequest, opts ...grpc.CallOption) (*ListConversationsResponse, error)
	GetConversation(ctx context.Context, in *GetConversationRequest, opts ...grpc.CallOption) (*Conversation, error)
	StartConversation(ctx context.Context, in *StartConversationRequest, opts ...grpc.CallOption) (*Conversation, error)
	BatchGetIdentities(ctx context.Context, in *BatchGetIdentitiesRequest, opts ...grpc.CallOption) (*BatchGetIdentitiesResponse, error)
	BatchGetListingSummaries(ctx context.Context, in *BatchGetListingSummariesRequest, opts ...grpc.CallOption) (*BatchGetListingSummariesResponse, error)
	GetLatestMessage(ctx context.Context, in *GetLatestMessageRequest, opts ...grpc.CallOption) (*GetLatestMessageResponse, error)
	CountUnread(ctx context.Context, in *CountUnreadRequest, opts ...grpc.CallOption) (*CountUnreadResponse, error)
	ListMessages(ctx context.Context, in *ListMessagesRequest, opts ...grpc.CallOption) (*ListMessagesResponse, error)
	MarkRead(ctx context.Context, in *MarkReadRequest, opts ...grpc.CallOption) (*MarkReadResponse, error)
	SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*Message, error)
	SubscribeMessages(ctx context.Context, in *SubscribeMessagesRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Event], error)
	SendNotification(ctx context.Context, in *SendNotificationRequest, opts ...grpc.CallOption) (*emptypb.Empty, error)
	ListNotifications(ctx context.Context, in *ListNotificationsRequest, opts ...grpc.CallOption) (*ListNotificationsResponse, error)
	MarkNotificationRead(ctx context.Context, in *MarkNotificationReadRequest, opts ...grpc.CallOption) (*emptypb.Empty, error)
	MarkAllNotificationsRead(ctx context.Context, in *MarkAllNotificationsReadRequest, opts ...grpc.CallOption) (*emptypb.Empty, error)
	SubscribeNotifications(ctx context.Context, in *SubscribeNotificationsRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Event], error)
}

type messagingServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewMessagingServiceClient returns a client whose calls always use the json content-subtype.
func NewMessagingServiceClient(cc grpc.ClientConnInterface) MessagingServiceClient {
	return &messagingServiceClient{cc: cc}
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func invoke[Res any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Res, error) {
	out := new(Res)
	if err := cc.Invoke(ctx, method, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func openStream[Req, Res any](ctx context.Context, cc grpc.ClientConnInterface, desc *grpc.StreamDesc, method string, in *Req, opts []grpc.CallOption) (grpc.ServerStreamingClient[Res], error) {
	stream, err := cc.NewStream(ctx, desc, method, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[Req, Res]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func (c *messagingServiceClient) ListConversations(ctx context.Context, in *ListConversationsRequest, opts ...grpc.CallOption) (*ListConversationsResponse, error) {
	return invoke[ListConversationsResponse](ctx, c.cc, MessagingService_ListConversations_FullMethodName, in, opts)
}

func (c *messagingServiceClient) GetConversation(ctx context.Context, in *GetConversationRequest, opts ...grpc.CallOption) (*Conversation, error) {
	return invoke[Conversation](ctx, c.cc, MessagingService_GetConversation_FullMethodName, in, opts)
}

func (c *messagingServiceClient) StartConversation(ctx context.Context, in *StartConversationRequest, opts ...grpc.CallOption) (*Conversation, error) {
	return invoke[Conversation](ctx, c.cc, MessagingService_StartConversation_FullMethodName, in, opts)
}

func (c *messagingServiceClient) BatchGetIdentities(ctx context.Context, in *BatchGetIdentitiesRequest, opts ...grpc.CallOption) (*BatchGetIdentitiesResponse, error) {
	return invoke[BatchGetIdentitiesResponse](ctx, c.cc, MessagingService_BatchGetIdentities_FullMethodName, in, opts)
}

func (c *messagingServiceClient) BatchGetListingSummaries(ctx context.Context, in *BatchGetListingSummariesRequest, opts ...grpc.CallOption) (*BatchGetListingSummariesResponse, error) {
	return invoke[BatchGetListingSummariesResponse](ctx, c.cc, MessagingService_BatchGetListingSummaries_FullMethodName, in, opts)
}

func (c *messagingServiceClient) GetLatestMessage(ctx context.Context, in *GetLatestMessageRequest, opts ...grpc.CallOption) (*GetLatestMessageResponse, error) {
	return invoke[GetLatestMessageResponse](ctx, c.cc, MessagingService_GetLatestMessage_FullMethodName, in, opts)
}

func (c *messagingServiceClient) CountUnread(ctx context.Context, in *CountUnreadRequest, opts ...grpc.CallOption) (*CountUnreadResponse, error) {
	return invoke[CountUnreadResponse](ctx, c.cc, MessagingService_CountUnread_FullMethodName, in, opts)
}

func (c *messagingServiceClient) ListMessages(ctx context.Context, in *ListMessagesRequest, opts ...grpc.CallOption) (*ListMessagesResponse, error) {
	return invoke[ListMessagesResponse](ctx, c.cc, MessagingService_ListMessages_FullMethodName, in, opts)
}

func (c *messagingServiceClient) MarkRead(ctx context.Context, in *MarkReadRequest, opts ...grpc.CallOption) (*MarkReadResponse, error) {
	return invoke[MarkReadResponse](ctx, c.cc, MessagingService_MarkRead_FullMethodName, in, opts)
}

func (c *messagingServiceClient) SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*Message, error) {
	return invoke[Message](ctx, c.cc, MessagingService_SendMessage_FullMethodName, in, opts)
}

func (c *messagingServiceClient) SubscribeMessages(ctx context.Context, in *SubscribeMessagesRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Event], error) {
	return openStream[SubscribeMessagesRequest, Event](ctx, c.cc, &MessagingService_ServiceDesc.Streams[0], MessagingService_SubscribeMessages_FullMethodName, in, opts)
}

func (c *messagingServiceClient) SendNotification(ctx context.Context, in *SendNotificationRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, MessagingService_SendNotification_FullMethodName, in, opts)
}

func (c *messagingServiceClient) ListNotifications(ctx context.Context, in *ListNotificationsRequest, opts ...grpc.CallOption) (*ListNotificationsResponse, error) {
	return invoke[ListNotificationsResponse](ctx, c.cc, MessagingService_ListNotifications_FullMethodName, in, opts)
}

func (c *messagingServiceClient) MarkNotificationRead(ctx context.Context, in *MarkNotificationReadRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, MessagingService_MarkNotificationRead_FullMethodName, in, opts)
}

func (c *messagingServiceClient) MarkAllNotificationsRead(ctx context.Context, in *MarkAllNotificationsReadRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, MessagingService_MarkAllNotificationsRead_FullMethodName, in, opts)
}

func (c *messagingServiceClient) SubscribeNotifications(ctx context.Context, in *SubscribeNotificationsRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Event], error) {
	return openStream[SubscribeNotificationsRequest, Event](ctx, c.cc, &MessagingService_ServiceDesc.Streams[1], MessagingService_SubscribeNotifications_FullMethodName, in, opts)
}
