package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

type (
	// SessionServer reports daemon state.
	SessionServer interface {
		GetSessionStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	}

	// ProfileServer manages public profiles.
	ProfileServer interface {
		RegisterProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
		GetProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	}

	// ConversationServer exposes the conversation summaries.
	ConversationServer interface {
		ListConversations(context.Context, *structpb.Struct) (*structpb.Struct, error)
		MarkRead(context.Context, *structpb.Struct) (*structpb.Struct, error)
		WatchConversations(*structpb.Struct, Sender) error
	}

	// MessageServer sends and streams chat messages.
	MessageServer interface {
		SendMessage(context.Context, *structpb.Struct) (*structpb.Struct, error)
		WatchMessages(*structpb.Struct, Sender) error
	}

	// CallServer drives call signalling.
	CallServer interface {
		InitiateCall(context.Context, *structpb.Struct) (*structpb.Struct, error)
		AcceptCall(context.Context, *structpb.Struct) (*structpb.Struct, error)
		RejectCall(context.Context, *structpb.Struct) (*structpb.Struct, error)
		EndCall(context.Context, *structpb.Struct) (*structpb.Struct, error)
		WatchCall(*structpb.Struct, Sender) error
		WatchIncomingCalls(*structpb.Struct, Sender) error
	}

	// RelationshipServer reads and writes block, mute and nickname state.
	RelationshipServer interface {
		CanInteract(context.Context, *structpb.Struct) (*structpb.Struct, error)
		SetBlocked(context.Context, *structpb.Struct) (*structpb.Struct, error)
		SetMuted(context.Context, *structpb.Struct) (*structpb.Struct, error)
		SetNickname(context.Context, *structpb.Struct) (*structpb.Struct, error)
	}
)

// RegisterSessionServer registers srv on s.
func RegisterSessionServer(s grpc.ServiceRegistrar, srv SessionServer) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: SessionService,
		HandlerType: (*SessionServer)(nil),
		Methods: []grpc.MethodDesc{
			unary(SessionService, "GetSessionStatus", func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.(SessionServer).GetSessionStatus(ctx, in)
			}),
		},
		Metadata: metadata,
	}, srv)
}

// RegisterProfileServer registers srv on s.
func RegisterProfileServer(s grpc.ServiceRegistrar, srv ProfileServer) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: ProfileService,
		HandlerType: (*ProfileServer)(nil),
		Methods: []grpc.MethodDesc{
			unary(ProfileService, "RegisterProfile", func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.(ProfileServer).RegisterProfile(ctx, in)
			}),
			unary(ProfileService, "GetProfile", func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.(ProfileServer).GetProfile(ctx, in)
			}),
		},
		Metadata: metadata,
	}, srv)
}

// RegisterConversationServer registers srv on s.
func RegisterConversationServer(s grpc.ServiceRegistrar, srv ConversationServer) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: ConversationService,
		HandlerType: (*ConversationServer)(nil),
		Methods: []grpc.MethodDesc{
			unary(ConversationService, "ListConversations", func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.(ConversationServer).ListConversations(ctx, in)
			}),
			unary(ConversationService, "MarkRead", func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.(ConversationServer).MarkRead(ctx, in)
			}),
		},
		Streams: []grpc.StreamDesc{
			serverStreaming("WatchConversations", func(srv any, in *structpb.Struct, out Sender) error {
				return srv.(ConversationServer).WatchConversations(in, out)
			}),
		},
		Metadata: metadata,
	}, srv)
}

// RegisterMessageServer registers srv on s.
func RegisterMessageServer(s grpc.ServiceRegistrar, srv MessageServer) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: MessageService,
		HandlerType: (*MessageServer)(nil),
		Methods: []grpc.MethodDesc{
			unary(MessageService, "SendMessage", func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.(MessageServer).SendMessage(ctx, in)
			}),
		},
		Streams: []grpc.StreamDesc{
			serverStreaming("WatchMessages", func(srv any, in *structpb.Struct, out Sender) error {
				return srv.(MessageServer).WatchMessages(in, out)
			}),
		},
		Metadata: metadata,
	}, srv)
}

// RegisterCallServer registers srv on s.
func RegisterCallServer(s grpc.ServiceRegistrar, srv CallServer) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: CallService,
		HandlerType: (*CallServer)(nil),
		Methods: []grpc.MethodDesc{
			unary(CallService, "InitiateCall", func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.(CallServer).InitiateCall(ctx, in)
			}),
			unary(CallService, "AcceptCall", func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.(CallServer).AcceptCall(ctx, in)
			}),
			unary(CallService, "RejectCall", func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.(CallServer).RejectCall(ctx, in)
			}),
			unary(CallService, "EndCall", func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.(CallServer).EndCall(ctx, in)
			}),
		},
		Streams: []grpc.StreamDesc{
			serverStreaming("WatchCall", func(srv any, in *structpb.Struct, out Sender) error {
				return srv.(CallServer).WatchCall(in, out)
			}),
			serverStreaming("WatchIncomingCalls", func(srv any, in *structpb.Struct, out Sender) error {
				return srv.(CallServer).WatchIncomingCalls(in, out)
			}),
		},
		Metadata: metadata,
	}, srv)
}

// RegisterRelationshipServer registers srv on s.
func RegisterRelationshipServer(s grpc.ServiceRegistrar, srv RelationshipServer) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: RelationshipService,
		HandlerType: (*RelationshipServer)(nil),
		Methods: []grpc.MethodDesc{
			unary(RelationshipService, "CanInteract", func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.(RelationshipServer).CanInteract(ctx, in)
			}),
			unary(RelationshipService, "SetBlocked", func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.(RelationshipServer).SetBlocked(ctx, in)
			}),
			unary(RelationshipService, "SetMuted", func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.(RelationshipServer).SetMuted(ctx, in)
			}),
			unary(RelationshipService, "SetNickname", func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.(RelationshipServer).SetNickname(ctx, in)
			}),
		},
		Metadata: metadata,
	}, srv)
}
