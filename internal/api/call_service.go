package api

import (
	"context"

	"github.com/matheus3301/chatsync/internal/call"
	"github.com/matheus3301/chatsync/internal/rpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// CallService implements chatsync.v1.CallService.
type CallService struct {
	self  string
	calls *call.Service
}

// NewCallService creates a call service for the session user.
func NewCallService(self string, calls *call.Service) *CallService {
	return &CallService{self: self, calls: calls}
}

func (s *CallService) InitiateCall(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	peer, err := required(req, "peer_id")
	if err != nil {
		return nil, err
	}
	sess, err := s.calls.Place(ctx, s.self, peer, rpc.Bool(req, "video"))
	if err != nil {
		return nil, toStatus("initiate call", err)
	}
	return rpc.Encode(rpc.CallFields(sess))
}

func (s *CallService) AcceptCall(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.apply(ctx, req, true, s.calls.Accept)
}

func (s *CallService) RejectCall(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.apply(ctx, req, true, s.calls.Reject)
}

func (s *CallService) EndCall(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.apply(ctx, req, false, s.calls.End)
}

// apply runs a transition after checking that the session user takes part in
// the call, and is its receiver when receiverOnly is set.
func (s *CallService) apply(ctx context.Context, req *structpb.Struct, receiverOnly bool, fn func(context.Context, string) error) (*structpb.Struct, error) {
	id, err := required(req, "call_id")
	if err != nil {
		return nil, err
	}
	sess, err := s.calls.Get(ctx, id)
	if err != nil {
		return nil, toStatus("load call", err)
	}
	switch {
	case receiverOnly && sess.ReceiverID != s.self:
		return nil, grpcstatus.Error(codes.PermissionDenied, "only the receiver can answer a call")
	case sess.ReceiverID != s.self && sess.CallerID != s.self:
		return nil, grpcstatus.Error(codes.PermissionDenied, "not a participant of this call")
	}
	if err := fn(ctx, id); err != nil {
		return nil, toStatus("update call", err)
	}
	sess, err = s.calls.Get(ctx, id)
	if err != nil {
		return nil, toStatus("load call", err)
	}
	return rpc.Encode(rpc.CallFields(sess))
}

// WatchCall streams status changes of call_id until it terminates.
func (s *CallService) WatchCall(req *structpb.Struct, stream rpc.Sender) error {
	id, err := required(req, "call_id")
	if err != nil {
		return err
	}
	if _, err := s.calls.Get(stream.Context(), id); err != nil {
		return toStatus("watch call", err)
	}
	out := s.calls.Follow(stream.Context(), id)
	defer out.Close()

	for e := range out.C {
		if err := sendEvent(stream, e); err != nil {
			return err
		}
	}
	return nil
}

// WatchIncomingCalls streams calls addressed to the session user.
func (s *CallService) WatchIncomingCalls(_ *structpb.Struct, stream rpc.Sender) error {
	in := s.calls.ListenInbound(stream.Context(), s.self)
	defer in.Close()

	for e := range in.C {
		if err := sendEvent(stream, e); err != nil {
			return err
		}
	}
	return nil
}

func sendEvent(stream rpc.Sender, e call.Event) error {
	msg, err := rpc.Encode(rpc.EventFields(e))
	if err != nil {
		return err
	}
	return stream.Send(msg)
}

