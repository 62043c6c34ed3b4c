// Package rpc defines the chatsync.v1 gRPC services. Every request and
// response is a google.protobuf.Struct; the codecs in this package map them
// to domain types on both sides of the socket. The method set and field names
// are declared in proto/chatsync/v1/chatsync.proto.
package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Full service names.
const (
	SessionService      = "chatsync.v1.SessionService"
	ProfileService      = "chatsync.v1.ProfileService"
	ConversationService = "chatsync.v1.ConversationService"
	MessageService      = "chatsync.v1.MessageService"
	CallService         = "chatsync.v1.CallService"
	RelationshipService = "chatsync.v1.RelationshipService"
)

const metadata = "chatsync/v1/chatsync.proto"

// Sender is the server side of a server-streaming call.
type Sender interface {
	Send(*structpb.Struct) error
	Context() context.Context
}

type serverStream struct {
	grpc.ServerStream
}

func (s *serverStream) Send(m *structpb.Struct) error {
	return s.SendMsg(m)
}

type unaryFunc func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

type streamFunc func(srv any, in *structpb.Struct, out Sender) error

func unary(service, method string, fn unaryFunc) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(srv, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return fn(srv, ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func serverStreaming(method string, fn streamFunc) grpc.StreamDesc {
	return grpc.StreamDesc{
		StreamName:    method,
		ServerStreams: true,
		Handler: func(srv any, stream grpc.ServerStream) error {
			in := new(structpb.Struct)
			if err := stream.RecvMsg(in); err != nil {
				return err
			}
			return fn(srv, in, &serverStream{stream})
		},
	}
}

// Conn issues chatsync.v1 calls over a client connection.
type Conn struct {
	cc grpc.ClientConnInterface
}

// NewConn wraps cc.
func NewConn(cc grpc.ClientConnInterface) *Conn {
	return &Conn{cc: cc}
}

// Call performs a unary call with req as the request fields.
func (c *Conn) Call(ctx context.Context, service, method string, req map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+service+"/"+method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ClientStream receives the responses of a server-streaming call.
type ClientStream struct {
	cs grpc.ClientStream
}

// Recv blocks for the next message. It returns io.EOF when the server ends
// the stream.
func (s *ClientStream) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := s.cs.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Stream opens a server-streaming call. Cancel ctx to end it early.
func (c *Conn) Stream(ctx context.Context, service, method string, req map[string]any) (*ClientStream, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}
	desc := &grpc.StreamDesc{StreamName: method, ServerStreams: true}
	cs, err := c.cc.NewStream(ctx, desc, "/"+service+"/"+method)
	if err != nil {
		return nil, err
	}
	if err := cs.SendMsg(in); err != nil {
		return nil, err
	}
	if err := cs.CloseSend(); err != nil {
		return nil, err
	}
	return &ClientStream{cs: cs}, nil
}
