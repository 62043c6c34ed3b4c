// Package client is the typed Go client of a session daemon.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/matheus3301/chatsync/internal/call"
	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/relation"
	"github.com/matheus3301/chatsync/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client wraps the gRPC connection to the daemon.
type Client struct {
	conn *grpc.ClientConn
	rpc  *rpc.Conn
}

// New dials the daemon's Unix domain socket.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn, rpc: rpc.NewConn(conn)}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// SessionStatus is the daemon's self-report.
type SessionStatus struct {
	Session           string
	Status            string
	StatusMessage     string
	Since             time.Time
	Uptime            time.Duration
	StorePath         string
	ConversationCount int
	UnreadCount       int64
}

func (c *Client) Status(ctx context.Context) (SessionStatus, error) {
	resp, err := c.rpc.Call(ctx, rpc.SessionService, "GetSessionStatus", nil)
	if err != nil {
		return SessionStatus{}, err
	}
	return SessionStatus{
		Session:           rpc.Str(resp, "session"),
		Status:            rpc.Str(resp, "status"),
		StatusMessage:     rpc.Str(resp, "status_message"),
		Since:             time.UnixMilli(rpc.Int(resp, "since_ms")),
		Uptime:            time.Duration(rpc.Int(resp, "uptime_ms")) * time.Millisecond,
		StorePath:         rpc.Str(resp, "store_path"),
		ConversationCount: int(rpc.Int(resp, "conversation_count")),
		UnreadCount:       rpc.Int(resp, "unread_count"),
	}, nil
}

// RegisterProfile publishes the session user's profile. The id is ignored.
func (c *Client) RegisterProfile(ctx context.Context, p model.UserProfile) (model.UserProfile, error) {
	resp, err := c.rpc.Call(ctx, rpc.ProfileService, "RegisterProfile", rpc.ProfileFields(p))
	if err != nil {
		return model.UserProfile{}, err
	}
	return rpc.DecodeProfile(resp), nil
}

// GetProfile returns userID's profile; empty means the session user.
func (c *Client) GetProfile(ctx context.Context, userID string) (model.UserProfile, error) {
	resp, err := c.rpc.Call(ctx, rpc.ProfileService, "GetProfile", map[string]any{"user_id": userID})
	if err != nil {
		return model.UserProfile{}, err
	}
	return rpc.DecodeProfile(resp), nil
}

func (c *Client) ListConversations(ctx context.Context) ([]model.ConversationSummary, error) {
	resp, err := c.rpc.Call(ctx, rpc.ConversationService, "ListConversations", nil)
	if err != nil {
		return nil, err
	}
	return rpc.DecodeSummaryList(resp), nil
}

func (c *Client) MarkRead(ctx context.Context, peerID string) error {
	_, err := c.rpc.Call(ctx, rpc.ConversationService, "MarkRead", map[string]any{"peer_id": peerID})
	return err
}

// WatchConversations calls fn with every summary snapshot until ctx is done
// or the stream fails.
func (c *Client) WatchConversations(ctx context.Context, fn func([]model.ConversationSummary)) error {
	return c.watch(ctx, rpc.ConversationService, "WatchConversations", nil, func(s *structpb.Struct) {
		fn(rpc.DecodeSummaryList(s))
	})
}

// SendMessage sends a message of kind to peerID.
func (c *Client) SendMessage(ctx context.Context, peerID string, kind model.MessageKind, body, attachmentName string) (model.Message, error) {
	resp, err := c.rpc.Call(ctx, rpc.MessageService, "SendMessage", map[string]any{
		"peer_id":         peerID,
		"kind":            string(kind),
		"body":            body,
		"attachment_name": attachmentName,
	})
	if err != nil {
		return model.Message{}, err
	}
	return rpc.DecodeMessage(resp), nil
}

// WatchMessages calls fn with the full ordered message list of the
// conversation with peerID and the count held before each update.
func (c *Client) WatchMessages(ctx context.Context, peerID string, fn func(msgs []model.Message, previous int)) error {
	return c.watch(ctx, rpc.MessageService, "WatchMessages", map[string]any{"peer_id": peerID}, func(s *structpb.Struct) {
		fn(rpc.DecodeMessagesUpdate(s))
	})
}

func (c *Client) InitiateCall(ctx context.Context, peerID string, video bool) (model.CallSession, error) {
	return c.callOp(ctx, "InitiateCall", map[string]any{"peer_id": peerID, "video": video})
}

func (c *Client) AcceptCall(ctx context.Context, callID string) (model.CallSession, error) {
	return c.callOp(ctx, "AcceptCall", map[string]any{"call_id": callID})
}

func (c *Client) RejectCall(ctx context.Context, callID string) (model.CallSession, error) {
	return c.callOp(ctx, "RejectCall", map[string]any{"call_id": callID})
}

func (c *Client) EndCall(ctx context.Context, callID string) (model.CallSession, error) {
	return c.callOp(ctx, "EndCall", map[string]any{"call_id": callID})
}

func (c *Client) callOp(ctx context.Context, method string, req map[string]any) (model.CallSession, error) {
	resp, err := c.rpc.Call(ctx, rpc.CallService, method, req)
	if err != nil {
		return model.CallSession{}, err
	}
	return rpc.DecodeCall(resp), nil
}

// WatchCall calls fn for each status change of callID. It returns nil once the
// call terminates.
func (c *Client) WatchCall(ctx context.Context, callID string, fn func(call.StatusChanged)) error {
	return c.watch(ctx, rpc.CallService, "WatchCall", map[string]any{"call_id": callID}, func(s *structpb.Struct) {
		if e, ok := rpc.DecodeEvent(s).(call.StatusChanged); ok {
			fn(e)
		}
	})
}

// WatchIncomingCalls calls fn for each inbound call event.
func (c *Client) WatchIncomingCalls(ctx context.Context, fn func(call.Event)) error {
	return c.watch(ctx, rpc.CallService, "WatchIncomingCalls", nil, func(s *structpb.Struct) {
		if e := rpc.DecodeEvent(s); e != nil {
			fn(e)
		}
	})
}

func (c *Client) CanInteract(ctx context.Context, peerID string) (relation.Verdict, error) {
	return c.relationOp(ctx, "CanInteract", map[string]any{"peer_id": peerID})
}

func (c *Client) SetBlocked(ctx context.Context, peerID string, blocked bool) (relation.Verdict, error) {
	return c.relationOp(ctx, "SetBlocked", map[string]any{"peer_id": peerID, "blocked": blocked})
}

func (c *Client) SetMuted(ctx context.Context, peerID string, muted bool) (relation.Verdict, error) {
	return c.relationOp(ctx, "SetMuted", map[string]any{"peer_id": peerID, "muted": muted})
}

func (c *Client) SetNickname(ctx context.Context, peerID, nickname string) (relation.Verdict, error) {
	return c.relationOp(ctx, "SetNickname", map[string]any{"peer_id": peerID, "nickname": nickname})
}

func (c *Client) relationOp(ctx context.Context, method string, req map[string]any) (relation.Verdict, error) {
	resp, err := c.rpc.Call(ctx, rpc.RelationshipService, method, req)
	if err != nil {
		return relation.Verdict{}, err
	}
	return rpc.DecodeVerdict(resp), nil
}

// watch receives until the server ends the stream, ctx is done or an error
// occurs. The first two return nil.
func (c *Client) watch(ctx context.Context, service, method string, req map[string]any, fn func(*structpb.Struct)) error {
	stream, err := c.rpc.Stream(ctx, service, method, req)
	if err != nil {
		return err
	}
	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) || grpcstatus.Code(err) == codes.Canceled || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
		fn(msg)
	}
}

// Message returns the user-facing part of an RPC error.
func Message(err error) string {
	if s, ok := grpcstatus.FromError(err); ok {
		if s.Code() == codes.Unavailable {
			return "daemon is not running"
		}
		return s.Message()
	}
	return err.Error()
}

// IsBlocked reports whether err is a relationship veto.
func IsBlocked(err error) bool {
	return grpcstatus.Code(err) == codes.PermissionDenied
}
