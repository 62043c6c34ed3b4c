package api

import (
	"context"

	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/inbox"
	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/rpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ConversationService implements chatsync.v1.ConversationService.
type ConversationService struct {
	self  string
	inbox *inbox.Aggregator
	bus   *bus.Bus
}

// NewConversationService creates a conversation service over the session's aggregator.
func NewConversationService(self string, agg *inbox.Aggregator, b *bus.Bus) *ConversationService {
	return &ConversationService{self: self, inbox: agg, bus: b}
}

// ListConversations re-reads the summaries from the store.
func (s *ConversationService) ListConversations(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	list, err := s.inbox.RefreshOnce(ctx, s.self)
	if err != nil {
		return nil, toStatus("list conversations", err)
	}
	return rpc.Encode(rpc.SummaryList(list))
}

func (s *ConversationService) MarkRead(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	peer, err := required(req, "peer_id")
	if err != nil {
		return nil, err
	}
	s.inbox.MarkRead(ctx, peer)
	return empty(), nil
}

// WatchConversations sends the current summaries, then every change.
func (s *ConversationService) WatchConversations(_ *structpb.Struct, stream rpc.Sender) error {
	ch, unsub := s.bus.Subscribe(inbox.UpdatedKind, 16)
	defer unsub()

	if err := sendSummaries(stream, s.inbox.Snapshot()); err != nil {
		return err
	}
	for {
		select {
		case evt := <-ch:
			list, ok := evt.Payload.([]model.ConversationSummary)
			if !ok {
				continue
			}
			if err := sendSummaries(stream, list); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}

func sendSummaries(stream rpc.Sender, list []model.ConversationSummary) error {
	msg, err := rpc.Encode(rpc.SummaryList(list))
	if err != nil {
		return err
	}
	return stream.Send(msg)
}
