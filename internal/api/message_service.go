package api

import (
	"context"

	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/outbox"
	"github.com/matheus3301/chatsync/internal/rpc"
	intsync "github.com/matheus3301/chatsync/internal/sync"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// MessageService implements chatsync.v1.MessageService.
type MessageService struct {
	self   string
	sender *outbox.Sender
	engine *intsync.Engine
}

// NewMessageService creates a new message service for the session user.
func NewMessageService(self string, sender *outbox.Sender, engine *intsync.Engine) *MessageService {
	return &MessageService{self: self, sender: sender, engine: engine}
}

func (s *MessageService) SendMessage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	peer, err := required(req, "peer_id")
	if err != nil {
		return nil, err
	}
	kind, err := model.ParseMessageKind(rpc.Str(req, "kind"))
	if err != nil {
		return nil, grpcstatus.Error(codes.InvalidArgument, err.Error())
	}

	msg, err := s.sender.Send(ctx, outbox.Request{
		SenderID:       s.self,
		ReceiverID:     peer,
		Body:           rpc.Str(req, "body"),
		Kind:           kind,
		AttachmentName: rpc.Str(req, "attachment_name"),
	})
	if err != nil {
		return nil, toStatus("send message", err)
	}
	return rpc.Encode(rpc.MessageFields(msg))
}

// WatchMessages streams the merged conversation with peer_id, full list per update.
func (s *MessageService) WatchMessages(req *structpb.Struct, stream rpc.Sender) error {
	peer, err := required(req, "peer_id")
	if err != nil {
		return err
	}
	conv, err := s.engine.Open(stream.Context(), s.self, peer)
	if err != nil {
		return toStatus("watch messages", err)
	}
	defer conv.Close()

	for upd := range conv.Updates() {
		msg, err := rpc.Encode(rpc.MessagesUpdate(upd.Messages, upd.Previous))
		if err != nil {
			return err
		}
		if err := stream.Send(msg); err != nil {
			return err
		}
	}
	return nil
}
