// Package outbox implements the outgoing message path: relationship check,
// chat write and conversation summary update.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/relation"
	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/zap"
)

// SentKind is published on the bus after a message is written.
const SentKind = "message.sent"

// ErrBlocked is returned when either side has blocked the other.
var ErrBlocked = relation.ErrBlocked

// Guard decides whether two users may interact.
type Guard interface {
	CanInteract(ctx context.Context, selfID, otherID string) (relation.Verdict, error)
}

// Recorder updates the conversation summary for a sent message.
type Recorder interface {
	RecordMessage(ctx context.Context, msg model.Message) error
}

// Request describes one outgoing message.
type Request struct {
	SenderID       string
	ReceiverID     string
	Body           string
	Kind           model.MessageKind
	AttachmentName string
}

// Sender writes outgoing messages to the shared store.
type Sender struct {
	db       *store.DB
	guard    Guard
	recorder Recorder
	bus      *bus.Bus
	logger   *zap.Logger
	now      func() time.Time
}

// NewSender creates a new outbox sender. b may be nil.
func NewSender(db *store.DB, guard Guard, recorder Recorder, b *bus.Bus, logger *zap.Logger) *Sender {
	return &Sender{
		db:       db,
		guard:    guard,
		recorder: recorder,
		bus:      b,
		logger:   logger,
		now:      time.Now,
	}
}

// Send checks the relationship, appends the message to chat and updates the
// pair's summary. A summary failure is logged; the message itself stays sent.
func (s *Sender) Send(ctx context.Context, req Request) (model.Message, error) {
	if req.SenderID == "" || req.ReceiverID == "" {
		return model.Message{}, errors.New("send: sender and receiver are required")
	}
	if req.SenderID == req.ReceiverID {
		return model.Message{}, errors.New("send: cannot message yourself")
	}
	kind := req.Kind
	if kind == "" {
		kind = model.KindText
	}
	if kind == model.KindText && strings.TrimSpace(req.Body) == "" {
		return model.Message{}, errors.New("send: empty message")
	}

	verdict, err := s.guard.CanInteract(ctx, req.SenderID, req.ReceiverID)
	if err != nil {
		return model.Message{}, fmt.Errorf("send: %w", err)
	}
	if err := verdict.Err(); err != nil {
		return model.Message{}, err
	}

	msg := model.Message{
		SenderID:       req.SenderID,
		ReceiverID:     req.ReceiverID,
		Body:           req.Body,
		Kind:           kind,
		AttachmentName: req.AttachmentName,
		Timestamp:      s.now().UnixMilli(),
	}
	id, err := s.db.Add(ctx, model.Chat, msg.Fields())
	if err != nil {
		return model.Message{}, fmt.Errorf("send: %w", err)
	}
	s.logger.Info("message sent", zap.String("id", id), zap.String("to", msg.ReceiverID), zap.String("kind", string(kind)))

	if err := s.recorder.RecordMessage(ctx, msg); err != nil {
		s.logger.Error("failed to update conversation summary", zap.String("id", id), zap.Error(err))
	}

	if s.bus != nil {
		s.bus.Publish(bus.Event{
			Kind:      SentKind,
			Timestamp: time.Now(),
			Payload:   map[string]string{"id": id, "receiver_id": msg.ReceiverID},
		})
	}
	return msg, nil
}
