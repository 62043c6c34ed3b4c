// Package call implements call-session signalling over the shared store.
package call

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-collections/collections/set"
	"github.com/google/uuid"
	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/profile"
	"github.com/matheus3301/chatsync/internal/relation"
	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/zap"
)

var (
	// ErrAlreadyPending is returned by Initiate when the caller already has a
	// pending call to the same receiver.
	ErrAlreadyPending = errors.New("call already pending")
	// ErrInvalidTransition is returned when the current status does not allow
	// the requested one.
	ErrInvalidTransition = errors.New("invalid call transition")
	// ErrNotFound is returned for unknown call ids.
	ErrNotFound = errors.New("call not found")
)

const streamBuffer = 16

// Guard decides whether two users may interact.
type Guard interface {
	CanInteract(ctx context.Context, selfID, otherID string) (relation.Verdict, error)
}

// Service creates call sessions and drives their status.
type Service struct {
	db       *store.DB
	profiles *profile.Directory
	guard    Guard
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a call signalling service.
func NewService(db *store.DB, profiles *profile.Directory, guard Guard, logger *zap.Logger) *Service {
	return &Service{db: db, profiles: profiles, guard: guard, logger: logger, now: time.Now}
}

// Outbound follows one call placed by the local user.
type Outbound struct {
	CallID string
	// C receives StatusChanged events and is closed after a terminal status
	// or Close.
	C      <-chan StatusChanged
	cancel context.CancelFunc
}

// Close stops following the call. It does not change the call's status.
func (o *Outbound) Close() { o.cancel() }

// Inbound delivers calls addressed to the local user.
type Inbound struct {
	C      <-chan Event
	cancel context.CancelFunc
}

// Close stops listening.
func (i *Inbound) Close() { i.cancel() }

// Initiate places a pending call from caller to receiver and follows it.
func (s *Service) Initiate(ctx context.Context, callerID, receiverID string, isVideo bool) (*Outbound, error) {
	sess, err := s.Place(ctx, callerID, receiverID, isVideo)
	if err != nil {
		return nil, err
	}
	return s.Follow(ctx, sess.CallID), nil
}

// Place creates a pending call session after the relationship and pending
// checks. The pending check and the create are separate steps; two concurrent
// calls for the same pair may both succeed.
func (s *Service) Place(ctx context.Context, callerID, receiverID string, isVideo bool) (model.CallSession, error) {
	if callerID == "" || receiverID == "" || callerID == receiverID {
		return model.CallSession{}, fmt.Errorf("initiate call: invalid pair %q -> %q", callerID, receiverID)
	}

	verdict, err := s.guard.CanInteract(ctx, callerID, receiverID)
	if err != nil {
		return model.CallSession{}, fmt.Errorf("initiate call: %w", err)
	}
	if err := verdict.Err(); err != nil {
		return model.CallSession{}, err
	}

	pending, err := s.db.First(ctx, store.Collection(model.Calls).
		Eq("callerId", callerID).
		Eq("receiverId", receiverID).
		Eq("status", string(model.CallPending)))
	if err != nil {
		return model.CallSession{}, fmt.Errorf("initiate call: %w", err)
	}
	if pending != nil {
		return model.CallSession{}, fmt.Errorf("%w: %s", ErrAlreadyPending, pending.ID)
	}

	sess := model.CallSession{
		CallID:     uuid.NewString(),
		CallerID:   callerID,
		ReceiverID: receiverID,
		IsVideo:    isVideo,
		Status:     model.CallPending,
		CreatedAt:  s.now().UnixMilli(),
	}
	if err := s.db.Set(ctx, model.Calls, sess.CallID, sess.Fields()); err != nil {
		return model.CallSession{}, fmt.Errorf("initiate call: %w", err)
	}
	s.logger.Info("call initiated",
		zap.String("call_id", sess.CallID), zap.String("receiver", receiverID), zap.Bool("video", isVideo))
	return sess, nil
}

// Follow streams the status changes of an existing call.
func (s *Service) Follow(ctx context.Context, callID string) *Outbound {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan StatusChanged, streamBuffer)
	stream := s.db.Watch(ctx, store.Collection(model.Calls).Doc(callID))
	go s.follow(ctx, callID, stream, out)
	return &Outbound{CallID: callID, C: out, cancel: cancel}
}

func (s *Service) follow(ctx context.Context, callID string, stream *store.Stream, out chan<- StatusChanged) {
	defer close(out)
	defer stream.Close()

	emitted := set.New()
	for batch := range stream.C {
		for _, ch := range batch.Changes {
			st := model.CallFromDoc(ch.Doc).Status
			if ch.Kind == store.Removed {
				st = model.CallEnded
			}
			if st == model.CallPending || emitted.Has(st) {
				continue
			}
			emitted.Insert(st)
			select {
			case out <- StatusChanged{ID: callID, Status: st}:
			case <-ctx.Done():
				return
			}
			if st.Terminal() {
				return
			}
		}
	}
	if err := stream.Err(); err != nil {
		s.logger.Error("call stream failed", zap.String("call_id", callID), zap.Error(err))
	}
}

// ListenInbound streams pending calls addressed to selfID. Each call id is
// announced at most once; when an announced call stops being pending its new
// status follows as a StatusChanged.
func (s *Service) ListenInbound(ctx context.Context, selfID string) *Inbound {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan Event, streamBuffer)
	stream := s.db.Watch(ctx, store.Collection(model.Calls).
		Eq("receiverId", selfID).
		Eq("status", string(model.CallPending)))
	go s.listen(ctx, stream, out)
	return &Inbound{C: out, cancel: cancel}
}

func (s *Service) listen(ctx context.Context, stream *store.Stream, out chan<- Event) {
	defer close(out)
	defer stream.Close()

	surfaced := set.New()
	emit := func(e Event) bool {
		select {
		case out <- e:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for batch := range stream.C {
		for _, ch := range batch.Changes {
			sess := model.CallFromDoc(ch.Doc)
			switch ch.Kind {
			case store.Added:
				if surfaced.Has(sess.CallID) {
					continue
				}
				surfaced.Insert(sess.CallID)
				caller := s.profiles.Lookup(ctx, sess.CallerID)
				if !emit(IncomingCall{ID: sess.CallID, Caller: caller, IsVideo: sess.IsVideo}) {
					return
				}
			case store.Removed:
				if !surfaced.Has(sess.CallID) {
					continue
				}
				st := sess.Status
				if st == model.CallPending {
					// Deleted while pending.
					st = model.CallEnded
				}
				if !emit(StatusChanged{ID: sess.CallID, Status: st}) {
					return
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		s.logger.Error("inbound call stream failed", zap.Error(err))
	}
}

// Get returns a call session.
func (s *Service) Get(ctx context.Context, callID string) (model.CallSession, error) {
	doc, err := s.db.Get(ctx, model.Calls, callID)
	if err != nil {
		return model.CallSession{}, fmt.Errorf("get call: %w", err)
	}
	if doc == nil {
		return model.CallSession{}, fmt.Errorf("%w: %s", ErrNotFound, callID)
	}
	return model.CallFromDoc(*doc), nil
}

// Accept moves a pending call to accepted.
func (s *Service) Accept(ctx context.Context, callID string) error {
	return s.transition(ctx, callID, model.CallAccepted)
}

// Reject moves a pending call to rejected.
func (s *Service) Reject(ctx context.Context, callID string) error {
	return s.transition(ctx, callID, model.CallRejected)
}

// End moves a pending or accepted call to ended.
func (s *Service) End(ctx context.Context, callID string) error {
	return s.transition(ctx, callID, model.CallEnded)
}

// transition writes to only if the stored status still equals the one the
// check was made against. A concurrent change re-runs the check.
func (s *Service) transition(ctx context.Context, callID string, to model.CallStatus) error {
	for {
		sess, err := s.Get(ctx, callID)
		if err != nil {
			return err
		}
		if !CanTransition(sess.Status, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sess.Status, to)
		}
		err = s.db.UpdateIf(ctx, model.Calls, callID,
			[]store.Cond{{Field: "status", Op: store.OpEq, Value: string(sess.Status)}},
			map[string]any{"status": string(to)})
		if errors.Is(err, store.ErrConditionFailed) {
			continue
		}
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, callID)
		}
		if err != nil {
			return fmt.Errorf("%s call: %w", to, err)
		}
		s.logger.Info("call status changed",
			zap.String("call_id", callID), zap.String("from", string(sess.Status)), zap.String("to", string(to)))
		return nil
	}
}
