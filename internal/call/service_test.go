package call

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/profile"
	"github.com/matheus3301/chatsync/internal/relation"
	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/zap"
)

func testService(t *testing.T) (*Service, *relation.Guard) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(path, store.WithBus(bus.New()), store.WithPollInterval(20*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := zap.NewNop()
	dir := profile.NewDirectory(db, logger)
	if err := dir.Register(context.Background(), model.UserProfile{ID: "alice", Name: "Alice", Image: "a.png"}); err != nil {
		t.Fatal(err)
	}
	guard := relation.NewGuard(db, logger)
	return NewService(db, dir, guard, logger), guard
}

func nextEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e, ok := <-ch:
		if !ok {
			t.Fatal("inbound stream closed")
		}
		return e
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for call event")
	}
	return nil
}

func nextStatus(t *testing.T, ch <-chan StatusChanged) StatusChanged {
	t.Helper()
	select {
	case e, ok := <-ch:
		if !ok {
			t.Fatal("outbound stream closed")
		}
		return e
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for status")
	}
	return StatusChanged{}
}

func expectClosed[T any](t *testing.T, ch <-chan T) {
	t.Helper()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("unexpected event, want closed stream")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for stream to close")
	}
}

func TestAcceptScenario(t *testing.T) {
	s, _ := testService(t)
	ctx := context.Background()

	in := s.ListenInbound(ctx, "bob")
	defer in.Close()

	out, err := s.Initiate(ctx, "alice", "bob", true)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()

	e := nextEvent(t, in.C)
	incoming, ok := e.(IncomingCall)
	if !ok {
		t.Fatalf("first event = %T, want IncomingCall", e)
	}
	if incoming.ID != out.CallID || incoming.Caller.Name != "Alice" || !incoming.IsVideo {
		t.Fatalf("incoming = %+v", incoming)
	}

	if err := s.Accept(ctx, out.CallID); err != nil {
		t.Fatal(err)
	}
	if got := nextStatus(t, out.C); got.Status != model.CallAccepted {
		t.Fatalf("caller saw %s, want accepted", got.Status)
	}
	e = nextEvent(t, in.C)
	if sc, ok := e.(StatusChanged); !ok || sc.Status != model.CallAccepted || sc.CallID() != out.CallID {
		t.Fatalf("receiver saw %+v, want accepted", e)
	}

	if err := s.End(ctx, out.CallID); err != nil {
		t.Fatal(err)
	}
	if got := nextStatus(t, out.C); got.Status != model.CallEnded {
		t.Fatalf("caller saw %s, want ended", got.Status)
	}
	expectClosed(t, out.C)

	// The prompt is never re-raised for the same call.
	select {
	case e := <-in.C:
		t.Fatalf("unexpected inbound event %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestAtMostOnePendingPerOrderedPair(t *testing.T) {
	s, _ := testService(t)
	ctx := context.Background()

	first, err := s.Initiate(ctx, "alice", "bob", false)
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()

	if _, err := s.Initiate(ctx, "alice", "bob", true); !errors.Is(err, ErrAlreadyPending) {
		t.Fatalf("second Initiate error = %v, want ErrAlreadyPending", err)
	}

	// The reverse direction is a different ordered pair.
	rev, err := s.Initiate(ctx, "bob", "alice", false)
	if err != nil {
		t.Fatalf("reverse Initiate error = %v", err)
	}
	defer rev.Close()

	if err := s.Reject(ctx, first.CallID); err != nil {
		t.Fatal(err)
	}
	if got := nextStatus(t, first.C); got.Status != model.CallRejected {
		t.Fatalf("status = %s, want rejected", got.Status)
	}
	expectClosed(t, first.C)

	again, err := s.Initiate(ctx, "alice", "bob", false)
	if err != nil {
		t.Fatalf("Initiate after reject error = %v", err)
	}
	again.Close()
}

func TestInvalidTransitions(t *testing.T) {
	s, _ := testService(t)
	ctx := context.Background()

	out, err := s.Initiate(ctx, "alice", "bob", false)
	if err != nil {
		t.Fatal(err)
	}
	out.Close()

	if err := s.Accept(ctx, out.CallID); err != nil {
		t.Fatal(err)
	}
	if err := s.Reject(ctx, out.CallID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Reject(accepted) error = %v, want ErrInvalidTransition", err)
	}
	if err := s.Accept(ctx, out.CallID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Accept(accepted) error = %v, want ErrInvalidTransition", err)
	}
	if err := s.End(ctx, out.CallID); err != nil {
		t.Fatal(err)
	}
	if err := s.End(ctx, out.CallID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("End(ended) error = %v, want ErrInvalidTransition", err)
	}
	if err := s.Accept(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Accept(missing) error = %v, want ErrNotFound", err)
	}

	sess, err := s.Get(ctx, out.CallID)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Status != model.CallEnded {
		t.Errorf("status = %s, want ended", sess.Status)
	}
}

func TestInboundRejectedBeforeAnswer(t *testing.T) {
	s, _ := testService(t)
	ctx := context.Background()

	in := s.ListenInbound(ctx, "bob")
	defer in.Close()

	out, err := s.Initiate(ctx, "carol", "bob", false)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()

	incoming, ok := nextEvent(t, in.C).(IncomingCall)
	if !ok {
		t.Fatal("want IncomingCall")
	}
	// No profile: id-only fallback.
	if incoming.Caller.ID != "carol" || incoming.Caller.DisplayName() != "carol" {
		t.Errorf("caller = %+v", incoming.Caller)
	}

	if err := s.End(ctx, out.CallID); err != nil {
		t.Fatal(err)
	}
	if sc, ok := nextEvent(t, in.C).(StatusChanged); !ok || sc.Status != model.CallEnded {
		t.Fatalf("want ended StatusChanged, got %+v", sc)
	}
}

func TestInitiateBlocked(t *testing.T) {
	s, guard := testService(t)
	ctx := context.Background()

	if err := guard.SetBlocked(ctx, "bob", "alice", true); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Initiate(ctx, "alice", "bob", false); !errors.Is(err, relation.ErrBlocked) {
		t.Fatalf("Initiate error = %v, want ErrBlocked", err)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to model.CallStatus
		want     bool
	}{
		{model.CallPending, model.CallAccepted, true},
		{model.CallPending, model.CallRejected, true},
		{model.CallPending, model.CallEnded, true},
		{model.CallAccepted, model.CallEnded, true},
		{model.CallAccepted, model.CallRejected, false},
		{model.CallAccepted, model.CallPending, false},
		{model.CallRejected, model.CallEnded, false},
		{model.CallEnded, model.CallAccepted, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestControls(t *testing.T) {
	c := NewControls(true)
	if c.Audio != Speaker || c.Camera != CameraOn {
		t.Fatalf("video defaults = %+v", c)
	}
	if !c.BeginSwitch() || c.Camera != CameraSwitching {
		t.Fatal("BeginSwitch from on should switch")
	}
	c.ToggleCamera()
	if c.Camera != CameraSwitching {
		t.Error("ToggleCamera during switch should be a no-op")
	}
	c.EndSwitch()
	c.ToggleCamera()
	if c.Camera != CameraOff || c.BeginSwitch() {
		t.Errorf("camera = %s, want off and no switch", c.Camera)
	}
	c.Audio = c.Audio.Toggle()
	if c.Audio != Earpiece || c.Audio.String() != "earpiece" {
		t.Errorf("audio = %s", c.Audio)
	}

	voice := NewControls(false)
	if voice.Audio != Earpiece || voice.Camera != CameraOff {
		t.Errorf("voice defaults = %+v", voice)
	}
}
