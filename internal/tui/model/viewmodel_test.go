package model

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/chatsync/internal/call"
	"github.com/matheus3301/chatsync/internal/client"
	dm "github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/relation"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

type fakeBackend struct {
	mu       sync.Mutex
	marked   []string
	sent     []string
	sendErr  error
	msgs     chan []dm.Message
	statuses chan call.StatusChanged
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		msgs:     make(chan []dm.Message, 4),
		statuses: make(chan call.StatusChanged, 4),
	}
}

func (f *fakeBackend) Status(context.Context) (client.SessionStatus, error) {
	return client.SessionStatus{Session: "alice", Status: "READY"}, nil
}

func (f *fakeBackend) GetProfile(_ context.Context, id string) (dm.UserProfile, error) {
	return dm.UserProfile{ID: id, Name: "Bob"}, nil
}

func (f *fakeBackend) ListConversations(context.Context) ([]dm.ConversationSummary, error) {
	return []dm.ConversationSummary{{PeerID: "bob", UnreadCount: 2}}, nil
}

func (f *fakeBackend) MarkRead(_ context.Context, peer string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, peer)
	return nil
}

func (f *fakeBackend) WatchConversations(ctx context.Context, fn func([]dm.ConversationSummary)) error {
	<-ctx.Done()
	return nil
}

func (f *fakeBackend) SendMessage(_ context.Context, peer string, _ dm.MessageKind, body, _ string) (dm.Message, error) {
	if f.sendErr != nil {
		return dm.Message{}, f.sendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, peer+":"+body)
	return dm.Message{ReceiverID: peer, Body: body}, nil
}

func (f *fakeBackend) WatchMessages(ctx context.Context, _ string, fn func([]dm.Message, int)) error {
	for {
		select {
		case m := <-f.msgs:
			fn(m, 0)
		case <-ctx.Done():
			return nil
		}
	}
}

func (f *fakeBackend) InitiateCall(_ context.Context, peer string, video bool) (dm.CallSession, error) {
	return dm.CallSession{CallID: "c1", CallerID: "alice", ReceiverID: peer, IsVideo: video, Status: dm.CallPending}, nil
}

func (f *fakeBackend) AcceptCall(_ context.Context, id string) (dm.CallSession, error) {
	return dm.CallSession{CallID: id, CallerID: "bob", ReceiverID: "alice", Status: dm.CallAccepted}, nil
}

func (f *fakeBackend) RejectCall(_ context.Context, id string) (dm.CallSession, error) {
	return dm.CallSession{CallID: id, Status: dm.CallRejected}, nil
}

func (f *fakeBackend) EndCall(_ context.Context, id string) (dm.CallSession, error) {
	return dm.CallSession{CallID: id, Status: dm.CallEnded}, nil
}

func (f *fakeBackend) WatchCall(ctx context.Context, _ string, fn func(call.StatusChanged)) error {
	for {
		select {
		case e := <-f.statuses:
			fn(e)
			if e.Status.Terminal() {
				return nil
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (f *fakeBackend) CanInteract(context.Context, string) (relation.Verdict, error) {
	return relation.Verdict{}, nil
}

func (f *fakeBackend) SetBlocked(_ context.Context, _ string, blocked bool) (relation.Verdict, error) {
	return relation.Verdict{BlockedByMe: blocked}, nil
}

func (f *fakeBackend) SetMuted(context.Context, string, bool) (relation.Verdict, error) {
	return relation.Verdict{}, nil
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func TestOpenChatFollowsMessagesAndMarksRead(t *testing.T) {
	fb := newFakeBackend()
	vm := NewViewModel(fb, "alice")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	vm.OpenChat(ctx, "bob")
	if vm.ActivePeer() != "bob" {
		t.Fatalf("ActivePeer() = %q", vm.ActivePeer())
	}
	fb.mu.Lock()
	marked := append([]string(nil), fb.marked...)
	fb.mu.Unlock()
	if len(marked) != 1 || marked[0] != "bob" {
		t.Errorf("marked = %v", marked)
	}

	fb.msgs <- []dm.Message{{SenderID: "bob", Body: "hi"}}
	eventually(t, "messages", func() bool { return len(vm.GetMessages()) == 1 })

	vm.CloseChat()
	if vm.ActivePeer() != "" || vm.GetMessages() != nil {
		t.Error("CloseChat() should clear the conversation")
	}
}

func TestSendRequiresOpenChat(t *testing.T) {
	vm := NewViewModel(newFakeBackend(), "alice")
	if err := vm.Send(context.Background(), "hi"); !errors.Is(err, ErrNoChat) {
		t.Errorf("Send() error = %v, want ErrNoChat", err)
	}
}

func TestSendBlockedShowsReason(t *testing.T) {
	fb := newFakeBackend()
	fb.sendErr = grpcstatus.Error(codes.PermissionDenied, "You are blocked by this user")
	vm := NewViewModel(fb, "alice")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	vm.OpenChat(ctx, "bob")

	if err := vm.Send(ctx, "hi"); err == nil {
		t.Fatal("Send() should fail")
	}
	msg := vm.Flash.Get()
	if msg == nil || msg.Level != FlashWarn || msg.Text != "You are blocked by this user" {
		t.Errorf("flash = %+v", msg)
	}
}

func TestCallLifecycle(t *testing.T) {
	fb := newFakeBackend()
	vm := NewViewModel(fb, "alice")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := vm.StartCall(ctx, true); !errors.Is(err, ErrNoChat) {
		t.Fatalf("StartCall() without chat error = %v", err)
	}
	vm.OpenChat(ctx, "bob")
	if err := vm.StartCall(ctx, true); err != nil {
		t.Fatal(err)
	}
	c := vm.Call()
	if c == nil || c.Session.Status != dm.CallPending || c.Controls.Audio != call.Speaker {
		t.Fatalf("call = %+v", c)
	}
	if err := vm.StartCall(ctx, false); err == nil {
		t.Error("second StartCall() should fail")
	}

	if err := vm.UpdateControls(func(c *call.Controls) { c.Muted = true }); err != nil {
		t.Fatal(err)
	}
	if !vm.Call().Controls.Muted {
		t.Error("controls not updated")
	}

	fb.statuses <- call.StatusChanged{ID: "c1", Status: dm.CallAccepted}
	eventually(t, "accepted", func() bool {
		c := vm.Call()
		return c != nil && c.Session.Status == dm.CallAccepted
	})

	fb.statuses <- call.StatusChanged{ID: "c1", Status: dm.CallEnded}
	eventually(t, "call cleared", func() bool { return vm.Call() == nil })

	if err := vm.HangUp(ctx); !errors.Is(err, ErrNoCall) {
		t.Errorf("HangUp() error = %v, want ErrNoCall", err)
	}
}

func TestFlashExpires(t *testing.T) {
	f := NewFlash()
	now := time.Unix(1000, 0)
	f.now = func() time.Time { return now }

	if f.Get() != nil {
		t.Error("empty flash should be nil")
	}
	f.Info("hello")
	if m := f.Get(); m == nil || m.Text != "hello" || m.Level != FlashInfo {
		t.Errorf("Get() = %+v", m)
	}
	now = now.Add(6 * time.Second)
	if f.Get() != nil {
		t.Error("flash should expire")
	}
	f.Err(nil)
	if f.Get() != nil {
		t.Error("Err(nil) should not set a message")
	}
}
