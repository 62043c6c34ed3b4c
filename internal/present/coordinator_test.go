package present

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/chatsync/internal/call"
	"github.com/matheus3301/chatsync/internal/model"
	"go.uber.org/zap"
)

// fakePrompter records prompt calls and tracks how many prompts are visible.
type fakePrompter struct {
	mu        sync.Mutex
	shown     []string
	screens   []string
	dismissed []string
	visible   map[string]bool
	maxVis    int
}

func newFakePrompter() *fakePrompter {
	return &fakePrompter{visible: make(map[string]bool)}
}

func (f *fakePrompter) ShowCallPrompt(screen string, c call.IncomingCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown = append(f.shown, c.ID)
	f.screens = append(f.screens, screen)
	f.visible[c.ID] = true
	f.maxVis = max(f.maxVis, len(f.visible))
}

func (f *fakePrompter) DismissCallPrompt(callID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dismissed = append(f.dismissed, callID)
	delete(f.visible, callID)
}

func incoming(id string) call.IncomingCall {
	return call.IncomingCall{ID: id, Caller: model.UserProfile{ID: "alice"}}
}

func TestPromptShownOnForegroundScreen(t *testing.T) {
	p := newFakePrompter()
	c := NewCoordinator(p, zap.NewNop())

	c.ScreenActivated("conversations")
	c.ScreenActivated("chat")
	c.HandleEvent(incoming("c1"))

	if len(p.shown) != 1 || p.screens[0] != "chat" {
		t.Fatalf("shown = %v on %v", p.shown, p.screens)
	}
	if id, ok := c.ActivePrompt(); !ok || id != "c1" {
		t.Errorf("ActivePrompt = %q, %v", id, ok)
	}

	// Re-delivery of the tracked call is ignored.
	c.HandleEvent(incoming("c1"))
	if len(p.shown) != 1 {
		t.Errorf("duplicate event showed %d prompts", len(p.shown))
	}

	c.HandleEvent(call.StatusChanged{ID: "c1", Status: model.CallAccepted})
	if _, ok := c.ActivePrompt(); ok {
		t.Error("prompt still active after status change")
	}
	if len(p.dismissed) != 1 || p.dismissed[0] != "c1" {
		t.Errorf("dismissed = %v", p.dismissed)
	}
}

func TestNewCallReplacesPrompt(t *testing.T) {
	p := newFakePrompter()
	c := NewCoordinator(p, zap.NewNop())
	c.ScreenActivated("chat")

	c.HandleEvent(incoming("c1"))
	c.HandleEvent(incoming("c2"))

	if p.maxVis != 1 {
		t.Fatalf("max visible prompts = %d", p.maxVis)
	}
	if len(p.dismissed) != 1 || p.dismissed[0] != "c1" {
		t.Errorf("dismissed = %v, want [c1]", p.dismissed)
	}
	// Status of the replaced call no longer matters.
	c.HandleEvent(call.StatusChanged{ID: "c1", Status: model.CallEnded})
	if id, _ := c.ActivePrompt(); id != "c2" {
		t.Errorf("ActivePrompt = %q, want c2", id)
	}
}

func TestNoForegroundDropsPrompt(t *testing.T) {
	p := newFakePrompter()
	c := NewCoordinator(p, zap.NewNop())

	c.HandleEvent(incoming("c1"))
	if len(p.shown) != 0 {
		t.Fatalf("shown = %v with no screen", p.shown)
	}

	// The dropped call is still tracked, so a redelivery stays silent.
	c.ScreenActivated("chat")
	c.HandleEvent(incoming("c1"))
	if len(p.shown) != 0 {
		t.Errorf("redelivered call shown: %v", p.shown)
	}
}

func TestScreenDestroyedKeepsPrompt(t *testing.T) {
	p := newFakePrompter()
	c := NewCoordinator(p, zap.NewNop())
	c.ScreenActivated("chat")
	c.HandleEvent(incoming("c1"))

	c.ScreenDestroyed("chat")
	if len(p.dismissed) != 0 {
		t.Fatalf("destroying the screen dismissed %v", p.dismissed)
	}
	if _, ok := c.ActivePrompt(); !ok {
		t.Error("prompt should survive screen destruction")
	}

	c.HandleEvent(incoming("c2"))
	if len(p.shown) != 1 {
		t.Errorf("call shown without a foreground screen: %v", p.shown)
	}
	if len(p.dismissed) != 1 || p.dismissed[0] != "c1" {
		t.Errorf("replaced prompt not dismissed: %v", p.dismissed)
	}
}

func TestSinglePromptUnderRandomEvents(t *testing.T) {
	p := newFakePrompter()
	c := NewCoordinator(p, zap.NewNop())
	rng := rand.New(rand.NewSource(7))
	screens := []string{"conversations", "chat"}

	for range 2000 {
		id := fmt.Sprintf("c%d", rng.Intn(5))
		switch rng.Intn(5) {
		case 0:
			c.ScreenActivated(screens[rng.Intn(2)])
		case 1:
			c.ScreenDestroyed(screens[rng.Intn(2)])
		case 2:
			c.HandleEvent(call.StatusChanged{ID: id, Status: model.CallEnded})
		default:
			c.HandleEvent(incoming(id))
		}
		if p.maxVis > 1 {
			t.Fatalf("%d prompts visible at once", p.maxVis)
		}
		active, ok := c.ActivePrompt()
		if ok != (len(p.visible) == 1) || (ok && !p.visible[active]) {
			t.Fatalf("coordinator prompt %q disagrees with visible %v", active, p.visible)
		}
	}
}

func TestRunStopsWhenChannelCloses(t *testing.T) {
	p := newFakePrompter()
	c := NewCoordinator(p, zap.NewNop())
	c.ScreenActivated("chat")

	events := make(chan call.Event, 2)
	events <- incoming("c1")
	events <- call.StatusChanged{ID: "c1", Status: model.CallRejected}
	close(events)

	done := make(chan struct{})
	go func() {
		c.Run(context.Background(), events)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	if len(p.shown) != 1 || len(p.dismissed) != 1 {
		t.Errorf("shown %v dismissed %v", p.shown, p.dismissed)
	}
}

// reentrantPrompter reads coordinator state from inside its callbacks, the
// way a UI that redraws on show does.
type reentrantPrompter struct {
	c      *Coordinator
	active []string
}

func (r *reentrantPrompter) ShowCallPrompt(_ string, _ call.IncomingCall) {
	id, _ := r.c.ActivePrompt()
	r.active = append(r.active, id)
	r.c.ScreenActivated("call")
}

func (r *reentrantPrompter) DismissCallPrompt(string) {
	r.c.ScreenActivated("conversations")
}

func TestPrompterMayCallBackIntoCoordinator(t *testing.T) {
	p := &reentrantPrompter{}
	c := NewCoordinator(p, zap.NewNop())
	p.c = c
	c.ScreenActivated("conversations")

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.HandleEvent(incoming("c1"))
		c.HandleEvent(incoming("c2"))
		c.HandleEvent(call.StatusChanged{ID: "c2", Status: model.CallEnded})
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("HandleEvent blocked while the prompter called back")
	}

	if len(p.active) != 2 || p.active[0] != "c1" || p.active[1] != "c2" {
		t.Errorf("active during show = %v, want [c1 c2]", p.active)
	}
	if _, ok := c.ActivePrompt(); ok {
		t.Error("prompt still active after the call ended")
	}
}
