// Package present decides when an incoming-call prompt is shown in a host
// process with several screens.
package present

import (
	"context"
	"sync"

	"github.com/golang-collections/collections/set"
	"github.com/matheus3301/chatsync/internal/call"
	"go.uber.org/zap"
)

// Prompter shows and hides the incoming-call prompt on behalf of the host UI.
type Prompter interface {
	ShowCallPrompt(screen string, c call.IncomingCall)
	DismissCallPrompt(callID string)
}

// Coordinator owns the single incoming-call prompt. Construct one per
// process and share it; all methods are safe for concurrent use. The prompter
// is never called with mu held, so it may call back into the coordinator or
// block on the UI goroutine.
type Coordinator struct {
	prompter Prompter
	logger   *zap.Logger

	// deliver orders prompter calls across concurrent HandleEvent calls.
	deliver sync.Mutex

	mu         sync.Mutex
	foreground string
	prompt     string
	activeCall string
	surfaced   *set.Set
}

// NewCoordinator creates a coordinator driving prompter.
func NewCoordinator(prompter Prompter, logger *zap.Logger) *Coordinator {
	return &Coordinator{prompter: prompter, logger: logger, surfaced: set.New()}
}

// ScreenActivated records name as the foreground screen.
func (c *Coordinator) ScreenActivated(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.foreground = name
}

// ScreenDestroyed forgets name if it was the foreground screen. A visible
// prompt stays up.
func (c *Coordinator) ScreenDestroyed(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.foreground == name {
		c.foreground = ""
	}
}

// ActivePrompt returns the call id of the visible prompt, if any.
func (c *Coordinator) ActivePrompt() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prompt, c.prompt != ""
}

// promptOps are prompter calls decided under mu and run after it is released.
type promptOps []func()

// HandleEvent applies one call event.
func (c *Coordinator) HandleEvent(e call.Event) {
	c.deliver.Lock()
	defer c.deliver.Unlock()

	var ops promptOps
	c.mu.Lock()
	switch e := e.(type) {
	case call.IncomingCall:
		c.incomingLocked(e, &ops)
	case call.StatusChanged:
		if e.ID == c.activeCall {
			c.surfaced.Remove(e.ID)
			c.activeCall = ""
			c.dismissLocked(&ops)
			c.logger.Debug("call prompt closed", zap.String("call_id", e.ID), zap.String("status", string(e.Status)))
		}
	}
	c.mu.Unlock()

	for _, op := range ops {
		op()
	}
}

func (c *Coordinator) incomingLocked(e call.IncomingCall, ops *promptOps) {
	if e.ID == c.activeCall && c.surfaced.Has(e.ID) {
		return
	}

	// A new call replaces whatever was tracked before, including its prompt.
	c.surfaced = set.New(e.ID)
	c.activeCall = e.ID
	c.dismissLocked(ops)

	if c.foreground == "" {
		c.logger.Info("incoming call dropped, no foreground screen", zap.String("call_id", e.ID))
		return
	}
	screen := c.foreground
	*ops = append(*ops, func() { c.prompter.ShowCallPrompt(screen, e) })
	c.prompt = e.ID
}

func (c *Coordinator) dismissLocked(ops *promptOps) {
	if c.prompt == "" {
		return
	}
	id := c.prompt
	*ops = append(*ops, func() { c.prompter.DismissCallPrompt(id) })
	c.prompt = ""
}

// Run applies events until events is closed or ctx is done.
func (c *Coordinator) Run(ctx context.Context, events <-chan call.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			c.HandleEvent(e)
		}
	}
}
