package sync

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/zap"
)

// Watcher opens change streams on the shared store.
type Watcher interface {
	Watch(ctx context.Context, q store.Query) *store.Stream
}

// MessagesUpdated is emitted after every batch that changed the conversation,
// and for each initial snapshot. Messages is a fresh slice sorted ascending by
// timestamp; Previous is how many messages were held before the batch, so
// Previous == 0 marks the initial load and Previous == N an append after N.
type MessagesUpdated struct {
	Messages []model.Message
	Previous int
}

// Engine merges the two directional message streams of a conversation pair.
type Engine struct {
	db     Watcher
	logger *zap.Logger
}

// NewEngine creates a new message sync engine.
func NewEngine(db Watcher, logger *zap.Logger) *Engine {
	return &Engine{db: db, logger: logger}
}

// Conversation is one open pair. It owns both subscriptions until Close.
type Conversation struct {
	SelfID string
	PeerID string

	updates chan MessagesUpdated
	cancel  context.CancelFunc
	done    chan struct{}
}

// Open subscribes to self→peer and peer→self messages.
func (e *Engine) Open(ctx context.Context, selfID, peerID string) (*Conversation, error) {
	if selfID == "" || peerID == "" {
		return nil, fmt.Errorf("open conversation: both user ids are required")
	}
	ctx, cancel := context.WithCancel(ctx)
	c := &Conversation{
		SelfID:  selfID,
		PeerID:  peerID,
		updates: make(chan MessagesUpdated, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	sent := e.db.Watch(ctx, store.Collection(model.Chat).Eq("senderId", selfID).Eq("receiverId", peerID))
	received := e.db.Watch(ctx, store.Collection(model.Chat).Eq("senderId", peerID).Eq("receiverId", selfID))

	go e.dispatch(ctx, c, sent, received)
	return c, nil
}

// Updates delivers merged snapshots until the conversation is closed or both
// streams have stopped.
func (c *Conversation) Updates() <-chan MessagesUpdated {
	return c.updates
}

// Close releases both subscriptions.
func (c *Conversation) Close() {
	c.cancel()
	<-c.done
}

// dispatch is the only goroutine touching the held list; batches from the two
// streams are applied one at a time.
func (e *Engine) dispatch(ctx context.Context, c *Conversation, sent, received *store.Stream) {
	defer close(c.done)
	defer close(c.updates)
	defer received.Close()
	defer sent.Close()

	m := &merger{seen: make(map[model.MessageIdentity]struct{})}
	a, b := sent.C, received.C
	for a != nil || b != nil {
		var batch store.Batch
		var ok bool
		select {
		case <-ctx.Done():
			return
		case batch, ok = <-a:
			if !ok {
				e.streamStopped(c, "sent", sent)
				a = nil
				continue
			}
		case batch, ok = <-b:
			if !ok {
				e.streamStopped(c, "received", received)
				b = nil
				continue
			}
		}

		upd, changed := m.apply(batch)
		if !changed && !batch.Snapshot {
			continue
		}
		select {
		case c.updates <- upd:
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) streamStopped(c *Conversation, direction string, s *store.Stream) {
	if err := s.Err(); err != nil {
		e.logger.Error("message stream failed",
			zap.String("self", c.SelfID), zap.String("peer", c.PeerID),
			zap.String("direction", direction), zap.Error(err))
	}
}

// merger holds the append-only message history of one conversation.
type merger struct {
	held []model.Message
	seen map[model.MessageIdentity]struct{}
}

// apply appends unseen messages from added or modified documents; removals and
// modifications never rewrite history.
func (m *merger) apply(b store.Batch) (MessagesUpdated, bool) {
	before := len(m.held)
	for _, ch := range b.Changes {
		if ch.Kind == store.Removed {
			continue
		}
		msg := model.MessageFromDoc(ch.Doc)
		id := msg.Identity()
		if _, dup := m.seen[id]; dup {
			continue
		}
		m.seen[id] = struct{}{}
		m.held = append(m.held, msg)
	}
	changed := len(m.held) != before
	if changed {
		slices.SortStableFunc(m.held, func(x, y model.Message) int {
			return cmp.Compare(x.Timestamp, y.Timestamp)
		})
	}
	return MessagesUpdated{Messages: slices.Clone(m.held), Previous: before}, changed
}
