// Package inbox maintains the per-peer conversation summaries of one user.
package inbox

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/profile"
	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/zap"
)

const (
	// UpdatedKind is published on the bus with a []model.ConversationSummary
	// payload whenever the summary set changes.
	UpdatedKind = "inbox.updated"
	// StreamFailedKind is published with the error when a subscription dies.
	StreamFailedKind = "inbox.stream_failed"
)

// Aggregator keeps one summary per unordered pair the user belongs to, updated
// in place from the conversations change streams.
type Aggregator struct {
	db       *store.DB
	profiles *profile.Directory
	bus      *bus.Bus
	logger   *zap.Logger

	mu     sync.Mutex
	self   string
	byPair map[model.PairKey]*model.ConversationSummary
	readAt map[model.PairKey]int64
	out    chan []model.ConversationSummary
	cancel context.CancelFunc
	done   chan struct{}
}

// NewAggregator creates a conversation aggregator. b may be nil.
func NewAggregator(db *store.DB, profiles *profile.Directory, b *bus.Bus, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		db:       db,
		profiles: profiles,
		bus:      b,
		logger:   logger,
		byPair:   make(map[model.PairKey]*model.ConversationSummary),
		readAt:   make(map[model.PairKey]int64),
	}
}

// Start subscribes to summaries where selfID is sender or receiver. The
// returned channel always holds the newest snapshot; older unread ones are
// replaced rather than queued.
func (a *Aggregator) Start(ctx context.Context, selfID string) (<-chan []model.ConversationSummary, error) {
	if selfID == "" {
		return nil, errors.New("start inbox: user id is required")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return nil, errors.New("start inbox: already started")
	}

	ctx, a.cancel = context.WithCancel(ctx)
	if a.self != selfID {
		a.self = selfID
		a.byPair = make(map[model.PairKey]*model.ConversationSummary)
		a.readAt = make(map[model.PairKey]int64)
	}
	a.out = make(chan []model.ConversationSummary, 1)
	a.done = make(chan struct{})

	asSender := a.db.Watch(ctx, store.Collection(model.Conversations).Eq("senderId", selfID))
	asReceiver := a.db.Watch(ctx, store.Collection(model.Conversations).Eq("receiverId", selfID))
	go a.dispatch(ctx, asSender, asReceiver, a.out, a.done)

	return a.out, nil
}

// Stop releases both subscriptions. The aggregator keeps its last state and
// may be started again.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Snapshot returns the current summaries, most recent first.
func (a *Aggregator) Snapshot() []model.ConversationSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sortedLocked()
}

// MarkRead zeroes the unread count for the conversation with peerID locally,
// then writes the same to the store when the stored count is ours, that is
// when peerID sent last. A failed write is logged and the local value is kept.
func (a *Aggregator) MarkRead(ctx context.Context, peerID string) {
	a.mu.Lock()
	key := model.NewPairKey(a.self, peerID)
	s, ok := a.byPair[key]
	if !ok {
		a.mu.Unlock()
		a.logger.Debug("mark read for unknown conversation", zap.String("peer", peerID))
		return
	}
	s.UnreadCount = 0
	docID := s.DocID
	a.readAt[key] = time.Now().UnixMilli()
	a.emitLocked()
	a.mu.Unlock()

	peerSentLast := []store.Cond{{Field: "lastSenderId", Op: store.OpEq, Value: peerID}}
	err := a.db.UpdateIf(ctx, model.Conversations, docID, peerSentLast, map[string]any{"unreadCount": 0})
	switch {
	case errors.Is(err, store.ErrConditionFailed):
		// The stored count is the peer's.
	case err != nil:
		a.logger.Warn("failed to reset unread count", zap.String("peer", peerID), zap.String("doc", docID), zap.Error(err))
	}
}

// RefreshOnce rebuilds the summary set from two point queries, for callers
// returning to a view without live subscriptions.
func (a *Aggregator) RefreshOnce(ctx context.Context, selfID string) ([]model.ConversationSummary, error) {
	var docs []store.Doc
	for _, field := range []string{"senderId", "receiverId"} {
		found, err := a.db.Find(ctx, store.Collection(model.Conversations).Eq(field, selfID))
		if err != nil {
			return nil, fmt.Errorf("refresh conversations: %w", err)
		}
		docs = append(docs, found...)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.self != selfID {
		a.readAt = make(map[model.PairKey]int64)
	}
	a.self = selfID
	a.byPair = make(map[model.PairKey]*model.ConversationSummary)
	for _, d := range docs {
		a.addLocked(d)
	}
	a.emitLocked()
	return a.sortedLocked(), nil
}

func (a *Aggregator) dispatch(ctx context.Context, asSender, asReceiver *store.Stream, out chan []model.ConversationSummary, done chan struct{}) {
	defer close(done)
	defer asReceiver.Close()
	defer asSender.Close()

	s, r := asSender.C, asReceiver.C
	for s != nil || r != nil {
		var batch store.Batch
		var ok bool
		select {
		case <-ctx.Done():
			return
		case batch, ok = <-s:
			if !ok {
				a.streamStopped("sender", asSender)
				s = nil
				continue
			}
		case batch, ok = <-r:
			if !ok {
				a.streamStopped("receiver", asReceiver)
				r = nil
				continue
			}
		}

		a.mu.Lock()
		a.applyLocked(batch)
		a.emitLocked()
		a.mu.Unlock()
	}
}

func (a *Aggregator) streamStopped(role string, s *store.Stream) {
	err := s.Err()
	if err == nil {
		return
	}
	a.logger.Error("conversation stream failed", zap.String("role", role), zap.Error(err))
	if a.bus != nil {
		a.bus.Publish(bus.Event{Kind: StreamFailedKind, Timestamp: time.Now(), Payload: err})
	}
}

func (a *Aggregator) applyLocked(b store.Batch) {
	for _, ch := range b.Changes {
		sd := model.SummaryDocFromDoc(ch.Doc)
		key := sd.Pair()
		switch ch.Kind {
		case store.Added:
			a.addLocked(ch.Doc)
		case store.Modified:
			cur, ok := a.byPair[key]
			if !ok {
				a.addLocked(ch.Doc)
				continue
			}
			next := sd.For(a.self, cur.DocID)
			cur.LastMessage = next.LastMessage
			cur.LastTimestamp = next.LastTimestamp
			cur.LastSenderID = next.LastSenderID
			// An echo of a write that predates the local mark-read keeps the zero.
			if ch.Doc.UpdatedAt >= a.readAt[key] {
				cur.UnreadCount = next.UnreadCount
			}
			cur.PeerName = next.PeerName
			cur.PeerImage = next.PeerImage
		case store.Removed:
			if cur, ok := a.byPair[key]; ok && cur.DocID == ch.Doc.ID {
				delete(a.byPair, key)
			}
		}
	}
}

// addLocked inserts a summary unless the pair already has one; a second
// document for the same pair is a duplicate source and is ignored.
func (a *Aggregator) addLocked(d store.Doc) {
	sd := model.SummaryDocFromDoc(d)
	key := sd.Pair()
	if _, ok := a.byPair[key]; ok {
		return
	}
	s := sd.For(a.self, d.ID)
	a.byPair[key] = &s
}

func (a *Aggregator) sortedLocked() []model.ConversationSummary {
	out := make([]model.ConversationSummary, 0, len(a.byPair))
	for _, s := range a.byPair {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(x, y model.ConversationSummary) int {
		return cmp.Or(
			cmp.Compare(y.LastTimestamp, x.LastTimestamp),
			strings.Compare(string(x.PairKey), string(y.PairKey)),
		)
	})
	return out
}

func (a *Aggregator) emitLocked() {
	snap := a.sortedLocked()
	if a.out != nil {
		select {
		case <-a.out:
		default:
		}
		a.out <- snap
	}
	if a.bus != nil {
		a.bus.Publish(bus.Event{Kind: UpdatedKind, Timestamp: time.Now(), Payload: snap})
	}
}
