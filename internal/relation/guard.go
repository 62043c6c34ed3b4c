// Package relation resolves directed block/mute relationships and gates
// outbound messages and calls on them.
package relation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/zap"
)

// Verdict is the bidirectional block state between self and another user.
type Verdict struct {
	BlockedByMe    bool
	BlockedByOther bool
}

// Allowed reports whether self may message or call the other user.
func (v Verdict) Allowed() bool {
	return !v.BlockedByMe && !v.BlockedByOther
}

// Reason is a user-facing explanation, empty when allowed.
func (v Verdict) Reason() string {
	switch {
	case v.BlockedByMe && v.BlockedByOther:
		return "You have blocked each other"
	case v.BlockedByMe:
		return "You blocked this user. Unblock them to continue"
	case v.BlockedByOther:
		return "You are blocked by this user"
	default:
		return ""
	}
}

// ErrBlocked is matched by every error produced by Verdict.Err.
var ErrBlocked = errors.New("interaction blocked")

// BlockedError carries the verdict that vetoed an interaction.
type BlockedError struct {
	Verdict Verdict
}

func (e *BlockedError) Error() string { return e.Verdict.Reason() }

func (e *BlockedError) Is(target error) bool { return target == ErrBlocked }

// Err returns a *BlockedError when v does not allow interaction.
func (v Verdict) Err() error {
	if v.Allowed() {
		return nil
	}
	return &BlockedError{Verdict: v}
}

// Store is the part of the document store the guard needs.
type Store interface {
	First(ctx context.Context, q store.Query) (*store.Doc, error)
	Merge(ctx context.Context, collection, id string, patch map[string]any) error
}

// Guard reads and writes user_relationships records.
type Guard struct {
	db     Store
	logger *zap.Logger
}

// NewGuard creates a relationship guard.
func NewGuard(db Store, logger *zap.Logger) *Guard {
	return &Guard{db: db, logger: logger}
}

// CanInteract resolves self→other then other→self. An error reading the first
// direction is returned; the second direction degrades to "not blocked".
func (g *Guard) CanInteract(ctx context.Context, selfID, otherID string) (Verdict, error) {
	mine, err := g.Get(ctx, selfID, otherID)
	if err != nil {
		return Verdict{}, fmt.Errorf("resolve relationship %s->%s: %w", selfID, otherID, err)
	}
	var v Verdict
	if mine != nil {
		v.BlockedByMe = mine.Blocked
	}

	theirs, err := g.Get(ctx, otherID, selfID)
	if err != nil {
		g.logger.Warn("reverse relationship lookup failed, assuming not blocked",
			zap.String("owner", otherID), zap.String("other", selfID), zap.Error(err))
		return v, nil
	}
	if theirs != nil {
		v.BlockedByOther = theirs.Blocked
	}
	return v, nil
}

// Get returns owner's record about other, or nil when none exists.
func (g *Guard) Get(ctx context.Context, ownerID, otherID string) (*model.UserRelationship, error) {
	doc, err := g.db.First(ctx, store.Collection(model.Relationships).
		Eq("userId", ownerID).
		Eq("otherUserId", otherID))
	if err != nil || doc == nil {
		return nil, err
	}
	r := model.RelationshipFromDoc(*doc)
	return &r, nil
}

// SetBlocked records whether owner blocks other.
func (g *Guard) SetBlocked(ctx context.Context, ownerID, otherID string, blocked bool) error {
	return g.write(ctx, ownerID, otherID, map[string]any{"blocked": blocked})
}

// SetMuted records whether owner mutes other.
func (g *Guard) SetMuted(ctx context.Context, ownerID, otherID string, muted bool) error {
	return g.write(ctx, ownerID, otherID, map[string]any{"muted": muted})
}

// SetNickname sets owner's private nickname for other; empty clears it.
func (g *Guard) SetNickname(ctx context.Context, ownerID, otherID, nickname string) error {
	var v any = nickname
	if nickname == "" {
		v = store.DeleteField
	}
	return g.write(ctx, ownerID, otherID, map[string]any{"nickname": v})
}

// write creates the directed record lazily and updates it in place afterwards.
func (g *Guard) write(ctx context.Context, ownerID, otherID string, patch map[string]any) error {
	if ownerID == "" || otherID == "" || ownerID == otherID {
		return fmt.Errorf("invalid relationship %q -> %q", ownerID, otherID)
	}
	patch["userId"] = ownerID
	patch["otherUserId"] = otherID
	patch["lastUpdated"] = time.Now().UnixMilli()

	existing, err := g.db.First(ctx, store.Collection(model.Relationships).
		Eq("userId", ownerID).
		Eq("otherUserId", otherID))
	if err != nil {
		return fmt.Errorf("load relationship: %w", err)
	}
	id := ownerID + "_" + otherID
	if existing != nil {
		id = existing.ID
	}
	if err := g.db.Merge(ctx, model.Relationships, id, patch); err != nil {
		return fmt.Errorf("write relationship: %w", err)
	}
	g.logger.Info("relationship updated", zap.String("owner", ownerID), zap.String("other", otherID))
	return nil
}
