package relation

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/zap"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCanInteractNoRecords(t *testing.T) {
	g := NewGuard(testDB(t), zap.NewNop())
	v, err := g.CanInteract(context.Background(), "alice", "bob")
	if err != nil {
		t.Fatal(err)
	}
	if !v.Allowed() || v.Reason() != "" {
		t.Errorf("verdict = %+v, want allowed", v)
	}
}

func TestBlockIsDirected(t *testing.T) {
	g := NewGuard(testDB(t), zap.NewNop())
	ctx := context.Background()

	if err := g.SetBlocked(ctx, "alice", "bob", true); err != nil {
		t.Fatal(err)
	}

	v, err := g.CanInteract(ctx, "alice", "bob")
	if err != nil {
		t.Fatal(err)
	}
	if !v.BlockedByMe || v.BlockedByOther || v.Allowed() {
		t.Errorf("alice->bob verdict = %+v, want blockedByMe only", v)
	}

	v, err = g.CanInteract(ctx, "bob", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if v.BlockedByMe || !v.BlockedByOther {
		t.Errorf("bob->alice verdict = %+v, want blockedByOther only", v)
	}
}

func TestReasons(t *testing.T) {
	tests := []struct {
		v    Verdict
		want string
	}{
		{Verdict{BlockedByMe: true}, "You blocked this user. Unblock them to continue"},
		{Verdict{BlockedByOther: true}, "You are blocked by this user"},
		{Verdict{BlockedByMe: true, BlockedByOther: true}, "You have blocked each other"},
	}
	for _, tc := range tests {
		if got := tc.v.Reason(); got != tc.want {
			t.Errorf("%+v.Reason() = %q, want %q", tc.v, got, tc.want)
		}
	}
}

func TestVerdictErr(t *testing.T) {
	if err := (Verdict{}).Err(); err != nil {
		t.Errorf("allowed verdict Err() = %v", err)
	}
	err := Verdict{BlockedByOther: true}.Err()
	if !errors.Is(err, ErrBlocked) || err.Error() != "You are blocked by this user" {
		t.Errorf("Err() = %v", err)
	}
}

func TestRecordIsCreatedOnceAndUpdatedInPlace(t *testing.T) {
	db := testDB(t)
	g := NewGuard(db, zap.NewNop())
	ctx := context.Background()

	if err := g.SetMuted(ctx, "alice", "bob", true); err != nil {
		t.Fatal(err)
	}
	if err := g.SetNickname(ctx, "alice", "bob", "Bobby"); err != nil {
		t.Fatal(err)
	}
	if err := g.SetBlocked(ctx, "alice", "bob", true); err != nil {
		t.Fatal(err)
	}
	if err := g.SetBlocked(ctx, "alice", "bob", false); err != nil {
		t.Fatal(err)
	}

	docs, err := db.Find(ctx, store.Collection(model.Relationships).Eq("userId", "alice"))
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d records, want 1", len(docs))
	}
	r, err := g.Get(ctx, "alice", "bob")
	if err != nil {
		t.Fatal(err)
	}
	if !r.Muted || r.Blocked || r.Nickname != "Bobby" || r.LastUpdated == 0 {
		t.Errorf("record = %+v", r)
	}

	if err := g.SetNickname(ctx, "alice", "bob", ""); err != nil {
		t.Fatal(err)
	}
	r, _ = g.Get(ctx, "alice", "bob")
	if r.Nickname != "" {
		t.Errorf("nickname = %q, want cleared", r.Nickname)
	}
}

// Records written by other clients with arbitrary document ids are honoured.
func TestForeignRecordIDs(t *testing.T) {
	db := testDB(t)
	g := NewGuard(db, zap.NewNop())
	ctx := context.Background()

	if _, err := db.Add(ctx, model.Relationships, map[string]any{
		"userId": "bob", "otherUserId": "alice", "blocked": true, "muted": false,
	}); err != nil {
		t.Fatal(err)
	}
	v, err := g.CanInteract(ctx, "alice", "bob")
	if err != nil {
		t.Fatal(err)
	}
	if !v.BlockedByOther {
		t.Errorf("verdict = %+v, want blockedByOther", v)
	}
}

// lookupFailure fails First for queries selected by fail.
type lookupFailure struct {
	*store.DB
	fail func(store.Query) bool
}

func (f lookupFailure) First(ctx context.Context, q store.Query) (*store.Doc, error) {
	if f.fail(q) {
		return nil, errors.New("lookup unavailable")
	}
	return f.DB.First(ctx, q)
}

func relationDoc(owner, other string) store.Doc {
	return store.Doc{Collection: model.Relationships, Fields: map[string]any{"userId": owner, "otherUserId": other}}
}

func TestReverseLookupFailureIsPermissive(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seed := NewGuard(db, zap.NewNop())
	if err := seed.SetBlocked(ctx, "alice", "bob", true); err != nil {
		t.Fatal(err)
	}
	if err := seed.SetBlocked(ctx, "bob", "alice", true); err != nil {
		t.Fatal(err)
	}

	bobToAlice := relationDoc("bob", "alice")
	g := NewGuard(lookupFailure{DB: db, fail: func(q store.Query) bool { return q.Matches(bobToAlice) }}, zap.NewNop())

	v, err := g.CanInteract(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("CanInteract() error = %v, want nil", err)
	}
	if v != (Verdict{BlockedByMe: true, BlockedByOther: false}) {
		t.Errorf("verdict = %+v, want blockedByMe only", v)
	}
}

func TestForwardLookupFailureIsReturned(t *testing.T) {
	db := testDB(t)
	aliceToBob := relationDoc("alice", "bob")
	g := NewGuard(lookupFailure{DB: db, fail: func(q store.Query) bool { return q.Matches(aliceToBob) }}, zap.NewNop())

	if _, err := g.CanInteract(context.Background(), "alice", "bob"); err == nil {
		t.Error("CanInteract() error = nil, want the first lookup's error")
	}
}
