package inbox

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/profile"
	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/zap"
)

func testDB(t *testing.T) *store.DB {
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
	return db
}

func newAggregator(t *testing.T, db *store.DB) *Aggregator {
	t.Helper()
	dir := profile.NewDirectory(db, zap.NewNop())
	ctx := context.Background()
	for _, p := range []model.UserProfile{
		{ID: "alice", Name: "Alice", Image: "a.png"},
		{ID: "bob", Name: "Bob", Image: "b.png"},
		{ID: "carol", Name: "Carol"},
	} {
		if err := dir.Register(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
	return NewAggregator(db, dir, nil, zap.NewNop())
}

func msg(from, to, body string, ts int64) model.Message {
	return model.Message{SenderID: from, ReceiverID: to, Body: body, Kind: model.KindText, Timestamp: ts}
}

func find(list []model.ConversationSummary, peer string) (model.ConversationSummary, bool) {
	for _, s := range list {
		if s.PeerID == peer {
			return s, true
		}
	}
	return model.ConversationSummary{}, false
}

// waitFor reads snapshots until ok accepts one.
func waitFor(t *testing.T, ch <-chan []model.ConversationSummary, ok func([]model.ConversationSummary) bool) []model.ConversationSummary {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case snap := <-ch:
			if ok(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timeout waiting for summaries")
		}
	}
}

func TestRecordMessageCreatesThenUpdates(t *testing.T) {
	db := testDB(t)
	a := newAggregator(t, db)
	ctx := context.Background()

	if err := a.RecordMessage(ctx, msg("alice", "bob", "hi", 1000)); err != nil {
		t.Fatal(err)
	}
	if err := a.RecordMessage(ctx, msg("alice", "bob", "there", 1500)); err != nil {
		t.Fatal(err)
	}

	docs, err := db.Find(ctx, store.Collection(model.Conversations))
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d conversation docs, want 1", len(docs))
	}
	sd := model.SummaryDocFromDoc(docs[0])
	if sd.SenderName != "Alice" || sd.ReceiverName != "Bob" || sd.ReceiverImage != "b.png" {
		t.Errorf("profile fields = %+v", sd)
	}
	if sd.UnreadCount != 2 {
		t.Errorf("unread after two sends = %d, want 2", sd.UnreadCount)
	}

	// Reverse direction reuses the same document and restarts the count for alice.
	if err := a.RecordMessage(ctx, msg("bob", "alice", "hello", 2000)); err != nil {
		t.Fatal(err)
	}
	docs, err = db.Find(ctx, store.Collection(model.Conversations))
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d conversation docs, want 1", len(docs))
	}
	sd = model.SummaryDocFromDoc(docs[0])
	if sd.UnreadCount != 1 || sd.LastMessage != "hello" || sd.LastSenderID != "bob" || sd.Timestamp != 2000 {
		t.Errorf("summary = %+v", sd)
	}
}

func TestStartOrientsAndSorts(t *testing.T) {
	db := testDB(t)
	a := newAggregator(t, db)
	ctx := context.Background()

	if err := a.RecordMessage(ctx, msg("alice", "bob", "old", 1000)); err != nil {
		t.Fatal(err)
	}
	if err := a.RecordMessage(ctx, msg("carol", "alice", "new", 2000)); err != nil {
		t.Fatal(err)
	}

	ch, err := a.Start(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Stop()

	snap := waitFor(t, ch, func(s []model.ConversationSummary) bool { return len(s) == 2 })
	if snap[0].PeerID != "carol" || snap[1].PeerID != "bob" {
		t.Fatalf("order = %s, %s", snap[0].PeerID, snap[1].PeerID)
	}
	if snap[1].PeerName != "Bob" || snap[0].PeerName != "Carol" {
		t.Errorf("peer names = %q, %q", snap[0].PeerName, snap[1].PeerName)
	}

	if _, err := a.Start(ctx, "alice"); err == nil {
		t.Error("second Start should fail")
	}
}

func TestUnreadGrowsUntilMarkRead(t *testing.T) {
	db := testDB(t)
	a := newAggregator(t, db)
	ctx := context.Background()

	ch, err := a.Start(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Stop()

	var last int64
	for i := range 3 {
		if err := a.RecordMessage(ctx, msg("bob", "alice", "m", int64(1000+i))); err != nil {
			t.Fatal(err)
		}
		want := int64(i + 1)
		waitFor(t, ch, func(s []model.ConversationSummary) bool {
			bob, ok := find(s, "bob")
			if !ok {
				return false
			}
			if bob.UnreadCount < last {
				t.Fatalf("unread went from %d to %d", last, bob.UnreadCount)
			}
			last = bob.UnreadCount
			return bob.UnreadCount == want
		})
	}

	a.MarkRead(ctx, "bob")
	if bob, _ := find(a.Snapshot(), "bob"); bob.UnreadCount != 0 {
		t.Fatalf("unread after MarkRead = %d", bob.UnreadCount)
	}

	docs, err := db.Find(ctx, store.Collection(model.Conversations))
	if err != nil {
		t.Fatal(err)
	}
	if got := docs[0].Int64("unreadCount"); got != 0 {
		t.Errorf("stored unread = %d, want 0", got)
	}

	if err := a.RecordMessage(ctx, msg("bob", "alice", "again", 5000)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, ch, func(s []model.ConversationSummary) bool {
		bob, ok := find(s, "bob")
		return ok && bob.UnreadCount == 1 && bob.LastMessage == "again"
	})
}

func TestRemovedDocumentDropsSummary(t *testing.T) {
	db := testDB(t)
	a := newAggregator(t, db)
	ctx := context.Background()

	if err := a.RecordMessage(ctx, msg("alice", "bob", "hi", 1000)); err != nil {
		t.Fatal(err)
	}
	ch, err := a.Start(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Stop()

	snap := waitFor(t, ch, func(s []model.ConversationSummary) bool { return len(s) == 1 })
	if err := db.Delete(ctx, model.Conversations, snap[0].DocID); err != nil {
		t.Fatal(err)
	}
	waitFor(t, ch, func(s []model.ConversationSummary) bool { return len(s) == 0 })
}

func TestDuplicatePairDocumentIsIgnored(t *testing.T) {
	db := testDB(t)
	a := newAggregator(t, db)
	ctx := context.Background()

	first := model.SummaryDoc{SenderID: "alice", ReceiverID: "bob", LastMessage: "one", Timestamp: 1000}
	id, err := db.Add(ctx, model.Conversations, first.Fields())
	if err != nil {
		t.Fatal(err)
	}
	ch, err := a.Start(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Stop()
	waitFor(t, ch, func(s []model.ConversationSummary) bool { return len(s) == 1 })

	dup := model.SummaryDoc{SenderID: "bob", ReceiverID: "alice", LastMessage: "two", Timestamp: 2000}
	dupID, err := db.Add(ctx, model.Conversations, dup.Fields())
	if err != nil {
		t.Fatal(err)
	}
	// Removing the duplicate must not drop the summary backed by the first document.
	if err := db.Delete(ctx, model.Conversations, dupID); err != nil {
		t.Fatal(err)
	}
	if err := db.Update(ctx, model.Conversations, id, map[string]any{"lastMessage": "three"}); err != nil {
		t.Fatal(err)
	}
	snap := waitFor(t, ch, func(s []model.ConversationSummary) bool {
		return len(s) == 1 && s[0].LastMessage == "three"
	})
	if snap[0].DocID != id {
		t.Errorf("DocID = %s, want %s", snap[0].DocID, id)
	}
}

func TestRefreshOnceReplacesState(t *testing.T) {
	db := testDB(t)
	a := newAggregator(t, db)
	ctx := context.Background()

	if err := a.RecordMessage(ctx, msg("alice", "bob", "hi", 1000)); err != nil {
		t.Fatal(err)
	}
	if err := a.RecordMessage(ctx, msg("carol", "alice", "yo", 3000)); err != nil {
		t.Fatal(err)
	}
	if err := a.RecordMessage(ctx, msg("bob", "carol", "not mine", 4000)); err != nil {
		t.Fatal(err)
	}

	got, err := a.RefreshOnce(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].PeerID != "carol" || got[1].PeerID != "bob" {
		t.Fatalf("RefreshOnce = %+v", got)
	}
	if len(a.Snapshot()) != 2 {
		t.Errorf("Snapshot len = %d", len(a.Snapshot()))
	}
}

func TestPreview(t *testing.T) {
	long := make([]rune, 150)
	for i := range long {
		long[i] = 'x'
	}
	tests := []struct {
		msg  model.Message
		want string
	}{
		{model.Message{Kind: model.KindText, Body: "hi"}, "hi"},
		{model.Message{Kind: model.KindImage, Body: "https://x/y.png"}, "[image]"},
		{model.Message{Kind: model.KindFile, AttachmentName: "a.pdf"}, "[file] a.pdf"},
		{model.Message{Kind: model.KindVideo}, "[video]"},
	}
	for _, tt := range tests {
		if got := Preview(tt.msg); got != tt.want {
			t.Errorf("Preview(%+v) = %q, want %q", tt.msg, got, tt.want)
		}
	}
	if got := []rune(Preview(model.Message{Body: string(long)})); len(got) != previewLen {
		t.Errorf("preview rune length = %d", len(got))
	}
}

func unreadOf(t *testing.T, ch <-chan []model.ConversationSummary, peer string, want int64) {
	t.Helper()
	waitFor(t, ch, func(s []model.ConversationSummary) bool {
		c, ok := find(s, peer)
		return ok && c.UnreadCount == want
	})
}

func TestUnreadCountsInboundOnlyPerUser(t *testing.T) {
	db := testDB(t)
	alice := newAggregator(t, db)
	bob := NewAggregator(db, alice.profiles, nil, zap.NewNop())
	ctx := context.Background()

	aliceCh, err := alice.Start(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	defer alice.Stop()
	bobCh, err := bob.Start(ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}
	defer bob.Stop()

	// Each side records its own sends, as its daemon does.
	if err := bob.RecordMessage(ctx, msg("bob", "alice", "m1", 1000)); err != nil {
		t.Fatal(err)
	}
	if err := bob.RecordMessage(ctx, msg("bob", "alice", "m2", 2000)); err != nil {
		t.Fatal(err)
	}
	unreadOf(t, aliceCh, "bob", 2)
	unreadOf(t, bobCh, "alice", 0)

	// Bob marking read must not clear what alice has not read.
	bob.MarkRead(ctx, "alice")
	docs, err := db.Find(ctx, store.Collection(model.Conversations))
	if err != nil {
		t.Fatal(err)
	}
	if got := docs[0].Int64("unreadCount"); got != 2 {
		t.Fatalf("stored unread after bob's MarkRead = %d, want 2", got)
	}
	if c, _ := find(alice.Snapshot(), "bob"); c.UnreadCount != 2 {
		t.Fatalf("alice unread after bob's MarkRead = %d, want 2", c.UnreadCount)
	}

	if err := alice.RecordMessage(ctx, msg("alice", "bob", "r1", 3000)); err != nil {
		t.Fatal(err)
	}
	unreadOf(t, bobCh, "alice", 1)
	unreadOf(t, aliceCh, "bob", 0)

	bob.MarkRead(ctx, "alice")
	unreadOf(t, bobCh, "alice", 0)
	docs, err = db.Find(ctx, store.Collection(model.Conversations))
	if err != nil {
		t.Fatal(err)
	}
	if got := docs[0].Int64("unreadCount"); got != 0 {
		t.Errorf("stored unread after bob read = %d, want 0", got)
	}
}

func TestStaleEchoKeepsLastMessage(t *testing.T) {
	db := testDB(t)
	a := newAggregator(t, db)
	ctx := context.Background()

	if err := a.RecordMessage(ctx, msg("bob", "alice", "one", 1000)); err != nil {
		t.Fatal(err)
	}
	if _, err := a.RefreshOnce(ctx, "alice"); err != nil {
		t.Fatal(err)
	}
	a.MarkRead(ctx, "bob")

	docs, err := db.Find(ctx, store.Collection(model.Conversations))
	if err != nil {
		t.Fatal(err)
	}
	a.mu.Lock()
	readAt := a.readAt[model.NewPairKey("alice", "bob")]
	a.mu.Unlock()

	echo := docs[0]
	echo.Fields = map[string]any{
		"senderId": "bob", "receiverId": "alice",
		"lastMessage": "two", "timeStamp": int64(2000), "lastSenderId": "bob", "unreadCount": int64(2),
	}
	echo.UpdatedAt = readAt - 1
	apply := func(d store.Doc) {
		a.mu.Lock()
		a.applyLocked(store.Batch{Changes: []store.Change{{Kind: store.Modified, Doc: d}}})
		a.mu.Unlock()
	}

	apply(echo)
	got, _ := find(a.Snapshot(), "bob")
	if got.LastMessage != "two" || got.LastTimestamp != 2000 {
		t.Errorf("stale echo dropped the message: %+v", got)
	}
	if got.UnreadCount != 0 {
		t.Errorf("stale echo unread = %d, want 0", got.UnreadCount)
	}

	echo.UpdatedAt = readAt + 1
	apply(echo)
	if got, _ := find(a.Snapshot(), "bob"); got.UnreadCount != 2 {
		t.Errorf("newer write unread = %d, want 2", got.UnreadCount)
	}
}

func TestStreamFailureIsPublished(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	failed, unsub := b.Subscribe(StreamFailedKind, 4)
	defer unsub()
	a := NewAggregator(db, profile.NewDirectory(db, zap.NewNop()), b, zap.NewNop())
	ctx := context.Background()

	ch, err := a.Start(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Stop()
	waitFor(t, ch, func([]model.ConversationSummary) bool { return true })

	// Both change streams fail on their next poll.
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	select {
	case evt := <-failed:
		if _, ok := evt.Payload.(error); !ok {
			t.Errorf("payload = %T, want error", evt.Payload)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for stream failure event")
	}
}
