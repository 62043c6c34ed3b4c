package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/matheus3301/chatsync/internal/bus"
	"go.uber.org/zap"
)

// ChangeKind classifies a document change relative to a stream's query.
type ChangeKind int

const (
	Added ChangeKind = iota + 1
	Modified
	Removed
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// Change is one document event. For Removed, Doc carries the last known fields
// (for a document that merely stopped matching, its new fields).
type Change struct {
	Kind ChangeKind
	Doc  Doc
}

// Batch is a group of changes delivered together. The first batch of every
// stream is the initial snapshot (Snapshot=true, all Added), possibly empty.
type Batch struct {
	Snapshot bool
	Changes  []Change
}

// TODO: prune changes rows older than the lowest cursor held by live streams;
// the log currently grows for the lifetime of the database file.
const tailPageSize = 500

// Stream is a live subscription to the documents matching a Query.
// Batches arrive on C until the stream is closed or fails; C is then closed
// and Err reports the failure, if any.
type Stream struct {
	C <-chan Batch

	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// Close stops the stream and waits for its goroutine to exit.
func (s *Stream) Close() {
	s.cancel()
	<-s.done
}

// Err returns the error that ended the stream, or nil.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Watch subscribes to q. Documents written right around attach time may be
// delivered twice (in the snapshot and again as Modified); consumers dedup.
func (db *DB) Watch(ctx context.Context, q Query) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan Batch)
	s := &Stream{C: out, cancel: cancel, done: make(chan struct{})}
	go db.run(ctx, q, s, out)
	return s
}

func (db *DB) run(ctx context.Context, q Query, s *Stream, out chan<- Batch) {
	defer close(s.done)
	defer close(out)

	var wake <-chan bus.Event
	if db.bus != nil {
		ch, unsub := db.bus.Subscribe(bus.DocChanged+q.collection, 1)
		defer unsub()
		wake = ch
	}

	fail := func(err error) {
		if ctx.Err() != nil {
			return
		}
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		db.logger.Warn("change stream stopped", zap.String("collection", q.collection), zap.Error(err))
	}

	cursor, err := db.head(ctx, q.collection)
	if err != nil {
		fail(err)
		return
	}
	docs, err := db.Find(ctx, q)
	if err != nil {
		fail(err)
		return
	}

	matched := make(map[string]bool, len(docs))
	snapshot := Batch{Snapshot: true, Changes: make([]Change, 0, len(docs))}
	for _, d := range docs {
		matched[d.ID] = true
		snapshot.Changes = append(snapshot.Changes, Change{Kind: Added, Doc: d})
	}
	if !send(ctx, out, snapshot) {
		return
	}

	ticker := time.NewTicker(db.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-wake:
		}

		for {
			rows, next, err := db.tail(ctx, q.collection, cursor)
			if err != nil {
				fail(err)
				return
			}
			cursor = next

			var batch Batch
			for _, r := range rows {
				if c, ok := classify(q, r, matched); ok {
					batch.Changes = append(batch.Changes, c)
				}
			}
			if len(batch.Changes) > 0 && !send(ctx, out, batch) {
				return
			}
			if len(rows) < tailPageSize {
				break
			}
		}
	}
}

func send(ctx context.Context, out chan<- Batch, b Batch) bool {
	select {
	case out <- b:
		return true
	case <-ctx.Done():
		return false
	}
}

type changeRow struct {
	seq    int64
	kind   string
	doc    Doc
	broken error
}

// classify turns a log row into a change relative to q, updating matched.
func classify(q Query, r changeRow, matched map[string]bool) (Change, bool) {
	was := matched[r.doc.ID]
	if r.broken != nil {
		return Change{}, false
	}
	if r.kind == "delete" {
		if !was {
			return Change{}, false
		}
		delete(matched, r.doc.ID)
		return Change{Kind: Removed, Doc: r.doc}, true
	}

	now := q.Matches(r.doc)
	switch {
	case now && was:
		return Change{Kind: Modified, Doc: r.doc}, true
	case now:
		matched[r.doc.ID] = true
		return Change{Kind: Added, Doc: r.doc}, true
	case was:
		delete(matched, r.doc.ID)
		return Change{Kind: Removed, Doc: r.doc}, true
	default:
		return Change{}, false
	}
}

func (db *DB) head(ctx context.Context, collection string) (int64, error) {
	var seq int64
	err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM changes WHERE collection = ?`, collection).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("read changes head: %w", err)
	}
	return seq, nil
}

func (db *DB) tail(ctx context.Context, collection string, after int64) ([]changeRow, int64, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT seq, doc_id, kind, data, at FROM changes
		WHERE collection = ? AND seq > ?
		ORDER BY seq ASC
		LIMIT ?`, collection, after, tailPageSize)
	if err != nil {
		return nil, after, fmt.Errorf("tail changes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cursor := after
	var out []changeRow
	for rows.Next() {
		var r changeRow
		var raw string
		if err := rows.Scan(&r.seq, &r.doc.ID, &r.kind, &raw, &r.doc.UpdatedAt); err != nil {
			return nil, after, err
		}
		r.doc.Collection = collection
		r.doc.Fields, r.broken = decodeFields(raw)
		cursor = r.seq
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, after, err
	}
	return out, cursor, nil
}
