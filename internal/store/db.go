package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/matheus3301/chatsync/internal/bus"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// DefaultPollInterval is how often change streams tail the changes log when no
// local write has woken them.
const DefaultPollInterval = 250 * time.Millisecond

// DB is the shared document store: named collections of JSON documents plus an
// append-only changes log that change streams tail. Several processes may open
// the same file; writes made by one are observed by the others' streams.
type DB struct {
	*sql.DB

	bus    *bus.Bus
	poll   time.Duration
	logger *zap.Logger
}

// Option configures a DB.
type Option func(*DB)

// WithBus makes committed writes publish a wake-up on b so that change streams
// in this process react without waiting for the next poll.
func WithBus(b *bus.Bus) Option {
	return func(db *DB) { db.bus = b }
}

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(db *DB) {
		if d > 0 {
			db.poll = d
		}
	}
}

// WithLogger sets the logger used by change streams.
func WithLogger(l *zap.Logger) Option {
	return func(db *DB) {
		if l != nil {
			db.logger = l
		}
	}
}

// Open creates a new SQLite connection with WAL mode and recommended pragmas.
// Transactions start IMMEDIATE so read-modify-write updates never fail on lock upgrade.
func Open(path string, opts ...Option) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	db := &DB{
		DB:     sqlDB,
		poll:   DefaultPollInterval,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

func (db *DB) notify(collection string) {
	if db.bus == nil {
		return
	}
	db.bus.Publish(bus.Event{
		Kind:      bus.DocChanged + collection,
		Timestamp: time.Now(),
		Payload:   collection,
	})
}
