package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Add creates a document with a generated id and returns the id.
func (db *DB) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.NewString()
	if err := db.Set(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

// Set creates or fully replaces a document.
func (db *DB) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	for k := range fields {
		if err := validField(k); err != nil {
			return err
		}
	}
	return db.mutate(ctx, collection, id, func(_ map[string]any, _ bool) (map[string]any, error) {
		return cloneFields(fields), nil
	})
}

// Merge applies patch to a document, creating it empty first when missing.
func (db *DB) Merge(ctx context.Context, collection, id string, patch map[string]any) error {
	return db.mutate(ctx, collection, id, func(cur map[string]any, _ bool) (map[string]any, error) {
		return cur, applyPatch(cur, patch)
	})
}

// Update applies patch to an existing document. Patch values may be Increment(n)
// or DeleteField. Returns ErrNotFound when the document does not exist.
func (db *DB) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	return db.UpdateIf(ctx, collection, id, nil, patch)
}

// UpdateIf is Update guarded by conditions evaluated against the stored
// document inside the same transaction. Returns ErrConditionFailed when they
// do not hold.
func (db *DB) UpdateIf(ctx context.Context, collection, id string, conds []Cond, patch map[string]any) error {
	return db.mutate(ctx, collection, id, func(cur map[string]any, exists bool) (map[string]any, error) {
		if !exists {
			return nil, ErrNotFound
		}
		if !condsMatch(conds, cur) {
			return nil, ErrConditionFailed
		}
		return cur, applyPatch(cur, patch)
	})
}

// Delete removes a document. Returns ErrNotFound when it does not exist.
func (db *DB) Delete(ctx context.Context, collection, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT data FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load %s/%s: %w", collection, id, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if err := appendChange(ctx, tx, collection, id, "delete", raw); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	db.notify(collection)
	return nil
}

// mutate loads the current document (empty when missing), lets fn produce
// the new field set, and persists it together with a changes log row.
func (db *DB) mutate(ctx context.Context, collection, id string, fn func(cur map[string]any, exists bool) (map[string]any, error)) error {
	if collection == "" || id == "" {
		return fmt.Errorf("collection and id are required")
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cur := make(map[string]any)
	exists := true
	var raw string
	err = tx.QueryRowContext(ctx, `SELECT data FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		exists = false
	case err != nil:
		return fmt.Errorf("load %s/%s: %w", collection, id, err)
	default:
		if cur, err = decodeFields(raw); err != nil {
			return err
		}
	}

	next, err := fn(cur, exists)
	if err != nil {
		return err
	}
	data, err := encodeFields(next)
	if err != nil {
		return err
	}

	now := time.Now().UnixMilli()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`,
		collection, id, data, now, now); err != nil {
		return fmt.Errorf("write %s/%s: %w", collection, id, err)
	}
	if err := appendChange(ctx, tx, collection, id, "put", data); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	db.notify(collection)
	return nil
}

func appendChange(ctx context.Context, tx *sql.Tx, collection, id, kind, data string) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO changes (collection, doc_id, kind, data, at)
		VALUES (?, ?, ?, ?, ?)`,
		collection, id, kind, data, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("append change %s/%s: %w", collection, id, err)
	}
	return nil
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
