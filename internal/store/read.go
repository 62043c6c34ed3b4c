package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Get returns a document by id, or nil if it does not exist.
func (db *DB) Get(ctx context.Context, collection, id string) (*Doc, error) {
	var raw string
	var updated int64
	err := db.QueryRowContext(ctx,
		`SELECT data, updated_at FROM documents WHERE collection = ? AND id = ?`,
		collection, id).Scan(&raw, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	fields, err := decodeFields(raw)
	if err != nil {
		return nil, err
	}
	return &Doc{Collection: collection, ID: id, Fields: fields, UpdatedAt: updated}, nil
}

// Find runs a one-shot query.
func (db *DB) Find(ctx context.Context, q Query) ([]Doc, error) {
	stmt, args, err := q.sql()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", q.collection, err)
	}
	defer func() { _ = rows.Close() }()

	var docs []Doc
	for rows.Next() {
		var id, raw string
		var updated int64
		if err := rows.Scan(&id, &raw, &updated); err != nil {
			return nil, err
		}
		fields, err := decodeFields(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, Doc{Collection: q.collection, ID: id, Fields: fields, UpdatedAt: updated})
	}
	return docs, rows.Err()
}

// First returns the first match of q, or nil.
func (db *DB) First(ctx context.Context, q Query) (*Doc, error) {
	docs, err := db.Find(ctx, q.Limit(1))
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return &docs[0], nil
}
