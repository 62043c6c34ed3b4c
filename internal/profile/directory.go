// Package profile reads and writes public user profiles.
package profile

import (
	"context"
	"fmt"

	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/zap"
)

// Directory resolves user ids to public profiles.
type Directory struct {
	db     *store.DB
	logger *zap.Logger
}

// NewDirectory creates a profile directory over the users collection.
func NewDirectory(db *store.DB, logger *zap.Logger) *Directory {
	return &Directory{db: db, logger: logger}
}

// Get returns the stored profile, or nil when the user has none.
func (d *Directory) Get(ctx context.Context, id string) (*model.UserProfile, error) {
	doc, err := d.db.Get(ctx, model.Users, id)
	if err != nil || doc == nil {
		return nil, err
	}
	p := model.ProfileFromDoc(*doc)
	return &p, nil
}

// Lookup never fails: a missing or unreadable profile yields one carrying only the id.
func (d *Directory) Lookup(ctx context.Context, id string) model.UserProfile {
	p, err := d.Get(ctx, id)
	if err != nil {
		d.logger.Warn("profile lookup failed", zap.String("user", id), zap.Error(err))
	}
	if p == nil {
		return model.UserProfile{ID: id}
	}
	return *p
}

// Register creates or replaces the caller's own profile.
func (d *Directory) Register(ctx context.Context, p model.UserProfile) error {
	if p.ID == "" {
		return fmt.Errorf("profile id is required")
	}
	if err := d.db.Set(ctx, model.Users, p.ID, p.Fields()); err != nil {
		return fmt.Errorf("register profile: %w", err)
	}
	return nil
}
