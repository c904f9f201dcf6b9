package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrStaleRow is returned by repositories when an optimistic-concurrency
// update matched no row because the lock version moved underneath it.
var ErrStaleRow = errors.New("stale row: lock version mismatch")

// Base provides a shared foundation for domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Bind returns a Base backed by the provided transaction so several
// repository operations can share one unit of work.
func (b Base) Bind(tx *gorm.DB) Base {
	return Base{db: tx}
}
