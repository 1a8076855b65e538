// Package repo holds the connection plumbing shared by gorm repositories.
package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base carries the gorm handle a repository reads and writes through. The
// handle is either the pool or an open transaction.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the handle bound to ctx. A nil ctx yields the raw handle, which
// callers inside a transaction callback rely on.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Bound returns a copy of b that issues its queries on tx.
func (b Base) Bound(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}
