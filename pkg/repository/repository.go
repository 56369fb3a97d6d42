// Package repository provides a small generic store over gorm for reference
// data and simple lookups. Aggregates with invariants keep their own
// repositories inside their feature packages.
package repository

import (
	"context"

	"gorm.io/gorm"
)

// Scope narrows a query, gorm style.
type Scope func(*gorm.DB) *gorm.DB

// Repository is a typed store over a single table.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, scopes ...Scope) ([]*T, error)
	FindOne(ctx context.Context, query *T, scopes ...Scope) (*T, error)
	Create(ctx context.Context, resource *T) error
	Count(ctx context.Context, query *T) (int64, error)
}

// OrderBy sorts results by the given clause.
func OrderBy(clause string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(clause)
	}
}

// Limit caps the result set.
func Limit(n int) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Limit(n)
	}
}
