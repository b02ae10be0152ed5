package store

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a single record was requested and none
	// matched.
	ErrNotFound = errors.New("not found")
	// ErrMultiple is returned by Get when more than one record matched.
	ErrMultiple = errors.New("multiple records returned")
)

// Scope narrows a gorm statement.
type Scope func(*gorm.DB) *gorm.DB

// Query is a lazily evaluated, chainable query over T. Every method returns
// a new Query; nothing touches the database until Count, Find, First or Get.
type Query[T any] struct {
	db       *gorm.DB
	scopes   []Scope
	orders   []string
	preloads []string
}

func newQuery[T any](db *gorm.DB) Query[T] {
	return Query[T]{db: db}
}

// Filter adds a scope.
func (q Query[T]) Filter(s Scope) Query[T] {
	q.scopes = append(slices.Clip(q.scopes), s)
	return q
}

// OrderBy appends an ORDER BY expression.
func (q Query[T]) OrderBy(expr string) Query[T] {
	q.orders = append(slices.Clip(q.orders), expr)
	return q
}

// Preload eager-loads the named associations on Find.
func (q Query[T]) Preload(assocs ...string) Query[T] {
	q.preloads = append(slices.Clip(q.preloads), assocs...)
	return q
}

func (q Query[T]) statement(ctx context.Context) *gorm.DB {
	tx := q.db.WithContext(ctx).Model(new(T))
	for _, s := range q.scopes {
		tx = s(tx)
	}
	return tx
}

// Count returns the number of matching rows.
func (q Query[T]) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := q.statement(ctx).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Find returns up to limit rows starting at offset. A limit <= 0 means no
// limit. A query with no matches returns an empty, non-nil slice.
func (q Query[T]) Find(ctx context.Context, offset, limit int) ([]T, error) {
	tx := q.statement(ctx)
	for _, o := range q.orders {
		tx = tx.Order(o)
	}
	for _, p := range q.preloads {
		tx = tx.Preload(p)
	}
	if offset > 0 {
		tx = tx.Offset(offset)
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}

	out := make([]T, 0)
	if err := tx.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	return out, nil
}

// All returns every matching row.
func (q Query[T]) All(ctx context.Context) ([]T, error) {
	return q.Find(ctx, 0, 0)
}

// First returns the first row in query order, or ErrNotFound.
func (q Query[T]) First(ctx context.Context) (*T, error) {
	rows, err := q.Find(ctx, 0, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// Get returns the single matching row. No match is ErrNotFound, more than
// one is ErrMultiple.
func (q Query[T]) Get(ctx context.Context) (*T, error) {
	rows, err := q.Find(ctx, 0, 2)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return &rows[0], nil
	default:
		return nil, ErrMultiple
	}
}
