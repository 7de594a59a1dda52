// Package store persists quota catalog snapshots keyed by account and
// region. Entries never expire on their own; staleness is resolved by an
// explicit bypass or clear from the caller.
package store

import (
	"context"
	"errors"

	"github.com/yuxishi/aws-quota-compare/internal/model"
)

var (
	// ErrNotFound is returned when no entry exists for a key.
	ErrNotFound = errors.New("cache entry not found")

	// ErrCorrupt is returned when a persisted entry cannot be decoded or
	// carries an incompatible schema version. Callers treat it as a miss.
	ErrCorrupt = errors.New("cache entry corrupt")
)

// Store is a durable key/value layer for catalog snapshots. Put must be
// atomic per key: a concurrent Get never observes a partially written entry.
type Store interface {
	Get(ctx context.Context, key model.CacheKey) (*model.CacheEntry, error)
	Put(ctx context.Context, key model.CacheKey, entry model.CacheEntry) error
	Delete(ctx context.Context, key model.CacheKey) error
	Clear(ctx context.Context) error
	Keys(ctx context.Context) ([]model.CacheKey, error)
}
