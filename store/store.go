// Package store defines the associative container contract the cache policy
// layer runs against, plus the errors shared by its implementations.
//
// Implementations MUST provide per-key atomicity for Put, Lookup, Take,
// IncrField and ReplaceField. No cross-key transactional guarantee is
// assumed; the policy layer is designed to stay correct under per-key
// atomicity alone. DeleteWhere and CountWhere may observe a moving snapshot
// while other callers mutate the store.
package store

import (
	"context"
	"errors"
)

var (
	// ErrGone reports an operation attempted against a destroyed store.
	ErrGone = errors.New("store: gone")
	// ErrNotFound reports a field operation against an absent key.
	ErrNotFound = errors.New("store: key not found")
	// ErrUnknownField reports a Field outside the declared set.
	ErrUnknownField = errors.New("store: unknown field")
)

// Field names one of the integer record fields that support atomic
// increment/replace.
type Field int

const (
	// FieldExpireAt is the entry's expiry in unix seconds; 0 means "never".
	FieldExpireAt Field = iota
	// FieldWarnCount is the refresh-lease election counter.
	FieldWarnCount
)

// Record is one cache entry as the store sees it. Lookup and Take return
// value snapshots; mutating a returned Record never changes the store.
type Record[V any] struct {
	Key       string
	Value     V
	ExpireAt  int64 // unix seconds; 0 = no expiry
	WarnCount int64
}

// Store is a handle-addressed associative container. All implementations
// must be safe for concurrent use.
type Store[V any] interface {
	// Put inserts or overwrites the record under key, atomically.
	Put(ctx context.Context, key string, rec Record[V]) error

	// Lookup returns a point-read snapshot of the record.
	Lookup(ctx context.Context, key string) (Record[V], bool, error)

	// Take atomically removes the record and returns it.
	Take(ctx context.Context, key string) (Record[V], bool, error)

	// IncrField atomically adds delta to an integer field and returns the
	// post-increment value. Returns ErrNotFound when the key is absent.
	IncrField(ctx context.Context, key string, f Field, delta int64) (int64, error)

	// ReplaceField atomically overwrites an integer field.
	// Returns ErrNotFound when the key is absent.
	ReplaceField(ctx context.Context, key string, f Field, v int64) error

	// DeleteWhere removes every record matching pred and reports how many.
	DeleteWhere(ctx context.Context, pred func(Record[V]) bool) (int, error)

	// CountWhere reports how many records match pred without mutating.
	CountWhere(ctx context.Context, pred func(Record[V]) bool) (int, error)

	// Destroy releases the whole store. Afterwards every operation on any
	// key fails with ErrGone. Destroy itself is idempotent.
	Destroy(ctx context.Context) error
}
