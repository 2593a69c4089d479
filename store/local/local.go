// Package local provides the default in-process store: a mutex-guarded map
// of records held by reference. Most callers want this backend; see
// store/redis for a remote one.
package local

import (
	"context"
	"sync"

	"github.com/unkn0wn-root/leasecache/store"
)

type record[V any] struct {
	value     V
	expireAt  int64
	warnCount int64
}

// Store keeps all records behind a single RWMutex. Point operations take the
// lock for their whole critical section, which gives the per-key atomicity
// the store contract requires.
type Store[V any] struct {
	mu   sync.RWMutex
	recs map[string]*record[V]
	gone bool
}

var _ store.Store[any] = (*Store[any])(nil)

func New[V any]() *Store[V] {
	return &Store[V]{recs: make(map[string]*record[V])}
}

func (s *Store[V]) Put(_ context.Context, key string, rec store.Record[V]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gone {
		return store.ErrGone
	}
	s.recs[key] = &record[V]{value: rec.Value, expireAt: rec.ExpireAt, warnCount: rec.WarnCount}
	return nil
}

func (s *Store[V]) Lookup(_ context.Context, key string) (store.Record[V], bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.gone {
		return store.Record[V]{}, false, store.ErrGone
	}
	r, ok := s.recs[key]
	if !ok {
		return store.Record[V]{}, false, nil
	}
	return snapshot(key, r), true, nil
}

func (s *Store[V]) Take(_ context.Context, key string) (store.Record[V], bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gone {
		return store.Record[V]{}, false, store.ErrGone
	}
	r, ok := s.recs[key]
	if !ok {
		return store.Record[V]{}, false, nil
	}
	delete(s.recs, key)
	return snapshot(key, r), true, nil
}

func (s *Store[V]) IncrField(_ context.Context, key string, f store.Field, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gone {
		return 0, store.ErrGone
	}
	r, ok := s.recs[key]
	if !ok {
		return 0, store.ErrNotFound
	}
	switch f {
	case store.FieldExpireAt:
		r.expireAt += delta
		return r.expireAt, nil
	case store.FieldWarnCount:
		r.warnCount += delta
		return r.warnCount, nil
	default:
		return 0, store.ErrUnknownField
	}
}

func (s *Store[V]) ReplaceField(_ context.Context, key string, f store.Field, v int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gone {
		return store.ErrGone
	}
	r, ok := s.recs[key]
	if !ok {
		return store.ErrNotFound
	}
	switch f {
	case store.FieldExpireAt:
		r.expireAt = v
	case store.FieldWarnCount:
		r.warnCount = v
	default:
		return store.ErrUnknownField
	}
	return nil
}

func (s *Store[V]) DeleteWhere(_ context.Context, pred func(store.Record[V]) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gone {
		return 0, store.ErrGone
	}
	n := 0
	for key, r := range s.recs {
		if pred(snapshot(key, r)) {
			delete(s.recs, key)
			n++
		}
	}
	return n, nil
}

func (s *Store[V]) CountWhere(_ context.Context, pred func(store.Record[V]) bool) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.gone {
		return 0, store.ErrGone
	}
	n := 0
	for key, r := range s.recs {
		if pred(snapshot(key, r)) {
			n++
		}
	}
	return n, nil
}

// Destroy drops every record and poisons the handle. Safe to call twice.
func (s *Store[V]) Destroy(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gone = true
	s.recs = nil
	return nil
}

func snapshot[V any](key string, r *record[V]) store.Record[V] {
	return store.Record[V]{Key: key, Value: r.value, ExpireAt: r.expireAt, WarnCount: r.warnCount}
}
