// Package redis implements the store contract on one Redis hash per entry.
//
// Layout: <prefix><key> -> { v: codec bytes, exp: unix seconds, warn: counter }.
// IncrField and ReplaceField run as small Lua scripts so they stay atomic and
// refuse to create absent keys; Take is a scripted HGETALL+DEL. DeleteWhere
// and CountWhere SCAN the namespace and apply the predicate client-side, so
// they see a moving snapshot rather than a point in time - the same guarantee
// the policy layer is designed for.
//
// The lease-election counter lives in Redis, so the at-most-one-winner rule
// holds across processes sharing a namespace.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/leasecache/codec"
	"github.com/unkn0wn-root/leasecache/store"
)

var (
	ErrNilClient = errors.New("redis store: nil client")
	ErrNilCodec  = errors.New("redis store: nil codec")
)

const (
	fieldValue = "v"
	fieldExp   = "exp"
	fieldWarn  = "warn"

	scanBatch = 256
)

// takeScript reads and deletes a hash in one atomic step.
var takeScript = goredis.NewScript(`
local v = redis.call('HGETALL', KEYS[1])
if #v == 0 then return false end
redis.call('DEL', KEYS[1])
return v
`)

// incrScript is HINCRBY that refuses to create the key.
var incrScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return false end
return redis.call('HINCRBY', KEYS[1], ARGV[1], ARGV[2])
`)

// replaceScript is HSET that refuses to create the key.
var replaceScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return false end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
return 1
`)

type Store[V any] struct {
	rdb         goredis.UniversalClient
	codec       codec.Codec[V]
	prefix      string
	closeClient bool
	gone        atomic.Bool
}

var _ store.Store[any] = (*Store[any])(nil)

type Config[V any] struct {
	Client goredis.UniversalClient
	Codec  codec.Codec[V]
	// Namespace isolates this store's keys, e.g. "app:prod:user".
	Namespace string
	// CloseClient: set true only if this store exclusively owns the client.
	CloseClient bool
}

func New[V any](cfg Config[V]) (*Store[V], error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	if cfg.Codec == nil {
		return nil, ErrNilCodec
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = "leasecache"
	}
	return &Store[V]{
		rdb:         cfg.Client,
		codec:       cfg.Codec,
		prefix:      "entry:" + ns + ":",
		closeClient: cfg.CloseClient,
	}, nil
}

func (s *Store[V]) key(k string) string { return s.prefix + k }

func fieldName(f store.Field) (string, error) {
	switch f {
	case store.FieldExpireAt:
		return fieldExp, nil
	case store.FieldWarnCount:
		return fieldWarn, nil
	default:
		return "", store.ErrUnknownField
	}
}

func (s *Store[V]) Put(ctx context.Context, key string, rec store.Record[V]) error {
	if s.gone.Load() {
		return store.ErrGone
	}
	b, err := s.codec.Encode(rec.Value)
	if err != nil {
		return err
	}
	return s.rdb.HSet(ctx, s.key(key),
		fieldValue, b,
		fieldExp, rec.ExpireAt,
		fieldWarn, rec.WarnCount,
	).Err()
}

func (s *Store[V]) Lookup(ctx context.Context, key string) (store.Record[V], bool, error) {
	var zero store.Record[V]
	if s.gone.Load() {
		return zero, false, store.ErrGone
	}
	m, err := s.rdb.HGetAll(ctx, s.key(key)).Result()
	if err != nil {
		return zero, false, err
	}
	if len(m) == 0 {
		return zero, false, nil
	}
	rec, err := s.decode(key, m)
	if err != nil {
		return zero, false, err
	}
	return rec, true, nil
}

func (s *Store[V]) Take(ctx context.Context, key string) (store.Record[V], bool, error) {
	var zero store.Record[V]
	if s.gone.Load() {
		return zero, false, store.ErrGone
	}
	res, err := takeScript.Run(ctx, s.rdb, []string{s.key(key)}).Result()
	if errors.Is(err, goredis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	m, err := flattenReply(res)
	if err != nil {
		return zero, false, err
	}
	rec, err := s.decode(key, m)
	if err != nil {
		return zero, false, err
	}
	return rec, true, nil
}

// flattenReply converts takeScript's HGETALL-style array reply into a field
// map. Anything else under one of our keys is a protocol-level surprise and
// is surfaced as an error, not mistaken for a miss.
func flattenReply(res interface{}) (map[string]string, error) {
	flat, ok := res.([]interface{})
	if !ok {
		return nil, fmt.Errorf("redis store: unexpected take reply type %T", res)
	}
	m := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		f, ok := flat[i].(string)
		if !ok {
			return nil, fmt.Errorf("redis store: unexpected take reply field type %T", flat[i])
		}
		v, ok := flat[i+1].(string)
		if !ok {
			return nil, fmt.Errorf("redis store: unexpected take reply value type %T", flat[i+1])
		}
		m[f] = v
	}
	return m, nil
}

func (s *Store[V]) IncrField(ctx context.Context, key string, f store.Field, delta int64) (int64, error) {
	if s.gone.Load() {
		return 0, store.ErrGone
	}
	fn, err := fieldName(f)
	if err != nil {
		return 0, err
	}
	n, err := incrScript.Run(ctx, s.rdb, []string{s.key(key)}, fn, delta).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, store.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store[V]) ReplaceField(ctx context.Context, key string, f store.Field, v int64) error {
	if s.gone.Load() {
		return store.ErrGone
	}
	fn, err := fieldName(f)
	if err != nil {
		return err
	}
	err = replaceScript.Run(ctx, s.rdb, []string{s.key(key)}, fn, v).Err()
	if errors.Is(err, goredis.Nil) {
		return store.ErrNotFound
	}
	return err
}

func (s *Store[V]) DeleteWhere(ctx context.Context, pred func(store.Record[V]) bool) (int, error) {
	return s.scanWhere(ctx, pred, true)
}

func (s *Store[V]) CountWhere(ctx context.Context, pred func(store.Record[V]) bool) (int, error) {
	return s.scanWhere(ctx, pred, false)
}

func (s *Store[V]) scanWhere(ctx context.Context, pred func(store.Record[V]) bool, del bool) (int, error) {
	if s.gone.Load() {
		return 0, store.ErrGone
	}
	var (
		n      int
		cursor uint64
	)
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, s.prefix+"*", scanBatch).Result()
		if err != nil {
			return n, err
		}
		for _, k := range keys {
			m, err := s.rdb.HGetAll(ctx, k).Result()
			if err != nil {
				return n, err
			}
			if len(m) == 0 {
				continue // deleted mid-scan
			}
			rec, err := s.decode(strings.TrimPrefix(k, s.prefix), m)
			if err != nil {
				continue // foreign or corrupt entry under our prefix; skip
			}
			if !pred(rec) {
				continue
			}
			if del {
				if err := s.rdb.Del(ctx, k).Err(); err != nil {
					return n, err
				}
			}
			n++
		}
		cursor = next
		if cursor == 0 {
			return n, nil
		}
	}
}

// Destroy drops every key under the namespace and poisons the handle.
// Safe to call twice; repeated calls become no-ops.
func (s *Store[V]) Destroy(ctx context.Context) error {
	if s.gone.Swap(true) {
		return nil
	}
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, s.prefix+"*", scanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if s.closeClient {
		if err := s.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

func (s *Store[V]) decode(key string, m map[string]string) (store.Record[V], error) {
	var zero store.Record[V]
	v, err := s.codec.Decode([]byte(m[fieldValue]))
	if err != nil {
		return zero, err
	}
	exp, err := strconv.ParseInt(m[fieldExp], 10, 64)
	if err != nil {
		return zero, err
	}
	warn, err := strconv.ParseInt(m[fieldWarn], 10, 64)
	if err != nil {
		return zero, err
	}
	return store.Record[V]{Key: key, Value: v, ExpireAt: exp, WarnCount: warn}, nil
}
