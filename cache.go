package leasecache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/leasecache/store"
)

// readStatus is the internal classification; readWarn is reachable only from
// the Fetch path and collapses to Found for public callers.
type readStatus int

const (
	readNotFound readStatus = iota
	readFound
	readExpired
	readWarn
)

func (s readStatus) public() Status {
	switch s {
	case readFound, readWarn:
		return Found
	case readExpired:
		return Expired
	default:
		return NotFound
	}
}

type cache[V any] struct {
	store store.Store[V]
	log   Logger
	hooks Hooks

	// clock and sweep schedule form the per-store cache state. The clock is
	// swapped rarely (tests); the schedule is checked on every operation.
	clockMu sync.RWMutex
	clock   Clock

	nextSweepAt atomic.Int64 // unix seconds; 0 = no sweep scheduled
}

func newCache[V any](opts Options[V]) (*cache[V], error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("leasecache: store is required")
	}
	c := &cache[V]{store: opts.Store}
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.clock = opts.Clock
	if c.clock == nil {
		c.clock = WallClock{}
	}
	return c, nil
}

func (c *cache[V]) Clock() Clock {
	c.clockMu.RLock()
	defer c.clockMu.RUnlock()
	return c.clock
}

// SetClock starts a new time era for all subsequent calls; in-flight
// operations may still observe the old clock. The sweep schedule is re-armed
// unconditionally so a jumped clock cannot strand it in the far future.
func (c *cache[V]) SetClock(clk Clock) {
	if clk == nil {
		clk = WallClock{}
	}
	c.clockMu.Lock()
	c.clock = clk
	c.clockMu.Unlock()
	c.armSweep(clk.Now().Unix())
}

func (c *cache[V]) now() int64 { return c.Clock().Now().Unix() }

func (c *cache[V]) Get(ctx context.Context, key string) (V, Status, error) {
	v, st, err := c.read(ctx, key, 0, false, false)
	return v, st.public(), err
}

func (c *cache[V]) GetKeepAlive(ctx context.Context, key string, keepAlive time.Duration) (V, Status, error) {
	if keepAlive < 0 {
		var zero V
		return zero, NotFound, fmt.Errorf("leasecache: negative keep-alive %v", keepAlive)
	}
	v, st, err := c.read(ctx, key, keepAlive, true, false)
	return v, st.public(), err
}

func (c *cache[V]) Put(ctx context.Context, key string, value V, ttl time.Duration) (V, error) {
	var zero V
	now := c.now()
	var exp int64
	if ttl > 0 {
		exp = now + seconds(ttl)
	}
	// WarnCount zero: overwriting always releases any outstanding lease.
	rec := store.Record[V]{Key: key, Value: value, ExpireAt: exp}
	if err := c.store.Put(ctx, key, rec); err != nil {
		return zero, err
	}
	if exp != 0 && c.nextSweepAt.Load() == 0 {
		c.armSweep(now)
	} else {
		c.maybeSweep(ctx, now)
	}
	return value, nil
}

func (c *cache[V]) Remove(ctx context.Context, key string) (V, bool, error) {
	var zero V
	rec, ok, err := c.store.Take(ctx, key)
	if err != nil {
		return zero, false, err
	}
	c.maybeSweep(ctx, c.now())
	if !ok {
		return zero, false, nil
	}
	return rec.Value, true, nil
}

func (c *cache[V]) Fetch(ctx context.Context, key string, ttl time.Duration, keepAlive bool, loader LoaderFunc[V]) (V, error) {
	var zero V
	if loader == nil {
		return zero, fmt.Errorf("leasecache: loader is required")
	}

	// Keep-alive mode reuses ttl as the idle timeout; without a ttl there is
	// nothing to renew.
	var ka time.Duration
	hasKA := keepAlive && ttl > 0
	if hasKA {
		ka = ttl
	}

	v, st, err := c.read(ctx, key, ka, hasKA, true)
	if err != nil {
		return zero, err
	}
	switch st {
	case readFound:
		return v, nil
	case readWarn:
		// Lease won: serve the stale value now, recompute off-path. The
		// caller's cancellation must not kill the refresh.
		go c.refresh(context.WithoutCancel(ctx), key, ttl, loader)
		return v, nil
	default: // readExpired, readNotFound
		nv, err := loader(ctx)
		if err != nil {
			return zero, err
		}
		return c.Put(ctx, key, nv, ttl)
	}
}

func (c *cache[V]) Close(ctx context.Context) error {
	return c.store.Destroy(ctx)
}

// read implements the shared lookup path: classify, optionally run the lease
// election, renew the idle timeout, and keep the sweep schedule honest.
func (c *cache[V]) read(ctx context.Context, key string, keepAlive time.Duration, hasKeepAlive, warn bool) (V, readStatus, error) {
	var zero V
	now := c.now()

	rec, ok, err := c.store.Lookup(ctx, key)
	if err != nil {
		return zero, readNotFound, err
	}
	if !ok {
		c.maybeSweep(ctx, now)
		return zero, readNotFound, nil
	}

	st := classify(rec, now, hasKeepAlive, warn)
	if st == readWarn {
		st = c.electLease(ctx, key, now)
	}

	if hasKeepAlive {
		// Extend only when the remaining lifetime would fall short of the
		// requested idle timeout; the grace keeps hot keys from writing the
		// expiry field on every read.
		ka := seconds(keepAlive)
		grace := seconds(keepAliveGrace)
		if rec.ExpireAt == 0 || now+ka >= rec.ExpireAt+grace {
			err := c.store.ReplaceField(ctx, key, store.FieldExpireAt, now+ka+grace)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return zero, readNotFound, err
			}
		}
	}

	if (rec.ExpireAt != 0 || hasKeepAlive) && c.nextSweepAt.Load() == 0 {
		c.armSweep(now)
	} else {
		c.maybeSweep(ctx, now)
	}
	return rec.Value, st, nil
}

// classify applies the read rules in priority order; first match wins.
func classify[V any](rec store.Record[V], now int64, keepAlive, warn bool) readStatus {
	switch {
	case rec.ExpireAt == 0 && !keepAlive:
		return readFound
	case keepAlive:
		// The caller is about to renew the idle timeout; expiry is moot.
		return readFound
	case warn && rec.WarnCount == 0 && now < rec.ExpireAt && rec.ExpireAt <= now+seconds(WarnWindow):
		return readWarn
	case rec.ExpireAt >= now:
		return readFound
	default:
		return readExpired
	}
}

func seconds(d time.Duration) int64 { return int64(d / time.Second) }
