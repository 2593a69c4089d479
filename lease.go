package leasecache

import (
	"context"
	"errors"
	"time"

	"github.com/unkn0wn-root/leasecache/store"
)

// electLease runs the single-flight election for an entry inside the warning
// window. The post-increment warn count is the only synchronization needed:
// exactly one caller per window observes 1 and wins LeaseTerm of extra
// lifetime to recompute the value. Everyone else keeps reading the
// still-valid stale value.
//
// If the winner never finishes, the lease simply runs out after LeaseTerm and
// the entry falls back to ordinary expired handling; a later caller can win a
// fresh lease because Put resets the count.
func (c *cache[V]) electLease(ctx context.Context, key string, now int64) readStatus {
	n, err := c.store.IncrField(ctx, key, store.FieldWarnCount, 1)
	if err != nil {
		// Entry vanished between lookup and election; the snapshot we hold
		// is still the best answer.
		return readFound
	}
	if n != 1 {
		c.hooks.LeaseLost(key)
		return readFound
	}
	if err := c.store.ReplaceField(ctx, key, store.FieldExpireAt, now+seconds(LeaseTerm)); err != nil {
		return readFound
	}
	c.hooks.LeaseWon(key)
	c.log.Debug("refresh lease won", Fields{"key": key})
	return readWarn
}

// refresh recomputes a leased entry off the caller's critical path. Nothing
// waits on it, so failures are reported through hooks and logs only: a failed
// loader leaves the stale value serving until the lease runs out, and a write
// against a destroyed store is dropped.
func (c *cache[V]) refresh(ctx context.Context, key string, ttl time.Duration, loader LoaderFunc[V]) {
	v, err := loader(ctx)
	if err != nil {
		c.hooks.RefreshFailed(key, err)
		c.log.Warn("background refresh failed", Fields{"key": key, "err": err})
		return
	}
	if _, err := c.Put(ctx, key, v, ttl); err != nil {
		if errors.Is(err, store.ErrGone) {
			c.hooks.RefreshDropped(key)
			return
		}
		c.hooks.RefreshFailed(key, err)
		c.log.Warn("background refresh write failed", Fields{"key": key, "err": err})
	}
}
