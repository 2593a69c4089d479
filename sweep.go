package leasecache

import (
	"context"
	"errors"

	"github.com/unkn0wn-root/leasecache/store"
)

// RemoveExpired bulk-deletes every entry past its expiry, then reschedules
// itself: if any entry still carries a TTL the next sweep is armed at
// now+SweepInterval, otherwise the schedule is cleared so a TTL-free store
// never sweeps. Idempotent and safe to run concurrently; a racing sweep at
// worst re-deletes already-gone keys or recomputes the same schedule.
func (c *cache[V]) RemoveExpired(ctx context.Context) error {
	now := c.now()
	removed, err := c.store.DeleteWhere(ctx, func(r store.Record[V]) bool {
		return r.ExpireAt != 0 && r.ExpireAt < now
	})
	if err != nil {
		return err
	}
	remaining, err := c.store.CountWhere(ctx, func(r store.Record[V]) bool {
		return r.ExpireAt != 0
	})
	if err != nil {
		return err
	}
	if remaining > 0 {
		c.armSweep(now)
	} else {
		c.nextSweepAt.Store(0)
	}
	c.hooks.SweepDone(removed, remaining)
	if removed > 0 {
		c.log.Debug("sweep removed expired entries", Fields{"removed": removed, "remaining": remaining})
	}
	return nil
}

func (c *cache[V]) armSweep(now int64) {
	c.nextSweepAt.Store(now + seconds(SweepInterval))
}

// maybeSweep runs the scheduled purge inline when its time has come. The
// sweep piggybacks on ordinary operations, so its failure must not fail the
// operation that happened to trigger it.
func (c *cache[V]) maybeSweep(ctx context.Context, now int64) {
	at := c.nextSweepAt.Load()
	if at == 0 || now < at {
		return
	}
	if err := c.RemoveExpired(ctx); err != nil && !errors.Is(err, store.ErrGone) {
		c.log.Warn("opportunistic sweep failed", Fields{"err": err})
	}
}
