// Package asynchook decouples hook sinks from the cache's hot paths: events
// are queued to a bounded channel and delivered by worker goroutines. When
// the queue is full, events are dropped rather than blocking a cache call.
package asynchook

import (
	"sync"

	"github.com/unkn0wn-root/leasecache"
)

type Hooks struct {
	inner leasecache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ leasecache.Hooks = (*Hooks)(nil)

func New(inner leasecache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers.
func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) LeaseWon(k string)       { h.try(func() { h.inner.LeaseWon(k) }) }
func (h *Hooks) LeaseLost(k string)      { h.try(func() { h.inner.LeaseLost(k) }) }
func (h *Hooks) RefreshDropped(k string) { h.try(func() { h.inner.RefreshDropped(k) }) }
func (h *Hooks) RefreshFailed(k string, err error) {
	h.try(func() { h.inner.RefreshFailed(k, err) })
}
func (h *Hooks) SweepDone(removed, remaining int) {
	h.try(func() { h.inner.SweepDone(removed, remaining) })
}
