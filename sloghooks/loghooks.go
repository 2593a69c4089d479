// Package sloghooks emits cache hook events to a *slog.Logger, with optional
// sampling for the per-read lease events and key redaction for logs that must
// not leak cache keys.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    LeaseEvery: 10, // sample: ~every 10th lease win/loss
//	})
//	hooks := asynchook.New(raw, 1, 1000) // or `raw` if you don't want async
//	defer hooks.Close()
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/leasecache"
)

type Options struct {
	// LeaseEvery samples the high-frequency lease events; 0/1 = log all.
	LeaseEvery uint64
	// Redact transforms keys before logging. Default hashes them.
	Redact func(key string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	leaseCtr atomic.Uint64
}

var _ leasecache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) LeaseWon(key string) {
	if h.l == nil || !sample(h.opts.LeaseEvery, &h.leaseCtr) {
		return
	}
	h.l.Debug("leasecache.lease_won", "key", h.redact(key))
}

func (h *Hooks) LeaseLost(key string) {
	if h.l == nil || !sample(h.opts.LeaseEvery, &h.leaseCtr) {
		return
	}
	h.l.Debug("leasecache.lease_lost", "key", h.redact(key))
}

func (h *Hooks) RefreshFailed(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("leasecache.refresh_failed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) RefreshDropped(key string) {
	if h.l == nil {
		return
	}
	h.l.Info("leasecache.refresh_dropped",
		"key", h.redact(key),
		"reason", "store gone")
}

func (h *Hooks) SweepDone(removed, remaining int) {
	if h.l == nil || removed == 0 {
		return
	}
	h.l.Debug("leasecache.sweep_done",
		"removed", removed,
		"remaining", remaining)
}
