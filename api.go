package leasecache

import (
	"context"
	"time"

	st "github.com/unkn0wn-root/leasecache/store"
)

// Status classifies the outcome of a read.
type Status int

const (
	NotFound Status = iota // key absent
	Found                  // key present and live (or renewed)
	Expired                // key present but past expiry; the value is still returned
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case Expired:
		return "expired"
	default:
		return "not_found"
	}
}

// LoaderFunc produces a value for Fetch on a miss, past expiry, or during a
// background refresh.
type LoaderFunc[V any] func(ctx context.Context) (V, error)

// Timing constants of the policy layer. All scheduling is done in whole
// seconds of the installed Clock.
const (
	// WarnWindow is how close to expiry a Fetch may trigger the refresh lease.
	WarnWindow = 30 * time.Second
	// LeaseTerm is how long an elected refresher keeps the stale entry alive.
	LeaseTerm = 60 * time.Second
	// SweepInterval is the spacing between scheduled purge passes.
	SweepInterval = 60 * time.Second

	// keepAliveGrace pads idle-timeout extensions so hot keys are not
	// re-extended on every read.
	keepAliveGrace = 30 * time.Second
)

// Cache is the concurrency-safe TTL / keep-alive policy layer over a Store.
// V is the caller's value type; values are held by the store as-is, no
// serialization happens at this layer.
type Cache[V any] interface {
	// Get reads key and classifies it. Expired entries are reported as
	// Expired but their value is still returned; physical removal is the
	// sweeper's job.
	Get(ctx context.Context, key string) (V, Status, error)

	// GetKeepAlive reads key and renews its idle timeout: the entry will
	// stay alive for at least keepAlive from now. A keep-alive read reports
	// Found even past expiry, since the caller is reviving the entry.
	// keepAlive < 0 is an argument error.
	GetKeepAlive(ctx context.Context, key string, keepAlive time.Duration) (V, Status, error)

	// Put overwrites key with value. ttl > 0 sets expiry to now+ttl,
	// otherwise the entry never expires. Put always clears any outstanding
	// refresh lease. Returns the stored value.
	Put(ctx context.Context, key string, value V, ttl time.Duration) (V, error)

	// Remove atomically takes the entry. ok is false when key was absent.
	Remove(ctx context.Context, key string) (v V, ok bool, err error)

	// Fetch returns a ready value for key, loading it when needed. On a hard
	// miss or past expiry the loader runs synchronously and its error
	// propagates. Inside the pre-expiry warning window exactly one caller
	// wins a refresh lease: it gets the stale value back immediately and the
	// loader runs in the background; concurrent callers just get the stale
	// value. With keepAlive set (and ttl > 0), reads renew the idle timeout
	// instead, which bypasses the lease machinery.
	Fetch(ctx context.Context, key string, ttl time.Duration, keepAlive bool, loader LoaderFunc[V]) (V, error)

	// RemoveExpired bulk-deletes every entry past its expiry and reschedules
	// the next sweep (or clears the schedule when no entry carries a TTL).
	RemoveExpired(ctx context.Context) error

	// SetClock installs clk for all subsequent operations; nil restores the
	// wall clock. The sweep schedule is re-armed to fire SweepInterval from
	// the new clock's now.
	SetClock(clk Clock)

	// Clock returns the currently installed clock.
	Clock() Clock

	// Close destroys the underlying store. Later operations fail with
	// store.ErrGone.
	Close(ctx context.Context) error
}

// Options tune a cache instance. Only Store is required.
type Options[V any] struct {
	// Required.
	Store st.Store[V]

	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used
	Clock  Clock  // if nil, WallClock is used
}

func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}
