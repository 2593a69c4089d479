package leasecache

// Hooks are lightweight callbacks for high-signal cache events.
// Implementations MUST be cheap and non-blocking; the cache calls them on hot
// paths. Wrap with hooks/async to move slow sinks off-path.
type Hooks interface {
	// A reader won the refresh lease for key and will reload it in the
	// background.
	LeaseWon(key string)

	// A reader hit the warning window while another caller held the lease;
	// it was served the stale value instead.
	LeaseLost(key string)

	// The background refresh for key failed. The error never reaches a
	// caller: the stale value keeps serving and the lease reopens after
	// LeaseTerm.
	RefreshFailed(key string, err error)

	// The background refresh for key completed, but the store was destroyed
	// before the write; the result was discarded.
	RefreshDropped(key string)

	// A sweep finished: removed entries were purged, remaining entries still
	// carry a TTL.
	SweepDone(removed, remaining int)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) LeaseWon(string)             {}
func (NopHooks) LeaseLost(string)            {}
func (NopHooks) RefreshFailed(string, error) {}
func (NopHooks) RefreshDropped(string)       {}
func (NopHooks) SweepDone(int, int)          {}
