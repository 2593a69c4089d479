// Package leasecache implements a concurrency-safe key-value cache policy
// layer over a pluggable associative store. It adds per-entry TTL expiry,
// idle-timeout renewal on access, load-or-compute with automatic reload, a
// single-flight refresh lease against thundering herds on hot keys, and lazy
// plus scheduled purging of expired entries.
//
// Components:
//   - store.Store[V]: the container contract. Point operations are atomic
//     per key; no cross-key transactions are assumed. store/local is the
//     in-process default, store/redis a remote option.
//   - Clock: the cache's notion of now. Install a ManualClock via SetClock
//     to drive expiry deterministically in tests.
//   - Logger / Hooks: observability without error plumbing on hot paths.
//
// Reads classify an entry as Found, Expired (the value is still returned) or
// NotFound. Fetch always hands back a ready value: on a hard miss or past
// expiry it reloads synchronously, while inside the WarnWindow before expiry
// exactly one caller wins a LeaseTerm refresh lease and reloads in the
// background as everyone else keeps the stale value.
//
//	c, _ := leasecache.New[User](leasecache.Options[User]{
//	    Store: local.New[User](),
//	})
//	u, err := c.Fetch(ctx, "u:1", 10*time.Minute, false, loadUser)
package leasecache
