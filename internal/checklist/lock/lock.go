// Package lock provides the exclusive per-application generation lock. A
// caller that cannot acquire the lock within the acquisition timeout observes
// the current processing state instead of blocking.
package lock

import "context"

// ReleaseFunc releases a held lock. Safe to call once; releases of expired
// leases are no-ops.
type ReleaseFunc func(ctx context.Context)

// Locker guards the transition into the processing state. Acquire returns
// sentinel.ErrLockHeld (possibly wrapped) when another worker owns the lock
// for the application and the acquisition timeout elapses.
type Locker interface {
	Acquire(ctx context.Context, applicationID string) (ReleaseFunc, error)
}
