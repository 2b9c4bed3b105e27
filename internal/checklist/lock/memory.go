package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"visadesk/pkg/platform/sentinel"
)

// InMemory implements Locker for single-process deployments and tests.
type InMemory struct {
	mu      sync.Mutex
	held    map[string]bool
	timeout time.Duration
}

// NewInMemory builds an in-process locker with the given acquisition timeout.
func NewInMemory(timeout time.Duration) *InMemory {
	return &InMemory{
		held:    make(map[string]bool),
		timeout: timeout,
	}
}

// Acquire polls for the lock until the acquisition timeout elapses. The poll
// interval is coarse on purpose; callers that lose the race are expected to
// give up and report the processing state.
func (l *InMemory) Acquire(ctx context.Context, applicationID string) (ReleaseFunc, error) {
	deadline := time.Now().Add(l.timeout)

	for {
		if l.tryAcquire(applicationID) {
			return func(context.Context) { l.release(applicationID) }, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("generation lock for %s: %w", applicationID, sentinel.ErrLockHeld)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func (l *InMemory) tryAcquire(applicationID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[applicationID] {
		return false
	}
	l.held[applicationID] = true
	return true
}

func (l *InMemory) release(applicationID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, applicationID)
}
