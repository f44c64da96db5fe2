package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	fcerrors "github.com/faircombine/faircombine/internal/errors"
)

// LockRegistry keys mutual-exclusion locks by session id. Locks are
// created lazily on first reference and removed only on explicit
// session deletion. Every read-modify-write sequence against a session
// document must run between Acquire and the returned release func.
//
// Each lock is a weighted semaphore of capacity one so acquisition can
// be bounded by a context deadline; a human edit and an automated
// evaluator callback racing on the same session serialize here instead
// of clobbering each other's writes.
type LockRegistry struct {
	mu      sync.Mutex
	locks   map[string]*semaphore.Weighted
	timeout time.Duration
}

// NewLockRegistry creates a registry with the given bounded wait for
// each acquisition.
func NewLockRegistry(timeout time.Duration) *LockRegistry {
	return &LockRegistry{
		locks:   make(map[string]*semaphore.Weighted),
		timeout: timeout,
	}
}

// Acquire takes the lock for a session, waiting at most the configured
// timeout. On success it returns a release func the caller must invoke
// on every path, including errors. On timeout it returns
// ErrLockTimeout, which is retryable: no partial state exists because
// the lock wraps the entire load-mutate-persist sequence.
func (r *LockRegistry) Acquire(ctx context.Context, sessionID string) (func(), error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id", fcerrors.ErrEmptyValue)
	}
	sem := r.lockFor(sessionID)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: session %s", fcerrors.ErrLockTimeout, sessionID)
	}
	return func() { sem.Release(1) }, nil
}

// Forget drops the lock for a deleted session. Callers must hold no
// reference to the session afterwards; a concurrent Acquire for the
// same id simply recreates the lock.
func (r *LockRegistry) Forget(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locks, sessionID)
}

// lockFor returns the lock for a session, creating it on first
// reference.
func (r *LockRegistry) lockFor(sessionID string) *semaphore.Weighted {
	r.mu.Lock()
	defer r.mu.Unlock()
	sem, ok := r.locks[sessionID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		r.locks[sessionID] = sem
	}
	return sem
}
