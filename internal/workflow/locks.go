package workflow

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrSessionBusy is returned when a session's turn lock cannot be acquired in time.
var ErrSessionBusy = errors.New("session is busy")

// SessionLocks serializes turns per session token. Different tokens never block each other.
type SessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	sem  *semaphore.Weighted
	refs int
}

// NewSessionLocks creates an empty lock table.
func NewSessionLocks() *SessionLocks {
	return &SessionLocks{locks: make(map[string]*sessionLock)}
}

// Acquire blocks until the session's lock is held or ctx is done. The returned
// release func must be called exactly once.
func (l *SessionLocks) Acquire(ctx context.Context, token string) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[token]
	if !ok {
		lk = &sessionLock{sem: semaphore.NewWeighted(1)}
		l.locks[token] = lk
	}
	lk.refs++
	l.mu.Unlock()

	if err := lk.sem.Acquire(ctx, 1); err != nil {
		l.unref(token, lk)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrSessionBusy
		}
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			lk.sem.Release(1)
			l.unref(token, lk)
		})
	}, nil
}

func (l *SessionLocks) unref(token string, lk *sessionLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, token)
	}
}

// Len reports the number of sessions currently holding or waiting on a lock.
func (l *SessionLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
