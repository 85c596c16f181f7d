package app

import (
	"context"
	"sync"

	"quiz-attempt-service/internal/domain"
)

// localLock is the single-process SubmitLock used when no shared lock is configured.
type localLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newLocalLock() *localLock {
	return &localLock{held: make(map[string]struct{})}
}

func (l *localLock) Acquire(_ context.Context, attemptID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[attemptID]; busy {
		return nil, domain.ErrSubmitInProgress
	}
	l.held[attemptID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, attemptID)
			l.mu.Unlock()
		})
	}, nil
}
