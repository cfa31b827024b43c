// Package lock provides the single-flight guards tasks acquire before touching
// shared archive state.
package lock

import (
	"context"
	"sync"

	"TrendRadar/internal/ports"
)

// Local holds named locks inside the current process.
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

var _ ports.Locker = (*Local)(nil)

// NewLocal builds an empty in-process locker.
func NewLocal() *Local {
	return &Local{held: map[string]struct{}{}}
}

// TryLock grabs key when free. The returned unlock is idempotent.
func (l *Local) TryLock(_ context.Context, key string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[key]; busy {
		return nil, false, nil
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, true, nil
}
