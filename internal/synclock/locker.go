// Package synclock serializes calendar sync runs per host so two triggers
// cannot interleave token refreshes or clobber the sync cursor.
package synclock

import (
	"context"
	"sync"
	"time"

	"github.com/BruksfildServices01/portal-scheduler/internal/httperr"
)

var ErrLocked = httperr.ErrBusiness("sync_in_progress")

type Locker interface {
	// Acquire returns a release func, or ErrLocked when the key is held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// MemoryLocker is the in-process fallback used when Redis is not configured,
// and in tests. Good enough for a single API instance.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]time.Time)}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if until, ok := l.held[key]; ok && time.Now().Before(until) {
		return nil, ErrLocked
	}

	l.held[key] = time.Now().Add(ttl)

	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}
	return release, nil
}

var _ Locker = (*MemoryLocker)(nil)
