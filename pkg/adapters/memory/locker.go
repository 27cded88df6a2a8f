package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// Locker implements ports.Locker for a single process.
// The TTL is ignored: a lock lives until it is unlocked.
type Locker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

// NewLocker creates an in-process locker.
func NewLocker() *Locker {
	return &Locker{held: make(map[string]chan struct{})}
}

// Lock blocks until key is free or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string, _ time.Duration) (ports.Lease, error) {
	for {
		l.mu.Lock()
		released, busy := l.held[key]
		if !busy {
			done := make(chan struct{})
			l.held[key] = done
			l.mu.Unlock()
			return &lease{locker: l, key: key, done: done}, nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-released:
		}
	}
}

type lease struct {
	locker *Locker
	key    string
	done   chan struct{}
	once   sync.Once
}

func (l *lease) Renew(context.Context, time.Duration) error {
	select {
	case <-l.done:
		return domain.ErrLockLost
	default:
		return nil
	}
}

func (l *lease) Unlock(context.Context) error {
	l.once.Do(func() {
		l.locker.mu.Lock()
		delete(l.locker.held, l.key)
		l.locker.mu.Unlock()
		close(l.done)
	})
	return nil
}
