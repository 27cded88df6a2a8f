package ports

import (
	"context"
	"time"
)

// Lease is a held lock.
type Lease interface {
	// Renew extends the lock to ttl from now. It fails with domain.ErrLockLost once the
	// lock expired or was released.
	Renew(ctx context.Context, ttl time.Duration) error
	// Unlock releases the lock. Unlocking twice is a no-op.
	Unlock(ctx context.Context) error
}

// Locker grants exclusive editing rights on a tree.
type Locker interface {
	// Lock acquires the lock for key. It blocks until the lock is acquired or the context
	// is canceled. The TTL bounds how long a crashed holder can keep the lock; live
	// holders keep it with Lease.Renew.
	// The returned Lease MUST be unlocked.
	Lock(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}
