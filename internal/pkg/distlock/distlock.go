// Package distlock provides cross-process mutual exclusion for one-off jobs
// such as schema migrations, backed by Redis or PostgreSQL advisory locks.
package distlock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned by WithLock when the lock stays held elsewhere
// until the context expires.
var ErrNotAcquired = errors.New("distlock: lock not acquired")

// DistLock is a single-owner lock. One instance must not be shared between
// goroutines.
type DistLock interface {
	// Acquire tries once to take the lock and reports whether it succeeded.
	Acquire(ctx context.Context) (bool, error)
	// Release gives the lock up if this instance still owns it.
	Release(ctx context.Context) error
}

// NewLock prefers Redis when a client is given and falls back to a
// PostgreSQL advisory lock otherwise.
func NewLock(redisClient *redis.Client, db *sql.DB, key string, ttl time.Duration) DistLock {
	if redisClient != nil {
		return NewRedisLock(redisClient, key, ttl)
	}
	return NewPGAdvisoryLock(db, key)
}

// WithLock polls Acquire every interval until it succeeds or ctx ends, runs
// fn while holding the lock and always releases it afterwards.
func WithLock(ctx context.Context, lock DistLock, interval time.Duration, fn func(ctx context.Context) error) error {
	for {
		ok, err := lock.Acquire(ctx)
		if err != nil {
			return err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrNotAcquired, ctx.Err())
		case <-time.After(interval):
		}
	}

	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = lock.Release(releaseCtx)
	}()
	return fn(ctx)
}
