package cron

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 10 * time.Minute

// Unlock hands a held lease back. Calling it more than once is harmless.
type Unlock func(ctx context.Context) error

// Lock keeps two cron workers from running the same cycle. TryLock returns a
// nil Unlock when another worker holds the lease.
type Lock interface {
	TryLock(ctx context.Context) (Unlock, error)
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ReleaseIfOwner(ctx context.Context, key, owner string) (bool, error)
}

// RedisLock leases a key with SET NX. The TTL bounds how long a crashed
// worker can block the schedule.
type RedisLock struct {
	store  lockStore
	key    string
	ttl    time.Duration
	holder string
}

func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	if store == nil {
		return nil, errors.New("lock store required")
	}
	if key == "" {
		return nil, errors.New("lock key required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return &RedisLock{
		store:  store,
		key:    key,
		ttl:    ttl,
		holder: host + ":" + strconv.Itoa(os.Getpid()),
	}, nil
}

func (l *RedisLock) TryLock(ctx context.Context) (Unlock, error) {
	token := l.holder + ":" + uuid.NewString()
	won, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("lease %s: %w", l.key, err)
	}
	if !won {
		return nil, nil
	}

	var once sync.Once
	return func(ctx context.Context) (err error) {
		once.Do(func() {
			// An expired lease picked up by another worker stays untouched.
			if _, relErr := l.store.ReleaseIfOwner(ctx, l.key, token); relErr != nil {
				err = fmt.Errorf("unlock %s: %w", l.key, relErr)
			}
		})
		return err
	}, nil
}
