package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 10 * time.Minute

// Lock hands out at most one Lease at a time across all cron workers.
type Lock interface {
	// TryAcquire returns a nil Lease when another worker holds the lock.
	TryAcquire(ctx context.Context) (Lease, error)
}

// Lease is a held lock. Release is a no-op once the TTL has handed the lock
// to someone else.
type Lease interface {
	Token() string
	Release(ctx context.Context) error
}

type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfEqual(ctx context.Context, key, value string) (bool, error)
}

// RedisLock is a SETNX lock whose value is "<worker>:<random token>".
type RedisLock struct {
	client redisStore
	key    string
	ttl    time.Duration
	worker string
}

func NewRedisLock(client redisStore, key, worker string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, key: key, ttl: ttl, worker: worker}, nil
}

func (l *RedisLock) TryAcquire(ctx context.Context) (Lease, error) {
	token := uuid.NewString()
	if l.worker != "" {
		token = l.worker + ":" + token
	}
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if !ok {
		return nil, nil
	}
	return &redisLease{lock: l, token: token}, nil
}

type redisLease struct {
	lock  *RedisLock
	token string
}

func (l *redisLease) Token() string { return l.token }

func (l *redisLease) Release(ctx context.Context) error {
	if _, err := l.lock.client.DelIfEqual(ctx, l.lock.key, l.token); err != nil {
		return fmt.Errorf("release %s: %w", l.lock.key, err)
	}
	return nil
}
