package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hausradar/dedup-engine/pkg/apperrors"
)

const scanLockKey = "dedup:scan:lock"

// ScanLock serializes scan invocations. A full pairwise scan is expensive,
// and two scans racing over the same batch would only fight over the same
// pending groups.
type ScanLock interface {
	// Acquire takes the lock or returns apperrors.ErrScanInProgress when
	// another scan holds it. The returned release function must be called
	// once the scan finishes.
	Acquire(ctx context.Context) (release func(), err error)
}

// NewScanLock returns a Redis-backed lock when a client is available, so the
// lock holds across engine instances, and an in-process lock otherwise.
func NewScanLock(client *redis.Client, ttl time.Duration) ScanLock {
	if client == nil {
		return &localScanLock{}
	}
	return &redisScanLock{client: client, ttl: ttl}
}

type localScanLock struct {
	held atomic.Bool
}

func (l *localScanLock) Acquire(_ context.Context) (func(), error) {
	if !l.held.CompareAndSwap(false, true) {
		return nil, apperrors.ErrScanInProgress
	}
	return func() { l.held.Store(false) }, nil
}

type redisScanLock struct {
	client *redis.Client
	ttl    time.Duration
}

func (l *redisScanLock) Acquire(ctx context.Context) (func(), error) {
	// The TTL backstops a crashed holder; release deletes the key eagerly.
	ok, err := l.client.SetNX(ctx, scanLockKey, "1", l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire scan lock: %w", err)
	}
	if !ok {
		return nil, apperrors.ErrScanInProgress
	}
	release := func() {
		l.client.Del(context.Background(), scanLockKey)
	}
	return release, nil
}
