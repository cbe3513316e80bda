package views

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/estate_console/config"
	"github.com/mmdatafocus/estate_console/models"
)

// recordLocks serializes mutations per record. With Redis configured the lock is
// a redislock key, so replicas behind a load balancer agree; otherwise an
// in-process lock per key is used.
type recordLocks struct {
	ttl  time.Duration
	wait time.Duration

	mu   sync.Mutex
	held map[string]*localLock
}

type localLock struct {
	ch   chan struct{}
	refs int
}

func newRecordLocks() *recordLocks {
	return &recordLocks{
		ttl:  config.UpstreamTimeout() + 5*time.Second,
		wait: config.UpstreamTimeout(),
		held: map[string]*localLock{},
	}
}

// acquire blocks until key is free, the wait budget runs out or ctx ends.
// The returned func releases the lock.
func (l *recordLocks) acquire(ctx context.Context, key string) (func(), error) {
	if locker := config.GetRedisLock(); locker != nil {
		return l.acquireRedis(ctx, locker, key)
	}
	return l.acquireLocal(ctx, key)
}

func (l *recordLocks) acquireRedis(ctx context.Context, locker *redislock.Client, key string) (func(), error) {
	backoff := 50 * time.Millisecond
	retries := int(l.wait / backoff)
	lock, err := locker.Obtain(ctx, "MutationLock:"+key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(backoff), retries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, models.ErrRecordBusy
	}
	if err != nil {
		return nil, err
	}
	return func() {
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			config.LogError(config.GetLogger(), "locks.go", "acquireRedis", "releasing mutation lock", key, err)
		}
	}, nil
}

func (l *recordLocks) acquireLocal(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.held[key]
	if !ok {
		entry = &localLock{ch: make(chan struct{}, 1)}
		l.held[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case entry.ch <- struct{}{}:
		return func() {
			<-entry.ch
			l.drop(key, entry)
		}, nil
	case <-timer.C:
		l.drop(key, entry)
		return nil, models.ErrRecordBusy
	case <-ctx.Done():
		l.drop(key, entry)
		return nil, models.ErrRecordBusy
	}
}

func (l *recordLocks) drop(key string, entry *localLock) {
	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.held, key)
	}
	l.mu.Unlock()
}
