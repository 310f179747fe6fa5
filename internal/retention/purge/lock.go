package purge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockKey is the shared run-lock key. One lock guards all categories: the
// run iterates them sequentially, so concurrent category runs never happen.
const LockKey = "glint:retention:purge:lock"

// Locker serializes purge runs across processes.
type Locker interface {
	// Acquire takes the lock for up to ttl. It does not block: a held lock
	// returns false.
	Acquire(ctx context.Context, key, holder string, ttl time.Duration) (bool, error)

	// Release frees the lock if still held by holder.
	Release(ctx context.Context, key, holder string) error
}

// RedisLocker backs the run lock with SETNX+TTL so replicas of the engine
// never purge concurrently. The TTL bounds how long a crashed run can block
// its successors.
type RedisLocker struct {
	client redis.Cmdable
}

// NewRedisLocker constructs a Redis-backed run lock.
func NewRedisLocker(client redis.Cmdable) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) Acquire(ctx context.Context, key, holder string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, key, holder, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire purge lock: %w", err)
	}
	return ok, nil
}

// releaseScript deletes the lock only when the holder still owns it, so a
// run that outlived its TTL cannot free a successor's lock.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

func (l *RedisLocker) Release(ctx context.Context, key, holder string) error {
	if err := releaseScript.Run(ctx, l.client, []string{key}, holder).Err(); err != nil {
		return fmt.Errorf("release purge lock: %w", err)
	}
	return nil
}

// MemoryLocker is the single-process fallback used in tests and deployments
// without Redis.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]memoryLock
}

type memoryLock struct {
	holder  string
	expires time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]memoryLock)}
}

func (l *MemoryLocker) Acquire(_ context.Context, key, holder string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if existing, ok := l.locks[key]; ok && existing.expires.After(now) {
		return false, nil
	}
	l.locks[key] = memoryLock{holder: holder, expires: now.Add(ttl)}
	return true, nil
}

func (l *MemoryLocker) Release(_ context.Context, key, holder string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.locks[key]; ok && existing.holder == holder {
		delete(l.locks, key)
	}
	return nil
}
