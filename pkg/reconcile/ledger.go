package reconcile

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Ledger remembers which record changes were already notified so that
// overlapping windows never notify the same change twice.
type Ledger interface {
	// Reserve claims key. It returns false if key was claimed before.
	Reserve(ctx context.Context, key string) (bool, error)
	// Release forgets key, typically after the dispatch failed.
	Release(ctx context.Context, key string) error
}

// LedgerKey identifies one state change of one user: a new UpdatedAt means a
// new change and therefore a new key.
func LedgerKey(userID uuid.UUID, transition string, updatedAt time.Time) string {
	return userID.String() + ":" + transition + ":" + strconv.FormatInt(updatedAt.UTC().UnixNano(), 10)
}

// MemoryLedger is a process-local Ledger with expiring entries.
type MemoryLedger struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]time.Time
}

// NewMemoryLedger creates a MemoryLedger. A non-positive ttl keeps entries forever.
func NewMemoryLedger(ttl time.Duration) *MemoryLedger {
	return &MemoryLedger{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]time.Time),
	}
}

func (l *MemoryLedger) Reserve(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evict(now)
	if _, ok := l.entries[key]; ok {
		return false, nil
	}
	l.entries[key] = now
	return true, nil
}

func (l *MemoryLedger) Release(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.entries, key)
	l.mu.Unlock()
	return nil
}

// Len returns the number of live entries.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evict(l.now())
	return len(l.entries)
}

func (l *MemoryLedger) evict(now time.Time) {
	if l.ttl <= 0 {
		return
	}
	for k, at := range l.entries {
		if now.Sub(at) >= l.ttl {
			delete(l.entries, k)
		}
	}
}

// RedisLedger shares the ledger between processes with SET NX.
type RedisLedger struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisLedger creates a RedisLedger storing keys under prefix for ttl.
func NewRedisLedger(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisLedger {
	if client == nil {
		panic("reconcile: redis client is required")
	}
	if prefix == "" {
		prefix = "contentplan:notified:"
	}
	return &RedisLedger{client: client, prefix: prefix, ttl: ttl}
}

func (l *RedisLedger) Reserve(ctx context.Context, key string) (bool, error) {
	return l.client.SetNX(ctx, l.prefix+key, time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
}

func (l *RedisLedger) Release(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.prefix+key).Err()
}
