package reservation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Ledger keys. lock is held while a payment is being submitted; done records
// the terminal outcome of a session until its token can no longer be replayed.
const (
	KeySessionLock = "resv:lock:%s"
	KeySessionDone = "resv:done:%s"
)

// Terminal outcomes stored in the ledger.
const (
	OutcomeSuccess   = "success"
	OutcomeCancelled = "cancelled"
	OutcomeExpired   = "expired"
	OutcomeConflict  = "conflict"
	OutcomeUnknown   = "unknown"
)

// Ledger guards sessions against concurrent submissions and replays of a
// token whose session already ended.
type Ledger interface {
	// Acquire takes the in-flight lock; false means another submission holds it.
	Acquire(ctx context.Context, sessionID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, sessionID string) error
	Finish(ctx context.Context, sessionID, outcome string, ttl time.Duration) error
	// Outcome returns the recorded terminal outcome, "" when the session is open.
	Outcome(ctx context.Context, sessionID string) (string, error)
}

// RedisLedger keeps the ledger in Redis so every API instance shares it.
type RedisLedger struct {
	rdb *redis.Client
}

func NewRedisLedger(rdb *redis.Client) *RedisLedger {
	return &RedisLedger{rdb: rdb}
}

func (l *RedisLedger) Acquire(ctx context.Context, sessionID string, ttl time.Duration) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, fmt.Sprintf(KeySessionLock, sessionID), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("ledger acquire: %w", err)
	}
	return ok, nil
}

func (l *RedisLedger) Release(ctx context.Context, sessionID string) error {
	if err := l.rdb.Del(ctx, fmt.Sprintf(KeySessionLock, sessionID)).Err(); err != nil {
		return fmt.Errorf("ledger release: %w", err)
	}
	return nil
}

func (l *RedisLedger) Finish(ctx context.Context, sessionID, outcome string, ttl time.Duration) error {
	if err := l.rdb.Set(ctx, fmt.Sprintf(KeySessionDone, sessionID), outcome, ttl).Err(); err != nil {
		return fmt.Errorf("ledger finish: %w", err)
	}
	return nil
}

func (l *RedisLedger) Outcome(ctx context.Context, sessionID string) (string, error) {
	v, err := l.rdb.Get(ctx, fmt.Sprintf(KeySessionDone, sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("ledger outcome: %w", err)
	}
	return v, nil
}

// MemoryLedger is the single-process ledger used when Redis is not configured.
type MemoryLedger struct {
	mu    sync.Mutex
	locks map[string]time.Time
	done  map[string]memoryEntry
	now   func() time.Time
}

type memoryEntry struct {
	outcome   string
	expiresAt time.Time
}

func NewMemoryLedger(now func() time.Time) *MemoryLedger {
	if now == nil {
		now = time.Now
	}
	return &MemoryLedger{
		locks: make(map[string]time.Time),
		done:  make(map[string]memoryEntry),
		now:   now,
	}
}

func (l *MemoryLedger) Acquire(_ context.Context, sessionID string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if exp, held := l.locks[sessionID]; held && now.Before(exp) {
		return false, nil
	}
	l.locks[sessionID] = now.Add(ttl)
	return true, nil
}

func (l *MemoryLedger) Release(_ context.Context, sessionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locks, sessionID)
	return nil
}

func (l *MemoryLedger) Finish(_ context.Context, sessionID, outcome string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.done[sessionID] = memoryEntry{outcome: outcome, expiresAt: now.Add(ttl)}
	for id, e := range l.done {
		if !now.Before(e.expiresAt) {
			delete(l.done, id)
		}
	}
	return nil
}

func (l *MemoryLedger) Outcome(_ context.Context, sessionID string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.done[sessionID]
	if !ok || !l.now().Before(e.expiresAt) {
		return "", nil
	}
	return e.outcome, nil
}
