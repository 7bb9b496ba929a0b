package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	ErrLockNotAcquired = errors.New("form lock not acquired")
)

// Locker serializes calendar generation per form, across processes.
type Locker interface {
	WithFormLock(ctx context.Context, formID int64, fn func(ctx context.Context) error) error
}

type redisFormLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisFormLocker creates a locker that uses a per form Redis key
func NewRedisFormLocker(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) Locker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redisFormLocker{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func FormLockKey(formID int64) string {
	return fmt.Sprintf("lock:form:%d", formID)
}

// WithFormLock runs fn while holding the form's key. fn gets a context
// bounded by the lock TTL so it cannot outlive the lock.
func (l *redisFormLocker) WithFormLock(ctx context.Context, formID int64, fn func(ctx context.Context) error) error {
	key := FormLockKey(formID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire form lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		if err := l.release(context.WithoutCancel(ctx), key, token); err != nil {
			l.logger.Warn("form lock release failed, it will expire on its own",
				zap.Int64("form_id", formID), zap.Error(err))
		}
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisFormLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release form lock: %w", err)
	}
	return nil
}
