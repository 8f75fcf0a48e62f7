package redisadapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	domainerrors "agrivote/contexts/farmer-advisory/question-lifecycle/domain/errors"
	"agrivote/contexts/farmer-advisory/question-lifecycle/ports"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultLockTTL   = 10 * time.Second
	defaultLockRetry = 25 * time.Millisecond
	lockKeyPrefix    = "agrivote:question-lock:"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another writer is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker serializes question writers across processes with a Redis lease.
type Locker struct {
	client redis.UniversalClient
	ttl    time.Duration
	retry  time.Duration
	logger *slog.Logger
}

func NewLocker(client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *Locker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Locker{
		client: client,
		ttl:    ttl,
		retry:  defaultLockRetry,
		logger: logger,
	}
}

// Lock waits until the lease is acquired or ctx ends.
func (l *Locker) Lock(ctx context.Context, questionID string) (func(context.Context) error, error) {
	key := lockKeyPrefix + strings.TrimSpace(questionID)
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", domainerrors.ErrLockNotAcquired, ctx.Err())
			}
			l.logger.Error("question lock acquire failed",
				"event", "question_lock_acquire_failed",
				"module", "farmer-advisory/question-lifecycle",
				"layer", "adapter",
				"question_id", strings.TrimSpace(questionID),
				"error", err.Error(),
			)
			return nil, err
		}
		if acquired {
			return l.unlockFunc(key, token, questionID), nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", domainerrors.ErrLockNotAcquired, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *Locker) unlockFunc(key string, token string, questionID string) func(context.Context) error {
	return func(ctx context.Context) error {
		released, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
		if err != nil {
			return err
		}
		if released == 0 {
			l.logger.Warn("question lock expired before release",
				"event", "question_lock_expired",
				"module", "farmer-advisory/question-lifecycle",
				"layer", "adapter",
				"question_id", strings.TrimSpace(questionID),
				"ttl", l.ttl.String(),
			)
		}
		return nil
	}
}

var _ ports.QuestionLocker = (*Locker)(nil)
