package redisadapter

import (
	"context"
	"errors"
	"testing"
	"time"

	domainerrors "agrivote/contexts/farmer-advisory/question-lifecycle/domain/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLocker(t *testing.T, ttl time.Duration) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocker(client, ttl, nil), server
}

func TestLockerBlocksSecondWriterUntilRelease(t *testing.T) {
	locker, server := newTestLocker(t, time.Minute)

	unlock, err := locker.Lock(context.Background(), "q-1")
	if err != nil {
		t.Fatalf("lock failed: %v", err)
	}
	if !server.Exists(lockKeyPrefix + "q-1") {
		t.Fatalf("expected lease key in redis")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, "q-1"); !errors.Is(err, domainerrors.ErrLockNotAcquired) {
		t.Fatalf("expected lock not acquired, got %v", err)
	}

	if err := unlock(context.Background()); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}
	if server.Exists(lockKeyPrefix + "q-1") {
		t.Fatalf("expected lease key removed")
	}
	again, err := locker.Lock(context.Background(), "q-1")
	if err != nil {
		t.Fatalf("relock failed: %v", err)
	}
	_ = again(context.Background())
}

func TestLockerReleaseLeavesForeignLeaseAlone(t *testing.T) {
	locker, server := newTestLocker(t, time.Second)

	unlock, err := locker.Lock(context.Background(), "q-1")
	if err != nil {
		t.Fatalf("lock failed: %v", err)
	}
	server.FastForward(2 * time.Second)
	if err := server.Set(lockKeyPrefix+"q-1", "other-writer"); err != nil {
		t.Fatalf("seed foreign lease failed: %v", err)
	}

	if err := unlock(context.Background()); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}
	value, err := server.Get(lockKeyPrefix + "q-1")
	if err != nil || value != "other-writer" {
		t.Fatalf("expected foreign lease kept, got %q (%v)", value, err)
	}
}

func TestLockerKeysAreIndependent(t *testing.T) {
	locker, _ := newTestLocker(t, time.Minute)
	first, err := locker.Lock(context.Background(), "q-1")
	if err != nil {
		t.Fatalf("lock q-1 failed: %v", err)
	}
	defer func() { _ = first(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	second, err := locker.Lock(ctx, "q-2")
	if err != nil {
		t.Fatalf("lock q-2 should not wait on q-1: %v", err)
	}
	_ = second(context.Background())
}
