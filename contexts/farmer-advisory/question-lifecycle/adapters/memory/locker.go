package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	domainerrors "agrivote/contexts/farmer-advisory/question-lifecycle/domain/errors"
	"agrivote/contexts/farmer-advisory/question-lifecycle/ports"
)

// Locker serializes writers per question inside one process. Each key holds a
// one-slot channel so waiting writers can give up when their context ends.
type Locker struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch      chan struct{}
	waiters int
}

func NewLocker() *Locker {
	return &Locker{slots: make(map[string]*lockSlot)}
}

func (l *Locker) Lock(ctx context.Context, questionID string) (func(context.Context) error, error) {
	key := strings.TrimSpace(questionID)

	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.waiters++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, slot, false)
		return nil, fmt.Errorf("%w: %w", domainerrors.ErrLockNotAcquired, ctx.Err())
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() { l.release(key, slot, true) })
		return nil
	}, nil
}

func (l *Locker) release(key string, slot *lockSlot, held bool) {
	if held {
		<-slot.ch
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.waiters--
	if slot.waiters == 0 {
		delete(l.slots, key)
	}
}

var _ ports.QuestionLocker = (*Locker)(nil)
