package orchestration

import (
	"context"
	"sync"
)

// Locker serializes critical sections per key. Implementations must
// guarantee mutual exclusion for equal keys; distinct keys proceed in
// parallel.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// KeyedMutex is an in-process Locker. Suitable when a single process owns
// all settlements; multi-instance deployments use the redislock manager
// instead.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyEntry
}

type keyEntry struct {
	sem  chan struct{}
	refs int
}

var _ Locker = (*KeyedMutex)(nil)

// NewKeyedMutex creates an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*keyEntry)}
}

// WithLock runs fn while holding the key's lock. Acquisition respects
// context cancellation; fn always runs to completion once started.
func (k *KeyedMutex) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entry := k.acquireEntry(key)
	defer k.releaseEntry(key)

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	defer func() { <-entry.sem }()

	return fn(ctx)
}

func (k *KeyedMutex) acquireEntry(key string) *keyEntry {
	k.mu.Lock()
	defer k.mu.Unlock()

	entry, ok := k.entries[key]
	if !ok {
		entry = &keyEntry{sem: make(chan struct{}, 1)}
		k.entries[key] = entry
	}

	entry.refs++

	return entry
}

func (k *KeyedMutex) releaseEntry(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	entry, ok := k.entries[key]
	if !ok {
		return
	}

	entry.refs--
	if entry.refs == 0 {
		delete(k.entries, key)
	}
}
