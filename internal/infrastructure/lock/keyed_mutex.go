package lock

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// KeyedMutex is a set of mutexes keyed by tenant. Entries are reference
// counted and removed once no caller holds or waits for them, so the map
// does not grow with the number of tenants ever seen.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*keyedEntry
}

type keyedEntry struct {
	sem  chan struct{}
	refs int
}

// NewKeyedMutex creates an empty KeyedMutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[uuid.UUID]*keyedEntry)}
}

// Lock blocks until the tenant's mutex is held or ctx is done. The returned
// unlock function is safe to call more than once.
func (k *KeyedMutex) Lock(ctx context.Context, tenantID uuid.UUID) (func(), error) {
	e := k.acquireEntry(tenantID)

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		k.releaseEntry(tenantID, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			k.releaseEntry(tenantID, e)
		})
	}, nil
}

// Len reports how many tenants currently have a holder or waiter
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

func (k *KeyedMutex) acquireEntry(tenantID uuid.UUID) *keyedEntry {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.entries[tenantID]
	if !ok {
		e = &keyedEntry{sem: make(chan struct{}, 1)}
		k.entries[tenantID] = e
	}
	e.refs++
	return e
}

func (k *KeyedMutex) releaseEntry(tenantID uuid.UUID, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(k.entries, tenantID)
	}
}
