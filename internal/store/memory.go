package store

import (
	"context"
	"sync"
	"time"

	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/domain"
)

type memoryEntry struct {
	mu     sync.Mutex
	intent domain.PaymentIntent
}

// MemoryStore keeps intents in a map of per-id locked entries. The outer
// RWMutex only guards the map itself; read-modify-write of a single
// intent contends only on that intent's lock.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memoryEntry), now: time.Now}
}

func (ms *MemoryStore) Put(ctx context.Context, intent *domain.PaymentIntent) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.entries[intent.ID]; exists {
		return domain.ErrIntentExists
	}
	cp := *intent
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = ms.now()
	}
	cp.UpdatedAt = cp.CreatedAt
	ms.entries[intent.ID] = &memoryEntry{intent: cp}
	return nil
}

func (ms *MemoryStore) Get(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	ms.mu.RLock()
	entry, exists := ms.entries[id]
	ms.mu.RUnlock()
	if !exists {
		return nil, domain.ErrIntentNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	cp := entry.intent
	return &cp, nil
}

func (ms *MemoryStore) Update(ctx context.Context, id string, fn func(*domain.PaymentIntent) error) (*domain.PaymentIntent, error) {
	ms.mu.RLock()
	entry, exists := ms.entries[id]
	ms.mu.RUnlock()
	if !exists {
		return nil, domain.ErrIntentNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	cp := entry.intent
	if err := fn(&cp); err != nil {
		return nil, err
	}
	cp.UpdatedAt = ms.now()
	entry.intent = cp
	out := cp
	return &out, nil
}

func (ms *MemoryStore) FindStaleCreated(ctx context.Context, before time.Time, limit int) ([]domain.PaymentIntent, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var stale []domain.PaymentIntent
	for _, entry := range ms.entries {
		entry.mu.Lock()
		intent := entry.intent
		entry.mu.Unlock()

		if intent.State == domain.IntentCreated && intent.UpdatedAt.Before(before) {
			stale = append(stale, intent)
			if limit > 0 && len(stale) >= limit {
				break
			}
		}
	}
	return stale, nil
}

// SetUpdatedAt rewrites an entry's UpdatedAt. Test hook for aging intents
// past the sweeper threshold.
func (ms *MemoryStore) SetUpdatedAt(id string, at time.Time) {
	ms.mu.RLock()
	entry, exists := ms.entries[id]
	ms.mu.RUnlock()
	if !exists {
		return
	}
	entry.mu.Lock()
	entry.intent.UpdatedAt = at
	entry.mu.Unlock()
}

var _ IntentStore = (*MemoryStore)(nil)
