package storage

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore keeps documents in process memory. It is used for tests and the
// "memory" backend.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]json.RawMessage
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]json.RawMessage)}
}

// Get returns copies of the requested documents.
func (store *MemoryStore) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	store.mu.RLock()
	defer store.mu.RUnlock()

	result := make(map[string]json.RawMessage, len(keys))
	for _, key := range keys {
		if raw, ok := store.values[key]; ok {
			result[key] = append(json.RawMessage(nil), raw...)
		}
	}
	return result, nil
}

// Set encodes and stores the values.
func (store *MemoryStore) Set(ctx context.Context, values map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	encoded, err := encodeValues(values)
	if err != nil {
		return err
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	for key, raw := range encoded {
		store.values[key] = raw
	}
	return nil
}

// Close is a no-op.
func (store *MemoryStore) Close() error {
	return nil
}
