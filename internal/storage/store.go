package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// Store is the durable key-value mapping every component persists through.
// Values are JSON documents. Set writes all given keys or none of them.
type Store interface {
	// Get returns the stored documents for the keys that exist.
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)
	// Set stores every value under its key in one atomic write.
	Set(ctx context.Context, values map[string]any) error
	Close() error
}

// Decode unmarshals values[key] into target. It reports false when the key is absent.
func Decode(values map[string]json.RawMessage, key string, target any) (bool, error) {
	raw, ok := values[key]
	if !ok || len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func encodeValues(values map[string]any) (map[string]json.RawMessage, error) {
	encoded := make(map[string]json.RawMessage, len(values))
	for key, value := range values {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		encoded[key] = raw
	}
	return encoded, nil
}
