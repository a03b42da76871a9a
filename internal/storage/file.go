package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists all documents in a single JSON object on disk.
// Every Set rewrites the file through a temp file and rename, so a crash
// leaves either the old or the new contents.
type FileStore struct {
	mu   sync.RWMutex
	path string
}

// NewFileStore creates a store backed by path. The file is created on first write.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file store: path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("file store: create data dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file.
func (store *FileStore) Path() string {
	return store.path
}

// Get returns the requested documents.
func (store *FileStore) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	store.mu.RLock()
	defer store.mu.RUnlock()

	all, err := store.readLocked()
	if err != nil {
		return nil, err
	}
	result := make(map[string]json.RawMessage, len(keys))
	for _, key := range keys {
		if raw, ok := all[key]; ok {
			result[key] = raw
		}
	}
	return result, nil
}

// Set merges the values into the file.
func (store *FileStore) Set(ctx context.Context, values map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	encoded, err := encodeValues(values)
	if err != nil {
		return err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	all, err := store.readLocked()
	if err != nil {
		return err
	}
	for key, raw := range encoded {
		all[key] = raw
	}
	return atomicWriteFileJSON(store.path, all)
}

// Close is a no-op; every Set is already on disk.
func (store *FileStore) Close() error {
	return nil
}

func (store *FileStore) readLocked() (map[string]json.RawMessage, error) {
	file, err := os.Open(store.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]json.RawMessage), nil
		}
		return nil, fmt.Errorf("file store: open: %w", err)
	}
	defer file.Close()

	all := make(map[string]json.RawMessage)
	if err := json.NewDecoder(file).Decode(&all); err != nil {
		if errors.Is(err, io.EOF) {
			return make(map[string]json.RawMessage), nil
		}
		return nil, fmt.Errorf("file store: decode: %w", err)
	}
	return all, nil
}

func atomicWriteFileJSON(filePath string, data any) error {
	tempFile := filePath + ".tmp"
	f, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("file store: create temp: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		f.Close()
		os.Remove(tempFile)
		return fmt.Errorf("file store: encode: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempFile)
		return fmt.Errorf("file store: sync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("file store: close: %w", err)
	}

	return os.Rename(tempFile, filePath)
}
