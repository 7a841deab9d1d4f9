package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// File keeps the whole store in memory and rewrites a single JSON object
// file on every committed Update.
type File struct {
	mu   sync.RWMutex
	path string
	data map[string]string
	log  *zap.Logger
}

func OpenFile(path string, logger *zap.Logger) (*File, error) {
	if path == "" {
		return nil, errors.New("kv: file store path empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &File{path: path, log: logger}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) Path() string { return f.path }

func (f *File) load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.data = map[string]string{}
	b, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("kv: read %s: %w", f.path, err)
	}
	if len(b) == 0 {
		return nil
	}
	var data map[string]string
	if err := json.Unmarshal(b, &data); err != nil {
		// Start empty; the next write replaces the file.
		f.log.Warn("store file is malformed, starting empty",
			zap.String("path", f.path), zap.Error(err))
		return nil
	}
	if data != nil {
		f.data = data
	}
	return nil
}

func (f *File) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return fn(newMapTx(f.data, true))
}

func (f *File) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	tx := newMapTx(f.data, false)
	if err := fn(tx); err != nil {
		return err
	}
	if !tx.dirty() {
		return nil
	}
	next := maps.Clone(f.data)
	tx.apply(next)
	if err := f.save(next); err != nil {
		return err
	}
	f.data = next
	return nil
}

func (f *File) save(data map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("kv: mkdir: %w", err)
	}
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("kv: encode store: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("kv: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("kv: rename %s: %w", tmp, err)
	}
	return nil
}

func (f *File) Close() error { return nil }
