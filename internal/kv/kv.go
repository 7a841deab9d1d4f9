// Package kv is a small string-keyed store with JSON helpers, playing the
// role browser local storage plays for a static page. Every backend runs
// Update callbacks as one atomic step, so a multi-key read-modify-write is
// never observed half applied.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// Tx is the view of the store handed to View and Update callbacks.
type Tx interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Store is implemented by Memory, File and SQLite.
type Store interface {
	// View runs fn against a consistent snapshot. Writes through the Tx fail
	// with ErrReadOnly.
	View(ctx context.Context, fn func(Tx) error) error
	// Update runs fn exclusively. Writes are committed together when fn
	// returns nil and discarded otherwise.
	Update(ctx context.Context, fn func(Tx) error) error
	Close() error
}

var ErrReadOnly = errors.New("kv: write in read-only transaction")

// DecodeError reports a stored value that is not valid JSON for the
// requested type.
type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("kv: decode %q: %v", e.Key, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// GetJSON decodes key into v, which must be a non-nil pointer. found is
// false when the key is absent or its value fails to decode; in the latter
// case err is a *DecodeError and v is left untouched. The value is decoded
// into a fresh zero value and only then copied to v, so a successful read
// replaces v rather than merging into it.
func GetJSON(tx Tx, key string, v any) (found bool, err error) {
	raw, ok, err := tx.Get(key)
	if err != nil || !ok {
		return false, err
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return false, fmt.Errorf("kv: decode %q: non-nil pointer required, got %T", key, v)
	}
	tmp := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal([]byte(raw), tmp.Interface()); err != nil {
		return false, &DecodeError{Key: key, Err: err}
	}
	rv.Elem().Set(tmp.Elem())
	return true, nil
}

func SetJSON(tx Tx, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kv: encode %q: %w", key, err)
	}
	return tx.Set(key, string(b))
}

// Backend names accepted by Open.
const (
	KindMemory = "memory"
	KindFile   = "file"
	KindSQLite = "sqlite"
)

// Open returns the backend named by kind. path is ignored for memory.
func Open(kind, path string, logger *zap.Logger) (Store, error) {
	switch kind {
	case KindMemory, "":
		return NewMemory(), nil
	case KindFile:
		return OpenFile(path, logger)
	case KindSQLite:
		return OpenSQLite(path, WithMkdirAll())
	default:
		return nil, fmt.Errorf("kv: unknown store kind %q", kind)
	}
}

// mapTx buffers writes over a base map until apply.
type mapTx struct {
	base     map[string]string
	pending  map[string]*string // nil marks a delete
	readOnly bool
}

func newMapTx(base map[string]string, readOnly bool) *mapTx {
	return &mapTx{base: base, pending: map[string]*string{}, readOnly: readOnly}
}

func (t *mapTx) Get(key string) (string, bool, error) {
	if v, ok := t.pending[key]; ok {
		if v == nil {
			return "", false, nil
		}
		return *v, true, nil
	}
	v, ok := t.base[key]
	return v, ok, nil
}

func (t *mapTx) Set(key, value string) error {
	if t.readOnly {
		return ErrReadOnly
	}
	t.pending[key] = &value
	return nil
}

func (t *mapTx) Delete(key string) error {
	if t.readOnly {
		return ErrReadOnly
	}
	t.pending[key] = nil
	return nil
}

func (t *mapTx) dirty() bool { return len(t.pending) > 0 }

func (t *mapTx) apply(dst map[string]string) {
	for k, v := range t.pending {
		if v == nil {
			delete(dst, k)
			continue
		}
		dst[k] = *v
	}
}
