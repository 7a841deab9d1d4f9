// Package prefs persists the user's theme and preferred search engine and
// applies them to the display state.
package prefs

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/poku-e/navhub/internal/kv"
	"github.com/poku-e/navhub/internal/search"
)

const (
	KeyPreferences     = "userPreferences"
	KeyPreferredEngine = "preferredSearchEngine"
)

type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"

	DefaultTheme = Light
)

func (t Theme) Valid() bool { return t == Light || t == Dark }

// Toggle flips between light and dark. Anything else counts as light.
func (t Theme) Toggle() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

func ParseTheme(s string) (Theme, error) {
	t := Theme(s)
	if !t.Valid() {
		return "", fmt.Errorf("prefs: unknown theme %q", s)
	}
	return t, nil
}

// Preferences is stored as one JSON record. Unset fields are omitted.
type Preferences struct {
	Theme        Theme         `json:"theme,omitempty"`
	SearchEngine search.Engine `json:"searchEngine,omitempty"`
}

// Display is the applied view state: the theme attribute on the page root
// and the engine used for submitted searches.
type Display struct {
	Theme  Theme         `json:"theme"`
	Engine search.Engine `json:"engine"`
}

func DefaultDisplay() Display {
	return Display{Theme: DefaultTheme, Engine: search.DefaultEngine}
}

type Store struct {
	kv  kv.Store
	log *zap.Logger
}

func NewStore(store kv.Store, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{kv: store, log: logger}
}

// Load returns the stored preferences. Missing or malformed data gives the
// zero Preferences; unknown enum values are dropped field by field.
func (s *Store) Load(ctx context.Context) (Preferences, error) {
	var p Preferences
	err := s.kv.View(ctx, func(tx kv.Tx) error {
		var err error
		p, err = s.read(tx)
		return err
	})
	if err != nil {
		return Preferences{}, fmt.Errorf("prefs: load: %w", err)
	}
	return p, nil
}

// Save overwrites the stored record.
func (s *Store) Save(ctx context.Context, p Preferences) error {
	err := s.kv.Update(ctx, func(tx kv.Tx) error {
		return kv.SetJSON(tx, KeyPreferences, sanitize(p))
	})
	if err != nil {
		return fmt.Errorf("prefs: save: %w", err)
	}
	return nil
}

// Apply sets d from p, leaving d's fields alone where p is unset. A set
// search engine is also written to the preferredSearchEngine key read by
// the submit path.
func (s *Store) Apply(ctx context.Context, p Preferences, d *Display) error {
	if p.Theme.Valid() {
		d.Theme = p.Theme
	}
	if !p.SearchEngine.Valid() {
		return nil
	}
	d.Engine = p.SearchEngine
	err := s.kv.Update(ctx, func(tx kv.Tx) error {
		return tx.Set(KeyPreferredEngine, string(p.SearchEngine))
	})
	if err != nil {
		return fmt.Errorf("prefs: apply engine: %w", err)
	}
	return nil
}

// PreferredEngine reads the cached engine choice, defaulting to Google for
// missing or unknown values.
func (s *Store) PreferredEngine(ctx context.Context) (search.Engine, error) {
	engine := search.DefaultEngine
	err := s.kv.View(ctx, func(tx kv.Tx) error {
		v, ok, err := tx.Get(KeyPreferredEngine)
		if err != nil || !ok {
			return err
		}
		if e := search.Engine(v); e.Valid() {
			engine = e
		} else {
			s.log.Warn("ignoring unknown preferred engine", zap.String("value", v))
		}
		return nil
	})
	if err != nil {
		return search.DefaultEngine, fmt.Errorf("prefs: preferred engine: %w", err)
	}
	return engine, nil
}

// ToggleTheme flips current, persists the new theme while keeping the rest
// of the record, and returns it.
func (s *Store) ToggleTheme(ctx context.Context, current Theme) (Theme, error) {
	next := current.Toggle()
	err := s.kv.Update(ctx, func(tx kv.Tx) error {
		p, err := s.read(tx)
		if err != nil {
			return err
		}
		p.Theme = next
		return kv.SetJSON(tx, KeyPreferences, p)
	})
	if err != nil {
		return current, fmt.Errorf("prefs: toggle theme: %w", err)
	}
	return next, nil
}

// SetEngine stores e in the record and the preferredSearchEngine cache in
// one update.
func (s *Store) SetEngine(ctx context.Context, e search.Engine) error {
	if !e.Valid() {
		return fmt.Errorf("%w: %q", search.ErrUnknownEngine, e)
	}
	err := s.kv.Update(ctx, func(tx kv.Tx) error {
		p, err := s.read(tx)
		if err != nil {
			return err
		}
		p.SearchEngine = e
		if err := kv.SetJSON(tx, KeyPreferences, p); err != nil {
			return err
		}
		return tx.Set(KeyPreferredEngine, string(e))
	})
	if err != nil {
		return fmt.Errorf("prefs: set engine: %w", err)
	}
	return nil
}

// Clear removes the record and the derived engine cache.
func (s *Store) Clear(ctx context.Context) error {
	return s.kv.Update(ctx, ClearTx)
}

// ClearTx deletes the preference keys inside a caller's transaction.
func ClearTx(tx kv.Tx) error {
	if err := tx.Delete(KeyPreferences); err != nil {
		return err
	}
	return tx.Delete(KeyPreferredEngine)
}

func (s *Store) read(tx kv.Tx) (Preferences, error) {
	var p Preferences
	if _, err := kv.GetJSON(tx, KeyPreferences, &p); err != nil {
		var de *kv.DecodeError
		if !errors.As(err, &de) {
			return Preferences{}, err
		}
		s.log.Warn("ignoring corrupted preferences", zap.Error(de.Err))
		return Preferences{}, nil
	}
	return sanitize(p), nil
}

func sanitize(p Preferences) Preferences {
	if !p.Theme.Valid() {
		p.Theme = ""
	}
	if !p.SearchEngine.Valid() {
		p.SearchEngine = ""
	}
	return p
}
