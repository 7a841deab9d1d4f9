package prefs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poku-e/navhub/internal/kv"
	"github.com/poku-e/navhub/internal/search"
)

func raw(t *testing.T, s kv.Store, key string) (string, bool) {
	t.Helper()
	var v string
	var ok bool
	require.NoError(t, s.View(context.Background(), func(tx kv.Tx) error {
		var err error
		v, ok, err = tx.Get(key)
		return err
	}))
	return v, ok
}

func TestLoadSave_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kv.NewMemory(), nil)

	for _, p := range []Preferences{
		{},
		{Theme: Dark},
		{SearchEngine: search.Baidu},
		{Theme: Light, SearchEngine: search.GitHub},
	} {
		require.NoError(t, s.Save(ctx, p))
		got, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestSave_OmitsUnsetFields(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	s := NewStore(store, nil)

	require.NoError(t, s.Save(ctx, Preferences{Theme: Dark}))
	v, ok := raw(t, store, KeyPreferences)
	require.True(t, ok)
	assert.JSONEq(t, `{"theme":"dark"}`, v)
}

func TestLoad_MissingOrCorrupted(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	s := NewStore(store, nil)

	p, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Preferences{}, p)

	for _, bad := range []string{"not json", `["array"]`, `{"theme":42}`, ""} {
		require.NoError(t, store.Update(ctx, func(tx kv.Tx) error {
			return tx.Set(KeyPreferences, bad)
		}))
		p, err := s.Load(ctx)
		require.NoError(t, err, "value %q", bad)
		assert.Equal(t, Preferences{}, p, "value %q", bad)
	}

	require.NoError(t, store.Update(ctx, func(tx kv.Tx) error {
		return tx.Set(KeyPreferences, `{"theme":"purple","searchEngine":"github"}`)
	}))
	p, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Preferences{SearchEngine: search.GitHub}, p)
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	s := NewStore(store, nil)

	d := DefaultDisplay()
	require.NoError(t, s.Apply(ctx, Preferences{}, &d))
	assert.Equal(t, DefaultDisplay(), d)
	_, ok := raw(t, store, KeyPreferredEngine)
	assert.False(t, ok, "no engine preference, no cache write")

	require.NoError(t, s.Apply(ctx, Preferences{Theme: Dark, SearchEngine: search.Baidu}, &d))
	assert.Equal(t, Display{Theme: Dark, Engine: search.Baidu}, d)
	v, ok := raw(t, store, KeyPreferredEngine)
	assert.True(t, ok)
	assert.Equal(t, "baidu", v)

	e, err := s.PreferredEngine(ctx)
	require.NoError(t, err)
	assert.Equal(t, search.Baidu, e)
}

func TestPreferredEngine_Defaults(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	s := NewStore(store, nil)

	e, err := s.PreferredEngine(ctx)
	require.NoError(t, err)
	assert.Equal(t, search.Google, e)

	require.NoError(t, store.Update(ctx, func(tx kv.Tx) error {
		return tx.Set(KeyPreferredEngine, "altavista")
	}))
	e, err = s.PreferredEngine(ctx)
	require.NoError(t, err)
	assert.Equal(t, search.Google, e)
}

func TestToggleTheme_IsItsOwnInverse(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kv.NewMemory(), nil)
	require.NoError(t, s.Save(ctx, Preferences{SearchEngine: search.GitHub}))

	for _, start := range []Theme{Light, Dark} {
		once, err := s.ToggleTheme(ctx, start)
		require.NoError(t, err)
		assert.NotEqual(t, start, once)

		twice, err := s.ToggleTheme(ctx, once)
		require.NoError(t, err)
		assert.Equal(t, start, twice)

		p, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, start, p.Theme)
		assert.Equal(t, search.GitHub, p.SearchEngine, "toggle keeps other fields")
	}
}

func TestTheme(t *testing.T) {
	assert.Equal(t, Dark, Light.Toggle())
	assert.Equal(t, Light, Dark.Toggle())
	assert.Equal(t, Dark, Theme("").Toggle())

	th, err := ParseTheme("dark")
	require.NoError(t, err)
	assert.Equal(t, Dark, th)
	_, err = ParseTheme("sepia")
	assert.Error(t, err)
}

func TestSetEngine(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	s := NewStore(store, nil)
	require.NoError(t, s.Save(ctx, Preferences{Theme: Dark}))

	require.NoError(t, s.SetEngine(ctx, search.GitHub))
	p, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Preferences{Theme: Dark, SearchEngine: search.GitHub}, p)
	v, _ := raw(t, store, KeyPreferredEngine)
	assert.Equal(t, "github", v)

	assert.ErrorIs(t, s.SetEngine(ctx, "bing"), search.ErrUnknownEngine)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	s := NewStore(store, nil)
	require.NoError(t, s.SetEngine(ctx, search.Baidu))
	require.NoError(t, s.Clear(ctx))

	_, ok := raw(t, store, KeyPreferences)
	assert.False(t, ok)
	_, ok = raw(t, store, KeyPreferredEngine)
	assert.False(t, ok)
}
