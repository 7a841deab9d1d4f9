// Package hub is the directory controller: it owns the loaded directory and
// the display state, and routes user actions to the search engine, the
// visit ledger and the preference store.
package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/poku-e/navhub/internal/catalog"
	"github.com/poku-e/navhub/internal/export"
	"github.com/poku-e/navhub/internal/kv"
	"github.com/poku-e/navhub/internal/ledger"
	"github.com/poku-e/navhub/internal/prefs"
	"github.com/poku-e/navhub/internal/search"
)

var (
	ErrNotConfirmed = errors.New("hub: clearing data requires confirmation")
	ErrUnknownCard  = errors.New("hub: unknown card")
)

type Option func(*Controller)

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock replaces time.Now for visit and export timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

type Controller struct {
	dir    *catalog.Directory
	store  kv.Store
	ledger *ledger.Ledger
	prefs  *prefs.Store
	log    *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	display prefs.Display
	last    search.Result
}

// New builds a controller over dir and store, then loads and applies the
// stored preferences.
func New(ctx context.Context, dir *catalog.Directory, store kv.Store, opts ...Option) (*Controller, error) {
	if dir == nil {
		return nil, errors.New("hub: nil directory")
	}
	c := &Controller{
		dir:   dir,
		store: store,
		log:   zap.NewNop(),
		now: time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	c.ledger = ledger.New(store, c.log.Named("ledger"))
	c.prefs = prefs.NewStore(store, c.log.Named("prefs"))

	if err := c.Reload(ctx); err != nil {
		return nil, err
	}
	c.log.Info("directory ready",
		zap.String("title", dir.Title),
		zap.Int("categories", len(dir.Categories)),
		zap.Int("cards", dir.Len()))
	return c, nil
}

func (c *Controller) Directory() *catalog.Directory { return c.dir }

// Reload resets display state and re-applies stored preferences.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reloadLocked(ctx)
}

func (c *Controller) reloadLocked(ctx context.Context) error {
	p, err := c.prefs.Load(ctx)
	if err != nil {
		return err
	}
	d := prefs.DefaultDisplay()
	if err := c.prefs.Apply(ctx, p, &d); err != nil {
		return err
	}
	if e, err := c.prefs.PreferredEngine(ctx); err == nil {
		d.Engine = e
	}
	c.display = d
	c.last = search.Filter(c.dir, "")
	return nil
}

func (c *Controller) Display() prefs.Display {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.display
}

func (c *Controller) Preferences(ctx context.Context) (prefs.Preferences, error) {
	return c.prefs.Load(ctx)
}

// SavePreferences overwrites the stored record and applies it.
func (c *Controller) SavePreferences(ctx context.Context, p prefs.Preferences) (prefs.Display, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.prefs.Save(ctx, p); err != nil {
		return c.display, err
	}
	if err := c.prefs.Apply(ctx, p, &c.display); err != nil {
		return c.display, err
	}
	return c.display, nil
}

// Search filters the directory with query and keeps the result as the
// current view.
func (c *Controller) Search(query string) search.Result {
	res := search.Filter(c.dir, query)
	c.mu.Lock()
	c.last = res
	c.mu.Unlock()
	return res
}

// View returns the result of the last Search.
func (c *Controller) View() search.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Submit resolves text typed into the search box. URLs open directly;
// anything else goes to the preferred engine.
func (c *Controller) Submit(ctx context.Context, input string) (search.Target, bool, error) {
	engine, err := c.prefs.PreferredEngine(ctx)
	if err != nil {
		return search.Target{}, false, err
	}
	t, ok := search.Resolve(input, engine)
	if ok {
		c.log.Debug("search submitted",
			zap.String("input", input), zap.String("target", t.URL), zap.Bool("direct", t.Direct))
	}
	return t, ok, nil
}

// Visit records a click on the card with the given id and returns the card.
func (c *Controller) Visit(ctx context.Context, cardID, agent string) (catalog.Card, error) {
	card, ok := c.dir.Card(cardID)
	if !ok {
		return catalog.Card{}, fmt.Errorf("%w: %q", ErrUnknownCard, cardID)
	}
	if err := c.ledger.RecordVisit(ctx, card.ID, card.Link, c.now(), agent); err != nil {
		return catalog.Card{}, err
	}
	return card, nil
}

func (c *Controller) ToggleTheme(ctx context.Context) (prefs.Theme, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, err := c.prefs.ToggleTheme(ctx, c.display.Theme)
	if err != nil {
		return c.display.Theme, err
	}
	c.display.Theme = next
	c.log.Info("theme switched", zap.String("theme", string(next)))
	return next, nil
}

func (c *Controller) SetEngine(ctx context.Context, e search.Engine) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.prefs.SetEngine(ctx, e); err != nil {
		return err
	}
	c.display.Engine = e
	return nil
}

func (c *Controller) Stats(ctx context.Context) (ledger.Stats, error) {
	return c.ledger.Stats(ctx)
}

func (c *Controller) Logs(ctx context.Context) ([]ledger.Entry, error) {
	return c.ledger.Logs(ctx)
}

// Bookmarks derives the export rows from the visit counters.
func (c *Controller) Bookmarks(ctx context.Context) ([]export.Bookmark, error) {
	counts, err := c.ledger.Counts(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]export.Row, 0, len(counts))
	for _, sc := range counts {
		rows = append(rows, export.Row{Site: sc.Site, Count: sc.Count})
	}
	return export.Bookmarks(rows, c.now()), nil
}

func (c *Controller) ExportBookmarks(ctx context.Context, w io.Writer, f export.Format) error {
	bookmarks, err := c.Bookmarks(ctx)
	if err != nil {
		return err
	}
	if err := export.Write(w, f, bookmarks); err != nil {
		return fmt.Errorf("hub: export %s: %w", f, err)
	}
	return nil
}

// ClearData removes visit counts, the visit log and preferences in one store
// update, then reloads display state from scratch. Nothing happens unless
// confirmed, and a failed update leaves every key in place.
func (c *Controller) ClearData(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.store.Update(ctx, func(tx kv.Tx) error {
		if err := ledger.ClearTx(tx); err != nil {
			return err
		}
		return prefs.ClearTx(tx)
	})
	if err != nil {
		return fmt.Errorf("hub: clear data: %w", err)
	}
	c.log.Info("user data cleared")
	return c.reloadLocked(ctx)
}
