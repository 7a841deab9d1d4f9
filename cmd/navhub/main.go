// Command navhub serves a navigation directory page and manages its visit
// history and preferences from the command line.
//
//	navhub serve
//	navhub search git
//	navhub open "golang generics"
//	navhub visit github
//	navhub stats
//	navhub export --out bookmarks.xlsx
//	navhub theme toggle
//	navhub engine set baidu
//	navhub clear --yes
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/poku-e/navhub/internal/catalog"
	"github.com/poku-e/navhub/internal/config"
	"github.com/poku-e/navhub/internal/export"
	"github.com/poku-e/navhub/internal/hub"
	"github.com/poku-e/navhub/internal/kv"
	"github.com/poku-e/navhub/internal/search"
)

const cliAgent = "navhub-cli"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg config.Config
	log *zap.Logger

	directory string
	store     string
	storePath string
	logLevel  string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "navhub",
		Short:         "Navigation hub: a searchable link directory with visit history",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.directory, "directory", "", "directory source: .yaml/.yml/.html file or http(s) URL (env NAVHUB_DIRECTORY)")
	pf.StringVar(&a.store, "store", "", "storage backend: memory, file or sqlite (env NAVHUB_STORE)")
	pf.StringVar(&a.storePath, "store-path", "", "storage file path (env NAVHUB_STORE_PATH)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (env NAVHUB_LOG_LEVEL)")

	root.AddCommand(
		a.serveCmd(),
		a.searchCmd(),
		a.openCmd(),
		a.visitCmd(),
		a.statsCmd(),
		a.exportCmd(),
		a.themeCmd(),
		a.engineCmd(),
		a.clearCmd(),
	)
	return root
}

// setup reads the environment, then lets explicitly set flags win.
func (a *app) setup(cmd *cobra.Command) error {
	var cfg config.Config
	if err := config.ParseEnv(&cfg); err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("directory") {
		cfg.Directory = a.directory
	}
	if flags.Changed("store") {
		cfg.Store = a.store
	}
	if flags.Changed("store-path") {
		cfg.StorePath = a.storePath
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := cfg.Logger()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	a.cfg = cfg
	a.log = logger
	return nil
}

// open loads the directory and storage and builds a controller. The
// returned close func releases the store.
func (a *app) open(ctx context.Context) (*hub.Controller, func(), error) {
	dir, err := catalog.NewFetcher(a.cfg.FetchTimeout).Load(ctx, a.cfg.Directory)
	if err != nil {
		return nil, nil, err
	}
	store, err := kv.Open(a.cfg.Store, a.cfg.StorePath, a.log.Named("kv"))
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() {
		if err := store.Close(); err != nil {
			a.log.Warn("close store", zap.Error(err))
		}
	}
	c, err := hub.New(ctx, dir, store, hub.WithLogger(a.log.Named("hub")))
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return c, closeStore, nil
}

// withController wraps a RunE body with open and close.
func (a *app) withController(fn func(cmd *cobra.Command, c *hub.Controller, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, done, err := a.open(cmd.Context())
		if err != nil {
			return err
		}
		defer done()
		return fn(cmd, c, args)
	}
}

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the directory page and JSON API",
		Args:  cobra.NoArgs,
		RunE: a.withController(func(cmd *cobra.Command, c *hub.Controller, _ []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Addr = addr
			}
			return serve(cmd.Context(), a.cfg.Addr, newRouter(c, a.log.Named("http")), a.log)
		}),
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (env NAVHUB_ADDR)")
	return cmd
}

func (a *app) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [query...]",
		Short: "List the cards matching a query",
		RunE: a.withController(func(cmd *cobra.Command, c *hub.Controller, args []string) error {
			res := c.Search(strings.Join(args, " "))
			printResult(cmd.OutOrStdout(), res)
			return nil
		}),
	}
}

func printResult(w io.Writer, res search.Result) {
	for _, cat := range res.Categories {
		if !cat.Visible {
			continue
		}
		fmt.Fprintf(w, "%s\n", cat.Name)
		for _, v := range cat.Cards {
			if !v.Visible {
				continue
			}
			fmt.Fprintf(w, "  %-24s %s\n", bracket(v.TitleView), v.Link)
		}
	}
	fmt.Fprintf(w, "%d of %d cards\n", res.Visible, res.Total)
}

// bracket renders highlighted segments with matches in square brackets.
func bracket(segs []search.Segment) string {
	var b strings.Builder
	for _, s := range segs {
		if s.Match {
			b.WriteString("[" + s.Text + "]")
			continue
		}
		b.WriteString(s.Text)
	}
	return b.String()
}

func (a *app) openCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <text...>",
		Short: "Resolve search box input to a URL or a search engine query",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.withController(func(cmd *cobra.Command, c *hub.Controller, args []string) error {
			target, ok, err := c.Submit(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("nothing to open")
			}
			fmt.Fprintln(cmd.OutOrStdout(), target.URL)
			return nil
		}),
	}
}

func (a *app) visitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "visit <card-id>",
		Short: "Record a visit to a card and print its link",
		Args:  cobra.ExactArgs(1),
		RunE: a.withController(func(cmd *cobra.Command, c *hub.Controller, args []string) error {
			card, err := c.Visit(cmd.Context(), args[0], cliAgent)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), card.Link)
			return nil
		}),
	}
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show visit totals, per-site counts and recent visits",
		Args:  cobra.NoArgs,
		RunE: a.withController(func(cmd *cobra.Command, c *hub.Controller, _ []string) error {
			st, err := c.Stats(cmd.Context())
			if err != nil {
				return err
			}
			counts, err := c.Bookmarks(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "total visits: %d\n", st.TotalVisits)
			if site, n, ok := st.MostVisited(); ok {
				fmt.Fprintf(w, "most visited: %s (%d)\n", site, n)
			}
			for _, b := range counts {
				fmt.Fprintf(w, "  %-24s %d\n", b.Name, b.VisitCount)
			}
			if len(st.RecentLogs) > 0 {
				fmt.Fprintln(w, "recent:")
				for _, e := range st.RecentLogs {
					fmt.Fprintf(w, "  %s  %s  %s\n", e.Timestamp, e.Site, e.URL)
				}
			}
			return nil
		}),
	}
}

func (a *app) exportCmd() *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export visit counts as bookmarks (json, csv or xlsx)",
		Args:  cobra.NoArgs,
		RunE: a.withController(func(cmd *cobra.Command, c *hub.Controller, _ []string) error {
			f := export.FormatFromPath(out)
			if cmd.Flags().Changed("format") {
				var err error
				if f, err = export.ParseFormat(format); err != nil {
					return err
				}
			}
			if out == "-" {
				return c.ExportBookmarks(cmd.Context(), cmd.OutOrStdout(), f)
			}
			if out == "" {
				out = f.Filename()
			}
			file, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := c.ExportBookmarks(cmd.Context(), file, f); err != nil {
				_ = file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
			return nil
		}),
	}
	cmd.Flags().StringVar(&format, "format", "", "json, csv or xlsx (default from --out extension, else json)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path, - for stdout (default navigation-bookmarks.<format>)")
	return cmd
}

func (a *app) themeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Manage the color theme",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Switch between light and dark",
		Args:  cobra.NoArgs,
		RunE: a.withController(func(cmd *cobra.Command, c *hub.Controller, _ []string) error {
			th, err := c.ToggleTheme(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), th)
			return nil
		}),
	})
	return cmd
}

func (a *app) engineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engine",
		Short: "Manage the preferred search engine",
	}
	cmd.AddCommand(&cobra.Command{
		Use:       "set <google|baidu|github>",
		Short:     "Set the preferred search engine",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(search.Google), string(search.Baidu), string(search.GitHub)},
		RunE: a.withController(func(cmd *cobra.Command, c *hub.Controller, args []string) error {
			e, err := search.ParseEngine(args[0])
			if err != nil {
				return err
			}
			if err := c.SetEngine(cmd.Context(), e); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), e)
			return nil
		}),
	})
	return cmd
}

func (a *app) clearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete visit history and preferences",
		Args:  cobra.NoArgs,
		RunE: a.withController(func(cmd *cobra.Command, c *hub.Controller, _ []string) error {
			if err := c.ClearData(cmd.Context(), yes); err != nil {
				if errors.Is(err, hub.ErrNotConfirmed) {
					return fmt.Errorf("%w (pass --yes)", err)
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All data cleared")
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}
