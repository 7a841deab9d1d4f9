package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/poku-e/navhub/internal/export"
	"github.com/poku-e/navhub/internal/hub"
	"github.com/poku-e/navhub/internal/ledger"
	"github.com/poku-e/navhub/internal/prefs"
	"github.com/poku-e/navhub/internal/search"
)

type server struct {
	hub *hub.Controller
	log *zap.Logger
}

type submitReq struct {
	Query string `json:"query"`
}

type visitReq struct {
	ID string `json:"id"`
}

type statsResp struct {
	ledger.Stats
	MostVisited string `json:"mostVisited,omitempty"`
}

func newRouter(h *hub.Controller, logger *zap.Logger) http.Handler {
	s := &server{hub: h, log: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)
	r.Use(withCommonHeaders)

	r.Get("/", s.index)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})
	r.Get("/go", s.goCard)

	r.Route("/api", func(r chi.Router) {
		r.Get("/cards", s.cards)
		r.Get("/search", s.searchRedirect)
		r.Post("/submit", s.submit)
		r.Post("/visits", s.visit)
		r.Get("/stats", s.stats)
		r.Get("/export", s.export)
		r.Get("/preferences", s.getPreferences)
		r.Put("/preferences", s.putPreferences)
		r.Post("/theme/toggle", s.toggleTheme)
		r.Post("/clear", s.clear)
	})
	return r
}

// serve runs the HTTP server until ctx is cancelled.
func serve(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *server) index(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	d := s.hub.Display()
	data := pageData{
		Title:   s.hub.Directory().Title,
		Theme:   d.Theme,
		Engine:  d.Engine,
		Engines: search.Engines(),
		Query:   q,
		Result:  s.hub.Search(q),
	}
	if data.Title == "" {
		data.Title = "Navigation Hub"
	}

	var buf bytes.Buffer
	if err := indexTmpl.Execute(&buf, data); err != nil {
		s.log.Error("render index", zap.Error(err))
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.log.Debug("write response", zap.Error(err))
	}
}

func (s *server) cards(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.hub.Search(r.URL.Query().Get("q")))
}

func (s *server) searchRedirect(w http.ResponseWriter, r *http.Request) {
	target, ok, err := s.hub.Submit(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if !ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	http.Redirect(w, r, target.URL, http.StatusFound)
}

func (s *server) submit(w http.ResponseWriter, r *http.Request) {
	var req submitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	target, ok, err := s.hub.Submit(r.Context(), req.Query)
	if err != nil {
		s.fail(w, err)
		return
	}
	if !ok {
		http.Error(w, "empty query", http.StatusBadRequest)
		return
	}
	writeJSON(w, target)
}

func (s *server) goCard(w http.ResponseWriter, r *http.Request) {
	card, err := s.hub.Visit(r.Context(), r.URL.Query().Get("id"), r.UserAgent())
	if err != nil {
		s.fail(w, err)
		return
	}
	if card.Link == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	http.Redirect(w, r, card.Link, http.StatusFound)
}

func (s *server) visit(w http.ResponseWriter, r *http.Request) {
	var req visitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if _, err := s.hub.Visit(r.Context(), req.ID, r.UserAgent()); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.hub.Stats(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	resp := statsResp{Stats: st}
	if site, _, ok := st.MostVisited(); ok {
		resp.MostVisited = site
	}
	writeJSON(w, resp)
}

func (s *server) export(w http.ResponseWriter, r *http.Request) {
	f, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var buf bytes.Buffer
	if err := s.hub.ExportBookmarks(r.Context(), &buf, f); err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Filename()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.log.Debug("write export", zap.Error(err))
	}
}

func (s *server) getPreferences(w http.ResponseWriter, r *http.Request) {
	p, err := s.hub.Preferences(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, p)
}

func (s *server) putPreferences(w http.ResponseWriter, r *http.Request) {
	var p prefs.Preferences
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if p.Theme != "" && !p.Theme.Valid() {
		http.Error(w, fmt.Sprintf("unknown theme %q", p.Theme), http.StatusBadRequest)
		return
	}
	if p.SearchEngine != "" && !p.SearchEngine.Valid() {
		http.Error(w, fmt.Sprintf("unknown search engine %q", p.SearchEngine), http.StatusBadRequest)
		return
	}
	d, err := s.hub.SavePreferences(r.Context(), p)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, d)
}

func (s *server) toggleTheme(w http.ResponseWriter, r *http.Request) {
	th, err := s.hub.ToggleTheme(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, map[string]prefs.Theme{"theme": th})
}

func (s *server) clear(w http.ResponseWriter, r *http.Request) {
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if err := s.hub.ClearData(r.Context(), confirmed); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail maps controller errors to HTTP statuses.
func (s *server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, hub.ErrUnknownCard):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, hub.ErrNotConfirmed), errors.Is(err, search.ErrUnknownEngine):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.log.Error("request failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(v); err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
	}
}

func withCommonHeaders(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
