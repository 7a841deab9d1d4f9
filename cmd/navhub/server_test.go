package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/poku-e/navhub/internal/catalog"
	"github.com/poku-e/navhub/internal/hub"
	"github.com/poku-e/navhub/internal/kv"
	"github.com/poku-e/navhub/internal/prefs"
	"github.com/poku-e/navhub/internal/search"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	dir, err := catalog.New("Test Hub", []catalog.Category{
		{ID: "dev", Name: "Development", Cards: []catalog.Card{
			{ID: "gh", Title: "GitHub", Description: "Code hosting", Link: "https://github.com"},
			{Title: "GitLab", Description: "DevOps platform", Link: "https://gitlab.com"},
		}},
		{ID: "qa", Name: "Q&A", Cards: []catalog.Card{
			{Title: "Stack Overflow", Description: "Answers", Link: "https://stackoverflow.com"},
		}},
	})
	require.NoError(t, err)
	clock := func() time.Time { return time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC) }
	c, err := hub.New(context.Background(), dir, kv.NewMemory(), hub.WithClock(clock))
	require.NoError(t, err)
	return newRouter(c, zap.NewNop())
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", "test-agent")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIndex(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-theme="light"`)
	assert.Contains(t, body, "<title>Test Hub</title>")
	assert.Contains(t, body, `href="/go?id=gh"`)
	assert.Contains(t, body, "3 of 3 cards")
	assert.NotContains(t, body, "<mark")

	rec = do(t, h, http.MethodGet, "/?q=git", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.Contains(t, body, `<mark class="highlight">Git</mark>Hub`)
	assert.Contains(t, body, "2 of 3 cards")
	assert.Contains(t, body, "Q&amp;A")
}

func TestCardsAPI(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/api/cards?q=GIT", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res search.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "git", res.Query)
	assert.Equal(t, 2, res.Visible)
	assert.Equal(t, 3, res.Total)
	assert.False(t, res.Categories[1].Visible)
	assert.Equal(t, []search.Segment{{Text: "Git", Match: true}, {Text: "Hub"}}, res.Categories[0].Cards[0].TitleView)
}

func TestSearchRedirect(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/api/search?q=hello+world", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://www.google.com/search?q=hello%20world", rec.Header().Get("Location"))

	rec = do(t, h, http.MethodGet, "/api/search?q=example.com", "")
	assert.Equal(t, "https://example.com", rec.Header().Get("Location"))

	rec = do(t, h, http.MethodGet, "/api/search?q=", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestSubmit(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/submit", `{"query":"github.com/golang/go"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var target search.Target
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &target))
	assert.Equal(t, search.Target{URL: "https://github.com/golang/go", Direct: true}, target)

	rec = do(t, h, http.MethodPost, "/api/submit", `{"query":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/submit", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVisitAndStats(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/go?id=gh", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://github.com", rec.Header().Get("Location"))

	rec = do(t, h, http.MethodGet, "/go?id=Stack+Overflow", "")
	assert.Equal(t, "https://stackoverflow.com", rec.Header().Get("Location"))

	rec = do(t, h, http.MethodPost, "/api/visits", `{"id":"gh"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/go?id=nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/visits", `{"id":"nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st statsResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 3, st.TotalVisits)
	assert.Equal(t, map[string]int{"gh": 2, "Stack Overflow": 1}, st.PerSite)
	assert.Equal(t, "gh", st.MostVisited)
	require.Len(t, st.RecentLogs, 3)
	assert.Equal(t, "test-agent", st.RecentLogs[0].UserAgent)
	assert.Equal(t, "2026-10-15T08:00:00.000Z", st.RecentLogs[0].Timestamp)
}

func TestExport(t *testing.T) {
	h := newTestRouter(t)
	do(t, h, http.MethodGet, "/go?id=gh", "")

	rec := do(t, h, http.MethodGet, "/api/export?format=csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "navigation-bookmarks.csv")
	assert.Contains(t, rec.Body.String(), "gh,1,2026-10-15T08:00:00.000Z")

	rec = do(t, h, http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "navigation-bookmarks.json")

	rec = do(t, h, http.MethodGet, "/api/export?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreferencesAndTheme(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/api/preferences", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/theme/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"theme":"dark"}`, rec.Body.String())
	assert.Contains(t, do(t, h, http.MethodGet, "/", "").Body.String(), `data-theme="dark"`)

	rec = do(t, h, http.MethodPut, "/api/preferences", `{"theme":"dark","searchEngine":"baidu"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var d prefs.Display
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, search.Baidu, d.Engine)

	rec = do(t, h, http.MethodGet, "/api/search?q=go+tips", "")
	assert.Equal(t, "https://www.baidu.com/s?wd=go%20tips", rec.Header().Get("Location"))

	rec = do(t, h, http.MethodPut, "/api/preferences", `{"theme":"neon"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodPut, "/api/preferences", `{"searchEngine":"bing"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClear(t *testing.T) {
	h := newTestRouter(t)
	do(t, h, http.MethodGet, "/go?id=gh", "")
	do(t, h, http.MethodPost, "/api/theme/toggle", "")

	rec := do(t, h, http.MethodPost, "/api/clear", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/clear?confirm=true", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	var st statsResp
	require.NoError(t, json.Unmarshal(do(t, h, http.MethodGet, "/api/stats", "").Body.Bytes(), &st))
	assert.Equal(t, 0, st.TotalVisits)
	assert.Empty(t, st.MostVisited)
	assert.Contains(t, do(t, h, http.MethodGet, "/", "").Body.String(), `data-theme="light"`)
}

func TestCommonHeaders(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodOptions, "/api/preferences", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PUT")

	rec = do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
