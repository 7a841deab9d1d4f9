package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Fetcher downloads directory pages over HTTP with a bounded retry.
type Fetcher struct {
	Client   *http.Client
	Backoffs []time.Duration
}

func httpClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 60 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		Client:   httpClient(timeout),
		Backoffs: []time.Duration{0, 500 * time.Millisecond, 1 * time.Second, 2 * time.Second},
	}
}

// Fetch returns the body and the final URL after redirects.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, *url.URL, error) {
	backoffs := f.Backoffs
	if len(backoffs) == 0 {
		backoffs = []time.Duration{0}
	}

	var (
		resp *http.Response
		err  error
	)
	for i, d := range backoffs {
		if d > 0 {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			}
		}
		var req *http.Request
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, nil, err
		}
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/yaml;q=0.9,*/*;q=0.8")

		resp, err = f.Client.Do(req)
		if err != nil {
			if i < len(backoffs)-1 {
				continue
			}
			return nil, nil, err
		}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			_ = resp.Body.Close()
			if i < len(backoffs)-1 {
				continue
			}
			return nil, nil, fmt.Errorf("catalog: server error: %s", resp.Status)
		}
		break
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, nil, fmt.Errorf("catalog: bad status %d: %s", resp.StatusCode, string(b))
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	return b, resp.Request.URL, nil
}

// Load reads a directory from an http(s) URL or a local file. Sources
// ending in .yaml or .yml are parsed as YAML, everything else as HTML.
func (f *Fetcher) Load(ctx context.Context, source string) (*Directory, error) {
	isYAML := func(p string) bool {
		ext := strings.ToLower(filepath.Ext(p))
		return ext == ".yaml" || ext == ".yml"
	}

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		body, base, err := f.Fetch(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("catalog: fetch %s: %w", source, err)
		}
		if isYAML(base.Path) {
			return ParseYAML(bytes.NewReader(body))
		}
		return ParseHTML(bytes.NewReader(body), base)
	}

	fh, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("catalog: open: %w", err)
	}
	defer fh.Close()
	if isYAML(source) {
		return ParseYAML(fh)
	}
	return ParseHTML(fh, nil)
}
