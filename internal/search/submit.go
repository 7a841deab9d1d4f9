package search

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Engine is an external search provider used when submitted text is not a
// URL.
type Engine string

const (
	Google Engine = "google"
	Baidu  Engine = "baidu"
	GitHub Engine = "github"

	DefaultEngine = Google
)

var ErrUnknownEngine = errors.New("search: unknown engine")

var engineQueryURL = map[Engine]string{
	Google: "https://www.google.com/search?q=",
	Baidu:  "https://www.baidu.com/s?wd=",
	GitHub: "https://github.com/search?q=",
}

// Engines lists the supported providers in display order.
func Engines() []Engine { return []Engine{Google, Baidu, GitHub} }

func ParseEngine(s string) (Engine, error) {
	e := Engine(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := engineQueryURL[e]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEngine, s)
	}
	return e, nil
}

func (e Engine) Valid() bool {
	_, ok := engineQueryURL[e]
	return ok
}

// QueryURL builds the provider's result page for q. An unknown engine falls
// back to the default one.
func (e Engine) QueryURL(q string) string {
	base, ok := engineQueryURL[e]
	if !ok {
		base = engineQueryURL[DefaultEngine]
	}
	return base + encodeComponent(q)
}

// encodeComponent percent-encodes like encodeURIComponent: spaces become
// %20, not '+'.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Target is where a submitted query leads.
type Target struct {
	URL string `json:"url"`
	// Direct is true when the input itself was a URL.
	Direct bool   `json:"direct"`
	Engine Engine `json:"engine,omitempty"`
}

// Resolve turns submitted text into a Target. Blank input yields false.
func Resolve(input string, engine Engine) (Target, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Target{}, false
	}
	if u, ok := ParseURL(input); ok {
		return Target{URL: u, Direct: true}, true
	}
	if !engine.Valid() {
		engine = DefaultEngine
	}
	return Target{URL: engine.QueryURL(input), Engine: engine}, true
}

// ParseURL reports whether s is a well-formed http(s) URL, assuming
// https:// when no scheme is given, and returns it in normalized form. Any
// non-empty host is accepted, so a bare word like "golang" opens
// https://golang.
func ParseURL(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return "", false
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Hostname() == "" {
		return "", false
	}
	return u.String(), true
}
