// Package search filters and highlights directory cards against a live
// query and resolves submitted text to a navigation target.
//
// Matching is literal and case-insensitive. Case folding is done rune by
// rune with unicode.ToLower so folded text keeps the rune positions of the
// source, which lets highlighting cut the original text at match bounds.
package search

import (
	"html"
	"html/template"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Normalize trims the query and lower-cases it.
func Normalize(q string) string {
	return lower(strings.TrimSpace(q))
}

func lower(s string) string {
	return strings.Map(unicode.ToLower, s)
}

// Contains reports whether the normalized query q occurs in text, ignoring
// case. The empty query matches everything.
func Contains(text, q string) bool {
	return strings.Contains(lower(text), q)
}

// Segment is a run of source text; Match marks a query occurrence.
type Segment struct {
	Text  string `json:"text"`
	Match bool   `json:"match,omitempty"`
}

// Highlight splits text into alternating unmatched and matched segments.
// Occurrences are found left to right without overlap. Segments are cut at
// byte offsets of text, so joining them gives back text byte for byte, even
// when text is not valid UTF-8.
func Highlight(text, q string) []Segment {
	q = Normalize(q)
	if text == "" {
		return nil
	}
	if q == "" {
		return []Segment{{Text: text}}
	}

	// folded[i] is the lower-cased rune starting at byte offsets[i];
	// offsets has one extra entry for len(text).
	var (
		folded  []rune
		offsets []int
	)
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		folded = append(folded, unicode.ToLower(r))
		offsets = append(offsets, i)
		i += size
	}
	offsets = append(offsets, len(text))
	needle := []rune(q)

	var out []Segment
	start := 0
	for i := 0; i+len(needle) <= len(folded); {
		if !runesEqual(folded[i:i+len(needle)], needle) {
			i++
			continue
		}
		if i > start {
			out = append(out, Segment{Text: text[offsets[start]:offsets[i]]})
		}
		end := i + len(needle)
		out = append(out, Segment{Text: text[offsets[i]:offsets[end]], Match: true})
		i = end
		start = end
	}
	if start < len(folded) {
		out = append(out, Segment{Text: text[offsets[start]:]})
	}
	return out
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

const (
	markOpen  = `<mark class="highlight">`
	markClose = `</mark>`
)

// HighlightHTML renders Highlight as escaped HTML with each match wrapped
// in a highlight mark.
func HighlightHTML(text, q string) template.HTML {
	return RenderHTML(Highlight(text, q))
}

func RenderHTML(segs []Segment) template.HTML {
	var b strings.Builder
	for _, s := range segs {
		if s.Match {
			b.WriteString(markOpen)
			b.WriteString(html.EscapeString(s.Text))
			b.WriteString(markClose)
			continue
		}
		b.WriteString(html.EscapeString(s.Text))
	}
	return template.HTML(b.String())
}

// Unhighlight reverses HighlightHTML.
func Unhighlight(h template.HTML) string {
	s := strings.ReplaceAll(string(h), markOpen, "")
	s = strings.ReplaceAll(s, markClose, "")
	return html.UnescapeString(s)
}
