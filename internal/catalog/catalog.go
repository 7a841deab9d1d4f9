// Package catalog holds the link directory shown by the hub: categories of
// cards loaded once from page markup or a YAML file and never mutated.
package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Card is one directory entry. ID is the key visits are recorded under; it
// falls back to Title when the source gives none.
type Card struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Link        string `json:"link" yaml:"link"`
	Category    string `json:"category" yaml:"-"`
}

type Category struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Cards []Card `json:"cards" yaml:"cards"`
}

type Directory struct {
	Title      string     `json:"title" yaml:"title"`
	Categories []Category `json:"categories" yaml:"categories"`

	byID  map[string]int // card id -> index into cards
	cards []Card
}

var ErrDuplicateCard = errors.New("catalog: duplicate card id")

const uncategorized = "uncategorized"

// Cards returns every card in document order.
func (d *Directory) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}

func (d *Directory) Len() int { return len(d.cards) }

func (d *Directory) Card(id string) (Card, bool) {
	i, ok := d.byID[id]
	if !ok {
		return Card{}, false
	}
	return d.cards[i], true
}

// New validates categories and builds the lookup index. Cards get their
// Category set and a trimmed title; a missing ID defaults to the title.
func New(title string, categories []Category) (*Directory, error) {
	d := &Directory{
		Title: strings.TrimSpace(title),
		byID:  map[string]int{},
	}
	for ci, c := range categories {
		c.Name = textCondense(c.Name)
		if c.ID == "" {
			c.ID = slug(c.Name)
		}
		if c.ID == "" {
			c.ID = fmt.Sprintf("category-%d", ci+1)
		}
		cards := make([]Card, 0, len(c.Cards))
		for _, card := range c.Cards {
			card.Title = textCondense(card.Title)
			card.Description = textCondense(card.Description)
			card.Link = strings.TrimSpace(card.Link)
			card.ID = strings.TrimSpace(card.ID)
			if card.Title == "" {
				return nil, fmt.Errorf("catalog: card without title in category %q", c.Name)
			}
			if card.ID == "" {
				card.ID = card.Title
			}
			if card.Link != "" {
				if _, err := url.Parse(card.Link); err != nil {
					return nil, fmt.Errorf("catalog: card %q: bad link: %w", card.ID, err)
				}
			}
			if _, dup := d.byID[card.ID]; dup {
				return nil, fmt.Errorf("%w: %q", ErrDuplicateCard, card.ID)
			}
			card.Category = c.ID
			d.byID[card.ID] = len(d.cards)
			d.cards = append(d.cards, card)
			cards = append(cards, card)
		}
		c.Cards = cards
		d.Categories = append(d.Categories, c)
	}
	return d, nil
}

func textCondense(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
