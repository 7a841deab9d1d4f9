package search

import "github.com/poku-e/navhub/internal/catalog"

type CardView struct {
	catalog.Card
	Visible     bool      `json:"visible"`
	TitleView   []Segment `json:"titleView"`
	DescView    []Segment `json:"descriptionView"`
	Highlighted bool      `json:"highlighted"`
}

type CategoryView struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Visible bool       `json:"visible"`
	Cards   []CardView `json:"cards"`
}

type Result struct {
	Query      string         `json:"query"`
	Categories []CategoryView `json:"categories"`
	Visible    int            `json:"visible"`
	Total      int            `json:"total"`
}

// Matches reports whether card contains the normalized query in its title
// or description.
func Matches(card catalog.Card, q string) bool {
	return Contains(card.Title, q) || Contains(card.Description, q)
}

// Filter computes visibility and highlighting for every card of dir. It
// never modifies dir: views are derived from the card text each time, so
// repeated queries start from the original text.
//
// With an empty query every card and group is visible and nothing is
// highlighted. Otherwise a group is visible when at least one of its cards
// is.
func Filter(dir *catalog.Directory, query string) Result {
	q := Normalize(query)
	res := Result{Query: q}
	if dir == nil {
		return res
	}

	for _, c := range dir.Categories {
		cv := CategoryView{ID: c.ID, Name: c.Name, Cards: make([]CardView, 0, len(c.Cards))}
		for _, card := range c.Cards {
			v := CardView{Card: card, Visible: q == "" || Matches(card, q)}
			if v.Visible && q != "" {
				v.TitleView = Highlight(card.Title, q)
				v.DescView = Highlight(card.Description, q)
				v.Highlighted = true
			} else {
				v.TitleView = Highlight(card.Title, "")
				v.DescView = Highlight(card.Description, "")
			}
			if v.Visible {
				cv.Visible = true
				res.Visible++
			}
			res.Total++
			cv.Cards = append(cv.Cards, v)
		}
		if q == "" {
			cv.Visible = true
		}
		res.Categories = append(res.Categories, cv)
	}
	return res
}

// VisibleCards flattens the visible cards of r in document order.
func (r Result) VisibleCards() []catalog.Card {
	var out []catalog.Card
	for _, c := range r.Categories {
		for _, v := range c.Cards {
			if v.Visible {
				out = append(out, v.Card)
			}
		}
	}
	return out
}
