package catalog

import (
	"fmt"
	"io"
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// ParseHTML reads a directory page. Expected markup:
//
//	<section class="category" id="dev"><h3>Dev</h3>
//	  <div class="card" data-id="gh"><h4>GitHub</h4><p>Code hosting</p>
//	    <a class="card-link" href="https://github.com">Open</a></div>
//	</section>
//
// Relative hrefs resolve against base when it is non-nil.
func ParseHTML(r io.Reader, base *url.URL) (*Directory, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse html: %w", err)
	}

	var categories []Category
	doc.Find(".category").Each(func(_ int, sec *goquery.Selection) {
		c := Category{Name: first(sec.Find("h3"))}
		if id, ok := sec.Attr("id"); ok {
			c.ID = id
		}
		sec.Find(".card").Each(func(_ int, el *goquery.Selection) {
			c.Cards = append(c.Cards, extractCard(el, base))
		})
		categories = append(categories, c)
	})

	var loose []Card
	doc.Find(".card").Each(func(_ int, el *goquery.Selection) {
		if el.Closest(".category").Length() != 0 {
			return
		}
		loose = append(loose, extractCard(el, base))
	})
	if len(loose) > 0 {
		categories = append(categories, Category{ID: uncategorized, Name: "Uncategorized", Cards: loose})
	}

	return New(first(doc.Find("title")), categories)
}

func extractCard(el *goquery.Selection, base *url.URL) Card {
	card := Card{
		Title:       first(el.Find("h4")),
		Description: first(el.Find("p")),
	}
	if id, ok := el.Attr("data-id"); ok {
		card.ID = id
	}

	a := el.Find("a.card-link").First()
	if a.Length() == 0 {
		a = el.Find("a").First()
	}
	if h, ok := a.Attr("href"); ok {
		card.Link = resolve(base, h)
	}
	return card
}

func first(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	return textCondense(sel.First().Text())
}

func resolve(base *url.URL, ref string) string {
	if ref == "" || base == nil {
		return ref
	}
	ru, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(ru).String()
}
