// Package extract turns one rendered search-results page into raw listing
// candidates. All selector heuristics against the marketplace DOM live here,
// behind pure functions, so they can be tuned and unit-tested without a live
// browser session.
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wallawatch/wallawatch/internal/models"
	"github.com/wallawatch/wallawatch/internal/normalize"
)

// TitlePlaceholder is used when a card anchor carries no title attribute.
const TitlePlaceholder = "Sin título"

var (
	itemIDRe   = regexp.MustCompile(`/item/([^/?#]+)`)
	nonWordRe  = regexp.MustCompile(`\W+`)
	euroAmount = regexp.MustCompile(`(\d+(?:[.,]\d{1,2})?)\s*€`)
)

// priceContextWindow is how far around a matched amount we look for phrases
// that mark it as a non-item price.
const priceContextWindow = 30

// badPriceContext flags amounts that belong to shipping costs, monthly
// installments or financing offers rather than the item itself.
var badPriceContext = []string{
	"envio", "envío", "desde", "al mes", "mes", "finan", "cuota", "cuotas", "pagar",
}

// priceSelectors are tried in order after the aria-labelled <strong>; the
// marketplace has cycled through several of these class shapes.
var priceSelectors = []string{
	`[data-qa="ad-card-price"]`,
	`[data-qa*="price"]`,
	`[data-testid*="price"]`,
	`[aria-label*="price" i]`,
	`span[class*="price"]`,
	`div[class*="price"]`,
	`p[class*="price"]`,
	`strong[class*="price"]`,
}

// Listings walks every /item/ anchor on the page and produces candidates in
// page order. Duplicate ids within the page are skipped (first occurrence
// wins). A card that fails extraction of any single field keeps its safe
// default instead of aborting the page.
func Listings(doc *goquery.Document, baseURL string) []models.Listing {
	var items []models.Listing
	seen := make(map[string]struct{})

	doc.Find(`a[href^="/item/"]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.HasPrefix(href, "/item/") {
			return
		}
		id := itemID(href)
		if id == "" {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}

		items = append(items, models.Listing{
			ID:       id,
			Title:    strings.TrimSpace(cardTitle(a)),
			Price:    cardPrice(a),
			URL:      baseURL + href,
			Shipping: hasBadge(a, "shippingAvailable"),
			Reserved: hasBadge(a, "reserved"),
		})
	})

	return items
}

func itemID(href string) string {
	if m := itemIDRe.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	id := nonWordRe.ReplaceAllString(href, "")
	if len(id) > 32 {
		id = id[:32]
	}
	return id
}

func cardTitle(a *goquery.Selection) string {
	if t, ok := a.Attr("title"); ok && t != "" {
		return t
	}
	if t, ok := a.Attr("aria-label"); ok && t != "" {
		return t
	}
	return TitlePlaceholder
}

// cardPrice resolves a card's price with a fixed priority: the dedicated
// aria-labelled <strong>, then the known price-ish selectors run through the
// contextual scanner, then the card's whole visible text.
func cardPrice(a *goquery.Selection) float64 {
	if txt := a.Find(`strong[aria-label*="price" i]`).First().Text(); txt != "" {
		if v := normalize.ParsePrice(strings.TrimSpace(txt)); v >= 0.01 {
			return v
		}
	}
	for _, sel := range priceSelectors {
		var found float64
		a.Find(sel).EachWithBreak(func(_ int, n *goquery.Selection) bool {
			if v := ScanPrice(strings.TrimSpace(n.Text())); v >= 0.01 {
				found = v
				return false
			}
			return true
		})
		if found >= 0.01 {
			return found
		}
	}
	return ScanPrice(strings.TrimSpace(a.Text()))
}

// ScanPrice finds every "<number>€" shaped substring in txt and returns the
// best surviving value, or 0. A raw numeral with an internal space is an
// ambiguous grouping and is dropped, as is any amount whose surrounding
// context contains a shipping/installment/financing phrase. Among survivors
// the maximum wins: cards sometimes show a crossed-out original price next to
// the sale price, and the larger stray number is more often the real price
// than a financing fragment.
func ScanPrice(txt string) float64 {
	txt = strings.ReplaceAll(txt, "\u00a0", " ")
	var out float64
	for _, m := range euroAmount.FindAllStringSubmatchIndex(txt, -1) {
		raw := txt[m[2]:m[3]]
		if strings.Contains(raw, " ") {
			continue
		}
		val := normalize.ParsePrice(raw + "€")
		if val < 0.01 {
			continue
		}
		start := m[0] - priceContextWindow
		if start < 0 {
			start = 0
		}
		end := m[1] + priceContextWindow
		if end > len(txt) {
			end = len(txt)
		}
		ctx := strings.ToLower(txt[start:end])
		bad := false
		for _, phrase := range badPriceContext {
			if strings.Contains(ctx, phrase) {
				bad = true
				break
			}
		}
		if bad {
			continue
		}
		if val > out {
			out = val
		}
	}
	return out
}

func hasBadge(a *goquery.Selection, badgeType string) bool {
	return a.Find(`wallapop-badge[badge-type="` + badgeType + `"]`).Length() > 0
}
