package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const fixture = `<html><body>
<a href="/item/abc-123" title="Funda iPhone 13"><span class="price">12,50 €</span></a>
<a href="/item/abc-123" title="duplicado"><span class="price">99 €</span></a>
<a href="/item/strong-1" title="Cámara réflex"><strong aria-label="Item price">1.234,00 €</strong></a>
<a href="/item/aria-1" aria-label="Cargador coche">9 €</a>
<a href="/item/no-title">7 €</a>
<a href="/item/badges" title="Con badges">10 €
  <wallapop-badge badge-type="shippingAvailable"></wallapop-badge>
  <wallapop-badge badge-type="reserved"></wallapop-badge>
</a>
<a href="/item/shipctx" title="Solo envío"><span class="price">Envío por 3 €</span> Vendo cargador 15 €</a>
<a href="/profile/999" title="No es un item">50 €</a>
</body></html>`

func TestListings(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fixture))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}

	items := Listings(doc, "https://es.wallapop.com")

	wantIDs := []string{"abc-123", "strong-1", "aria-1", "no-title", "badges", "shipctx"}
	if len(items) != len(wantIDs) {
		t.Fatalf("expected %d items, got %d: %+v", len(wantIDs), len(items), items)
	}
	for i, id := range wantIDs {
		if items[i].ID != id {
			t.Errorf("position %d: got id %s, want %s", i, items[i].ID, id)
		}
	}

	byID := make(map[string]int)
	for i, it := range items {
		byID[it.ID] = i
	}

	// First occurrence wins on duplicate ids.
	if got := items[byID["abc-123"]]; got.Title != "Funda iPhone 13" || got.Price != 12.50 {
		t.Errorf("abc-123 = %+v, want first occurrence with price 12.50", got)
	}

	if got := items[byID["strong-1"]]; got.Price != 1234.00 {
		t.Errorf("strong-1 price = %v, want 1234.00 from aria-labelled strong", got.Price)
	}

	if got := items[byID["aria-1"]]; got.Title != "Cargador coche" {
		t.Errorf("aria-1 title = %q, want aria-label fallback", got.Title)
	}
	if got := items[byID["no-title"]]; got.Title != TitlePlaceholder {
		t.Errorf("no-title title = %q, want %q", got.Title, TitlePlaceholder)
	}

	if got := items[byID["badges"]]; !got.Shipping || !got.Reserved {
		t.Errorf("badges flags = shipping:%t reserved:%t, want both true", got.Shipping, got.Reserved)
	}
	if got := items[byID["abc-123"]]; got.Shipping || got.Reserved {
		t.Errorf("abc-123 flags should default to false, got %+v", got)
	}

	// The shipping-cost amount is rejected by the context blocklist; the
	// item price from the anchor's full text wins.
	if got := items[byID["shipctx"]]; got.Price != 15 {
		t.Errorf("shipctx price = %v, want 15", got.Price)
	}

	if got := items[byID["abc-123"]]; got.URL != "https://es.wallapop.com/item/abc-123" {
		t.Errorf("abc-123 url = %q", got.URL)
	}
}

func TestScanPrice(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"12,50 €", 12.50},
		{"Envío desde 3 €", 0},
		{"10 € al mes", 0},
		{"financiación 20 €", 0},
		{"antes 50 € ahora 40 €", 50}, // crossed-out original price wins
		{"sin precio", 0},
		{"", 0},
	}
	for _, c := range cases {
		if got := ScanPrice(c.in); got != c.want {
			t.Errorf("ScanPrice(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
