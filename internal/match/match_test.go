package match

import (
	"testing"

	"github.com/wallawatch/wallawatch/internal/models"
)

func fptr(v float64) *float64 { return &v }

func TestTitleMatches(t *testing.T) {
	cases := []struct {
		title  string
		query  string
		strict bool
		want   bool
	}{
		{"Funda iphone 13 pro", "iphone 13", true, true},
		{"Funda samsung", "iphone 13", false, false},
		{"iphone case", "iphone 13", false, true},
		{"iphone case", "iphone 13", true, false},
		{"anything", "", true, true},
		{"IPHONE 13", "iphone 13", true, true},
		{"Fundá iPhóne 13", "iphone 13", true, true},
	}
	for _, c := range cases {
		if got := TitleMatches(c.title, c.query, c.strict); got != c.want {
			t.Errorf("TitleMatches(%q, %q, strict=%t) = %t, want %t",
				c.title, c.query, c.strict, got, c.want)
		}
	}
}

func TestContainsOmit(t *testing.T) {
	if !ContainsOmit("iPhone RÓTO pantalla", []string{"roto"}) {
		t.Error("expected accent- and case-insensitive omit match")
	}
	if ContainsOmit("iPhone perfecto", []string{"roto"}) {
		t.Error("unexpected omit match")
	}
	if ContainsOmit("iPhone roto", nil) {
		t.Error("empty omit list must match nothing")
	}
}

func TestApplyReservedExcluded(t *testing.T) {
	items := []models.Listing{
		{ID: "a", Title: "iphone 13", Reserved: true},
		{ID: "b", Title: "iphone 13"},
	}
	out := Apply(items, "iphone 13", models.DefaultFilters(), 0)
	if len(out) != 1 || out[0].ID != "b" {
		t.Fatalf("expected only unreserved item, got %+v", out)
	}
}

func TestApplyPriceBounds(t *testing.T) {
	filters := models.DefaultFilters()
	filters.Min = fptr(10)
	filters.Max = fptr(50)

	items := []models.Listing{
		{ID: "low", Title: "iphone", Price: 9.99},
		{ID: "min", Title: "iphone", Price: 10},
		{ID: "mid", Title: "iphone", Price: 30},
		{ID: "max", Title: "iphone", Price: 50},
		{ID: "high", Title: "iphone", Price: 50.01},
	}
	out := Apply(items, "iphone", filters, 0)
	want := map[string]bool{"min": true, "mid": true, "max": true}
	if len(out) != len(want) {
		t.Fatalf("expected %d items, got %+v", len(want), out)
	}
	for _, it := range out {
		if !want[it.ID] {
			t.Errorf("unexpected item %s in output", it.ID)
		}
	}
}

func TestApplyUnknownPriceAsymmetry(t *testing.T) {
	unknown := []models.Listing{{ID: "x", Title: "iphone", Price: 0}}

	withMin := models.DefaultFilters()
	withMin.Min = fptr(10)
	if out := Apply(unknown, "iphone", withMin, 0); len(out) != 0 {
		t.Errorf("price 0 must fail a positive min bound, got %+v", out)
	}

	withMax := models.DefaultFilters()
	withMax.Max = fptr(10)
	if out := Apply(unknown, "iphone", withMax, 0); len(out) != 1 {
		t.Errorf("price 0 must pass a max bound, got %+v", out)
	}
}

func TestApplyShippingAndOmit(t *testing.T) {
	filters := models.DefaultFilters()
	filters.Shipping = true
	filters.Omit = []string{"roto"}

	items := []models.Listing{
		{ID: "ok", Title: "iphone 13", Shipping: true},
		{ID: "noship", Title: "iphone 13"},
		{ID: "broken", Title: "iphone 13 roto", Shipping: true},
	}
	out := Apply(items, "iphone", filters, 0)
	if len(out) != 1 || out[0].ID != "ok" {
		t.Fatalf("expected only shippable unbroken item, got %+v", out)
	}
}

func TestApplyScoringOrderAndStability(t *testing.T) {
	filters := models.DefaultFilters()
	filters.Strict = false

	items := []models.Listing{
		{ID: "t1", Title: "Funda iphone"},      // score 0
		{ID: "t2", Title: "iphone 13 pro"},     // 3+2+1 = 6
		{ID: "t3", Title: "caja iphone 13"},    // 3+2 = 5
		{ID: "t4", Title: "funda iphone roja"}, // score 0
		{ID: "t5", Title: "funda iphone azul"}, // score 0
	}
	out := Apply(items, "iphone 13", filters, 0)
	wantOrder := []string{"t2", "t3", "t1", "t4", "t5"}
	if len(out) != len(wantOrder) {
		t.Fatalf("expected %d items, got %d", len(wantOrder), len(out))
	}
	for i, id := range wantOrder {
		if out[i].ID != id {
			t.Errorf("position %d: got %s, want %s (full order %+v)", i, out[i].ID, id, out)
		}
	}
}

func TestApplyCap(t *testing.T) {
	items := []models.Listing{
		{ID: "a", Title: "iphone"},
		{ID: "b", Title: "iphone"},
		{ID: "c", Title: "iphone"},
	}
	out := Apply(items, "iphone", models.DefaultFilters(), 2)
	if len(out) != 2 {
		t.Fatalf("expected cap at 2 items, got %d", len(out))
	}
}

func TestScore(t *testing.T) {
	if got := Score("iphone 13 pro", "iphone 13"); got != 6 {
		t.Errorf("full match score = %d, want 6", got)
	}
	if got := Score("funda samsung", "iphone 13"); got != 0 {
		t.Errorf("no-match score = %d, want 0", got)
	}
}
