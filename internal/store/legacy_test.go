package store

import (
	"reflect"
	"testing"

	"github.com/wallawatch/wallawatch/internal/models"
)

func TestParseStoredQueryFull(t *testing.T) {
	raw := "iphone 13 (filtros: {'min': 10.0, 'max': 50.0, 'km': 100, 'shipping': True, 'strict': False, 'omit': ['roto', 'caja rota']})"

	query, filters := ParseStoredQuery(raw)
	if query != "iphone 13" {
		t.Fatalf("query = %q, want %q", query, "iphone 13")
	}
	if filters.Min == nil || *filters.Min != 10.0 {
		t.Errorf("min = %v, want 10.0", filters.Min)
	}
	if filters.Max == nil || *filters.Max != 50.0 {
		t.Errorf("max = %v, want 50.0", filters.Max)
	}
	if filters.Km == nil || *filters.Km != 100 {
		t.Errorf("km = %v, want 100", filters.Km)
	}
	if !filters.Shipping {
		t.Error("shipping should be true")
	}
	if filters.Strict {
		t.Error("strict should be false")
	}
	if want := []string{"roto", "caja rota"}; !reflect.DeepEqual(filters.Omit, want) {
		t.Errorf("omit = %v, want %v", filters.Omit, want)
	}
}

func TestParseStoredQueryNoMarker(t *testing.T) {
	query, filters := ParseStoredQuery("  bici carretera  ")
	if query != "bici carretera" {
		t.Fatalf("query = %q", query)
	}
	if !filters.Empty() {
		t.Fatalf("expected default filters, got %+v", filters)
	}
}

func TestParseStoredQueryMalformed(t *testing.T) {
	cases := []string{
		"iphone (filtros: {'min': garbage})",
		"iphone (filtros: not a dict at all)",
		"iphone (filtros: )",
		"iphone (filtros: {'omit': 'not-a-list'})",
	}
	for _, raw := range cases {
		query, filters := ParseStoredQuery(raw)
		if query != "iphone" {
			t.Errorf("%q: query = %q, want %q", raw, query, "iphone")
		}
		if !filters.Empty() {
			t.Errorf("%q: malformed literal must degrade to no filters, got %+v", raw, filters)
		}
	}
}

func TestDecodeLegacyPrefersStructuredColumns(t *testing.T) {
	min := 5.0
	ss := models.SavedSearch{
		Query:   "iphone (filtros: {'min': 99.0})",
		Filters: models.FilterSet{Min: &min, Strict: true},
	}
	decodeLegacy(&ss)
	if ss.Query != "iphone" {
		t.Fatalf("query = %q", ss.Query)
	}
	if ss.Filters.Min == nil || *ss.Filters.Min != 5.0 {
		t.Fatalf("structured min must win over embedded literal, got %v", ss.Filters.Min)
	}
}

func TestDecodeLegacyFillsFromLiteral(t *testing.T) {
	ss := models.SavedSearch{
		Query:   "iphone (filtros: {'max': 80.0})",
		Filters: models.DefaultFilters(),
	}
	decodeLegacy(&ss)
	if ss.Query != "iphone" {
		t.Fatalf("query = %q", ss.Query)
	}
	if ss.Filters.Max == nil || *ss.Filters.Max != 80.0 {
		t.Fatalf("max = %v, want 80.0 from literal", ss.Filters.Max)
	}
}
