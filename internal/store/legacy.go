package store

import (
	"strconv"
	"strings"

	"github.com/wallawatch/wallawatch/internal/models"
)

// legacyMarker delimits the historical encoding that packed the filter set
// into the query column: "<query text> (filtros: {'min': 10.0, ...})".
const legacyMarker = "(filtros:"

// decodeLegacy rewrites a scanned search that still carries the embedded
// encoding. Structured columns win over the embedded literal when both are
// present.
func decodeLegacy(ss *models.SavedSearch) {
	if !strings.Contains(ss.Query, legacyMarker) {
		return
	}
	query, filters := ParseStoredQuery(ss.Query)
	ss.Query = query
	if ss.Filters.Empty() {
		ss.Filters = filters
	}
}

// ParseStoredQuery splits the legacy encoding into query text and filter set.
// The literal is a Python-style dict; a malformed one degrades to "no
// filters" and never produces an error — a bad row must not drop the search.
func ParseStoredQuery(raw string) (string, models.FilterSet) {
	filters := models.DefaultFilters()
	base, tail, found := strings.Cut(raw, legacyMarker)
	if !found {
		return strings.TrimSpace(raw), filters
	}
	query := strings.TrimSpace(base)

	literal := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(tail), ")"))
	literal = strings.TrimPrefix(literal, "{")
	literal = strings.TrimSuffix(literal, "}")

	for _, entry := range splitTopLevel(literal) {
		key, value, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		key = strings.Trim(strings.TrimSpace(key), `'"`)
		value = strings.TrimSpace(value)

		switch key {
		case "min":
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				filters.Min = &v
			}
		case "max":
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				filters.Max = &v
			}
		case "km":
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				km := int(v)
				filters.Km = &km
			}
		case "shipping":
			filters.Shipping = isPyTrue(value)
		case "strict":
			filters.Strict = isPyTrue(value)
		case "omit":
			filters.Omit = parseStringList(value)
		}
	}
	return query, filters
}

// splitTopLevel splits "k: v, k: [a, b]" on commas that are not inside
// brackets or quotes.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '[' || c == '{' || c == '(':
			depth++
		case c == ']' || c == '}' || c == ')':
			depth--
		case c == ',' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		parts = append(parts, s[start:])
	}
	return parts
}

func isPyTrue(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1":
		return true
	}
	return false
}

func parseStringList(value string) []string {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "[") || !strings.HasSuffix(value, "]") {
		return nil
	}
	var words []string
	for _, w := range splitTopLevel(value[1 : len(value)-1]) {
		w = strings.Trim(strings.TrimSpace(w), `'"`)
		if w != "" {
			words = append(words, strings.ToLower(w))
		}
	}
	return words
}
