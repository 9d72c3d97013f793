// Package match is the query/filter engine: it takes raw candidates from the
// extractor and returns the filtered, scored, capped list that feeds the
// notifier. Filtering is a pure in-memory pipeline with no I/O.
package match

import (
	"sort"
	"strings"

	"github.com/wallawatch/wallawatch/internal/models"
	"github.com/wallawatch/wallawatch/internal/normalize"
)

// TitleMatches reports whether a title satisfies the query. With no usable
// tokens every title matches. Strict mode requires every token to appear in
// the normalized title; flexible mode requires at least one.
func TitleMatches(title, query string, strict bool) bool {
	t := normalize.Title(title)
	tokens := normalize.Tokenize(query)
	if len(tokens) == 0 {
		return true
	}
	if strict {
		for _, tok := range tokens {
			if !strings.Contains(t, tok) {
				return false
			}
		}
		return true
	}
	for _, tok := range tokens {
		if strings.Contains(t, tok) {
			return true
		}
	}
	return false
}

// ContainsOmit reports whether the title contains any omit word, case- and
// accent-insensitively.
func ContainsOmit(title string, omit []string) bool {
	t := normalize.Title(title)
	for _, w := range omit {
		if w == "" {
			continue
		}
		if strings.Contains(t, normalize.Title(w)) {
			return true
		}
	}
	return false
}

// Score assigns the lexical relevance of a title for a query: +3 when all
// query tokens appear, +2 when the whole normalized query is a substring, +1
// when the title starts with the first token.
func Score(title, query string) int {
	t := normalize.Title(title)
	qn := normalize.Title(query)
	tokens := normalize.Tokenize(query)

	score := 0
	if len(tokens) > 0 {
		all := true
		for _, tok := range tokens {
			if !strings.Contains(t, tok) {
				all = false
				break
			}
		}
		if all {
			score += 3
		}
	}
	if qn != "" && strings.Contains(t, qn) {
		score += 2
	}
	if len(tokens) > 0 && strings.HasPrefix(t, tokens[0]) {
		score += 1
	}
	return score
}

// Apply runs the full pipeline: title match, reserved exclusion, price
// bounds, shipping requirement, omit words, then a stable score-descending
// sort and the size cap. Bounds are inclusive; an unparseable price of 0
// fails a positive min and passes any max, deliberately rejecting unknowns
// against a lower bound and accepting them against an upper one.
func Apply(items []models.Listing, query string, filters models.FilterSet, maxItems int) []models.Listing {
	kept := make([]models.Listing, 0, len(items))
	for _, it := range items {
		if !TitleMatches(it.Title, query, filters.Strict) {
			continue
		}
		if it.Reserved {
			continue
		}
		if filters.Min != nil && it.Price < *filters.Min {
			continue
		}
		if filters.Max != nil && it.Price > *filters.Max {
			continue
		}
		if filters.Shipping && !it.Shipping {
			continue
		}
		if len(filters.Omit) > 0 && ContainsOmit(it.Title, filters.Omit) {
			continue
		}
		kept = append(kept, it)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return Score(kept[i].Title, query) > Score(kept[j].Title, query)
	})

	if maxItems > 0 && len(kept) > maxItems {
		kept = kept[:maxItems]
	}
	return kept
}
