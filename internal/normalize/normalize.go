// Package normalize holds the locale-aware text and number helpers shared by
// the extractor, the filter engine and the notifier. Everything here is a
// pure function with a safe fallback value, so parsing never aborts a scrape.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	ambiguousDigits = regexp.MustCompile(`\d\s+\d`)
	notNumeric      = regexp.MustCompile(`[^\d,.]`)
	nonWord         = regexp.MustCompile(`[\W_]+`)

	// NFKD-decompose and drop combining marks: "envío" -> "envio".
	foldAccents = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
)

// ParsePrice converts marketplace price text like "12,50 €" or "1.234,00 €"
// into a float. The marketplace uses the European convention: "." groups
// thousands, "," separates decimals. A digit-space-digit pattern ("3 80 €")
// is an ambiguous grouping and parses to 0, as does anything else that is not
// a clean number. Never panics, never returns a negative value.
func ParsePrice(text string) float64 {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\u00a0", " "))
	if text == "" {
		return 0
	}
	if ambiguousDigits.MatchString(text) {
		return 0
	}
	num := notNumeric.ReplaceAllString(text, "")
	num = strings.ReplaceAll(num, ".", "")
	num = strings.ReplaceAll(num, ",", ".")
	if num == "" {
		return 0
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// Title folds diacritics, lowercases, collapses every run of non-word
// characters to a single space and trims. "Fundá  iPhone-13" -> "funda
// iphone 13".
func Title(s string) string {
	folded, _, err := transform.String(foldAccents, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = nonWord.ReplaceAllString(folded, " ")
	return strings.TrimSpace(folded)
}

// Tokenize normalizes a query and splits it into tokens, discarding tokens
// shorter than two characters.
func Tokenize(query string) []string {
	var tokens []string
	for _, t := range strings.Split(Title(query), " ") {
		if len([]rune(t)) >= 2 {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// FormatEUR renders a price in the fixed two-decimal European format used in
// notification messages: 1234.5 -> "1.234,50 €".
func FormatEUR(n float64) string {
	s := strconv.FormatFloat(n, 'f', 2, 64)
	intPart, decPart, _ := strings.Cut(s, ".")
	var grouped []byte
	for i, d := range []byte(intPart) {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped = append(grouped, '.')
		}
		grouped = append(grouped, d)
	}
	return string(grouped) + "," + decPart + " €"
}
