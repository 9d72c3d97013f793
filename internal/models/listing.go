package models

import (
	"context"
	"time"
)

// Listing is one marketplace item as extracted from a search results page.
// It lives only for the duration of one poll-cycle evaluation of one search.
type Listing struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	URL      string  `json:"url"`
	SellerID string  `json:"seller_id"`
	Shipping bool    `json:"shipping"`
	Reserved bool    `json:"reserved"`
	Sold     bool    `json:"sold"`
}

// FilterSet holds the structured constraints of a saved search. Min/Max/Km
// are pointers so "not set" is distinguishable from zero. Strict defaults to
// true: all query tokens must appear in the title rather than any.
type FilterSet struct {
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Km       *int     `json:"km,omitempty"`
	Shipping bool     `json:"shipping,omitempty"`
	Strict   bool     `json:"strict"`
	Omit     []string `json:"omit,omitempty"`
}

// DefaultFilters returns the filter set applied to a search created without
// explicit options.
func DefaultFilters() FilterSet {
	return FilterSet{Strict: true}
}

// Empty reports whether no constraint beyond the strict default is set.
func (f FilterSet) Empty() bool {
	return f.Min == nil && f.Max == nil && f.Km == nil &&
		!f.Shipping && f.Strict && len(f.Omit) == 0
}

// SavedSearch is a user-owned persistent query plus filter set. The poller
// treats it as an immutable snapshot per cycle; edits are picked up on the
// next load.
type SavedSearch struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Query     string    `json:"query"`
	Filters   FilterSet `json:"filters"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Searcher produces filtered, ranked listings for a query. Implementations
// must never fail the caller on fetch problems: they log and return an empty
// slice instead.
type Searcher interface {
	Search(ctx context.Context, query string, filters FilterSet) ([]Listing, error)
	Name() string
}

// Sender delivers one text message to a chat. Errors are non-fatal to the
// caller and only logged.
type Sender interface {
	SendMessage(chatID int64, text string) error
}
