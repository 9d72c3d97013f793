package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wallawatch/wallawatch/internal/models"
	"github.com/wallawatch/wallawatch/internal/notify"
)

type stubLister struct {
	searches []models.SavedSearch
}

func (s *stubLister) ListActiveSearches(context.Context) ([]models.SavedSearch, error) {
	return s.searches, nil
}

type stubSearcher struct {
	results map[string][]models.Listing
	failOn  map[string]bool
}

func (s *stubSearcher) Search(_ context.Context, query string, _ models.FilterSet) ([]models.Listing, error) {
	if s.failOn[query] {
		return nil, errors.New("navigation timeout")
	}
	return s.results[query], nil
}

func (s *stubSearcher) Name() string { return "stub" }

type countingSender struct {
	sent []string
}

func (c *countingSender) SendMessage(_ int64, text string) error {
	c.sent = append(c.sent, text)
	return nil
}

func newTestMonitor(lister SearchLister, searcher models.Searcher, sender models.Sender) *Monitor {
	dispatcher := notify.NewDispatcher(sender, notify.NewMemorySeen(), 5, 25, 0)
	return New(lister, searcher, dispatcher, time.Second, "0")
}

func TestCycleIdempotent(t *testing.T) {
	lister := &stubLister{searches: []models.SavedSearch{
		{ID: 1, UserID: 10, Query: "iphone", Filters: models.DefaultFilters(), Active: true},
	}}
	searcher := &stubSearcher{results: map[string][]models.Listing{
		"iphone": {
			{ID: "a", Title: "iphone 13", Price: 100, URL: "https://es.wallapop.com/item/a"},
			{ID: "b", Title: "iphone 12", Price: 80, URL: "https://es.wallapop.com/item/b"},
		},
	}}
	sender := &countingSender{}
	m := newTestMonitor(lister, searcher, sender)
	ctx := context.Background()

	m.RunCycle(ctx)
	if len(sender.sent) != 2 {
		t.Fatalf("first cycle: expected 2 messages, got %d", len(sender.sent))
	}

	m.RunCycle(ctx)
	if len(sender.sent) != 2 {
		t.Fatalf("second cycle over identical listings must send nothing, got %d extra",
			len(sender.sent)-2)
	}
}

func TestCycleIsolatesSearchFailures(t *testing.T) {
	lister := &stubLister{searches: []models.SavedSearch{
		{ID: 1, UserID: 10, Query: "broken", Filters: models.DefaultFilters(), Active: true},
		{ID: 2, UserID: 10, Query: "bici", Filters: models.DefaultFilters(), Active: true},
	}}
	searcher := &stubSearcher{
		failOn: map[string]bool{"broken": true},
		results: map[string][]models.Listing{
			"bici": {{ID: "c", Title: "bici carretera", Price: 200, URL: "https://es.wallapop.com/item/c"}},
		},
	}
	sender := &countingSender{}
	m := newTestMonitor(lister, searcher, sender)

	m.RunCycle(context.Background())
	if len(sender.sent) != 1 {
		t.Fatalf("failing search must not block the next one; got %d messages", len(sender.sent))
	}
}

func TestCycleReappliesOmitWords(t *testing.T) {
	filters := models.DefaultFilters()
	filters.Omit = []string{"roto"}
	lister := &stubLister{searches: []models.SavedSearch{
		{ID: 1, UserID: 10, Query: "iphone", Filters: filters, Active: true},
	}}
	// The stub bypasses the fetcher's own omit pass, standing in for a
	// source that leaks forbidden titles.
	searcher := &stubSearcher{results: map[string][]models.Listing{
		"iphone": {
			{ID: "bad", Title: "iPhone RÓTO", Price: 50, URL: "https://es.wallapop.com/item/bad"},
			{ID: "ok", Title: "iPhone bien", Price: 60, URL: "https://es.wallapop.com/item/ok"},
		},
	}}
	sender := &countingSender{}
	m := newTestMonitor(lister, searcher, sender)

	m.RunCycle(context.Background())
	if len(sender.sent) != 1 {
		t.Fatalf("expected only the clean item to be dispatched, got %d messages", len(sender.sent))
	}
}
