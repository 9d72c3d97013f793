// Package monitor drives the poll loop: every interval it loads the active
// saved searches, fetches and filters results for each one sequentially, and
// hands fresh items to the dispatcher. Failures are isolated per search so
// one broken scrape never stalls the rest of the cycle.
package monitor

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/wallawatch/wallawatch/internal/match"
	"github.com/wallawatch/wallawatch/internal/models"
	"github.com/wallawatch/wallawatch/internal/notify"
)

// SearchLister is the slice of the store the poller needs.
type SearchLister interface {
	ListActiveSearches(ctx context.Context) ([]models.SavedSearch, error)
}

type Monitor struct {
	lister     SearchLister
	searcher   models.Searcher
	dispatcher *notify.Dispatcher
	interval   time.Duration
	serverPort string

	server *http.Server

	mu        sync.RWMutex
	cycles    int64
	lastCycle time.Time
	running   bool
}

func New(lister SearchLister, searcher models.Searcher, dispatcher *notify.Dispatcher, interval time.Duration, serverPort string) *Monitor {
	return &Monitor{
		lister:     lister,
		searcher:   searcher,
		dispatcher: dispatcher,
		interval:   interval,
		serverPort: serverPort,
	}
}

// Run blocks until ctx is cancelled. The first cycle starts immediately; the
// interval is slept after a cycle completes, so cycles never overlap.
func (m *Monitor) Run(ctx context.Context) error {
	m.mu.Lock()
	m.running = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	go m.startHTTPServer()

	log.Printf("🔁 Monitor started (interval %s, source %s)", m.interval, m.searcher.Name())

	for {
		m.RunCycle(ctx)

		select {
		case <-ctx.Done():
			return m.shutdown()
		case <-time.After(m.interval):
		}
	}
}

// RunCycle executes one complete poll over all active searches. Exported so
// integration tests can step the monitor without the timing loop.
func (m *Monitor) RunCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[monitor] cycle panic: %v", r)
		}
	}()

	searches, err := m.lister.ListActiveSearches(ctx)
	if err != nil {
		log.Printf("[monitor] load active searches: %v", err)
		return
	}

	for _, ss := range searches {
		m.checkSearch(ctx, ss)
	}

	m.mu.Lock()
	m.cycles++
	m.lastCycle = time.Now()
	m.mu.Unlock()
}

// checkSearch evaluates one saved search: fetch, defensive omit pass, dedup,
// dispatch. Any failure is logged and confined to this search.
func (m *Monitor) checkSearch(ctx context.Context, ss models.SavedSearch) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[monitor] search #%d panic: %v", ss.ID, r)
		}
	}()

	items, err := m.searcher.Search(ctx, ss.Query, ss.Filters)
	if err != nil {
		log.Printf("[monitor] search #%d %q: %v", ss.ID, ss.Query, err)
		items = nil
	}
	log.Printf("[monitor] search #%d %q: %d items", ss.ID, ss.Query, len(items))
	if len(items) == 0 {
		return
	}

	// The fetcher already applies omit words; re-applying here keeps a
	// stale or alternative Searcher implementation from leaking them.
	if len(ss.Filters.Omit) > 0 {
		kept := items[:0]
		for _, it := range items {
			if !match.ContainsOmit(it.Title, ss.Filters.Omit) {
				kept = append(kept, it)
			}
		}
		items = kept
	}
	if len(items) == 0 {
		return
	}

	fresh := m.dispatcher.Fresh(ctx, ss.ID, items)
	log.Printf("[monitor] search #%d: %d fresh", ss.ID, len(fresh))
	if len(fresh) == 0 {
		return
	}

	m.dispatcher.Dispatch(ctx, ss, fresh)
}

func (m *Monitor) startHTTPServer() {
	r := mux.NewRouter()
	r.HandleFunc("/health", m.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/stats", m.statsHandler).Methods(http.MethodGet)

	m.server = &http.Server{
		Addr:    ":" + m.serverPort,
		Handler: r,
	}

	if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("[monitor] HTTP server error: %v", err)
	}
}

func (m *Monitor) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

func (m *Monitor) statsHandler(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	cycles := m.cycles
	last := m.lastCycle
	running := m.running
	m.mu.RUnlock()

	lastStr := ""
	if !last.IsZero() {
		lastStr = last.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"running":%t,"cycles":%d,"last_cycle":"%s"}`, running, cycles, lastStr)
}

func (m *Monitor) shutdown() error {
	log.Println("Shutting down monitor...")

	if m.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown HTTP server: %w", err)
		}
	}
	return nil
}
