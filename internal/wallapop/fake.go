package wallapop

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wallawatch/wallawatch/internal/models"
)

var fakePrices = []float64{5.00, 10.50, 25.99, 60.00, 120.75}

// FakeSource is the simulation substitute for the real client, used for
// integration runs without network access. Most invocations return nothing;
// every third call per process yields exactly one synthetic item for the
// query with a randomized identifier and a price from a fixed small set.
type FakeSource struct {
	mu      sync.Mutex
	counter int
}

func NewFakeSource() *FakeSource {
	return &FakeSource{}
}

func (f *FakeSource) Name() string { return "wallapop-fake" }

func (f *FakeSource) Search(_ context.Context, query string, _ models.FilterSet) ([]models.Listing, error) {
	f.mu.Lock()
	f.counter++
	n := f.counter
	f.mu.Unlock()

	if n%3 != 0 {
		return nil, nil
	}

	id := fmt.Sprintf("fake-%d-%s", time.Now().Unix(), uuid.NewString()[:8])
	return []models.Listing{{
		ID:       id,
		Title:    fmt.Sprintf("%s demo #%d", query, n),
		Price:    fakePrices[rand.Intn(len(fakePrices))],
		URL:      HTMLBase + "/item/" + id,
		Shipping: rand.Intn(2) == 0,
	}}, nil
}
