package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/wallawatch/wallawatch/internal/models"
	"github.com/wallawatch/wallawatch/internal/normalize"
)

// Dispatcher applies the delivery policy for one saved search's fresh items:
// above the bulk threshold a single consolidated message, otherwise one
// message per item with a short delay between sends to respect outbound rate
// limits. Items are marked seen immediately after their send attempt, so a
// failed send is not retried next cycle.
type Dispatcher struct {
	sender        models.Sender
	seen          SeenStore
	bulkThreshold int
	bulkMaxItems  int
	sendDelay     time.Duration
}

func NewDispatcher(sender models.Sender, seen SeenStore, bulkThreshold, bulkMaxItems int, sendDelay time.Duration) *Dispatcher {
	return &Dispatcher{
		sender:        sender,
		seen:          seen,
		bulkThreshold: bulkThreshold,
		bulkMaxItems:  bulkMaxItems,
		sendDelay:     sendDelay,
	}
}

// Fresh returns the items not yet notified for this search, preserving
// order.
func (d *Dispatcher) Fresh(ctx context.Context, searchID int64, items []models.Listing) []models.Listing {
	var fresh []models.Listing
	for _, it := range items {
		if !d.seen.Seen(ctx, searchID, it.ID) {
			fresh = append(fresh, it)
		}
	}
	return fresh
}

// Dispatch delivers fresh items for a search. A send failure is logged and
// never blocks the remaining items of the batch.
func (d *Dispatcher) Dispatch(ctx context.Context, search models.SavedSearch, fresh []models.Listing) {
	if len(fresh) == 0 {
		return
	}

	if len(fresh) > d.bulkThreshold {
		msg := d.buildBulkMessage(search.Query, fresh)
		if err := d.sender.SendMessage(search.UserID, msg); err != nil {
			log.Printf("[notify] bulk send to %d: %v", search.UserID, err)
		}
		for _, it := range fresh {
			d.seen.Mark(ctx, search.ID, it.ID)
		}
		return
	}

	for i, it := range fresh {
		if err := d.sender.SendMessage(search.UserID, buildItemMessage(search.Query, it)); err != nil {
			log.Printf("[notify] send item %s to %d: %v", it.ID, search.UserID, err)
		}
		d.seen.Mark(ctx, search.ID, it.ID)
		if i < len(fresh)-1 && d.sendDelay > 0 {
			time.Sleep(d.sendDelay)
		}
	}
}

// buildBulkMessage renders the consolidated listing, capped at bulkMaxItems
// lines with a trailing overflow count.
func (d *Dispatcher) buildBulkMessage(query string, items []models.Listing) string {
	var b strings.Builder
	b.WriteString("🔔 Nuevos resultados\n")
	fmt.Fprintf(&b, "🔎 [%s]\n\n", query)

	take := items
	if len(take) > d.bulkMaxItems {
		take = take[:d.bulkMaxItems]
	}
	for i, it := range take {
		price := "—"
		if it.Price > 0 {
			price = normalize.FormatEUR(it.Price)
		}
		ship := ""
		if it.Shipping {
			ship = " 📦"
		}
		fmt.Fprintf(&b, "%d. %s — %s%s\n   %s\n", i+1, cleanTitle(it.Title), price, ship, it.URL)
	}
	if len(items) > d.bulkMaxItems {
		fmt.Fprintf(&b, "... y %d más\n", len(items)-d.bulkMaxItems)
	}
	return strings.TrimRight(b.String(), "\n")
}

func buildItemMessage(query string, it models.Listing) string {
	var b strings.Builder
	b.WriteString("🔔 Nuevo resultado\n")
	fmt.Fprintf(&b, "🔎 %s\n\n", query)
	fmt.Fprintf(&b, "📌 %s\n", cleanTitle(it.Title))
	if it.Price > 0 {
		fmt.Fprintf(&b, "💶 %s\n", normalize.FormatEUR(it.Price))
	}
	if it.Shipping {
		b.WriteString("📦 Envío disponible\n")
	}
	b.WriteString(it.URL)
	return b.String()
}

// cleanTitle collapses whitespace so odd symbols or line breaks in a scraped
// title cannot break the message layout.
func cleanTitle(t string) string {
	return strings.Join(strings.Fields(t), " ")
}
