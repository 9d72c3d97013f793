// Package wallapop drives a headless browser against the marketplace search
// page and turns the rendered result into a filtered item list. The result
// pages are client-side rendered, so a plain HTTP GET is not enough.
package wallapop

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/wallawatch/wallawatch/internal/config"
	"github.com/wallawatch/wallawatch/internal/extract"
	"github.com/wallawatch/wallawatch/internal/match"
	"github.com/wallawatch/wallawatch/internal/models"
)

// cookieSelectors are tried in order to dismiss the consent overlay; the
// first button found is clicked and the rest skipped.
var cookieSelectors = []string{
	"#onetrust-reject-all-handler",
	"#onetrust-accept-btn-handler",
	".ot-pc-refuse-all-handler",
	".ot-pc-accept-all-handler",
}

// Client fetches search results through a persistent headless browser. One
// page (tab) is opened per search and closed afterwards; the scheduler calls
// Search sequentially, so at most one page is live at a time.
type Client struct {
	browser        *rod.Browser
	userAgent      string
	pageTimeout    time.Duration
	maxItems       int
	blockResources bool
	lat, lon       float64
	debug          bool
}

// NewClient launches the browser and returns a ready client. The launch
// error is the only fatal one in this package; every per-search failure
// surfaces as an empty result set.
func NewClient(cfg *config.Config) (*Client, error) {
	u, err := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(true).
		Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	return &Client{
		browser:        browser,
		userAgent:      cfg.UserAgent,
		pageTimeout:    cfg.PageTimeout,
		maxItems:       cfg.MaxItems,
		blockResources: cfg.BlockResources,
		lat:            cfg.DefaultLat,
		lon:            cfg.DefaultLon,
		debug:          cfg.Debug,
	}, nil
}

func (c *Client) Name() string { return "wallapop" }

// Close shuts down the underlying browser.
func (c *Client) Close() error {
	return c.browser.Close()
}

// Search loads the results page for (query, filters) and returns the
// extracted, filtered, ranked items. Navigation or timeout problems are
// logged and yield an empty slice, never an error: a failed search is simply
// skipped for this cycle.
func (c *Client) Search(ctx context.Context, query string, filters models.FilterSet) ([]models.Listing, error) {
	searchURL := SearchURL(query, filters, c.lat, c.lon)
	c.logf("[wallapop] URL: %s", searchURL)

	page, err := stealth.Page(c.browser)
	if err != nil {
		log.Printf("[wallapop] open page: %v", err)
		return nil, nil
	}
	defer page.Close()

	page = page.Context(ctx).Timeout(c.pageTimeout)
	_ = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      c.userAgent,
		AcceptLanguage: "es-ES",
	})

	if c.blockResources {
		c.blockHeavyResources(page)
	}

	if err := page.Navigate(searchURL); err != nil {
		log.Printf("[wallapop] navigate %q: %v", query, err)
		return nil, nil
	}
	if err := page.WaitLoad(); err != nil {
		log.Printf("[wallapop] load %q: %v", query, err)
		return nil, nil
	}

	c.dismissCookies(page)

	// Tolerated timeout: an empty results page has no item anchors.
	if _, err := page.Timeout(3 * time.Second).Element(`a[href^="/item/"]`); err != nil {
		c.logf("[wallapop] no item anchor within 3s (query=%q)", query)
	}

	c.lightScroll(page)

	html, err := page.HTML()
	if err != nil {
		log.Printf("[wallapop] read page html: %v", err)
		return nil, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Printf("[wallapop] parse page html: %v", err)
		return nil, nil
	}

	raw := extract.Listings(doc, HTMLBase)
	c.logf("[wallapop] raw items: %d (query=%q)", len(raw), query)
	if len(raw) == 0 {
		log.Printf("[wallapop] 0 items (query=%q)", query)
		return nil, nil
	}

	items := match.Apply(raw, query, filters, c.maxItems)
	c.logf("[wallapop] returning %d items (query=%q)", len(items), query)
	return items, nil
}

// blockHeavyResources aborts image, media and font requests. Purely a
// bandwidth optimization; a hijack setup failure is ignored.
func (c *Client) blockHeavyResources(page *rod.Page) {
	router := page.HijackRequests()
	err := router.Add("*", "", func(h *rod.Hijack) {
		switch h.Request.Type() {
		case proto.NetworkResourceTypeImage, proto.NetworkResourceTypeMedia, proto.NetworkResourceTypeFont:
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		default:
			h.ContinueRequest(&proto.FetchContinueRequest{})
		}
	})
	if err != nil {
		c.logf("[wallapop] resource blocking unavailable: %v", err)
		return
	}
	go router.Run()
}

// dismissCookies clicks the consent overlay away, best effort.
func (c *Client) dismissCookies(page *rod.Page) {
	for _, sel := range cookieSelectors {
		btn, err := page.Timeout(300 * time.Millisecond).Element(sel)
		if err != nil {
			continue
		}
		if err := btn.Click(proto.InputMouseButtonLeft, 1); err == nil {
			time.Sleep(120 * time.Millisecond)
			return
		}
	}
}

// lightScroll nudges the viewport a few steps down and back to trigger
// lazy-loaded cards.
func (c *Client) lightScroll(page *rod.Page) {
	for _, y := range []int{600, 1200, 1800} {
		_, _ = page.Eval(fmt.Sprintf("() => window.scrollTo(0, %d)", y))
		time.Sleep(180 * time.Millisecond)
	}
	_, _ = page.Eval("() => window.scrollTo(0, 0)")
	time.Sleep(120 * time.Millisecond)
}

func (c *Client) logf(format string, args ...any) {
	if c.debug {
		log.Printf(format, args...)
	}
}
