package wallapop

import (
	"net/url"
	"strconv"

	"github.com/wallawatch/wallawatch/internal/models"
)

// HTMLBase is the marketplace origin; listing hrefs on result pages are
// relative to it.
const HTMLBase = "https://es.wallapop.com"

// SearchURL builds the search-results URL for a query and filter set. Price
// bounds, the shippable flag and the geo radius are only included when the
// corresponding filter is present; the radius always uses the configured
// default coordinates.
func SearchURL(query string, filters models.FilterSet, lat, lon float64) string {
	params := url.Values{}
	params.Set("keywords", query)
	params.Set("source", "side_bar_filters")
	if filters.Min != nil {
		params.Set("min_sale_price", strconv.FormatFloat(*filters.Min, 'f', -1, 64))
	}
	if filters.Max != nil {
		params.Set("max_sale_price", strconv.FormatFloat(*filters.Max, 'f', -1, 64))
	}
	if filters.Shipping {
		params.Set("is_shippable", "true")
	}
	if filters.Km != nil {
		params.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
		params.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
		params.Set("distance", strconv.Itoa(*filters.Km))
	}
	return HTMLBase + "/search?" + params.Encode()
}
