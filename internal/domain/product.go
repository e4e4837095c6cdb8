package domain

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Product is the catalog's view of an item. It is read-only for this system.
type Product struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Rating      Rating          `json:"rating"`
}

// Rating is the aggregate customer rating of a product.
type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// IDString returns the id in the form used as a LogEntry key.
func (p *Product) IDString() string {
	return strconv.FormatInt(p.ID, 10)
}

// Stars returns the number of filled stars out of five, floor(rate) clamped to 0..5.
func (r Rating) Stars() int {
	n := int(math.Floor(r.Rate))
	if n < 0 {
		return 0
	}
	if n > 5 {
		return 5
	}
	return n
}

// ProductMetadata is what the log stores about a product at first visit.
type ProductMetadata struct {
	Title string
	URL   string
}
