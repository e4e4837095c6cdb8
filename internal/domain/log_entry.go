package domain

import (
	"strings"
	"time"
)

// Placeholder metadata stored when the catalog cannot describe a product
// at first-log time.
const (
	PlaceholderTitle = "Unknown title"
	SentinelURL      = "#"
)

// LogEntry is the cumulative view record of one product.
// ProductID, ProductTitle and ProductURL are fixed at creation; only Count and
// Timestamp change on later visits.
type LogEntry struct {
	ProductID    string `json:"productId"`
	ProductTitle string `json:"productTitle"`
	ProductURL   string `json:"productUrl"`
	Count        int64  `json:"count"`
	Timestamp    int64  `json:"timestamp"` // epoch milliseconds of the latest visit
}

// NewLogEntry creates the entry for a first visit.
func NewLogEntry(productID, title, url string, now time.Time) *LogEntry {
	return &LogEntry{
		ProductID:    productID,
		ProductTitle: title,
		ProductURL:   url,
		Count:        1,
		Timestamp:    now.UnixMilli(),
	}
}

// RecordVisit counts one more visit. The timestamp never goes backwards and
// always moves forward by at least one millisecond.
func (e *LogEntry) RecordVisit(now time.Time) {
	e.Count++
	e.Timestamp = NextTimestamp(e.Timestamp, now)
}

// LastView returns Timestamp as a time.Time.
func (e *LogEntry) LastView() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// NextTimestamp returns now in epoch milliseconds, bumped past prev when the
// clock has not advanced.
func NextTimestamp(prev int64, now time.Time) int64 {
	ts := now.UnixMilli()
	if ts <= prev {
		return prev + 1
	}
	return ts
}

// NormalizeProductID trims the id and rejects blank values.
func NormalizeProductID(productID string) (string, error) {
	id := strings.TrimSpace(productID)
	if id == "" {
		return "", ErrEmptyProductID
	}
	return id, nil
}

// TotalCount sums the view counts of entries.
func TotalCount(entries []LogEntry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Count
	}
	return total
}
