package domain

import (
	"slices"
	"strings"
)

// SortOrder is the direction logs are ordered by count.
type SortOrder string

const (
	SortDesc SortOrder = "desc"
	SortAsc  SortOrder = "asc"
)

// ParseSortOrder accepts "asc" or "desc" (any case). Empty input means desc.
func ParseSortOrder(raw string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(SortDesc):
		return SortDesc, nil
	case string(SortAsc):
		return SortAsc, nil
	default:
		return "", &ArgumentError{Field: "order", Reason: "must be asc or desc"}
	}
}

// Toggle flips the direction.
func (o SortOrder) Toggle() SortOrder {
	if o == SortAsc {
		return SortDesc
	}
	return SortAsc
}

// Arrow is the header marker shown next to the count column.
func (o SortOrder) Arrow() string {
	if o == SortAsc {
		return "↑"
	}
	return "↓"
}

// SortByCount orders entries in place by count, breaking ties by product id so
// the result matches what the store returns for the same order.
func SortByCount(entries []LogEntry, order SortOrder) {
	slices.SortStableFunc(entries, func(a, b LogEntry) int {
		var c int
		switch {
		case a.Count < b.Count:
			c = -1
		case a.Count > b.Count:
			c = 1
		}
		if order != SortAsc {
			c = -c
		}
		if c != 0 {
			return c
		}
		return strings.Compare(a.ProductID, b.ProductID)
	})
}
