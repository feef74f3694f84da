package services

import (
	"time"

	"olx-scraper/models"
	"olx-scraper/utils"
)

// Filter applies the request's date threshold, link dedup and limit.
type Filter struct {
	logger *utils.Logger
}

// NewFilter creates a Filter.
func NewFilter(logger *utils.Logger) *Filter {
	return &Filter{logger: logger}
}

// Apply keeps items dated on or after minDate (undated items always pass),
// drops repeated links keeping the first, then keeps at most limit items.
// A nil minDate disables the date step. The input slice is not modified.
func (f *Filter) Apply(items []*models.Listing, minDate *time.Time, limit int) []*models.Listing {
	var threshold string
	if minDate != nil {
		threshold = minDate.Format(DateLayout)
	}

	seen := utils.NewURLSet()
	result := make([]*models.Listing, 0, min(len(items), max(limit, 0)))

	var tooOld, dups int
	for _, it := range items {
		if len(result) >= limit {
			break
		}
		if threshold != "" && it.DateParsed != nil && *it.DateParsed < threshold {
			tooOld++
			continue
		}
		if !seen.Add(it.Link) {
			dups++
			continue
		}
		result = append(result, it)
	}

	f.logger.Debug("[filter] %d → %d listings (older than %q: %d, duplicates: %d, limit: %d)",
		len(items), len(result), threshold, tooOld, dups, limit)
	return result
}
