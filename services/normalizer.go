package services

import (
	"strings"
	"time"
	"unicode"

	"olx-scraper/models"
	"olx-scraper/utils"
)

// ScrapedAtLayout formats the per-item scrape timestamp.
const ScrapedAtLayout = "2006-01-02 15:04:05"

// Normalizer turns RawListings into Listings with parsed price and date.
type Normalizer struct {
	logger *utils.Logger
	dates  *DateParser
	now    func() time.Time
}

// NewNormalizer creates a Normalizer. The clock is shared with dates so one
// request sees a single "now".
func NewNormalizer(logger *utils.Logger, dates *DateParser) *Normalizer {
	return &Normalizer{logger: logger, dates: dates, now: dates.now}
}

// Normalize returns one Listing per non-nil input, in input order, with ids
// 1..n. Every item of a call shares one scraped_at value.
func (n *Normalizer) Normalize(raw []*models.RawListing) []*models.Listing {
	return n.NormalizeAt(raw, n.now())
}

// NormalizeAt is Normalize with the batch timestamp supplied by the caller.
func (n *Normalizer) NormalizeAt(raw []*models.RawListing, at time.Time) []*models.Listing {
	scrapedAt := at.In(n.dates.loc).Format(ScrapedAtLayout)
	result := make([]*models.Listing, 0, len(raw))

	var priced, dated int
	for _, r := range raw {
		if r == nil {
			continue
		}

		listing := &models.Listing{
			ID:         len(result) + 1,
			Title:      normaliseText(r.Title),
			PriceText:  normaliseText(r.PriceText),
			Price:      ParsePrice(r.PriceText),
			Link:       strings.TrimSpace(r.Link),
			Location:   normaliseText(r.Location),
			Image:      r.Image,
			DateText:   r.DateText,
			DateParsed: n.dates.ParseDate(r.DateText),
			ScrapedAt:  scrapedAt,
		}
		if listing.Price != nil {
			priced++
		}
		if listing.DateParsed != nil {
			dated++
		}

		result = append(result, listing)
	}

	n.logger.Debug("[normalizer] Normalized %d listings (%d priced, %d dated)",
		len(result), priced, dated)
	return result
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}
