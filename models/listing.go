package models

import "time"

const (
	// PriceMissing is stored in PriceText when a card carries no price.
	PriceMissing = "Preço não informado"
	// LocationMissing is stored in Location when a card carries no location.
	LocationMissing = "Localização não informada"
)

// RawListing holds one listing exactly as extracted from the rendered page.
// Title and Link are always non-empty; Link is absolute.
type RawListing struct {
	Title     string  `json:"title"`
	PriceText string  `json:"price_text"`
	Link      string  `json:"link"`
	Location  string  `json:"location"`
	DateText  *string `json:"date_text"`
	Image     *string `json:"image"`
}

// Listing is a RawListing enriched with parsed values and a batch position.
type Listing struct {
	ID         int      `json:"id"`
	Title      string   `json:"title"`
	PriceText  string   `json:"price_text"`
	Price      *float64 `json:"price"`
	Link       string   `json:"link"`
	Location   string   `json:"location"`
	Image      *string  `json:"image"`
	DateText   *string  `json:"date_text"`
	DateParsed *string  `json:"date_parsed"`
	ScrapedAt  string   `json:"scraped_at"`
}

// ScrapeMeta describes one scrape request and its outcome.
type ScrapeMeta struct {
	Source          string  `json:"source"`
	ScrapedAt       string  `json:"scraped_at"`
	RequestedLimit  int     `json:"requested_limit"`
	Returned        int     `json:"returned"`
	TotalCandidates int     `json:"total_candidates"`
	FilteredByDate  *string `json:"filtered_by_date"`
	Strategy        string  `json:"strategy"`
	FetchMode       string  `json:"fetch_mode"`
}

// ScrapeResult is the body returned for a successful scrape.
type ScrapeResult struct {
	Meta  ScrapeMeta `json:"meta"`
	Items []*Listing `json:"items"`
}

// ScrapeRun is the persisted record of a single scrape execution.
type ScrapeRun struct {
	ID              string    `json:"id"`
	Source          string    `json:"source"`
	FetchMode       string    `json:"fetch_mode"`
	StartedAt       time.Time `json:"started_at"`
	DurationMs      int64     `json:"duration_ms"`
	RequestedLimit  int       `json:"requested_limit"`
	Returned        int       `json:"returned"`
	TotalCandidates int       `json:"total_candidates"`
	Status          string    `json:"status"`
	Error           string    `json:"error,omitempty"`
}

// Run statuses.
const (
	RunOK     = "ok"
	RunFailed = "failed"
)

// InsightReport holds summary statistics over a batch of listings.
type InsightReport struct {
	TotalListings      int
	PricedListings     int
	DatedListings      int
	AveragePrice       float64
	MedianPrice        float64
	MinPrice           float64
	MaxPrice           float64
	Cheapest           *Listing
	MostExpensive      *Listing
	Newest             []*Listing
	ListingsByLocation map[string]int
}
