package storage

import (
	"context"

	"olx-scraper/models"
)

// ListingWriter is the interface any listing export backend must satisfy.
type ListingWriter interface {
	Write(listings []*models.Listing) error
	Close() error
}

// RunStore records scrape runs and lists the most recent ones.
type RunStore interface {
	Record(ctx context.Context, run *models.ScrapeRun) error
	Recent(ctx context.Context, limit int) ([]*models.ScrapeRun, error)
	Close() error
}

var (
	_ ListingWriter = (*CSVWriter)(nil)
	_ RunStore      = (*SQLRunStore)(nil)
)
