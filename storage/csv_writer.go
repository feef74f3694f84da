package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"olx-scraper/models"
)

var csvHeader = []string{
	"id", "title", "price_text", "price", "location", "date_text", "date_parsed", "image", "link", "scraped_at",
}

// CSVWriter writes normalized listings to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// Write appends one row per listing. Missing optional fields become empty cells.
func (c *CSVWriter) Write(listings []*models.Listing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range listings {
		price := ""
		if l.Price != nil {
			price = strconv.FormatFloat(*l.Price, 'f', 2, 64)
		}
		row := []string{
			strconv.Itoa(l.ID),
			l.Title,
			l.PriceText,
			price,
			l.Location,
			deref(l.DateText),
			deref(l.DateParsed),
			deref(l.Image),
			l.Link,
			l.ScrapedAt,
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
