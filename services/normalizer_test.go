package services

import (
	"bytes"
	"testing"
	"time"

	"olx-scraper/models"
	"olx-scraper/utils"
)

func newTestLogger() *utils.Logger {
	return utils.NewLoggerWithOptions(utils.LoggerOptions{Output: &bytes.Buffer{}})
}

func TestNormalizerAssignsIDsAndParses(t *testing.T) {
	n := NewNormalizer(newTestLogger(), newFixedDateParser())

	raw := []*models.RawListing{
		{Title: "  iPhone   13 ", PriceText: "R$ 3.200", Link: "https://mg.olx.com.br/a-1311111111", Location: "BH", DateText: strPtr("Hoje, 10:30")},
		nil,
		{Title: "Galaxy", PriceText: models.PriceMissing, Link: "https://mg.olx.com.br/b-1322222222", Location: models.LocationMissing},
		{Title: "Moto", PriceText: "R$ 0", Link: "https://mg.olx.com.br/c-1333333333", Location: "RJ", DateText: strPtr("amanhã")},
	}

	got := n.Normalize(raw)
	if len(got) != 3 {
		t.Fatalf("got %d listings; want 3", len(got))
	}

	for i, l := range got {
		if l.ID != i+1 {
			t.Errorf("listing %d ID = %d; want %d", i, l.ID, i+1)
		}
		if l.ScrapedAt != "2024-11-20 15:30:00" {
			t.Errorf("listing %d ScrapedAt = %q; want %q", i, l.ScrapedAt, "2024-11-20 15:30:00")
		}
	}

	if got[0].Title != "iPhone 13" {
		t.Errorf("Title = %q; want whitespace collapsed", got[0].Title)
	}
	if got[0].Price == nil || *got[0].Price != 3200 {
		t.Errorf("Price = %v; want 3200", got[0].Price)
	}
	if got[0].DateParsed == nil || *got[0].DateParsed != "2024-11-20" {
		t.Errorf("DateParsed = %v; want 2024-11-20", got[0].DateParsed)
	}
	if got[1].Price != nil || got[1].DateParsed != nil {
		t.Errorf("listing without price or date should have nil Price and DateParsed")
	}
	if got[2].Price != nil {
		t.Errorf("zero price should normalize to nil, got %v", *got[2].Price)
	}
	if got[2].DateParsed != nil {
		t.Errorf("unparseable date should normalize to nil, got %v", *got[2].DateParsed)
	}
}

func TestNormalizerDoesNotMutateInput(t *testing.T) {
	n := NewNormalizer(newTestLogger(), newFixedDateParser())
	raw := []*models.RawListing{{Title: "  spaced  ", PriceText: "R$ 1", Link: "https://x.olx.com.br/1"}}

	n.Normalize(raw)
	if raw[0].Title != "  spaced  " {
		t.Errorf("input mutated: Title = %q", raw[0].Title)
	}
}

func TestNormalizerEmptyInput(t *testing.T) {
	n := NewNormalizer(newTestLogger(), newFixedDateParser())
	got := n.Normalize(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("Normalize(nil) = %v; want empty non-nil slice", got)
	}
}

func TestNormalizeAtUsesGivenTimestamp(t *testing.T) {
	n := NewNormalizer(newTestLogger(), newFixedDateParser())
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	got := n.NormalizeAt([]*models.RawListing{{Title: "a", Link: "https://x/1"}, {Title: "b", Link: "https://x/2"}}, at)
	for _, l := range got {
		if l.ScrapedAt != "2025-01-02 03:04:05" {
			t.Errorf("ScrapedAt = %q; want %q", l.ScrapedAt, "2025-01-02 03:04:05")
		}
	}
}
