package services

import (
	"bytes"
	"strings"
	"testing"

	"olx-scraper/models"
)

func price(v float64) *float64 { return &v }

func sampleListings() []*models.Listing {
	return []*models.Listing{
		{ID: 1, Title: "iPhone 13", Price: price(3200), Location: "Belo Horizonte", DateParsed: strPtr("2024-11-20"), Link: "https://mg.olx.com.br/1"},
		{ID: 2, Title: "iPhone 12", Price: price(2500), Location: "Belo Horizonte", DateParsed: strPtr("2024-11-18"), Link: "https://mg.olx.com.br/2"},
		{ID: 3, Title: "iPhone 11", Price: price(1800), Location: "Contagem", Link: "https://mg.olx.com.br/3"},
		{ID: 4, Title: "iPhone XR", Price: price(1100), Location: models.LocationMissing, DateParsed: strPtr("2024-11-19"), Link: "https://mg.olx.com.br/4"},
		{ID: 5, Title: "iPhone 8", Location: "Contagem", Link: "https://mg.olx.com.br/5"},
	}
}

func TestInsightCounts(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleListings())
	if r.TotalListings != 5 {
		t.Errorf("TotalListings: got %d, want 5", r.TotalListings)
	}
	if r.PricedListings != 4 {
		t.Errorf("PricedListings: got %d, want 4", r.PricedListings)
	}
	if r.DatedListings != 3 {
		t.Errorf("DatedListings: got %d, want 3", r.DatedListings)
	}
}

func TestInsightPrices(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleListings())
	if r.AveragePrice != 2150 {
		t.Errorf("AveragePrice: got %.2f, want 2150", r.AveragePrice)
	}
	if r.MedianPrice != 2150 {
		t.Errorf("MedianPrice: got %.2f, want 2150", r.MedianPrice)
	}
	if r.MinPrice != 1100 {
		t.Errorf("MinPrice: got %.2f, want 1100", r.MinPrice)
	}
	if r.MaxPrice != 3200 {
		t.Errorf("MaxPrice: got %.2f, want 3200", r.MaxPrice)
	}
}

func TestInsightExtremes(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleListings())
	if r.Cheapest == nil || r.Cheapest.Title != "iPhone XR" {
		t.Errorf("Cheapest: got %v, want iPhone XR", r.Cheapest)
	}
	if r.MostExpensive == nil || r.MostExpensive.Title != "iPhone 13" {
		t.Errorf("MostExpensive: got %v, want iPhone 13", r.MostExpensive)
	}
}

func TestInsightNewest(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleListings())
	if len(r.Newest) != 3 {
		t.Fatalf("Newest len: got %d, want 3", len(r.Newest))
	}
	want := []int{1, 4, 2}
	for i, id := range want {
		if r.Newest[i].ID != id {
			t.Errorf("Newest[%d].ID: got %d, want %d", i, r.Newest[i].ID, id)
		}
	}
}

func TestInsightLocationGrouping(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleListings())
	if r.ListingsByLocation["Belo Horizonte"] != 2 {
		t.Errorf("Belo Horizonte count: got %d, want 2", r.ListingsByLocation["Belo Horizonte"])
	}
	if r.ListingsByLocation["Contagem"] != 2 {
		t.Errorf("Contagem count: got %d, want 2", r.ListingsByLocation["Contagem"])
	}
	if _, ok := r.ListingsByLocation[models.LocationMissing]; ok {
		t.Error("missing-location sentinel should not be grouped")
	}
}

func TestInsightEmptyInput(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(nil)
	if r.TotalListings != 0 {
		t.Errorf("expected 0 total listings for empty input")
	}
}

func TestInsightPrint(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	var buf bytes.Buffer
	svc.Print(&buf, svc.Generate(sampleListings()))

	out := buf.String()
	for _, want := range []string{"OLX SCRAPE SUMMARY", "R$ 2.150,00", "iPhone XR", "Belo Horizonte"} {
		if !strings.Contains(out, want) {
			t.Errorf("Print output missing %q", want)
		}
	}
}

func TestFormatBRL(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{0, "R$ 0,00"},
		{999.5, "R$ 999,50"},
		{1234.56, "R$ 1.234,56"},
		{1000000, "R$ 1.000.000,00"},
	}
	for _, tt := range tests {
		if got := formatBRL(tt.v); got != tt.want {
			t.Errorf("formatBRL(%v) = %q; want %q", tt.v, got, tt.want)
		}
	}
}
