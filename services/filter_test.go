package services

import (
	"fmt"
	"testing"
	"time"

	"olx-scraper/models"
)

func listing(id int, link string, date string) *models.Listing {
	l := &models.Listing{ID: id, Title: fmt.Sprintf("item %d", id), Link: link}
	if date != "" {
		l.DateParsed = &date
	}
	return l
}

func links(items []*models.Listing) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Link
	}
	return out
}

func TestFilterApply(t *testing.T) {
	items := []*models.Listing{
		listing(1, "a", "2024-11-20"),
		listing(2, "b", "2024-11-10"),
		listing(3, "a", "2024-11-19"),
		listing(4, "c", ""),
		listing(5, "d", "2024-11-15"),
		listing(6, "e", "2024-11-14"),
	}
	minDate := time.Date(2024, 11, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		minDate *time.Time
		limit   int
		want    []string
	}{
		{"no date filter", nil, 10, []string{"a", "b", "c", "d", "e"}},
		{"date filter keeps undated and boundary", &minDate, 10, []string{"a", "c", "d"}},
		{"limit truncates", nil, 2, []string{"a", "b"}},
		{"limit after filters", &minDate, 2, []string{"a", "c"}},
		{"zero limit", nil, 0, []string{}},
	}

	f := NewFilter(newTestLogger())
	for _, tt := range tests {
		got := links(f.Apply(items, tt.minDate, tt.limit))
		if fmt.Sprint(got) != fmt.Sprint(tt.want) {
			t.Errorf("%s: Apply = %v; want %v", tt.name, got, tt.want)
		}
	}
}

func TestFilterDedupKeepsFirst(t *testing.T) {
	items := []*models.Listing{listing(1, "x", ""), listing(2, "x", ""), listing(3, "y", "")}

	got := NewFilter(newTestLogger()).Apply(items, nil, 10)
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Errorf("Apply = %v; want ids [1 3]", links(got))
	}
}

func TestFilterDoesNotModifyInput(t *testing.T) {
	items := []*models.Listing{listing(1, "a", ""), listing(2, "a", "")}
	NewFilter(newTestLogger()).Apply(items, nil, 1)
	if len(items) != 2 || items[1].ID != 2 {
		t.Error("input slice modified")
	}
}
