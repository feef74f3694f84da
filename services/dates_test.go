package services

import (
	"testing"
	"time"
)

var fixedNow = time.Date(2024, 11, 20, 15, 30, 0, 0, time.UTC)

func newFixedDateParser() *DateParser {
	return NewDateParserWithClock(time.UTC, func() time.Time { return fixedNow })
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDateParserParse(t *testing.T) {
	p := newFixedDateParser()

	tests := []struct {
		text string
		want time.Time
		ok   bool
	}{
		{"Hoje, 10:30", day(2024, 11, 20), true},
		{"HOJE", day(2024, 11, 20), true},
		{"Ontem, 22:15", day(2024, 11, 19), true},
		{"3 dias", day(2024, 11, 17), true},
		{"há 1 dia", day(2024, 11, 19), true},
		{"2 horas", fixedNow.Add(-2 * time.Hour), true},
		{"há 20 horas", fixedNow.Add(-20 * time.Hour), true},
		{"15/11/2024", day(2024, 11, 15), true},
		{"Publicado em 1/2/2024 às 09:00", day(2024, 2, 1), true},
		{"05/03/24", day(2024, 3, 5), true},
		// Two-digit years follow the time package: 69-99 is 19xx, 00-68 is 20xx.
		{"01/01/69", day(1969, 1, 1), true},
		{"31/12/68", day(2068, 12, 31), true},
		{"2024-11-15T08:00:00", day(2024, 11, 15), true},
		{"31/02/2024", time.Time{}, false},
		{"15/13/2024", time.Time{}, false},
		{"15/11/202", time.Time{}, false},
		{"", time.Time{}, false},
		{"   ", time.Time{}, false},
		{"semana passada", time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := p.Parse(tt.text)
		if ok != tt.ok || !got.Equal(tt.want) {
			t.Errorf("Parse(%q) = (%v, %v); want (%v, %v)", tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDateParserRuleOrder(t *testing.T) {
	p := newFixedDateParser()

	// "hoje" wins over the literal date in the same text.
	got, ok := p.Parse("hoje (atualizado 01/01/2020)")
	if !ok || !got.Equal(day(2024, 11, 20)) {
		t.Errorf("Parse = (%v, %v); want today", got, ok)
	}

	// Days are checked before hours.
	got, ok = p.Parse("2 dias e 3 horas")
	if !ok || !got.Equal(day(2024, 11, 18)) {
		t.Errorf("Parse = (%v, %v); want two days ago", got, ok)
	}
}

func TestDateParserUsesLocation(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	// 01:00 UTC on the 21st is still the 20th in BRT.
	now := time.Date(2024, 11, 21, 1, 0, 0, 0, time.UTC)
	p := NewDateParserWithClock(loc, func() time.Time { return now })

	got := p.ParseDate(strPtr("hoje"))
	if got == nil || *got != "2024-11-20" {
		t.Errorf("ParseDate(hoje) = %v; want 2024-11-20", got)
	}
}

func TestDateParserParseDate(t *testing.T) {
	p := newFixedDateParser()

	tests := []struct {
		text *string
		want string
	}{
		{nil, "<nil>"},
		{strPtr("ontem"), "2024-11-19"},
		{strPtr("2 horas"), "2024-11-20"},
		{strPtr("sem data"), "<nil>"},
	}

	for _, tt := range tests {
		got := p.ParseDate(tt.text)
		gotStr := "<nil>"
		if got != nil {
			gotStr = *got
		}
		if gotStr != tt.want {
			t.Errorf("ParseDate(%v) = %s; want %s", tt.text, gotStr, tt.want)
		}
	}
}

func strPtr(s string) *string { return &s }
