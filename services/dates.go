package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DateLayout is the calendar-date format used for parsed and filter dates.
const DateLayout = "2006-01-02"

var (
	daysAgoRegexp   = regexp.MustCompile(`(\d+)\s*dias?`)
	hoursAgoRegexp  = regexp.MustCompile(`(\d+)\s*horas?`)
	slashDateRegexp = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{2,4}`)
	isoDateRegexp   = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

	// Day-first layouts, four-digit year before two-digit year.
	slashDateLayouts = []string{"2/1/2006", "2/1/06"}
)

// DateParser turns the Portuguese posting-date phrases shown on listing
// cards ("hoje", "ontem", "3 dias", "2 horas", "15/11/2024") into dates.
type DateParser struct {
	now func() time.Time
	loc *time.Location
}

// NewDateParser creates a DateParser resolving relative phrases in loc.
// A nil loc means time.Local.
func NewDateParser(loc *time.Location) *DateParser {
	return NewDateParserWithClock(loc, time.Now)
}

// NewDateParserWithClock creates a DateParser whose notion of "now" comes
// from now.
func NewDateParserWithClock(loc *time.Location, now func() time.Time) *DateParser {
	if loc == nil {
		loc = time.Local
	}
	return &DateParser{now: now, loc: loc}
}

// Parse returns the instant text refers to. Rules are tried in order and
// the first match wins; ok is false when none applies.
func (p *DateParser) Parse(text string) (t time.Time, ok bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return time.Time{}, false
	}
	s = cases.Lower(language.BrazilianPortuguese).String(s)

	now := p.now().In(p.loc)
	today := startOfDay(now)

	switch {
	case strings.Contains(s, "hoje"):
		return today, true
	case strings.Contains(s, "ontem"):
		return today.AddDate(0, 0, -1), true
	}

	if m := daysAgoRegexp.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, false
		}
		return today.AddDate(0, 0, -n), true
	}

	if m := hoursAgoRegexp.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, false
		}
		return now.Add(-time.Duration(n) * time.Hour), true
	}

	if m := slashDateRegexp.FindString(s); m != "" {
		for _, layout := range slashDateLayouts {
			if d, err := time.ParseInLocation(layout, m, p.loc); err == nil {
				return d, true
			}
		}
		return time.Time{}, false
	}

	if m := isoDateRegexp.FindString(s); m != "" {
		if d, err := time.ParseInLocation(DateLayout, m, p.loc); err == nil {
			return d, true
		}
	}

	return time.Time{}, false
}

// ParseDate is Parse reduced to a calendar date string, or nil.
func (p *DateParser) ParseDate(text *string) *string {
	if text == nil {
		return nil
	}
	t, ok := p.Parse(*text)
	if !ok {
		return nil
	}
	d := t.Format(DateLayout)
	return &d
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
