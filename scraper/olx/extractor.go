// Package olx reads classified-ad listings out of OLX search result pages.
package olx

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"olx-scraper/models"
	"olx-scraper/utils"
)

// Extraction strategies.
const (
	StrategyPrimary  = "primary"
	StrategyFallback = "fallback"
	StrategyNone     = "none"
)

// Extraction is the outcome of one pass over a page.
type Extraction struct {
	Listings []*models.RawListing
	Strategy string
}

// Extractor finds listing cards in a page and reads their fields.
type Extractor struct {
	logger *utils.Logger

	cards    string
	markers  []string
	title    []LinkRule
	price    []FieldExtractor
	location []FieldExtractor
	date     []FieldExtractor
	image    []FieldExtractor

	fallbackAnchors    string
	fallbackLink       *regexp.Regexp
	fallbackContainers string
	fallbackMinTitle   int
	fallbackMaxTitle   int
}

// NewExtractor validates cfg and compiles it. A nil cfg means
// DefaultSelectors.
func NewExtractor(cfg *SelectorConfig, logger *utils.Logger) (*Extractor, error) {
	if cfg == nil {
		cfg = DefaultSelectors()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("extractor: invalid selectors: %w", err)
	}

	e := &Extractor{
		logger:             logger,
		cards:              strings.Join(cfg.Cards, ", "),
		markers:            append([]string(nil), cfg.Cards...),
		title:              append([]LinkRule(nil), cfg.Title...),
		fallbackAnchors:    strings.Join(cfg.Fallback.Anchors, ", "),
		fallbackContainers: strings.Join(cfg.Fallback.Containers, ", "),
		fallbackMinTitle:   cfg.Fallback.MinTitle,
		fallbackMaxTitle:   cfg.Fallback.MaxTitle,
	}

	var err error
	if e.fallbackLink, err = regexp.Compile(cfg.Fallback.LinkPattern); err != nil {
		return nil, fmt.Errorf("extractor: fallback link pattern: %w", err)
	}
	if e.price, err = compileRules(cfg.Price); err != nil {
		return nil, fmt.Errorf("extractor: price: %w", err)
	}
	if e.location, err = compileRules(cfg.Location); err != nil {
		return nil, fmt.Errorf("extractor: location: %w", err)
	}
	if e.date, err = compileRules(cfg.Date); err != nil {
		return nil, fmt.Errorf("extractor: date: %w", err)
	}
	if e.image, err = compileRules(cfg.Image); err != nil {
		return nil, fmt.Errorf("extractor: image: %w", err)
	}

	return e, nil
}

// CardMarkers returns the selectors whose presence means listings have
// rendered.
func (e *Extractor) CardMarkers() []string {
	return e.markers
}

// Extract runs the card pass and, only if it yields nothing, the link-scan
// pass. Links are resolved against pageURL and never repeat.
func (e *Extractor) Extract(doc *goquery.Document, pageURL string) Extraction {
	base, err := url.Parse(pageURL)
	if err != nil || !base.IsAbs() {
		base = nil
	}
	seen := utils.NewURLSet()

	if listings := e.primary(doc, base, seen); len(listings) > 0 {
		e.logger.Debug("[extractor] Card pass found %d listings", len(listings))
		return Extraction{Listings: listings, Strategy: StrategyPrimary}
	}

	if listings := e.fallback(doc, base, seen); len(listings) > 0 {
		e.logger.Debug("[extractor] Card pass found nothing, link scan found %d listings", len(listings))
		return Extraction{Listings: listings, Strategy: StrategyFallback}
	}

	e.logger.Debug("[extractor] No listings found on %s", pageURL)
	return Extraction{Listings: []*models.RawListing{}, Strategy: StrategyNone}
}

func (e *Extractor) primary(doc *goquery.Document, base *url.URL, seen *utils.URLSet) []*models.RawListing {
	var out []*models.RawListing
	doc.Find(e.cards).Each(func(_ int, card *goquery.Selection) {
		title, link := e.titleAndLink(card, base)
		if title == "" || link == "" {
			return
		}
		if !seen.Add(link) {
			return
		}
		out = append(out, e.listing(card, title, link, base))
	})
	return out
}

func (e *Extractor) fallback(doc *goquery.Document, base *url.URL, seen *utils.URLSet) []*models.RawListing {
	var out []*models.RawListing
	doc.Find(e.fallbackAnchors).Each(func(_ int, a *goquery.Selection) {
		link := resolveURL(base, a.AttrOr("href", ""))
		if link == "" || !e.fallbackLink.MatchString(link) || seen.Contains(link) {
			return
		}

		title := cleanText(a.Text())
		n := utf8.RuneCountInString(title)
		if n <= e.fallbackMinTitle || n >= e.fallbackMaxTitle {
			return
		}
		seen.Add(link)

		var container *goquery.Selection
		if e.fallbackContainers != "" {
			container = a.Parent().Closest(e.fallbackContainers)
		}
		if container == nil || container.Length() == 0 {
			out = append(out, &models.RawListing{
				Title:     title,
				PriceText: models.PriceMissing,
				Link:      link,
				Location:  models.LocationMissing,
			})
			return
		}
		out = append(out, e.listing(container, title, link, base))
	})
	return out
}

// titleAndLink applies the title rules in order; the first rule producing
// both a title and a link wins.
func (e *Extractor) titleAndLink(card *goquery.Selection, base *url.URL) (string, string) {
	for _, rule := range e.title {
		var title, link string
		card.Find(rule.Selector).EachWithBreak(func(_ int, match *goquery.Selection) bool {
			anchor := anchorFor(match)
			l := resolveURL(base, anchor.AttrOr("href", ""))
			if l == "" {
				return true
			}
			if rule.HrefContains != "" && !strings.Contains(l, rule.HrefContains) {
				return true
			}
			t := cleanText(match.Text())
			if t == "" {
				t = cleanText(anchor.AttrOr("title", ""))
			}
			if t == "" || utf8.RuneCountInString(t) <= rule.MinTitle {
				return true
			}
			title, link = t, l
			return false
		})
		if title != "" && link != "" {
			return title, link
		}
	}
	return "", ""
}

// listing reads the optional fields from scope.
func (e *Extractor) listing(scope *goquery.Selection, title, link string, base *url.URL) *models.RawListing {
	l := &models.RawListing{
		Title:     title,
		PriceText: models.PriceMissing,
		Link:      link,
		Location:  models.LocationMissing,
	}
	if v, ok := firstOf(e.price, scope); ok {
		l.PriceText = v
	}
	if v, ok := firstOf(e.location, scope); ok {
		l.Location = v
	}
	if v, ok := firstOf(e.date, scope); ok {
		l.DateText = &v
	}
	for _, fe := range e.image {
		v, ok := fe.Extract(scope)
		if !ok {
			continue
		}
		if img := resolveURL(base, v); img != "" {
			l.Image = &img
			break
		}
	}
	return l
}

// anchorFor returns the anchor a title element links through: itself or an
// enclosing anchor, else the first anchor next to or inside it.
func anchorFor(s *goquery.Selection) *goquery.Selection {
	if a := s.Closest("a[href]"); a.Length() > 0 {
		return a
	}
	if a := s.Parent().Find("a[href]").First(); a.Length() > 0 {
		return a
	}
	return s.Find("a[href]").First()
}

// resolveURL makes href absolute against base. It returns "" for empty,
// fragment-only and non-http(s) references.
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if !u.IsAbs() {
		if base == nil {
			return ""
		}
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
