// Package browser provides the page-rendering collaborators used by the
// scrape orchestrator: a headless Chrome renderer driven by chromedp and a
// static renderer driven by colly.
package browser

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"

	"olx-scraper/models"
)

// Fetch modes.
const (
	ModeDynamic = "dynamic"
	ModeStatic  = "static"
)

// DefaultUserAgent mimics a desktop Chrome build.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ExtractFunc runs against a snapshot of the page DOM. pageURL is the URL
// the page ended up on and is used to resolve relative links.
type ExtractFunc func(doc *goquery.Document, pageURL string) []*models.RawListing

// Page is one loaded page owned by a single request.
type Page interface {
	// Navigate loads url, failing if it takes longer than timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// WaitForAny polls every poll until an element matching any selector
	// exists or timeout passes. It reports whether one appeared.
	WaitForAny(ctx context.Context, selectors []string, timeout, poll time.Duration) bool
	// ScrollBy scrolls down by the given number of viewport heights.
	ScrollBy(ctx context.Context, viewports float64) error
	ScrollToTop(ctx context.Context) error
	Sleep(ctx context.Context, d time.Duration) error
	Evaluate(ctx context.Context, routine ExtractFunc) ([]*models.RawListing, error)
	Title(ctx context.Context) (string, error)
	// Close releases the page. It is safe to call more than once.
	Close() error
}

// Renderer hands out pages.
type Renderer interface {
	NewPage(ctx context.Context) (Page, error)
	Mode() string
}

// Options configures a Renderer.
type Options struct {
	ChromeBin      string
	UserAgent      string
	AcceptLanguage string
	ViewportWidth  int
	ViewportHeight int
}

// DefaultOptions returns the browser session used against the marketplace.
func DefaultOptions() Options {
	return Options{
		UserAgent:      DefaultUserAgent,
		AcceptLanguage: "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7",
		ViewportWidth:  1280,
		ViewportHeight: 800,
	}
}

func (o Options) headers() map[string]string {
	return map[string]string{
		"Accept-Language": o.AcceptLanguage,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Cache-Control":   "no-cache",
		"Pragma":          "no-cache",
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
