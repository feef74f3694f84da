package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dustin/go-humanize"
	"github.com/gocolly/colly/v2"

	"olx-scraper/models"
	"olx-scraper/utils"
)

// StaticRenderer fetches pages over plain HTTP with colly. No script runs,
// so waits and scrolls are no-ops.
type StaticRenderer struct {
	opts   Options
	logger *utils.Logger
}

// NewStaticRenderer creates a StaticRenderer.
func NewStaticRenderer(opts Options, logger *utils.Logger) *StaticRenderer {
	def := DefaultOptions()
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	if opts.AcceptLanguage == "" {
		opts.AcceptLanguage = def.AcceptLanguage
	}
	return &StaticRenderer{opts: opts, logger: logger}
}

func (r *StaticRenderer) Mode() string { return ModeStatic }

func (r *StaticRenderer) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &staticPage{opts: r.opts, logger: r.logger}, nil
}

type staticPage struct {
	opts   Options
	logger *utils.Logger

	url  string
	html string
	doc  *goquery.Document
}

func (p *staticPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	c := colly.NewCollector(
		colly.UserAgent(p.opts.UserAgent),
		colly.StdlibContext(ctx),
		colly.AllowURLRevisit(),
	)
	if timeout > 0 {
		c.SetRequestTimeout(timeout)
	}

	headers := p.opts.headers()
	c.OnRequest(func(r *colly.Request) {
		for k, v := range headers {
			r.Headers.Set(k, v)
		}
	})

	var fetchErr error
	c.OnResponse(func(r *colly.Response) {
		p.url = r.Request.URL.String()
		p.html = string(r.Body)
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("static: %s returned %d: %w", url, r.StatusCode, err)
			return
		}
		fetchErr = fmt.Errorf("static: fetch %s: %w", url, err)
	})

	if err := c.Visit(url); err != nil && fetchErr == nil {
		fetchErr = fmt.Errorf("static: visit %s: %w", url, err)
	}
	if fetchErr != nil {
		return fetchErr
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.html))
	if err != nil {
		return fmt.Errorf("static: parse %s: %w", url, err)
	}
	p.doc = doc

	p.logger.Debug("[static] Fetched %s (%s)", p.url, humanize.Bytes(uint64(len(p.html))))
	return nil
}

func (p *staticPage) WaitForAny(ctx context.Context, selectors []string, timeout, poll time.Duration) bool {
	if p.doc == nil || len(selectors) == 0 {
		return false
	}
	return p.doc.Find(strings.Join(selectors, ", ")).Length() > 0
}

func (p *staticPage) ScrollBy(ctx context.Context, viewports float64) error { return ctx.Err() }

func (p *staticPage) ScrollToTop(ctx context.Context) error { return ctx.Err() }

func (p *staticPage) Sleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func (p *staticPage) Evaluate(ctx context.Context, routine ExtractFunc) ([]*models.RawListing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.doc == nil {
		return nil, fmt.Errorf("static: evaluate before navigate")
	}
	return routine(p.doc, p.url), nil
}

func (p *staticPage) Title(ctx context.Context) (string, error) {
	if p.doc == nil {
		return "", fmt.Errorf("static: title before navigate")
	}
	return strings.TrimSpace(p.doc.Find("title").First().Text()), nil
}

func (p *staticPage) Close() error {
	p.doc = nil
	p.html = ""
	return nil
}
