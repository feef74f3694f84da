package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/dustin/go-humanize"

	"olx-scraper/models"
	"olx-scraper/utils"
)

// ChromeRenderer launches a headless Chrome per page.
type ChromeRenderer struct {
	opts   Options
	logger *utils.Logger
}

// NewChromeRenderer creates a ChromeRenderer. Empty option fields fall back
// to DefaultOptions.
func NewChromeRenderer(opts Options, logger *utils.Logger) *ChromeRenderer {
	def := DefaultOptions()
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	if opts.AcceptLanguage == "" {
		opts.AcceptLanguage = def.AcceptLanguage
	}
	if opts.ViewportWidth <= 0 || opts.ViewportHeight <= 0 {
		opts.ViewportWidth, opts.ViewportHeight = def.ViewportWidth, def.ViewportHeight
	}
	if opts.ChromeBin == "" {
		opts.ChromeBin = findChromeBinary()
	}
	return &ChromeRenderer{opts: opts, logger: logger}
}

func (r *ChromeRenderer) Mode() string { return ModeDynamic }

// NewPage starts a browser process and a tab bound to ctx. Cancelling ctx
// tears both down.
func (r *ChromeRenderer) NewPage(ctx context.Context) (Page, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(r.opts.UserAgent),
		chromedp.WindowSize(r.opts.ViewportWidth, r.opts.ViewportHeight),
	)
	if r.opts.ChromeBin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(r.opts.ChromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...any) {}),
		chromedp.WithErrorf(func(format string, args ...any) {
			r.logger.Debug("[chrome] "+format, args...)
		}),
	)

	headers := network.Headers{}
	for k, v := range r.opts.headers() {
		headers[k] = v
	}

	// The first Run allocates the browser and the tab.
	err := chromedp.Run(tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		chromedp.EmulateViewport(int64(r.opts.ViewportWidth), int64(r.opts.ViewportHeight)),
	)
	if err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("chrome: start browser (bin %q): %w", r.opts.ChromeBin, err)
	}

	return &chromePage{
		ctx:    tabCtx,
		logger: r.logger,
		cancel: func() {
			cancelTab()
			cancelAlloc()
		},
	}, nil
}

type chromePage struct {
	ctx    context.Context
	logger *utils.Logger

	once   sync.Once
	cancel func()
}

// run executes actions on the tab, bounded by timeout (if positive) and by
// the caller's ctx.
func (p *chromePage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(p.ctx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(p.ctx)
	}
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := p.run(ctx, timeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("chrome: navigate: %w", err)
	}
	return nil
}

func (p *chromePage) WaitForAny(ctx context.Context, selectors []string, timeout, poll time.Duration) bool {
	if len(selectors) == 0 {
		return false
	}
	js := fmt.Sprintf("document.querySelector(%s) !== null", strconv.Quote(strings.Join(selectors, ", ")))
	deadline := time.Now().Add(timeout)

	for {
		var found bool
		if err := p.run(ctx, poll, chromedp.Evaluate(js, &found)); err == nil && found {
			return true
		}
		if !time.Now().Add(poll).Before(deadline) {
			return false
		}
		if err := sleep(ctx, poll); err != nil {
			return false
		}
	}
}

func (p *chromePage) ScrollBy(ctx context.Context, viewports float64) error {
	js := fmt.Sprintf("window.scrollBy(0, window.innerHeight * %g)", viewports)
	return p.run(ctx, 0, chromedp.Evaluate(js, nil))
}

func (p *chromePage) ScrollToTop(ctx context.Context) error {
	return p.run(ctx, 0, chromedp.Evaluate(`window.scrollTo(0, 0)`, nil))
}

func (p *chromePage) Sleep(ctx context.Context, d time.Duration) error {
	return sleep(ctx, d)
}

func (p *chromePage) Evaluate(ctx context.Context, routine ExtractFunc) ([]*models.RawListing, error) {
	var html, location string
	err := p.run(ctx, 0,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome: snapshot DOM: %w", err)
	}

	p.logger.Debug("[chrome] DOM snapshot of %s: %s", location, humanize.Bytes(uint64(len(html))))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("chrome: parse DOM: %w", err)
	}
	return routine(doc, location), nil
}

func (p *chromePage) Title(ctx context.Context) (string, error) {
	var title string
	if err := p.run(ctx, 0, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("chrome: title: %w", err)
	}
	return title, nil
}

func (p *chromePage) Close() error {
	p.once.Do(p.cancel)
	return nil
}

// findChromeBinary looks for a Chrome or Chromium executable, checking
// CHROME_BIN first, then PATH, then common install locations. An empty
// result lets chromedp use its own lookup.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
