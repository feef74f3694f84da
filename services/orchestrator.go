package services

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"olx-scraper/models"
	"olx-scraper/scraper/browser"
	"olx-scraper/scraper/olx"
	"olx-scraper/utils"
)

// MetaTimeLayout formats meta.scraped_at.
const MetaTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// State is a step of a scrape run. Runs move strictly forward through the
// states in declaration order, or to StateFailed.
type State int

const (
	StateIdle State = iota
	StatePageAcquired
	StateNavigated
	StateListingsSettled
	StateScrolled
	StateExtracted
	StateNormalized
	StateFiltered
	StateDone
	StateFailed
)

var stateNames = [...]string{
	"idle", "page_acquired", "navigated", "listings_settled", "scrolled",
	"extracted", "normalized", "filtered", "done", "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// ScrapeParams is one scrape request. Limit must already be clamped.
type ScrapeParams struct {
	URL      string
	Limit    int
	DateFrom *time.Time
}

// OrchestratorConfig holds the page timing knobs.
type OrchestratorConfig struct {
	NavigationTimeout time.Duration
	ListingsTimeout   time.Duration
	PollInterval      time.Duration
	ScrollCycles      int
	ScrollViewports   float64
	ScrollPause       time.Duration
	SettlePause       time.Duration
}

// DefaultOrchestratorConfig returns the timings used against the live site.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		NavigationTimeout: 60 * time.Second,
		ListingsTimeout:   15 * time.Second,
		PollInterval:      time.Second,
		ScrollCycles:      6,
		ScrollViewports:   1.5,
		ScrollPause:       1500 * time.Millisecond,
		SettlePause:       time.Second,
	}
}

// RunRecorder persists run metadata.
type RunRecorder interface {
	Record(ctx context.Context, run *models.ScrapeRun) error
}

// Orchestrator drives one page through load, scroll, extraction,
// normalization and filtering.
type Orchestrator struct {
	renderer   browser.Renderer
	extractor  *olx.Extractor
	dates      *DateParser
	normalizer *Normalizer
	filter     *Filter
	recorder   RunRecorder
	cfg        OrchestratorConfig
	logger     *utils.Logger
}

// NewOrchestrator wires an Orchestrator. dates supplies both the time zone
// and the clock for the run.
func NewOrchestrator(
	renderer browser.Renderer,
	extractor *olx.Extractor,
	dates *DateParser,
	cfg OrchestratorConfig,
	logger *utils.Logger,
) *Orchestrator {
	return &Orchestrator{
		renderer:   renderer,
		extractor:  extractor,
		dates:      dates,
		normalizer: NewNormalizer(logger, dates),
		filter:     NewFilter(logger),
		cfg:        cfg,
		logger:     logger,
	}
}

// WithRecorder makes the Orchestrator record every run to rec.
func (o *Orchestrator) WithRecorder(rec RunRecorder) *Orchestrator {
	o.recorder = rec
	return o
}

// Mode reports the fetch mode of the underlying renderer.
func (o *Orchestrator) Mode() string {
	return o.renderer.Mode()
}

// Run scrapes params.URL. The page is released exactly once on every path.
func (o *Orchestrator) Run(ctx context.Context, params ScrapeParams) (result *models.ScrapeResult, err error) {
	log := o.logger.WithField("target", params.URL)
	started := time.Now()
	state := StateIdle

	advance := func(next State) {
		log.Debug("[orchestrator] %s -> %s", state, next)
		state = next
	}

	defer func() {
		if err != nil {
			log.Error("[orchestrator] Failed after %s: %v", state, err)
			advance(StateFailed)
		}
		o.record(ctx, params, started, result, err)
	}()

	if params.URL == "" {
		return nil, &ValidationError{Param: "url", Reason: "required"}
	}
	if params.Limit < 1 {
		return nil, &ValidationError{Param: "limit", Reason: "must be at least 1"}
	}

	page, err := o.renderer.NewPage(ctx)
	if err != nil {
		return nil, &ResourceAcquisitionError{Err: err}
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			log.Warn("[orchestrator] Closing page: %v", cerr)
		}
	}()
	advance(StatePageAcquired)

	log.Info("[orchestrator] Loading %s (%s)", params.URL, o.renderer.Mode())
	if err := page.Navigate(ctx, params.URL, o.cfg.NavigationTimeout); err != nil {
		return nil, &NavigationError{URL: params.URL, Err: err}
	}
	advance(StateNavigated)

	if !page.WaitForAny(ctx, o.extractor.CardMarkers(), o.cfg.ListingsTimeout, o.cfg.PollInterval) {
		log.Warn("[orchestrator] No listing markers after %v, extracting anyway", o.cfg.ListingsTimeout)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("waiting for listings: %w", err)
	}
	advance(StateListingsSettled)

	if err := o.scroll(ctx, page); err != nil {
		return nil, fmt.Errorf("scrolling: %w", err)
	}
	advance(StateScrolled)

	var extraction olx.Extraction
	_, err = page.Evaluate(ctx, func(doc *goquery.Document, pageURL string) []*models.RawListing {
		extraction = o.extractor.Extract(doc, pageURL)
		return extraction.Listings
	})
	if err != nil {
		return nil, fmt.Errorf("extracting: %w", err)
	}
	advance(StateExtracted)

	at := o.dates.now()
	normalized := o.normalizer.NormalizeAt(extraction.Listings, at)
	advance(StateNormalized)

	items := o.filter.Apply(normalized, params.DateFrom, params.Limit)
	advance(StateFiltered)

	var filteredBy *string
	if params.DateFrom != nil {
		d := params.DateFrom.Format(DateLayout)
		filteredBy = &d
	}

	result = &models.ScrapeResult{
		Meta: models.ScrapeMeta{
			Source:          params.URL,
			ScrapedAt:       at.UTC().Format(MetaTimeLayout),
			RequestedLimit:  params.Limit,
			Returned:        len(items),
			TotalCandidates: len(normalized),
			FilteredByDate:  filteredBy,
			Strategy:        extraction.Strategy,
			FetchMode:       o.renderer.Mode(),
		},
		Items: items,
	}
	advance(StateDone)

	log.Info("[orchestrator] Returned %d of %d candidates (%s) in %v",
		len(items), len(normalized), extraction.Strategy, time.Since(started).Round(time.Millisecond))
	return result, nil
}

// scroll pages down a fixed number of times so lazy cards render, then
// returns to the top.
func (o *Orchestrator) scroll(ctx context.Context, page browser.Page) error {
	for i := 0; i < o.cfg.ScrollCycles; i++ {
		if err := page.ScrollBy(ctx, o.cfg.ScrollViewports); err != nil {
			return err
		}
		if err := page.Sleep(ctx, o.cfg.ScrollPause); err != nil {
			return err
		}
	}
	if err := page.ScrollToTop(ctx); err != nil {
		return err
	}
	return page.Sleep(ctx, o.cfg.SettlePause)
}

func (o *Orchestrator) record(ctx context.Context, params ScrapeParams, started time.Time, result *models.ScrapeResult, runErr error) {
	if o.recorder == nil {
		return
	}

	run := &models.ScrapeRun{
		ID:             uuid.NewString(),
		Source:         params.URL,
		FetchMode:      o.renderer.Mode(),
		StartedAt:      started.UTC(),
		DurationMs:     time.Since(started).Milliseconds(),
		RequestedLimit: params.Limit,
		Status:         models.RunOK,
	}
	if result != nil {
		run.Returned = result.Meta.Returned
		run.TotalCandidates = result.Meta.TotalCandidates
	}
	if runErr != nil {
		run.Status = models.RunFailed
		run.Error = runErr.Error()
	}

	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := o.recorder.Record(recCtx, run); err != nil {
		o.logger.Warn("[orchestrator] Recording run %s: %v", run.ID, err)
	}
}

// Probe loads url on a fresh page and returns the document title.
func (o *Orchestrator) Probe(ctx context.Context, url string, timeout time.Duration) (string, error) {
	page, err := o.renderer.NewPage(ctx)
	if err != nil {
		return "", &ResourceAcquisitionError{Err: err}
	}
	defer page.Close()

	if err := page.Navigate(ctx, url, timeout); err != nil {
		return "", &NavigationError{URL: url, Err: err}
	}
	return page.Title(ctx)
}
