package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"olx-scraper/api"
	"olx-scraper/config"
	"olx-scraper/scraper/browser"
	"olx-scraper/scraper/olx"
	"olx-scraper/services"
	"olx-scraper/storage"
	"olx-scraper/utils"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, config.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := utils.NewLoggerWithOptions(utils.LoggerOptions{Debug: cfg.Debug, JSON: cfg.LogJSON})

	logger.Info("=== OLX Scraper API starting ===")
	logger.Info("Config: mode %s | concurrency %d | rate %dms | limit %d..%d | tz %s",
		cfg.FetchMode, cfg.MaxConcurrency, cfg.RateLimitMs, cfg.DefaultLimit, cfg.MaxLimit, cfg.Timezone)

	if err := run(cfg, logger); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *utils.Logger) error {
	selectors := olx.DefaultSelectors()
	if cfg.SelectorsFile != "" {
		loaded, err := olx.LoadSelectors(cfg.SelectorsFile)
		if err != nil {
			return fmt.Errorf("loading selectors: %w", err)
		}
		selectors = loaded
		logger.Info("Selectors loaded from %s", cfg.SelectorsFile)
	}
	extractor, err := olx.NewExtractor(selectors, logger)
	if err != nil {
		return fmt.Errorf("building extractor: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store *storage.SQLRunStore
	if cfg.StoreDriver != "none" {
		store, err = storage.NewSQLRunStore(ctx, cfg.StoreDriver, cfg.StoreDSN(),
			utils.RetryConfig{MaxAttempts: cfg.MaxRetries, BaseDelay: 2 * time.Second}, logger)
		if err != nil {
			return fmt.Errorf("opening run store: %w", err)
		}
		defer store.Close()
	}

	dates := services.NewDateParser(cfg.Location())
	opts := cfg.BrowserOptions()
	renderers := []browser.Renderer{
		browser.NewChromeRenderer(opts, logger),
		browser.NewStaticRenderer(opts, logger),
	}

	scrapers := make(map[string]api.Scraper, len(renderers))
	for _, r := range renderers {
		o := services.NewOrchestrator(r, extractor, dates, cfg.OrchestratorConfig(), logger)
		if store != nil {
			o.WithRecorder(store)
		}
		scrapers[r.Mode()] = o
	}

	var runs api.RunLister
	if store != nil {
		runs = store
	}

	gate := utils.NewGate(cfg.MaxConcurrency, cfg.RateLimitMs)
	handler := api.NewHandler(cfg, scrapers, gate, runs, logger)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.NewServer(handler, logger),
		// Scrapes scroll for several seconds before responding.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.NavigationTimeout + cfg.ListingsTimeout + 2*time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Listening on :%s", cfg.Port)
		logger.Info("  Docs:    http://localhost:%s/", cfg.Port)
		logger.Info("  Example: http://localhost:%s/scrape-olx?q=iphone&limit=5", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	logger.Info("=== OLX Scraper API stopped ===")
	return nil
}
