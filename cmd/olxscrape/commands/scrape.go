package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"olx-scraper/models"
	"olx-scraper/scraper/browser"
	"olx-scraper/scraper/olx"
	"olx-scraper/services"
	"olx-scraper/storage"
	"olx-scraper/utils"
)

const maxLimit = 300

var dateFromLayouts = []string{"2006-01-02", "02/01/2006"}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <url>",
	Short: "Scrape one OLX results page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTarget(cmd, args[0])
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Build an OLX search URL and scrape it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := olx.BuildSearchURL(viper.GetString("base_url"), args[0],
			viper.GetString("state"), viper.GetString("category"))
		if err != nil {
			return err
		}
		return runTarget(cmd, target)
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd, searchCmd)

	flags := rootCmd.PersistentFlags()

	flags.IntP("limit", "n", 20, fmt.Sprintf("max listings to return (1..%d)", maxLimit))
	flags.String("date-from", "", "keep listings posted on or after this date (YYYY-MM-DD or DD/MM/YYYY)")
	flags.String("mode", browser.ModeDynamic, "fetch mode: dynamic, static")
	flags.String("selectors", "", "YAML file overriding the built-in listing selectors")
	flags.String("timezone", "America/Sao_Paulo", "zone used to resolve relative posting dates")
	flags.String("chrome-bin", "", "path to the Chrome or Chromium binary")
	flags.Int("scroll-cycles", 6, "scroll-and-wait cycles before extraction")

	flags.String("csv", "", "write listings to this CSV file")
	flags.String("json", "", "write the result as JSON to this file (- for stdout)")
	flags.Bool("no-report", false, "skip the summary report")

	searchCmd.Flags().String("state", "mg", "two-letter state, or all")
	searchCmd.Flags().String("category", "", "category path, e.g. celulares")
	searchCmd.Flags().String("base-url", olx.DefaultBaseURL, "marketplace base URL")

	for key, name := range map[string]string{
		"limit": "limit", "date_from": "date-from", "mode": "mode", "selectors": "selectors",
		"timezone": "timezone", "chrome_bin": "chrome-bin", "scroll_cycles": "scroll-cycles",
		"csv": "csv", "json": "json", "no_report": "no-report",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(name))
	}
	_ = viper.BindPFlag("state", searchCmd.Flags().Lookup("state"))
	_ = viper.BindPFlag("category", searchCmd.Flags().Lookup("category"))
	_ = viper.BindPFlag("base_url", searchCmd.Flags().Lookup("base-url"))
}

func runTarget(cmd *cobra.Command, target string) error {
	logger := utils.NewLoggerWithOptions(utils.LoggerOptions{
		Debug:  viper.GetBool("debug"),
		Output: cmd.ErrOrStderr(),
	})

	params, err := scrapeParams(target)
	if err != nil {
		logError("%v", err)
		return err
	}

	orchestrator, err := newOrchestrator(logger)
	if err != nil {
		logError("%v", err)
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := orchestrator.Run(ctx, params)
	if err != nil {
		logError("scrape failed: %v", err)
		return err
	}

	if !viper.GetBool("no_report") {
		insights := services.NewInsightService(logger)
		insights.Print(cmd.OutOrStdout(), insights.Generate(result.Items))
	}

	if path := viper.GetString("csv"); path != "" {
		if err := writeCSV(path, result.Items); err != nil {
			return err
		}
		logger.Info("Wrote %d listings to %s", len(result.Items), path)
	}

	if path := viper.GetString("json"); path != "" {
		if err := writeJSON(cmd.OutOrStdout(), path, result); err != nil {
			return err
		}
	}
	return nil
}

func scrapeParams(target string) (services.ScrapeParams, error) {
	params := services.ScrapeParams{
		URL:   target,
		Limit: min(max(viper.GetInt("limit"), 1), maxLimit),
	}

	raw := viper.GetString("date_from")
	if raw == "" {
		return params, nil
	}
	loc, err := time.LoadLocation(viper.GetString("timezone"))
	if err != nil {
		return params, fmt.Errorf("timezone: %w", err)
	}
	for _, layout := range dateFromLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			params.DateFrom = &t
			return params, nil
		}
	}
	return params, fmt.Errorf("invalid --date-from %q: use YYYY-MM-DD or DD/MM/YYYY", raw)
}

func newOrchestrator(logger *utils.Logger) (*services.Orchestrator, error) {
	loc, err := time.LoadLocation(viper.GetString("timezone"))
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}

	selectors := olx.DefaultSelectors()
	if path := viper.GetString("selectors"); path != "" {
		if selectors, err = olx.LoadSelectors(path); err != nil {
			return nil, err
		}
	}
	extractor, err := olx.NewExtractor(selectors, logger)
	if err != nil {
		return nil, err
	}

	opts := browser.DefaultOptions()
	opts.ChromeBin = viper.GetString("chrome_bin")

	var renderer browser.Renderer
	switch mode := viper.GetString("mode"); mode {
	case browser.ModeDynamic:
		renderer = browser.NewChromeRenderer(opts, logger)
	case browser.ModeStatic:
		renderer = browser.NewStaticRenderer(opts, logger)
	default:
		return nil, fmt.Errorf("unknown --mode %q: use dynamic or static", mode)
	}

	cfg := services.DefaultOrchestratorConfig()
	cfg.ScrollCycles = max(viper.GetInt("scroll_cycles"), 0)

	return services.NewOrchestrator(renderer, extractor, services.NewDateParser(loc), cfg, logger), nil
}

func writeCSV(path string, items []*models.Listing) error {
	w, err := storage.NewCSVWriter(path)
	if err != nil {
		return err
	}
	if err := w.Write(items); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func writeJSON(stdout io.Writer, path string, result *models.ScrapeResult) error {
	out := stdout
	if path != "-" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("json: create output dir: %w", err)
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("json: create file %q: %w", path, err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
