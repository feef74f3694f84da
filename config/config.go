package config

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"

	"olx-scraper/scraper/browser"
	"olx-scraper/services"
)

// Config holds all application configuration loaded from flags and
// environment variables.
type Config struct {
	Port      string `long:"port" env:"PORT" default:"3000" description:"HTTP server port" validate:"required,numeric"`
	FetchMode string `long:"fetch-mode" env:"FETCH_MODE" default:"dynamic" description:"Page fetcher: dynamic (headless Chrome) or static (plain HTTP)" validate:"oneof=dynamic static"`
	BaseURL   string `long:"base-url" env:"OLX_BASE_URL" default:"https://www.olx.com.br" description:"Marketplace base URL used by /scrape-olx" validate:"required,url"`

	ChromeBin      string `long:"chrome-bin" env:"CHROME_BIN" description:"Path to the Chrome or Chromium binary"`
	UserAgent      string `long:"user-agent" env:"USER_AGENT" description:"User agent sent by the browser"`
	AcceptLanguage string `long:"accept-language" env:"ACCEPT_LANGUAGE" default:"pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7" description:"Accept-Language header"`

	NavigationTimeout time.Duration `long:"navigation-timeout" env:"NAVIGATION_TIMEOUT" default:"60s" description:"Page load timeout" validate:"gt=0"`
	ListingsTimeout   time.Duration `long:"listings-timeout" env:"LISTINGS_TIMEOUT" default:"15s" description:"How long to wait for listing cards to appear" validate:"gte=0"`
	PollInterval      time.Duration `long:"poll-interval" env:"POLL_INTERVAL" default:"1s" description:"Listing card polling interval" validate:"gt=0"`
	ScrollCycles      int           `long:"scroll-cycles" env:"SCROLL_CYCLES" default:"6" description:"Scroll-and-wait cycles before extraction" validate:"gte=0,lte=50"`
	ScrollPause       time.Duration `long:"scroll-pause" env:"SCROLL_PAUSE" default:"1500ms" description:"Pause after each scroll" validate:"gte=0"`
	SettlePause       time.Duration `long:"settle-pause" env:"SETTLE_PAUSE" default:"1s" description:"Pause after returning to the top" validate:"gte=0"`

	DefaultLimit  int    `long:"default-limit" env:"DEFAULT_LIMIT" default:"20" description:"Listings returned when limit is absent" validate:"gte=1,ltefield=MaxLimit"`
	MaxLimit      int    `long:"max-limit" env:"MAX_LIMIT" default:"300" description:"Upper bound for the limit parameter" validate:"gte=1"`
	SelectorsFile string `long:"selectors" env:"SELECTORS_FILE" description:"YAML file overriding the built-in listing selectors"`

	MaxConcurrency int `long:"max-concurrency" env:"MAX_CONCURRENCY" default:"3" description:"Pages rendered in parallel" validate:"gte=1"`
	RateLimitMs    int `long:"rate-limit-ms" env:"RATE_LIMIT_MS" default:"2000" description:"Minimum gap between page loads in milliseconds" validate:"gte=0"`

	Timezone string `long:"timezone" env:"TIMEZONE" default:"America/Sao_Paulo" description:"Zone used to resolve relative posting dates" validate:"required"`

	StoreDriver      string `long:"store" env:"STORE_DRIVER" default:"none" description:"Run history backend: none, postgres or sqlite" validate:"oneof=none postgres sqlite"`
	PostgresHost     string `long:"postgres-host" env:"POSTGRES_HOST" default:"localhost" description:"PostgreSQL host"`
	PostgresPort     string `long:"postgres-port" env:"POSTGRES_PORT" default:"5432" description:"PostgreSQL port"`
	PostgresUser     string `long:"postgres-user" env:"POSTGRES_USER" default:"scraper" description:"PostgreSQL user"`
	PostgresPassword string `long:"postgres-password" env:"POSTGRES_PASSWORD" default:"scraper123" description:"PostgreSQL password"`
	PostgresDB       string `long:"postgres-db" env:"POSTGRES_DB" default:"olx_scraper" description:"PostgreSQL database"`
	PostgresSSLMode  string `long:"postgres-sslmode" env:"POSTGRES_SSLMODE" default:"disable" description:"PostgreSQL sslmode"`
	SQLitePath       string `long:"sqlite-path" env:"SQLITE_PATH" default:"./data/runs.db" description:"SQLite database file"`
	MaxRetries       int    `long:"max-retries" env:"MAX_RETRIES" default:"5" description:"Store connection attempts" validate:"gte=1"`

	HealthURL       string `long:"health-url" env:"HEALTH_URL" default:"https://www.olx.com.br/celulares?q=iphone&sf=1" description:"Page loaded by the deep health check" validate:"required,url"`
	HealthDeepCheck bool   `long:"health-deep-check" env:"HEALTH_DEEP_CHECK" description:"Load HealthURL on every /health request"`

	Debug   bool `long:"debug" env:"DEBUG" description:"Enable debug logging"`
	LogJSON bool `long:"log-json" env:"LOG_JSON" description:"Emit JSON log lines"`
}

// ErrHelp is returned by Load when --help was requested.
var ErrHelp = errors.New("help requested")

// Load reads an optional .env file, then parses args over environment
// variables and defaults.
func Load(args []string) (*Config, error) {
	// Missing .env is normal; real env vars still apply.
	_ = godotenv.Load()

	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, ErrHelp
		}
		return nil, fmt.Errorf("config: parse: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", cfg.Timezone, err)
	}

	return &cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// StoreDSN returns the data source for the configured run store.
func (c *Config) StoreDSN() string {
	if c.StoreDriver == "sqlite" {
		return c.SQLitePath
	}
	return c.DSN()
}

// Location returns the configured time zone. Load has already validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) OrchestratorConfig() services.OrchestratorConfig {
	oc := services.DefaultOrchestratorConfig()
	oc.NavigationTimeout = c.NavigationTimeout
	oc.ListingsTimeout = c.ListingsTimeout
	oc.PollInterval = c.PollInterval
	oc.ScrollCycles = c.ScrollCycles
	oc.ScrollPause = c.ScrollPause
	oc.SettlePause = c.SettlePause
	return oc
}

func (c *Config) BrowserOptions() browser.Options {
	opts := browser.DefaultOptions()
	opts.ChromeBin = c.ChromeBin
	if c.UserAgent != "" {
		opts.UserAgent = c.UserAgent
	}
	if c.AcceptLanguage != "" {
		opts.AcceptLanguage = c.AcceptLanguage
	}
	return opts
}

// ClampLimit bounds a requested limit to 1..MaxLimit. ok is false when the
// caller had no usable value, in which case DefaultLimit applies.
func (c *Config) ClampLimit(n int, ok bool) int {
	if !ok {
		n = c.DefaultLimit
	}
	if n < 1 {
		return 1
	}
	if n > c.MaxLimit {
		return c.MaxLimit
	}
	return n
}
