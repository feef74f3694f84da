package api

import (
	"context"
	"time"

	"olx-scraper/config"
	"olx-scraper/models"
	"olx-scraper/services"
	"olx-scraper/utils"
)

// Scraper runs scrapes and health probes for one fetch mode.
type Scraper interface {
	Run(ctx context.Context, params services.ScrapeParams) (*models.ScrapeResult, error)
	Probe(ctx context.Context, url string, timeout time.Duration) (string, error)
	Mode() string
}

var _ Scraper = (*services.Orchestrator)(nil)

// RunLister lists recorded scrape runs.
type RunLister interface {
	Recent(ctx context.Context, limit int) ([]*models.ScrapeRun, error)
}

type Handler struct {
	cfg         *config.Config
	scrapers    map[string]Scraper
	defaultMode string
	gate        *utils.Gate
	runs        RunLister
	logger      *utils.Logger
}

type scrapeQuery struct {
	URL      string `form:"url" binding:"required,http_url"`
	Limit    string `form:"limit"`
	DateFrom string `form:"date_from"`
	Mode     string `form:"mode" binding:"omitempty,oneof=dynamic static"`
}

type olxQuery struct {
	Q        string `form:"q" binding:"required"`
	State    string `form:"state,default=mg" binding:"omitempty,alpha"`
	Category string `form:"category" binding:"omitempty,excludesall=?#"`
	Limit    string `form:"limit"`
	DateFrom string `form:"date_from"`
	Mode     string `form:"mode" binding:"omitempty,oneof=dynamic static"`
}

type scrapeResponse struct {
	Success bool              `json:"success"`
	Meta    models.ScrapeMeta `json:"meta"`
	Items   []*models.Listing `json:"items"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Detail  string `json:"detail,omitempty"`
	Example string `json:"example,omitempty"`
}
