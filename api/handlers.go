package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"olx-scraper/config"
	"olx-scraper/scraper/olx"
	"olx-scraper/services"
	"olx-scraper/utils"
)

const (
	serviceName    = "OLX Scraper API"
	serviceVersion = "2.0.0"

	healthTimeout   = 15 * time.Second
	defaultRunLimit = 20
	maxRunLimit     = 100

	scrapeExample = "/scrape?url=https://www.olx.com.br/celulares/estado-mg?q=iphone&limit=10"
	olxExample    = "/scrape-olx?q=iphone&state=sp&category=celulares"
)

var dateFromLayouts = []string{"2006-01-02", "02/01/2006"}

// NewHandler creates a Handler. scrapers is keyed by fetch mode and must
// contain cfg.FetchMode. runs may be nil when no run store is configured.
func NewHandler(cfg *config.Config, scrapers map[string]Scraper, gate *utils.Gate, runs RunLister, logger *utils.Logger) *Handler {
	return &Handler{
		cfg:         cfg,
		scrapers:    scrapers,
		defaultMode: cfg.FetchMode,
		gate:        gate,
		runs:        runs,
		logger:      logger,
	}
}

// Scrape handles GET /scrape.
func (h *Handler) Scrape(c *gin.Context) {
	var q scrapeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, err, scrapeExample)
		return
	}
	h.scrape(c, q.URL, q.Limit, q.DateFrom, q.Mode)
}

// ScrapeOLX handles GET /scrape-olx by building a search URL and running the
// same flow as /scrape.
func (h *Handler) ScrapeOLX(c *gin.Context) {
	var q olxQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, err, olxExample)
		return
	}

	target, err := olx.BuildSearchURL(h.cfg.BaseURL, q.Q, q.State, q.Category)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.logger.Info("[api] Built search URL %s", target)
	h.scrape(c, target, q.Limit, q.DateFrom, q.Mode)
}

func (h *Handler) scrape(c *gin.Context, target, rawLimit, rawDateFrom, mode string) {
	scraper, ok := h.scraper(mode)
	if !ok {
		h.fail(c, &services.ValidationError{Param: "mode", Reason: fmt.Sprintf("no %s fetcher configured", mode)})
		return
	}

	params := services.ScrapeParams{
		URL:      target,
		Limit:    h.parseLimit(rawLimit),
		DateFrom: h.parseDateFrom(rawDateFrom),
	}

	ctx := c.Request.Context()
	release, err := h.gate.Acquire(ctx)
	if err != nil {
		h.fail(c, &services.ResourceAcquisitionError{Err: err})
		return
	}
	defer release()

	result, err := scraper.Run(ctx, params)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, scrapeResponse{
		Success: true,
		Meta:    result.Meta,
		Items:   result.Items,
	})
}

// Health handles GET /health. With ?deep=true, or when deep checks are
// enabled in config, it loads the marketplace and reports the page title.
func (h *Handler) Health(c *gin.Context) {
	resp := gin.H{
		"status":       "healthy",
		"timestamp":    now(),
		"service":      serviceName,
		"fetch_mode":   h.defaultMode,
		"pages_in_use": h.gate.InUse(),
		"max_pages":    h.gate.Capacity(),
	}

	deep := h.cfg.HealthDeepCheck
	if v, err := strconv.ParseBool(c.Query("deep")); err == nil {
		deep = v
	}
	if !deep {
		c.JSON(http.StatusOK, resp)
		return
	}

	title, err := h.probe(c.Request.Context())
	if err != nil {
		h.logger.Warn("[api] Health probe failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":         "unhealthy",
			"timestamp":      now(),
			"error":          err.Error(),
			"olx_accessible": false,
		})
		return
	}

	resp["olx_accessible"] = true
	resp["page_title"] = title
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) probe(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	release, err := h.gate.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	return h.scrapers[h.defaultMode].Probe(ctx, h.cfg.HealthURL, healthTimeout)
}

// Runs handles GET /runs.
func (h *Handler) Runs(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{
			Error:  "Histórico de execuções desativado",
			Detail: "set STORE_DRIVER to postgres or sqlite",
		})
		return
	}

	limit := defaultRunLimit
	if n, err := strconv.Atoi(c.Query("limit")); err == nil {
		limit = min(max(n, 1), maxRunLimit)
	}

	runs, err := h.runs.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("[api] Listing runs: %v", err)
		c.JSON(http.StatusInternalServerError, errorResponse{
			Error:  "Falha ao consultar histórico",
			Detail: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "runs": runs})
}

// Index handles GET / with the service description and endpoint catalog.
func (h *Handler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":    serviceName,
		"version":    serviceVersion,
		"fetch_mode": h.defaultMode,
		"endpoints": gin.H{
			"/scrape": gin.H{
				"method": "GET",
				"parameters": gin.H{
					"url":       "URL completa do OLX (obrigatória)",
					"limit":     fmt.Sprintf("Número máximo de resultados (opcional, padrão: %d, máximo: %d)", h.cfg.DefaultLimit, h.cfg.MaxLimit),
					"date_from": "Filtrar a partir da data (YYYY-MM-DD ou DD/MM/YYYY)",
					"mode":      "dynamic ou static (opcional)",
				},
				"example": scrapeExample,
			},
			"/scrape-olx": gin.H{
				"method": "GET",
				"parameters": gin.H{
					"q":        "Termo de busca (obrigatório)",
					"state":    "Estado (opcional, padrão: mg; all para todo o Brasil)",
					"category": "Categoria (opcional)",
					"limit":    "Número máximo de resultados",
				},
				"example": "/scrape-olx?q=iphone+16&state=sp&category=celulares&limit=15",
			},
			"/health": "Health check do serviço (?deep=true acessa a OLX)",
			"/runs":   "Histórico de execuções (?limit=)",
		},
	})
}

func (h *Handler) scraper(mode string) (Scraper, bool) {
	if mode == "" {
		mode = h.defaultMode
	}
	s, ok := h.scrapers[mode]
	return s, ok
}

func (h *Handler) parseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	return h.cfg.ClampLimit(n, err == nil)
}

// parseDateFrom accepts YYYY-MM-DD or DD/MM/YYYY. Anything else is ignored.
func (h *Handler) parseDateFrom(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dateFromLayouts {
		if t, err := time.ParseInLocation(layout, raw, h.cfg.Location()); err == nil {
			return &t
		}
	}
	h.logger.Warn("[api] Ignoring malformed date_from %q", raw)
	return nil
}

func (h *Handler) badRequest(c *gin.Context, err error, example string) {
	resp := errorResponse{Error: "Parâmetros inválidos", Detail: err.Error(), Example: example}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		param := strings.ToLower(fe.Field())
		if fe.Tag() == "required" {
			resp.Error = fmt.Sprintf("Parâmetro %s é obrigatório", param)
		} else {
			resp.Error = fmt.Sprintf("Parâmetro %s inválido", param)
		}
		resp.Detail = fmt.Sprintf("%s failed on %q", param, fe.Tag())
	}

	c.JSON(http.StatusBadRequest, resp)
}

// fail maps a scrape error onto the response. Validation problems are the
// caller's fault; everything else is a 500.
func (h *Handler) fail(c *gin.Context, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, errorResponse{
			Error:  fmt.Sprintf("Parâmetro %s inválido", verr.Param),
			Detail: verr.Error(),
		})
		return
	}

	c.JSON(http.StatusInternalServerError, errorResponse{
		Error:  "Falha no scraping",
		Detail: err.Error(),
	})
}

func now() string {
	return time.Now().UTC().Format(services.MetaTimeLayout)
}
