package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"olx-scraper/utils"
)

// NewServer creates a gin engine with all routes configured.
func NewServer(handler *Handler, logger *utils.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(requestLogger(logger))
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler) {
	r.GET("/scrape", handler.Scrape)
	r.GET("/scrape-olx", handler.ScrapeOLX)

	r.GET("/health", handler.Health)
	r.GET("/runs", handler.Runs)

	r.GET("/", handler.Index)

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// requestLogger logs one line per request through the application logger.
func requestLogger(logger *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)

		c.Next()

		log := logger.WithFields(map[string]any{
			"request_id": id,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).Round(time.Millisecond).String(),
			"client":     c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			log = log.WithField("errors", c.Errors.String())
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("[http] %s %s", c.Request.Method, c.Request.URL.RequestURI())
		case c.Writer.Status() >= http.StatusBadRequest:
			log.Warn("[http] %s %s", c.Request.Method, c.Request.URL.RequestURI())
		default:
			log.Info("[http] %s %s", c.Request.Method, c.Request.URL.RequestURI())
		}
	}
}
