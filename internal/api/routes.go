package api

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codyseavey/card-resolver/internal/api/handlers"
	"github.com/codyseavey/card-resolver/internal/catalog"
	"github.com/codyseavey/card-resolver/internal/metrics"
	"github.com/codyseavey/card-resolver/internal/recency"
	"github.com/codyseavey/card-resolver/internal/resolver"
)

func SetupRouter(store *catalog.Store, engine *resolver.Engine, tracker *recency.Tracker) *gin.Engine {
	router := gin.Default()

	// CORS configuration - allow origins from environment or use defaults
	config := cors.DefaultConfig()
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		config.AllowOrigins = strings.Split(corsOrigins, ",")
	} else {
		config.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	config.AllowCredentials = false
	router.Use(cors.New(config))

	router.Use(requestMetrics())

	importsPerMinute := 0
	if raw := os.Getenv("IMPORT_RATE_LIMIT"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			importsPerMinute = parsed
		}
	}

	// Initialize handlers
	resolveHandler := handlers.NewResolveHandler(engine, tracker)
	catalogHandler := handlers.NewCatalogHandler(store, engine, importsPerMinute)

	// API routes
	api := router.Group("/api")
	{
		cards := api.Group("/cards")
		{
			cards.POST("/resolve", resolveHandler.ResolveCard)
			cards.GET("/search", catalogHandler.SearchCards)
		}

		cat := api.Group("/catalog")
		{
			cat.POST("/import", catalogHandler.ImportCards)
			cat.GET("/status", catalogHandler.GetStatus)
		}

		recent := api.Group("/recent-sets")
		{
			recent.GET("", resolveHandler.GetRecentSets)
			recent.POST("/clear", resolveHandler.ClearRecentSets)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Prometheus scrape endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

// requestMetrics records per-route request counts and latency.
func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		metrics.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status()),
		).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(
			c.Request.Method, path,
		).Observe(time.Since(start).Seconds())
	}
}
