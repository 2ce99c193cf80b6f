package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/codyseavey/card-resolver/internal/catalog"
	"github.com/codyseavey/card-resolver/internal/metrics"
	"github.com/codyseavey/card-resolver/internal/models"
)

const defaultSearchLimit = 50

// resolutionCache is the slice of the engine the import path needs: imports
// rewrite rows out from under cached exact lookups.
type resolutionCache interface {
	InvalidateCache()
}

type CatalogHandler struct {
	store *catalog.Store
	cache resolutionCache

	// Imports rewrite tens of thousands of rows; the limiter keeps a
	// misbehaving upstream from hammering the store.
	importLimiter *rate.Limiter
}

func NewCatalogHandler(store *catalog.Store, cache resolutionCache, importsPerMinute int) *CatalogHandler {
	if importsPerMinute <= 0 {
		importsPerMinute = 2
	}
	return &CatalogHandler{
		store:         store,
		cache:         cache,
		importLimiter: rate.NewLimiter(rate.Limit(float64(importsPerMinute)/60.0), 1),
	}
}

// SearchCards runs the tiered catalog search directly, bypassing the
// resolution cascade. Used by the manual-entry flow.
func (h *CatalogHandler) SearchCards(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	}

	var lang *models.Language
	if raw := c.Query("language"); raw != "" {
		l := models.Language(raw)
		if !l.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported language: " + raw})
			return
		}
		lang = &l
	}

	limit := defaultSearchLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	cards, err := h.store.Search(query, c.Query("number"), lang, limit)
	if err != nil {
		log.Printf("Catalog search failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cards":       cards,
		"total_count": len(cards),
	})
}

// ImportCards bulk-upserts card records. The whole batch is one transaction;
// on failure the catalog is unchanged.
func (h *CatalogHandler) ImportCards(c *gin.Context) {
	if !h.importLimiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "import rate limit exceeded, retry later"})
		return
	}

	var records []models.CardRecord
	if err := c.ShouldBindJSON(&records); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid card records: " + err.Error()})
		return
	}

	for i := range records {
		if records[i].ID == "" || records[i].Name == "" || records[i].SetID == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "records require id, name, and set_id",
				"index": i,
			})
			return
		}
	}

	jobID := uuid.New().String()

	count, err := h.store.UpsertCards(records)
	if err != nil {
		log.Printf("Catalog import %s failed: %v", jobID, err)
		metrics.CatalogImportsTotal.WithLabelValues("failed").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "job_id": jobID})
		return
	}

	// Cached exact lookups may now point at replaced rows.
	h.cache.InvalidateCache()

	metrics.CatalogImportsTotal.WithLabelValues("success").Inc()
	metrics.CatalogImportedCards.Add(float64(count))
	if total, err := h.store.CardCount(); err == nil {
		metrics.CatalogCardsTotal.Set(float64(total))
	}

	log.Printf("Catalog import %s: %d cards", jobID, count)
	c.JSON(http.StatusOK, gin.H{
		"job_id":   jobID,
		"imported": count,
	})
}

// GetStatus reports catalog size, detected schema capabilities, and build
// metadata for the installed catalog file.
func (h *CatalogHandler) GetStatus(c *gin.Context) {
	count, err := h.store.CardCount()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	caps, err := h.store.Capabilities()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	build := gin.H{}
	for _, key := range []string{"schema_version", "db_version", "data_version", "build_date"} {
		if value, ok, err := h.store.GetMetaValue(key); err == nil && ok {
			build[key] = value
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"card_count":   count,
		"capabilities": caps,
		"build":        build,
	})
}
