package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/card-resolver/internal/models"
	"github.com/codyseavey/card-resolver/internal/recency"
	"github.com/codyseavey/card-resolver/internal/resolver"
)

type ResolveHandler struct {
	engine  *resolver.Engine
	tracker *recency.Tracker
}

func NewResolveHandler(engine *resolver.Engine, tracker *recency.Tracker) *ResolveHandler {
	return &ResolveHandler{
		engine:  engine,
		tracker: tracker,
	}
}

// ResolveCard accepts the identification signals from the scan flow and
// returns a tagged resolution: single, ambiguous, or none.
func (h *ResolveHandler) ResolveCard(c *gin.Context) {
	var input models.ResolutionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid resolution input: " + err.Error()})
		return
	}

	if input.Language != nil && !input.Language.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported language: " + string(*input.Language)})
		return
	}

	result, err := h.engine.Resolve(input)
	if err != nil {
		log.Printf("Resolution failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	switch r := result.(type) {
	case resolver.Single:
		c.JSON(http.StatusOK, gin.H{
			"result": "single",
			"card":   r.Card,
		})
	case resolver.Ambiguous:
		c.JSON(http.StatusOK, gin.H{
			"result":         "ambiguous",
			"reason":         r.Reason,
			"candidates":     r.Candidates,
			"suggested_sets": r.SuggestedSets,
		})
	case resolver.None:
		c.JSON(http.StatusOK, gin.H{
			"result": "none",
			"reason": r.Reason,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unknown resolution type"})
	}
}

// GetRecentSets exposes the per-language scan history, mostly for debugging
// why a particular candidate won a tie-break.
func (h *ResolveHandler) GetRecentSets(c *gin.Context) {
	lang := models.Language(c.Query("language"))
	if !lang.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "language parameter must be one of en, ja, zh-TW"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"language": lang,
		"sets":     h.tracker.Recent(lang),
	})
}

// ClearRecentSets resets the recency history for all languages. Used by the
// account-reset flow.
func (h *ResolveHandler) ClearRecentSets(c *gin.Context) {
	h.tracker.Clear()
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}
