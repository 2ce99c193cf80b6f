// Package resolver turns noisy identification signals (an OCR name guess, a
// possibly-wrong set code, a card number, a detected language) into a single
// canonical catalog record, or an explicit ambiguous/none outcome.
package resolver

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/codyseavey/card-resolver/internal/metrics"
	"github.com/codyseavey/card-resolver/internal/models"
	"github.com/codyseavey/card-resolver/internal/normalize"
)

const (
	// candidateCap bounds how many records the fallback tiers fetch before
	// scoring. Fixed, not catalog-size-dependent.
	candidateCap = 50

	// ambiguousCap is the most candidates an Ambiguous result carries.
	ambiguousCap = 5

	// exactCacheSize bounds the exact-lookup cache. Repeated scans of the
	// same card are common at a show. Catalog mutations must purge the
	// cache via InvalidateCache or resolutions serve stale rows.
	exactCacheSize = 256
)

// Catalog is the queryable card catalog the engine cascades through.
type Catalog interface {
	LookupExact(lang *models.Language, setID, number string) ([]models.CardRecord, error)
	LookupByNumber(number string, limit int) ([]models.CardRecord, error)
	Search(name, number string, lang *models.Language, limit int) ([]models.CardRecord, error)
}

// RecentSets supplies the recency signal and learns from successful
// resolutions.
type RecentSets interface {
	Score(setID string, lang models.Language) int
	Record(setID string, lang models.Language)
}

// Engine orchestrates the strategy cascade. Resolutions are serialized;
// concurrent callers queue in arrival order.
type Engine struct {
	mu         sync.Mutex
	catalog    Catalog
	recent     RecentSets
	exactCache *lru.Cache[string, []models.CardRecord]
}

// New builds an Engine over the given catalog and recency tracker.
func New(cat Catalog, recent RecentSets) *Engine {
	cache, err := lru.New[string, []models.CardRecord](exactCacheSize)
	if err != nil {
		// Only reachable with a non-positive size constant.
		panic(err)
	}
	return &Engine{
		catalog:    cat,
		recent:     recent,
		exactCache: cache,
	}
}

// Resolve runs the strategy cascade, strictly ordered with early return:
//
//  1. exact set+number lookup
//  2. name+number full-text search, scored
//  3. number-only candidate scoring
//
// Absence of a match is a None result, never an error. Only a Single outcome
// feeds the recency tracker, so ambiguous and failed resolutions never
// pollute the signal.
func (e *Engine) Resolve(input models.ResolutionInput) (Resolution, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	defer func() {
		metrics.ResolutionDuration.Observe(time.Since(start).Seconds())
	}()

	setCode := strings.TrimSpace(input.SetCode)
	nameHint := strings.TrimSpace(input.NameHint)
	number := ""
	if raw := strings.TrimSpace(input.Number); raw != "" {
		number = normalize.Number(raw)
	}

	// Step 1: exact set+number.
	if setCode != "" && number != "" {
		matches, err := e.lookupExactCached(input.Language, setCode, number)
		if err != nil {
			return nil, err
		}

		switch {
		case len(matches) == 1:
			return e.single("exact", matches[0], input), nil
		case len(matches) > 1:
			// Same set+number resolving to several rows is a catalog
			// anomaly; surface it as ambiguity rather than guessing.
			log.Printf("Warning: multiple catalog rows for set=%s number=%s", setCode, number)
			return e.ambiguous("exact", matches,
				fmt.Sprintf("Multiple cards found with set %s #%s", setCode, number)), nil
		}
	}

	// Step 2: name+number full-text search.
	if nameHint != "" && number != "" {
		matches, err := e.catalog.Search(nameHint, number, input.Language, candidateCap)
		if err != nil {
			return nil, err
		}

		if len(matches) == 1 {
			return e.single("name_number", matches[0], input), nil
		}
		if len(matches) > 1 {
			scored := scoreCandidates(matches, input, e.recent)
			if hasClearLead(scored) {
				return e.single("name_number", scored[0].card, input), nil
			}
			return e.ambiguous("name_number", topCards(scored),
				fmt.Sprintf("Multiple matches for %s #%s", nameHint, number)), nil
		}
	}

	// Step 3: number only.
	if number != "" {
		candidates, err := e.catalog.LookupByNumber(number, candidateCap)
		if err != nil {
			return nil, err
		}

		if len(candidates) == 0 {
			return e.none("number_only", fmt.Sprintf("No cards found with number #%s", number)), nil
		}

		scored := scoreCandidates(candidates, input, e.recent)
		if hasClearLead(scored) {
			return e.single("number_only", scored[0].card, input), nil
		}
		return e.ambiguous("number_only", topCards(scored),
			fmt.Sprintf("Found %d cards with #%s", len(candidates), number)), nil
	}

	return e.none("none", "Insufficient information to resolve card"), nil
}

// InvalidateCache drops every cached exact lookup. Called after the catalog
// changes underneath a running engine, such as a live import.
func (e *Engine) InvalidateCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exactCache.Purge()
}

func (e *Engine) lookupExactCached(lang *models.Language, setCode, number string) ([]models.CardRecord, error) {
	key := cacheKey(lang, setCode, number)
	if cached, ok := e.exactCache.Get(key); ok {
		metrics.ExactCacheHits.Inc()
		return cached, nil
	}

	matches, err := e.catalog.LookupExact(lang, setCode, number)
	if err != nil {
		return nil, err
	}

	e.exactCache.Add(key, matches)
	return matches, nil
}

func (e *Engine) single(strategy string, card models.CardRecord, input models.ResolutionInput) Resolution {
	lang := card.Language
	if input.Language != nil {
		lang = *input.Language
	}
	e.recent.Record(card.SetID, lang)

	metrics.ResolutionsTotal.WithLabelValues(strategy, "single").Inc()
	return Single{Card: card}
}

func (e *Engine) ambiguous(strategy string, candidates []models.CardRecord, reason string) Resolution {
	if len(candidates) > ambiguousCap {
		candidates = candidates[:ambiguousCap]
	}

	metrics.ResolutionsTotal.WithLabelValues(strategy, "ambiguous").Inc()
	return Ambiguous{
		Candidates:    candidates,
		Reason:        reason,
		SuggestedSets: distinctSets(candidates),
	}
}

func (e *Engine) none(strategy, reason string) Resolution {
	metrics.ResolutionsTotal.WithLabelValues(strategy, "none").Inc()
	return None{Reason: reason}
}

func topCards(scored []scoredCandidate) []models.CardRecord {
	n := len(scored)
	if n > ambiguousCap {
		n = ambiguousCap
	}
	cards := make([]models.CardRecord, 0, n)
	for _, sc := range scored[:n] {
		cards = append(cards, sc.card)
	}
	return cards
}

// distinctSets returns the unique set IDs among candidates, preserving
// candidate order (highest scored first).
func distinctSets(candidates []models.CardRecord) []string {
	seen := make(map[string]struct{}, len(candidates))
	sets := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c.SetID]; ok {
			continue
		}
		seen[c.SetID] = struct{}{}
		sets = append(sets, c.SetID)
	}
	return sets
}

func cacheKey(lang *models.Language, setCode, number string) string {
	l := ""
	if lang != nil {
		l = string(*lang)
	}
	return l + "|" + strings.ToLower(setCode) + "|" + number
}
