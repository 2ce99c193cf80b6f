package resolver

import (
	"sort"
	"strings"

	"github.com/codyseavey/card-resolver/internal/models"
)

// Scoring weights. These are product-tuned values carried over unchanged;
// existing behavior depends on them, so treat them as fixed configuration.
const (
	languageMatchBonus = 50
	modernSetBonus     = 30

	// Era bonuses stack on top of the modern-set bonus. Newer sets are
	// disproportionately likely to be the right answer when a number is
	// ambiguous across eras, so newness is deliberately double-weighted.
	eraBonusSV = 30 // 2023-2024
	eraBonusS  = 20 // 2021-2022
	eraBonusSM = 10 // 2017-2020

	// clearLeadMargin is the single disambiguation rule: a scored list
	// collapses to one answer only when the top score beats the runner-up
	// by more than this.
	clearLeadMargin = 30
)

type scoredCandidate struct {
	card  models.CardRecord
	score int
}

// isModernSet matches the short alphabetic prefix convention used by newer
// set generations (SV*, SM*, and short S* codes).
func isModernSet(setID string) bool {
	return strings.HasPrefix(setID, "SV") ||
		strings.HasPrefix(setID, "SM") ||
		(strings.HasPrefix(setID, "S") && len(setID) <= 4)
}

func eraBonus(setID string) int {
	switch {
	case strings.HasPrefix(setID, "SV"):
		return eraBonusSV
	case strings.HasPrefix(setID, "SM"):
		return eraBonusSM
	case strings.HasPrefix(setID, "S"):
		return eraBonusS
	}
	return 0
}

// recencyScorer supplies the recent-scan bonus for a set. Satisfied by
// *recency.Tracker.
type recencyScorer interface {
	Score(setID string, lang models.Language) int
}

// scoreCandidates scores every match additively and returns them sorted by
// descending score. Equal scores keep their input order, so results are
// deterministic for a fixed catalog state and recency history.
func scoreCandidates(matches []models.CardRecord, input models.ResolutionInput, recent recencyScorer) []scoredCandidate {
	scored := make([]scoredCandidate, 0, len(matches))

	for _, match := range matches {
		score := 0

		if input.Language != nil && match.Language == *input.Language {
			score += languageMatchBonus
		}

		if isModernSet(match.SetID) {
			score += modernSetBonus
		}

		if input.Language != nil {
			score += recent.Score(match.SetID, *input.Language)
		}

		score += eraBonus(match.SetID)

		scored = append(scored, scoredCandidate{card: match, score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	return scored
}

// hasClearLead reports whether the top candidate wins outright: either it is
// alone, or it leads the runner-up by more than the margin.
func hasClearLead(scored []scoredCandidate) bool {
	if len(scored) == 0 {
		return false
	}
	if len(scored) == 1 {
		return true
	}
	return scored[0].score-scored[1].score > clearLeadMargin
}
