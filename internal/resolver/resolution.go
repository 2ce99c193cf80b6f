package resolver

import "github.com/codyseavey/card-resolver/internal/models"

// Resolution is the outcome of one resolve call: exactly one of Single,
// Ambiguous, or None. Absence of a match is a None value, not an error;
// callers branch on the concrete type.
type Resolution interface {
	isResolution()
}

// Single is a confident match to one catalog record.
type Single struct {
	Card models.CardRecord
}

// Ambiguous means several candidates are plausible and no clear winner
// exists under the scoring rule. Candidates are sorted by descending score
// and capped at five.
type Ambiguous struct {
	Candidates    []models.CardRecord
	Reason        string
	SuggestedSets []string
}

// None means the catalog holds no plausible match for the input.
type None struct {
	Reason string
}

func (Single) isResolution()    {}
func (Ambiguous) isResolution() {}
func (None) isResolution()      {}
