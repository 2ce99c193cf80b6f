// Package recency tracks which sets the user has recently scanned, per
// language. The resolver uses this as a tie-break signal: a set scanned five
// minutes ago is far more likely to be the right answer for an ambiguous
// card number than one last seen years ago.
package recency

import (
	"encoding/json"
	"log"
	"os"
	"sync"

	"github.com/codyseavey/card-resolver/internal/models"
)

// maxHistory bounds the per-language history. Position 0 scores 20 points,
// position 19 scores 1.
const maxHistory = 20

// Tracker keeps a bounded, most-recent-first set history per language.
// All methods are safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	history map[models.Language][]string
	path    string // optional JSON persistence; empty means in-memory only
}

// New creates a Tracker. If path is non-empty, history is loaded from that
// file when present and saved back after every mutation. A missing or
// unreadable file is not an error; the tracker just starts empty.
func New(path string) *Tracker {
	t := &Tracker{
		history: make(map[models.Language][]string),
		path:    path,
	}
	t.load()
	return t
}

// Record notes a successful resolution against a set. The set moves to the
// front of its language's history; re-scanning a set never creates a
// duplicate entry. The oldest entry is dropped once the history is full.
func (t *Tracker) Record(setID string, lang models.Language) {
	t.mu.Lock()
	defer t.mu.Unlock()

	history := t.history[lang]

	filtered := make([]string, 0, len(history)+1)
	filtered = append(filtered, setID)
	for _, id := range history {
		if id != setID {
			filtered = append(filtered, id)
		}
	}

	if len(filtered) > maxHistory {
		filtered = filtered[:maxHistory]
	}

	t.history[lang] = filtered
	t.save()
}

// Score returns the recency bonus for a set: 20 for the most recently
// recorded set, decreasing by one per position, 0 when absent.
func (t *Tracker) Score(setID string, lang models.Language) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, id := range t.history[lang] {
		if id == setID {
			return maxHistory - i
		}
	}
	return 0
}

// Recent returns a copy of the history for a language, most recent first.
func (t *Tracker) Recent(lang models.Language) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	history := t.history[lang]
	out := make([]string, len(history))
	copy(out, history)
	return out
}

// Clear resets the history for all languages. Used by tests and the
// account-reset flow.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.history = make(map[models.Language][]string)
	t.save()
}

// load reads persisted history. Caller must not hold t.mu.
func (t *Tracker) load() {
	if t.path == "" {
		return
	}

	data, err := os.ReadFile(t.path)
	if err != nil {
		return
	}

	var stored map[models.Language][]string
	if err := json.Unmarshal(data, &stored); err != nil {
		log.Printf("Warning: ignoring corrupt recent-sets file %s: %v", t.path, err)
		return
	}
	t.history = stored
}

// save persists history best-effort. Caller must hold t.mu.
func (t *Tracker) save() {
	if t.path == "" {
		return
	}

	data, err := json.Marshal(t.history)
	if err != nil {
		log.Printf("Warning: failed to encode recent sets: %v", err)
		return
	}
	if err := os.WriteFile(t.path, data, 0644); err != nil {
		log.Printf("Warning: failed to save recent sets to %s: %v", t.path, err)
	}
}
