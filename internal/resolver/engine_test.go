package resolver

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/codyseavey/card-resolver/internal/catalog"
	"github.com/codyseavey/card-resolver/internal/models"
	"github.com/codyseavey/card-resolver/internal/recency"
)

func newTestEngine(t *testing.T, records ...models.CardRecord) (*Engine, *recency.Tracker) {
	t.Helper()

	store := catalog.New()
	if err := store.Open(filepath.Join(t.TempDir(), "catalog.db")); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if len(records) > 0 {
		if _, err := store.UpsertCards(records); err != nil {
			t.Fatalf("UpsertCards() failed: %v", err)
		}
	}

	tracker := recency.New("")
	return New(store, tracker), tracker
}

func TestResolveExactUniqueMatch(t *testing.T) {
	engine, tracker := newTestEngine(t,
		models.CardRecord{ID: "base1-4", Name: "Charizard", SetName: "Base Set", SetID: "base1", CardNumber: "4", Language: models.LanguageEnglish},
		models.CardRecord{ID: "base1-5", Name: "Clefairy", SetName: "Base Set", SetID: "base1", CardNumber: "5", Language: models.LanguageEnglish},
	)

	result, err := engine.Resolve(models.ResolutionInput{SetCode: "base1", Number: "4"})
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	single, ok := result.(Single)
	if !ok {
		t.Fatalf("result = %T, want Single", result)
	}
	if single.Card.ID != "base1-4" {
		t.Errorf("resolved %s, want base1-4", single.Card.ID)
	}

	// The successful resolution feeds the recency signal.
	if got := tracker.Score("base1", models.LanguageEnglish); got != 20 {
		t.Errorf("recency score after Single = %d, want 20", got)
	}
}

func TestResolveNoInput(t *testing.T) {
	engine, _ := newTestEngine(t)

	result, err := engine.Resolve(models.ResolutionInput{})
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	none, ok := result.(None)
	if !ok {
		t.Fatalf("result = %T, want None", result)
	}
	if none.Reason != "Insufficient information to resolve card" {
		t.Errorf("reason = %q", none.Reason)
	}
}

func TestResolveBlankInputTreatedAsAbsent(t *testing.T) {
	engine, _ := newTestEngine(t)

	result, err := engine.Resolve(models.ResolutionInput{SetCode: "  ", Number: " ", NameHint: "\t"})
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if _, ok := result.(None); !ok {
		t.Fatalf("result = %T, want None for whitespace-only input", result)
	}
}

func TestResolveExactZeroPad(t *testing.T) {
	engine, _ := newTestEngine(t,
		models.CardRecord{ID: "sv1-004", Name: "Tarountula", SetName: "Scarlet & Violet", SetID: "sv1", CardNumber: "004", Language: models.LanguageEnglish},
	)

	result, err := engine.Resolve(models.ResolutionInput{SetCode: "SV1", Number: "4"})
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	single, ok := result.(Single)
	if !ok {
		t.Fatalf("result = %T, want Single", result)
	}
	if single.Card.ID != "sv1-004" {
		t.Errorf("resolved %s, want sv1-004", single.Card.ID)
	}
}

func TestResolveExactAnomalySurfacesAmbiguity(t *testing.T) {
	// (set, number, language) should be unique, but bundled catalogs have
	// violated it. The engine must not crash or guess.
	engine, tracker := newTestEngine(t,
		models.CardRecord{ID: "sv1-25-a", Name: "Pikachu", SetName: "Scarlet & Violet", SetID: "sv1", CardNumber: "25", Language: models.LanguageEnglish},
		models.CardRecord{ID: "sv1-25-b", Name: "Pikachu", SetName: "Scarlet & Violet", SetID: "sv1", CardNumber: "25", Language: models.LanguageJapanese},
	)

	result, err := engine.Resolve(models.ResolutionInput{SetCode: "sv1", Number: "25"})
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	amb, ok := result.(Ambiguous)
	if !ok {
		t.Fatalf("result = %T, want Ambiguous", result)
	}
	if len(amb.Candidates) != 2 {
		t.Errorf("got %d candidates, want 2", len(amb.Candidates))
	}
	if !reflect.DeepEqual(amb.SuggestedSets, []string{"sv1"}) {
		t.Errorf("suggested sets = %v, want [sv1]", amb.SuggestedSets)
	}

	// Ambiguity never feeds recency.
	if got := tracker.Score("sv1", models.LanguageEnglish); got != 0 {
		t.Errorf("recency score after Ambiguous = %d, want 0", got)
	}
}

func TestResolveNameAndNumber(t *testing.T) {
	engine, _ := newTestEngine(t,
		models.CardRecord{ID: "base1-4", Name: "Charizard", SetName: "Base Set", SetID: "base1", CardNumber: "4", Language: models.LanguageEnglish},
		models.CardRecord{ID: "base1-5", Name: "Clefairy", SetName: "Base Set", SetID: "base1", CardNumber: "5", Language: models.LanguageEnglish},
	)

	// No set code, so the exact tier is skipped; name+number search finds
	// the unique match.
	result, err := engine.Resolve(models.ResolutionInput{NameHint: "Charizard", Number: "4"})
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	single, ok := result.(Single)
	if !ok {
		t.Fatalf("result = %T, want Single", result)
	}
	if single.Card.ID != "base1-4" {
		t.Errorf("resolved %s, want base1-4", single.Card.ID)
	}
}

func TestResolveNumberOnlyClearWinner(t *testing.T) {
	english := models.LanguageEnglish
	engine, _ := newTestEngine(t,
		// 50 (language) + 30 (pattern) + 30 (era) = 110.
		models.CardRecord{ID: "SV1-7", Name: "Pawmi", SetName: "Scarlet & Violet", SetID: "SV1", CardNumber: "7", Language: models.LanguageEnglish},
		// 0: wrong language, vintage set.
		models.CardRecord{ID: "jp-base-7", Name: "フシギバナ", SetName: "拡張パック", SetID: "jp-base", CardNumber: "7", Language: models.LanguageJapanese},
	)

	result, err := engine.Resolve(models.ResolutionInput{Language: &english, Number: "7"})
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	single, ok := result.(Single)
	if !ok {
		t.Fatalf("result = %T, want Single", result)
	}
	if single.Card.ID != "SV1-7" {
		t.Errorf("resolved %s, want SV1-7", single.Card.ID)
	}
}

func TestResolveNumberOnlyAmbiguous(t *testing.T) {
	english := models.LanguageEnglish
	engine, _ := newTestEngine(t,
		// Both score 50 + 30 + 30 = 110; no clear lead.
		models.CardRecord{ID: "SV1-7", Name: "Pawmi", SetName: "Scarlet & Violet", SetID: "SV1", CardNumber: "7", Language: models.LanguageEnglish},
		models.CardRecord{ID: "SV2-7", Name: "Smoliv", SetName: "Paldea Evolved", SetID: "SV2", CardNumber: "7", Language: models.LanguageEnglish},
	)

	result, err := engine.Resolve(models.ResolutionInput{Language: &english, Number: "7"})
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	amb, ok := result.(Ambiguous)
	if !ok {
		t.Fatalf("result = %T, want Ambiguous", result)
	}
	if len(amb.Candidates) != 2 {
		t.Errorf("got %d candidates, want 2", len(amb.Candidates))
	}
	if len(amb.SuggestedSets) != 2 {
		t.Errorf("suggested sets = %v, want both sets", amb.SuggestedSets)
	}
}

func TestResolveNumberOnlyRecencyBreaksTie(t *testing.T) {
	english := models.LanguageEnglish
	engine, tracker := newTestEngine(t,
		models.CardRecord{ID: "base1-7", Name: "Squirtle", SetName: "Base Set", SetID: "base1", CardNumber: "7", Language: models.LanguageJapanese},
		models.CardRecord{ID: "base2-7", Name: "Wartortle", SetName: "Jungle", SetID: "base2", CardNumber: "7", Language: models.LanguageJapanese},
	)

	// Both vintage sets score zero; equally plausible.
	result, err := engine.Resolve(models.ResolutionInput{Language: &english, Number: "7"})
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if _, ok := result.(Ambiguous); !ok {
		t.Fatalf("result = %T, want Ambiguous before recency recorded", result)
	}

	// The user just scanned base1; a 20-point recency edge is still inside
	// the 30-point margin, so recording alone must not flip the outcome.
	tracker.Record("base1", english)
	result, err = engine.Resolve(models.ResolutionInput{Language: &english, Number: "7"})
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	amb, ok := result.(Ambiguous)
	if !ok {
		t.Fatalf("result = %T, want Ambiguous (20-point edge is not a clear lead)", result)
	}
	if amb.Candidates[0].ID != "base1-7" {
		t.Errorf("top candidate = %s, want recently scanned base1-7", amb.Candidates[0].ID)
	}
}

func TestResolveNumberOnlyNoMatches(t *testing.T) {
	engine, _ := newTestEngine(t,
		models.CardRecord{ID: "base1-4", Name: "Charizard", SetName: "Base Set", SetID: "base1", CardNumber: "4", Language: models.LanguageEnglish},
	)

	result, err := engine.Resolve(models.ResolutionInput{Number: "999"})
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	none, ok := result.(None)
	if !ok {
		t.Fatalf("result = %T, want None", result)
	}
	if none.Reason != "No cards found with number #999" {
		t.Errorf("reason = %q", none.Reason)
	}
}

func TestResolveDeterministic(t *testing.T) {
	english := models.LanguageEnglish
	engine, _ := newTestEngine(t,
		models.CardRecord{ID: "SV1-7", Name: "Pawmi", SetName: "Scarlet & Violet", SetID: "SV1", CardNumber: "7", Language: models.LanguageEnglish},
		models.CardRecord{ID: "SV2-7", Name: "Smoliv", SetName: "Paldea Evolved", SetID: "SV2", CardNumber: "7", Language: models.LanguageEnglish},
	)

	input := models.ResolutionInput{Language: &english, Number: "7"}

	first, err := engine.Resolve(input)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	second, err := engine.Resolve(input)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical inputs resolved differently:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestResolveExactCacheServesRepeatScans(t *testing.T) {
	engine, _ := newTestEngine(t,
		models.CardRecord{ID: "base1-4", Name: "Charizard", SetName: "Base Set", SetID: "base1", CardNumber: "4", Language: models.LanguageEnglish},
	)

	input := models.ResolutionInput{SetCode: "base1", Number: "4"}

	for i := 0; i < 3; i++ {
		result, err := engine.Resolve(input)
		if err != nil {
			t.Fatalf("Resolve() #%d failed: %v", i, err)
		}
		single, ok := result.(Single)
		if !ok {
			t.Fatalf("Resolve() #%d = %T, want Single", i, result)
		}
		if single.Card.ID != "base1-4" {
			t.Errorf("Resolve() #%d resolved %s", i, single.Card.ID)
		}
	}
}

func TestInvalidateCacheReflectsLiveImport(t *testing.T) {
	store := catalog.New()
	if err := store.Open(filepath.Join(t.TempDir(), "catalog.db")); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, err := store.UpsertCards([]models.CardRecord{
		{ID: "base1-4", Name: "Charizard", SetName: "Base Set", SetID: "base1", CardNumber: "4", Language: models.LanguageEnglish},
	}); err != nil {
		t.Fatalf("UpsertCards() failed: %v", err)
	}

	engine := New(store, recency.New(""))

	input := models.ResolutionInput{SetCode: "base1", Number: "4"}
	result, err := engine.Resolve(input)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if single, ok := result.(Single); !ok || single.Card.Rarity != "" {
		t.Fatalf("initial resolve = %#v, want Single without rarity", result)
	}

	// A live import replaces the row behind the cached lookup.
	if _, err := store.UpsertCards([]models.CardRecord{
		{ID: "base1-4", Name: "Charizard", SetName: "Base Set", SetID: "base1", CardNumber: "4", Rarity: "Rare Holo", Language: models.LanguageEnglish},
	}); err != nil {
		t.Fatalf("UpsertCards() failed: %v", err)
	}
	engine.InvalidateCache()

	result, err = engine.Resolve(input)
	if err != nil {
		t.Fatalf("Resolve() after import failed: %v", err)
	}
	single, ok := result.(Single)
	if !ok {
		t.Fatalf("result after import = %T, want Single", result)
	}
	if single.Card.Rarity != "Rare Holo" {
		t.Errorf("rarity after import = %q, want Rare Holo", single.Card.Rarity)
	}
}
