// import-catalog bulk-loads card data files into a local catalog database.
//
// Usage: import-catalog -db=<path> -data=<dir> [-language=en] [-dry-run] [-execute]
//
// The data directory holds one JSON file per set (named <set_id>.json), each
// an array of card entries, plus an optional sets.json mapping set IDs to
// display names. This matches the layout of the pokemon-tcg-data exports.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/codyseavey/card-resolver/internal/catalog"
	"github.com/codyseavey/card-resolver/internal/models"
)

// dataCard is one entry in a per-set data file.
type dataCard struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Number string `json:"number"`
	Rarity string `json:"rarity"`
	Images struct {
		Small string `json:"small"`
	} `json:"images"`
}

type dataSet struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func main() {
	dbPath := flag.String("db", "", "Path to SQLite catalog database (required)")
	dataDir := flag.String("data", "", "Path to card data directory (required)")
	language := flag.String("language", "en", "Language tag for the imported cards (en, ja, zh-TW)")
	source := flag.String("source", "pokemontcg", "Catalog provider identifier")
	dryRun := flag.Bool("dry-run", false, "Preview what would be imported without writing")
	execute := flag.Bool("execute", false, "Execute the import (required to make changes)")
	flag.Parse()

	if *dbPath == "" || *dataDir == "" {
		fmt.Println("Usage: import-catalog -db=<path> -data=<dir> [options]")
		fmt.Println("")
		fmt.Println("Bulk-loads per-set card JSON files into the local catalog.")
		fmt.Println("")
		fmt.Println("Options:")
		fmt.Println("  -db        Path to SQLite catalog database (required)")
		fmt.Println("  -data      Path to card data directory (required)")
		fmt.Println("  -language  Language tag for imported cards (default en)")
		fmt.Println("  -source    Catalog provider identifier (default pokemontcg)")
		fmt.Println("  -dry-run   Preview without writing")
		fmt.Println("  -execute   Execute the import")
		os.Exit(1)
	}

	if !*dryRun && !*execute {
		fmt.Println("Error: Must specify either -dry-run or -execute")
		os.Exit(1)
	}

	lang := models.Language(*language)
	if !lang.Valid() {
		log.Fatalf("Unsupported language %q (want en, ja, or zh-TW)", *language)
	}

	records, setCount, err := loadDataDir(*dataDir, lang, models.Source(*source))
	if err != nil {
		log.Fatalf("Failed to load card data: %v", err)
	}
	log.Printf("Loaded %d cards from %d sets", len(records), setCount)

	if *dryRun {
		for i, r := range records {
			if i >= 10 {
				log.Printf("... and %d more", len(records)-10)
				break
			}
			log.Printf("would import %s: %s (%s #%s)", r.ID, r.Name, r.SetID, r.CardNumber)
		}
		return
	}

	store := catalog.New()
	if err := store.Open(*dbPath); err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}

	imported, err := store.UpsertCards(records)
	if err != nil {
		log.Fatalf("Import failed, catalog unchanged: %v", err)
	}

	total, err := store.CardCount()
	if err != nil {
		log.Fatalf("Failed to read catalog: %v", err)
	}
	log.Printf("Imported %d cards; catalog now holds %d", imported, total)
}

// loadDataDir reads every per-set file and flattens it into card records.
func loadDataDir(dir string, lang models.Language, source models.Source) ([]models.CardRecord, int, error) {
	setNames, err := loadSetNames(filepath.Join(dir, "sets.json"))
	if err != nil {
		return nil, 0, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, fmt.Errorf("read data dir: %w", err)
	}

	var records []models.CardRecord
	setCount := 0

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || name == "sets.json" {
			continue
		}

		setID := strings.TrimSuffix(name, ".json")
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, 0, fmt.Errorf("read %s: %w", name, err)
		}

		var cards []dataCard
		if err := json.Unmarshal(data, &cards); err != nil {
			return nil, 0, fmt.Errorf("parse %s: %w", name, err)
		}

		setName := setNames[setID]
		if setName == "" {
			setName = setID
		}

		for _, card := range cards {
			if card.ID == "" || card.Name == "" {
				log.Printf("Warning: skipping incomplete entry in %s", name)
				continue
			}
			records = append(records, models.CardRecord{
				ID:            card.ID,
				Name:          card.Name,
				SetName:       setName,
				SetID:         setID,
				CardNumber:    card.Number,
				ImageURLSmall: card.Images.Small,
				Rarity:        card.Rarity,
				Language:      lang,
				Source:        source,
			})
		}
		setCount++
	}

	return records, setCount, nil
}

func loadSetNames(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read sets.json: %w", err)
	}

	var sets []dataSet
	if err := json.Unmarshal(data, &sets); err != nil {
		return nil, fmt.Errorf("parse sets.json: %w", err)
	}

	names := make(map[string]string, len(sets))
	for _, s := range sets {
		names[s.ID] = s.Name
	}
	return names, nil
}
