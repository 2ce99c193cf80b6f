package catalog

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"
)

// SchemaCapabilities records what the opened catalog build actually
// contains. Catalog files ship independently of engine releases, so column
// and table presence is detected at open time rather than assumed from a
// version number. The result is cached for the session and recomputed on
// every Open.
type SchemaCapabilities struct {
	HasLanguageColumn bool `json:"has_language_column"`
	HasSourceColumn   bool `json:"has_source_column"`

	// HasSpeciesTables means the v2 cross-language extension is present:
	// species + species_aliases (+ FTS) + printings + printing_species_map.
	HasSpeciesTables bool `json:"has_species_tables"`

	HasMetaTable       bool `json:"has_meta_table"`
	HasLegacyMetaTable bool `json:"has_legacy_meta_table"`
	HasFullTextIndex   bool `json:"has_full_text_index"`
}

// baseSchema is the v1 catalog layout, matching what the catalog build
// tooling produces: a cards table, a meta key-value table, and lookup
// indexes.
var baseSchema = []string{
	`CREATE TABLE IF NOT EXISTS cards (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		name_normalized TEXT NOT NULL,
		set_name TEXT NOT NULL,
		set_id TEXT NOT NULL,
		card_number TEXT NOT NULL,
		image_url_small TEXT,
		rarity TEXT,
		language TEXT NOT NULL DEFAULT 'en',
		source TEXT NOT NULL DEFAULT 'pokemontcg',
		updated_at INTEGER DEFAULT (strftime('%s', 'now'))
	)`,
	`CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cards_language ON cards(language)`,
	`CREATE INDEX IF NOT EXISTS idx_cards_set_number ON cards(set_id, card_number)`,
	`CREATE INDEX IF NOT EXISTS idx_cards_name_norm ON cards(name_normalized)`,
	`CREATE INDEX IF NOT EXISTS idx_cards_name_lang ON cards(name_normalized, language)`,
}

// ftsSchema is the external-content FTS5 index and the triggers that keep it
// in sync with cards. Split from baseSchema because FTS5 is a compile-time
// SQLite option: the cgo driver only includes it when built with
// -tags sqlite_fts5.
var ftsSchema = []string{
	`CREATE VIRTUAL TABLE IF NOT EXISTS cards_fts USING fts5(
		name,
		set_name,
		card_number,
		content='cards',
		content_rowid='rowid',
		tokenize='unicode61 remove_diacritics 2'
	)`,
	`CREATE TRIGGER IF NOT EXISTS cards_ai AFTER INSERT ON cards BEGIN
		INSERT INTO cards_fts(rowid, name, set_name, card_number)
		VALUES (NEW.rowid, NEW.name, NEW.set_name, NEW.card_number);
	END`,
	`CREATE TRIGGER IF NOT EXISTS cards_ad AFTER DELETE ON cards BEGIN
		INSERT INTO cards_fts(cards_fts, rowid, name, set_name, card_number)
		VALUES ('delete', OLD.rowid, OLD.name, OLD.set_name, OLD.card_number);
	END`,
	`CREATE TRIGGER IF NOT EXISTS cards_au AFTER UPDATE ON cards BEGIN
		INSERT INTO cards_fts(cards_fts, rowid, name, set_name, card_number)
		VALUES ('delete', OLD.rowid, OLD.name, OLD.set_name, OLD.card_number);
		INSERT INTO cards_fts(rowid, name, set_name, card_number)
		VALUES (NEW.rowid, NEW.name, NEW.set_name, NEW.card_number);
	END`,
}

// bootstrapSchema creates the v1 schema when the catalog file is empty. A
// SQLite build without the FTS5 module is survivable: the tables and indexes
// are created, the full-text index is skipped with a warning, and search
// runs on the exact-name tier only.
func bootstrapSchema(db *gorm.DB) error {
	for _, stmt := range baseSchema {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	for _, stmt := range ftsSchema {
		if err := db.Exec(stmt).Error; err != nil {
			if isMissingFTS5(err) {
				log.Println("Warning: SQLite built without FTS5 (rebuild with -tags sqlite_fts5), full-text search disabled")
				return nil
			}
			return fmt.Errorf("create full-text index: %w", err)
		}
	}
	return nil
}

// isMissingFTS5 reports whether err is SQLite rejecting the fts5 module,
// which happens when the driver was compiled without it.
func isMissingFTS5(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such module: fts5")
}

// migrateLegacyColumns adds language/source columns to catalogs built before
// the multilingual builder existed. Additive only; a failed ALTER is logged
// as a warning and the engine runs in legacy-defaults mode for that column
// instead of refusing to start.
func migrateLegacyColumns(db *gorm.DB) (hasLanguage, hasSource bool) {
	hasLanguage = db.Migrator().HasColumn("cards", "language")
	if !hasLanguage {
		log.Println("Catalog missing language column, adding with default 'en'")
		err := db.Exec(`ALTER TABLE cards ADD COLUMN language TEXT NOT NULL DEFAULT 'en'`).Error
		if err != nil {
			log.Printf("Warning: failed to add language column: %v", err)
		} else {
			hasLanguage = true
		}
	}

	hasSource = db.Migrator().HasColumn("cards", "source")
	if !hasSource {
		log.Println("Catalog missing source column, adding with default 'pokemontcg'")
		err := db.Exec(`ALTER TABLE cards ADD COLUMN source TEXT NOT NULL DEFAULT 'pokemontcg'`).Error
		if err != nil {
			log.Printf("Warning: failed to add source column: %v", err)
		} else {
			hasSource = true
		}
	}

	return hasLanguage, hasSource
}

// detectCapabilities inspects the opened catalog for tables the engine can
// use. FTS tables get a live test query on top of the sqlite_master check: a
// pre-built catalog can carry a cards_fts definition this binary's SQLite
// cannot load, and a capability the engine cannot query is not a capability.
func detectCapabilities(db *gorm.DB) SchemaCapabilities {
	m := db.Migrator()

	caps := SchemaCapabilities{
		HasMetaTable:       m.HasTable("meta"),
		HasLegacyMetaTable: m.HasTable("metadata"),
		HasFullTextIndex:   m.HasTable("cards_fts"),
	}

	// The v2 extension is only usable when the whole table set is present.
	caps.HasSpeciesTables = m.HasTable("species") &&
		m.HasTable("species_aliases") &&
		m.HasTable("species_aliases_fts") &&
		m.HasTable("printings") &&
		m.HasTable("printing_species_map")

	if caps.HasFullTextIndex && !ftsQueryable(db, "cards_fts") {
		caps.HasFullTextIndex = false
	}
	if caps.HasSpeciesTables && !ftsQueryable(db, "species_aliases_fts") {
		caps.HasSpeciesTables = false
	}

	return caps
}

// ftsQueryable verifies the virtual table actually loads under this binary's
// SQLite build.
func ftsQueryable(db *gorm.DB, table string) bool {
	err := db.Exec(`SELECT rowid FROM ` + table + ` LIMIT 1`).Error
	if err != nil {
		log.Printf("Warning: %s is defined but not queryable, disabling (rebuild with -tags sqlite_fts5): %v", table, err)
		return false
	}
	return true
}
