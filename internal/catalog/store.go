// Package catalog owns the embedded card catalog: schema bootstrap,
// backward-compatible capability detection, and the query strategies the
// resolver cascades through.
//
// The full-text search tier needs SQLite's FTS5 module, which the cgo
// driver only compiles in under -tags sqlite_fts5. Binaries built without
// the tag still run: Open detects the missing module and the store serves
// exact-name search only.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/codyseavey/card-resolver/internal/models"
	"github.com/codyseavey/card-resolver/internal/normalize"
)

// Store is the persistent, indexed card catalog. All operations are
// serialized behind a single mutex: one writer, one reader at a time, in
// arrival order.
type Store struct {
	mu   sync.Mutex
	db   *gorm.DB
	caps SchemaCapabilities
}

// New returns an unopened Store. Call Open before querying.
func New() *Store {
	return &Store{}
}

// Open opens (or creates) the catalog at path, bootstraps the schema when
// absent, applies additive legacy-column migrations, and detects which
// schema generation this build carries. Safe to call again after a catalog
// file swap; capabilities are re-detected from scratch.
func (s *Store) Open(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}

	if !db.Migrator().HasTable("cards") {
		log.Printf("Catalog at %s has no schema, creating", path)
		if err := bootstrapSchema(db); err != nil {
			return fmt.Errorf("%w: %v", ErrOpenFailed, err)
		}
	}

	hasLanguage, hasSource := migrateLegacyColumns(db)

	caps := detectCapabilities(db)
	caps.HasLanguageColumn = hasLanguage
	caps.HasSourceColumn = hasSource

	s.db = db
	s.caps = caps

	if caps.HasSpeciesTables {
		log.Println("Catalog has species tables, cross-language search enabled")
	}

	return nil
}

// Capabilities returns what the opened catalog build supports.
func (s *Store) Capabilities() (SchemaCapabilities, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return SchemaCapabilities{}, ErrNotInitialized
	}
	return s.caps, nil
}

// LookupExact finds records by set and card number, optionally filtered by
// language. Set ID matching is case-insensitive ("SV1" finds "sv1"). If the
// number misses and is not already zero-padded, the lookup retries once with
// the number padded to three digits, since some catalog builds store "004"
// where callers pass "4".
func (s *Store) LookupExact(lang *models.Language, setID, number string) ([]models.CardRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}

	matches, err := s.lookupExactOnce(lang, setID, number)
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 && !strings.HasPrefix(number, "0") && len(number) < 3 {
		padded := strings.Repeat("0", 3-len(number)) + number
		matches, err = s.lookupExactOnce(lang, setID, padded)
		if err != nil {
			return nil, err
		}
	}

	return matches, nil
}

func (s *Store) lookupExactOnce(lang *models.Language, setID, number string) ([]models.CardRecord, error) {
	query := `SELECT * FROM cards WHERE LOWER(set_id) = LOWER(?) AND card_number = ?`
	args := []any{setID, number}

	if lang != nil && s.caps.HasLanguageColumn {
		query += ` AND language = ?`
		args = append(args, string(*lang))
	}

	var matches []models.CardRecord
	if err := s.db.Raw(query, args...).Scan(&matches).Error; err != nil {
		return nil, fmt.Errorf("%w: exact lookup: %v", ErrQueryFailed, err)
	}

	s.fillLegacyDefaults(matches)
	return matches, nil
}

// LookupByNumber returns all records sharing a canonical card number,
// newest-updated first, capped at limit.
func (s *Store) LookupByNumber(number string, limit int) ([]models.CardRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}

	var matches []models.CardRecord
	err := s.db.Raw(
		`SELECT * FROM cards
		 WHERE TRIM(card_number, '#0 ') = TRIM(?, '#0 ')
		 ORDER BY updated_at DESC
		 LIMIT ?`,
		number, limit,
	).Scan(&matches).Error
	if err != nil {
		return nil, fmt.Errorf("%w: number lookup: %v", ErrQueryFailed, err)
	}

	s.fillLegacyDefaults(matches)
	return matches, nil
}

// Search runs the tiered name search. Tier one is an exact match on the
// normalized name, skipped entirely for CJK queries because CJK
// normalization in bundled catalogs is unreliable and would silently return
// nothing. Tier two is a prefix full-text search; on catalogs carrying the
// v2 species extension it joins through the language-agnostic alias tables
// instead, so one query surfaces matches across all printings of the same
// species. Each tier returns as soon as it produces results.
func (s *Store) Search(name, number string, lang *models.Language, limit int) ([]models.CardRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	if limit <= 0 {
		limit = 50
	}

	normName := normalize.Name(name, lang)
	if normName == "" {
		return nil, nil
	}

	if !normalize.HasCJK(name) {
		matches, err := s.searchExactName(normName, number, lang, limit)
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			return matches, nil
		}
	}

	if s.caps.HasSpeciesTables {
		return s.searchSpeciesAliases(normName, number, lang, limit)
	}
	if s.caps.HasFullTextIndex {
		return s.searchFullText(normName, number, lang, limit)
	}
	return nil, nil
}

func (s *Store) searchExactName(normName, number string, lang *models.Language, limit int) ([]models.CardRecord, error) {
	query := `SELECT * FROM cards WHERE name_normalized = ?`
	args := []any{normName}

	if lang != nil && s.caps.HasLanguageColumn {
		query += ` AND language = ?`
		args = append(args, string(*lang))
	}
	if number != "" {
		query += ` AND TRIM(card_number, '#0 ') = TRIM(?, '#0 ')`
		args = append(args, number)
	}

	query += ` ORDER BY updated_at DESC LIMIT ?`
	args = append(args, limit)

	var matches []models.CardRecord
	if err := s.db.Raw(query, args...).Scan(&matches).Error; err != nil {
		return nil, fmt.Errorf("%w: exact name search: %v", ErrQueryFailed, err)
	}

	s.fillLegacyDefaults(matches)
	return matches, nil
}

func (s *Store) searchFullText(normName, number string, lang *models.Language, limit int) ([]models.CardRecord, error) {
	match := ftsPrefixQuery(normName)
	if match == "" {
		return nil, nil
	}

	query := `SELECT cards.* FROM cards_fts
		JOIN cards ON cards.rowid = cards_fts.rowid
		WHERE cards_fts MATCH ?`
	args := []any{match}

	if lang != nil && s.caps.HasLanguageColumn {
		query += ` AND cards.language = ?`
		args = append(args, string(*lang))
	}
	if number != "" {
		query += ` AND TRIM(cards.card_number, '#0 ') = TRIM(?, '#0 ')`
		args = append(args, number)
	}

	query += ` ORDER BY rank LIMIT ?`
	args = append(args, limit)

	var matches []models.CardRecord
	if err := s.db.Raw(query, args...).Scan(&matches).Error; err != nil {
		return nil, fmt.Errorf("%w: full-text search: %v", ErrQueryFailed, err)
	}

	s.fillLegacyDefaults(matches)
	return matches, nil
}

// searchSpeciesAliases is the v2 cross-language path: the alias FTS index
// maps any language's spelling (including romaji) to a species, and the
// species maps to its printings in every language.
func (s *Store) searchSpeciesAliases(normName, number string, lang *models.Language, limit int) ([]models.CardRecord, error) {
	match := ftsPrefixQuery(normName)
	if match == "" {
		return nil, nil
	}

	query := `SELECT p.printing_id AS id,
			sp.canonical_name AS name,
			sa.alias_normalized AS name_normalized,
			p.set_name, p.set_id, p.card_number,
			p.image_url_small, p.rarity, p.language, p.source, p.updated_at
		FROM species_aliases_fts
		JOIN species_aliases sa ON sa.alias_id = species_aliases_fts.rowid
		JOIN species sp ON sp.species_id = sa.species_id
		JOIN printing_species_map m ON m.species_id = sa.species_id
		JOIN printings p ON p.printing_id = m.printing_id
		WHERE species_aliases_fts MATCH ?`
	args := []any{match}

	if lang != nil {
		query += ` AND p.language = ?`
		args = append(args, string(*lang))
	}
	if number != "" {
		query += ` AND TRIM(p.card_number, '#0 ') = TRIM(?, '#0 ')`
		args = append(args, number)
	}

	query += ` GROUP BY p.printing_id ORDER BY p.updated_at DESC LIMIT ?`
	args = append(args, limit)

	var matches []models.CardRecord
	if err := s.db.Raw(query, args...).Scan(&matches).Error; err != nil {
		return nil, fmt.Errorf("%w: species alias search: %v", ErrQueryFailed, err)
	}

	return matches, nil
}

// UpsertCards inserts or replaces records in a single transaction. The FTS
// index stays synchronized through the schema triggers, which fire inside
// the same transaction, so an interrupted import rolls back both together.
func (s *Store) UpsertCards(records []models.CardRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return 0, ErrNotInitialized
	}
	if len(records) == 0 {
		return 0, nil
	}

	now := time.Now().Unix()
	for i := range records {
		if records[i].NameNormalized == "" {
			lang := records[i].Language
			records[i].NameNormalized = normalize.Name(records[i].Name, &lang)
		}
		if records[i].Language == "" {
			records[i].Language = models.LanguageEnglish
		}
		if records[i].Source == "" {
			records[i].Source = models.SourcePokemonTCG
		}
		if records[i].UpdatedAt == 0 {
			records[i].UpdatedAt = now
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).
			CreateInBatches(records, 500).Error
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrImportFailed, err)
	}

	return len(records), nil
}

// GetMetaValue reads build metadata by key. Newer catalogs use a meta table,
// older build tooling wrote a metadata table; both are checked.
func (s *Store) GetMetaValue(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return "", false, ErrNotInitialized
	}

	for _, table := range []string{"meta", "metadata"} {
		switch table {
		case "meta":
			if !s.caps.HasMetaTable {
				continue
			}
		case "metadata":
			if !s.caps.HasLegacyMetaTable {
				continue
			}
		}

		var value string
		err := s.db.Raw(`SELECT value FROM `+table+` WHERE key = ?`, key).Row().Scan(&value)
		switch {
		case err == nil:
			return value, true, nil
		case errors.Is(err, sql.ErrNoRows):
			// Absent here; the legacy table may still carry it.
		default:
			return "", false, fmt.Errorf("%w: meta read from %s: %v", ErrQueryFailed, table, err)
		}
	}

	return "", false, nil
}

// CardCount returns the number of records in the catalog.
func (s *Store) CardCount() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return 0, ErrNotInitialized
	}

	var count int64
	if err := s.db.Raw(`SELECT COUNT(*) FROM cards`).Scan(&count).Error; err != nil {
		return 0, fmt.Errorf("%w: card count: %v", ErrQueryFailed, err)
	}
	return count, nil
}

// fillLegacyDefaults patches records read from catalogs whose rows predate
// the language/source columns.
func (s *Store) fillLegacyDefaults(records []models.CardRecord) {
	for i := range records {
		if records[i].Language == "" {
			records[i].Language = models.LanguageEnglish
		}
		if records[i].Source == "" {
			records[i].Source = models.SourcePokemonTCG
		}
	}
}

// ftsPrefixQuery turns free text into an FTS5 prefix query: each token is
// quoted and suffixed with * so partial OCR reads still match.
func ftsPrefixQuery(text string) string {
	fields := strings.Fields(text)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, "")
		if f == "" {
			continue
		}
		parts = append(parts, `"`+f+`"*`)
	}
	return strings.Join(parts, " ")
}
