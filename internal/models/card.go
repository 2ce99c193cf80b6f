package models

// Language identifies the printed language of a card.
type Language string

const (
	LanguageEnglish            Language = "en"
	LanguageJapanese           Language = "ja"
	LanguageChineseTraditional Language = "zh-TW"
)

// Languages lists every supported card language.
var Languages = []Language{LanguageEnglish, LanguageJapanese, LanguageChineseTraditional}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	switch l {
	case LanguageEnglish, LanguageJapanese, LanguageChineseTraditional:
		return true
	}
	return false
}

// Source identifies which catalog provider a record came from.
type Source string

const (
	SourcePokemonTCG Source = "pokemontcg"
	SourceTCGdex     Source = "tcgdex"
	SourceLocal      Source = "local"
)

// CardRecord is one physical printing in the local catalog. Column names
// match the schema written by the catalog build tooling, so records scan
// directly out of both freshly built and older bundled databases.
type CardRecord struct {
	ID             string   `json:"id" gorm:"column:id;primaryKey"`
	Name           string   `json:"name" gorm:"column:name;not null"`
	NameNormalized string   `json:"name_normalized" gorm:"column:name_normalized;not null;index"`
	SetName        string   `json:"set_name" gorm:"column:set_name;not null"`
	SetID          string   `json:"set_id" gorm:"column:set_id;not null"`
	CardNumber     string   `json:"card_number" gorm:"column:card_number;not null"`
	ImageURLSmall  string   `json:"image_url_small,omitempty" gorm:"column:image_url_small"`
	Rarity         string   `json:"rarity,omitempty" gorm:"column:rarity"`
	Language       Language `json:"language" gorm:"column:language;not null;default:en"`
	Source         Source   `json:"source" gorm:"column:source;not null;default:pokemontcg"`
	UpdatedAt      int64    `json:"updated_at" gorm:"column:updated_at"`
}

// TableName keeps gorm pointed at the catalog's cards table.
func (CardRecord) TableName() string {
	return "cards"
}

// ResolutionInput carries the identification signals for one resolution
// attempt. All fields are optional; empty strings are treated as absent.
type ResolutionInput struct {
	Language *Language `json:"language,omitempty"`
	SetCode  string    `json:"set_code,omitempty"`
	Number   string    `json:"number,omitempty"`
	NameHint string    `json:"name_hint,omitempty"` // OCR guess; may be garbage for non-Latin scripts

	// VisionConfidence (0.0-1.0) is informational only. It is recorded but
	// does not currently gate results.
	VisionConfidence *float64 `json:"vision_confidence,omitempty"`
}
