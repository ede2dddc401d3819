package models

import "fmt"

// CanonicalSortKey marks the canonical row of a verse in the key-value store
const CanonicalSortKey = "C"

// TranslationSortKey builds the sort key of a translation row
func TranslationSortKey(language, translator string) string {
	return fmt.Sprintf("T_%s_%s", language, translator)
}

// VerseRecord is one key-value row. PK is the verse DocID, SK distinguishes
// the canonical row from translation rows.
type VerseRecord struct {
	PK               string `db:"pk"`
	SK               string `db:"sk"`
	TextID           string `db:"text_id"`
	Chapter          int    `db:"chapter"`
	Verse            int    `db:"verse"`
	ScriptDevanagari string `db:"script_devanagari"`
	Transliteration  string `db:"transliteration"`
	Language         string `db:"language"`
	Translator       string `db:"translator"`
	TranslationText  string `db:"translation_text"`
}

// IsCanonical reports whether the row holds canonical text
func (r VerseRecord) IsCanonical() bool {
	return r.SK == CanonicalSortKey
}

// CanonicalDetail is the original-language part of a verse lookup
type CanonicalDetail struct {
	ScriptDevanagari string `json:"sanskritDevanagari"`
	Transliteration  string `json:"sanskritTransliteration"`
}

// TranslationDetail is one translation in a verse lookup
type TranslationDetail struct {
	Language   string `json:"language"`
	Translator string `json:"translator"`
	Text       string `json:"text"`
}

// VerseDetail groups all rows stored for one verse
type VerseDetail struct {
	ID           string              `json:"id"`
	Canonical    *CanonicalDetail    `json:"canonical"`
	Translations []TranslationDetail `json:"translations"`
}
