package models

import (
	"encoding/json"
	"fmt"
)

// CanonicalVerse is one original-language verse from a canonical dataset
type CanonicalVerse struct {
	Chapter          int    `json:"chapter"`
	Verse            int    `json:"verse"`
	ScriptDevanagari string `json:"sanskritDevanagari,omitempty"`
	Transliteration  string `json:"sanskritTransliteration,omitempty"`

	invalid string
}

// UnmarshalJSON never fails on a badly typed record. The record is kept with
// the decode error so one bad verse does not reject the whole dataset.
func (v *CanonicalVerse) UnmarshalJSON(data []byte) error {
	type plain CanonicalVerse
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		*v = CanonicalVerse{invalid: err.Error()}
		return nil
	}
	*v = CanonicalVerse(p)
	return nil
}

// Problem returns why the verse cannot be ingested, or "" when it is well formed
func (v CanonicalVerse) Problem() string {
	return verseProblem(v.invalid, v.Chapter, v.Verse)
}

// UnknownTextID identifies verses of a dataset without a textId
const UnknownTextID = "UNKNOWN"

// CanonicalText is a parsed canonical dataset: { textId, verses: [...] }
type CanonicalText struct {
	TextID string           `json:"textId"`
	Verses []CanonicalVerse `json:"verses"`
}

// ID returns the text id, or UnknownTextID when the dataset has none
func (c *CanonicalText) ID() string {
	if c.TextID == "" {
		return UnknownTextID
	}
	return c.TextID
}

// TranslationVerse is one translated verse. Language and translator are
// inherited from the enclosing TranslationText when empty.
type TranslationVerse struct {
	Chapter         int    `json:"chapter"`
	Verse           int    `json:"verse"`
	Language        string `json:"language,omitempty"`
	Translator      string `json:"translator,omitempty"`
	TranslationText string `json:"translationText"`

	invalid string
}

// UnmarshalJSON keeps a badly typed record with its decode error
func (v *TranslationVerse) UnmarshalJSON(data []byte) error {
	type plain TranslationVerse
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		*v = TranslationVerse{invalid: err.Error()}
		return nil
	}
	*v = TranslationVerse(p)
	return nil
}

// Problem returns why the verse cannot be ingested, or "" when it is well formed
func (v TranslationVerse) Problem() string {
	return verseProblem(v.invalid, v.Chapter, v.Verse)
}

func verseProblem(invalid string, chapter, verse int) string {
	switch {
	case invalid != "":
		return invalid
	case chapter < 1 || verse < 1:
		return fmt.Sprintf("chapter=%d verse=%d", chapter, verse)
	}
	return ""
}

// TranslationText is a parsed translation dataset
type TranslationText struct {
	TextID     string             `json:"textId"`
	Language   string             `json:"language"`
	Translator string             `json:"translator"`
	Verses     []TranslationVerse `json:"verses"`
}

// MergedDocument joins a canonical verse with its selected translation
type MergedDocument struct {
	DocID           string
	TextID          string
	Chapter         int
	Verse           int
	Transliteration string
	TranslationText string
}

// EmbeddingText returns the text sent to the embedding model for this verse
func (d MergedDocument) EmbeddingText() string {
	return fmt.Sprintf("Verse: %s. Translation: %s", d.Transliteration, d.TranslationText)
}

// Source returns the stored fields of the document
func (d MergedDocument) Source() VerseSource {
	return VerseSource{
		DocID:           d.DocID,
		TextID:          d.TextID,
		Chapter:         d.Chapter,
		Verse:           d.Verse,
		Transliteration: d.Transliteration,
		TranslationText: d.TranslationText,
	}
}

// VerseSource is the stored shape of an indexed verse without its vector
type VerseSource struct {
	DocID           string  `json:"docId" db:"doc_id"`
	TextID          string  `json:"textId" db:"text_id"`
	Chapter         int     `json:"chapter" db:"chapter"`
	Verse           int     `json:"verse" db:"verse"`
	Transliteration string  `json:"transliteration" db:"transliteration"`
	TranslationText string  `json:"translationText" db:"translation_text"`
	Score           float64 `json:"score" db:"score"`
}

// IndexedVerse is a merged document with its embedding, ready for upsert
type IndexedVerse struct {
	VerseSource
	Embedding []float32 `json:"embedding"`
}

// FailedDocument records a document that did not make it into the index
type FailedDocument struct {
	DocID string `json:"docId"`
	Cause error  `json:"-"`
}

// Error returns the cause message, convenient for logging and JSON output
func (f FailedDocument) Error() string {
	if f.Cause == nil {
		return ""
	}
	return f.Cause.Error()
}

// MarshalJSON renders the cause as a message
func (f FailedDocument) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		DocID string `json:"docId"`
		Error string `json:"error,omitempty"`
	}{DocID: f.DocID, Error: f.Error()})
}

// DocID builds the stable identity key of a verse
func DocID(textID string, chapter, verse int) string {
	return fmt.Sprintf("%s_%d_%d", textID, chapter, verse)
}
