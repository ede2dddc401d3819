// Package merger joins canonical verses with their translations.
package merger

import (
	"fmt"
	"iter"
	"strings"

	"github.com/verse-search-api/internal/models"
)

// Policy selects the translation text when several translations exist for a verse
type Policy string

const (
	PolicyFirst  Policy = "first"
	PolicyLast   Policy = "last"
	PolicyConcat Policy = "concat"
)

// ParsePolicy maps a config value to a Policy, defaulting to PolicyFirst
func ParsePolicy(value string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PolicyFirst:
		return PolicyFirst, nil
	case PolicyLast:
		return PolicyLast, nil
	case PolicyConcat:
		return PolicyConcat, nil
	}
	return "", fmt.Errorf("unknown translation policy %q", value)
}

type verseKey struct {
	chapter int
	verse   int
}

// Merger produces merged documents from a canonical text and its translations
type Merger struct {
	policy Policy
	onSkip func(*models.MalformedInputError)
}

// Option configures a Merger
type Option func(*Merger)

// WithPolicy sets the translation selection policy
func WithPolicy(p Policy) Option {
	return func(m *Merger) { m.policy = p }
}

// WithSkipHandler registers a callback for skipped canonical records
func WithSkipHandler(fn func(*models.MalformedInputError)) Option {
	return func(m *Merger) { m.onSkip = fn }
}

// New creates a Merger
func New(opts ...Option) *Merger {
	m := &Merger{policy: PolicyFirst}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnSkip returns a copy of m reporting skipped records to fn
func (m *Merger) OnSkip(fn func(*models.MalformedInputError)) *Merger {
	cp := *m
	cp.onSkip = fn
	return &cp
}

// Merge returns a lazy sequence with one document per well-formed canonical
// verse, in canonical order. Verses without a translation get an empty
// TranslationText. The translation lookup is built once, before iteration.
func (m *Merger) Merge(canonical *models.CanonicalText, translations ...*models.TranslationText) iter.Seq[models.MergedDocument] {
	lookup := m.buildLookup(translations)
	textID := canonical.ID()

	return func(yield func(models.MergedDocument) bool) {
		for i, v := range canonical.Verses {
			if reason := v.Problem(); reason != "" {
				if m.onSkip != nil {
					m.onSkip(&models.MalformedInputError{
						TextID: textID,
						Index:  i,
						Reason: reason,
					})
				}
				continue
			}
			doc := models.MergedDocument{
				DocID:           models.DocID(textID, v.Chapter, v.Verse),
				TextID:          textID,
				Chapter:         v.Chapter,
				Verse:           v.Verse,
				Transliteration: v.Transliteration,
				TranslationText: lookup[verseKey{v.Chapter, v.Verse}],
			}
			if !yield(doc) {
				return
			}
		}
	}
}

func (m *Merger) buildLookup(translations []*models.TranslationText) map[verseKey]string {
	lookup := make(map[verseKey]string)
	for _, t := range translations {
		if t == nil {
			continue
		}
		for _, v := range t.Verses {
			if v.Problem() != "" {
				continue
			}
			key := verseKey{v.Chapter, v.Verse}
			existing, seen := lookup[key]
			switch m.policy {
			case PolicyLast:
				lookup[key] = v.TranslationText
			case PolicyConcat:
				switch {
				case v.TranslationText == "":
				case existing == "":
					lookup[key] = v.TranslationText
				default:
					lookup[key] = existing + " " + v.TranslationText
				}
			default:
				if !seen {
					lookup[key] = v.TranslationText
				}
			}
		}
	}
	return lookup
}
