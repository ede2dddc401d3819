package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/verse-search-api/internal/models"
	"github.com/verse-search-api/internal/repository"
)

// LoadResult counts rows written by a VerseLoader
type LoadResult struct {
	Canonical           int
	Translations        int
	SkippedCanonical    []*models.MalformedInputError
	SkippedTranslations []*models.MalformedInputError
}

// VerseLoader writes canonical and translation rows to the key-value store:
// one "C" row per canonical verse and one "T_{language}_{translator}" row per
// translation verse, all keyed by the verse DocID.
type VerseLoader struct {
	store     repository.VerseStore
	batchSize int
	logger    zerolog.Logger
}

// NewVerseLoader creates a new loader
func NewVerseLoader(store repository.VerseStore, batchSize int, logger zerolog.Logger) *VerseLoader {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &VerseLoader{store: store, batchSize: batchSize, logger: logger}
}

// Load writes all rows. Records without chapter or verse are skipped.
func (l *VerseLoader) Load(ctx context.Context, canonical *models.CanonicalText, translations ...*models.TranslationText) (LoadResult, error) {
	var result LoadResult
	batch := make([]models.VerseRecord, 0, l.batchSize)

	put := func(rec models.VerseRecord) error {
		batch = append(batch, rec)
		if len(batch) < l.batchSize {
			return nil
		}
		return l.flush(ctx, &batch)
	}
	textID := canonical.ID()
	for i, v := range canonical.Verses {
		if reason := v.Problem(); reason != "" {
			e := &models.MalformedInputError{TextID: textID, Index: i, Reason: reason}
			l.logger.Warn().Err(e).Msg("skipping canonical verse record")
			result.SkippedCanonical = append(result.SkippedCanonical, e)
			continue
		}
		err := put(models.VerseRecord{
			PK:               models.DocID(textID, v.Chapter, v.Verse),
			SK:               models.CanonicalSortKey,
			TextID:           textID,
			Chapter:          v.Chapter,
			Verse:            v.Verse,
			ScriptDevanagari: v.ScriptDevanagari,
			Transliteration:  v.Transliteration,
		})
		if err != nil {
			return result, err
		}
		result.Canonical++
	}

	for ti, t := range translations {
		if t == nil {
			continue
		}
		dataset := fmt.Sprintf("translation %d (%s/%s)", ti, t.Language, t.Translator)
		for i, v := range t.Verses {
			if reason := v.Problem(); reason != "" {
				e := &models.MalformedInputError{TextID: textID, Dataset: dataset, Index: i, Reason: reason}
				l.logger.Warn().Err(e).
					Int("dataset", ti).
					Str("language", t.Language).
					Str("translator", t.Translator).
					Msg("skipping translation verse record")
				result.SkippedTranslations = append(result.SkippedTranslations, e)
				continue
			}
			language, translator := v.Language, v.Translator
			if language == "" {
				language = t.Language
			}
			if translator == "" {
				translator = t.Translator
			}
			err := put(models.VerseRecord{
				PK:              models.DocID(textID, v.Chapter, v.Verse),
				SK:              models.TranslationSortKey(language, translator),
				TextID:          textID,
				Chapter:         v.Chapter,
				Verse:           v.Verse,
				Language:        language,
				Translator:      translator,
				TranslationText: v.TranslationText,
			})
			if err != nil {
				return result, err
			}
			result.Translations++
		}
	}

	if err := l.flush(ctx, &batch); err != nil {
		return result, err
	}
	return result, nil
}

func (l *VerseLoader) flush(ctx context.Context, batch *[]models.VerseRecord) error {
	if len(*batch) == 0 {
		return nil
	}
	if err := l.store.PutVerseRecords(ctx, *batch); err != nil {
		return fmt.Errorf("write verse rows: %w", err)
	}
	l.logger.Debug().Int("rows", len(*batch)).Msg("wrote verse rows")
	*batch = (*batch)[:0]
	return nil
}
