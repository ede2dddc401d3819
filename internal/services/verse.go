package services

import (
	"context"
	"strings"

	"github.com/verse-search-api/internal/models"
	"github.com/verse-search-api/internal/repository"
)

// VerseService looks up the stored rows of a single verse
type VerseService struct {
	store repository.VerseStore
}

// NewVerseService creates a new verse service
func NewVerseService(store repository.VerseStore) *VerseService {
	return &VerseService{store: store}
}

// GetVerse returns the canonical text and all translations stored for id
func (s *VerseService) GetVerse(ctx context.Context, id string) (*models.VerseDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, models.ErrVerseNotFound
	}

	records, err := s.store.GetVerseRecords(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, models.ErrVerseNotFound
	}

	detail := &models.VerseDetail{ID: id, Translations: []models.TranslationDetail{}}
	for _, rec := range records {
		switch {
		case rec.IsCanonical():
			detail.Canonical = &models.CanonicalDetail{
				ScriptDevanagari: rec.ScriptDevanagari,
				Transliteration:  rec.Transliteration,
			}
		case strings.HasPrefix(rec.SK, "T_"):
			detail.Translations = append(detail.Translations, models.TranslationDetail{
				Language:   rec.Language,
				Translator: rec.Translator,
				Text:       rec.TranslationText,
			})
		}
	}
	return detail, nil
}
