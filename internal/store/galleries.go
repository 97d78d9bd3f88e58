/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package store implements the preference store on top of GORM: gallery and
// performer vote accumulators, selection weights, the vote log, and the
// sent-image history.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/muninn_gallery/internal/config"
	"github.com/friendsincode/muninn_gallery/internal/models"
)

// GalleryStore persists gallery preferences, weights, and statistics.
type GalleryStore struct {
	db     *gorm.DB
	logger zerolog.Logger
	tuning config.Tuning

	// Serializes read-modify-write cycles (vote counters, weight updates).
	// The service runs single-process; a store-level mutex is enough to
	// prevent lost updates from interleaved increments.
	mu sync.Mutex
}

// NewGalleryStore creates a gallery store instance.
func NewGalleryStore(db *gorm.DB, tuning config.Tuning, logger zerolog.Logger) *GalleryStore {
	return &GalleryStore{
		db:     db,
		logger: logger.With().Str("component", "gallery_store").Logger(),
		tuning: tuning,
	}
}

// EnsureGallery creates a default preference row for the gallery if none
// exists. Returns true when a new row was created.
func (s *GalleryStore) EnsureGallery(ctx context.Context, galleryID, title string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing models.GalleryPreference
	err := s.db.WithContext(ctx).First(&existing, "gallery_id = ?", galleryID).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	row := models.GalleryPreference{
		GalleryID:    galleryID,
		GalleryTitle: title,
		Weight:       s.tuning.WeightDefault,
		UpdatedAt:    time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return false, err
	}

	s.logger.Debug().Str("gallery_id", galleryID).Str("title", title).Msg("created gallery preference row")
	return true, nil
}

// Preference returns the stored preference for a gallery, or nil if unknown.
func (s *GalleryStore) Preference(ctx context.Context, galleryID string) (*models.GalleryPreference, error) {
	var row models.GalleryPreference
	err := s.db.WithContext(ctx).First(&row, "gallery_id = ?", galleryID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Preferences returns all gallery preferences ordered by descending score.
func (s *GalleryStore) Preferences(ctx context.Context) ([]models.GalleryPreference, error) {
	var rows []models.GalleryPreference
	err := s.db.WithContext(ctx).Order("score DESC").Find(&rows).Error
	return rows, err
}

// RecordVote increments the gallery's vote counters and recomputes the score.
// The row is created with defaults when missing. The returned flag is true
// exactly once per gallery lifetime: on the call where the total crosses the
// rating threshold while the auto-rating has not been set yet.
func (s *GalleryStore) RecordVote(ctx context.Context, galleryID, title string, vote int) (thresholdReached bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var row models.GalleryPreference
	err = s.db.WithContext(ctx).First(&row, "gallery_id = ?", galleryID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = models.GalleryPreference{
			GalleryID:    galleryID,
			GalleryTitle: title,
			Weight:       s.tuning.WeightDefault,
		}
		err = nil
	}
	if err != nil {
		return false, err
	}

	row.TotalVotes++
	if vote > 0 {
		row.PositiveVotes++
	} else if vote < 0 {
		row.NegativeVotes++
	}
	row.Score = models.ScoreOf(row.PositiveVotes, row.NegativeVotes, row.TotalVotes)
	if title != "" {
		row.GalleryTitle = title
	}
	row.UpdatedAt = time.Now()

	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return false, err
	}

	s.logger.Debug().
		Str("gallery_id", galleryID).
		Int("votes", row.TotalVotes).
		Float64("score", row.Score).
		Msg("gallery preference updated")

	// Signal fires only on the crossing vote, never again after.
	return row.TotalVotes == s.tuning.RatingVoteThreshold && !row.RatingSet, nil
}

// MarkRatingSet records that the gallery's auto-rating has been pushed to the
// catalog. Idempotent.
func (s *GalleryStore) MarkRatingSet(ctx context.Context, galleryID string) error {
	return s.db.WithContext(ctx).
		Model(&models.GalleryPreference{}).
		Where("gallery_id = ?", galleryID).
		Updates(map[string]any{"rating_set": true, "updated_at": time.Now()}).Error
}

// Blacklisted returns gallery ids with a negative score.
func (s *GalleryStore) Blacklisted(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.GalleryPreference{}).
		Where("score < 0").
		Pluck("gallery_id", &ids).Error
	return ids, err
}

// Whitelisted returns gallery ids with a positive score, best first.
func (s *GalleryStore) Whitelisted(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.GalleryPreference{}).
		Where("score > 0").
		Order("score DESC").
		Pluck("gallery_id", &ids).Error
	return ids, err
}

// Exclude soft-deletes the gallery from selection.
func (s *GalleryStore) Exclude(ctx context.Context, galleryID string) error {
	now := time.Now()
	res := s.db.WithContext(ctx).
		Model(&models.GalleryPreference{}).
		Where("gallery_id = ?", galleryID).
		Updates(map[string]any{"excluded": true, "excluded_at": &now, "updated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	s.logger.Info().Str("gallery_id", galleryID).Msg("gallery excluded from selection")
	return nil
}

// ExcludedGalleries returns the ids of all soft-excluded galleries.
func (s *GalleryStore) ExcludedGalleries(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.GalleryPreference{}).
		Where("excluded = ?", true).
		Pluck("gallery_id", &ids).Error
	return ids, err
}

// ThresholdNotificationShown reports whether the one-shot exclusion prompt
// has already been shown for the gallery. Unknown galleries report false.
func (s *GalleryStore) ThresholdNotificationShown(ctx context.Context, galleryID string) (bool, error) {
	row, err := s.Preference(ctx, galleryID)
	if err != nil || row == nil {
		return false, err
	}
	return row.ThresholdNotificationShown, nil
}

// MarkThresholdNotificationShown flips the one-shot exclusion prompt flag.
func (s *GalleryStore) MarkThresholdNotificationShown(ctx context.Context, galleryID string) error {
	return s.db.WithContext(ctx).
		Model(&models.GalleryPreference{}).
		Where("gallery_id = ?", galleryID).
		Update("threshold_notification_shown", true).Error
}

// UpdateLastSelected stamps the gallery's last selection time.
func (s *GalleryStore) UpdateLastSelected(ctx context.Context, galleryID string) error {
	now := time.Now()
	return s.db.WithContext(ctx).
		Model(&models.GalleryPreference{}).
		Where("gallery_id = ?", galleryID).
		Update("last_selected_at", &now).Error
}
