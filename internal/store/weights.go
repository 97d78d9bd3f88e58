/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"errors"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/friendsincode/muninn_gallery/internal/models"
)

// GalleryStats summarizes a gallery's viewing history for the selector.
type GalleryStats struct {
	Viewed       int
	TotalImages  int
	LastSelected *time.Time
}

// Weight returns the gallery's stored selection weight, or the default when
// the gallery is unknown.
func (s *GalleryStore) Weight(ctx context.Context, galleryID string) (float64, error) {
	var row models.GalleryPreference
	err := s.db.WithContext(ctx).Select("weight").First(&row, "gallery_id = ?", galleryID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.tuning.WeightDefault, nil
	}
	if err != nil {
		return s.tuning.WeightDefault, err
	}
	return row.Weight, nil
}

// UpdateWeight applies one multiplicative reinforcement step and persists the
// clamped result. An unknown gallery is a lenient no-op returning the default
// weight: selection call sites are expected to EnsureGallery first.
//
// The 1.2/0.8 factors are asymmetric on purpose: an interleaved +,-,+,-
// history drifts slightly below the default rather than returning to it.
func (s *GalleryStore) UpdateWeight(ctx context.Context, galleryID string, vote int) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var row models.GalleryPreference
	err := s.db.WithContext(ctx).First(&row, "gallery_id = ?", galleryID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Warn().Str("gallery_id", galleryID).Msg("weight update for unknown gallery, returning default")
		return s.tuning.WeightDefault, nil
	}
	if err != nil {
		return s.tuning.WeightDefault, err
	}

	current := row.Weight
	next := current
	switch {
	case vote > 0:
		next = current * s.tuning.WeightPositiveFactor
	case vote < 0:
		next = current * s.tuning.WeightNegativeFactor
	}
	next = clampWeight(next, s.tuning.WeightMin, s.tuning.WeightMax)

	if err := s.db.WithContext(ctx).
		Model(&models.GalleryPreference{}).
		Where("gallery_id = ?", galleryID).
		Updates(map[string]any{"weight": next, "updated_at": time.Now()}).Error; err != nil {
		return current, err
	}

	s.logger.Debug().
		Str("gallery_id", galleryID).
		Float64("old", current).
		Float64("new", next).
		Int("vote", vote).
		Msg("gallery weight updated")
	return next, nil
}

// ActiveWeights returns the weight map for all non-excluded galleries.
// Excluded galleries are omitted entirely, whatever their stored weight.
func (s *GalleryStore) ActiveWeights(ctx context.Context) (map[string]float64, error) {
	var rows []models.GalleryPreference
	err := s.db.WithContext(ctx).
		Select("gallery_id", "weight").
		Where("excluded = ?", false).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	weights := make(map[string]float64, len(rows))
	for _, row := range rows {
		weights[row.GalleryID] = row.Weight
	}
	return weights, nil
}

// InitialWeight derives a starting weight from an existing vote history,
// used when backfilling weights: W = 1.0 * 1.2^pos * 0.8^neg, clamped.
func (s *GalleryStore) InitialWeight(positiveVotes, negativeVotes int) float64 {
	weight := s.tuning.WeightDefault *
		math.Pow(s.tuning.WeightPositiveFactor, float64(positiveVotes)) *
		math.Pow(s.tuning.WeightNegativeFactor, float64(negativeVotes))
	return clampWeight(weight, s.tuning.WeightMin, s.tuning.WeightMax)
}

// StatsByGallery returns viewing statistics for every gallery known to the
// store. Viewed counts come from the vote log: one voted image counts as one
// viewed image.
func (s *GalleryStore) StatsByGallery(ctx context.Context) (map[string]GalleryStats, error) {
	var rows []models.GalleryPreference
	if err := s.db.WithContext(ctx).
		Select("gallery_id", "total_images", "last_selected_at").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	type viewedRow struct {
		GalleryID string
		Viewed    int
	}
	var viewed []viewedRow
	if err := s.db.WithContext(ctx).
		Model(&models.Vote{}).
		Select("gallery_id, COUNT(*) AS viewed").
		Where("gallery_id <> ''").
		Group("gallery_id").
		Scan(&viewed).Error; err != nil {
		return nil, err
	}

	viewedByID := make(map[string]int, len(viewed))
	for _, v := range viewed {
		viewedByID[v.GalleryID] = v.Viewed
	}

	stats := make(map[string]GalleryStats, len(rows))
	for _, row := range rows {
		stats[row.GalleryID] = GalleryStats{
			Viewed:       viewedByID[row.GalleryID],
			TotalImages:  row.TotalImages,
			LastSelected: row.LastSelectedAt,
		}
	}
	return stats, nil
}

func clampWeight(w, min, max float64) float64 {
	if w < min {
		return min
	}
	if w > max {
		return max
	}
	return w
}
