/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/friendsincode/muninn_gallery/internal/models"
)

// GalleryStatistics reports the cached catalog size against the vote history.
type GalleryStatistics struct {
	GalleryID            string
	TotalImages          int
	PositiveVotes        int
	NegativeVotes        int
	NegativePercentage   float64
	ImagesCountUpdatedAt *time.Time
}

// UpdateImageCount refreshes the cached catalog-side image count.
func (s *GalleryStore) UpdateImageCount(ctx context.Context, galleryID string, totalImages int) error {
	now := time.Now()
	res := s.db.WithContext(ctx).
		Model(&models.GalleryPreference{}).
		Where("gallery_id = ?", galleryID).
		Updates(map[string]any{
			"total_images":            totalImages,
			"images_count_updated_at": &now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	s.logger.Debug().Str("gallery_id", galleryID).Int("total_images", totalImages).Msg("gallery image count updated")
	return nil
}

// Statistics returns the gallery's exclusion-relevant statistics, or nil for
// an unknown gallery.
func (s *GalleryStore) Statistics(ctx context.Context, galleryID string) (*GalleryStatistics, error) {
	row, err := s.Preference(ctx, galleryID)
	if err != nil || row == nil {
		return nil, err
	}

	return &GalleryStatistics{
		GalleryID:            galleryID,
		TotalImages:          row.TotalImages,
		PositiveVotes:        row.PositiveVotes,
		NegativeVotes:        row.NegativeVotes,
		NegativePercentage:   negativePercentage(row.NegativeVotes, row.TotalImages),
		ImagesCountUpdatedAt: row.ImagesCountUpdatedAt,
	}, nil
}

// NegativePercentage computes (negative_votes / total_images) * 100 for the
// gallery, rounded to two decimals. Galleries with no cached count report 0.
func (s *GalleryStore) NegativePercentage(ctx context.Context, galleryID string) (float64, error) {
	row, err := s.Preference(ctx, galleryID)
	if err != nil || row == nil {
		return 0, err
	}
	return negativePercentage(row.NegativeVotes, row.TotalImages), nil
}

// ShouldRefreshImageCount reports whether the cached count is stale: never
// fetched, zero, or older than the staleness window.
func (s *GalleryStore) ShouldRefreshImageCount(ctx context.Context, galleryID string, staleAfterDays int) (bool, error) {
	row, err := s.Preference(ctx, galleryID)
	if err != nil {
		return false, err
	}
	if row == nil {
		return false, nil
	}
	if row.TotalImages == 0 || row.ImagesCountUpdatedAt == nil {
		return true, nil
	}
	cutoff := time.Now().AddDate(0, 0, -staleAfterDays)
	return row.ImagesCountUpdatedAt.Before(cutoff), nil
}

// GalleriesNeedingCountRefresh lists galleries whose cached image count is
// stale and should be re-fetched from the catalog.
func (s *GalleryStore) GalleriesNeedingCountRefresh(ctx context.Context, staleAfterDays int) ([]models.GalleryPreference, error) {
	cutoff := time.Now().AddDate(0, 0, -staleAfterDays)
	var rows []models.GalleryPreference
	err := s.db.WithContext(ctx).
		Where("total_images = 0 OR images_count_updated_at IS NULL OR images_count_updated_at < ?", cutoff).
		Find(&rows).Error
	return rows, err
}

// Rounded to two decimals before any threshold comparison to keep float
// noise out of the exclusion decision.
func negativePercentage(negativeVotes, totalImages int) float64 {
	if totalImages <= 0 {
		return 0
	}
	pct := float64(negativeVotes) / float64(totalImages) * 100.0
	return math.Round(pct*100) / 100
}
