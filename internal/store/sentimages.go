/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/muninn_gallery/internal/models"
)

// SentImageStore is the append-only delivery log. Every image handed to a
// consumer is recorded here so recent deliveries can be excluded from the
// next draw.
type SentImageStore struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewSentImageStore creates a sent-image store instance.
func NewSentImageStore(db *gorm.DB, logger zerolog.Logger) *SentImageStore {
	return &SentImageStore{
		db:     db,
		logger: logger.With().Str("component", "sent_image_store").Logger(),
	}
}

// Record appends one delivery. Duplicate image ids are expected; the log
// keeps one row per delivery, not per image.
func (s *SentImageStore) Record(ctx context.Context, imageID string, userID *int64, title, fileID, fileIDHighQuality string) error {
	row := models.SentImage{
		ID:                uuid.NewString(),
		ImageID:           imageID,
		UserID:            userID,
		Title:             title,
		FileID:            fileID,
		FileIDHighQuality: fileIDHighQuality,
		SentAt:            time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	s.logger.Debug().Str("image_id", imageID).Msg("delivery logged")
	return nil
}

// RecentImageIDs returns distinct image ids delivered within the last
// `days` days. These are excluded from selection to avoid repeats.
func (s *SentImageStore) RecentImageIDs(ctx context.Context, days int) ([]string, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.SentImage{}).
		Where("sent_at >= ?", cutoff).
		Distinct().
		Pluck("image_id", &ids).Error
	return ids, err
}

// IsRecentlySent reports whether the image was delivered within the last
// `days` days.
func (s *SentImageStore) IsRecentlySent(ctx context.Context, imageID string, days int) (bool, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.SentImage{}).
		Where("image_id = ? AND sent_at >= ?", imageID, cutoff).
		Count(&count).Error
	return count > 0, err
}

// LastSent returns the most recent delivery of an image, or nil when the
// image has never been sent.
func (s *SentImageStore) LastSent(ctx context.Context, imageID string) (*models.SentImage, error) {
	var row models.SentImage
	err := s.db.WithContext(ctx).
		Where("image_id = ?", imageID).
		Order("sent_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// LastSentForUser returns the most recent delivery to a specific user, or
// nil when nothing has been sent to them.
func (s *SentImageStore) LastSentForUser(ctx context.Context, userID int64) (*models.SentImage, error) {
	var row models.SentImage
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("sent_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Count returns the number of logged deliveries.
func (s *SentImageStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.SentImage{}).Count(&count).Error
	return count, err
}

// CleanupOlderThan deletes log rows older than `days` days and returns the
// number removed.
func (s *SentImageStore) CleanupOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	res := s.db.WithContext(ctx).
		Where("sent_at < ?", cutoff).
		Delete(&models.SentImage{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		s.logger.Info().Int64("removed", res.RowsAffected).Int("days", days).Msg("pruned delivery log")
	}
	return res.RowsAffected, nil
}
