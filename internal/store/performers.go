/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/muninn_gallery/internal/models"
)

// PerformerStore persists per-performer vote aggregates.
type PerformerStore struct {
	db     *gorm.DB
	logger zerolog.Logger

	mu sync.Mutex
}

// NewPerformerStore creates a performer store instance.
func NewPerformerStore(db *gorm.DB, logger zerolog.Logger) *PerformerStore {
	return &PerformerStore{
		db:     db,
		logger: logger.With().Str("component", "performer_store").Logger(),
	}
}

// RecordVote increments the performer's counters and recomputes the score,
// creating the row with defaults on first reference.
func (s *PerformerStore) RecordVote(ctx context.Context, performerID, name string, vote int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var row models.PerformerPreference
	err := s.db.WithContext(ctx).First(&row, "performer_id = ?", performerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = models.PerformerPreference{PerformerID: performerID, PerformerName: name}
		err = nil
	}
	if err != nil {
		return err
	}

	row.TotalVotes++
	if vote > 0 {
		row.PositiveVotes++
	} else if vote < 0 {
		row.NegativeVotes++
	}
	row.Score = models.ScoreOf(row.PositiveVotes, row.NegativeVotes, row.TotalVotes)
	if name != "" {
		row.PerformerName = name
	}
	row.UpdatedAt = time.Now()

	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return err
	}

	s.logger.Debug().
		Str("performer", row.PerformerName).
		Float64("score", row.Score).
		Msg("performer preference updated")
	return nil
}

// Preferences returns all performer preferences ordered by descending score.
func (s *PerformerStore) Preferences(ctx context.Context) ([]models.PerformerPreference, error) {
	var rows []models.PerformerPreference
	err := s.db.WithContext(ctx).Order("score DESC").Find(&rows).Error
	return rows, err
}

// Blacklisted returns performer ids with a negative score.
func (s *PerformerStore) Blacklisted(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.PerformerPreference{}).
		Where("score < 0").
		Pluck("performer_id", &ids).Error
	return ids, err
}

// Whitelisted returns performer ids with a positive score, best first.
func (s *PerformerStore) Whitelisted(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.PerformerPreference{}).
		Where("score > 0").
		Order("score DESC").
		Pluck("performer_id", &ids).Error
	return ids, err
}
