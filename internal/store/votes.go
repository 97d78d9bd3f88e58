/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/friendsincode/muninn_gallery/internal/models"
)

// VoteStore persists the per-image vote log with upsert-by-image semantics.
type VoteStore struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewVoteStore creates a vote store instance.
func NewVoteStore(db *gorm.DB, logger zerolog.Logger) *VoteStore {
	return &VoteStore{
		db:     db,
		logger: logger.With().Str("component", "vote_store").Logger(),
	}
}

// VoteRecord is the decoded form of one stored vote.
type VoteRecord struct {
	ImageID        string
	Vote           int
	GalleryID      string
	GalleryTitle   string
	PerformerIDs   []string
	PerformerNames []string
	VotedAt        time.Time
}

// VoteCounts summarizes the whole vote log.
type VoteCounts struct {
	Total    int64
	Positive int64
	Negative int64
}

// Upsert records the vote for an image, overwriting any previous vote for the
// same image id.
func (s *VoteStore) Upsert(ctx context.Context, rec VoteRecord) error {
	idsJSON, err := json.Marshal(rec.PerformerIDs)
	if err != nil {
		return err
	}
	namesJSON, err := json.Marshal(rec.PerformerNames)
	if err != nil {
		return err
	}

	row := models.Vote{
		ImageID:        rec.ImageID,
		Vote:           rec.Vote,
		GalleryID:      rec.GalleryID,
		GalleryTitle:   rec.GalleryTitle,
		PerformerIDs:   string(idsJSON),
		PerformerNames: string(namesJSON),
		VotedAt:        time.Now(),
	}

	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "image_id"}},
			UpdateAll: true,
		}).
		Create(&row).Error; err != nil {
		return err
	}

	s.logger.Debug().Str("image_id", rec.ImageID).Int("vote", rec.Vote).Msg("vote recorded")
	return nil
}

// Get returns the stored vote for an image, or nil when the image has never
// been voted on.
func (s *VoteStore) Get(ctx context.Context, imageID string) (*VoteRecord, error) {
	var row models.Vote
	err := s.db.WithContext(ctx).First(&row, "image_id = ?", imageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec := VoteRecord{
		ImageID:      row.ImageID,
		Vote:         row.Vote,
		GalleryID:    row.GalleryID,
		GalleryTitle: row.GalleryTitle,
		VotedAt:      row.VotedAt,
	}
	if row.PerformerIDs != "" {
		if err := json.Unmarshal([]byte(row.PerformerIDs), &rec.PerformerIDs); err != nil {
			return nil, err
		}
	}
	if row.PerformerNames != "" {
		if err := json.Unmarshal([]byte(row.PerformerNames), &rec.PerformerNames); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

// Status reports the image's vote direction: +1, -1, or 0 when unvoted.
func (s *VoteStore) Status(ctx context.Context, imageID string) (int, error) {
	rec, err := s.Get(ctx, imageID)
	if err != nil || rec == nil {
		return 0, err
	}
	switch {
	case rec.Vote > 0:
		return 1, nil
	case rec.Vote < 0:
		return -1, nil
	default:
		return 0, nil
	}
}

// Counts returns totals across the whole vote log.
func (s *VoteStore) Counts(ctx context.Context) (VoteCounts, error) {
	var counts VoteCounts
	err := s.db.WithContext(ctx).
		Model(&models.Vote{}).
		Select(
			"COUNT(*) AS total, " +
				"SUM(CASE WHEN vote > 0 THEN 1 ELSE 0 END) AS positive, " +
				"SUM(CASE WHEN vote < 0 THEN 1 ELSE 0 END) AS negative").
		Scan(&counts).Error
	return counts, err
}
