/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"time"
)

// GalleryPreference accumulates voting state and selection weight for one gallery.
// Rows are created lazily on first vote or explicitly via EnsureGallery; they
// are never hard-deleted, only soft-excluded.
type GalleryPreference struct {
	GalleryID     string `gorm:"primaryKey"`
	GalleryTitle  string `gorm:"not null"`
	TotalVotes    int    `gorm:"default:0"`
	PositiveVotes int    `gorm:"default:0"`
	NegativeVotes int    `gorm:"default:0"`
	// Score is recomputed from cumulative counts on every vote: (pos-neg)/total.
	Score float64 `gorm:"default:0"`
	// Weight is the multiplicative selection weight, clamped to [0.1, 10.0].
	Weight float64 `gorm:"default:1.0;index"`
	// RatingSet flips true once the 5-vote auto-rating has been pushed upstream.
	RatingSet bool `gorm:"default:false"`
	// Excluded removes the gallery from selection entirely.
	Excluded   bool `gorm:"default:false"`
	ExcludedAt *time.Time
	// ThresholdNotificationShown is the one-shot flag for the exclusion prompt.
	ThresholdNotificationShown bool `gorm:"default:false"`
	// TotalImages is the cached catalog-side image count; 0 means never fetched.
	TotalImages          int `gorm:"default:0"`
	ImagesCountUpdatedAt *time.Time
	LastSelectedAt       *time.Time
	UpdatedAt            time.Time
}

// PerformerPreference accumulates voting state for one performer. Created on
// first vote referencing the performer, never deleted.
type PerformerPreference struct {
	PerformerID   string `gorm:"primaryKey"`
	PerformerName string `gorm:"not null"`
	TotalVotes    int    `gorm:"default:0"`
	PositiveVotes int    `gorm:"default:0"`
	NegativeVotes int    `gorm:"default:0"`
	Score         float64 `gorm:"default:0"`
	UpdatedAt     time.Time
}

// Vote is the latest vote for an image. At most one row per image id; a new
// vote overwrites the previous one.
type Vote struct {
	ImageID        string `gorm:"primaryKey"`
	Vote           int    `gorm:"not null"`
	GalleryID      string `gorm:"index"`
	GalleryTitle   string
	PerformerIDs   string `gorm:"type:text"` // JSON-encoded []string
	PerformerNames string `gorm:"type:text"` // JSON-encoded []string
	VotedAt        time.Time
}

// SentImage is one append-only delivery record. Consumed only to build
// "recently shown" exclusion sets and delivery statistics.
type SentImage struct {
	ID     string `gorm:"type:uuid;primaryKey"`
	ImageID string `gorm:"index;not null"`
	UserID  *int64 `gorm:"index"`
	Title   string
	// Cached transport handles so a re-send skips the image download.
	FileID            string
	FileIDHighQuality string
	SentAt            time.Time `gorm:"index"`
}

// Score derives the normalized preference score from cumulative counters.
func ScoreOf(positive, negative, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(positive-negative) / float64(total)
}
