/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package voting

import (
	"context"

	"github.com/friendsincode/muninn_gallery/internal/models"
	"github.com/friendsincode/muninn_gallery/internal/store"
)

// summaryListLimit bounds the top and bottom lists in a summary.
const summaryListLimit = 5

// RankedGallery is one gallery entry in a preference summary.
type RankedGallery struct {
	GalleryID     string  `json:"gallery_id"`
	Title         string  `json:"title"`
	Score         float64 `json:"score"`
	Weight        float64 `json:"weight"`
	TotalVotes    int     `json:"total_votes"`
	PositiveVotes int     `json:"positive_votes"`
	NegativeVotes int     `json:"negative_votes"`
}

// RankedPerformer is one performer entry in a preference summary.
type RankedPerformer struct {
	PerformerID string  `json:"performer_id"`
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
	TotalVotes  int     `json:"total_votes"`
}

// Summary is the learned-preference overview: overall vote counts and the
// best and worst galleries and performers.
type Summary struct {
	TotalVotes    int64 `json:"total_votes"`
	PositiveVotes int64 `json:"positive_votes"`
	NegativeVotes int64 `json:"negative_votes"`

	TopGalleries    []RankedGallery   `json:"top_galleries"`
	WorstGalleries  []RankedGallery   `json:"worst_galleries"`
	TopPerformers   []RankedPerformer `json:"top_performers"`
	WorstPerformers []RankedPerformer `json:"worst_performers"`
}

// Summarizer builds preference summaries from the stores.
type Summarizer struct {
	galleries  *store.GalleryStore
	performers *store.PerformerStore
	votes      *store.VoteStore
}

// NewSummarizer creates a summarizer.
func NewSummarizer(galleries *store.GalleryStore, performers *store.PerformerStore, votes *store.VoteStore) *Summarizer {
	return &Summarizer{galleries: galleries, performers: performers, votes: votes}
}

// Summarize builds the current preference summary. Only voted-on entities
// appear in the ranked lists.
func (s *Summarizer) Summarize(ctx context.Context) (*Summary, error) {
	counts, err := s.votes.Counts(ctx)
	if err != nil {
		return nil, err
	}

	galleryPrefs, err := s.galleries.Preferences(ctx)
	if err != nil {
		return nil, err
	}
	performerPrefs, err := s.performers.Preferences(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		TotalVotes:    counts.Total,
		PositiveVotes: counts.Positive,
		NegativeVotes: counts.Negative,
	}

	voted := make([]models.GalleryPreference, 0, len(galleryPrefs))
	for _, pref := range galleryPrefs {
		if pref.TotalVotes > 0 {
			voted = append(voted, pref)
		}
	}

	// Preferences come back ordered by score descending, so the head is
	// the top list and the reversed tail is the worst list.
	for i := 0; i < len(voted) && i < summaryListLimit; i++ {
		summary.TopGalleries = append(summary.TopGalleries, rankGallery(voted[i]))
	}
	for i := len(voted) - 1; i >= 0 && len(summary.WorstGalleries) < summaryListLimit; i-- {
		if voted[i].Score >= 0 {
			break
		}
		summary.WorstGalleries = append(summary.WorstGalleries, rankGallery(voted[i]))
	}

	for i := 0; i < len(performerPrefs) && i < summaryListLimit; i++ {
		summary.TopPerformers = append(summary.TopPerformers, rankPerformer(performerPrefs[i]))
	}
	for i := len(performerPrefs) - 1; i >= 0 && len(summary.WorstPerformers) < summaryListLimit; i-- {
		if performerPrefs[i].Score >= 0 {
			break
		}
		summary.WorstPerformers = append(summary.WorstPerformers, rankPerformer(performerPrefs[i]))
	}

	return summary, nil
}

func rankGallery(pref models.GalleryPreference) RankedGallery {
	return RankedGallery{
		GalleryID:     pref.GalleryID,
		Title:         pref.GalleryTitle,
		Score:         pref.Score,
		Weight:        pref.Weight,
		TotalVotes:    pref.TotalVotes,
		PositiveVotes: pref.PositiveVotes,
		NegativeVotes: pref.NegativeVotes,
	}
}

func rankPerformer(pref models.PerformerPreference) RankedPerformer {
	return RankedPerformer{
		PerformerID: pref.PerformerID,
		Name:        pref.PerformerName,
		Score:       pref.Score,
		TotalVotes:  pref.TotalVotes,
	}
}
