/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package voting implements the vote-processing pipeline: catalog rating
// pushes, preference accumulation, weight reinforcement, and the exclusion
// proposal flow.
package voting

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn_gallery/internal/catalog"
	"github.com/friendsincode/muninn_gallery/internal/config"
	"github.com/friendsincode/muninn_gallery/internal/store"
	"github.com/friendsincode/muninn_gallery/internal/telemetry"
)

// Outcome reports what one processed vote did. External-write failures are
// collected here instead of aborting the pipeline; local bookkeeping always
// runs to completion.
type Outcome struct {
	ImageID   string
	GalleryID string
	Vote      int

	// ImageRatingPushed is false when the catalog write failed.
	ImageRatingPushed bool

	// GalleryRatingSet reports that the vote crossed the rating threshold
	// and the automatic gallery rating was pushed and marked.
	GalleryThresholdReached bool
	GalleryRatingSet        bool
	GalleryRating           int

	// NewWeight is the gallery's reinforced weight after this vote.
	NewWeight float64

	// ExclusionProposed is true when the negative-ratio threshold tripped
	// for the first time; the caller should prompt for exclusion.
	ExclusionProposed bool
	Statistics        *store.GalleryStatistics

	// Errors holds non-fatal failures, one message per failed step.
	Errors []string
}

// Processor fans one vote out to the catalog, the preference stores, and the
// weight store.
type Processor struct {
	galleries  *store.GalleryStore
	performers *store.PerformerStore
	votes      *store.VoteStore
	source     catalog.Source
	filters    *FilterService
	tuning     config.Tuning
	logger     zerolog.Logger

	// invalidate hooks fire after every vote so cached weights and filter
	// lists refresh on the next draw.
	invalidate []func()
}

// NewProcessor creates a vote processor.
func NewProcessor(
	galleries *store.GalleryStore,
	performers *store.PerformerStore,
	votes *store.VoteStore,
	source catalog.Source,
	filters *FilterService,
	tuning config.Tuning,
	logger zerolog.Logger,
) *Processor {
	return &Processor{
		galleries:  galleries,
		performers: performers,
		votes:      votes,
		source:     source,
		filters:    filters,
		tuning:     tuning,
		logger:     logger.With().Str("component", "vote_processor").Logger(),
	}
}

// OnVote registers a hook fired after every processed vote.
func (p *Processor) OnVote(hook func()) {
	p.invalidate = append(p.invalidate, hook)
}

// Process applies one vote. Steps are fault-isolated: a failed catalog write
// or store update is recorded in the outcome and processing continues, so a
// flaky upstream never loses the local bookkeeping.
func (p *Processor) Process(ctx context.Context, image catalog.Image, vote int) Outcome {
	outcome := Outcome{ImageID: image.ID, GalleryID: image.GalleryID, Vote: vote}
	telemetry.RecordVote(vote)

	// 1. Push the item rating upstream.
	rating := catalog.RatingFromVote(vote)
	if err := p.source.SetImageRating(ctx, image.ID, rating); err != nil {
		telemetry.CatalogWriteFailuresTotal.WithLabelValues("image_rating").Inc()
		p.logger.Warn().Err(err).Str("image_id", image.ID).Msg("failed to push image rating")
		outcome.Errors = append(outcome.Errors, fmt.Sprintf("image rating push: %v", err))
	} else {
		outcome.ImageRatingPushed = true
	}

	// 2. Record the vote itself, overwriting any earlier vote for the image.
	performerIDs := make([]string, len(image.Performers))
	performerNames := make([]string, len(image.Performers))
	for i, perf := range image.Performers {
		performerIDs[i] = perf.ID
		performerNames[i] = perf.Name
	}
	err := p.votes.Upsert(ctx, store.VoteRecord{
		ImageID:        image.ID,
		Vote:           vote,
		GalleryID:      image.GalleryID,
		GalleryTitle:   image.Gallery,
		PerformerIDs:   performerIDs,
		PerformerNames: performerNames,
	})
	if err != nil {
		p.logger.Error().Err(err).Str("image_id", image.ID).Msg("failed to record vote")
		outcome.Errors = append(outcome.Errors, fmt.Sprintf("vote upsert: %v", err))
	}

	// 3. Performer preferences.
	for _, perf := range image.Performers {
		if err := p.performers.RecordVote(ctx, perf.ID, perf.Name, vote); err != nil {
			p.logger.Warn().Err(err).Str("performer_id", perf.ID).Msg("failed to record performer vote")
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("performer %s: %v", perf.ID, err))
		}
	}

	// 4. Gallery bookkeeping, only when the image belongs to one.
	if image.GalleryID != "" {
		p.processGalleryVote(ctx, image, vote, &outcome)
	}

	for _, hook := range p.invalidate {
		hook()
	}

	return outcome
}

func (p *Processor) processGalleryVote(ctx context.Context, image catalog.Image, vote int, outcome *Outcome) {
	thresholdReached, err := p.galleries.RecordVote(ctx, image.GalleryID, image.Gallery, vote)
	if err != nil {
		p.logger.Error().Err(err).Str("gallery_id", image.GalleryID).Msg("failed to record gallery vote")
		outcome.Errors = append(outcome.Errors, fmt.Sprintf("gallery vote: %v", err))
		return
	}
	outcome.GalleryThresholdReached = thresholdReached

	weight, err := p.galleries.UpdateWeight(ctx, image.GalleryID, vote)
	if err != nil {
		outcome.Errors = append(outcome.Errors, fmt.Sprintf("weight update: %v", err))
	}
	outcome.NewWeight = weight

	p.refreshImageCountIfStale(ctx, image.GalleryID, outcome)

	if thresholdReached {
		p.pushGalleryRating(ctx, image.GalleryID, outcome)
	}

	if vote < 0 {
		p.checkExclusionThreshold(ctx, image.GalleryID, outcome)
	}
}

// refreshImageCountIfStale opportunistically re-fetches the catalog-side
// image count while a vote is already touching the gallery.
func (p *Processor) refreshImageCountIfStale(ctx context.Context, galleryID string, outcome *Outcome) {
	stale, err := p.galleries.ShouldRefreshImageCount(ctx, galleryID, p.tuning.ImageCountRefreshDays)
	if err != nil || !stale {
		return
	}

	count, err := p.source.GalleryImageCount(ctx, galleryID)
	if err != nil {
		p.logger.Debug().Err(err).Str("gallery_id", galleryID).Msg("image count refresh failed")
		outcome.Errors = append(outcome.Errors, fmt.Sprintf("image count refresh: %v", err))
		return
	}
	if err := p.galleries.UpdateImageCount(ctx, galleryID, count); err != nil {
		outcome.Errors = append(outcome.Errors, fmt.Sprintf("image count store: %v", err))
	}
}

// pushGalleryRating derives the automatic rating from the vote history and
// pushes it upstream. rating_set flips only on a successful push.
func (p *Processor) pushGalleryRating(ctx context.Context, galleryID string, outcome *Outcome) {
	pref, err := p.galleries.Preference(ctx, galleryID)
	if err != nil || pref == nil {
		outcome.Errors = append(outcome.Errors, fmt.Sprintf("gallery rating read: %v", err))
		return
	}

	rating := AutoRating(pref.PositiveVotes, pref.NegativeVotes)
	outcome.GalleryRating = rating

	if err := p.source.SetGalleryRating(ctx, galleryID, rating); err != nil {
		telemetry.CatalogWriteFailuresTotal.WithLabelValues("gallery_rating").Inc()
		p.logger.Warn().Err(err).Str("gallery_id", galleryID).Msg("failed to push gallery rating")
		outcome.Errors = append(outcome.Errors, fmt.Sprintf("gallery rating push: %v", err))
		return
	}

	if err := p.galleries.MarkRatingSet(ctx, galleryID); err != nil {
		outcome.Errors = append(outcome.Errors, fmt.Sprintf("mark rating set: %v", err))
		return
	}

	telemetry.GalleryRatingsSetTotal.Inc()
	outcome.GalleryRatingSet = true
	p.logger.Info().Str("gallery_id", galleryID).Int("rating", rating).Msg("automatic gallery rating set")
}

// checkExclusionThreshold proposes exclusion when the negative ratio trips
// the threshold. The proposal fires once per gallery; the one-shot flag is
// independent of rating_set.
func (p *Processor) checkExclusionThreshold(ctx context.Context, galleryID string, outcome *Outcome) {
	stats, err := p.galleries.Statistics(ctx, galleryID)
	if err != nil || stats == nil {
		return
	}
	outcome.Statistics = stats

	if !ExclusionThresholdReached(stats.TotalImages, stats.NegativeVotes, p.tuning) {
		return
	}

	shown, err := p.galleries.ThresholdNotificationShown(ctx, galleryID)
	if err != nil || shown {
		return
	}

	if err := p.galleries.MarkThresholdNotificationShown(ctx, galleryID); err != nil {
		outcome.Errors = append(outcome.Errors, fmt.Sprintf("mark notification: %v", err))
		return
	}

	outcome.ExclusionProposed = true
	p.logger.Info().
		Str("gallery_id", galleryID).
		Int("negative_votes", stats.NegativeVotes).
		Int("total_images", stats.TotalImages).
		Float64("negative_pct", stats.NegativePercentage).
		Msg("exclusion threshold reached")
}

// ExcludeGallery confirms an exclusion proposal: soft-deletes the gallery
// locally and tags it on the catalog side.
func (p *Processor) ExcludeGallery(ctx context.Context, galleryID string) error {
	if err := p.galleries.Exclude(ctx, galleryID); err != nil {
		return err
	}

	if err := p.source.TagGalleryExcluded(ctx, galleryID); err != nil {
		telemetry.CatalogWriteFailuresTotal.WithLabelValues("gallery_exclude").Inc()
		p.logger.Warn().Err(err).Str("gallery_id", galleryID).Msg("failed to tag gallery excluded upstream")
	}

	for _, hook := range p.invalidate {
		hook()
	}

	telemetry.GalleryExclusionsTotal.Inc()
	return nil
}

// AutoRating derives the 1-5 gallery rating from cumulative vote counts.
// No votes at all means a neutral 3.
func AutoRating(positiveVotes, negativeVotes int) int {
	total := positiveVotes + negativeVotes
	if total == 0 {
		return 3
	}
	ratio := float64(positiveVotes) / float64(total)
	rating := int(ratio*4) + 1
	if rating < 1 {
		rating = 1
	}
	if rating > 5 {
		rating = 5
	}
	return rating
}
