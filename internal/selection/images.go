/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package selection

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn_gallery/internal/catalog"
	"github.com/friendsincode/muninn_gallery/internal/config"
)

// ImageOutcome reports one image draw: which category the band draw asked
// for, which category actually served the image, and whether a fallback
// happened.
type ImageOutcome struct {
	Image     *catalog.Image
	Requested catalog.RatingCategory
	Served    catalog.RatingCategory
	Fallback  bool
}

// ImageSelector draws one image from a gallery using the rating-category
// band split with a fixed fallback chain.
type ImageSelector struct {
	source catalog.Source
	tuning config.Tuning
	logger zerolog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewImageSelector creates an image selector.
func NewImageSelector(source catalog.Source, tuning config.Tuning, logger zerolog.Logger) *ImageSelector {
	return &ImageSelector{
		source: source,
		tuning: tuning,
		logger: logger.With().Str("component", "image_selector").Logger(),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithRand replaces the selector's random source for reproducible draws.
func (s *ImageSelector) WithRand(rng *rand.Rand) *ImageSelector {
	s.rng = rng
	return s
}

// drawCategory maps a uniform draw over [0,100) onto the rating bands.
// Most draws go to unrated images so new material keeps surfacing.
func (s *ImageSelector) drawCategory(roll int) catalog.RatingCategory {
	switch {
	case roll < s.tuning.CategoryUnratedBand:
		return catalog.CategoryUnrated
	case roll < s.tuning.CategoryPositiveBand:
		return catalog.CategoryPositive
	default:
		return catalog.CategoryNegative
	}
}

// fallbackChain returns the category order to try, starting with the drawn
// category and following the fixed priority unrated, positive, negative,
// without repeating the drawn one.
func fallbackChain(drawn catalog.RatingCategory) []catalog.RatingCategory {
	chain := []catalog.RatingCategory{drawn}
	for _, c := range []catalog.RatingCategory{catalog.CategoryUnrated, catalog.CategoryPositive, catalog.CategoryNegative} {
		if c != drawn {
			chain = append(chain, c)
		}
	}
	return chain
}

// Select draws one image from the gallery, excluding the given image ids.
// When the drawn category is empty it walks the fallback chain, and as a
// last resort draws unfiltered so mid-range ratings stay reachable. Returns
// a nil-image outcome only when the gallery has no eligible image at all.
func (s *ImageSelector) Select(ctx context.Context, galleryID string, excludeIDs []string) (ImageOutcome, error) {
	s.mu.Lock()
	roll := s.rng.Intn(100)
	s.mu.Unlock()
	requested := s.drawCategory(roll)

	outcome := ImageOutcome{Requested: requested}

	for i, category := range fallbackChain(requested) {
		images, err := s.source.ImagesByRating(ctx, galleryID, category, excludeIDs, s.tuning.ItemQueryLimit)
		if err != nil {
			return outcome, err
		}
		if len(images) == 0 {
			continue
		}

		s.mu.Lock()
		image := images[s.rng.Intn(len(images))]
		s.mu.Unlock()

		outcome.Image = &image
		outcome.Served = category
		outcome.Fallback = i > 0
		s.logOutcome(galleryID, outcome)
		return outcome, nil
	}

	// Every rating band came back empty. An unfiltered draw still reaches
	// images rated 21-79, which fit no band.
	images, err := s.source.ImagesByRating(ctx, galleryID, catalog.CategoryAny, excludeIDs, s.tuning.ItemQueryLimit)
	if err != nil {
		return outcome, err
	}
	if len(images) == 0 {
		s.logger.Debug().Str("gallery_id", galleryID).Msg("gallery has no eligible images")
		return outcome, nil
	}

	s.mu.Lock()
	image := images[s.rng.Intn(len(images))]
	s.mu.Unlock()

	outcome.Image = &image
	outcome.Served = catalog.CategoryAny
	outcome.Fallback = true
	s.logOutcome(galleryID, outcome)
	return outcome, nil
}

func (s *ImageSelector) logOutcome(galleryID string, outcome ImageOutcome) {
	s.logger.Debug().
		Str("gallery_id", galleryID).
		Str("image_id", outcome.Image.ID).
		Str("requested", string(outcome.Requested)).
		Str("served", string(outcome.Served)).
		Bool("fallback", outcome.Fallback).
		Msg("image selected")
}
