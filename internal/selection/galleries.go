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

	"github.com/friendsincode/muninn_gallery/internal/cache"
	"github.com/friendsincode/muninn_gallery/internal/catalog"
	"github.com/friendsincode/muninn_gallery/internal/config"
	"github.com/friendsincode/muninn_gallery/internal/store"
)

// selectionState is the snapshot of store-side inputs one draw needs.
type selectionState struct {
	weights  map[string]float64
	stats    map[string]store.GalleryStats
	excluded map[string]bool
}

// GallerySelector draws the next gallery: catalog list x stored weights,
// shaped by coverage and freshness.
type GallerySelector struct {
	galleries *store.GalleryStore
	source    catalog.Source
	tuning    config.Tuning
	logger    zerolog.Logger

	// Short-lived snapshot of weights and stats, invalidated after votes.
	state *cache.Memo[selectionState]

	// Optional Redis layer under the in-process snapshot, so multiple
	// processes share one weight map between votes.
	redis *cache.Cache

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGallerySelector creates a gallery selector.
func NewGallerySelector(galleries *store.GalleryStore, source catalog.Source, tuning config.Tuning, logger zerolog.Logger) *GallerySelector {
	return &GallerySelector{
		galleries: galleries,
		source:    source,
		tuning:    tuning,
		logger:    logger.With().Str("component", "gallery_selector").Logger(),
		state:     cache.NewMemo[selectionState](tuning.WeightCacheTTL),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithRand replaces the selector's random source. Tests use this for
// reproducible draws.
func (s *GallerySelector) WithRand(rng *rand.Rand) *GallerySelector {
	s.rng = rng
	return s
}

// WithCache adds a Redis cache layer for the active weight map.
func (s *GallerySelector) WithCache(c *cache.Cache) *GallerySelector {
	s.redis = c
	return s
}

// InvalidateWeights drops the cached weight snapshot so the next draw
// re-reads the store. Fired after every processed vote.
func (s *GallerySelector) InvalidateWeights() {
	s.state.Invalidate()
}

// Select draws one gallery. Excluded galleries are never drawn, whatever
// their stored weight. Returns nil when the catalog is empty or every
// candidate carries non-positive effective weight.
func (s *GallerySelector) Select(ctx context.Context) (*catalog.Gallery, error) {
	list, err := s.source.ListGalleries(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		s.logger.Warn().Msg("catalog returned no galleries")
		return nil, nil
	}

	state, err := s.state.Get(func() (selectionState, error) {
		return s.loadState(ctx)
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(list))
	byID := make(map[string]catalog.Gallery, len(list))
	for _, g := range list {
		if state.excluded[g.ID] {
			continue
		}
		byID[g.ID] = g

		weight, ok := state.weights[g.ID]
		if !ok {
			// Never-voted galleries enter the draw at the default weight.
			weight = s.tuning.WeightDefault
		}
		stats := state.stats[g.ID]
		if stats.TotalImages == 0 {
			stats.TotalImages = g.ImageCount
		}
		candidates = append(candidates, Candidate{GalleryID: g.ID, Weight: weight, Stats: stats})
	}

	s.mu.Lock()
	id, ok := PickCandidate(s.rng, candidates, s.tuning, time.Now())
	s.mu.Unlock()
	if !ok {
		s.logger.Warn().Int("candidates", len(candidates)).Msg("no selectable gallery")
		return nil, nil
	}

	gallery := byID[id]

	// The preference row must exist before stamping: the gorm update matches
	// zero rows for a gallery nobody has voted on yet, and the lost stamp
	// would keep the never-selected freshness bonus alive forever.
	if _, err := s.galleries.EnsureGallery(ctx, id, gallery.Title); err != nil {
		s.logger.Warn().Err(err).Str("gallery_id", id).Msg("failed to ensure preference row")
	}
	if err := s.galleries.UpdateLastSelected(ctx, id); err != nil {
		s.logger.Warn().Err(err).Str("gallery_id", id).Msg("failed to stamp last selection")
	}
	s.logger.Debug().Str("gallery_id", id).Str("title", gallery.Title).Msg("gallery selected")
	return &gallery, nil
}

func (s *GallerySelector) loadState(ctx context.Context) (selectionState, error) {
	weights, err := s.loadWeights(ctx)
	if err != nil {
		return selectionState{}, err
	}
	stats, err := s.galleries.StatsByGallery(ctx)
	if err != nil {
		return selectionState{}, err
	}
	excludedIDs, err := s.galleries.ExcludedGalleries(ctx)
	if err != nil {
		return selectionState{}, err
	}

	excluded := make(map[string]bool, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = true
	}
	return selectionState{weights: weights, stats: stats, excluded: excluded}, nil
}

// loadWeights reads the active weight map through the Redis layer when one
// is wired, falling back to the store on a miss.
func (s *GallerySelector) loadWeights(ctx context.Context) (map[string]float64, error) {
	if s.redis != nil && s.redis.IsAvailable() {
		if weights, ok := s.redis.GetActiveWeights(ctx); ok {
			return weights, nil
		}
	}

	weights, err := s.galleries.ActiveWeights(ctx)
	if err != nil {
		return nil, err
	}
	if s.redis != nil && s.redis.IsAvailable() {
		if err := s.redis.SetActiveWeights(ctx, weights); err != nil {
			s.logger.Debug().Err(err).Msg("weight cache write failed")
		}
	}
	return weights, nil
}
