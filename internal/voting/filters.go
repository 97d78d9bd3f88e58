/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package voting

import (
	"context"
	"math"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn_gallery/internal/cache"
	"github.com/friendsincode/muninn_gallery/internal/config"
	"github.com/friendsincode/muninn_gallery/internal/store"
)

// FilterLists holds the score-derived blacklists and whitelists used to
// steer selection away from disliked material.
type FilterLists struct {
	BlacklistedGalleries  []string
	WhitelistedGalleries  []string
	BlacklistedPerformers []string
	WhitelistedPerformers []string
}

// FilterService serves the filter lists behind a short TTL cache. Lists are
// rebuilt from the stores at most once per TTL and dropped after every vote.
type FilterService struct {
	galleries  *store.GalleryStore
	performers *store.PerformerStore
	logger     zerolog.Logger

	memo *cache.Memo[FilterLists]

	// Optional Redis layer under the in-process memo.
	redis *cache.Cache
}

// NewFilterService creates a filter service.
func NewFilterService(galleries *store.GalleryStore, performers *store.PerformerStore, tuning config.Tuning, logger zerolog.Logger) *FilterService {
	return &FilterService{
		galleries:  galleries,
		performers: performers,
		logger:     logger.With().Str("component", "filters").Logger(),
		memo:       cache.NewMemo[FilterLists](tuning.FilterListTTL),
	}
}

// WithCache adds a Redis cache layer for the filter lists.
func (f *FilterService) WithCache(c *cache.Cache) *FilterService {
	f.redis = c
	return f
}

// Lists returns the current filter lists, rebuilding them when expired.
func (f *FilterService) Lists(ctx context.Context) (FilterLists, error) {
	return f.memo.Get(func() (FilterLists, error) {
		return f.build(ctx)
	})
}

// Invalidate drops the cached lists so the next call rebuilds.
func (f *FilterService) Invalidate() {
	f.memo.Invalidate()
}

func (f *FilterService) build(ctx context.Context) (FilterLists, error) {
	var lists FilterLists
	var err error

	if lists.BlacklistedGalleries, err = f.loadList(ctx, cache.KeyBlacklistedGal, f.galleries.Blacklisted); err != nil {
		return lists, err
	}
	if lists.WhitelistedGalleries, err = f.loadList(ctx, cache.KeyWhitelistedGal, f.galleries.Whitelisted); err != nil {
		return lists, err
	}
	if lists.BlacklistedPerformers, err = f.loadList(ctx, cache.KeyBlacklistedPer, f.performers.Blacklisted); err != nil {
		return lists, err
	}
	if lists.WhitelistedPerformers, err = f.loadList(ctx, cache.KeyWhitelistedPer, f.performers.Whitelisted); err != nil {
		return lists, err
	}

	f.logger.Debug().
		Int("blacklisted_galleries", len(lists.BlacklistedGalleries)).
		Int("whitelisted_galleries", len(lists.WhitelistedGalleries)).
		Msg("filter lists rebuilt")
	return lists, nil
}

// loadList reads one filter list through the Redis layer when one is wired,
// falling back to the store on a miss.
func (f *FilterService) loadList(ctx context.Context, key string, fetch func(context.Context) ([]string, error)) ([]string, error) {
	if f.redis != nil && f.redis.IsAvailable() {
		if ids, ok := f.redis.GetFilterList(ctx, key); ok {
			return ids, nil
		}
	}

	ids, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if f.redis != nil && f.redis.IsAvailable() {
		if err := f.redis.SetFilterList(ctx, key, ids); err != nil {
			f.logger.Debug().Err(err).Str("key", key).Msg("filter cache write failed")
		}
	}
	return ids, nil
}

// ExclusionThresholdReached decides whether a gallery's negative-vote ratio
// warrants proposing exclusion. Tiny galleries trip on any negative vote;
// larger ones on the negative percentage of the authoritative image count.
// A gallery whose image count is unknown never trips.
func ExclusionThresholdReached(totalImages, negativeVotes int, tuning config.Tuning) bool {
	if totalImages <= 0 {
		return false
	}
	if totalImages <= tuning.ExclusionSmallGalleryMax {
		return negativeVotes >= 1
	}

	pct := float64(negativeVotes) / float64(totalImages) * 100.0
	// Round before comparing so 1/3 of a gallery reads as exactly 33.33.
	pct = math.Round(pct*100) / 100
	return pct >= tuning.ExclusionPercentage
}
