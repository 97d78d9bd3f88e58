/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn_gallery/internal/cache"
)

// CachedSource wraps a Source with read-through caching for the expensive
// catalog calls. Writes pass straight through and invalidate the affected
// entries.
type CachedSource struct {
	Source

	cache  *cache.Cache
	logger zerolog.Logger
}

// NewCachedSource wraps source with the shared cache.
func NewCachedSource(source Source, c *cache.Cache, logger zerolog.Logger) *CachedSource {
	return &CachedSource{
		Source: source,
		cache:  c,
		logger: logger.With().Str("component", "catalog_cache").Logger(),
	}
}

// ListGalleries serves the gallery list from cache when fresh. The full
// catalog enumeration is the slowest upstream call and changes rarely.
func (s *CachedSource) ListGalleries(ctx context.Context) ([]Gallery, error) {
	if cached, ok := s.cache.GetGalleryList(ctx); ok {
		return fromCachedGalleries(cached), nil
	}

	galleries, err := s.Source.ListGalleries(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetGalleryList(ctx, toCachedGalleries(galleries)); err != nil {
		s.logger.Debug().Err(err).Msg("failed to cache gallery list")
	}
	return galleries, nil
}

// GalleryImageCount serves the per-gallery count from cache when fresh.
func (s *CachedSource) GalleryImageCount(ctx context.Context, galleryID string) (int, error) {
	if count, ok := s.cache.GetImageCount(ctx, galleryID); ok {
		return count, nil
	}

	count, err := s.Source.GalleryImageCount(ctx, galleryID)
	if err != nil {
		return 0, err
	}

	if err := s.cache.SetImageCount(ctx, galleryID, count); err != nil {
		s.logger.Debug().Err(err).Str("gallery_id", galleryID).Msg("failed to cache image count")
	}
	return count, nil
}

// TagGalleryExcluded passes through and drops the stale gallery list.
func (s *CachedSource) TagGalleryExcluded(ctx context.Context, galleryID string) error {
	if err := s.Source.TagGalleryExcluded(ctx, galleryID); err != nil {
		return err
	}
	return s.cache.InvalidateGallery(ctx, galleryID)
}

func toCachedGalleries(galleries []Gallery) []cache.CachedGallery {
	out := make([]cache.CachedGallery, len(galleries))
	for i, g := range galleries {
		out[i] = cache.CachedGallery{ID: g.ID, Title: g.Title, ImageCount: g.ImageCount}
	}
	return out
}

func fromCachedGalleries(cached []cache.CachedGallery) []Gallery {
	out := make([]Gallery, len(cached))
	for i, g := range cached {
		out[i] = Gallery{ID: g.ID, Title: g.Title, ImageCount: g.ImageCount}
	}
	return out
}
