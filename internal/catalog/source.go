/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package catalog defines the interface to the upstream media catalog. The
// selection and voting layers only know this interface; the concrete wire
// client is injected at process startup.
package catalog

import (
	"context"
)

// RatingCategory partitions catalog items by their stored rating on the
// catalog's 0-100 scale.
type RatingCategory string

const (
	// CategoryUnrated matches items with no rating recorded. Null rating,
	// not zero.
	CategoryUnrated RatingCategory = "unrated"
	// CategoryPositive matches items rated 80 or above.
	CategoryPositive RatingCategory = "positive"
	// CategoryNegative matches items rated 20 or below.
	CategoryNegative RatingCategory = "negative"
	// CategoryAny matches every item regardless of rating. Used as the
	// final selection fallback so mid-range ratings stay reachable.
	CategoryAny RatingCategory = "any"
)

// Gallery is one catalog collection.
type Gallery struct {
	ID         string
	Title      string
	ImageCount int
}

// Performer is one catalog performer reference attached to an image.
type Performer struct {
	ID   string
	Name string
}

// Image is one catalog item.
type Image struct {
	ID    string
	Title string
	// Rating100 is the catalog rating on the 0-100 scale, nil when unrated.
	Rating100  *int
	GalleryID  string
	Gallery    string
	Performers []Performer
	URL        string
}

// Source is the read/write surface the engine needs from the catalog.
// Implementations own their transport, retries, and timeouts.
type Source interface {
	// ListGalleries enumerates all selectable galleries.
	ListGalleries(ctx context.Context) ([]Gallery, error)

	// ImagesByRating returns up to limit random images from the gallery
	// matching the rating category, excluding the given image ids.
	// CategoryAny disables the rating filter.
	ImagesByRating(ctx context.Context, galleryID string, category RatingCategory, excludeIDs []string, limit int) ([]Image, error)

	// SetImageRating pushes a 1-5 rating for an image.
	SetImageRating(ctx context.Context, imageID string, rating int) error

	// SetGalleryRating pushes a 1-5 rating for a gallery.
	SetGalleryRating(ctx context.Context, galleryID string, rating int) error

	// GalleryImageCount returns the authoritative image count of a gallery.
	GalleryImageCount(ctx context.Context, galleryID string) (int, error)

	// TagGalleryExcluded marks the gallery as excluded on the catalog side.
	TagGalleryExcluded(ctx context.Context, galleryID string) error
}

// RatingFromVote maps a binary vote to the catalog's 1-5 item rating.
func RatingFromVote(vote int) int {
	if vote > 0 {
		return 5
	}
	return 1
}

// Rating100 converts a 1-5 rating to the catalog's 0-100 scale.
func Rating100(rating int) int {
	return rating * 20
}
