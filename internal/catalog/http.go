/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// HTTPSource talks to a catalog gateway over plain JSON/REST. The gateway
// owns the translation to whatever the actual catalog speaks.
type HTTPSource struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  zerolog.Logger
}

// NewHTTPSource creates a REST catalog source.
func NewHTTPSource(baseURL, apiKey string, logger zerolog.Logger) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger.With().Str("component", "catalog_http").Logger(),
	}
}

func (s *HTTPSource) do(ctx context.Context, method, path string, body, dest any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("ApiKey", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("catalog %s %s: status %d", method, path, resp.StatusCode)
	}
	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

type wireGallery struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	ImageCount int    `json:"image_count"`
}

type wirePerformer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type wireImage struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Rating100  *int            `json:"rating100"`
	GalleryID  string          `json:"gallery_id"`
	Gallery    string          `json:"gallery"`
	Performers []wirePerformer `json:"performers"`
	URL        string          `json:"url"`
}

// ListGalleries enumerates the catalog's galleries.
func (s *HTTPSource) ListGalleries(ctx context.Context) ([]Gallery, error) {
	var wire []wireGallery
	if err := s.do(ctx, http.MethodGet, "/galleries", nil, &wire); err != nil {
		return nil, err
	}

	galleries := make([]Gallery, len(wire))
	for i, g := range wire {
		galleries[i] = Gallery{ID: g.ID, Title: g.Title, ImageCount: g.ImageCount}
	}
	return galleries, nil
}

// ImagesByRating fetches random images in a rating category.
func (s *HTTPSource) ImagesByRating(ctx context.Context, galleryID string, category RatingCategory, excludeIDs []string, limit int) ([]Image, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if category != CategoryAny {
		query.Set("category", string(category))
	}
	if len(excludeIDs) > 0 {
		query.Set("exclude", strings.Join(excludeIDs, ","))
	}

	path := fmt.Sprintf("/galleries/%s/images?%s", url.PathEscape(galleryID), query.Encode())
	var wire []wireImage
	if err := s.do(ctx, http.MethodGet, path, nil, &wire); err != nil {
		return nil, err
	}

	images := make([]Image, len(wire))
	for i, img := range wire {
		performers := make([]Performer, len(img.Performers))
		for j, p := range img.Performers {
			performers[j] = Performer{ID: p.ID, Name: p.Name}
		}
		images[i] = Image{
			ID:         img.ID,
			Title:      img.Title,
			Rating100:  img.Rating100,
			GalleryID:  img.GalleryID,
			Gallery:    img.Gallery,
			Performers: performers,
			URL:        img.URL,
		}
	}
	return images, nil
}

// SetImageRating pushes a 1-5 image rating. The wire carries the 0-100
// scale the catalog stores.
func (s *HTTPSource) SetImageRating(ctx context.Context, imageID string, rating int) error {
	path := fmt.Sprintf("/images/%s/rating", url.PathEscape(imageID))
	return s.do(ctx, http.MethodPost, path, map[string]int{"rating100": Rating100(rating)}, nil)
}

// SetGalleryRating pushes a 1-5 gallery rating.
func (s *HTTPSource) SetGalleryRating(ctx context.Context, galleryID string, rating int) error {
	path := fmt.Sprintf("/galleries/%s/rating", url.PathEscape(galleryID))
	return s.do(ctx, http.MethodPost, path, map[string]int{"rating100": Rating100(rating)}, nil)
}

// GalleryImageCount fetches the authoritative image count.
func (s *HTTPSource) GalleryImageCount(ctx context.Context, galleryID string) (int, error) {
	path := fmt.Sprintf("/galleries/%s/count", url.PathEscape(galleryID))
	var resp struct {
		Count int `json:"count"`
	}
	if err := s.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// TagGalleryExcluded marks the gallery excluded on the catalog side.
func (s *HTTPSource) TagGalleryExcluded(ctx context.Context, galleryID string) error {
	path := fmt.Sprintf("/galleries/%s/exclude", url.PathEscape(galleryID))
	return s.do(ctx, http.MethodPost, path, nil, nil)
}
