/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/friendsincode/muninn_gallery/internal/catalog"
	"github.com/friendsincode/muninn_gallery/internal/telemetry"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// nextImageResponse is the read-path payload: one selected image plus the
// selection metadata consumers use to label it.
type nextImageResponse struct {
	Image     imagePayload `json:"image"`
	GalleryID string       `json:"gallery_id"`
	Gallery   string       `json:"gallery"`
	Requested string       `json:"requested_category"`
	Served    string       `json:"served_category"`
	Fallback  bool         `json:"fallback"`
}

type imagePayload struct {
	ID         string             `json:"id"`
	Title      string             `json:"title"`
	Rating100  *int               `json:"rating100,omitempty"`
	URL        string             `json:"url,omitempty"`
	Performers []performerPayload `json:"performers,omitempty"`
}

type performerPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// handleNextImage draws a gallery, then an image from it, excluding images
// delivered within the recent-exclusion window, and logs the delivery.
func (s *Server) handleNextImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	gallery, err := s.gallerySelector.Select(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("gallery selection failed")
		writeError(w, http.StatusBadGateway, "gallery_selection_failed")
		return
	}
	if gallery == nil {
		telemetry.SelectionFailuresTotal.Inc()
		writeError(w, http.StatusNotFound, "no_gallery_available")
		return
	}

	recent, err := s.sentImages.RecentImageIDs(ctx, s.cfg.RecentExclusionDays)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load recent deliveries, selecting without exclusions")
	}

	outcome, err := s.imageSelector.Select(ctx, gallery.ID, recent)
	if err != nil {
		s.logger.Error().Err(err).Str("gallery_id", gallery.ID).Msg("image selection failed")
		writeError(w, http.StatusBadGateway, "image_selection_failed")
		return
	}
	if outcome.Image == nil {
		telemetry.SelectionFailuresTotal.Inc()
		writeError(w, http.StatusNotFound, "no_image_available")
		return
	}
	telemetry.RecordSelection(string(outcome.Requested), string(outcome.Served), outcome.Fallback)

	userID := userIDParam(r)
	if err := s.sentImages.Record(ctx, outcome.Image.ID, userID, outcome.Image.Title, "", ""); err != nil {
		s.logger.Warn().Err(err).Str("image_id", outcome.Image.ID).Msg("failed to log delivery")
	}

	performers := make([]performerPayload, len(outcome.Image.Performers))
	for i, p := range outcome.Image.Performers {
		performers[i] = performerPayload{ID: p.ID, Name: p.Name}
	}
	writeJSON(w, http.StatusOK, nextImageResponse{
		Image: imagePayload{
			ID:         outcome.Image.ID,
			Title:      outcome.Image.Title,
			Rating100:  outcome.Image.Rating100,
			URL:        outcome.Image.URL,
			Performers: performers,
		},
		GalleryID: gallery.ID,
		Gallery:   gallery.Title,
		Requested: string(outcome.Requested),
		Served:    string(outcome.Served),
		Fallback:  outcome.Fallback,
	})
}

func userIDParam(r *http.Request) *int64 {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

// voteRequest carries the image the client voted on. The client already has
// the full image payload from the read path, so it round-trips it here and
// no catalog lookup is needed.
type voteRequest struct {
	Vote  int `json:"vote"`
	Image struct {
		ID         string             `json:"id"`
		Title      string             `json:"title"`
		GalleryID  string             `json:"gallery_id"`
		Gallery    string             `json:"gallery"`
		Performers []performerPayload `json:"performers"`
	} `json:"image"`
}

type voteResponse struct {
	ImageID           string   `json:"image_id"`
	Vote              int      `json:"vote"`
	NewWeight         float64  `json:"new_weight,omitempty"`
	GalleryRatingSet  bool     `json:"gallery_rating_set"`
	GalleryRating     int      `json:"gallery_rating,omitempty"`
	ExclusionProposed bool     `json:"exclusion_proposed"`
	Errors            []string `json:"errors,omitempty"`
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Image.ID == "" {
		writeError(w, http.StatusBadRequest, "missing_image_id")
		return
	}
	if req.Vote != 1 && req.Vote != -1 {
		writeError(w, http.StatusBadRequest, "vote_must_be_plus_or_minus_one")
		return
	}

	performers := make([]catalog.Performer, len(req.Image.Performers))
	for i, p := range req.Image.Performers {
		performers[i] = catalog.Performer{ID: p.ID, Name: p.Name}
	}
	image := catalog.Image{
		ID:         req.Image.ID,
		Title:      req.Image.Title,
		GalleryID:  req.Image.GalleryID,
		Gallery:    req.Image.Gallery,
		Performers: performers,
	}

	outcome := s.processor.Process(r.Context(), image, req.Vote)

	writeJSON(w, http.StatusOK, voteResponse{
		ImageID:           outcome.ImageID,
		Vote:              outcome.Vote,
		NewWeight:         outcome.NewWeight,
		GalleryRatingSet:  outcome.GalleryRatingSet,
		GalleryRating:     outcome.GalleryRating,
		ExclusionProposed: outcome.ExclusionProposed,
		Errors:            outcome.Errors,
	})
}

func (s *Server) handleListGalleries(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.galleries.Preferences(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list gallery preferences")
		writeError(w, http.StatusInternalServerError, "store_error")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (s *Server) handleGalleryStatistics(w http.ResponseWriter, r *http.Request) {
	galleryID := chi.URLParam(r, "galleryID")

	stats, err := s.galleries.Statistics(r.Context(), galleryID)
	if err != nil {
		s.logger.Error().Err(err).Str("gallery_id", galleryID).Msg("failed to load statistics")
		writeError(w, http.StatusInternalServerError, "store_error")
		return
	}
	if stats == nil {
		writeError(w, http.StatusNotFound, "gallery_not_found")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleExcludeGallery(w http.ResponseWriter, r *http.Request) {
	galleryID := chi.URLParam(r, "galleryID")

	if err := s.processor.ExcludeGallery(r.Context(), galleryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "gallery_not_found")
			return
		}
		s.logger.Error().Err(err).Str("gallery_id", galleryID).Msg("exclusion failed")
		writeError(w, http.StatusInternalServerError, "exclusion_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"gallery_id": galleryID, "excluded": true})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.summarizer.Summarize(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to build summary")
		writeError(w, http.StatusInternalServerError, "store_error")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	lists, err := s.filters.Lists(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to build filter lists")
		writeError(w, http.StatusInternalServerError, "store_error")
		return
	}
	writeJSON(w, http.StatusOK, lists)
}
