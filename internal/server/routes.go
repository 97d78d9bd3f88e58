/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/muninn_gallery/internal/telemetry"
)

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	s.router.Handle("/metrics", telemetry.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/images/next", s.handleNextImage)
		r.Post("/votes", s.handleVote)

		r.Get("/galleries", s.handleListGalleries)
		r.Get("/galleries/{galleryID}/statistics", s.handleGalleryStatistics)
		r.Post("/galleries/{galleryID}/exclude", s.handleExcludeGallery)

		r.Get("/preferences/summary", s.handleSummary)
		r.Get("/preferences/filters", s.handleFilters)
	})
}
