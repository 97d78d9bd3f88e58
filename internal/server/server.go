/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server wires the HTTP API: selection on the read path, vote
// processing on the write path.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/muninn_gallery/internal/cache"
	"github.com/friendsincode/muninn_gallery/internal/catalog"
	"github.com/friendsincode/muninn_gallery/internal/config"
	"github.com/friendsincode/muninn_gallery/internal/db"
	"github.com/friendsincode/muninn_gallery/internal/selection"
	"github.com/friendsincode/muninn_gallery/internal/store"
	"github.com/friendsincode/muninn_gallery/internal/telemetry"
	"github.com/friendsincode/muninn_gallery/internal/voting"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db    *gorm.DB
	cache *cache.Cache

	galleries  *store.GalleryStore
	performers *store.PerformerStore
	votes      *store.VoteStore
	sentImages *store.SentImageStore

	source          catalog.Source
	gallerySelector *selection.GallerySelector
	imageSelector   *selection.ImageSelector
	processor       *voting.Processor
	filters         *voting.FilterService
	summarizer      *voting.Summarizer
}

// New constructs the server and wires dependencies. The catalog source is
// injected; its wire protocol lives with the caller.
func New(cfg *config.Config, source catalog.Source, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.MetricsMiddleware)
	router.Use(middleware.Timeout(60 * time.Second))

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		source: source,
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	srv.configureRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:              addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'; base-uri 'self'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(database); err != nil {
		return err
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	// Redis cache for catalog reads; the service runs fine without it.
	cacheCfg := cache.DefaultConfig()
	if s.cfg.RedisAddr != "" {
		cacheCfg.RedisAddr = s.cfg.RedisAddr
	}
	cacheCfg.RedisPassword = s.cfg.RedisPassword
	cacheCfg.RedisDB = s.cfg.RedisDB
	cacheCfg.GalleryListTTL = s.cfg.Tuning.GalleryListTTL
	cacheCfg.WeightsTTL = s.cfg.Tuning.WeightCacheTTL
	cacheCfg.FilterListTTL = s.cfg.Tuning.FilterListTTL
	cacheCfg.DisableOnError = s.cfg.RedisDisableOnError
	entityCache, err := cache.New(cacheCfg, s.logger)
	if err != nil {
		s.logger.Warn().Err(err).Msg("cache initialization failed, continuing without cache")
	} else {
		s.cache = entityCache
		s.DeferClose(func() error { return s.cache.Close() })
		s.source = catalog.NewCachedSource(s.source, s.cache, s.logger)
	}

	tuning := s.cfg.Tuning
	s.galleries = store.NewGalleryStore(database, tuning, s.logger)
	s.performers = store.NewPerformerStore(database, s.logger)
	s.votes = store.NewVoteStore(database, s.logger)
	s.sentImages = store.NewSentImageStore(database, s.logger)

	s.gallerySelector = selection.NewGallerySelector(s.galleries, s.source, tuning, s.logger)
	s.imageSelector = selection.NewImageSelector(s.source, tuning, s.logger)
	s.filters = voting.NewFilterService(s.galleries, s.performers, tuning, s.logger)
	if s.cache != nil {
		s.gallerySelector.WithCache(s.cache)
		s.filters.WithCache(s.cache)
	}
	s.summarizer = voting.NewSummarizer(s.galleries, s.performers, s.votes)

	s.processor = voting.NewProcessor(s.galleries, s.performers, s.votes, s.source, s.filters, tuning, s.logger)
	s.processor.OnVote(s.gallerySelector.InvalidateWeights)
	s.processor.OnVote(s.filters.Invalidate)
	if s.cache != nil {
		s.processor.OnVote(s.invalidateRedisCaches)
	}

	return nil
}

// invalidateRedisCaches drops the Redis-side weight and filter entries after
// a vote, bounded so a slow Redis never stalls the vote path.
func (s *Server) invalidateRedisCaches() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.cache.InvalidateActiveWeights(ctx); err != nil {
		s.logger.Debug().Err(err).Msg("weight cache invalidation failed")
	}
	if err := s.cache.InvalidateFilterLists(ctx); err != nil {
		s.logger.Debug().Err(err).Msg("filter cache invalidation failed")
	}
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}
