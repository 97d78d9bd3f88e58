/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry exposes Prometheus metrics for the selection and voting
// pipelines.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequestsTotal counts HTTP requests by method, route, and status.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muninn_api_requests_total",
		Help: "Total HTTP API requests.",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration tracks HTTP request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "muninn_api_request_duration_seconds",
		Help:    "HTTP API request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections gauges in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "muninn_api_active_connections",
		Help: "In-flight HTTP API requests.",
	})

	// SelectionsTotal counts image selections by the category the band draw
	// requested and the category that actually served the image.
	SelectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muninn_selections_total",
		Help: "Image selections by requested and served rating category.",
	}, []string{"requested", "served"})

	// SelectionFallbacksTotal counts selections where the drawn category was
	// empty and a fallback category served instead.
	SelectionFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "muninn_selection_fallbacks_total",
		Help: "Image selections served by a fallback rating category.",
	})

	// SelectionFailuresTotal counts draws that produced no image at all.
	SelectionFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "muninn_selection_failures_total",
		Help: "Selection attempts that yielded no eligible image.",
	})

	// VotesTotal counts processed votes by direction.
	VotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muninn_votes_total",
		Help: "Processed votes by direction.",
	}, []string{"direction"})

	// CatalogWriteFailuresTotal counts failed rating pushes to the catalog.
	CatalogWriteFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muninn_catalog_write_failures_total",
		Help: "Failed catalog rating writes by operation.",
	}, []string{"operation"})

	// GalleryRatingsSetTotal counts automatic gallery ratings pushed after
	// the vote threshold.
	GalleryRatingsSetTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "muninn_gallery_ratings_set_total",
		Help: "Automatic gallery ratings pushed to the catalog.",
	})

	// GalleryExclusionsTotal counts galleries excluded from selection.
	GalleryExclusionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "muninn_gallery_exclusions_total",
		Help: "Galleries excluded from selection.",
	})
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordVote increments the vote counter for a direction.
func RecordVote(vote int) {
	if vote > 0 {
		VotesTotal.WithLabelValues("positive").Inc()
	} else {
		VotesTotal.WithLabelValues("negative").Inc()
	}
}

// RecordSelection tracks one image draw outcome.
func RecordSelection(requested, served string, fallback bool) {
	SelectionsTotal.WithLabelValues(requested, served).Inc()
	if fallback {
		SelectionFallbacksTotal.Inc()
	}
}
