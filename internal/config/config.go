/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int

	DBBackend DatabaseBackend
	DBDSN     string

	// Catalog endpoint (the upstream media catalog this service rates against).
	CatalogURL    string
	CatalogAPIKey string

	// Redis cache configuration. Caching degrades gracefully when unset.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// RedisDisableOnError keeps the circuit breaker armed: the cache turns
	// itself off after a Redis error instead of retrying every call.
	RedisDisableOnError bool

	// Recently-sent exclusion window, in days.
	RecentExclusionDays int

	// Optional YAML file overriding selection tuning constants.
	TuningFile string

	Tuning Tuning
}

// Tuning holds the product-tuning constants of the selection and learning
// algorithms. They are deliberately configuration, not literals: the
// reinforcement factors and category split were chosen by hand, not derived
// from data.
type Tuning struct {
	// Weight reinforcement.
	WeightPositiveFactor float64 `yaml:"weight_positive_factor"`
	WeightNegativeFactor float64 `yaml:"weight_negative_factor"`
	WeightMin            float64 `yaml:"weight_min"`
	WeightMax            float64 `yaml:"weight_max"`
	WeightDefault        float64 `yaml:"weight_default"`

	// Gallery auto-rating threshold (total votes).
	RatingVoteThreshold int `yaml:"rating_vote_threshold"`

	// Exclusion proposal threshold.
	ExclusionSmallGalleryMax int     `yaml:"exclusion_small_gallery_max"`
	ExclusionPercentage      float64 `yaml:"exclusion_percentage"`

	// Category draw split over [0,100).
	CategoryUnratedBand  int `yaml:"category_unrated_band"`
	CategoryPositiveBand int `yaml:"category_positive_band"`

	// Rating bands on the catalog's 0-100 scale.
	PositiveRatingFloor int `yaml:"positive_rating_floor"`
	NegativeRatingCeil  int `yaml:"negative_rating_ceil"`

	// Gallery freshness / coverage shaping.
	CoveragePenaltyFactor float64 `yaml:"coverage_penalty_factor"`
	FreshnessBonusPerDay  float64 `yaml:"freshness_bonus_per_day"`
	FreshnessBonusMax     float64 `yaml:"freshness_bonus_max"`
	FreshnessSentinelDays float64 `yaml:"freshness_sentinel_days"`

	// Cache TTLs.
	FilterListTTL  time.Duration `yaml:"filter_list_ttl"`
	WeightCacheTTL time.Duration `yaml:"weight_cache_ttl"`
	GalleryListTTL time.Duration `yaml:"gallery_list_ttl"`

	// Image-count staleness window, in days.
	ImageCountRefreshDays int `yaml:"image_count_refresh_days"`

	// Catalog query page size for item draws.
	ItemQueryLimit int `yaml:"item_query_limit"`
}

// DefaultTuning returns the stock tuning constants.
func DefaultTuning() Tuning {
	return Tuning{
		WeightPositiveFactor:     1.2,
		WeightNegativeFactor:     0.8,
		WeightMin:                0.1,
		WeightMax:                10.0,
		WeightDefault:            1.0,
		RatingVoteThreshold:      5,
		ExclusionSmallGalleryMax: 2,
		ExclusionPercentage:      33.3,
		CategoryUnratedBand:      70,
		CategoryPositiveBand:     90,
		PositiveRatingFloor:      80,
		NegativeRatingCeil:       20,
		CoveragePenaltyFactor:    0.5,
		FreshnessBonusPerDay:     0.5,
		FreshnessBonusMax:        2.0,
		FreshnessSentinelDays:    5,
		FilterListTTL:            time.Minute,
		WeightCacheTTL:           time.Minute,
		GalleryListTTL:           time.Hour,
		ImageCountRefreshDays:    7,
		ItemQueryLimit:           20,
	}
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnvAny([]string{"MUNINN_ENV"}, "development"),
		HTTPBind:    getEnvAny([]string{"MUNINN_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:    getEnvIntAny([]string{"MUNINN_HTTP_PORT"}, 8080),

		DBBackend: DatabaseBackend(getEnvAny([]string{"MUNINN_DB_BACKEND"}, string(DatabaseSQLite))),
		DBDSN:     getEnvAny([]string{"MUNINN_DB_DSN"}, ""),

		CatalogURL:    getEnvAny([]string{"MUNINN_CATALOG_URL"}, ""),
		CatalogAPIKey: getEnvAny([]string{"MUNINN_CATALOG_API_KEY"}, ""),

		RedisAddr:     getEnvAny([]string{"MUNINN_REDIS_ADDR"}, ""),
		RedisPassword: getEnvAny([]string{"MUNINN_REDIS_PASSWORD"}, ""),
		RedisDB:       getEnvIntAny([]string{"MUNINN_REDIS_DB"}, 0),

		RedisDisableOnError: getEnvBoolAny([]string{"MUNINN_REDIS_DISABLE_ON_ERROR"}, true),

		RecentExclusionDays: getEnvIntAny([]string{"MUNINN_RECENT_EXCLUSION_DAYS"}, 7),

		TuningFile: getEnvAny([]string{"MUNINN_TUNING_FILE"}, ""),

		Tuning: DefaultTuning(),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("MUNINN_DB_DSN must be provided")
	}

	if cfg.TuningFile != "" {
		if err := loadTuningFile(cfg.TuningFile, &cfg.Tuning); err != nil {
			return nil, fmt.Errorf("load tuning file: %w", err)
		}
	}

	if err := cfg.Tuning.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadTuningFile(path string, tuning *Tuning) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, tuning)
}

func (t Tuning) validate() error {
	if t.WeightMin <= 0 || t.WeightMax <= t.WeightMin {
		return fmt.Errorf("invalid weight bounds [%v, %v]", t.WeightMin, t.WeightMax)
	}
	if t.WeightPositiveFactor <= 1 {
		return fmt.Errorf("weight_positive_factor must be > 1, got %v", t.WeightPositiveFactor)
	}
	if t.WeightNegativeFactor <= 0 || t.WeightNegativeFactor >= 1 {
		return fmt.Errorf("weight_negative_factor must be in (0, 1), got %v", t.WeightNegativeFactor)
	}
	if t.CategoryUnratedBand <= 0 || t.CategoryPositiveBand <= t.CategoryUnratedBand || t.CategoryPositiveBand > 100 {
		return fmt.Errorf("invalid category bands %d/%d", t.CategoryUnratedBand, t.CategoryPositiveBand)
	}
	if t.RatingVoteThreshold <= 0 {
		return fmt.Errorf("rating_vote_threshold must be positive, got %d", t.RatingVoteThreshold)
	}
	return nil
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}
