/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/friendsincode/muninn_gallery/internal/catalog"
	"github.com/friendsincode/muninn_gallery/internal/store"
)

var (
	refreshStaleDays int
	refreshDryRun    bool
)

var refreshCountsCmd = &cobra.Command{
	Use:   "refresh-counts",
	Short: "Refresh stale gallery image counts from the catalog",
	Long: `Finds galleries whose cached image count has never been fetched or is
older than the staleness window, fetches the authoritative count from the
catalog, and stores it.

The counts feed the coverage penalty in selection and the exclusion
threshold, so a periodic run keeps both honest.

Examples:
  muninngallery refresh-counts
  muninngallery refresh-counts --stale-days 3 --dry-run`,
	RunE: runRefreshCounts,
}

func init() {
	rootCmd.AddCommand(refreshCountsCmd)

	refreshCountsCmd.Flags().IntVar(&refreshStaleDays, "stale-days", 0, "Staleness window in days (default: configured value)")
	refreshCountsCmd.Flags().BoolVar(&refreshDryRun, "dry-run", false, "List stale galleries without fetching")
}

func runRefreshCounts(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	staleDays := refreshStaleDays
	if staleDays <= 0 {
		staleDays = cfg.Tuning.ImageCountRefreshDays
	}

	galleries := store.NewGalleryStore(database, cfg.Tuning, logger)
	source := catalog.NewHTTPSource(cfg.CatalogURL, cfg.CatalogAPIKey, logger)
	ctx := context.Background()

	stale, err := galleries.GalleriesNeedingCountRefresh(ctx, staleDays)
	if err != nil {
		return fmt.Errorf("list stale galleries: %w", err)
	}
	logger.Info().Int("count", len(stale)).Int("stale_days", staleDays).Msg("stale gallery counts found")

	if refreshDryRun {
		for _, pref := range stale {
			fmt.Printf("%s  %q  images=%d\n", pref.GalleryID, pref.GalleryTitle, pref.TotalImages)
		}
		return nil
	}

	var refreshed, failed int
	for _, pref := range stale {
		count, err := source.GalleryImageCount(ctx, pref.GalleryID)
		if err != nil {
			logger.Warn().Err(err).Str("gallery_id", pref.GalleryID).Msg("count fetch failed")
			failed++
			continue
		}
		if err := galleries.UpdateImageCount(ctx, pref.GalleryID, count); err != nil {
			logger.Warn().Err(err).Str("gallery_id", pref.GalleryID).Msg("count store failed")
			failed++
			continue
		}
		refreshed++
	}

	logger.Info().Int("refreshed", refreshed).Int("failed", failed).Msg("image count refresh finished")
	if failed > 0 {
		return fmt.Errorf("%d of %d refreshes failed", failed, len(stale))
	}
	return nil
}
