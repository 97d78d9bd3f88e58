/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/friendsincode/muninn_gallery/internal/store"
	"github.com/friendsincode/muninn_gallery/internal/voting"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print learned preference statistics",
	Long: `Prints overall vote counts and the best and worst rated galleries and
performers, computed from the stored votes and weights.

Examples:
  muninngallery stats
  muninngallery stats --json`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Emit the summary as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	galleries := store.NewGalleryStore(database, cfg.Tuning, logger)
	performers := store.NewPerformerStore(database, logger)
	votes := store.NewVoteStore(database, logger)

	summary, err := voting.NewSummarizer(galleries, performers, votes).Summarize(context.Background())
	if err != nil {
		return fmt.Errorf("build summary: %w", err)
	}

	if statsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Printf("Votes: %d total (%d positive, %d negative)\n\n",
		summary.TotalVotes, summary.PositiveVotes, summary.NegativeVotes)

	fmt.Println("Top galleries:")
	printRankedGalleries(summary.TopGalleries)
	fmt.Println("\nWorst galleries:")
	printRankedGalleries(summary.WorstGalleries)

	fmt.Println("\nTop performers:")
	printRankedPerformers(summary.TopPerformers)
	fmt.Println("\nWorst performers:")
	printRankedPerformers(summary.WorstPerformers)

	return nil
}

func printRankedGalleries(entries []voting.RankedGallery) {
	if len(entries) == 0 {
		fmt.Println("  (none)")
		return
	}
	for _, g := range entries {
		fmt.Printf("  %-40q score=%+.2f weight=%.2f votes=%d (+%d/-%d)\n",
			g.Title, g.Score, g.Weight, g.TotalVotes, g.PositiveVotes, g.NegativeVotes)
	}
}

func printRankedPerformers(entries []voting.RankedPerformer) {
	if len(entries) == 0 {
		fmt.Println("  (none)")
		return
	}
	for _, p := range entries {
		fmt.Printf("  %-40q score=%+.2f votes=%d\n", p.Name, p.Score, p.TotalVotes)
	}
}
