/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package selection implements the weighted gallery draw and the
// category-based image draw.
package selection

import (
	"math/rand"
	"sort"
	"time"

	"github.com/friendsincode/muninn_gallery/internal/config"
	"github.com/friendsincode/muninn_gallery/internal/store"
)

// Pick draws one key from the weight map with probability proportional to
// its weight. Keys with non-positive weight are never drawn. Returns false
// when no key carries positive weight.
func Pick(rng *rand.Rand, weights map[string]float64) (string, bool) {
	keys := make([]string, 0, len(weights))
	var total float64
	for key, w := range weights {
		if w <= 0 {
			continue
		}
		keys = append(keys, key)
		total += w
	}
	if len(keys) == 0 || total <= 0 {
		return "", false
	}
	// Map iteration order is randomized; the walk needs a stable order so
	// the draw is reproducible for a given rng state.
	sort.Strings(keys)

	r := rng.Float64() * total
	var acc float64
	for _, key := range keys {
		acc += weights[key]
		if acc >= r {
			return key, true
		}
	}
	// Float accumulation can fall a hair short of total; the draw still
	// belongs to the final key.
	return keys[len(keys)-1], true
}

// Candidate is one gallery entering the effective-weight draw.
type Candidate struct {
	GalleryID string
	// Weight is the stored reinforcement weight, default 1.0 when the
	// gallery has no preference row yet.
	Weight float64
	Stats  store.GalleryStats
}

// EffectiveWeight shapes a candidate's stored weight by viewing history:
// a coverage penalty shrinks galleries the user has mostly seen, and a
// freshness bonus favors galleries not selected recently.
func EffectiveWeight(c Candidate, tuning config.Tuning, now time.Time) float64 {
	w := c.Weight

	if c.Stats.TotalImages > 0 {
		coverage := float64(c.Stats.Viewed) / float64(c.Stats.TotalImages)
		if coverage > 1 {
			coverage = 1
		}
		w *= 1 - coverage*tuning.CoveragePenaltyFactor
	}

	days := tuning.FreshnessSentinelDays
	if c.Stats.LastSelected != nil {
		days = now.Sub(*c.Stats.LastSelected).Hours() / 24
		if days < 0 {
			days = 0
		}
	}
	bonus := days * tuning.FreshnessBonusPerDay
	if bonus > tuning.FreshnessBonusMax {
		bonus = tuning.FreshnessBonusMax
	}
	w *= 1 + bonus

	return w
}

// PickCandidate draws one gallery from the candidate set using effective
// weights. Returns false when the set is empty or every effective weight is
// non-positive.
func PickCandidate(rng *rand.Rand, candidates []Candidate, tuning config.Tuning, now time.Time) (string, bool) {
	weights := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		weights[c.GalleryID] = EffectiveWeight(c, tuning, now)
	}
	return Pick(rng, weights)
}
