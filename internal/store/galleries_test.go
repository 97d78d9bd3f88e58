package store

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/muninn_gallery/internal/config"
	"github.com/friendsincode/muninn_gallery/internal/models"
)

func openStoreTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	if err := db.AutoMigrate(
		&models.GalleryPreference{},
		&models.PerformerPreference{},
		&models.Vote{},
		&models.SentImage{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestGalleryStore(t *testing.T) *GalleryStore {
	t.Helper()
	return NewGalleryStore(openStoreTestDB(t), config.DefaultTuning(), zerolog.Nop())
}

func TestEnsureGalleryCreatesOnce(t *testing.T) {
	s := newTestGalleryStore(t)
	ctx := context.Background()

	created, err := s.EnsureGallery(ctx, "g1", "First Gallery")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if !created {
		t.Fatal("expected first ensure to create the row")
	}

	created, err = s.EnsureGallery(ctx, "g1", "First Gallery")
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if created {
		t.Fatal("expected second ensure to be a no-op")
	}

	pref, err := s.Preference(ctx, "g1")
	if err != nil {
		t.Fatalf("preference: %v", err)
	}
	if pref == nil {
		t.Fatal("expected preference row")
	}
	if pref.Weight != 1.0 {
		t.Fatalf("expected default weight 1.0, got %v", pref.Weight)
	}
	if pref.Score != 0 {
		t.Fatalf("expected zero score, got %v", pref.Score)
	}
}

func TestRecordVoteAccumulatesScore(t *testing.T) {
	s := newTestGalleryStore(t)
	ctx := context.Background()

	votes := []int{1, 1, -1}
	for _, v := range votes {
		if _, err := s.RecordVote(ctx, "g1", "Gallery", v); err != nil {
			t.Fatalf("record vote %d: %v", v, err)
		}
	}

	pref, err := s.Preference(ctx, "g1")
	if err != nil || pref == nil {
		t.Fatalf("preference: %v, %v", pref, err)
	}
	if pref.TotalVotes != 3 || pref.PositiveVotes != 2 || pref.NegativeVotes != 1 {
		t.Fatalf("unexpected counters: %+v", pref)
	}
	want := (2.0 - 1.0) / 3.0
	if diff := pref.Score - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected score %v, got %v", want, pref.Score)
	}
}

func TestRatingThresholdFiresExactlyOnce(t *testing.T) {
	s := newTestGalleryStore(t)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		reached, err := s.RecordVote(ctx, "g1", "Gallery", 1)
		if err != nil {
			t.Fatalf("vote %d: %v", i, err)
		}
		if reached {
			t.Fatalf("threshold signaled early at vote %d", i)
		}
	}

	reached, err := s.RecordVote(ctx, "g1", "Gallery", 1)
	if err != nil {
		t.Fatalf("vote 5: %v", err)
	}
	if !reached {
		t.Fatal("expected threshold signal on fifth vote")
	}
	if err := s.MarkRatingSet(ctx, "g1"); err != nil {
		t.Fatalf("mark rating set: %v", err)
	}

	for i := 6; i <= 10; i++ {
		reached, err := s.RecordVote(ctx, "g1", "Gallery", -1)
		if err != nil {
			t.Fatalf("vote %d: %v", i, err)
		}
		if reached {
			t.Fatalf("threshold signaled again at vote %d", i)
		}
	}
}

func TestUpdateWeightSaturates(t *testing.T) {
	s := newTestGalleryStore(t)
	ctx := context.Background()

	if _, err := s.EnsureGallery(ctx, "g1", "Gallery"); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	var w float64
	var err error
	for i := 0; i < 50; i++ {
		w, err = s.UpdateWeight(ctx, "g1", 1)
		if err != nil {
			t.Fatalf("positive step %d: %v", i, err)
		}
	}
	if w != 10.0 {
		t.Fatalf("expected saturation at 10.0, got %v", w)
	}

	for i := 0; i < 100; i++ {
		w, err = s.UpdateWeight(ctx, "g1", -1)
		if err != nil {
			t.Fatalf("negative step %d: %v", i, err)
		}
	}
	if w != 0.1 {
		t.Fatalf("expected floor at 0.1, got %v", w)
	}
}

func TestUpdateWeightUnknownGalleryIsLenient(t *testing.T) {
	s := newTestGalleryStore(t)

	w, err := s.UpdateWeight(context.Background(), "missing", 1)
	if err != nil {
		t.Fatalf("update weight: %v", err)
	}
	if w != 1.0 {
		t.Fatalf("expected default weight for unknown gallery, got %v", w)
	}
}

func TestActiveWeightsOmitExcluded(t *testing.T) {
	s := newTestGalleryStore(t)
	ctx := context.Background()

	for _, id := range []string{"g1", "g2", "g3"} {
		if _, err := s.EnsureGallery(ctx, id, "Gallery "+id); err != nil {
			t.Fatalf("ensure %s: %v", id, err)
		}
	}
	if err := s.Exclude(ctx, "g2"); err != nil {
		t.Fatalf("exclude: %v", err)
	}

	weights, err := s.ActiveWeights(ctx)
	if err != nil {
		t.Fatalf("active weights: %v", err)
	}
	if len(weights) != 2 {
		t.Fatalf("expected 2 active galleries, got %d", len(weights))
	}
	if _, ok := weights["g2"]; ok {
		t.Fatal("excluded gallery present in active weight map")
	}
}

func TestExcludeUnknownGallery(t *testing.T) {
	s := newTestGalleryStore(t)

	if err := s.Exclude(context.Background(), "missing"); err == nil {
		t.Fatal("expected error excluding unknown gallery")
	}
}

func TestInitialWeightBackfill(t *testing.T) {
	s := newTestGalleryStore(t)

	tests := []struct {
		name string
		pos  int
		neg  int
		want float64
	}{
		{"fresh", 0, 0, 1.0},
		{"loved", 30, 0, 10.0},
		{"hated", 0, 30, 0.1},
		{"one_positive", 1, 0, 1.2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := s.InitialWeight(tc.pos, tc.neg)
			if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestNegativePercentageRounding(t *testing.T) {
	s := newTestGalleryStore(t)
	ctx := context.Background()

	if _, err := s.EnsureGallery(ctx, "g1", "Gallery"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := s.UpdateImageCount(ctx, "g1", 3); err != nil {
		t.Fatalf("update count: %v", err)
	}
	if _, err := s.RecordVote(ctx, "g1", "Gallery", -1); err != nil {
		t.Fatalf("vote: %v", err)
	}

	pct, err := s.NegativePercentage(ctx, "g1")
	if err != nil {
		t.Fatalf("percentage: %v", err)
	}
	if pct != 33.33 {
		t.Fatalf("expected 33.33, got %v", pct)
	}
}

func TestNegativePercentageUnknownCountIsZero(t *testing.T) {
	s := newTestGalleryStore(t)
	ctx := context.Background()

	if _, err := s.RecordVote(ctx, "g1", "Gallery", -1); err != nil {
		t.Fatalf("vote: %v", err)
	}

	pct, err := s.NegativePercentage(ctx, "g1")
	if err != nil {
		t.Fatalf("percentage: %v", err)
	}
	if pct != 0 {
		t.Fatalf("expected 0 for unknown image count, got %v", pct)
	}
}

func TestShouldRefreshImageCount(t *testing.T) {
	s := newTestGalleryStore(t)
	ctx := context.Background()

	if _, err := s.EnsureGallery(ctx, "g1", "Gallery"); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	stale, err := s.ShouldRefreshImageCount(ctx, "g1", 7)
	if err != nil {
		t.Fatalf("stale check: %v", err)
	}
	if !stale {
		t.Fatal("never-fetched count should be stale")
	}

	if err := s.UpdateImageCount(ctx, "g1", 42); err != nil {
		t.Fatalf("update count: %v", err)
	}
	stale, err = s.ShouldRefreshImageCount(ctx, "g1", 7)
	if err != nil {
		t.Fatalf("stale check: %v", err)
	}
	if stale {
		t.Fatal("freshly fetched count should not be stale")
	}

	old := time.Now().AddDate(0, 0, -8)
	if err := s.db.Model(&models.GalleryPreference{}).
		Where("gallery_id = ?", "g1").
		Update("images_count_updated_at", &old).Error; err != nil {
		t.Fatalf("age count: %v", err)
	}
	stale, err = s.ShouldRefreshImageCount(ctx, "g1", 7)
	if err != nil {
		t.Fatalf("stale check: %v", err)
	}
	if !stale {
		t.Fatal("week-old count should be stale")
	}
}

func TestBlacklistAndWhitelist(t *testing.T) {
	s := newTestGalleryStore(t)
	ctx := context.Background()

	seed := map[string][]int{
		"good": {1, 1, 1},
		"bad":  {-1, -1},
		"even": {1, -1},
	}
	for id, votes := range seed {
		for _, v := range votes {
			if _, err := s.RecordVote(ctx, id, "Gallery "+id, v); err != nil {
				t.Fatalf("vote %s: %v", id, err)
			}
		}
	}

	black, err := s.Blacklisted(ctx)
	if err != nil {
		t.Fatalf("blacklist: %v", err)
	}
	if len(black) != 1 || black[0] != "bad" {
		t.Fatalf("unexpected blacklist: %v", black)
	}

	white, err := s.Whitelisted(ctx)
	if err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	if len(white) != 1 || white[0] != "good" {
		t.Fatalf("unexpected whitelist: %v", white)
	}
}

func TestThresholdNotificationOneShot(t *testing.T) {
	s := newTestGalleryStore(t)
	ctx := context.Background()

	if _, err := s.EnsureGallery(ctx, "g1", "Gallery"); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	shown, err := s.ThresholdNotificationShown(ctx, "g1")
	if err != nil {
		t.Fatalf("shown check: %v", err)
	}
	if shown {
		t.Fatal("notification flag should start false")
	}

	if err := s.MarkThresholdNotificationShown(ctx, "g1"); err != nil {
		t.Fatalf("mark shown: %v", err)
	}
	shown, err = s.ThresholdNotificationShown(ctx, "g1")
	if err != nil {
		t.Fatalf("shown check: %v", err)
	}
	if !shown {
		t.Fatal("notification flag should persist")
	}
}

func TestStatsByGalleryCountsVotesAsViews(t *testing.T) {
	s := newTestGalleryStore(t)
	ctx := context.Background()
	votes := NewVoteStore(s.db, zerolog.Nop())

	if _, err := s.EnsureGallery(ctx, "g1", "Gallery"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := s.UpdateImageCount(ctx, "g1", 10); err != nil {
		t.Fatalf("update count: %v", err)
	}
	for _, img := range []string{"i1", "i2", "i3"} {
		err := votes.Upsert(ctx, VoteRecord{ImageID: img, Vote: 1, GalleryID: "g1", GalleryTitle: "Gallery"})
		if err != nil {
			t.Fatalf("vote %s: %v", img, err)
		}
	}

	stats, err := s.StatsByGallery(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	got, ok := stats["g1"]
	if !ok {
		t.Fatal("expected stats for g1")
	}
	if got.Viewed != 3 {
		t.Fatalf("expected 3 viewed, got %d", got.Viewed)
	}
	if got.TotalImages != 10 {
		t.Fatalf("expected 10 total images, got %d", got.TotalImages)
	}
}
