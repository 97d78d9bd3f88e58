package store

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn_gallery/internal/models"
)

func TestVoteUpsertOverwrites(t *testing.T) {
	db := openStoreTestDB(t)
	s := NewVoteStore(db, zerolog.Nop())
	ctx := context.Background()

	err := s.Upsert(ctx, VoteRecord{
		ImageID:        "img-1",
		Vote:           1,
		GalleryID:      "g1",
		GalleryTitle:   "Gallery",
		PerformerIDs:   []string{"p1"},
		PerformerNames: []string{"Alice"},
	})
	if err != nil {
		t.Fatalf("first vote: %v", err)
	}

	if err := s.Upsert(ctx, VoteRecord{ImageID: "img-1", Vote: -1, GalleryID: "g1"}); err != nil {
		t.Fatalf("overwrite vote: %v", err)
	}

	var count int64
	if err := db.Model(&models.Vote{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single row per image, got %d", count)
	}

	rec, err := s.Get(ctx, "img-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec == nil || rec.Vote != -1 {
		t.Fatalf("expected overwritten vote -1, got %+v", rec)
	}
}

func TestVoteGetRoundTripsPerformers(t *testing.T) {
	s := NewVoteStore(openStoreTestDB(t), zerolog.Nop())
	ctx := context.Background()

	err := s.Upsert(ctx, VoteRecord{
		ImageID:        "img-1",
		Vote:           1,
		GalleryID:      "g1",
		PerformerIDs:   []string{"p1", "p2"},
		PerformerNames: []string{"Alice", "Bob"},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	rec, err := s.Get(ctx, "img-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(rec.PerformerIDs) != 2 || rec.PerformerIDs[1] != "p2" {
		t.Fatalf("unexpected performer ids: %v", rec.PerformerIDs)
	}
	if len(rec.PerformerNames) != 2 || rec.PerformerNames[0] != "Alice" {
		t.Fatalf("unexpected performer names: %v", rec.PerformerNames)
	}
}

func TestVoteStatus(t *testing.T) {
	s := NewVoteStore(openStoreTestDB(t), zerolog.Nop())
	ctx := context.Background()

	status, err := s.Status(ctx, "never-voted")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != 0 {
		t.Fatalf("expected 0 for unvoted image, got %d", status)
	}

	if err := s.Upsert(ctx, VoteRecord{ImageID: "img-1", Vote: -1}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	status, err = s.Status(ctx, "img-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != -1 {
		t.Fatalf("expected -1, got %d", status)
	}
}

func TestVoteCounts(t *testing.T) {
	s := NewVoteStore(openStoreTestDB(t), zerolog.Nop())
	ctx := context.Background()

	for i, v := range []int{1, 1, 1, -1} {
		id := string(rune('a' + i))
		if err := s.Upsert(ctx, VoteRecord{ImageID: id, Vote: v}); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.Total != 4 || counts.Positive != 3 || counts.Negative != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

func TestSentImageRecency(t *testing.T) {
	db := openStoreTestDB(t)
	s := NewSentImageStore(db, zerolog.Nop())
	ctx := context.Background()

	if err := s.Record(ctx, "img-new", nil, "Fresh", "file-1", ""); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.Record(ctx, "img-old", nil, "Stale", "file-2", ""); err != nil {
		t.Fatalf("record: %v", err)
	}

	old := time.Now().AddDate(0, 0, -10)
	if err := db.Model(&models.SentImage{}).
		Where("image_id = ?", "img-old").
		Update("sent_at", old).Error; err != nil {
		t.Fatalf("age row: %v", err)
	}

	ids, err := s.RecentImageIDs(ctx, 7)
	if err != nil {
		t.Fatalf("recent ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != "img-new" {
		t.Fatalf("unexpected recent ids: %v", ids)
	}

	recent, err := s.IsRecentlySent(ctx, "img-old", 7)
	if err != nil {
		t.Fatalf("recency check: %v", err)
	}
	if recent {
		t.Fatal("aged row should not count as recent")
	}
}

func TestSentImageLastSentForUser(t *testing.T) {
	s := NewSentImageStore(openStoreTestDB(t), zerolog.Nop())
	ctx := context.Background()

	user := int64(42)
	if err := s.Record(ctx, "img-1", &user, "First", "f1", "hq1"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.Record(ctx, "img-2", &user, "Second", "f2", "hq2"); err != nil {
		t.Fatalf("record: %v", err)
	}

	last, err := s.LastSentForUser(ctx, user)
	if err != nil {
		t.Fatalf("last for user: %v", err)
	}
	if last == nil || last.ImageID != "img-2" {
		t.Fatalf("expected img-2 as latest, got %+v", last)
	}
	if last.FileIDHighQuality != "hq2" {
		t.Fatalf("expected cached high quality handle, got %q", last.FileIDHighQuality)
	}

	missing, err := s.LastSentForUser(ctx, 999)
	if err != nil {
		t.Fatalf("missing user: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown user, got %+v", missing)
	}
}

func TestSentImageCleanup(t *testing.T) {
	db := openStoreTestDB(t)
	s := NewSentImageStore(db, zerolog.Nop())
	ctx := context.Background()

	for _, id := range []string{"keep-1", "keep-2", "drop-1"} {
		if err := s.Record(ctx, id, nil, "", "", ""); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}
	old := time.Now().AddDate(0, 0, -40)
	if err := db.Model(&models.SentImage{}).
		Where("image_id = ?", "drop-1").
		Update("sent_at", old).Error; err != nil {
		t.Fatalf("age row: %v", err)
	}

	removed, err := s.CleanupOlderThan(ctx, 30)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 remaining, got %d", count)
	}
}

func TestPerformerRecordVote(t *testing.T) {
	s := NewPerformerStore(openStoreTestDB(t), zerolog.Nop())
	ctx := context.Background()

	for _, v := range []int{1, 1, -1} {
		if err := s.RecordVote(ctx, "p1", "Alice", v); err != nil {
			t.Fatalf("vote: %v", err)
		}
	}
	if err := s.RecordVote(ctx, "p2", "Bob", -1); err != nil {
		t.Fatalf("vote: %v", err)
	}

	prefs, err := s.Preferences(ctx)
	if err != nil {
		t.Fatalf("preferences: %v", err)
	}
	if len(prefs) != 2 {
		t.Fatalf("expected 2 performers, got %d", len(prefs))
	}
	if prefs[0].PerformerID != "p1" {
		t.Fatalf("expected best performer first, got %s", prefs[0].PerformerID)
	}

	black, err := s.Blacklisted(ctx)
	if err != nil {
		t.Fatalf("blacklist: %v", err)
	}
	if len(black) != 1 || black[0] != "p2" {
		t.Fatalf("unexpected blacklist: %v", black)
	}
}
