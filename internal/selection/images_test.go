package selection

import (
	"context"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn_gallery/internal/catalog"
	"github.com/friendsincode/muninn_gallery/internal/config"
)

// stubSource serves canned images per rating category.
type stubSource struct {
	byCategory map[catalog.RatingCategory][]catalog.Image
	queried    []catalog.RatingCategory
	lastLimit  int
	excluded   map[string]bool
}

func (s *stubSource) ListGalleries(ctx context.Context) ([]catalog.Gallery, error) {
	return nil, nil
}

func (s *stubSource) ImagesByRating(ctx context.Context, galleryID string, category catalog.RatingCategory, excludeIDs []string, limit int) ([]catalog.Image, error) {
	s.queried = append(s.queried, category)
	s.lastLimit = limit

	var out []catalog.Image
	for _, img := range s.byCategory[category] {
		if s.excluded[img.ID] {
			continue
		}
		skip := false
		for _, ex := range excludeIDs {
			if img.ID == ex {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, img)
		}
	}
	return out, nil
}

func (s *stubSource) SetImageRating(ctx context.Context, imageID string, rating int) error {
	return nil
}

func (s *stubSource) SetGalleryRating(ctx context.Context, galleryID string, rating int) error {
	return nil
}

func (s *stubSource) GalleryImageCount(ctx context.Context, galleryID string) (int, error) {
	return 0, nil
}

func (s *stubSource) TagGalleryExcluded(ctx context.Context, galleryID string) error {
	return nil
}

func newImageSelector(src catalog.Source, seed int64) *ImageSelector {
	return NewImageSelector(src, config.DefaultTuning(), zerolog.Nop()).
		WithRand(rand.New(rand.NewSource(seed)))
}

func TestDrawCategoryBands(t *testing.T) {
	s := NewImageSelector(&stubSource{}, config.DefaultTuning(), zerolog.Nop())

	tests := []struct {
		roll int
		want catalog.RatingCategory
	}{
		{0, catalog.CategoryUnrated},
		{69, catalog.CategoryUnrated},
		{70, catalog.CategoryPositive},
		{89, catalog.CategoryPositive},
		{90, catalog.CategoryNegative},
		{99, catalog.CategoryNegative},
	}
	for _, tc := range tests {
		if got := s.drawCategory(tc.roll); got != tc.want {
			t.Fatalf("roll %d: expected %s, got %s", tc.roll, tc.want, got)
		}
	}
}

func TestSelectServesDrawnCategory(t *testing.T) {
	src := &stubSource{byCategory: map[catalog.RatingCategory][]catalog.Image{
		catalog.CategoryUnrated:  {{ID: "u1"}},
		catalog.CategoryPositive: {{ID: "p1"}},
		catalog.CategoryNegative: {{ID: "n1"}},
	}}
	sel := newImageSelector(src, 1)

	outcome, err := sel.Select(context.Background(), "g1", nil)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if outcome.Image == nil {
		t.Fatal("expected an image")
	}
	if outcome.Fallback {
		t.Fatal("no fallback expected when the drawn category has images")
	}
	if outcome.Served != outcome.Requested {
		t.Fatalf("served %s for requested %s", outcome.Served, outcome.Requested)
	}
	if src.lastLimit != 20 {
		t.Fatalf("expected query limit 20, got %d", src.lastLimit)
	}
}

func TestSelectFallsBackInFixedOrder(t *testing.T) {
	// Only negative images exist, so whatever the draw asks for, the chain
	// must end at negative.
	src := &stubSource{byCategory: map[catalog.RatingCategory][]catalog.Image{
		catalog.CategoryNegative: {{ID: "n1"}},
	}}
	sel := newImageSelector(src, 1)

	outcome, err := sel.Select(context.Background(), "g1", nil)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if outcome.Image == nil || outcome.Image.ID != "n1" {
		t.Fatalf("expected n1, got %+v", outcome.Image)
	}
	if outcome.Served != catalog.CategoryNegative {
		t.Fatalf("expected negative served, got %s", outcome.Served)
	}
	if outcome.Requested != catalog.CategoryNegative && !outcome.Fallback {
		t.Fatal("fallback flag not set")
	}
}

func TestSelectUnfilteredLastResort(t *testing.T) {
	// Mid-range ratings fit no band; only the unfiltered query finds them.
	src := &stubSource{byCategory: map[catalog.RatingCategory][]catalog.Image{
		catalog.CategoryAny: {{ID: "mid"}},
	}}
	sel := newImageSelector(src, 1)

	outcome, err := sel.Select(context.Background(), "g1", nil)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if outcome.Image == nil || outcome.Image.ID != "mid" {
		t.Fatalf("expected mid-range image, got %+v", outcome.Image)
	}
	if outcome.Served != catalog.CategoryAny || !outcome.Fallback {
		t.Fatalf("expected unfiltered fallback, got %+v", outcome)
	}
	if len(src.queried) != 4 {
		t.Fatalf("expected 3 band queries plus the unfiltered one, got %v", src.queried)
	}
}

func TestSelectEmptyGallery(t *testing.T) {
	sel := newImageSelector(&stubSource{}, 1)

	outcome, err := sel.Select(context.Background(), "g1", nil)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if outcome.Image != nil {
		t.Fatalf("expected no image, got %+v", outcome.Image)
	}
}

func TestSelectHonorsExclusions(t *testing.T) {
	src := &stubSource{byCategory: map[catalog.RatingCategory][]catalog.Image{
		catalog.CategoryUnrated:  {{ID: "seen"}},
		catalog.CategoryPositive: {{ID: "seen"}},
		catalog.CategoryNegative: {{ID: "seen"}},
		catalog.CategoryAny:      {{ID: "seen"}},
	}}
	sel := newImageSelector(src, 1)

	outcome, err := sel.Select(context.Background(), "g1", []string{"seen"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if outcome.Image != nil {
		t.Fatalf("recently sent image drawn: %+v", outcome.Image)
	}
}
