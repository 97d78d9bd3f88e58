package cache

import (
	"errors"
	"testing"
	"time"
)

func TestMemoFetchesOnceWithinTTL(t *testing.T) {
	memo := NewMemo[[]string](time.Hour)

	calls := 0
	fetch := func() ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	for i := 0; i < 5; i++ {
		got, err := memo.Get(fetch)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("unexpected value: %v", got)
		}
	}
	if calls != 1 {
		t.Fatalf("expected a single fetch, got %d", calls)
	}
}

func TestMemoRefreshesAfterExpiry(t *testing.T) {
	memo := NewMemo[int](time.Millisecond)

	calls := 0
	fetch := func() (int, error) {
		calls++
		return calls, nil
	}

	if _, err := memo.Get(fetch); err != nil {
		t.Fatalf("get: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	got, err := memo.Get(fetch)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != 2 {
		t.Fatalf("expected refreshed value 2, got %d", got)
	}
}

func TestMemoInvalidateForcesRefresh(t *testing.T) {
	memo := NewMemo[int](time.Hour)

	calls := 0
	fetch := func() (int, error) {
		calls++
		return calls, nil
	}

	if _, err := memo.Get(fetch); err != nil {
		t.Fatalf("get: %v", err)
	}
	memo.Invalidate()
	if _, ok := memo.Peek(); ok {
		t.Fatal("peek should miss after invalidate")
	}
	got, err := memo.Get(fetch)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != 2 {
		t.Fatalf("expected second fetch, got %d", got)
	}
}

func TestMemoFetchErrorLeavesEmpty(t *testing.T) {
	memo := NewMemo[int](time.Hour)

	wantErr := errors.New("backend down")
	if _, err := memo.Get(func() (int, error) { return 0, wantErr }); !errors.Is(err, wantErr) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if _, ok := memo.Peek(); ok {
		t.Fatal("failed fetch must not populate the memo")
	}
}
