package telemetry

import (
	"testing"
)

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_NewBest(t *testing.T) {
	bd := NewBookmarkDetector(10, 0.5, 0)

	// First observation only sets the baseline
	if got := bd.Check(GenerationStats{Generation: 0, BestEver: 0.2, Free: 1}); len(got) != 0 {
		t.Fatalf("expected no bookmarks on first generation, got %v", got)
	}

	bookmarks := bd.Check(GenerationStats{Generation: 1, BestEver: 0.21, Free: 1})
	if !hasBookmark(bookmarks, BookmarkNewBest) {
		t.Error("expected new_best bookmark")
	}
	if hasBookmark(bookmarks, BookmarkBreakthrough) {
		t.Error("5% gain should not count as a breakthrough at 50%")
	}

	// Same best again is not new
	if got := bd.Check(GenerationStats{Generation: 2, BestEver: 0.21, Free: 1}); hasBookmark(got, BookmarkNewBest) {
		t.Error("unchanged best should not be bookmarked")
	}
}

func TestBookmarkDetector_Breakthrough(t *testing.T) {
	bd := NewBookmarkDetector(5, 0.5, 0)

	for i := 0; i < 3; i++ {
		bd.Check(GenerationStats{Generation: i, BestEver: 0.2, Free: 1})
	}

	bookmarks := bd.Check(GenerationStats{Generation: 3, BestEver: 0.4, Free: 1})
	if !hasBookmark(bookmarks, BookmarkBreakthrough) {
		t.Error("expected breakthrough bookmark for doubled fitness")
	}
}

func TestBookmarkDetector_StagnationOncePerPlateau(t *testing.T) {
	bd := NewBookmarkDetector(5, 1, 3)

	fired := 0
	for i := 0; i < 10; i++ {
		if hasBookmark(bd.Check(GenerationStats{Generation: i, BestEver: 0.5, Free: 1}), BookmarkStagnation) {
			if i != 3 {
				t.Errorf("stagnation fired at generation %d, want 3", i)
			}
			fired++
		}
	}
	if fired != 1 {
		t.Errorf("expected stagnation once, got %d", fired)
	}

	// Improvement resets the plateau
	bd.Check(GenerationStats{Generation: 10, BestEver: 0.6, Free: 1})
	if !hasBookmark(bd.Check(GenerationStats{Generation: 13, BestEver: 0.6, Free: 1}), BookmarkStagnation) {
		t.Error("expected stagnation again after a new plateau")
	}
}

func TestBookmarkDetector_ReefFull(t *testing.T) {
	bd := NewBookmarkDetector(5, 1, 0)

	tests := []struct {
		free int
		want bool
	}{
		{free: 2, want: false},
		{free: 0, want: true},
		{free: 0, want: false}, // still full
		{free: 1, want: false},
		{free: 0, want: true}, // full again
	}
	for i, tt := range tests {
		got := hasBookmark(bd.Check(GenerationStats{Generation: i, Free: tt.free, Occupied: 10}), BookmarkReefFull)
		if got != tt.want {
			t.Errorf("generation %d (free=%d): reef_full = %v, want %v", i, tt.free, got, tt.want)
		}
	}
}

func TestBookmarkDetector_ReefFullPerSubpopulation(t *testing.T) {
	bd := NewBookmarkDetector(5, 1, 0)

	if !hasBookmark(bd.Check(GenerationStats{Subpopulation: 0}), BookmarkReefFull) {
		t.Error("expected reef_full for subpopulation 0")
	}
	if !hasBookmark(bd.Check(GenerationStats{Subpopulation: 1}), BookmarkReefFull) {
		t.Error("expected reef_full for subpopulation 1")
	}
}
