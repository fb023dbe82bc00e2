package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/reefcal/reef"
)

func TestNewReefState(t *testing.T) {
	ops := reef.NewRealOperators(reef.Box{{Min: 0, Max: 1}, {Min: 0, Max: 1}, {Min: 0, Max: 1}}, reef.DefaultParams().Operators)
	pop := reef.NewPopulation[float64](10, ops)
	pop.Initialize(0.5, reef.NewRandom(42))

	rs := NewReefState(1, pop)

	if rs.Subpopulation != 1 || rs.Size != 10 {
		t.Errorf("unexpected header: %+v", rs)
	}
	if len(rs.Corals) != 5 {
		t.Fatalf("expected 5 settled corals, got %d", len(rs.Corals))
	}
	if len(rs.Free) != 5 {
		t.Errorf("expected 5 free storage slots, got %d", len(rs.Free))
	}
	for i, c := range rs.Corals {
		if len(c.Genome) != 3 {
			t.Errorf("coral %d genome length %d, want 3", i, len(c.Genome))
		}
		if i > 0 && c.Position <= rs.Corals[i-1].Position {
			t.Errorf("corals not in grid order: %d after %d", c.Position, rs.Corals[i-1].Position)
		}
	}
}

func TestSnapshotSaveLoad(t *testing.T) {
	// Create a temporary directory
	tmpDir := t.TempDir()

	// Create a test snapshot
	snapshot := &Snapshot{
		Version:    SnapshotVersion,
		RunID:      "run-1",
		RNGSeed:    42,
		Generation: 12,
		Encoding:   string(reef.EncodingReal),
		Reefs: []ReefState{
			{
				Subpopulation: 0,
				Size:          4,
				Free:          []int{3},
				Corals: []CoralState{
					{Position: 0, Fitness: 0.5, Genome: []float64{0.1, 0.2}},
					{Position: 2, Fitness: 0.7, Genome: []float64{0.3, 0.4}},
					{Position: 3, Fitness: 0.2, Genome: []float64{0.5, 0.6}},
				},
			},
		},
		Bookmark: &Bookmark{
			Type:        BookmarkNewBest,
			Generation:  12,
			Description: "Test bookmark",
		},
	}

	// Save the snapshot
	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	// Verify file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("Snapshot file not created at %s", path)
	}

	// Load the snapshot
	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	// Verify loaded data matches original
	if loaded.Version != snapshot.Version {
		t.Errorf("Version mismatch: got %d, want %d", loaded.Version, snapshot.Version)
	}
	if loaded.RNGSeed != snapshot.RNGSeed {
		t.Errorf("RNGSeed mismatch: got %d, want %d", loaded.RNGSeed, snapshot.RNGSeed)
	}
	if loaded.Generation != snapshot.Generation {
		t.Errorf("Generation mismatch: got %d, want %d", loaded.Generation, snapshot.Generation)
	}
	if len(loaded.Reefs) != 1 || len(loaded.Reefs[0].Corals) != 3 {
		t.Fatalf("Reef state not loaded: %+v", loaded.Reefs)
	}
	if got := loaded.Reefs[0].Corals[1]; got.Position != 2 || got.Genome[1] != 0.4 {
		t.Errorf("Coral mismatch: got %+v", got)
	}
	if loaded.Bookmark == nil {
		t.Error("Bookmark not loaded")
	} else if loaded.Bookmark.Type != snapshot.Bookmark.Type {
		t.Errorf("Bookmark type mismatch: got %s, want %s", loaded.Bookmark.Type, snapshot.Bookmark.Type)
	}
}

func TestSnapshotFilename(t *testing.T) {
	tmpDir := t.TempDir()

	// Test with bookmark
	snapshot := &Snapshot{
		Version:    SnapshotVersion,
		Generation: 50,
		Bookmark: &Bookmark{
			Type:       BookmarkReefFull,
			Generation: 50,
		},
	}

	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	expected := filepath.Join(tmpDir, "snapshot_50_reef_full.json")
	if path != expected {
		t.Errorf("Path mismatch: got %s, want %s", path, expected)
	}

	// Test without bookmark
	snapshotNoBookmark := &Snapshot{
		Version:    SnapshotVersion,
		Generation: 30,
	}

	path, err = SaveSnapshot(snapshotNoBookmark, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	expected = filepath.Join(tmpDir, "snapshot_30.json")
	if path != expected {
		t.Errorf("Path mismatch: got %s, want %s", path, expected)
	}
}
