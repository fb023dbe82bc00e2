package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pthm-cable/reefcal/reef"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the reef state of a run at one generation.
type Snapshot struct {
	Version int    `json:"version"`
	RunID   string `json:"run_id"`
	RNGSeed int64  `json:"rng_seed"`

	Generation int    `json:"generation"`
	Encoding   string `json:"encoding"`

	Reefs []ReefState `json:"reefs"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// ReefState holds one subpopulation's grid.
type ReefState struct {
	Subpopulation int          `json:"subpopulation"`
	Size          int          `json:"size"`
	Free          []int        `json:"free"`
	Corals        []CoralState `json:"corals"`
}

// CoralState is one settled coral.
type CoralState struct {
	Position int       `json:"position"`
	Fitness  float64   `json:"fitness"`
	Genome   []float64 `json:"genome"`
}

// NewReefState captures the settled corals of pop in grid order.
func NewReefState[G reef.Gene](subpopulation int, pop *reef.Population[G]) ReefState {
	rs := ReefState{
		Subpopulation: subpopulation,
		Size:          pop.Size(),
		Free:          pop.Free(),
	}
	for g := 0; g < pop.Size(); g++ {
		c := pop.Occupant(g)
		if c == nil {
			continue
		}
		rs.Corals = append(rs.Corals, CoralState{
			Position: g,
			Fitness:  c.Fitness,
			Genome:   c.Values(),
		})
	}
	return rs
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	// Build filename
	name := fmt.Sprintf("snapshot_%d", snapshot.Generation)
	if snapshot.Bookmark != nil {
		// Sanitize bookmark type for filename
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Generation, sanitized)
	}
	name += ".json"

	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return &snapshot, nil
}
