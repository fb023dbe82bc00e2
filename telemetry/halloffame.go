package telemetry

import (
	"encoding/json"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// HallEntry is one calibrated parameter set and the fitness it scored.
type HallEntry struct {
	Fitness       float64            `json:"fitness"`
	Generation    int                `json:"generation"`
	Subpopulation int                `json:"subpopulation"`
	Params        map[string]float64 `json:"params"`

	// Normalized position in [0,1]^n, used for the distance test.
	Normalized []float64 `json:"-"`
}

// HallOfFame keeps the best distinct calibrations of a run, sorted by
// descending fitness. Two entries are distinct when their RMS distance in
// normalized parameter space is at least minDistance.
type HallOfFame struct {
	hall        []HallEntry
	maxSize     int
	minDistance float64
}

// NewHallOfFame creates a new hall of fame with the given capacity.
func NewHallOfFame(maxSize int, minDistance float64) *HallOfFame {
	if maxSize < 1 {
		maxSize = 1
	}
	return &HallOfFame{
		hall:        make([]HallEntry, 0, maxSize),
		maxSize:     maxSize,
		minDistance: minDistance,
	}
}

// Consider offers a calibration to the hall. An entry closer than the
// minimum distance to an existing one replaces it only when fitter.
// Returns true if the entry was added.
func (hof *HallOfFame) Consider(entry HallEntry) bool {
	for i := range hof.hall {
		if hof.distance(hof.hall[i].Normalized, entry.Normalized) >= hof.minDistance {
			continue
		}
		if entry.Fitness <= hof.hall[i].Fitness {
			return false
		}
		hof.hall = append(hof.hall[:i], hof.hall[i+1:]...)
		break
	}

	var added bool
	hof.hall, added = hof.insertEntry(hof.hall, entry)
	return added
}

// distance is the RMS difference of two normalized vectors.
func (hof *HallOfFame) distance(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	return floats.Distance(a, b, 2) / math.Sqrt(float64(len(a)))
}

// insertEntry adds an entry to the hall, maintaining sorted order by fitness.
// If the hall is full, the lowest-fitness entry is removed.
func (hof *HallOfFame) insertEntry(hall []HallEntry, entry HallEntry) ([]HallEntry, bool) {
	// Find insertion point (sorted descending by fitness)
	idx := sort.Search(len(hall), func(i int) bool {
		return hall[i].Fitness < entry.Fitness
	})

	// If hall is full and entry would be last (lowest), skip it
	if len(hall) >= hof.maxSize && idx >= hof.maxSize {
		return hall, false
	}

	// Insert at position
	hall = append(hall, HallEntry{})
	copy(hall[idx+1:], hall[idx:])
	hall[idx] = entry

	// Trim if over capacity
	if len(hall) > hof.maxSize {
		hall = hall[:hof.maxSize]
	}

	return hall, true
}

// Size returns the number of entries.
func (hof *HallOfFame) Size() int {
	return len(hof.hall)
}

// Entries returns the entries, fittest first.
func (hof *HallOfFame) Entries() []HallEntry {
	return hof.hall
}

// TopFitness returns the highest fitness in the hall, 0 if empty.
func (hof *HallOfFame) TopFitness() float64 {
	if len(hof.hall) == 0 {
		return 0
	}
	return hof.hall[0].Fitness
}

// MarshalJSON serializes the hall of fame, fittest first.
func (hof *HallOfFame) MarshalJSON() ([]byte, error) {
	return json.MarshalIndent(struct {
		MinDistance float64     `json:"min_distance"`
		Entries     []HallEntry `json:"entries"`
	}{hof.minDistance, hof.hall}, "", "  ")
}
