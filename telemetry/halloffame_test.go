package telemetry

import (
	"encoding/json"
	"testing"
)

func entry(fitness float64, pos ...float64) HallEntry {
	return HallEntry{Fitness: fitness, Normalized: pos}
}

func TestHallOfFame_SortedAndBounded(t *testing.T) {
	hof := NewHallOfFame(3, 0.01)

	for i, f := range []float64{0.2, 0.5, 0.1, 0.9, 0.3} {
		hof.Consider(entry(f, float64(i)*0.2))
	}

	if hof.Size() != 3 {
		t.Fatalf("expected 3 entries, got %d", hof.Size())
	}
	want := []float64{0.9, 0.5, 0.3}
	for i, e := range hof.Entries() {
		if e.Fitness != want[i] {
			t.Errorf("entry %d fitness = %v, want %v", i, e.Fitness, want[i])
		}
	}
	if hof.TopFitness() != 0.9 {
		t.Errorf("top fitness = %v, want 0.9", hof.TopFitness())
	}

	if hof.Consider(entry(0.05, 0.95)) {
		t.Error("entry weaker than a full hall should be rejected")
	}
}

func TestHallOfFame_Distinct(t *testing.T) {
	hof := NewHallOfFame(5, 0.1)

	if !hof.Consider(entry(0.5, 0.5, 0.5)) {
		t.Fatal("first entry should be added")
	}

	tests := []struct {
		name  string
		e     HallEntry
		added bool
		size  int
		top   float64
	}{
		{"near and weaker", entry(0.4, 0.52, 0.5), false, 1, 0.5},
		{"near and fitter replaces", entry(0.6, 0.5, 0.53), true, 1, 0.6},
		{"far", entry(0.3, 0.9, 0.1), true, 2, 0.6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hof.Consider(tt.e); got != tt.added {
				t.Errorf("Consider = %v, want %v", got, tt.added)
			}
			if hof.Size() != tt.size {
				t.Errorf("size = %d, want %d", hof.Size(), tt.size)
			}
			if hof.TopFitness() != tt.top {
				t.Errorf("top = %v, want %v", hof.TopFitness(), tt.top)
			}
		})
	}
}

func TestHallOfFame_MarshalJSON(t *testing.T) {
	hof := NewHallOfFame(2, 0.01)
	hof.Consider(HallEntry{
		Fitness:    0.8,
		Generation: 4,
		Params:     map[string]float64{"market.innovation": 0.03},
		Normalized: []float64{0.3},
	})

	data, err := hof.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}

	var out struct {
		Entries []struct {
			Fitness    float64            `json:"fitness"`
			Generation int                `json:"generation"`
			Params     map[string]float64 `json:"params"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(out.Entries) != 1 || out.Entries[0].Params["market.innovation"] != 0.03 {
		t.Errorf("unexpected JSON: %s", data)
	}
}
