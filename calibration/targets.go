package calibration

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/reefcal/telemetry"
)

// ErrNoTargets is returned when there is nothing to calibrate against.
var ErrNoTargets = errors.New("no calibration targets")

// Target is one observed row of the market being calibrated.
type Target struct {
	Step       int     `csv:"step"`
	Sales      float64 `csv:"sales"`
	Awareness  float64 `csv:"awareness"`  // mean awareness in [0, 1]
	Perception float64 `csv:"perception"` // mean perception in [-1, 1]
}

// LoadTargets reads targets from a CSV file with a
// step,sales,awareness,perception header.
func LoadTargets(path string) ([]Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening targets: %w", err)
	}
	defer f.Close()
	return ParseTargets(f)
}

// ParseTargets reads targets from CSV. Rows are returned sorted by step;
// steps must be unique and non-negative.
func ParseTargets(r io.Reader) ([]Target, error) {
	var targets []Target
	if err := gocsv.Unmarshal(r, &targets); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, ErrNoTargets
		}
		return nil, fmt.Errorf("parsing targets: %w", err)
	}
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}

	slices.SortFunc(targets, func(a, b Target) int { return a.Step - b.Step })
	for i, t := range targets {
		if t.Step < 0 {
			return nil, fmt.Errorf("parsing targets: negative step %d", t.Step)
		}
		if i > 0 && t.Step == targets[i-1].Step {
			return nil, fmt.Errorf("parsing targets: duplicate step %d", t.Step)
		}
	}
	return targets, nil
}

// WriteTargets writes targets as CSV.
func WriteTargets(w io.Writer, targets []Target) error {
	return gocsv.Marshal(targets, w)
}

// TargetsFromSteps turns simulated step stats into targets, averaging
// runs step by step. Used to build synthetic data with known parameters.
func TargetsFromSteps(runs ...[]telemetry.StepStats) []Target {
	if len(runs) == 0 {
		return nil
	}
	n := len(runs[0])
	for _, r := range runs[1:] {
		n = min(n, len(r))
	}

	targets := make([]Target, n)
	for i := 0; i < n; i++ {
		targets[i].Step = runs[0][i].Step
		for _, r := range runs {
			targets[i].Sales += float64(r[i].Sales)
			targets[i].Awareness += r[i].AwarenessMean
			targets[i].Perception += r[i].PerceptionMean
		}
		k := float64(len(runs))
		targets[i].Sales /= k
		targets[i].Awareness /= k
		targets[i].Perception /= k
	}
	return targets
}
