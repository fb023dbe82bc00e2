package telemetry

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/reefcal/config"
	"github.com/pthm-cable/reefcal/reef"
)

// RunInfo identifies a run in run.json.
type RunInfo struct {
	RunID       string    `json:"run_id"`
	Method      string    `json:"method"`
	Seed        int64     `json:"seed"`
	Variant     string    `json:"variant,omitempty"`
	Encoding    string    `json:"encoding,omitempty"`
	Generations int       `json:"generations"`
	Evaluations int64     `json:"evaluations"`
	BestFitness float64   `json:"best_fitness"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitzero"`
}

// csvLog is one CSV file written record by record. The header goes out
// with the first record.
type csvLog struct {
	file          *os.File
	writer        gocsv.CSVWriter // nil uses gocsv's default comma writer
	headerWritten bool
}

func (l *csvLog) write(records any) error {
	var err error
	switch {
	case l.writer == nil && !l.headerWritten:
		err = gocsv.Marshal(records, l.file)
	case l.writer == nil:
		err = gocsv.MarshalWithoutHeaders(records, l.file)
	case !l.headerWritten:
		err = gocsv.MarshalCSV(records, l.writer)
	default:
		err = gocsv.MarshalCSVWithoutHeaders(records, l.writer)
	}
	if err != nil {
		return err
	}
	l.headerWritten = true
	return nil
}

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir string

	generations *csvLog
	substrates  *csvLog
	perf        *csvLog
	bookmarks   *csvLog
	steps       *csvLog
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	// Create output directory
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	files := []struct {
		name string
		dst  **csvLog
	}{
		{"generations.csv", &om.generations},
		{"substrates.csv", &om.substrates},
		{"perf.csv", &om.perf},
		{"bookmarks.csv", &om.bookmarks},
		{"steps.csv", &om.steps},
	}
	for _, f := range files {
		file, err := os.Create(filepath.Join(dir, f.name))
		if err != nil {
			om.Close()
			return nil, fmt.Errorf("creating %s: %w", f.name, err)
		}
		*f.dst = &csvLog{file: file}
	}

	// Substrate rows are semicolon separated
	w := csv.NewWriter(om.substrates.file)
	w.Comma = ';'
	om.substrates.writer = gocsv.NewSafeCSVWriter(w)

	return om, nil
}

// WriteConfig saves the run configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteBestConfig saves the configuration with the best calibration applied.
func (om *OutputManager) WriteBestConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "best_config.yaml"))
}

// WriteGeneration writes a generation stats record to generations.csv.
func (om *OutputManager) WriteGeneration(stats GenerationStats) error {
	if om == nil {
		return nil
	}
	if err := om.generations.write([]GenerationStats{stats}); err != nil {
		return fmt.Errorf("writing generation: %w", err)
	}
	return nil
}

// WriteSubstrates writes an adaptive substrate row to substrates.csv.
func (om *OutputManager) WriteSubstrates(r reef.SubstrateReport) error {
	if om == nil {
		return nil
	}
	if err := om.substrates.write([]reef.SubstrateReport{r}); err != nil {
		return fmt.Errorf("writing substrates: %w", err)
	}
	return nil
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, generation int) error {
	if om == nil {
		return nil
	}
	if err := om.perf.write([]PerfStatsCSV{stats.ToCSV(generation)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteBookmark writes a bookmark record to bookmarks.csv.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	if om == nil {
		return nil
	}
	if err := om.bookmarks.write([]Bookmark{b}); err != nil {
		return fmt.Errorf("writing bookmark: %w", err)
	}
	return nil
}

// WriteSteps writes market step records to steps.csv.
func (om *OutputManager) WriteSteps(steps []StepStats) error {
	if om == nil || len(steps) == 0 {
		return nil
	}
	if err := om.steps.write(steps); err != nil {
		return fmt.Errorf("writing steps: %w", err)
	}
	return nil
}

// WriteHallOfFame saves the hall of fame as JSON.
func (om *OutputManager) WriteHallOfFame(hof *HallOfFame) error {
	if om == nil || hof == nil {
		return nil
	}

	data, err := hof.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshaling hall of fame: %w", err)
	}
	if err := os.WriteFile(filepath.Join(om.dir, "hall_of_fame.json"), data, 0644); err != nil {
		return fmt.Errorf("writing hall_of_fame.json: %w", err)
	}
	return nil
}

// WriteRun saves the run summary as JSON.
func (om *OutputManager) WriteRun(info RunInfo) error {
	if om == nil {
		return nil
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling run info: %w", err)
	}
	if err := os.WriteFile(filepath.Join(om.dir, "run.json"), data, 0644); err != nil {
		return fmt.Errorf("writing run.json: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, l := range []*csvLog{om.generations, om.substrates, om.perf, om.bookmarks, om.steps} {
		if l == nil || l.file == nil {
			continue
		}
		if l.writer != nil {
			l.writer.Flush()
		}
		if err := l.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
