package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkNewBest      BookmarkType = "new_best"
	BookmarkBreakthrough BookmarkType = "breakthrough"
	BookmarkStagnation   BookmarkType = "stagnation"
	BookmarkReefFull     BookmarkType = "reef_full"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type          BookmarkType `csv:"type"`
	Generation    int          `csv:"generation"`
	Subpopulation int          `csv:"subpopulation"`
	Fitness       float64      `csv:"fitness"`
	Description   string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"generation", b.Generation,
		"subpopulation", b.Subpopulation,
		"fitness", b.Fitness,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments of an optimization run.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []GenerationStats
	historySize int
	historyIdx  int
	historyFull bool

	minImprovement float64
	stagnation     int

	// State tracking
	seen            bool
	bestEver        float64
	lastImprovement int          // generation of the last best-ever improvement
	stagnantFired   bool         // stagnation reported since lastImprovement
	full            map[int]bool // subpopulations currently without free slots
}

// NewBookmarkDetector creates a detector. minImprovement is the relative
// best-ever gain over the history window that counts as a breakthrough;
// stagnation is the number of generations without improvement that is
// reported once.
func NewBookmarkDetector(historySize int, minImprovement float64, stagnation int) *BookmarkDetector {
	if historySize < 2 {
		historySize = 2
	}
	return &BookmarkDetector{
		history:        make([]GenerationStats, historySize),
		historySize:    historySize,
		minImprovement: minImprovement,
		stagnation:     stagnation,
		full:           make(map[int]bool),
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats GenerationStats) []Bookmark {
	var bookmarks []Bookmark

	switch {
	case !bd.seen:
		bd.seen = true
		bd.bestEver = stats.BestEver
		bd.lastImprovement = stats.Generation
	case stats.BestEver > bd.bestEver:
		bookmarks = append(bookmarks, Bookmark{
			Type:          BookmarkNewBest,
			Generation:    stats.Generation,
			Subpopulation: stats.Subpopulation,
			Fitness:       stats.BestEver,
			Description:   fmt.Sprintf("Best fitness %.6f (was %.6f)", stats.BestEver, bd.bestEver),
		})
		if b := bd.checkBreakthrough(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		bd.bestEver = stats.BestEver
		bd.lastImprovement = stats.Generation
		bd.stagnantFired = false
	default:
		if b := bd.checkStagnation(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	if b := bd.checkReefFull(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats GenerationStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

// oldest returns the oldest entry of the rolling history.
func (bd *BookmarkDetector) oldest() (GenerationStats, bool) {
	if bd.historyFull {
		return bd.history[bd.historyIdx], true
	}
	if bd.historyIdx == 0 {
		return GenerationStats{}, false
	}
	return bd.history[0], true
}

func (bd *BookmarkDetector) checkBreakthrough(stats GenerationStats) *Bookmark {
	old, ok := bd.oldest()
	if !ok || old.BestEver <= 0 {
		return nil
	}

	gain := (stats.BestEver - old.BestEver) / old.BestEver
	if gain < bd.minImprovement {
		return nil
	}
	return &Bookmark{
		Type:          BookmarkBreakthrough,
		Generation:    stats.Generation,
		Subpopulation: stats.Subpopulation,
		Fitness:       stats.BestEver,
		Description:   fmt.Sprintf("Best fitness up %.1f%% since generation %d", gain*100, old.Generation),
	}
}

func (bd *BookmarkDetector) checkStagnation(stats GenerationStats) *Bookmark {
	if bd.stagnation <= 0 || bd.stagnantFired {
		return nil
	}
	since := stats.Generation - bd.lastImprovement
	if since < bd.stagnation {
		return nil
	}

	// Trigger once per plateau
	bd.stagnantFired = true
	return &Bookmark{
		Type:          BookmarkStagnation,
		Generation:    stats.Generation,
		Subpopulation: stats.Subpopulation,
		Fitness:       bd.bestEver,
		Description:   fmt.Sprintf("No improvement for %d generations", since),
	}
}

func (bd *BookmarkDetector) checkReefFull(stats GenerationStats) *Bookmark {
	if stats.Free > 0 {
		bd.full[stats.Subpopulation] = false
		return nil
	}
	if bd.full[stats.Subpopulation] {
		return nil
	}

	bd.full[stats.Subpopulation] = true
	return &Bookmark{
		Type:          BookmarkReefFull,
		Generation:    stats.Generation,
		Subpopulation: stats.Subpopulation,
		Fitness:       stats.BestFitness,
		Description:   fmt.Sprintf("Reef %d has no free slots (%d occupied)", stats.Subpopulation, stats.Occupied),
	}
}
