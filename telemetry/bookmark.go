package telemetry

import (
	"fmt"
	"log/slog"
	"math"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkReseedStorm BookmarkType = "reseed_storm"
	BookmarkPolarPileup BookmarkType = "polar_pileup"
	BookmarkStall       BookmarkType = "stall"
	BookmarkSteady      BookmarkType = "steady"
)

// Share of grid cells poleward of 60°; rows are uniform in latitude.
const polarAreaShare = 60.0 / 180.0

// steadyWindows is how many consecutive windows with a flat median life
// count as steady.
const steadyWindows = 5

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Layer       string       `csv:"layer"`
	Frame       uint64       `csv:"frame"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"layer", b.Layer,
		"frame", b.Frame,
		"description", b.Description,
	)
}

// BookmarkDetector flags unusual stats windows of one layer.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []FrameStats
	historySize int
	historyIdx  int
	historyFull bool

	steadyCount int
	steadySent  bool
	epoch       uint64
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < steadyWindows {
		historySize = steadyWindows
	}
	return &BookmarkDetector{
		history:     make([]FrameStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
// A new epoch clears the history.
func (bd *BookmarkDetector) Check(stats FrameStats) []Bookmark {
	if stats.Epoch != bd.epoch {
		bd.reset(stats.Epoch)
	}

	var bookmarks []Bookmark
	for _, check := range []func(FrameStats) *Bookmark{
		bd.checkReseedStorm,
		bd.checkPolarPileup,
		bd.checkStall,
		bd.checkSteady,
	} {
		if b := check(stats); b != nil {
			b.Layer = stats.Layer
			b.Frame = stats.WindowEnd
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)
	return bookmarks
}

func (bd *BookmarkDetector) reset(epoch uint64) {
	bd.historyIdx = 0
	bd.historyFull = false
	bd.steadyCount = 0
	bd.steadySent = false
	bd.epoch = epoch
}

func (bd *BookmarkDetector) addToHistory(stats FrameStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []FrameStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

// average returns the mean of field over the history, or false when the
// history is too short to judge.
func (bd *BookmarkDetector) average(field func(FrameStats) float64) (float64, bool) {
	history := bd.getHistory()
	if len(history) < 3 {
		return 0, false
	}
	var sum float64
	for _, h := range history {
		sum += field(h)
	}
	return sum / float64(len(history)), true
}

func (bd *BookmarkDetector) checkReseedStorm(stats FrameStats) *Bookmark {
	avg, ok := bd.average(func(s FrameStats) float64 { return s.ReseedRate })
	if !ok || avg <= 0 || stats.ReseedRate <= 2*avg {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkReseedStorm,
		Description: fmt.Sprintf("Reseed rate %.4f is %.1fx the rolling average", stats.ReseedRate, stats.ReseedRate/avg),
	}
}

func (bd *BookmarkDetector) checkPolarPileup(stats FrameStats) *Bookmark {
	avg, ok := bd.average(func(s FrameStats) float64 { return s.PolarFrac })
	if !ok || stats.PolarFrac <= 1.5*polarAreaShare || stats.PolarFrac <= 1.5*avg {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkPolarPileup,
		Description: fmt.Sprintf("%.0f%% of tracers poleward of 60°", stats.PolarFrac*100),
	}
}

func (bd *BookmarkDetector) checkStall(stats FrameStats) *Bookmark {
	avg, ok := bd.average(func(s FrameStats) float64 { return s.SpeedMean })
	if !ok || avg <= 0 || stats.SpeedMean >= 0.25*avg {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkStall,
		Description: fmt.Sprintf("Mean speed dropped to %.0f%% of the rolling average", stats.SpeedMean/avg*100),
	}
}

// checkSteady fires once per epoch when the median life fraction stays
// within 5% for steadyWindows windows in a row.
func (bd *BookmarkDetector) checkSteady(stats FrameStats) *Bookmark {
	history := bd.getHistory()
	if len(history) == 0 || bd.steadySent {
		return nil
	}
	prevIdx := (bd.historyIdx - 1 + bd.historySize) % bd.historySize
	prev := bd.history[prevIdx].LifeP50
	if prev > 0 && math.Abs(stats.LifeP50-prev)/prev <= 0.05 {
		bd.steadyCount++
	} else {
		bd.steadyCount = 0
	}
	if bd.steadyCount < steadyWindows {
		return nil
	}
	bd.steadySent = true
	return &Bookmark{
		Type:        BookmarkSteady,
		Description: fmt.Sprintf("Median life fraction settled at %.2f", stats.LifeP50),
	}
}
