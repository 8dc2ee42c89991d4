package telemetry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/windglobe/config"
)

// csvSink appends rows to a CSV file that is created, with a header, on the
// first write.
type csvSink[T any] struct {
	path string
	f    *os.File
}

func (s *csvSink[T]) write(rows ...T) error {
	if s.f != nil {
		return gocsv.MarshalWithoutHeaders(rows, s.f)
	}
	f, err := os.Create(s.path)
	if err != nil {
		return err
	}
	s.f = f
	return gocsv.Marshal(rows, f)
}

func (s *csvSink[T]) close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// OutputManager writes a run directory: config.yaml, frames.csv with one row
// per layer stats window, perf.csv and bookmarks.csv.
// A nil *OutputManager discards everything.
type OutputManager struct {
	dir       string
	frames    csvSink[FrameStats]
	perf      csvSink[PerfStatsCSV]
	bookmarks csvSink[Bookmark]
}

// NewOutputManager creates dir. It returns nil, nil when dir is empty.
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &OutputManager{
		dir:       dir,
		frames:    csvSink[FrameStats]{path: filepath.Join(dir, "frames.csv")},
		perf:      csvSink[PerfStatsCSV]{path: filepath.Join(dir, "perf.csv")},
		bookmarks: csvSink[Bookmark]{path: filepath.Join(dir, "bookmarks.csv")},
	}, nil
}

// WriteConfig snapshots cfg as config.yaml.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteStats appends a stats window to frames.csv.
func (om *OutputManager) WriteStats(stats FrameStats) error {
	if om == nil {
		return nil
	}
	if err := om.frames.write(stats); err != nil {
		return fmt.Errorf("writing stats: %w", err)
	}
	return nil
}

// WritePerf appends the perf window ending at frame windowEnd to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd uint64) error {
	if om == nil {
		return nil
	}
	if err := om.perf.write(stats.ToCSV(windowEnd)); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteBookmark appends b to bookmarks.csv.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	if om == nil {
		return nil
	}
	if err := om.bookmarks.write(b); err != nil {
		return fmt.Errorf("writing bookmark: %w", err)
	}
	return nil
}

// Dir returns the output directory, or "" when output is disabled.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close closes every file written so far.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	return errors.Join(om.frames.close(), om.perf.close(), om.bookmarks.close())
}
