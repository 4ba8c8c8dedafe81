// Package csvfile implements a flat-file sink writing one timestamped CSV
// per pipeline run, so every run leaves a unique, traceable artifact.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"giftetl/internal/storage"
	"giftetl/pkg/table"
)

func init() {
	storage.Register("csv", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		return New(cfg), nil
	})
}

// Sink writes tables to <dir>/<prefix>_YYYYMMDD_HHMMSS.csv.
type Sink struct {
	dir    string
	prefix string
	log    *slog.Logger

	// now is the clock naming output files; tests override it.
	now func() time.Time
}

func New(cfg storage.Config) *Sink {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "etl_output"
	}
	dir := cfg.Dir
	if dir == "" {
		dir = "output"
	}
	return &Sink{dir: dir, prefix: prefix, log: cfg.Log, now: time.Now}
}

func (s *Sink) Name() string { return "csv:" + filepath.Join(s.dir, s.prefix) }

func (s *Sink) Close() error { return nil }

func (s *Sink) Write(ctx context.Context, t table.Table) (int64, error) {
	if t.Len() == 0 {
		s.log.Warn("table is empty, nothing to write", "sink", s.Name())
		return 0, nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return 0, fmt.Errorf("csv: mkdir: %w", err)
	}
	name := fmt.Sprintf("%s_%s.csv", s.prefix, s.now().UTC().Format("20060102_150405"))
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("csv: create: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	cols := t.Columns()
	if err := w.Write(cols); err != nil {
		return 0, fmt.Errorf("csv: write header: %w", err)
	}
	var written int64
	record := make([]string, len(cols))
	for i := 0; i < t.Len(); i++ {
		r := t.Row(i)
		for j, c := range cols {
			record[j] = table.CellString(r[c])
		}
		if err := w.Write(record); err != nil {
			return written, fmt.Errorf("csv: write row %d: %w", i, err)
		}
		written++
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return written, fmt.Errorf("csv: flush: %w", err)
	}
	s.log.Info("wrote rows", "sink", s.Name(), "rows", written, "path", path)
	return written, nil
}

// LatestFile returns the most recently named output for this prefix, or ""
// when none exists. The timestamped naming makes lexical order
// chronological.
func (s *Sink) LatestFile() string {
	matches, err := filepath.Glob(filepath.Join(s.dir, s.prefix+"_*.csv"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	return matches[len(matches)-1]
}
