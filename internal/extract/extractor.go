// Package extract supplies raw tables to the pipeline. Extractors are thin
// I/O collaborators: whatever the source (file, page, API, database), the
// pipeline only ever sees a fully materialized table, possibly empty.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"giftetl/pkg/table"
)

// Extractor pulls a raw table from one logical source.
type Extractor interface {
	Name() string
	Extract(ctx context.Context) (table.Table, error)
}

// Run executes an extractor inside its boundary: a failed or panicking
// extraction logs the cause and yields an empty table so the pipeline can
// decide how to proceed with a well-defined value.
func Run(ctx context.Context, e Extractor, log *slog.Logger) (t table.Table) {
	log.Info("starting extraction", "source", e.Name())
	defer func() {
		if r := recover(); r != nil {
			log.Error("extraction panicked, returning empty table", "source", e.Name(), "err", fmt.Sprint(r))
			t = table.Empty()
		}
	}()
	t, err := e.Extract(ctx)
	if err != nil {
		log.Error("extraction failed, returning empty table", "source", e.Name(), "err", err)
		return table.Empty()
	}
	log.Info("extraction complete", "source", e.Name(), "rows", t.Len())
	return t
}

// rowsFromMaps assembles a table from loosely keyed records. Column order
// is the sorted union of keys; map iteration order would not be stable
// across runs.
func rowsFromMaps(recs []map[string]any) (table.Table, error) {
	seen := map[string]struct{}{}
	var cols []string
	for _, r := range recs {
		for k := range r {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	rows := make([]table.Row, len(recs))
	for i, r := range recs {
		rows[i] = table.Row(r)
	}
	return table.New(cols, rows)
}
