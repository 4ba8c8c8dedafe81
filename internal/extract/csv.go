package extract

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"giftetl/pkg/table"
)

// CSVConfig configures a CSV file source.
type CSVConfig struct {
	Path      string
	Delimiter string // single character; empty means comma

	// HeaderMap optionally maps an original header to a canonical column
	// name, e.g. {"PČV": "pcv"}.
	HeaderMap map[string]string
}

// CSVExtractor reads a local CSV file into a table. The reader is tolerant
// of messy exports: lazy quotes, leading spaces, and variable field counts
// (short rows pad with nulls, long rows truncate to the header width).
// Empty cells become nulls; all other cells arrive as strings for the
// cleaner to coerce.
type CSVExtractor struct {
	cfg CSVConfig
}

func NewCSVExtractor(cfg CSVConfig) *CSVExtractor { return &CSVExtractor{cfg: cfg} }

func (e *CSVExtractor) Name() string { return "csv:" + e.cfg.Path }

func (e *CSVExtractor) Extract(ctx context.Context) (table.Table, error) {
	f, err := os.Open(e.cfg.Path)
	if err != nil {
		return table.Table{}, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ','
	if e.cfg.Delimiter != "" {
		r.Comma = rune(e.cfg.Delimiter[0])
	}
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return table.Empty(), nil
	}
	if err != nil {
		return table.Table{}, fmt.Errorf("read header: %w", err)
	}
	cols := make([]string, len(header))
	for i, h := range header {
		name := strings.TrimSpace(stripBOM(h))
		if mapped, ok := e.cfg.HeaderMap[name]; ok && mapped != "" {
			name = mapped
		}
		cols[i] = name
	}

	var rows []table.Row
	for {
		select {
		case <-ctx.Done():
			return table.Table{}, ctx.Err()
		default:
		}
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return table.Table{}, fmt.Errorf("read row: %w", err)
		}
		row := make(table.Row, len(cols))
		for i, c := range cols {
			if i < len(rec) && rec[i] != "" {
				row[c] = rec[i]
			} else {
				row[c] = nil
			}
		}
		rows = append(rows, row)
	}
	return table.New(cols, rows)
}

// stripBOM drops a UTF-8 byte order mark from the first header cell; Excel
// exports routinely carry one.
func stripBOM(s string) string {
	return strings.TrimPrefix(s, "\uFEFF")
}
