// Package parquetfile implements a columnar flat-file sink producing one
// timestamped Parquet file per run.
package parquetfile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	local "github.com/xitongsys/parquet-go-source/local"
	pw "github.com/xitongsys/parquet-go/writer"

	"giftetl/internal/storage"
	"giftetl/pkg/table"
)

func init() {
	storage.Register("parquet", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		return New(cfg), nil
	})
}

// Sink writes tables to <dir>/<prefix>_YYYYMMDD_HHMMSS.parquet.
type Sink struct {
	dir    string
	prefix string
	log    *slog.Logger
	now    func() time.Time
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

func (s *Sink) Name() string { return "parquet:" + filepath.Join(s.dir, s.prefix) }

func (s *Sink) Close() error { return nil }

func (s *Sink) Write(ctx context.Context, t table.Table) (int64, error) {
	if t.Len() == 0 {
		s.log.Warn("table is empty, nothing to write", "sink", s.Name())
		return 0, nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return 0, fmt.Errorf("parquet: mkdir: %w", err)
	}
	name := fmt.Sprintf("%s_%s.parquet", s.prefix, s.now().UTC().Format("20060102_150405"))
	path := filepath.Join(s.dir, name)

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return 0, fmt.Errorf("parquet: open %s: %w", path, err)
	}
	defs := storage.InferColumns(t)
	writer, err := pw.NewJSONWriter(schemaJSON(defs), fw, 4)
	if err != nil {
		fw.Close()
		return 0, fmt.Errorf("parquet: writer init: %w", err)
	}

	var written int64
	for i := 0; i < t.Len(); i++ {
		r := t.Row(i)
		rec := make(map[string]any, len(defs))
		for _, d := range defs {
			v := r[d.Name]
			if v == nil {
				continue
			}
			if ts, ok := v.(time.Time); ok {
				v = ts.UTC().Format(time.RFC3339)
			}
			rec[d.Name] = v
		}
		encoded, err := json.Marshal(rec)
		if err != nil {
			writer.WriteStop()
			fw.Close()
			return written, fmt.Errorf("parquet: encode row %d: %w", i, err)
		}
		if err := writer.Write(string(encoded)); err != nil {
			writer.WriteStop()
			fw.Close()
			return written, fmt.Errorf("parquet: write row %d: %w", i, err)
		}
		written++
	}
	if err := writer.WriteStop(); err != nil {
		fw.Close()
		return written, fmt.Errorf("parquet: finalize: %w", err)
	}
	if err := fw.Close(); err != nil {
		return written, fmt.Errorf("parquet: close: %w", err)
	}
	s.log.Info("wrote rows", "sink", s.Name(), "rows", written, "path", path)
	return written, nil
}

// schemaJSON builds the JSON schema consumed by parquet-go's JSONWriter.
// Strings and timestamps land as UTF8 byte arrays.
func schemaJSON(defs []storage.ColumnDef) string {
	type field struct {
		Tag string `json:"Tag"`
	}
	type schema struct {
		Tag    string  `json:"Tag"`
		Fields []field `json:"Fields"`
	}
	sc := schema{Tag: "name=schema, repetitiontype=REQUIRED"}
	for _, d := range defs {
		tag := "name=" + d.Name + ", repetitiontype=OPTIONAL, type="
		switch d.Kind {
		case table.KindFloat:
			tag += "DOUBLE"
		case table.KindInt:
			tag += "INT64"
		case table.KindBool:
			tag += "BOOLEAN"
		default:
			tag += "BYTE_ARRAY, convertedtype=UTF8"
		}
		sc.Fields = append(sc.Fields, field{Tag: tag})
	}
	b, _ := json.Marshal(sc)
	return string(b)
}
