// Package mysql implements a MySQL sink using database/sql and multi-row
// INSERT statements, MySQL's closest analogue to a bulk load.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"giftetl/internal/storage"
	"giftetl/pkg/table"
)

// insertBatchRows bounds how many rows go into one multi-row INSERT, well
// under MySQL's default max_allowed_packet for typical row widths.
const insertBatchRows = 500

func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		return Open(ctx, cfg)
	})
}

// Sink writes tables to a MySQL table.
type Sink struct {
	db    *sql.DB
	table string
	mode  storage.WriteMode
	log   *slog.Logger
}

func Open(ctx context.Context, cfg storage.Config) (*Sink, error) {
	if cfg.Table == "" {
		return nil, fmt.Errorf("mysql: table must not be empty")
	}
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}
	return &Sink{db: db, table: cfg.Table, mode: cfg.Mode, log: cfg.Log}, nil
}

func (s *Sink) Name() string { return "mysql:" + s.table }

func (s *Sink) Close() error { return s.db.Close() }

func (s *Sink) Write(ctx context.Context, t table.Table) (int64, error) {
	if t.Len() == 0 {
		s.log.Warn("table is empty, nothing to write", "sink", s.Name())
		return 0, nil
	}
	if err := s.prepareTable(ctx, t); err != nil {
		return 0, err
	}

	cols := t.Columns()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",") + ")"

	var written int64
	for start := 0; start < t.Len(); start += insertBatchRows {
		end := start + insertBatchRows
		if end > t.Len() {
			end = t.Len()
		}
		n := end - start
		args := make([]any, 0, n*len(cols))
		for i := start; i < end; i++ {
			args = append(args, storage.RowValues(t, i, storage.BindValue)...)
		}
		stmt := fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES %s",
			quoteIdent(s.table),
			strings.Join(quoted, ", "),
			strings.TrimSuffix(strings.Repeat(rowPlaceholder+",", n), ","),
		)
		if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
			return written, fmt.Errorf("mysql: insert batch at %d: %w", start, err)
		}
		written += int64(n)
	}
	s.log.Info("wrote rows", "sink", s.Name(), "rows", written)
	return written, nil
}

func (s *Sink) prepareTable(ctx context.Context, t table.Table) error {
	var name string
	err := s.db.QueryRowContext(ctx,
		"SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?",
		s.table,
	).Scan(&name)
	exists := err == nil
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("mysql: table lookup: %w", err)
	}

	switch s.mode {
	case storage.ModeFail:
		if exists {
			return fmt.Errorf("mysql: table %s already exists", s.table)
		}
	case storage.ModeReplace:
		if exists {
			if _, err := s.db.ExecContext(ctx, "DROP TABLE "+quoteIdent(s.table)); err != nil {
				return fmt.Errorf("mysql: drop: %w", err)
			}
			exists = false
		}
	}
	if exists {
		return nil
	}

	defs := storage.InferColumns(t)
	parts := make([]string, len(defs))
	for i, d := range defs {
		parts[i] = quoteIdent(d.Name) + " " + sqlType(d.Kind)
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(s.table), strings.Join(parts, ", "))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("mysql: create: %w", err)
	}
	return nil
}

func sqlType(k table.Kind) string {
	switch k {
	case table.KindInt:
		return "BIGINT"
	case table.KindFloat:
		return "DOUBLE"
	case table.KindBool:
		return "TINYINT(1)"
	case table.KindTime:
		// RFC3339 text keeps the bind path shared with sqlite.
		return "VARCHAR(35)"
	default:
		return "TEXT"
	}
}

func quoteIdent(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}
