// Package postgres implements a Postgres sink using pgx v5. Rows are loaded
// with the COPY protocol via pgx.CopyFrom.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"giftetl/internal/storage"
	"giftetl/pkg/table"
)

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		return Open(ctx, cfg)
	})
}

// Sink writes tables to a Postgres table.
type Sink struct {
	pool  *pgxpool.Pool
	table string
	mode  storage.WriteMode
	log   *slog.Logger
}

func Open(ctx context.Context, cfg storage.Config) (*Sink, error) {
	if cfg.Table == "" {
		return nil, fmt.Errorf("postgres: table must not be empty")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: pool: %w", err)
	}
	return &Sink{pool: pool, table: cfg.Table, mode: cfg.Mode, log: cfg.Log}, nil
}

func (s *Sink) Name() string { return "postgres:" + s.table }

func (s *Sink) Close() error {
	s.pool.Close()
	return nil
}

func (s *Sink) Write(ctx context.Context, t table.Table) (int64, error) {
	if t.Len() == 0 {
		s.log.Warn("table is empty, nothing to write", "sink", s.Name())
		return 0, nil
	}
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: acquire: %w", err)
	}
	defer conn.Release()

	if err := s.prepareTable(ctx, conn, t); err != nil {
		return 0, err
	}

	cols := t.Columns()
	rows := make([][]any, t.Len())
	for i := 0; i < t.Len(); i++ {
		rows[i] = storage.RowValues(t, i, nil)
	}
	written, err := conn.CopyFrom(ctx, tableIdent(s.table), cols, pgx.CopyFromRows(rows))
	if err != nil {
		return written, fmt.Errorf("postgres: copy: %w", err)
	}
	s.log.Info("wrote rows", "sink", s.Name(), "rows", written)
	return written, nil
}

func (s *Sink) prepareTable(ctx context.Context, conn *pgxpool.Conn, t table.Table) error {
	var regclass *string
	if err := conn.QueryRow(ctx, "SELECT to_regclass($1)::text", s.table).Scan(&regclass); err != nil {
		return fmt.Errorf("postgres: table lookup: %w", err)
	}
	exists := regclass != nil

	switch s.mode {
	case storage.ModeFail:
		if exists {
			return fmt.Errorf("postgres: table %s already exists", s.table)
		}
	case storage.ModeReplace:
		if exists {
			if _, err := conn.Exec(ctx, "DROP TABLE "+fqIdent(s.table)); err != nil {
				return fmt.Errorf("postgres: drop: %w", err)
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
		parts[i] = pgIdent(d.Name) + " " + pgType(d.Kind)
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", fqIdent(s.table), strings.Join(parts, ", "))
	if _, err := conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("postgres: create: %w", err)
	}
	return nil
}

func pgType(k table.Kind) string {
	switch k {
	case table.KindInt:
		return "BIGINT"
	case table.KindFloat:
		return "DOUBLE PRECISION"
	case table.KindBool:
		return "BOOLEAN"
	case table.KindTime:
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}

func pgIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// fqIdent quotes a possibly schema-qualified name ("public.master_table").
func fqIdent(s string) string {
	parts := strings.SplitN(s, ".", 2)
	for i, p := range parts {
		parts[i] = pgIdent(p)
	}
	return strings.Join(parts, ".")
}

// tableIdent builds a pgx.Identifier for CopyFrom from a possibly
// schema-qualified name.
func tableIdent(s string) pgx.Identifier {
	return pgx.Identifier(strings.SplitN(s, ".", 2))
}
