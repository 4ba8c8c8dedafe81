// Package sqlite implements a SQLite sink using database/sql and the
// modernc.org driver. Rows are written with batched INSERTs inside a single
// transaction.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"giftetl/internal/storage"
	"giftetl/pkg/table"
)

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		return Open(ctx, cfg)
	})
}

// Sink writes tables to a SQLite database file.
type Sink struct {
	db    *sql.DB
	table string
	mode  storage.WriteMode
	log   *slog.Logger
}

// Open connects to the database named by cfg.DSN and pings it so invalid
// paths fail fast.
func Open(ctx context.Context, cfg storage.Config) (*Sink, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	if cfg.Table == "" {
		return nil, fmt.Errorf("sqlite: table must not be empty")
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &Sink{db: db, table: cfg.Table, mode: cfg.Mode, log: cfg.Log}, nil
}

func (s *Sink) Name() string { return "sqlite:" + s.table }

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
	placeholders := make([]string, len(cols))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insert := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(s.table), identList(cols), strings.Join(placeholders, ", "),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("sqlite: prepare: %w", err)
	}
	defer stmt.Close()

	var written int64
	for i := 0; i < t.Len(); i++ {
		if _, err := stmt.ExecContext(ctx, storage.RowValues(t, i, storage.BindValue)...); err != nil {
			tx.Rollback()
			return written, fmt.Errorf("sqlite: insert row %d: %w", i, err)
		}
		written++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	s.log.Info("wrote rows", "sink", s.Name(), "rows", written)
	return written, nil
}

// prepareTable applies the write mode: replace drops first, fail errors on
// an existing table, append creates only when missing.
func (s *Sink) prepareTable(ctx context.Context, t table.Table) error {
	exists, err := s.tableExists(ctx)
	if err != nil {
		return err
	}
	switch s.mode {
	case storage.ModeFail:
		if exists {
			return fmt.Errorf("sqlite: table %s already exists", s.table)
		}
	case storage.ModeReplace:
		if exists {
			if _, err := s.db.ExecContext(ctx, "DROP TABLE "+quoteIdent(s.table)); err != nil {
				return fmt.Errorf("sqlite: drop: %w", err)
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
		return fmt.Errorf("sqlite: create: %w", err)
	}
	return nil
}

func (s *Sink) tableExists(ctx context.Context) (bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", s.table,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: table lookup: %w", err)
	}
	return true, nil
}

func sqlType(k table.Kind) string {
	switch k {
	case table.KindInt, table.KindBool:
		return "INTEGER"
	case table.KindFloat:
		return "REAL"
	default:
		// strings and timestamps both land as TEXT; timestamps are RFC3339.
		return "TEXT"
	}
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func identList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}
