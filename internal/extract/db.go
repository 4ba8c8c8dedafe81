package extract

import (
	"context"
	"database/sql"
	"fmt"

	// Drivers available to the "db" source kind. The sink packages register
	// the same drivers; the blank imports here keep this extractor usable
	// in binaries that wire no database sink.
	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"giftetl/pkg/table"
)

// DBConfig configures a SQL database source.
type DBConfig struct {
	Driver string // database/sql driver name, e.g. "sqlite", "mysql"
	DSN    string
	Query  string
}

// DBExtractor runs a query against a SQL database and materializes the
// result set as a table. Column order follows the result set; []byte cells
// arrive as strings.
type DBExtractor struct {
	cfg DBConfig
}

func NewDBExtractor(cfg DBConfig) *DBExtractor { return &DBExtractor{cfg: cfg} }

func (e *DBExtractor) Name() string { return "db:" + e.cfg.Driver }

func (e *DBExtractor) Extract(ctx context.Context) (table.Table, error) {
	db, err := sql.Open(e.cfg.Driver, e.cfg.DSN)
	if err != nil {
		return table.Table{}, fmt.Errorf("open %s: %w", e.cfg.Driver, err)
	}
	defer db.Close()

	rs, err := db.QueryContext(ctx, e.cfg.Query)
	if err != nil {
		return table.Table{}, fmt.Errorf("query: %w", err)
	}
	defer rs.Close()

	cols, err := rs.Columns()
	if err != nil {
		return table.Table{}, err
	}

	var rows []table.Row
	for rs.Next() {
		cells := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return table.Table{}, fmt.Errorf("scan: %w", err)
		}
		row := make(table.Row, len(cols))
		for i, c := range cols {
			if b, ok := cells[i].([]byte); ok {
				row[c] = string(b)
			} else {
				row[c] = cells[i]
			}
		}
		rows = append(rows, row)
	}
	if err := rs.Err(); err != nil {
		return table.Table{}, err
	}
	return table.New(cols, rows)
}
