package storage

import (
	"time"

	"giftetl/pkg/table"
)

// ColumnDef is a dialect-neutral column definition inferred from a table.
type ColumnDef struct {
	Name string
	Kind table.Kind
}

// InferColumns derives column definitions from a table's declared columns
// and inferred kinds. Columns with no usable kind (all-null or mixed) fall
// back to KindString so every backend can store them as text.
func InferColumns(t table.Table) []ColumnDef {
	cols := t.Columns()
	defs := make([]ColumnDef, len(cols))
	for i, c := range cols {
		k := t.ColumnKind(c)
		if k == table.KindEmpty || k == table.KindMixed {
			k = table.KindString
		}
		defs[i] = ColumnDef{Name: c, Kind: k}
	}
	return defs
}

// BindValue converts a cell into a driver-friendly value for database/sql
// backends: times become RFC3339 text and bools become 0/1 integers, the
// lowest common denominator across sqlite and mysql.
func BindValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	default:
		return v
	}
}

// RowValues flattens the i'th row into a slice aligned with the table's
// column order, applying conv to every cell (pass nil for identity).
func RowValues(t table.Table, i int, conv func(any) any) []any {
	cols := t.Columns()
	r := t.Row(i)
	out := make([]any, len(cols))
	for j, c := range cols {
		v := r[c]
		if conv != nil {
			v = conv(v)
		}
		out[j] = v
	}
	return out
}
