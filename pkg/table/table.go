// Package table defines the tabular value exchanged between pipeline stages.
//
// A Table is an ordered list of named columns plus row-aligned cells. Cells
// are dynamically typed: nil (null), string, int64, float64, bool, or
// time.Time. Every row carries a value (possibly nil) for every declared
// column. Tables are value-like: stages receive a table, build a new one, and
// hand it on; no stage mutates a table it did not build. An empty table (zero
// rows, possibly zero columns) is valid everywhere.
package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
)

// Row maps column name to cell value.
type Row = map[string]any

// Kind tags the logical type of a cell or column.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindTime   Kind = "time"

	// KindEmpty is the column kind when no non-null cell exists.
	KindEmpty Kind = "empty"
	// KindMixed is the column kind when non-null cells disagree on type.
	KindMixed Kind = "mixed"
)

// Table is the unit of data flowing through the pipeline.
type Table struct {
	cols []string
	rows []Row
}

// Empty returns a table with no rows and no columns.
func Empty() Table { return Table{} }

// New builds a table from an ordered column list and rows. Column names must
// be unique. Cells for declared columns missing from a row become nil; row
// keys outside the column list are dropped.
func New(columns []string, rows []Row) (Table, error) {
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, dup := seen[c]; dup {
			return Table{}, fmt.Errorf("table: duplicate column %q", c)
		}
		seen[c] = struct{}{}
	}
	t := Table{cols: append([]string(nil), columns...)}
	t.rows = make([]Row, 0, len(rows))
	for _, r := range rows {
		nr := make(Row, len(columns))
		for _, c := range columns {
			nr[c] = normalizeCell(r[c])
		}
		t.rows = append(t.rows, nr)
	}
	return t, nil
}

// MustNew is New for literals in tests and sample data; it panics on error.
func MustNew(columns []string, rows []Row) Table {
	t, err := New(columns, rows)
	if err != nil {
		panic(err)
	}
	return t
}

// normalizeCell widens numeric cell types so equality and kind checks are
// stable regardless of how a cell was produced (int vs int64, float32...).
func normalizeCell(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case float32:
		return float64(x)
	default:
		return v
	}
}

// Len returns the row count.
func (t Table) Len() int { return len(t.rows) }

// Columns returns a copy of the ordered column list.
func (t Table) Columns() []string { return append([]string(nil), t.cols...) }

// HasColumn reports whether the named column is declared.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.cols {
		if c == name {
			return true
		}
	}
	return false
}

// Row returns the i'th row. The returned map is shared with the table;
// callers must treat it as read-only and use Clone to obtain ownership.
func (t Table) Row(i int) Row { return t.rows[i] }

// Cell returns the value at (row, column) and whether the column exists.
func (t Table) Cell(i int, col string) (any, bool) {
	if i < 0 || i >= len(t.rows) || !t.HasColumn(col) {
		return nil, false
	}
	return t.rows[i][col], true
}

// Clone returns a deep, independently owned copy.
func (t Table) Clone() Table {
	c := Table{cols: append([]string(nil), t.cols...)}
	c.rows = make([]Row, len(t.rows))
	for i, r := range t.rows {
		nr := make(Row, len(r))
		for k, v := range r {
			nr[k] = v
		}
		c.rows[i] = nr
	}
	return c
}

// Select projects the table to the requested columns, in the requested
// order. Requested columns absent from the table are silently omitted and
// returned in the second value so the caller can surface them.
func (t Table) Select(columns []string) (Table, []string) {
	var keep, omitted []string
	for _, c := range columns {
		if t.HasColumn(c) {
			keep = append(keep, c)
		} else {
			omitted = append(omitted, c)
		}
	}
	out := Table{cols: keep}
	out.rows = make([]Row, len(t.rows))
	for i, r := range t.rows {
		nr := make(Row, len(keep))
		for _, c := range keep {
			nr[c] = r[c]
		}
		out.rows[i] = nr
	}
	return out, omitted
}

// Append concatenates the rows of other under the union of both column sets
// (this table's columns first, then columns only other declares). Cells
// absent on either side become nil.
func (t Table) Append(other Table) Table {
	cols := append([]string(nil), t.cols...)
	for _, c := range other.cols {
		if !t.HasColumn(c) {
			cols = append(cols, c)
		}
	}
	out := Table{cols: cols}
	out.rows = make([]Row, 0, len(t.rows)+len(other.rows))
	add := func(src Row) {
		nr := make(Row, len(cols))
		for _, c := range cols {
			nr[c] = src[c]
		}
		out.rows = append(out.rows, nr)
	}
	for _, r := range t.rows {
		add(r)
	}
	for _, r := range other.rows {
		add(r)
	}
	return out
}

// ColumnKind infers the kind of a column from its non-null cells: the shared
// kind if all agree, KindMixed if they disagree, KindEmpty if none exist.
// Unknown columns report KindEmpty.
func (t Table) ColumnKind(name string) Kind {
	var k Kind
	for _, r := range t.rows {
		v := r[name]
		if v == nil {
			continue
		}
		ck := kindOf(v)
		if k == "" {
			k = ck
		} else if k != ck {
			return KindMixed
		}
	}
	if k == "" {
		return KindEmpty
	}
	return k
}

func kindOf(v any) Kind {
	switch v.(type) {
	case string:
		return KindString
	case int64:
		return KindInt
	case float64:
		return KindFloat
	case bool:
		return KindBool
	case time.Time:
		return KindTime
	default:
		return KindMixed
	}
}

// NullCount returns the number of nil cells in the named column.
func (t Table) NullCount(name string) int {
	n := 0
	for _, r := range t.rows {
		if r[name] == nil {
			n++
		}
	}
	return n
}

// DuplicateRows returns the indexes of rows that are full-row equal to an
// earlier row (every column compared; the first occurrence is not counted).
func (t Table) DuplicateRows() []int {
	var dups []int
	seen := newFingerprintSet(len(t.rows))
	for i, r := range t.rows {
		if seen.add(t.fingerprint(r)) {
			dups = append(dups, i)
		}
	}
	return dups
}

// DuplicateSampleLimit bounds diagnostic samples so a bad batch cannot
// flood logs.
const DuplicateSampleLimit = 10

// DuplicateValues counts cells in the named column whose value already
// occurred in an earlier row, and returns up to DuplicateSampleLimit of the
// distinct duplicated values rendered as strings. Nil cells are ignored.
func (t Table) DuplicateValues(name string) (int, []string) {
	count := 0
	first := make(map[string]struct{}, len(t.rows))
	sampled := make(map[string]struct{})
	var sample []string
	for _, r := range t.rows {
		v := r[name]
		if v == nil {
			continue
		}
		key := encodeCell(v)
		if _, ok := first[key]; !ok {
			first[key] = struct{}{}
			continue
		}
		count++
		if len(sample) < DuplicateSampleLimit {
			if _, ok := sampled[key]; !ok {
				sampled[key] = struct{}{}
				sample = append(sample, CellString(v))
			}
		}
	}
	return count, sample
}

// CellString renders a cell for diagnostics and flat-file output. Nil
// renders as the empty string.
func CellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

// fingerprint encodes a full row into a stable string keyed by column order.
func (t Table) fingerprint(r Row) string {
	var b strings.Builder
	for i, c := range t.cols {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		b.WriteString(encodeCell(r[c]))
	}
	return b.String()
}

// encodeCell is type-prefixed so "1" (string) and 1 (int) never collide.
func encodeCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "n"
	case string:
		return "s:" + x
	case int64:
		return "i:" + strconv.FormatInt(x, 10)
	case float64:
		return "f:" + strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return "b:" + strconv.FormatBool(x)
	case time.Time:
		return "t:" + x.UTC().Format(time.RFC3339Nano)
	default:
		return "x:" + fmt.Sprint(x)
	}
}

// fingerprintSet deduplicates row fingerprints via xxh3 buckets; the full
// fingerprint is kept per bucket so hash collisions cannot produce false
// duplicates.
type fingerprintSet struct {
	buckets map[uint64][]string
}

func newFingerprintSet(capacity int) *fingerprintSet {
	return &fingerprintSet{buckets: make(map[uint64][]string, capacity)}
}

// add reports whether fp was already present, inserting it otherwise.
func (s *fingerprintSet) add(fp string) bool {
	h := xxh3.HashString(fp)
	for _, have := range s.buckets[h] {
		if have == fp {
			return true
		}
	}
	s.buckets[h] = append(s.buckets[h], fp)
	return false
}
