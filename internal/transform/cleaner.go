package transform

import (
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"giftetl/pkg/table"
)

// CleanerConfig configures the cleaning stage. The zero value runs only the
// unconditional steps (column normalization, string trimming, duplicate-row
// removal).
type CleanerConfig struct {
	// RequiredColumns lists columns that must be non-null for a row to
	// survive. A required column absent from the table is ignored here;
	// flagging its absence is the schema validator's job.
	RequiredColumns []string

	// DateColumns lists columns to coerce to time.Time. Unparseable values
	// become null rather than failing the stage.
	DateColumns []string

	// NullThreshold, when set, additionally drops rows whose fraction of
	// null cells across all columns exceeds 1 - *NullThreshold.
	// For example 0.5 drops rows missing more than half their values.
	NullThreshold *float64

	// DateLayouts overrides the layouts tried when parsing date columns.
	// Empty means DefaultDateLayouts.
	DateLayouts []string
}

// Cleaner brings a raw table to a canonical, deduplicated,
// null-policy-enforced state. Five ordered steps: normalize column names,
// trim string cells, drop exact duplicate rows, enforce required columns,
// parse date columns.
type Cleaner struct {
	cfg CleanerConfig
	log *slog.Logger
}

func NewCleaner(cfg CleanerConfig, log *slog.Logger) *Cleaner {
	return &Cleaner{cfg: cfg, log: log}
}

func (c *Cleaner) Name() string { return "cleaner" }

func (c *Cleaner) Transform(in table.Table) (table.Table, error) {
	t, err := normalizeColumns(in)
	if err != nil {
		return table.Table{}, err
	}
	c.log.Debug("normalized columns", "columns", t.Columns())
	t = trimStrings(t)
	t = c.dropDuplicates(t)
	t = c.enforceRequired(t)
	t = c.parseDates(t)
	return t, nil
}

// NormalizeName canonicalizes a column identifier: trim surrounding
// whitespace, lowercase, fold diacritics to ASCII, collapse runs of
// whitespace and hyphens into a single underscore, then drop any remaining
// character outside [a-z0-9_]. Normalizing an already-normalized name
// yields the same name.
func NormalizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))

	// Decompose, drop nonspacing marks, recompose: "Pčv" -> "pcv".
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, _ = transform.String(fold, s)

	var b strings.Builder
	pendingSep := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_':
			if pendingSep {
				b.WriteByte('_')
				pendingSep = false
			}
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-':
			if b.Len() > 0 {
				pendingSep = true
			}
		default:
			// strip
		}
	}
	return b.String()
}

// normalizeColumns renames every column via NormalizeName. Names that
// collide after normalization get a numeric suffix so the column set stays
// unique.
func normalizeColumns(in table.Table) (table.Table, error) {
	old := in.Columns()
	rename := make(map[string]string, len(old))
	taken := make(map[string]int, len(old))
	cols := make([]string, 0, len(old))
	for _, c := range old {
		n := NormalizeName(c)
		if k, dup := taken[n]; dup {
			taken[n] = k + 1
			n = n + "_" + strconv.Itoa(k+1)
		}
		taken[n] = 1
		rename[c] = n
		cols = append(cols, n)
	}
	rows := make([]table.Row, 0, in.Len())
	for i := 0; i < in.Len(); i++ {
		src := in.Row(i)
		dst := make(table.Row, len(cols))
		for _, c := range old {
			dst[rename[c]] = src[c]
		}
		rows = append(rows, dst)
	}
	return table.New(cols, rows)
}

// trimStrings strips leading/trailing whitespace from every non-null string
// cell. Non-string cells and nulls pass through untouched.
func trimStrings(in table.Table) table.Table {
	cols := in.Columns()
	rows := make([]table.Row, 0, in.Len())
	for i := 0; i < in.Len(); i++ {
		src := in.Row(i)
		dst := make(table.Row, len(cols))
		for _, c := range cols {
			if s, ok := src[c].(string); ok {
				dst[c] = strings.TrimSpace(s)
			} else {
				dst[c] = src[c]
			}
		}
		rows = append(rows, dst)
	}
	return table.MustNew(cols, rows)
}

// dropDuplicates removes rows that are full-row equal to an earlier row,
// keeping the first occurrence in original order.
func (c *Cleaner) dropDuplicates(in table.Table) table.Table {
	dups := in.DuplicateRows()
	if len(dups) == 0 {
		return in
	}
	dupAt := make(map[int]struct{}, len(dups))
	for _, i := range dups {
		dupAt[i] = struct{}{}
	}
	cols := in.Columns()
	rows := make([]table.Row, 0, in.Len()-len(dups))
	for i := 0; i < in.Len(); i++ {
		if _, drop := dupAt[i]; drop {
			continue
		}
		rows = append(rows, in.Row(i))
	}
	c.log.Info("dropped duplicate rows", "count", len(dups))
	return table.MustNew(cols, rows)
}

// enforceRequired drops rows with nulls in required columns that exist in
// the table, then applies the optional null-fraction threshold.
func (c *Cleaner) enforceRequired(in table.Table) table.Table {
	cols := in.Columns()
	var present []string
	for _, rc := range c.cfg.RequiredColumns {
		if in.HasColumn(rc) {
			present = append(present, rc)
		}
	}
	if len(present) == 0 && c.cfg.NullThreshold == nil {
		return in
	}

	var maxNullFrac float64 = -1
	if c.cfg.NullThreshold != nil && len(cols) > 0 {
		maxNullFrac = 1 - *c.cfg.NullThreshold
	}

	rows := make([]table.Row, 0, in.Len())
	droppedRequired, droppedSparse := 0, 0
rowLoop:
	for i := 0; i < in.Len(); i++ {
		r := in.Row(i)
		for _, rc := range present {
			if r[rc] == nil {
				droppedRequired++
				continue rowLoop
			}
		}
		if maxNullFrac >= 0 {
			nulls := 0
			for _, c := range cols {
				if r[c] == nil {
					nulls++
				}
			}
			if float64(nulls)/float64(len(cols)) > maxNullFrac {
				droppedSparse++
				continue
			}
		}
		rows = append(rows, r)
	}
	if droppedRequired > 0 {
		c.log.Info("dropped rows with null required columns", "count", droppedRequired, "columns", present)
	}
	if droppedSparse > 0 {
		c.log.Info("dropped rows above null threshold", "count", droppedSparse)
	}
	return table.MustNew(cols, rows)
}

// parseDates coerces each configured date column present in the table to
// time.Time. Values that fail every layout become null.
func (c *Cleaner) parseDates(in table.Table) table.Table {
	var targets []string
	for _, dc := range c.cfg.DateColumns {
		if in.HasColumn(dc) {
			targets = append(targets, dc)
		}
	}
	if len(targets) == 0 {
		return in
	}
	layouts := c.cfg.DateLayouts
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	cols := in.Columns()
	rows := make([]table.Row, 0, in.Len())
	for i := 0; i < in.Len(); i++ {
		src := in.Row(i)
		dst := make(table.Row, len(cols))
		for _, col := range cols {
			dst[col] = src[col]
		}
		for _, dc := range targets {
			dst[dc] = coerceDate(src[dc], layouts)
		}
		rows = append(rows, dst)
	}
	c.log.Debug("parsed date columns", "columns", targets)
	return table.MustNew(cols, rows)
}

func coerceDate(v any, layouts []string) any {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		return x
	case string:
		if ts, ok := ParseDate(x, layouts); ok {
			return ts
		}
		return nil
	default:
		return nil
	}
}
