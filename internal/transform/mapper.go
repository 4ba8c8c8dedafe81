package transform

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"giftetl/pkg/table"
)

// JoinMode selects the relational join semantics for the entity mapper.
type JoinMode string

const (
	JoinInner JoinMode = "inner"
	JoinLeft  JoinMode = "left"
	JoinRight JoinMode = "right"
	JoinOuter JoinMode = "outer"
)

// ParseJoinMode maps a config string onto a JoinMode. Empty means left.
func ParseJoinMode(s string) (JoinMode, error) {
	switch JoinMode(s) {
	case "":
		return JoinLeft, nil
	case JoinInner, JoinLeft, JoinRight, JoinOuter:
		return JoinMode(s), nil
	default:
		return "", fmt.Errorf("unknown join mode %q", s)
	}
}

// MapperConfig configures the entity mapper.
type MapperConfig struct {
	// LeftKey and RightKey name the join columns on each side. They need
	// not share a name; when they do, the merged table carries one key
	// column.
	LeftKey  string
	RightKey string

	// Mode is the join semantics. Zero value means JoinLeft.
	Mode JoinMode

	// OutputColumns, when non-empty, projects the merged table to exactly
	// these columns in this order; configured columns absent from the
	// merge are omitted and logged.
	OutputColumns []string
}

// EntityMapper correlates a primary table with a secondary table into one
// master table: relational join on the key pair, a processed_at timestamp
// shared by every row of the invocation, then projection to the output
// column list. Colliding non-key column names are suffixed _left / _right
// so no data is silently overwritten.
type EntityMapper struct {
	right table.Table
	cfg   MapperConfig
	log   *slog.Logger

	// now is the clock used for the processed_at stamp; tests override it.
	now func() time.Time
}

func NewEntityMapper(right table.Table, cfg MapperConfig, log *slog.Logger) *EntityMapper {
	if cfg.Mode == "" {
		cfg.Mode = JoinLeft
	}
	return &EntityMapper{right: right, cfg: cfg, log: log, now: time.Now}
}

func (m *EntityMapper) Name() string { return "entity_mapper" }

func (m *EntityMapper) Transform(left table.Table) (table.Table, error) {
	if m.cfg.LeftKey == "" || m.cfg.RightKey == "" {
		return table.Table{}, fmt.Errorf("join keys must be configured")
	}
	if left.Len() > 0 && !left.HasColumn(m.cfg.LeftKey) {
		return table.Table{}, fmt.Errorf("left key %q not in primary table", m.cfg.LeftKey)
	}
	if m.right.Len() > 0 && !m.right.HasColumn(m.cfg.RightKey) {
		return table.Table{}, fmt.Errorf("right key %q not in secondary table", m.cfg.RightKey)
	}

	m.log.Info("merging tables",
		"left_key", m.cfg.LeftKey, "right_key", m.cfg.RightKey, "mode", string(m.cfg.Mode),
		"left_rows", left.Len(), "right_rows", m.right.Len())

	merged, err := m.join(left)
	if err != nil {
		return table.Table{}, err
	}
	m.log.Info("merge complete", "rows", merged.Len())

	merged = stampProcessedAt(merged, m.now().UTC())

	if len(m.cfg.OutputColumns) > 0 {
		out, omitted := merged.Select(m.cfg.OutputColumns)
		if len(omitted) > 0 {
			m.log.Warn("output columns missing after merge, skipped", "columns", omitted)
		}
		return out, nil
	}
	return merged, nil
}

// joinPlan resolves the merged column set and the per-side renames applied
// to colliding non-key columns.
type joinPlan struct {
	cols        []string
	leftRename  map[string]string
	rightRename map[string]string
	sharedKey   bool
}

func (m *EntityMapper) plan(left table.Table) joinPlan {
	p := joinPlan{
		leftRename:  map[string]string{},
		rightRename: map[string]string{},
		sharedKey:   m.cfg.LeftKey == m.cfg.RightKey,
	}
	leftCols := left.Columns()
	rightCols := m.right.Columns()

	inLeft := make(map[string]bool, len(leftCols))
	for _, c := range leftCols {
		inLeft[c] = true
	}
	collides := func(c string) bool {
		if !inLeft[c] {
			return false
		}
		// Shared key columns merge into one; they are never suffixed.
		return !(p.sharedKey && c == m.cfg.LeftKey)
	}

	for _, c := range leftCols {
		name := c
		if m.right.HasColumn(c) && collides(c) {
			name = c + "_left"
		}
		p.leftRename[c] = name
		p.cols = append(p.cols, name)
	}
	if p.sharedKey && !inLeft[m.cfg.LeftKey] {
		// The primary table never carried the key column (it can be empty
		// with no columns at all); the merged table still needs it so that
		// unmatched right rows keep their key values.
		p.leftRename[m.cfg.LeftKey] = m.cfg.LeftKey
		p.cols = append(p.cols, m.cfg.LeftKey)
	}
	for _, c := range rightCols {
		if p.sharedKey && c == m.cfg.RightKey {
			continue
		}
		name := c
		if collides(c) {
			name = c + "_right"
		}
		p.rightRename[c] = name
		p.cols = append(p.cols, name)
	}
	return p
}

func (m *EntityMapper) join(left table.Table) (table.Table, error) {
	p := m.plan(left)

	rightIdx := make(map[string][]int, m.right.Len())
	for i := 0; i < m.right.Len(); i++ {
		k, ok := joinKey(m.right.Row(i)[m.cfg.RightKey])
		if !ok {
			continue
		}
		rightIdx[k] = append(rightIdx[k], i)
	}

	var rows []table.Row
	emit := func(lr, rr table.Row) {
		out := make(table.Row, len(p.cols))
		for c, name := range p.leftRename {
			if lr != nil {
				out[name] = lr[c]
			}
		}
		for c, name := range p.rightRename {
			if rr != nil {
				out[name] = rr[c]
			}
		}
		if p.sharedKey && lr == nil && rr != nil {
			// Unmatched right row under a shared key name: the key value
			// comes from the right side.
			out[p.leftRename[m.cfg.LeftKey]] = rr[m.cfg.RightKey]
		}
		rows = append(rows, out)
	}

	rightMatched := make(map[int]bool)

	if m.cfg.Mode == JoinRight {
		leftIdx := make(map[string][]int, left.Len())
		for i := 0; i < left.Len(); i++ {
			k, ok := joinKey(left.Row(i)[m.cfg.LeftKey])
			if !ok {
				continue
			}
			leftIdx[k] = append(leftIdx[k], i)
		}
		for i := 0; i < m.right.Len(); i++ {
			rr := m.right.Row(i)
			k, ok := joinKey(rr[m.cfg.RightKey])
			matches := []int(nil)
			if ok {
				matches = leftIdx[k]
			}
			if len(matches) == 0 {
				emit(nil, rr)
				continue
			}
			for _, li := range matches {
				emit(left.Row(li), rr)
			}
		}
		return table.New(p.cols, rows)
	}

	for i := 0; i < left.Len(); i++ {
		lr := left.Row(i)
		k, ok := joinKey(lr[m.cfg.LeftKey])
		matches := []int(nil)
		if ok {
			matches = rightIdx[k]
		}
		if len(matches) == 0 {
			if m.cfg.Mode == JoinLeft || m.cfg.Mode == JoinOuter {
				emit(lr, nil)
			}
			continue
		}
		for _, ri := range matches {
			rightMatched[ri] = true
			emit(lr, m.right.Row(ri))
		}
	}
	if m.cfg.Mode == JoinOuter {
		for i := 0; i < m.right.Len(); i++ {
			if !rightMatched[i] {
				emit(nil, m.right.Row(i))
			}
		}
	}
	return table.New(p.cols, rows)
}

// joinKey encodes a key cell for matching. Null keys never match anything.
func joinKey(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return "s:" + x, true
	case int64:
		return "i:" + strconv.FormatInt(x, 10), true
	case float64:
		return "f:" + strconv.FormatFloat(x, 'g', -1, 64), true
	case bool:
		return "b:" + strconv.FormatBool(x), true
	case time.Time:
		return "t:" + x.UTC().Format(time.RFC3339Nano), true
	default:
		return "x:" + fmt.Sprint(x), true
	}
}

// ProcessedAtColumn is appended to every merged table.
const ProcessedAtColumn = "processed_at"

func stampProcessedAt(t table.Table, ts time.Time) table.Table {
	cols := t.Columns()
	has := t.HasColumn(ProcessedAtColumn)
	if !has {
		cols = append(cols, ProcessedAtColumn)
	}
	rows := make([]table.Row, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		r := t.Row(i)
		nr := make(table.Row, len(cols))
		for k, v := range r {
			nr[k] = v
		}
		nr[ProcessedAtColumn] = ts
		rows = append(rows, nr)
	}
	return table.MustNew(cols, rows)
}
