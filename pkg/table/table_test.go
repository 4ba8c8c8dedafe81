package table

import (
	"reflect"
	"testing"
	"time"
)

func TestNewFillsMissingCellsWithNil(t *testing.T) {
	tb, err := New([]string{"a", "b"}, []Row{{"a": "x"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	v, ok := tb.Cell(0, "b")
	if !ok || v != nil {
		t.Fatalf("missing cell = %v (ok=%v), want nil", v, ok)
	}
}

func TestNewRejectsDuplicateColumns(t *testing.T) {
	if _, err := New([]string{"a", "a"}, nil); err == nil {
		t.Fatal("expected error for duplicate column")
	}
}

func TestNewNormalizesNumericCells(t *testing.T) {
	tb := MustNew([]string{"n", "f"}, []Row{{"n": 7, "f": float32(1.5)}})
	if v, _ := tb.Cell(0, "n"); v != int64(7) {
		t.Fatalf("int cell = %T(%v), want int64(7)", v, v)
	}
	if v, _ := tb.Cell(0, "f"); v != float64(1.5) {
		t.Fatalf("float cell = %T(%v), want float64(1.5)", v, v)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	tb := MustNew([]string{"a"}, []Row{{"a": "x"}})
	c := tb.Clone()
	c.Row(0)["a"] = "changed"
	if v, _ := tb.Cell(0, "a"); v != "x" {
		t.Fatalf("original mutated through clone: %v", v)
	}
}

func TestSelectOmitsUnknownColumns(t *testing.T) {
	tb := MustNew([]string{"a", "b"}, []Row{{"a": int64(1), "b": int64(2)}})
	out, omitted := tb.Select([]string{"b", "missing"})
	if got := out.Columns(); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("columns = %v, want [b]", got)
	}
	if !reflect.DeepEqual(omitted, []string{"missing"}) {
		t.Fatalf("omitted = %v, want [missing]", omitted)
	}
}

func TestAppendUsesColumnUnion(t *testing.T) {
	a := MustNew([]string{"x"}, []Row{{"x": int64(1)}})
	b := MustNew([]string{"y"}, []Row{{"y": int64(2)}})
	out := a.Append(b)
	if got := out.Columns(); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Fatalf("columns = %v, want [x y]", got)
	}
	if out.Len() != 2 {
		t.Fatalf("len = %d, want 2", out.Len())
	}
	if v, _ := out.Cell(1, "x"); v != nil {
		t.Fatalf("cell (1,x) = %v, want nil", v)
	}
}

func TestColumnKind(t *testing.T) {
	tb := MustNew(
		[]string{"s", "i", "mixed", "empty", "ts"},
		[]Row{
			{"s": "a", "i": int64(1), "mixed": "a", "ts": time.Now()},
			{"s": "b", "i": int64(2), "mixed": int64(1), "ts": time.Now()},
			{"s": nil, "i": nil, "mixed": nil, "ts": nil},
		},
	)
	tests := []struct {
		col  string
		want Kind
	}{
		{"s", KindString},
		{"i", KindInt},
		{"mixed", KindMixed},
		{"empty", KindEmpty},
		{"ts", KindTime},
		{"absent", KindEmpty},
	}
	for _, tc := range tests {
		if got := tb.ColumnKind(tc.col); got != tc.want {
			t.Errorf("ColumnKind(%q) = %v, want %v", tc.col, got, tc.want)
		}
	}
}

func TestDuplicateRowsIgnoresFirstOccurrence(t *testing.T) {
	tb := MustNew([]string{"a", "b"}, []Row{
		{"a": "x", "b": int64(1)},
		{"a": "x", "b": int64(1)},
		{"a": "x", "b": int64(2)},
		{"a": "x", "b": int64(1)},
	})
	if got := tb.DuplicateRows(); !reflect.DeepEqual(got, []int{1, 3}) {
		t.Fatalf("DuplicateRows = %v, want [1 3]", got)
	}
}

func TestDuplicateRowsDistinguishesCellTypes(t *testing.T) {
	// "1" (string) and 1 (int) in the same column are different rows.
	tb := MustNew([]string{"a"}, []Row{{"a": "1"}, {"a": int64(1)}})
	if got := tb.DuplicateRows(); got != nil {
		t.Fatalf("DuplicateRows = %v, want none", got)
	}
}

func TestDuplicateValues(t *testing.T) {
	tb := MustNew([]string{"id"}, []Row{
		{"id": "G001"},
		{"id": "G001"},
		{"id": "G003"},
		{"id": nil},
		{"id": nil},
	})
	count, sample := tb.DuplicateValues("id")
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	if !reflect.DeepEqual(sample, []string{"G001"}) {
		t.Fatalf("sample = %v, want [G001]", sample)
	}
}

func TestDuplicateValuesSampleIsBounded(t *testing.T) {
	rows := make([]Row, 0, DuplicateSampleLimit*2*2)
	for i := 0; i < DuplicateSampleLimit*2; i++ {
		v := int64(i)
		rows = append(rows, Row{"id": v}, Row{"id": v})
	}
	tb := MustNew([]string{"id"}, rows)
	count, sample := tb.DuplicateValues("id")
	if count != DuplicateSampleLimit*2 {
		t.Fatalf("count = %d, want %d", count, DuplicateSampleLimit*2)
	}
	if len(sample) != DuplicateSampleLimit {
		t.Fatalf("sample length = %d, want %d", len(sample), DuplicateSampleLimit)
	}
}

func TestNullCount(t *testing.T) {
	tb := MustNew([]string{"a"}, []Row{{"a": nil}, {"a": "x"}, {}})
	if got := tb.NullCount("a"); got != 2 {
		t.Fatalf("NullCount = %d, want 2", got)
	}
}

func TestCellString(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{int64(42), "42"},
		{3.25, "3.25"},
		{true, "true"},
		{ts, "2024-03-01T12:00:00Z"},
	}
	for _, tc := range tests {
		if got := CellString(tc.in); got != tc.want {
			t.Errorf("CellString(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
