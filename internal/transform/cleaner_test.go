package transform

import (
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"giftetl/pkg/table"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  First Name  ", "first_name"},
		{"Gift Type", "gift_type"},
		{"already_normal", "already_normal"},
		{"Amount (USD)", "amount_usd"},
		{"e-mail", "e_mail"},
		{"Pčv", "pcv"},
		{"Vlastník", "vlastnik"},
		{"  spaces   everywhere ", "spaces_everywhere"},
		{"--leading-and-trailing--", "leading_and_trailing"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := NormalizeName(tc.in); got != tc.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeNameIdempotent(t *testing.T) {
	for _, in := range []string{"  First Name  ", "Gift Type", "Pčv", "a--b  c"} {
		once := NormalizeName(in)
		if twice := NormalizeName(once); twice != once {
			t.Errorf("NormalizeName not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestCleanerNormalizesHeadersAndTrims(t *testing.T) {
	in := table.MustNew(
		[]string{"  First Name  ", "Gift Type"},
		[]table.Row{{"  First Name  ": "  Alice  ", "Gift Type": "Cash"}},
	)
	c := NewCleaner(CleanerConfig{}, testLogger())
	out, err := c.Transform(in)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if got := out.Columns(); !reflect.DeepEqual(got, []string{"first_name", "gift_type"}) {
		t.Fatalf("columns = %v, want [first_name gift_type]", got)
	}
	if v, _ := out.Cell(0, "first_name"); v != "Alice" {
		t.Fatalf("cell = %q, want Alice", v)
	}
}

func TestCleanerHeaderCollisionGetsSuffix(t *testing.T) {
	in := table.MustNew(
		[]string{"Name", "name "},
		[]table.Row{{"Name": "a", "name ": "b"}},
	)
	c := NewCleaner(CleanerConfig{}, testLogger())
	out, err := c.Transform(in)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if got := out.Columns(); !reflect.DeepEqual(got, []string{"name", "name_2"}) {
		t.Fatalf("columns = %v, want [name name_2]", got)
	}
}

func TestCleanerDropsDuplicateRows(t *testing.T) {
	in := table.MustNew([]string{"id"}, []table.Row{
		{"id": "a"},
		{"id": "a"},
		{"id": "b"},
	})
	c := NewCleaner(CleanerConfig{}, testLogger())
	out, err := c.Transform(in)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if out.Len() != 2 {
		t.Fatalf("len = %d, want 2", out.Len())
	}
	if len(out.DuplicateRows()) != 0 {
		t.Fatal("output still contains duplicate rows")
	}
}

func TestCleanerDropsNullRequiredRows(t *testing.T) {
	in := table.MustNew([]string{"id", "v"}, []table.Row{
		{"id": "a", "v": int64(1)},
		{"id": nil, "v": int64(2)},
	})
	c := NewCleaner(CleanerConfig{RequiredColumns: []string{"id"}}, testLogger())
	out, err := c.Transform(in)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if out.Len() != 1 {
		t.Fatalf("len = %d, want 1", out.Len())
	}
	if out.NullCount("id") != 0 {
		t.Fatal("required column still has nulls")
	}
}

func TestCleanerAbsentRequiredColumnIsIgnored(t *testing.T) {
	in := table.MustNew([]string{"v"}, []table.Row{{"v": int64(1)}})
	c := NewCleaner(CleanerConfig{RequiredColumns: []string{"id"}}, testLogger())
	out, err := c.Transform(in)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if out.Len() != 1 {
		t.Fatalf("len = %d, want 1; absent required columns must not drop rows", out.Len())
	}
}

func TestCleanerNullThreshold(t *testing.T) {
	half := 0.5
	in := table.MustNew([]string{"a", "b", "c", "d"}, []table.Row{
		{"a": int64(1), "b": int64(2), "c": int64(3), "d": int64(4)}, // 0/4 null
		{"a": int64(1), "b": int64(2), "c": nil, "d": nil},           // 2/4 null, kept
		{"a": int64(1), "b": nil, "c": nil, "d": nil},                // 3/4 null, dropped
	})
	c := NewCleaner(CleanerConfig{NullThreshold: &half}, testLogger())
	out, err := c.Transform(in)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if out.Len() != 2 {
		t.Fatalf("len = %d, want 2", out.Len())
	}
}

func TestCleanerParsesDates(t *testing.T) {
	in := table.MustNew([]string{"date"}, []table.Row{
		{"date": "2024-01-15"},
		{"date": "15.01.2024"},
		{"date": "not a date"},
		{"date": nil},
	})
	c := NewCleaner(CleanerConfig{DateColumns: []string{"date"}}, testLogger())
	out, err := c.Transform(in)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		v, _ := out.Cell(i, "date")
		ts, ok := v.(time.Time)
		if !ok || !ts.Equal(want) {
			t.Fatalf("row %d date = %v, want %v", i, v, want)
		}
	}
	if v, _ := out.Cell(2, "date"); v != nil {
		t.Fatalf("unparseable date = %v, want nil", v)
	}
	if v, _ := out.Cell(3, "date"); v != nil {
		t.Fatalf("nil date = %v, want nil", v)
	}
}

func TestCleanerEmptyTableNoOp(t *testing.T) {
	c := NewCleaner(CleanerConfig{RequiredColumns: []string{"id"}}, testLogger())
	out, err := c.Transform(table.Empty())
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("len = %d, want 0", out.Len())
	}
}

func TestCleanerNeverIncreasesRows(t *testing.T) {
	half := 0.5
	in := table.MustNew([]string{"id", "v"}, []table.Row{
		{"id": "a", "v": int64(1)},
		{"id": "a", "v": int64(1)},
		{"id": nil, "v": int64(2)},
		{"id": "b", "v": nil},
	})
	c := NewCleaner(CleanerConfig{
		RequiredColumns: []string{"id"},
		NullThreshold:   &half,
	}, testLogger())
	out, err := c.Transform(in)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if out.Len() > in.Len() {
		t.Fatalf("cleaner grew the table: %d -> %d", in.Len(), out.Len())
	}
}
