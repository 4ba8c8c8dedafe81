package storage

import (
	"context"
	"reflect"
	"testing"
	"time"

	"giftetl/pkg/table"
)

func TestParseWriteMode(t *testing.T) {
	tests := []struct {
		in      string
		want    WriteMode
		wantErr bool
	}{
		{"", ModeAppend, false},
		{"replace", ModeReplace, false},
		{"append", ModeAppend, false},
		{"fail", ModeFail, false},
		{"upsert", "", true},
	}
	for _, tc := range tests {
		got, err := ParseWriteMode(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseWriteMode(%q) err = %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseWriteMode(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNewUnknownKindListsRegistered(t *testing.T) {
	_, err := New(context.Background(), Config{Kind: "never_registered"})
	if err == nil {
		t.Fatal("expected error for unregistered kind")
	}
}

func TestRegisterAndNew(t *testing.T) {
	called := false
	Register("test_kind", func(_ context.Context, cfg Config) (Sink, error) {
		called = true
		if cfg.Log == nil {
			t.Error("factory must receive a non-nil logger")
		}
		return nil, nil
	})
	if _, err := New(context.Background(), Config{Kind: "test_kind"}); err != nil {
		t.Fatalf("New: %v", err)
	}
	if !called {
		t.Fatal("factory was not invoked")
	}
}

func TestInferColumnsFallsBackToString(t *testing.T) {
	tb := table.MustNew(
		[]string{"s", "n", "empty", "mixed"},
		[]table.Row{
			{"s": "a", "n": int64(1), "mixed": "a"},
			{"s": "b", "n": int64(2), "mixed": int64(2)},
		},
	)
	defs := InferColumns(tb)
	want := []ColumnDef{
		{"s", table.KindString},
		{"n", table.KindInt},
		{"empty", table.KindString},
		{"mixed", table.KindString},
	}
	if !reflect.DeepEqual(defs, want) {
		t.Fatalf("defs = %v, want %v", defs, want)
	}
}

func TestBindValue(t *testing.T) {
	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	if got := BindValue(ts); got != "2024-06-01T10:00:00Z" {
		t.Fatalf("time bind = %v", got)
	}
	if got := BindValue(true); got != int64(1) {
		t.Fatalf("bool bind = %v", got)
	}
	if got := BindValue(false); got != int64(0) {
		t.Fatalf("bool bind = %v", got)
	}
	if got := BindValue("x"); got != "x" {
		t.Fatalf("string bind = %v", got)
	}
	if got := BindValue(nil); got != nil {
		t.Fatalf("nil bind = %v", got)
	}
}

func TestRowValuesAlignsWithColumns(t *testing.T) {
	tb := table.MustNew([]string{"a", "b"}, []table.Row{{"a": int64(1), "b": "x"}})
	got := RowValues(tb, 0, nil)
	if !reflect.DeepEqual(got, []any{int64(1), "x"}) {
		t.Fatalf("values = %v", got)
	}
}
