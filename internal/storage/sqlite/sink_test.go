package sqlite

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"giftetl/internal/storage"
	"giftetl/pkg/table"
)

func testConfig(t *testing.T, mode storage.WriteMode) storage.Config {
	t.Helper()
	return storage.Config{
		DSN:   "file:" + filepath.Join(t.TempDir(), "test.db"),
		Table: "gift_master",
		Mode:  mode,
		Log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func sampleTable() table.Table {
	return table.MustNew(
		[]string{"id", "amount", "active", "processed_at"},
		[]table.Row{
			{"id": "G1", "amount": 500.0, "active": true,
				"processed_at": time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)},
			{"id": "G2", "amount": 200.0, "active": false, "processed_at": nil},
		},
	)
}

func TestWriteCreatesTableAndRows(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, testConfig(t, storage.ModeAppend))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	n, err := s.Write(ctx, sampleTable())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 2 {
		t.Fatalf("rows = %d, want 2", n)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM "gift_master"`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("stored rows = %d, want 2", count)
	}

	var ts string
	if err := s.db.QueryRow(`SELECT processed_at FROM "gift_master" WHERE id = 'G1'`).Scan(&ts); err != nil {
		t.Fatalf("select processed_at: %v", err)
	}
	if ts != "2024-06-01T10:00:00Z" {
		t.Fatalf("processed_at = %q, want RFC3339 text", ts)
	}
}

func TestWriteAppendAccumulates(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, storage.ModeAppend)
	s, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	for i := 0; i < 2; i++ {
		if _, err := s.Write(ctx, sampleTable()); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM "gift_master"`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 4 {
		t.Fatalf("stored rows = %d, want 4", count)
	}
}

func TestWriteReplaceDropsExisting(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, storage.ModeReplace)
	s, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	for i := 0; i < 2; i++ {
		if _, err := s.Write(ctx, sampleTable()); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM "gift_master"`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("stored rows = %d, want 2 after replace", count)
	}
}

func TestWriteFailModeRejectsExisting(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, storage.ModeFail)
	s, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := s.Write(ctx, sampleTable()); err != nil {
		t.Fatalf("first Write: %v", err)
	}
	if _, err := s.Write(ctx, sampleTable()); err == nil {
		t.Fatal("second Write should fail when the table exists")
	}
}

func TestWriteEmptyTableIsNoOp(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, testConfig(t, storage.ModeAppend))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	n, err := s.Write(ctx, table.Empty())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 0 {
		t.Fatalf("rows = %d, want 0", n)
	}
}

func TestOpenRejectsMissingSettings(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, storage.Config{Table: "t"}); err == nil {
		t.Fatal("expected error for empty DSN")
	}
	if _, err := Open(ctx, storage.Config{DSN: "file:x.db"}); err == nil {
		t.Fatal("expected error for empty table")
	}
}
