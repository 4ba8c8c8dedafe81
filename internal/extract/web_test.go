package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

const samplePage = `<html><body>
<table>
  <tr><th>Beneficiary</th><th>Status</th></tr>
  <tr><td>Alice</td><td>active</td></tr>
  <tr><td>Bob</td><td></td></tr>
</table>
</body></html>`

func TestWebExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	e := NewWebExtractor(WebConfig{URL: srv.URL})
	out, err := e.Extract(context.Background())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := []string{"Beneficiary", "Status", "source_url"}
	if got := out.Columns(); !reflect.DeepEqual(got, want) {
		t.Fatalf("columns = %v, want %v", got, want)
	}
	if out.Len() != 2 {
		t.Fatalf("rows = %d, want 2", out.Len())
	}
	if v, _ := out.Cell(0, "Beneficiary"); v != "Alice" {
		t.Fatalf("cell = %v, want Alice", v)
	}
	if v, _ := out.Cell(1, "Status"); v != nil {
		t.Fatalf("empty cell = %v, want nil", v)
	}
	if v, _ := out.Cell(0, "source_url"); v != srv.URL {
		t.Fatalf("source_url = %v, want %s", v, srv.URL)
	}
}

func TestWebExtractNoTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html><body><p>nothing here</p></body></html>"))
	}))
	defer srv.Close()

	e := NewWebExtractor(WebConfig{URL: srv.URL})
	out, err := e.Extract(context.Background())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("rows = %d, want 0", out.Len())
	}
}

func TestWebExtractHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := NewWebExtractor(WebConfig{URL: srv.URL})
	if _, err := e.Extract(context.Background()); err == nil {
		t.Fatal("expected error on 500 response")
	}
}
