package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"giftetl/pkg/table"
)

// WebConfig configures a static-page HTML table source.
type WebConfig struct {
	URL string

	// Selector narrows which table is scraped; empty means the first
	// <table> in the document.
	Selector string

	// Timeout bounds the whole fetch. Zero means 30s.
	Timeout time.Duration
}

// WebExtractor fetches a static HTML page and reads one table element into
// a Table. The header comes from the first row's <th> cells (falling back
// to <td>); every remaining row becomes a record. A source_url column with
// the page URL is appended to every row for provenance.
type WebExtractor struct {
	cfg    WebConfig
	client *http.Client
}

func NewWebExtractor(cfg WebConfig) *WebExtractor {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &WebExtractor{cfg: cfg, client: &http.Client{Timeout: timeout}}
}

func (e *WebExtractor) Name() string { return "web:" + e.cfg.URL }

func (e *WebExtractor) Extract(ctx context.Context) (table.Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.URL, nil)
	if err != nil {
		return table.Table{}, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return table.Table{}, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return table.Table{}, fmt.Errorf("fetch page: %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return table.Table{}, fmt.Errorf("parse html: %w", err)
	}

	selector := e.cfg.Selector
	if selector == "" {
		selector = "table"
	}
	tbl := doc.Find(selector).First()
	if tbl.Length() == 0 {
		return table.Empty(), nil
	}

	var cols []string
	var rows []table.Row
	tbl.Find("tr").Each(func(i int, tr *goquery.Selection) {
		cells := tr.Find("th")
		if cells.Length() == 0 {
			cells = tr.Find("td")
		}
		if len(cols) == 0 {
			cells.Each(func(_ int, c *goquery.Selection) {
				cols = append(cols, strings.TrimSpace(c.Text()))
			})
			return
		}
		row := make(table.Row, len(cols)+1)
		cells.Each(func(j int, c *goquery.Selection) {
			if j < len(cols) {
				text := strings.TrimSpace(c.Text())
				if text != "" {
					row[cols[j]] = text
				}
			}
		})
		row["source_url"] = e.cfg.URL
		rows = append(rows, row)
	})
	if len(cols) == 0 {
		return table.Empty(), nil
	}
	return table.New(append(cols, "source_url"), rows)
}
