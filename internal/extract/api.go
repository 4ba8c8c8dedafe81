package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"giftetl/pkg/table"
)

// APIConfig configures a paginated REST API source.
type APIConfig struct {
	URL       string
	AuthToken string // optional; sent as a Bearer token

	// PageSize drives the page/size query parameters. Zero means 100.
	PageSize int

	// Timeout bounds each request. Zero means 30s.
	Timeout time.Duration
}

// APIExtractor pulls records from a paginated JSON endpoint. Each page is
// requested with ?page=N&size=M; the response may be a bare JSON array or an
// object wrapping the records in a "data" key. Pagination stops on an empty
// or short page.
type APIExtractor struct {
	cfg    APIConfig
	client *resty.Client
}

func NewAPIExtractor(cfg APIConfig) *APIExtractor {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().SetTimeout(timeout)
	if cfg.AuthToken != "" {
		client.SetAuthToken(cfg.AuthToken)
	}
	return &APIExtractor{cfg: cfg, client: client}
}

func (e *APIExtractor) Name() string { return "api:" + e.cfg.URL }

func (e *APIExtractor) Extract(ctx context.Context) (table.Table, error) {
	var all []map[string]any
	for page := 1; ; page++ {
		resp, err := e.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"page": strconv.Itoa(page),
				"size": strconv.Itoa(e.cfg.PageSize),
			}).
			Get(e.cfg.URL)
		if err != nil {
			return table.Table{}, fmt.Errorf("fetch page %d: %w", page, err)
		}
		if resp.IsError() {
			return table.Table{}, fmt.Errorf("fetch page %d: %s", page, resp.Status())
		}

		recs, err := decodeRecords(resp.Body())
		if err != nil {
			return table.Table{}, fmt.Errorf("decode page %d: %w", page, err)
		}
		if len(recs) == 0 {
			break
		}
		all = append(all, recs...)
		if len(recs) < e.cfg.PageSize {
			break
		}
	}
	return rowsFromMaps(all)
}

// decodeRecords accepts either a bare JSON array of objects or an envelope
// with the array under "data".
func decodeRecords(body []byte) ([]map[string]any, error) {
	var direct []map[string]any
	if err := json.Unmarshal(body, &direct); err == nil {
		return direct, nil
	}
	var envelope struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}
