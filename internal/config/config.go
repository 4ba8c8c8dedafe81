// Package config defines the configuration model for a pipeline run. A
// pipeline file names the sources to extract, the cleaning rules, the merge
// that produces the master table, the validation gates, and the sinks the
// validated table is loaded into.
//
// JSON is the canonical format; YAML and TOML files load through the same
// model by file extension. Every knob the core consumes lives here — stages
// take explicit config structs at construction and rely on no ambient
// defaults.
//
// Example (trimmed):
//
//	{
//	  "job": "gifts_master",
//	  "sources": [
//	    { "name": "beneficiaries", "kind": "csv", "csv": { "path": "beneficiaries.csv" } },
//	    { "name": "gifts", "kind": "api", "api": { "url": "https://example.com/gifts" } }
//	  ],
//	  "clean":    { "required_columns": ["beneficiary_id"], "date_columns": ["date"] },
//	  "merge":    { "left": "beneficiaries", "right": "gifts",
//	                "left_key": "beneficiary_id", "right_key": "beneficiary_id", "how": "left",
//	                "output_columns": ["id", "beneficiary_name", "gift_type", "amount",
//	                                   "date", "status", "source_url", "processed_at"] },
//	  "validate": { "schema":   { "required_columns": ["id", "beneficiary_name"] },
//	                "identity": { "column": "id" } },
//	  "sinks":    [ { "kind": "sqlite", "dsn": "etl_output.db",
//	                  "table": "master_table", "mode": "replace" },
//	                { "kind": "csv", "dir": "output", "prefix": "master_table" } ]
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	yaml "gopkg.in/yaml.v3"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the run; it labels metrics and log lines.
	Job string `json:"job" yaml:"job" toml:"job"`

	// Sources lists the raw tables to extract, each under a unique name
	// the merge section refers to.
	Sources []Source `json:"sources" yaml:"sources" toml:"sources"`

	// Clean configures the cleaning stage applied to every source.
	Clean Clean `json:"clean" yaml:"clean" toml:"clean"`

	// Merge configures the join producing the master table.
	Merge Merge `json:"merge" yaml:"merge" toml:"merge"`

	// Validate configures the gates the master table must pass.
	Validate Validate `json:"validate" yaml:"validate" toml:"validate"`

	// Sinks lists destinations for the validated master table.
	Sinks []Sink `json:"sinks" yaml:"sinks" toml:"sinks"`

	Runtime Runtime `json:"runtime" yaml:"runtime" toml:"runtime"`
}

// Source identifies one extraction source. Kind selects the implementation;
// the matching options struct carries its settings.
type Source struct {
	Name string `json:"name" yaml:"name" toml:"name"`
	Kind string `json:"kind" yaml:"kind" toml:"kind"` // sample | csv | web | api | db

	CSV SourceCSV `json:"csv" yaml:"csv" toml:"csv"`
	Web SourceWeb `json:"web" yaml:"web" toml:"web"`
	API SourceAPI `json:"api" yaml:"api" toml:"api"`
	DB  SourceDB  `json:"db" yaml:"db" toml:"db"`
}

type SourceCSV struct {
	Path      string            `json:"path" yaml:"path" toml:"path"`
	Delimiter string            `json:"delimiter" yaml:"delimiter" toml:"delimiter"`
	HeaderMap map[string]string `json:"header_map" yaml:"header_map" toml:"header_map"`
}

type SourceWeb struct {
	URL      string `json:"url" yaml:"url" toml:"url"`
	Selector string `json:"selector" yaml:"selector" toml:"selector"`
}

type SourceAPI struct {
	URL       string `json:"url" yaml:"url" toml:"url"`
	AuthToken string `json:"auth_token" yaml:"auth_token" toml:"auth_token"`
	PageSize  int    `json:"page_size" yaml:"page_size" toml:"page_size"`
}

type SourceDB struct {
	Driver string `json:"driver" yaml:"driver" toml:"driver"`
	DSN    string `json:"dsn" yaml:"dsn" toml:"dsn"`
	Query  string `json:"query" yaml:"query" toml:"query"`
}

// Clean mirrors transform.CleanerConfig.
type Clean struct {
	RequiredColumns []string `json:"required_columns" yaml:"required_columns" toml:"required_columns"`
	DateColumns     []string `json:"date_columns" yaml:"date_columns" toml:"date_columns"`

	// NullThreshold, when set, drops rows whose null fraction exceeds
	// 1 - threshold. Must lie in [0, 1].
	NullThreshold *float64 `json:"null_threshold" yaml:"null_threshold" toml:"null_threshold"`

	DateLayouts []string `json:"date_layouts" yaml:"date_layouts" toml:"date_layouts"`
}

// Merge names the two sources to join and the join parameters.
type Merge struct {
	Left     string `json:"left" yaml:"left" toml:"left"`
	Right    string `json:"right" yaml:"right" toml:"right"`
	LeftKey  string `json:"left_key" yaml:"left_key" toml:"left_key"`
	RightKey string `json:"right_key" yaml:"right_key" toml:"right_key"`

	// How is the join mode: inner, left, right, or outer. Empty means left.
	How string `json:"how" yaml:"how" toml:"how"`

	OutputColumns []string `json:"output_columns" yaml:"output_columns" toml:"output_columns"`
}

type Validate struct {
	Schema   SchemaRule   `json:"schema" yaml:"schema" toml:"schema"`
	Identity IdentityRule `json:"identity" yaml:"identity" toml:"identity"`
}

type SchemaRule struct {
	RequiredColumns []string `json:"required_columns" yaml:"required_columns" toml:"required_columns"`

	// Kinds maps column name to an expected kind tag: string, int, float,
	// bool, or time.
	Kinds map[string]string `json:"kinds" yaml:"kinds" toml:"kinds"`
}

type IdentityRule struct {
	Column          string `json:"column" yaml:"column" toml:"column"`
	AllowDuplicates bool   `json:"allow_duplicates" yaml:"allow_duplicates" toml:"allow_duplicates"`
}

// Sink selects one destination for the master table.
type Sink struct {
	Kind  string `json:"kind" yaml:"kind" toml:"kind"` // sqlite | postgres | mysql | csv | parquet
	DSN   string `json:"dsn" yaml:"dsn" toml:"dsn"`
	Table string `json:"table" yaml:"table" toml:"table"`
	Mode  string `json:"mode" yaml:"mode" toml:"mode"` // replace | append | fail

	Dir    string `json:"dir" yaml:"dir" toml:"dir"`
	Prefix string `json:"prefix" yaml:"prefix" toml:"prefix"`
}

// Runtime controls run-level behavior.
type Runtime struct {
	// StrictTransforms aborts the run when a transform stage falls back to
	// its input instead of carrying the fallback forward.
	StrictTransforms bool `json:"strict_transforms" yaml:"strict_transforms" toml:"strict_transforms"`

	// ExtractTimeoutSeconds bounds the whole extraction phase. Zero means
	// no phase-level deadline beyond per-source timeouts.
	ExtractTimeoutSeconds int `json:"extract_timeout_seconds" yaml:"extract_timeout_seconds" toml:"extract_timeout_seconds"`
}

// Load reads a pipeline file, decoding by extension: .json, .yaml/.yml, or
// .toml.
func Load(path string) (Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("read config: %w", err)
	}
	var p Pipeline
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &p)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &p)
	case ".toml":
		err = toml.Unmarshal(data, &p)
	default:
		return Pipeline{}, fmt.Errorf("unsupported config extension %q", filepath.Ext(path))
	}
	if err != nil {
		return Pipeline{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	return p, nil
}

// Marshal renders a pipeline as indented JSON, the canonical on-disk form.
func Marshal(p Pipeline) ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}
