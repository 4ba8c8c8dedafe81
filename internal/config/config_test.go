package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const jsonConfig = `{
  "job": "gift_master",
  "sources": [
    {"name": "gifts", "kind": "csv", "csv": {"path": "gifts.csv", "delimiter": ";"}},
    {"name": "beneficiaries", "kind": "sample"}
  ],
  "clean": {"required_columns": ["id"], "date_columns": ["date"], "null_threshold": 0.5},
  "merge": {"left": "gifts", "right": "beneficiaries", "left_key": "beneficiary_id", "right_key": "beneficiary_id", "how": "left"},
  "validate": {
    "schema": {"required_columns": ["id"], "kinds": {"amount": "float"}},
    "identity": {"column": "id"}
  },
  "sinks": [{"kind": "sqlite", "dsn": "file:out.db", "table": "gift_master", "mode": "replace"}],
  "runtime": {"strict_transforms": true, "extract_timeout_seconds": 30}
}`

const yamlConfig = `
job: gift_master
sources:
  - name: gifts
    kind: csv
    csv:
      path: gifts.csv
      delimiter: ";"
  - name: beneficiaries
    kind: sample
clean:
  required_columns: [id]
  null_threshold: 0.5
merge:
  left: gifts
  right: beneficiaries
  left_key: beneficiary_id
  right_key: beneficiary_id
  how: left
sinks:
  - kind: sqlite
    dsn: file:out.db
    table: gift_master
    mode: replace
`

const tomlConfig = `
job = "gift_master"

[[sources]]
name = "gifts"
kind = "csv"
  [sources.csv]
  path = "gifts.csv"

[[sources]]
name = "beneficiaries"
kind = "sample"

[merge]
left = "gifts"
right = "beneficiaries"
left_key = "beneficiary_id"
right_key = "beneficiary_id"

[[sinks]]
kind = "sqlite"
dsn = "file:out.db"
table = "gift_master"
`

func checkDecoded(t *testing.T, p Pipeline) {
	t.Helper()
	if p.Job != "gift_master" {
		t.Fatalf("job = %q, want gift_master", p.Job)
	}
	if len(p.Sources) != 2 || p.Sources[0].Name != "gifts" || p.Sources[0].CSV.Path != "gifts.csv" {
		t.Fatalf("sources decoded wrong: %+v", p.Sources)
	}
	if p.Merge.LeftKey != "beneficiary_id" || p.Merge.RightKey != "beneficiary_id" {
		t.Fatalf("merge decoded wrong: %+v", p.Merge)
	}
	if len(p.Sinks) != 1 || p.Sinks[0].Kind != "sqlite" || p.Sinks[0].Table != "gift_master" {
		t.Fatalf("sinks decoded wrong: %+v", p.Sinks)
	}
}

func TestLoadJSON(t *testing.T) {
	p, err := Load(writeFile(t, "p.json", jsonConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	checkDecoded(t, p)
	if p.Clean.NullThreshold == nil || *p.Clean.NullThreshold != 0.5 {
		t.Fatalf("null_threshold = %v, want 0.5", p.Clean.NullThreshold)
	}
	if !p.Runtime.StrictTransforms || p.Runtime.ExtractTimeoutSeconds != 30 {
		t.Fatalf("runtime decoded wrong: %+v", p.Runtime)
	}
	if p.Validate.Schema.Kinds["amount"] != "float" {
		t.Fatalf("schema kinds decoded wrong: %+v", p.Validate.Schema)
	}
}

func TestLoadYAML(t *testing.T) {
	p, err := Load(writeFile(t, "p.yaml", yamlConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	checkDecoded(t, p)
}

func TestLoadTOML(t *testing.T) {
	p, err := Load(writeFile(t, "p.toml", tomlConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	checkDecoded(t, p)
}

func TestMarshalRoundTrips(t *testing.T) {
	p, err := Load(writeFile(t, "p.yaml", yamlConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	out, err := Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	back, err := Load(writeFile(t, "p.json", string(out)))
	if err != nil {
		t.Fatalf("Load(Marshal output): %v", err)
	}
	checkDecoded(t, back)
}

func TestLoadUnknownExtension(t *testing.T) {
	if _, err := Load(writeFile(t, "p.ini", "job=x")); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
