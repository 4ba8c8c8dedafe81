package validate

import (
	"fmt"
	"log/slog"
	"sort"

	"giftetl/pkg/table"
)

// SchemaConfig configures the schema validator. An empty config always
// passes: this gate checks shape, not business rules.
type SchemaConfig struct {
	// RequiredColumns must all exist in the table, whatever their kind.
	RequiredColumns []string

	// Kinds maps column name to the exact kind tag the column must carry
	// (see table.Kind). Columns named here but absent from the table are
	// skipped; presence is RequiredColumns' concern.
	Kinds map[string]table.Kind
}

// SchemaValidator asserts a table conforms to a required shape: every
// required column exists, and every kind-mapped column that is present
// carries exactly the expected kind. No coercion, no subtype matching.
type SchemaValidator struct {
	cfg SchemaConfig
	log *slog.Logger
}

func NewSchemaValidator(cfg SchemaConfig, log *slog.Logger) *SchemaValidator {
	return &SchemaValidator{cfg: cfg, log: log}
}

func (v *SchemaValidator) Name() string { return "schema" }

func (v *SchemaValidator) Validate(t table.Table) (Outcome, error) {
	var violations []string

	var missing []string
	for _, c := range v.cfg.RequiredColumns {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		violations = append(violations, fmt.Sprintf("missing required columns: %v", missing))
		v.log.Error("missing required columns", "columns", missing)
	}

	for _, c := range sortedKeys(v.cfg.Kinds) {
		if !t.HasColumn(c) {
			continue
		}
		want := v.cfg.Kinds[c]
		got := t.ColumnKind(c)
		if got != want {
			violations = append(violations,
				fmt.Sprintf("column %q kind mismatch: expected %q, got %q", c, want, got))
			v.log.Error("column kind mismatch", "column", c, "expected", string(want), "actual", string(got))
		}
	}

	if len(violations) > 0 {
		return fail(violations...), nil
	}
	v.log.Info("schema validation passed")
	return pass(), nil
}

// sortedKeys keeps violation order deterministic across runs.
func sortedKeys(m map[string]table.Kind) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
