package validate

import (
	"fmt"
	"log/slog"

	"giftetl/pkg/table"
)

// IdentityConfig configures the identity validator.
type IdentityConfig struct {
	// Column is the would-be primary key column.
	Column string

	// AllowDuplicates downgrades duplicate values from a failure to a
	// warning, useful for intermediate pipeline stages.
	AllowDuplicates bool
}

// IdentityValidator asserts that a designated column behaves as a primary
// key: it exists, carries no nulls, and holds no duplicate values (unless
// duplicates are explicitly allowed). Checks short-circuit in that order;
// a missing column fails immediately without running the rest.
type IdentityValidator struct {
	cfg IdentityConfig
	log *slog.Logger
}

func NewIdentityValidator(cfg IdentityConfig, log *slog.Logger) *IdentityValidator {
	if cfg.Column == "" {
		cfg.Column = "id"
	}
	return &IdentityValidator{cfg: cfg, log: log}
}

func (v *IdentityValidator) Name() string { return "identity" }

func (v *IdentityValidator) Validate(t table.Table) (Outcome, error) {
	col := v.cfg.Column

	if !t.HasColumn(col) {
		v.log.Error("identity column not present", "column", col)
		return fail(fmt.Sprintf("identity column %q is not present", col)), nil
	}

	var violations []string

	if nulls := t.NullCount(col); nulls > 0 {
		violations = append(violations,
			fmt.Sprintf("identity column %q contains %d null value(s)", col, nulls))
		v.log.Error("identity column contains nulls", "column", col, "count", nulls)
	}

	if dups, sample := t.DuplicateValues(col); dups > 0 {
		msg := fmt.Sprintf("identity column %q has %d duplicate(s): %v", col, dups, sample)
		if v.cfg.AllowDuplicates {
			v.log.Warn("identity column has duplicates (allowed)", "column", col, "count", dups, "sample", sample)
		} else {
			violations = append(violations, msg)
			v.log.Error("identity column has duplicates", "column", col, "count", dups, "sample", sample)
		}
	}

	if len(violations) > 0 {
		return fail(violations...), nil
	}
	v.log.Info("identity validation passed", "column", col)
	return pass(), nil
}
