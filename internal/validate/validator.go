// Package validate holds the gates a merged master table must pass before
// load: schema conformance and identity-column integrity.
package validate

import (
	"fmt"
	"log/slog"

	"giftetl/pkg/table"
)

// Outcome is a first-class validation result: a pass/fail boolean plus the
// human-readable list of violated constraints. Violations exist for logging
// and diagnostics; control flow keys off Passed alone.
type Outcome struct {
	Passed     bool
	Violations []string
}

func pass() Outcome { return Outcome{Passed: true} }

func fail(violations ...string) Outcome {
	return Outcome{Violations: violations}
}

// Validator inspects a table and reports an Outcome.
type Validator interface {
	Name() string
	Validate(t table.Table) (Outcome, error)
}

// Run executes a validator inside a fail-closed boundary: an internal error
// or panic yields a failing outcome, never a pass, since an unverifiable
// table must not be treated as valid.
func Run(v Validator, log *slog.Logger, t table.Table) (out Outcome) {
	log.Info("running validator", "validator", v.Name(), "rows", t.Len())
	defer func() {
		if r := recover(); r != nil {
			out = fail(fmt.Sprintf("%s: panic: %v", v.Name(), r))
			log.Error("validator panicked, reporting fail", "validator", v.Name(), "panic", r)
		}
	}()
	out, err := v.Validate(t)
	if err != nil {
		log.Error("validator errored, reporting fail", "validator", v.Name(), "err", err)
		return fail(fmt.Sprintf("%s: %v", v.Name(), err))
	}
	status := "PASSED"
	if !out.Passed {
		status = "FAILED"
	}
	log.Info("validator finished", "validator", v.Name(), "status", status, "violations", out.Violations)
	return out
}
