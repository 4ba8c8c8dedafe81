// Package config — static validation (linting) of Pipeline values.
//
// ValidatePipeline performs checks over a decoded Pipeline and returns a
// list of issues (errors and warnings) callers can surface in a CLI or
// tests. It never mutates the pipeline.
package config

import (
	"fmt"
	"sort"
	"strings"
)

// IssueSeverity classifies a configuration finding.
type IssueSeverity string

const (
	// SeverityError indicates a finding that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding users should see but that need
	// not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single validation finding. Path is a dotted path into the
// config (e.g. "merge.left_key", "sinks[1].kind").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements error so an Issue can travel where an error is expected.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue carries SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePipeline statically validates a Pipeline, returning all findings.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels metrics and identifies runs",
		})
	}

	issues = append(issues, validateSources(p.Sources)...)
	issues = append(issues, validateClean(p.Clean)...)
	issues = append(issues, validateMerge(p.Merge, p.Sources)...)
	issues = append(issues, validateRules(p.Validate)...)
	issues = append(issues, validateSinks(p.Sinks)...)

	return issues
}

func validateSources(sources []Source) []Issue {
	var issues []Issue
	if len(sources) == 0 {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "sources",
			Message:  "at least one source is required",
		})
	}
	seen := map[string]struct{}{}
	for i, s := range sources {
		path := fmt.Sprintf("sources[%d]", i)
		if strings.TrimSpace(s.Name) == "" {
			issues = append(issues, Issue{SeverityError, path + ".name", "source name must not be empty"})
		} else if _, dup := seen[s.Name]; dup {
			issues = append(issues, Issue{SeverityError, path + ".name", fmt.Sprintf("duplicate source name %q", s.Name)})
		} else {
			seen[s.Name] = struct{}{}
		}

		switch s.Kind {
		case "sample":
		case "csv":
			if strings.TrimSpace(s.CSV.Path) == "" {
				issues = append(issues, Issue{SeverityError, path + ".csv.path", "csv source requires a non-empty path"})
			}
		case "web":
			if strings.TrimSpace(s.Web.URL) == "" {
				issues = append(issues, Issue{SeverityError, path + ".web.url", "web source requires a non-empty url"})
			}
		case "api":
			if strings.TrimSpace(s.API.URL) == "" {
				issues = append(issues, Issue{SeverityError, path + ".api.url", "api source requires a non-empty url"})
			}
		case "db":
			if strings.TrimSpace(s.DB.Driver) == "" || strings.TrimSpace(s.DB.Query) == "" {
				issues = append(issues, Issue{SeverityError, path + ".db", "db source requires driver and query"})
			}
		case "":
			issues = append(issues, Issue{SeverityError, path + ".kind", "source kind must not be empty"})
		default:
			issues = append(issues, Issue{SeverityWarning, path + ".kind",
				fmt.Sprintf("unknown source kind %q; ensure a matching implementation exists", s.Kind)})
		}
	}
	return issues
}

func validateClean(c Clean) []Issue {
	var issues []Issue
	if c.NullThreshold != nil && (*c.NullThreshold < 0 || *c.NullThreshold > 1) {
		issues = append(issues, Issue{SeverityError, "clean.null_threshold",
			fmt.Sprintf("null_threshold must lie in [0, 1], got %v", *c.NullThreshold)})
	}
	return issues
}

func validateMerge(m Merge, sources []Source) []Issue {
	var issues []Issue
	named := map[string]struct{}{}
	for _, s := range sources {
		named[s.Name] = struct{}{}
	}
	refs := []struct{ path, name string }{
		{"merge.left", m.Left},
		{"merge.right", m.Right},
	}
	for _, r := range refs {
		path, name := r.path, r.name
		if strings.TrimSpace(name) == "" {
			issues = append(issues, Issue{SeverityError, path, "merge requires two named sources"})
		} else if _, ok := named[name]; !ok {
			issues = append(issues, Issue{SeverityError, path, fmt.Sprintf("no source named %q", name)})
		}
	}
	if strings.TrimSpace(m.LeftKey) == "" || strings.TrimSpace(m.RightKey) == "" {
		issues = append(issues, Issue{SeverityError, "merge.left_key", "both join keys are required"})
	}
	switch m.How {
	case "", "inner", "left", "right", "outer":
	default:
		issues = append(issues, Issue{SeverityError, "merge.how",
			fmt.Sprintf("unknown join mode %q (want inner, left, right, or outer)", m.How)})
	}
	return issues
}

func validateRules(v Validate) []Issue {
	var issues []Issue
	valid := map[string]struct{}{"string": {}, "int": {}, "float": {}, "bool": {}, "time": {}}
	cols := make([]string, 0, len(v.Schema.Kinds))
	for col := range v.Schema.Kinds {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		kind := v.Schema.Kinds[col]
		if _, ok := valid[kind]; !ok {
			issues = append(issues, Issue{SeverityError, "validate.schema.kinds." + col,
				fmt.Sprintf("unknown kind tag %q (want string, int, float, bool, or time)", kind)})
		}
	}
	if v.Identity.Column == "" {
		issues = append(issues, Issue{SeverityWarning, "validate.identity.column",
			"identity column is empty; defaulting to \"id\""})
	}
	return issues
}

func validateSinks(sinks []Sink) []Issue {
	var issues []Issue
	if len(sinks) == 0 {
		issues = append(issues, Issue{SeverityWarning, "sinks",
			"no sinks configured; the master table will be validated but not persisted"})
	}
	for i, s := range sinks {
		path := fmt.Sprintf("sinks[%d]", i)
		switch s.Kind {
		case "sqlite", "postgres", "mysql":
			if strings.TrimSpace(s.Table) == "" {
				issues = append(issues, Issue{SeverityError, path + ".table", "database sinks require a table name"})
			}
			if strings.TrimSpace(s.DSN) == "" {
				issues = append(issues, Issue{SeverityError, path + ".dsn", "database sinks require a dsn"})
			}
		case "csv", "parquet":
		case "":
			issues = append(issues, Issue{SeverityError, path + ".kind", "sink kind must not be empty"})
		default:
			issues = append(issues, Issue{SeverityWarning, path + ".kind",
				fmt.Sprintf("unknown sink kind %q; ensure a matching implementation exists", s.Kind)})
		}
		switch s.Mode {
		case "", "replace", "append", "fail":
		default:
			issues = append(issues, Issue{SeverityError, path + ".mode",
				fmt.Sprintf("unknown write mode %q (want replace, append, or fail)", s.Mode)})
		}
	}
	return issues
}
