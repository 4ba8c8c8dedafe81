// Package transform holds the table-to-table stages of the pipeline: the
// cleaner and the entity mapper, plus the shared run boundary every stage
// goes through.
package transform

import (
	"fmt"
	"log/slog"

	"giftetl/pkg/table"
)

// Transformer is a pure table-to-table stage. Implementations must not
// mutate the input table; they build and return a new one.
type Transformer interface {
	Name() string
	Transform(in table.Table) (table.Table, error)
}

// Result is the outcome of running one transformer through the boundary.
// When FellBack is true the stage failed internally and Table carries the
// stage's original input unchanged; Err holds the cause. Callers decide
// whether a fallback aborts the run or the pipeline carries on.
type Result struct {
	Table    table.Table
	Err      error
	FellBack bool
}

// Run executes a transformer inside the stage boundary. Internal errors and
// panics never escape: the result falls back to the untouched input so
// downstream stages still receive a table shape they can reason about.
func Run(tr Transformer, log *slog.Logger, in table.Table) (res Result) {
	log.Info("transform starting", "stage", tr.Name(), "rows_in", in.Len())
	defer func() {
		if r := recover(); r != nil {
			res = Result{Table: in, Err: fmt.Errorf("%s: panic: %v", tr.Name(), r), FellBack: true}
			log.Error("transform panicked, returning input unchanged", "stage", tr.Name(), "err", res.Err)
		}
	}()
	out, err := tr.Transform(in)
	if err != nil {
		log.Error("transform failed, returning input unchanged", "stage", tr.Name(), "err", err)
		return Result{Table: in, Err: fmt.Errorf("%s: %w", tr.Name(), err), FellBack: true}
	}
	log.Info("transform complete", "stage", tr.Name(), "rows_out", out.Len())
	return Result{Table: out}
}

// Chain applies transformers in order through the run boundary. A failed
// step contributes its fallback (input) table to the next step; the first
// error is reported on the final result so callers can observe it.
type Chain []Transformer

// Run executes the chain. The returned Result carries the final table and,
// if any step fell back, the first such error with FellBack set.
func (c Chain) Run(log *slog.Logger, in table.Table) Result {
	cur := in
	var firstErr error
	fellBack := false
	for _, tr := range c {
		res := Run(tr, log, cur)
		if res.FellBack && firstErr == nil {
			firstErr = res.Err
			fellBack = true
		}
		cur = res.Table
	}
	return Result{Table: cur, Err: firstErr, FellBack: fellBack}
}
