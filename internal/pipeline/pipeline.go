// Package pipeline wires the stages together: extract the configured
// sources, clean each one, merge two of them into a master table, gate the
// result behind the validators, and hand it to the configured sinks. A
// Pipeline value runs exactly once.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"giftetl/internal/config"
	"giftetl/internal/extract"
	"giftetl/internal/metrics"
	"giftetl/internal/storage"
	"giftetl/internal/transform"
	"giftetl/internal/validate"
	"giftetl/pkg/table"
)

// ErrValidationFailed marks a run aborted because a validation gate did not
// pass. Callers can distinguish it from I/O failures with errors.Is.
var ErrValidationFailed = errors.New("validation failed")

// State names the furthest point a run reached.
type State string

const (
	StateExtracted State = "extracted"
	StateCleaned   State = "cleaned"
	StateMerged    State = "merged"
	StateValidated State = "validated"
	StateLoaded    State = "loaded"
	StateAborted   State = "aborted"
)

// Summary reports what a run did, whether it finished or not.
type Summary struct {
	State         State
	RowsExtracted map[string]int
	RowsCleaned   map[string]int
	RowsMerged    int
	Validations   map[string]validate.Outcome
	RowsLoaded    map[string]int64
}

// Pipeline executes one configured run end to end.
type Pipeline struct {
	cfg config.Pipeline
	log *slog.Logger
	rec *metrics.Recorder

	// Replaceable seams for tests.
	newExtractor func(config.Source) (extract.Extractor, error)
	openSink     func(ctx context.Context, cfg storage.Config) (storage.Sink, error)

	ran bool
}

// New builds a pipeline from a validated config. The logger and recorder
// must not be nil; use metrics.Nop() when no backend is wanted.
func New(cfg config.Pipeline, log *slog.Logger, rec *metrics.Recorder) *Pipeline {
	return &Pipeline{
		cfg:          cfg,
		log:          log,
		rec:          rec,
		newExtractor: buildExtractor,
		openSink:     storage.New,
	}
}

// Run executes the pipeline once. The returned Summary is meaningful even
// on error; its State reports how far the run got.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	sum := Summary{
		RowsExtracted: map[string]int{},
		RowsCleaned:   map[string]int{},
		Validations:   map[string]validate.Outcome{},
		RowsLoaded:    map[string]int64{},
	}
	if p.ran {
		return sum, errors.New("pipeline already ran; build a new one per run")
	}
	p.ran = true

	p.log.Info("run starting", "job", p.cfg.Job, "sources", len(p.cfg.Sources))

	tables, err := p.extract(ctx, &sum)
	if err != nil {
		sum.State = StateAborted
		return sum, err
	}
	sum.State = StateExtracted

	if err := p.clean(tables, &sum); err != nil {
		sum.State = StateAborted
		return sum, err
	}
	sum.State = StateCleaned

	master, err := p.merge(tables, &sum)
	if err != nil {
		sum.State = StateAborted
		return sum, err
	}
	sum.State = StateMerged

	if err := p.validateMaster(master, &sum); err != nil {
		sum.State = StateAborted
		return sum, err
	}
	sum.State = StateValidated

	if err := p.load(ctx, master, &sum); err != nil {
		sum.State = StateAborted
		return sum, err
	}
	sum.State = StateLoaded

	p.log.Info("run complete", "job", p.cfg.Job, "rows", master.Len())
	return sum, nil
}

// extract pulls every configured source concurrently. A failing source
// contributes an empty table (the extractor boundary guarantees that), so
// the maps are always fully populated.
func (p *Pipeline) extract(ctx context.Context, sum *Summary) (map[string]table.Table, error) {
	start := time.Now()
	if secs := p.cfg.Runtime.ExtractTimeoutSeconds; secs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(secs)*time.Second)
		defer cancel()
	}

	tables := make(map[string]table.Table, len(p.cfg.Sources))
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for _, src := range p.cfg.Sources {
		src := src
		g.Go(func() error {
			ex, err := p.newExtractor(src)
			if err != nil {
				return fmt.Errorf("source %q: %w", src.Name, err)
			}
			t := extract.Run(ctx, ex, p.log)
			mu.Lock()
			tables[src.Name] = t
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	p.rec.Stage("extract", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	var total int64
	for name, t := range tables {
		sum.RowsExtracted[name] = t.Len()
		total += int64(t.Len())
	}
	p.rec.Rows("extracted", total)
	return tables, nil
}

// clean runs the per-source stage chain over every extracted table in
// place. Today the chain is just the cleaner; extra stages slot in here.
func (p *Pipeline) clean(tables map[string]table.Table, sum *Summary) error {
	start := time.Now()
	cc := transform.CleanerConfig{
		RequiredColumns: p.cfg.Clean.RequiredColumns,
		DateColumns:     p.cfg.Clean.DateColumns,
		NullThreshold:   p.cfg.Clean.NullThreshold,
		DateLayouts:     p.cfg.Clean.DateLayouts,
	}
	stages := transform.Chain{transform.NewCleaner(cc, p.log)}
	var firstErr error
	for _, src := range p.cfg.Sources {
		res := stages.Run(p.log, tables[src.Name])
		if res.FellBack {
			if p.cfg.Runtime.StrictTransforms {
				p.rec.Stage("clean", res.Err, time.Since(start))
				return fmt.Errorf("cleaning %q: %w", src.Name, res.Err)
			}
			if firstErr == nil {
				firstErr = res.Err
			}
		}
		tables[src.Name] = res.Table
		sum.RowsCleaned[src.Name] = res.Table.Len()
	}
	p.rec.Stage("clean", firstErr, time.Since(start))
	return nil
}

// merge joins the two named tables into the master table.
func (p *Pipeline) merge(tables map[string]table.Table, sum *Summary) (table.Table, error) {
	start := time.Now()
	left, ok := tables[p.cfg.Merge.Left]
	if !ok {
		return table.Empty(), fmt.Errorf("merge: no extracted source named %q", p.cfg.Merge.Left)
	}
	right, ok := tables[p.cfg.Merge.Right]
	if !ok {
		return table.Empty(), fmt.Errorf("merge: no extracted source named %q", p.cfg.Merge.Right)
	}
	mode, err := transform.ParseJoinMode(p.cfg.Merge.How)
	if err != nil {
		return table.Empty(), err
	}
	mapper := transform.NewEntityMapper(right, transform.MapperConfig{
		LeftKey:       p.cfg.Merge.LeftKey,
		RightKey:      p.cfg.Merge.RightKey,
		Mode:          mode,
		OutputColumns: p.cfg.Merge.OutputColumns,
	}, p.log)
	res := transform.Run(mapper, p.log, left)
	p.rec.Stage("merge", res.Err, time.Since(start))
	if res.FellBack && p.cfg.Runtime.StrictTransforms {
		return table.Empty(), fmt.Errorf("merging: %w", res.Err)
	}
	sum.RowsMerged = res.Table.Len()
	p.rec.Rows("merged", int64(res.Table.Len()))
	return res.Table, nil
}

// validateMaster runs both gates. Every validator runs even after a failure
// so the summary reports the full picture; any failure aborts the run.
func (p *Pipeline) validateMaster(master table.Table, sum *Summary) error {
	start := time.Now()
	kinds := make(map[string]table.Kind, len(p.cfg.Validate.Schema.Kinds))
	for col, k := range p.cfg.Validate.Schema.Kinds {
		kinds[col] = table.Kind(k)
	}
	gates := []validate.Validator{
		validate.NewSchemaValidator(validate.SchemaConfig{
			RequiredColumns: p.cfg.Validate.Schema.RequiredColumns,
			Kinds:           kinds,
		}, p.log),
		validate.NewIdentityValidator(validate.IdentityConfig{
			Column:          p.cfg.Validate.Identity.Column,
			AllowDuplicates: p.cfg.Validate.Identity.AllowDuplicates,
		}, p.log),
	}
	failed := false
	for _, g := range gates {
		out := validate.Run(g, p.log, master)
		sum.Validations[g.Name()] = out
		p.rec.Validation(g.Name(), out.Passed)
		if !out.Passed {
			failed = true
		}
	}
	if failed {
		p.rec.Stage("validate", ErrValidationFailed, time.Since(start))
		return fmt.Errorf("master table rejected: %w", ErrValidationFailed)
	}
	p.rec.Stage("validate", nil, time.Since(start))
	return nil
}

// load writes the master table to every configured sink. The first sink
// error stops the run; sinks already written stay written.
func (p *Pipeline) load(ctx context.Context, master table.Table, sum *Summary) error {
	start := time.Now()
	for i, sc := range p.cfg.Sinks {
		mode, err := storage.ParseWriteMode(sc.Mode)
		if err != nil {
			p.rec.Stage("load", err, time.Since(start))
			return fmt.Errorf("sink[%d]: %w", i, err)
		}
		sink, err := p.openSink(ctx, storage.Config{
			Kind:   sc.Kind,
			DSN:    sc.DSN,
			Table:  sc.Table,
			Mode:   mode,
			Dir:    sc.Dir,
			Prefix: sc.Prefix,
			Log:    p.log,
		})
		if err != nil {
			p.rec.Stage("load", err, time.Since(start))
			return fmt.Errorf("sink[%d] %q: %w", i, sc.Kind, err)
		}
		n, werr := sink.Write(ctx, master)
		cerr := sink.Close()
		if werr == nil {
			werr = cerr
		}
		if werr != nil {
			p.rec.Stage("load", werr, time.Since(start))
			return fmt.Errorf("sink[%d] %q: %w", i, sc.Kind, werr)
		}
		sum.RowsLoaded[sink.Name()] = n
		p.rec.Rows("loaded", n)
		p.log.Info("sink written", "sink", sink.Name(), "rows", n)
	}
	p.rec.Stage("load", nil, time.Since(start))
	return nil
}

// buildExtractor maps a source config onto a concrete extractor.
func buildExtractor(src config.Source) (extract.Extractor, error) {
	switch src.Kind {
	case "sample":
		return extract.NewSampleExtractor(src.Name), nil
	case "csv":
		return extract.NewCSVExtractor(extract.CSVConfig{
			Path:      src.CSV.Path,
			Delimiter: src.CSV.Delimiter,
			HeaderMap: src.CSV.HeaderMap,
		}), nil
	case "web":
		return extract.NewWebExtractor(extract.WebConfig{
			URL:      src.Web.URL,
			Selector: src.Web.Selector,
		}), nil
	case "api":
		return extract.NewAPIExtractor(extract.APIConfig{
			URL:       src.API.URL,
			AuthToken: src.API.AuthToken,
			PageSize:  src.API.PageSize,
		}), nil
	case "db":
		return extract.NewDBExtractor(extract.DBConfig{
			Driver: src.DB.Driver,
			DSN:    src.DB.DSN,
			Query:  src.DB.Query,
		}), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", src.Kind)
	}
}
