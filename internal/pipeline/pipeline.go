// Package pipeline moves module records between the database and CSV/XLSX
// files.
//
// Export fetches records through a module's fetch capability and renders them
// with human-readable lookup names. Import parses an upload and, one row at a
// time, resolves lookup names to ids, validates and types each value, then
// hands the record to the module's create capability. A failing row is
// reported and never affects the rows around it.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/wms/internal/logging"
	"github.com/JonMunkholm/wms/internal/lookup"
	"github.com/JonMunkholm/wms/internal/modules"
	"github.com/JonMunkholm/wms/internal/store"
	"github.com/JonMunkholm/wms/internal/tabular"
	"github.com/google/uuid"
)

// Resolver finds the id of the row in target whose display name is name,
// optionally restricted to a parent scope. ok is false when nothing matches.
type Resolver interface {
	Resolve(ctx context.Context, db store.DBTX, target lookup.Target, name string, scope *lookup.Scope) (id any, ok bool, err error)
}

// Recorder receives the outcome of every import and export.
type Recorder interface {
	ImportFinished(module string, succeeded, failed int, elapsed time.Duration)
	ExportFinished(module string, rows int, elapsed time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) ImportFinished(string, int, int, time.Duration)    {}
func (nopRecorder) ExportFinished(string, int, time.Duration, error) {}

// Pipeline runs imports and exports against a module registry.
type Pipeline struct {
	registry *modules.Registry
	resolver Resolver
	limiter  *Limiter
	recorder Recorder
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLimiter bounds concurrent imports.
func WithLimiter(l *Limiter) Option {
	return func(p *Pipeline) { p.limiter = l }
}

// WithRecorder reports import/export outcomes, e.g. to metrics.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// New returns a pipeline over registry that resolves lookups with resolver.
func New(registry *modules.Registry, resolver Resolver, opts ...Option) *Pipeline {
	p := &Pipeline{
		registry: registry,
		resolver: resolver,
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Export renders the module's records as CSV.
func (p *Pipeline) Export(ctx context.Context, db store.DBTX, moduleKey string, params store.ListParams) ([]byte, error) {
	return p.ExportAs(ctx, db, moduleKey, params, tabular.FormatCSV)
}

// ExportAs renders the module's records in the given format.
func (p *Pipeline) ExportAs(ctx context.Context, db store.DBTX, moduleKey string, params store.ListParams, format tabular.Format) ([]byte, error) {
	cfg, err := p.registry.Get(moduleKey)
	if err != nil {
		return nil, err
	}
	if err := cfg.Require("fetch"); err != nil {
		return nil, err
	}

	start := time.Now()
	out, rows, err := exportRecords(ctx, db, cfg.Columns, cfg.Fetch, params, format)
	p.recorder.ExportFinished(moduleKey, rows, time.Since(start), err)
	if err != nil {
		return nil, &ExportError{Module: moduleKey, Err: err}
	}

	logging.WithFields(ctx, "module", moduleKey, "format", string(format)).
		Info("export complete", "rows", rows, "duration", time.Since(start))
	return out, nil
}

func exportRecords(ctx context.Context, db store.DBTX, columns []modules.FieldSpec, fetch modules.FetchFunc, params store.ListParams, format tabular.Format) ([]byte, int, error) {
	result, err := fetch(ctx, db, params)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch: %w", err)
	}
	records, err := normalize(result)
	if err != nil {
		return nil, 0, err
	}

	var out []byte
	if format == tabular.FormatXLSX {
		out, err = tabular.ToXLSX(columns, records)
	} else {
		out, err = tabular.ToCSV(columns, records)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("render: %w", err)
	}
	return out, len(records), nil
}

// normalize accepts the shapes a fetch capability may return.
func normalize(result any) ([]store.Record, error) {
	switch r := result.(type) {
	case nil:
		return nil, nil
	case []store.Record:
		return r, nil
	case store.Page:
		return r.Data, nil
	case *store.Page:
		if r == nil {
			return nil, nil
		}
		return r.Data, nil
	case []map[string]any:
		out := make([]store.Record, len(r))
		for i, m := range r {
			out[i] = m
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected fetch result %T", result)
	}
}

// Sample renders the module's import template.
func (p *Pipeline) Sample(moduleKey string, format tabular.Format) ([]byte, error) {
	cfg, err := p.registry.Get(moduleKey)
	if err != nil {
		return nil, err
	}
	if format == tabular.FormatXLSX {
		return tabular.GenerateSampleXLSX(cfg.Columns)
	}
	return tabular.GenerateSample(cfg.Columns)
}

// Import creates one record per data row of the uploaded file. Only an
// unknown module, a busy limiter or an undecodable file fail the whole call;
// everything else is reported per row.
func (p *Pipeline) Import(ctx context.Context, db store.DBTX, moduleKey string, data []byte, filename, userID string) (*ImportReport, error) {
	cfg, err := p.registry.Get(moduleKey)
	if err != nil {
		return nil, err
	}
	if err := cfg.Require("create"); err != nil {
		return nil, err
	}

	if p.limiter != nil {
		if err := p.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		defer p.limiter.Release()
	}

	rows, err := tabular.ParseTable(data, filename)
	if err != nil {
		return nil, err
	}

	logger := logging.WithFields(ctx,
		"import_id", uuid.NewString(),
		"module", moduleKey,
		"file", filename,
	)
	logger.Info("import started", "rows", len(rows))

	start := time.Now()
	run := &rowRunner{db: db, resolver: p.resolver, columns: cfg.Columns, create: cfg.Create, userID: userID}
	report := run.all(ctx, rows)
	elapsed := time.Since(start)

	p.recorder.ImportFinished(moduleKey, report.SuccessCount, report.ErrorCount, elapsed)
	logger.Info("import finished",
		"succeeded", report.SuccessCount,
		"failed", report.ErrorCount,
		"duration", elapsed,
	)
	return report, nil
}
