package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/wms/internal/lookup"
	"github.com/JonMunkholm/wms/internal/modules"
	"github.com/JonMunkholm/wms/internal/store"
	"github.com/JonMunkholm/wms/internal/tabular"
)

// rowOffset is added to a row's 1-based position to get the row number shown
// in errors. It counts the header and guidance rows of the sample template.
const rowOffset = 2

// rowRunner processes parsed rows against one module's columns. The create
// capability is bound once per import.
type rowRunner struct {
	db       store.DBTX
	resolver Resolver
	columns  []modules.FieldSpec
	create   modules.CreateFunc
	userID   string
}

// all processes rows strictly in file order.
func (r *rowRunner) all(ctx context.Context, rows []tabular.Row) *ImportReport {
	report := newReport()
	for i, row := range rows {
		line := i + 1 + rowOffset
		if err := r.one(ctx, row); err != nil {
			report.fail(line, err)
			continue
		}
		report.succeed()
	}
	return report
}

func (r *rowRunner) one(ctx context.Context, row tabular.Row) error {
	rec, err := r.resolve(ctx, row)
	if err != nil {
		return err
	}
	if err := r.validate(rec); err != nil {
		return err
	}
	if _, err := r.create(ctx, r.db, rec, r.userID); err != nil {
		return err
	}
	return nil
}

// resolve reads every column's raw value and turns lookup names into ids.
// Lookup columns are stored as the resolved id or nil; other columns keep
// their raw text for validate.
func (r *rowRunner) resolve(ctx context.Context, row tabular.Row) (store.Record, error) {
	rec := make(store.Record, len(r.columns))
	ids := make(map[string]any) // lookup key -> resolved id

	for _, col := range r.columns {
		raw := cell(row, col)

		if col.ResolvesTo == nil {
			rec[col.RecordKey()] = raw
			continue
		}
		if isBlank(raw) {
			rec[col.RecordKey()] = nil
			continue
		}

		scope := r.scopeFor(col, ids)
		id, ok, err := r.resolver.Resolve(ctx, r.db, *col.ResolvesTo, raw, scope)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, noMatch(raw, *col.ResolvesTo, scope)
		}
		rec[col.RecordKey()] = id
		ids[col.ResolvesTo.Key] = id
	}
	return rec, nil
}

// scopeFor returns the parent restriction for col, or nil when col has no
// parent or the parent column was left blank.
func (r *rowRunner) scopeFor(col modules.FieldSpec, ids map[string]any) *lookup.Scope {
	if col.Parent == "" {
		return nil
	}
	parentID, ok := ids[col.Parent]
	if !ok || parentID == nil {
		return nil
	}
	parent, ok := lookup.ByKey(col.Parent)
	if !ok {
		return nil
	}
	return lookup.ScopeFor(parent, parentID)
}

// validate enforces required columns and converts typed values in place.
func (r *rowRunner) validate(rec store.Record) error {
	for _, col := range r.columns {
		key := col.RecordKey()
		v := rec[key]

		s, isText := v.(string)
		if v == nil || (isText && isBlank(s)) {
			if col.Required {
				return fmt.Errorf("Missing required value for column '%s'.", col.Header)
			}
			rec[key] = nil
			continue
		}
		if !isText {
			continue // resolved id
		}

		typed, err := coerce(col, s)
		if err != nil {
			return err
		}
		rec[key] = typed
	}
	return nil
}

// cell returns the raw value of col, read under its sample header first and
// then under its plain export header.
func cell(row tabular.Row, col modules.FieldSpec) string {
	if v, ok := row[tabular.AugmentedHeader(col)]; ok {
		return v
	}
	return row[col.Header]
}

func noMatch(value string, target lookup.Target, scope *lookup.Scope) error {
	if scope != nil {
		return fmt.Errorf("Could not find a match for '%s' in %s for the selected %s.",
			strings.TrimSpace(value), target.Table, scope.Key)
	}
	return fmt.Errorf("Could not find a match for '%s' in %s.", strings.TrimSpace(value), target.Table)
}
