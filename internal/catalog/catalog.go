// Package catalog registers every master-data module with the module
// registry. Import it for its side effects:
//
//	import _ "github.com/JonMunkholm/wms/internal/catalog"
package catalog

import (
	"context"
	"sort"

	"github.com/JonMunkholm/wms/internal/lookup"
	"github.com/JonMunkholm/wms/internal/modules"
	"github.com/JonMunkholm/wms/internal/store"
)

// definition is one module: its table and ordered field list.
type definition struct {
	Key    string
	Name   string
	Label  string
	Target lookup.Target // the module's own table
	Scope  []string      // columns that scope name uniqueness
	Fields []modules.FieldSpec
}

var entities = map[string]*store.Entity{}

// Entity returns the store entity behind a registered module.
func Entity(key string) (*store.Entity, bool) {
	e, ok := entities[key]
	return e, ok
}

// Keys returns the keys of every module registered by this package.
func Keys() []string {
	keys := make([]string, 0, len(entities))
	for k := range entities {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func register(d definition) {
	e := newEntity(d)
	entities[d.Key] = e
	modules.Register(bindModule(d, e))
}

// newEntity derives the table description from the field list. Lookup
// columns are joined back to their target's name under the field's export key.
func newEntity(d definition) *store.Entity {
	e := &store.Entity{
		Table:      d.Target.Table,
		IDColumn:   d.Target.IDColumn,
		NameColumn: d.Target.NameColumn,
		Scope:      d.Scope,
	}
	for _, f := range d.Fields {
		e.Columns = append(e.Columns, f.RecordKey())
		if f.ResolvesTo == nil {
			continue
		}
		alias := f.ExportKey
		if alias == "" {
			alias = modules.DeriveExportKey(f.Key)
		}
		e.Refs = append(e.Refs, store.Ref{Column: f.RecordKey(), Target: *f.ResolvesTo, Alias: alias})
	}
	return e
}

func bindModule(d definition, e *store.Entity) *modules.ModuleConfig {
	return &modules.ModuleConfig{
		Key:    d.Key,
		Name:   d.Name,
		Label:  d.Label,
		Fields: d.Fields,

		Fetch: func(ctx context.Context, db store.DBTX, p store.ListParams) (any, error) {
			return e.List(ctx, db, p)
		},
		Create: e.Create,
		Get: func(ctx context.Context, db store.DBTX, id int64) (store.Record, error) {
			return e.Get(ctx, db, id)
		},
		Update: func(ctx context.Context, db store.DBTX, id int64, rec store.Record, userID string) (store.Record, error) {
			return e.Update(ctx, db, id, rec, userID)
		},
		Delete: func(ctx context.Context, db store.DBTX, id int64, userID string) error {
			return e.Delete(ctx, db, id, userID)
		},
		Lite: e.Lite,
	}
}

// status is the standard active flag every module exports last.
var status = modules.FieldSpec{Key: "isActive", Header: "Status", Type: modules.FieldBoolean}
