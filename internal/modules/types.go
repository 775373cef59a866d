// Package modules holds the declarative import/export configuration of every
// master-data module: its ordered field list, how each field is typed and
// resolved, and the store capabilities the pipeline calls.
package modules

import (
	"context"
	"sync"

	"github.com/JonMunkholm/wms/internal/lookup"
	"github.com/JonMunkholm/wms/internal/store"
)

// FieldType is the expected value type of a column. The zero value is text.
type FieldType string

const (
	FieldText    FieldType = ""
	FieldBoolean FieldType = "boolean"
	FieldInteger FieldType = "integer"
	FieldDecimal FieldType = "decimal"
	FieldDate    FieldType = "date"
)

// FieldSpec describes one column of a module.
type FieldSpec struct {
	Key        string         `json:"key"`                  // Record key: "countryID"
	Header     string         `json:"header"`               // Display header: "Country Name"
	Required   bool           `json:"required"`             // Import rejects blank values
	IsOptional bool           `json:"isOptional,omitempty"` // Explicitly optional; mutually exclusive with Required
	Type       FieldType      `json:"type,omitempty"`
	ResolvesTo *lookup.Target `json:"-"`                    // Names in this column resolve to ids in the target table
	Parent     string         `json:"parent,omitempty"`     // Lookup key of an earlier field that scopes this lookup
	ImportKey  string         `json:"importKey,omitempty"`  // Record key used on create, when it differs from Key
	ExportKey  string         `json:"exportKey,omitempty"`  // Record key read on export; derived for lookups
}

// RecordKey is the key the resolved value is stored under when creating.
func (f FieldSpec) RecordKey() string {
	if f.ImportKey != "" {
		return f.ImportKey
	}
	return f.Key
}

// ValueKey is the key read from a fetched record on export.
func (f FieldSpec) ValueKey() string {
	if f.ExportKey != "" {
		return f.ExportKey
	}
	return f.Key
}

// FetchFunc reads records for export. It returns []store.Record or store.Page.
type FetchFunc func(ctx context.Context, db store.DBTX, params store.ListParams) (any, error)

// CreateFunc persists one imported record on behalf of userID.
type CreateFunc func(ctx context.Context, db store.DBTX, rec store.Record, userID string) (store.Record, error)

// GetFunc reads a single record by id.
type GetFunc func(ctx context.Context, db store.DBTX, id int64) (store.Record, error)

// UpdateFunc overwrites the supplied fields of a record.
type UpdateFunc func(ctx context.Context, db store.DBTX, id int64, rec store.Record, userID string) (store.Record, error)

// DeleteFunc soft-deletes a record.
type DeleteFunc func(ctx context.Context, db store.DBTX, id int64, userID string) error

// LiteFunc returns the id+name projection used by selection lists.
type LiteFunc func(ctx context.Context, db store.DBTX, params store.ListParams) ([]store.Record, error)

// ModuleConfig is the registered configuration of a module.
type ModuleConfig struct {
	Key    string      // Route key: "vendors"
	Name   string      // Singular name: "Vendor"
	Label  string      // Display name: "Vendors"
	Fields []FieldSpec // Processing and column order

	Fetch  FetchFunc
	Create CreateFunc
	Get    GetFunc
	Update UpdateFunc
	Delete DeleteFunc
	Lite   LiteFunc

	// Columns is Fields with derived export keys filled in. Populated on
	// first access through a Registry.
	Columns []FieldSpec

	derive sync.Once
}

// Capabilities is the explicit pair of operations the pipeline needs.
type Capabilities struct {
	Fetch  FetchFunc
	Create CreateFunc
}

// Capabilities returns the module's fetch/create pair.
func (m *ModuleConfig) Capabilities() Capabilities {
	return Capabilities{Fetch: m.Fetch, Create: m.Create}
}
