// Package store is the PostgreSQL record store behind every master-data module.
//
// Each table is described once by an [Entity]; the same generic code performs
// the duplicate check, insert, update, soft delete, listing and lite listing
// for all of them. Foreign-key names are resolved to ids by [Resolver].
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Record is a single row keyed by column name.
type Record map[string]any

// Page is a paginated list result.
type Page struct {
	Data     []Record `json:"data"`
	Total    int64    `json:"total"`
	Page     int      `json:"page"`
	PageSize int      `json:"pageSize"`
}

// Status filters rows by their isActive flag. Deleted rows are never listed.
type Status string

const (
	StatusAll      Status = ""
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// ListParams narrows a List or Lite query.
type ListParams struct {
	Search   string         // Case-insensitive substring match on the name column
	Status   Status         // Active/inactive filter
	Filters  map[string]any // Equality filters on entity columns, e.g. {"countryID": 3}
	Page     int            // 1-based; 0 disables pagination
	PageSize int
}

// Standard bookkeeping columns present on every entity table.
const (
	colActive    = "isActive"
	colDeleted   = "isDeleted"
	colCreatedBy = "createdBy"
	colCreatedAt = "createdAt"
	colUpdatedBy = "updatedBy"
	colUpdatedAt = "updatedAt"
)

// ErrNotFound is returned when a record does not exist or is soft-deleted.
var ErrNotFound = errors.New("record not found")

// ErrInvalidParams wraps input that cannot be turned into a query.
var ErrInvalidParams = errors.New("invalid parameters")

// DuplicateError reports a name that already exists among live rows.
type DuplicateError struct {
	Table string
	Name  string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate key: '%s' already exists in %s", e.Name, e.Table)
}

// quoteIdentifier quotes a SQL identifier. Column names are camelCase, so
// every identifier is quoted.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
