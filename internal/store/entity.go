package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/wms/internal/lookup"
	"github.com/jackc/pgx/v5"
)

// Ref joins a foreign-key column to its target so List can return the
// target's display name under Alias.
type Ref struct {
	Column string
	Target lookup.Target
	Alias  string
}

// Entity describes one master-data table.
type Entity struct {
	Table      string
	IDColumn   string
	NameColumn string
	Columns    []string // Writable columns, insertion order
	Scope      []string // Columns that, with NameColumn, must be unique among live rows
	Refs       []Ref
}

func (e *Entity) hasColumn(name string) bool {
	if name == e.IDColumn {
		return true
	}
	for _, c := range e.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Create inserts a record after checking that its name is not already taken.
func (e *Entity) Create(ctx context.Context, db DBTX, in Record, userID string) (Record, error) {
	in = e.writable(in)
	for k, v := range in {
		if v == nil {
			delete(in, k) // column default applies
		}
	}
	if err := e.checkDuplicate(ctx, db, in, nil); err != nil {
		return nil, err
	}

	query, args := e.buildInsert(in, userID)
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", e.Table, err)
	}
	rec, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", e.Table, err)
	}

	if err := writeAudit(ctx, db, e.Table, rec[e.IDColumn], AuditCreate, userID, rec); err != nil {
		return nil, err
	}
	return Record(rec), nil
}

// Update overwrites the supplied columns of a live record.
func (e *Entity) Update(ctx context.Context, db DBTX, id any, in Record, userID string) (Record, error) {
	in = e.writable(in)
	if _, ok := in[e.NameColumn]; ok {
		// Scope columns that are not being changed keep their stored value.
		check := Record{}
		if len(e.Scope) > 0 {
			current, err := e.Get(ctx, db, id)
			if err != nil {
				return nil, err
			}
			for _, s := range e.Scope {
				check[s] = current[s]
			}
		}
		for k, v := range in {
			check[k] = v
		}
		if err := e.checkDuplicate(ctx, db, check, id); err != nil {
			return nil, err
		}
	}

	query, args := e.buildUpdate(id, in, userID)
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", e.Table, err)
	}
	rec, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", e.Table, err)
	}

	if err := writeAudit(ctx, db, e.Table, id, AuditUpdate, userID, in); err != nil {
		return nil, err
	}
	return Record(rec), nil
}

// Delete soft-deletes a record.
func (e *Entity) Delete(ctx context.Context, db DBTX, id any, userID string) error {
	query, args := e.buildSoftDelete(id, userID)
	tag, err := db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", e.Table, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return writeAudit(ctx, db, e.Table, id, AuditDelete, userID, nil)
}

// Get returns one live record with its reference names joined in.
func (e *Entity) Get(ctx context.Context, db DBTX, id any) (Record, error) {
	query, args := e.buildGet(id)
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", e.Table, err)
	}
	rec, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", e.Table, err)
	}
	return Record(rec), nil
}

// List returns live records ordered by name.
func (e *Entity) List(ctx context.Context, db DBTX, p ListParams) (Page, error) {
	query, countQuery, args, err := e.buildList(p)
	if err != nil {
		return Page{}, err
	}

	var total int64
	if err := db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return Page{}, fmt.Errorf("count %s: %w", e.Table, err)
	}

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return Page{}, fmt.Errorf("list %s: %w", e.Table, err)
	}
	data, err := collectRecords(rows)
	if err != nil {
		return Page{}, fmt.Errorf("list %s: %w", e.Table, err)
	}

	return Page{Data: data, Total: total, Page: p.Page, PageSize: p.PageSize}, nil
}

// Lite returns the id and name of active records, for selection lists.
func (e *Entity) Lite(ctx context.Context, db DBTX, p ListParams) ([]Record, error) {
	query, args, err := e.buildLite(p)
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("lite %s: %w", e.Table, err)
	}
	data, err := collectRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("lite %s: %w", e.Table, err)
	}
	return data, nil
}

func (e *Entity) checkDuplicate(ctx context.Context, db DBTX, in Record, excludeID any) error {
	name, _ := in[e.NameColumn].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidParams, e.NameColumn)
	}

	query, args := e.buildDuplicateCheck(name, in, excludeID)
	var existing any
	err := db.QueryRow(ctx, query, args...).Scan(&existing)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("duplicate check %s: %w", e.Table, err)
	}
	return &DuplicateError{Table: e.Table, Name: name}
}

// writable drops keys that are not writable columns of the entity.
func (e *Entity) writable(in Record) Record {
	out := make(Record, len(in))
	for _, c := range e.Columns {
		if v, ok := in[c]; ok {
			out[c] = v
		}
	}
	return out
}

func collectRecords(rows pgx.Rows) ([]Record, error) {
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}
	out := make([]Record, len(maps))
	for i, m := range maps {
		out[i] = Record(m)
	}
	return out, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
