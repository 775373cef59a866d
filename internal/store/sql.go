package store

// sql.go builds the parameterised statements shared by every entity.
// Builders are pure so they can be tested without a database.

import (
	"fmt"
	"strings"
)

// WhereBuilder accumulates AND-ed conditions with positional arguments.
type WhereBuilder struct {
	conditions []string
	args       []any
	argIndex   int
}

// NewWhereBuilder returns a builder whose first placeholder is $1.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{argIndex: 1}
}

// Add appends "column = $n".
func (wb *WhereBuilder) Add(column string, value any) *WhereBuilder {
	return wb.AddExpr(column+" = %s", value)
}

// AddExpr appends a condition whose single %s verb is replaced by the next
// placeholder.
func (wb *WhereBuilder) AddExpr(format string, value any) *WhereBuilder {
	wb.conditions = append(wb.conditions, fmt.Sprintf(format, wb.placeholder()))
	wb.args = append(wb.args, value)
	return wb
}

// AddRaw appends a condition that takes no arguments.
func (wb *WhereBuilder) AddRaw(cond string) *WhereBuilder {
	wb.conditions = append(wb.conditions, cond)
	return wb
}

func (wb *WhereBuilder) placeholder() string {
	p := fmt.Sprintf("$%d", wb.argIndex)
	wb.argIndex++
	return p
}

// Next reserves the next placeholder for use outside the WHERE clause.
func (wb *WhereBuilder) Next(value any) string {
	wb.args = append(wb.args, value)
	return wb.placeholder()
}

// Build returns the WHERE clause (with a leading space) and its arguments.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

// Args returns every argument reserved so far.
func (wb *WhereBuilder) Args() []any {
	return wb.args
}

const tableAlias = "t"

func col(name string) string {
	return tableAlias + "." + quoteIdentifier(name)
}

// selectClause returns the SELECT ... FROM ... JOIN ... part shared by Get and List.
func (e *Entity) selectClause() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(tableAlias)
	b.WriteString(".*")
	for i, ref := range e.Refs {
		fmt.Fprintf(&b, ", r%d.%s AS %s", i, quoteIdentifier(ref.Target.NameColumn), quoteIdentifier(ref.Alias))
	}
	fmt.Fprintf(&b, " FROM %s %s", quoteIdentifier(e.Table), tableAlias)
	for i, ref := range e.Refs {
		fmt.Fprintf(&b, " LEFT JOIN %s r%d ON r%d.%s = %s",
			quoteIdentifier(ref.Target.Table), i, i,
			quoteIdentifier(ref.Target.IDColumn), col(ref.Column))
	}
	return b.String()
}

// listWhere applies the deleted/status/search/filter conditions.
func (e *Entity) listWhere(p ListParams) (*WhereBuilder, error) {
	wb := NewWhereBuilder()
	wb.AddRaw(col(colDeleted) + " = false")

	switch p.Status {
	case StatusActive:
		wb.AddRaw(col(colActive) + " = true")
	case StatusInactive:
		wb.AddRaw(col(colActive) + " = false")
	case StatusAll:
	default:
		return nil, fmt.Errorf("%w: invalid status %q", ErrInvalidParams, p.Status)
	}

	if s := strings.TrimSpace(p.Search); s != "" {
		wb.AddExpr(col(e.NameColumn)+" ILIKE %s", "%"+s+"%")
	}

	for _, name := range sortedKeys(p.Filters) {
		if !e.hasColumn(name) {
			return nil, fmt.Errorf("%w: unknown filter column %q for %s", ErrInvalidParams, name, e.Table)
		}
		wb.Add(col(name), p.Filters[name])
	}
	return wb, nil
}

func (e *Entity) buildList(p ListParams) (query string, countQuery string, args []any, err error) {
	wb, err := e.listWhere(p)
	if err != nil {
		return "", "", nil, err
	}
	where, args := wb.Build()

	countQuery = fmt.Sprintf("SELECT count(*) FROM %s %s%s", quoteIdentifier(e.Table), tableAlias, where)

	query = e.selectClause() + where + " ORDER BY " + col(e.NameColumn) + ", " + col(e.IDColumn)
	if p.Page > 0 && p.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", p.PageSize, (p.Page-1)*p.PageSize)
	}
	return query, countQuery, args, nil
}

func (e *Entity) buildLite(p ListParams) (string, []any, error) {
	p.Status = StatusActive
	p.Search = strings.TrimSpace(p.Search)
	wb, err := e.listWhere(p)
	if err != nil {
		return "", nil, err
	}
	where, args := wb.Build()
	query := fmt.Sprintf("SELECT %s, %s FROM %s %s%s ORDER BY %s",
		col(e.IDColumn), col(e.NameColumn), quoteIdentifier(e.Table), tableAlias, where, col(e.NameColumn))
	return query, args, nil
}

func (e *Entity) buildGet(id any) (string, []any) {
	wb := NewWhereBuilder()
	wb.Add(col(e.IDColumn), id)
	wb.AddRaw(col(colDeleted) + " = false")
	where, args := wb.Build()
	return e.selectClause() + where, args
}

// buildDuplicateCheck finds a live row with the same name inside the entity's
// uniqueness scope, optionally ignoring the row being updated.
func (e *Entity) buildDuplicateCheck(name string, in Record, excludeID any) (string, []any) {
	wb := NewWhereBuilder()
	wb.AddExpr("lower(trim("+col(e.NameColumn)+")) = lower(trim(%s))", name)
	wb.AddRaw(col(colDeleted) + " = false")
	for _, scope := range e.Scope {
		wb.AddExpr(col(scope)+" IS NOT DISTINCT FROM %s", in[scope])
	}
	if excludeID != nil {
		wb.AddExpr(col(e.IDColumn)+" <> %s", excludeID)
	}
	where, args := wb.Build()
	query := fmt.Sprintf("SELECT %s FROM %s %s%s LIMIT 1",
		col(e.IDColumn), quoteIdentifier(e.Table), tableAlias, where)
	return query, args
}

func (e *Entity) buildInsert(in Record, userID string) (string, []any) {
	cols := e.presentColumns(in)
	names := make([]string, 0, len(cols)+2)
	placeholders := make([]string, 0, len(cols)+2)
	args := make([]any, 0, len(cols)+2)

	for _, c := range cols {
		names = append(names, quoteIdentifier(c))
		args = append(args, in[c])
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}
	for _, c := range []string{colCreatedBy, colUpdatedBy} {
		names = append(names, quoteIdentifier(c))
		args = append(args, userID)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		quoteIdentifier(e.Table), strings.Join(names, ", "), strings.Join(placeholders, ", "))
	return query, args
}

func (e *Entity) buildUpdate(id any, in Record, userID string) (string, []any) {
	cols := e.presentColumns(in)
	sets := make([]string, 0, len(cols)+2)
	args := make([]any, 0, len(cols)+3)

	for _, c := range cols {
		args = append(args, in[c])
		sets = append(sets, fmt.Sprintf("%s = $%d", quoteIdentifier(c), len(args)))
	}
	args = append(args, userID)
	sets = append(sets, fmt.Sprintf("%s = $%d", quoteIdentifier(colUpdatedBy), len(args)))
	sets = append(sets, quoteIdentifier(colUpdatedAt)+" = now()")

	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d AND %s = false RETURNING *",
		quoteIdentifier(e.Table), strings.Join(sets, ", "),
		quoteIdentifier(e.IDColumn), len(args), quoteIdentifier(colDeleted))
	return query, args
}

func (e *Entity) buildSoftDelete(id any, userID string) (string, []any) {
	query := fmt.Sprintf("UPDATE %s SET %s = true, %s = false, %s = $1, %s = now() WHERE %s = $2 AND %s = false",
		quoteIdentifier(e.Table),
		quoteIdentifier(colDeleted), quoteIdentifier(colActive),
		quoteIdentifier(colUpdatedBy), quoteIdentifier(colUpdatedAt),
		quoteIdentifier(e.IDColumn), quoteIdentifier(colDeleted))
	return query, []any{userID, id}
}

// presentColumns returns the writable columns supplied in, in declaration order.
func (e *Entity) presentColumns(in Record) []string {
	cols := make([]string, 0, len(e.Columns))
	for _, c := range e.Columns {
		if _, ok := in[c]; ok {
			cols = append(cols, c)
		}
	}
	return cols
}
