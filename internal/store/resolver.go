package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/wms/internal/lookup"
	"github.com/jackc/pgx/v5"
)

// Resolver turns display names into ids by querying the target table.
type Resolver struct{}

// NewResolver returns a database-backed resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns the id of the active, non-deleted row in target whose name
// matches name (case-insensitive, trimmed). ok is false when nothing matches.
func (r *Resolver) Resolve(ctx context.Context, db DBTX, target lookup.Target, name string, scope *lookup.Scope) (any, bool, error) {
	query, args := buildResolve(target, name, scope)

	var id int64
	err := db.QueryRow(ctx, query, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("resolve %s: %w", target.Table, err)
	}
	return id, true, nil
}

func buildResolve(target lookup.Target, name string, scope *lookup.Scope) (string, []any) {
	wb := NewWhereBuilder()
	wb.AddExpr("lower(trim("+col(target.NameColumn)+")) = lower(%s)", strings.TrimSpace(name))
	wb.AddRaw(col(colActive) + " = true")
	wb.AddRaw(col(colDeleted) + " = false")
	if scope != nil {
		wb.Add(col(scope.Column), scope.Value)
	}
	where, args := wb.Build()

	query := fmt.Sprintf("SELECT %s FROM %s %s%s ORDER BY %s LIMIT 1",
		col(target.IDColumn), quoteIdentifier(target.Table), tableAlias, where, col(target.IDColumn))
	return query, args
}
