package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// AuditAction represents the type of change being audited.
type AuditAction string

const (
	AuditCreate AuditAction = "create"
	AuditUpdate AuditAction = "update"
	AuditDelete AuditAction = "delete"
)

const insertAuditSQL = `INSERT INTO audit_logs ("auditID", "tableName", "recordID", "action", "userID", "payload")
VALUES ($1, $2, $3, $4, $5, $6)`

// writeAudit records one change. Payload may be nil.
func writeAudit(ctx context.Context, db DBTX, table string, recordID any, action AuditAction, userID string, payload map[string]any) error {
	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal audit payload: %w", err)
		}
		body = b
	}

	_, err := db.Exec(ctx, insertAuditSQL,
		uuid.New(), table, fmt.Sprint(recordID), string(action), userID, body)
	if err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}
