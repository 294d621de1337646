package store

import (
	"context"

	"github.com/google/uuid"
)

const createImportRun = `
INSERT INTO import_runs (engagement_id, kind, mode, filename, file_sha256, customer_name, summary_json)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, engagement_id, kind, mode, filename, file_sha256, customer_name, summary_json, created_at
`

type CreateImportRunParams struct {
	EngagementID uuid.UUID
	Kind         string
	Mode         string
	Filename     string
	FileSha256   string
	CustomerName *string
	SummaryJson  []byte
}

func (q *Queries) CreateImportRun(ctx context.Context, arg CreateImportRunParams) (ImportRun, error) {
	row := q.db.QueryRow(ctx, createImportRun,
		arg.EngagementID,
		arg.Kind,
		arg.Mode,
		arg.Filename,
		arg.FileSha256,
		arg.CustomerName,
		arg.SummaryJson,
	)
	var i ImportRun
	err := row.Scan(
		&i.ID,
		&i.EngagementID,
		&i.Kind,
		&i.Mode,
		&i.Filename,
		&i.FileSha256,
		&i.CustomerName,
		&i.SummaryJson,
		&i.CreatedAt,
	)
	return i, err
}

const insertAuditLog = `
INSERT INTO audit_logs (engagement_id, action, entity_type, entity_id, request_id, metadata)
VALUES ($1, $2, $3, $4, $5, $6)
`

type InsertAuditLogParams struct {
	EngagementID *uuid.UUID
	Action       string
	EntityType   string
	EntityID     *uuid.UUID
	RequestID    *string
	Metadata     []byte
}

func (q *Queries) InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) error {
	_, err := q.db.Exec(ctx, insertAuditLog,
		arg.EngagementID,
		arg.Action,
		arg.EntityType,
		arg.EntityID,
		arg.RequestID,
		arg.Metadata,
	)
	return err
}
