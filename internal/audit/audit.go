package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/unified-report/apps/api/internal/store"
)

type Inserter interface {
	InsertAuditLog(ctx context.Context, arg store.InsertAuditLogParams) error
}

type Logger struct {
	q      Inserter
	logger *slog.Logger
}

func NewLogger(q Inserter, logger *slog.Logger) *Logger {
	return &Logger{q: q, logger: logger}
}

type Entry struct {
	EngagementID *uuid.UUID
	Action       string
	EntityType   string
	EntityID     *uuid.UUID
	RequestID    string
	Metadata     map[string]any
}

func (l *Logger) Log(ctx context.Context, entry Entry) error {
	metadata := []byte("{}")
	if len(entry.Metadata) > 0 {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		metadata = encoded
	}

	params := store.InsertAuditLogParams{
		EngagementID: entry.EngagementID,
		Action:       entry.Action,
		EntityType:   entry.EntityType,
		EntityID:     entry.EntityID,
		Metadata:     metadata,
	}
	if entry.RequestID != "" {
		params.RequestID = &entry.RequestID
	}

	if err := l.q.InsertAuditLog(ctx, params); err != nil {
		if l.logger != nil {
			l.logger.Warn("audit_write_failed", "action", entry.Action, "request_id", entry.RequestID, "error", err)
		}
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
