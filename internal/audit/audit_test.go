package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/unified-report/apps/api/internal/store"
)

type recordingInserter struct {
	params []store.InsertAuditLogParams
	err    error
}

func (r *recordingInserter) InsertAuditLog(_ context.Context, arg store.InsertAuditLogParams) error {
	r.params = append(r.params, arg)
	return r.err
}

func TestLogEncodesMetadata(t *testing.T) {
	rec := &recordingInserter{}
	engagementID := uuid.New()

	err := NewLogger(rec, nil).Log(context.Background(), Entry{
		EngagementID: &engagementID,
		Action:       "import.applied",
		EntityType:   "import_run",
		RequestID:    "req-1",
		Metadata:     map[string]any{"kind": "top-products"},
	})
	if err != nil {
		t.Fatalf("log: %v", err)
	}

	got := rec.params[0]
	if got.RequestID == nil || *got.RequestID != "req-1" {
		t.Fatalf("expected request id, got %v", got.RequestID)
	}
	var metadata map[string]string
	if err := json.Unmarshal(got.Metadata, &metadata); err != nil || metadata["kind"] != "top-products" {
		t.Fatalf("unexpected metadata %s (%v)", got.Metadata, err)
	}
}

func TestLogDefaultsAndErrors(t *testing.T) {
	rec := &recordingInserter{err: errors.New("db down")}

	err := NewLogger(rec, nil).Log(context.Background(), Entry{Action: "section.saved", EntityType: "report_note"})
	if err == nil {
		t.Fatalf("expected insert error to propagate")
	}
	if string(rec.params[0].Metadata) != "{}" || rec.params[0].RequestID != nil {
		t.Fatalf("unexpected defaults: %+v", rec.params[0])
	}
}
