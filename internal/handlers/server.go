package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/unified-report/apps/api/internal/audit"
	"github.com/unified-report/apps/api/internal/compliance"
	"github.com/unified-report/apps/api/internal/config"
	"github.com/unified-report/apps/api/internal/httpx"
	"github.com/unified-report/apps/api/internal/middleware"
	"github.com/unified-report/apps/api/internal/sections"
	"github.com/unified-report/apps/api/internal/store"
)

type EngagementStore interface {
	CreateEngagement(ctx context.Context, arg store.CreateEngagementParams) (store.Engagement, error)
	GetEngagement(ctx context.Context, id uuid.UUID) (store.Engagement, error)
	ListEngagements(ctx context.Context, arg store.ListEngagementsParams) ([]store.Engagement, error)
}

type SectionStore interface {
	GetReportNote(ctx context.Context, arg store.GetReportNoteParams) (store.ReportNote, error)
	ListReportNotes(ctx context.Context, engagementID uuid.UUID) ([]store.ReportNote, error)
	SaveSections(ctx context.Context, engagementID uuid.UUID, docs map[string]string) ([]store.ReportNote, error)
}

type ImportStore interface {
	CreateImportRun(ctx context.Context, arg store.CreateImportRunParams) (store.ImportRun, error)
	ApplyImport(ctx context.Context, engagementID uuid.UUID, keys []string, plan func(current map[string]store.ReportNote) (store.ImportPlan, error)) (store.ImportRun, []store.ReportNote, error)
}

type ComplianceStore interface {
	compliance.Repository
	CreateTrack(ctx context.Context, arg store.CreateTrackParams) (compliance.Track, error)
	CreateAssignment(ctx context.Context, arg store.CreateAssignmentParams) (compliance.Assignment, error)
	UpdateAssignment(ctx context.Context, arg store.UpdateAssignmentParams) (compliance.Assignment, error)
	RecalculateTrack(ctx context.Context, trackID uuid.UUID) (compliance.TrackDetail, error)
}

// Storage is everything the handlers persist through. *store.Store
// satisfies it.
type Storage interface {
	EngagementStore
	SectionStore
	ImportStore
	ComplianceStore
}

type Server struct {
	Config      config.Config
	Engagements EngagementStore
	Sections    SectionStore
	Imports     ImportStore
	Compliance  ComplianceStore
	Defaults    sections.Defaults
	Audit       *audit.Logger
	Logger      *slog.Logger
}

func NewServer(cfg config.Config, st Storage, defaults sections.Defaults, auditLogger *audit.Logger, logger *slog.Logger) *Server {
	return &Server{
		Config:      cfg,
		Engagements: st,
		Sections:    st,
		Imports:     st,
		Compliance:  st,
		Defaults:    defaults,
		Audit:       auditLogger,
		Logger:      logger,
	}
}

func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) audit(r *http.Request, entry audit.Entry) {
	if s.Audit == nil {
		return
	}
	entry.RequestID = middleware.RequestIDFromContext(r.Context())
	if operator, ok := middleware.OperatorFromContext(r.Context()); ok {
		if entry.Metadata == nil {
			entry.Metadata = map[string]any{}
		}
		entry.Metadata["operator"] = operator.TokenFingerprint
	}
	_ = s.Audit.Log(r.Context(), entry)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	s.Logger.Error("request_failed",
		"message", message,
		"path", r.URL.Path,
		"request_id", middleware.RequestIDFromContext(r.Context()),
		"error", err,
	)
	httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", message, nil)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httpx.WriteError(w, r, http.StatusRequestEntityTooLarge, "body_too_large", fmt.Sprintf("Body exceeds %d bytes", maxErr.Limit), nil)
			return false
		}
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid_body", "Malformed JSON body", nil)
		return false
	}
	return true
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound) || errors.Is(err, compliance.ErrTrackNotFound)
}

func uuidPtr(id uuid.UUID) *uuid.UUID {
	return &id
}
