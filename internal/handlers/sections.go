package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/unified-report/apps/api/internal/audit"
	"github.com/unified-report/apps/api/internal/httpx"
	"github.com/unified-report/apps/api/internal/sections"
	"github.com/unified-report/apps/api/internal/store"
)

type sectionResponse struct {
	EngagementID openapi_types.UUID `json:"engagementId"`
	SectionKey   string             `json:"sectionKey"`
	Kind         sections.Kind      `json:"kind"`
	Content      any                `json:"content"`
	IsDefault    bool               `json:"isDefault"`
	UpdatedAt    *time.Time         `json:"updatedAt"`
}

type putSectionRequest struct {
	Content json.RawMessage `json:"content"`
}

// loadedSection is a section document decoded from storage, or the configured
// default when nothing has been saved yet.
type loadedSection struct {
	Value     any
	Stored    bool
	UpdatedAt *time.Time
}

func (s *Server) GetSection(w http.ResponseWriter, r *http.Request, engagementId openapi_types.UUID, sectionKey string) {
	kind, ok := sections.Lookup(sectionKey)
	if !ok {
		httpx.WriteError(w, r, http.StatusNotFound, "section_not_found", "Unknown section key", map[string]any{"sectionKey": sectionKey})
		return
	}

	loaded, err := s.loadSection(r.Context(), engagementId, sectionKey, true)
	if err != nil {
		s.internalError(w, r, "Failed to load section", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, sectionResponse{
		EngagementID: engagementId,
		SectionKey:   sectionKey,
		Kind:         kind,
		Content:      loaded.Value,
		IsDefault:    !loaded.Stored,
		UpdatedAt:    loaded.UpdatedAt,
	})
}

func (s *Server) PutSection(w http.ResponseWriter, r *http.Request, engagementId openapi_types.UUID, sectionKey string) {
	kind, ok := sections.Lookup(sectionKey)
	if !ok {
		httpx.WriteError(w, r, http.StatusNotFound, "section_not_found", "Unknown section key", map[string]any{"sectionKey": sectionKey})
		return
	}

	var req putSectionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Content) == 0 {
		httpx.WriteError(w, r, http.StatusBadRequest, "validation_error", "content is required", nil)
		return
	}

	doc, err := sections.Normalize(sectionKey, req.Content)
	if err != nil {
		if errors.Is(err, sections.ErrInvalidContent) {
			httpx.WriteError(w, r, http.StatusBadRequest, "invalid_section_content", err.Error(), map[string]any{"sectionKey": sectionKey})
			return
		}
		s.internalError(w, r, "Failed to normalize section", err)
		return
	}

	saved, err := s.Sections.SaveSections(r.Context(), engagementId, map[string]string{sectionKey: doc})
	if err != nil || len(saved) == 0 {
		s.internalError(w, r, "Failed to save section", err)
		return
	}
	note := saved[0]

	value, err := sections.Decode(sectionKey, note.Content)
	if err != nil {
		s.internalError(w, r, "Failed to decode saved section", err)
		return
	}

	s.audit(r, audit.Entry{
		EngagementID: uuidPtr(engagementId),
		Action:       "section.saved",
		EntityType:   "report_note",
		EntityID:     uuidPtr(note.ID),
		Metadata:     map[string]any{"sectionKey": sectionKey, "bytes": len(doc)},
	})

	updatedAt := note.UpdatedAt
	httpx.WriteJSON(w, http.StatusOK, sectionResponse{
		EngagementID: engagementId,
		SectionKey:   sectionKey,
		Kind:         kind,
		Content:      value,
		IsDefault:    false,
		UpdatedAt:    &updatedAt,
	})
}

func (s *Server) GetSections(w http.ResponseWriter, r *http.Request, engagementId openapi_types.UUID) {
	notes, err := s.Sections.ListReportNotes(r.Context(), engagementId)
	if err != nil {
		s.internalError(w, r, "Failed to list sections", err)
		return
	}
	stored := make(map[string]*store.ReportNote, len(notes))
	for i := range notes {
		stored[notes[i].SectionKey] = &notes[i]
	}

	keys := sections.Keys()
	items := make([]sectionResponse, 0, len(keys))
	for _, key := range keys {
		kind, _ := sections.Lookup(key)
		loaded, err := s.resolveSection(engagementId, key, stored[key], true)
		if err != nil {
			s.internalError(w, r, "Failed to load section", err)
			return
		}
		items = append(items, sectionResponse{
			EngagementID: engagementId,
			SectionKey:   key,
			Kind:         kind,
			Content:      loaded.Value,
			IsDefault:    !loaded.Stored,
			UpdatedAt:    loaded.UpdatedAt,
		})
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"items":           items,
		"defaultsVersion": s.Defaults.Version,
	})
}

// loadSection reads a stored section. With useDefaults the configured default
// stands in for a missing row; otherwise a missing row decodes as empty.
func (s *Server) loadSection(ctx context.Context, engagementID uuid.UUID, key string, useDefaults bool) (loadedSection, error) {
	note, err := s.Sections.GetReportNote(ctx, store.GetReportNoteParams{EngagementID: engagementID, SectionKey: key})
	switch {
	case err == nil:
		return s.resolveSection(engagementID, key, &note, useDefaults)
	case isNotFound(err):
		return s.resolveSection(engagementID, key, nil, useDefaults)
	default:
		return loadedSection{}, fmt.Errorf("get section %s: %w", key, err)
	}
}

// resolveSection decodes note, falling back when it is nil. Stored documents
// that no longer parse are logged and treated as missing.
func (s *Server) resolveSection(engagementID uuid.UUID, key string, note *store.ReportNote, useDefaults bool) (loadedSection, error) {
	if note != nil {
		value, err := sections.Decode(key, note.Content)
		if err == nil {
			updatedAt := note.UpdatedAt
			return loadedSection{Value: value, Stored: true, UpdatedAt: &updatedAt}, nil
		}
		if !errors.Is(err, sections.ErrInvalidContent) {
			return loadedSection{}, err
		}
		s.Logger.Warn("section_decode_failed",
			"engagement_id", engagementID.String(),
			"section_key", key,
			"error", err,
		)
	}

	if useDefaults {
		value, err := s.Defaults.For(key)
		if err != nil {
			return loadedSection{}, err
		}
		return loadedSection{Value: value}, nil
	}
	value, err := sections.Decode(key, "")
	if err != nil {
		return loadedSection{}, err
	}
	return loadedSection{Value: value}, nil
}
