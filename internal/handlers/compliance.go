package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/unified-report/apps/api/internal/audit"
	"github.com/unified-report/apps/api/internal/compliance"
	"github.com/unified-report/apps/api/internal/httpx"
	"github.com/unified-report/apps/api/internal/store"
)

type createTrackRequest struct {
	OEM                string `json:"oem"`
	Name               string `json:"name"`
	OverallRequirement int    `json:"overallRequirement"`
}

type assignmentRequest struct {
	EngineerName      *string `json:"engineerName"`
	CertificationName *string `json:"certificationName"`
	Status            *string `json:"status"`
	DueDate           *string `json:"dueDate"`
}

type assignmentResponse struct {
	Assignment compliance.Assignment  `json:"assignment"`
	Track      compliance.TrackDetail `json:"track"`
}

func (s *Server) PostComplianceTracks(w http.ResponseWriter, r *http.Request, engagementId openapi_types.UUID) {
	var req createTrackRequest
	if !decodeBody(w, r, &req) {
		return
	}

	fieldErrors := map[string]string{}
	params := store.CreateTrackParams{
		EngagementID:       engagementId,
		OEM:                strings.TrimSpace(req.OEM),
		Name:               strings.TrimSpace(req.Name),
		OverallRequirement: req.OverallRequirement,
	}
	if params.OEM == "" {
		fieldErrors["oem"] = "required"
	}
	if params.Name == "" {
		fieldErrors["name"] = "required"
	}
	if params.OverallRequirement < 0 {
		fieldErrors["overallRequirement"] = "must be zero or greater"
	}
	if len(fieldErrors) > 0 {
		httpx.WriteError(w, r, http.StatusBadRequest, "validation_error", "Invalid compliance track", fieldErrors)
		return
	}

	track, err := s.Compliance.CreateTrack(r.Context(), params)
	if err != nil {
		s.internalError(w, r, "Failed to create compliance track", err)
		return
	}

	s.audit(r, audit.Entry{
		EngagementID: uuidPtr(engagementId),
		Action:       "compliance.track_created",
		EntityType:   "oem_compliance_track",
		EntityID:     uuidPtr(track.ID),
		Metadata:     map[string]any{"oem": track.OEM, "overallRequirement": track.OverallRequirement},
	})
	httpx.WriteJSON(w, http.StatusCreated, compliance.TrackDetail{
		Track:        track,
		Assignments:  []compliance.Assignment{},
		StatusCounts: map[string]int{},
	})
}

func (s *Server) GetComplianceTracksTrackId(w http.ResponseWriter, r *http.Request, trackId openapi_types.UUID) {
	track, err := s.Compliance.GetTrack(r.Context(), trackId)
	if err != nil {
		s.writeTrackError(w, r, err)
		return
	}
	assignments, err := s.Compliance.ListAssignments(r.Context(), trackId)
	if err != nil {
		s.internalError(w, r, "Failed to list assignments", err)
		return
	}
	compliance.SortAssignments(assignments)
	httpx.WriteJSON(w, http.StatusOK, compliance.TrackDetail{
		Track:        track,
		Assignments:  assignments,
		StatusCounts: compliance.CountStatuses(assignments),
	})
}

func (s *Server) PostComplianceTracksTrackIdRecalculate(w http.ResponseWriter, r *http.Request, trackId openapi_types.UUID) {
	detail, err := s.Compliance.RecalculateTrack(r.Context(), trackId)
	if err != nil {
		s.writeTrackError(w, r, err)
		return
	}
	s.audit(r, audit.Entry{
		EngagementID: uuidPtr(detail.EngagementID),
		Action:       "compliance.recalculated",
		EntityType:   "oem_compliance_track",
		EntityID:     uuidPtr(detail.ID),
		Metadata:     map[string]any{"earnedCerts": detail.EarnedCerts, "overallEarned": detail.OverallEarned},
	})
	httpx.WriteJSON(w, http.StatusOK, detail)
}

func (s *Server) PostComplianceTracksTrackIdAssignments(w http.ResponseWriter, r *http.Request, trackId openapi_types.UUID) {
	var req assignmentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	fieldErrors := map[string]string{}
	params := store.CreateAssignmentParams{
		TrackID:           trackId,
		EngineerName:      trimmed(req.EngineerName),
		CertificationName: trimmed(req.CertificationName),
		Status:            compliance.StatusNotStarted,
	}
	if params.EngineerName == "" {
		fieldErrors["engineerName"] = "required"
	}
	if params.CertificationName == "" {
		fieldErrors["certificationName"] = "required"
	}
	if req.Status != nil {
		status, ok := compliance.NormalizeStatus(*req.Status)
		if !ok {
			fieldErrors["status"] = "must be NOT_STARTED, IN_PROGRESS, EARNED or EXPIRED"
		}
		params.Status = status
	}
	dueDate, ok := parseDueDate(req.DueDate)
	if !ok {
		fieldErrors["dueDate"] = "must be YYYY-MM-DD"
	}
	params.DueDate = dueDate
	if len(fieldErrors) > 0 {
		httpx.WriteError(w, r, http.StatusBadRequest, "validation_error", "Invalid assignment", fieldErrors)
		return
	}

	if _, err := s.Compliance.GetTrack(r.Context(), trackId); err != nil {
		s.writeTrackError(w, r, err)
		return
	}

	assignment, err := s.Compliance.CreateAssignment(r.Context(), params)
	if err != nil {
		s.internalError(w, r, "Failed to create assignment", err)
		return
	}

	s.respondWithRecalculatedTrack(w, r, http.StatusCreated, "compliance.assignment_created", assignment)
}

func (s *Server) PatchComplianceAssignmentsAssignmentId(w http.ResponseWriter, r *http.Request, assignmentId openapi_types.UUID) {
	var req assignmentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	fieldErrors := map[string]string{}
	params := store.UpdateAssignmentParams{ID: assignmentId}
	if req.EngineerName != nil {
		if name := trimmed(req.EngineerName); name == "" {
			fieldErrors["engineerName"] = "must not be empty"
		} else {
			params.EngineerName = &name
		}
	}
	if req.CertificationName != nil {
		if name := trimmed(req.CertificationName); name == "" {
			fieldErrors["certificationName"] = "must not be empty"
		} else {
			params.CertificationName = &name
		}
	}
	if req.Status != nil {
		status, ok := compliance.NormalizeStatus(*req.Status)
		if !ok {
			fieldErrors["status"] = "must be NOT_STARTED, IN_PROGRESS, EARNED or EXPIRED"
		}
		params.Status = &status
	}
	dueDate, ok := parseDueDate(req.DueDate)
	if !ok {
		fieldErrors["dueDate"] = "must be YYYY-MM-DD"
	}
	params.DueDate = dueDate
	if len(fieldErrors) > 0 {
		httpx.WriteError(w, r, http.StatusBadRequest, "validation_error", "Invalid assignment", fieldErrors)
		return
	}

	assignment, err := s.Compliance.UpdateAssignment(r.Context(), params)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, r, http.StatusNotFound, "assignment_not_found", "Assignment not found", nil)
			return
		}
		s.internalError(w, r, "Failed to update assignment", err)
		return
	}

	s.respondWithRecalculatedTrack(w, r, http.StatusOK, "compliance.assignment_updated", assignment)
}

// respondWithRecalculatedTrack refreshes the parent track counters after an
// assignment write and returns both.
func (s *Server) respondWithRecalculatedTrack(w http.ResponseWriter, r *http.Request, status int, action string, assignment compliance.Assignment) {
	detail, err := s.Compliance.RecalculateTrack(r.Context(), assignment.TrackID)
	if err != nil {
		s.writeTrackError(w, r, err)
		return
	}

	s.audit(r, audit.Entry{
		EngagementID: uuidPtr(detail.EngagementID),
		Action:       action,
		EntityType:   "oem_compliance_assignment",
		EntityID:     uuidPtr(assignment.ID),
		Metadata: map[string]any{
			"trackId":       detail.ID.String(),
			"status":        assignment.Status,
			"earnedCerts":   detail.EarnedCerts,
			"overallEarned": detail.OverallEarned,
		},
	})
	httpx.WriteJSON(w, status, assignmentResponse{Assignment: assignment, Track: detail})
}

func (s *Server) writeTrackError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, compliance.ErrTrackNotFound) {
		httpx.WriteError(w, r, http.StatusNotFound, "track_not_found", "Compliance track not found", nil)
		return
	}
	s.internalError(w, r, "Failed to load compliance track", err)
}

func parseDueDate(raw *string) (*time.Time, bool) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, true
	}
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(*raw))
	if err != nil {
		return nil, false
	}
	return &parsed, true
}

func trimmed(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
