package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/unified-report/apps/api/internal/audit"
	"github.com/unified-report/apps/api/internal/httpx"
	"github.com/unified-report/apps/api/internal/store"
)

const (
	dateLayout             = "2006-01-02"
	defaultEngagementLimit = 50
	maxEngagementLimit     = 200
)

var validPeriodTypes = map[string]struct{}{
	"monthly":   {},
	"quarterly": {},
	"annual":    {},
}

type createEngagementRequest struct {
	Name         string `json:"name"`
	Organization string `json:"organization"`
	PeriodType   string `json:"periodType"`
	PeriodStart  string `json:"periodStart"`
	PeriodEnd    string `json:"periodEnd"`
}

type engagementResponse struct {
	ID           openapi_types.UUID `json:"id"`
	Name         string             `json:"name"`
	Organization string             `json:"organization"`
	PeriodType   string             `json:"periodType"`
	PeriodStart  string             `json:"periodStart"`
	PeriodEnd    string             `json:"periodEnd"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

func mapEngagement(e store.Engagement) engagementResponse {
	return engagementResponse{
		ID:           e.ID,
		Name:         e.Name,
		Organization: e.Organization,
		PeriodType:   e.PeriodType,
		PeriodStart:  e.PeriodStart.UTC().Format(dateLayout),
		PeriodEnd:    e.PeriodEnd.UTC().Format(dateLayout),
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func (s *Server) PostEngagements(w http.ResponseWriter, r *http.Request) {
	var req createEngagementRequest
	if !decodeBody(w, r, &req) {
		return
	}

	params, fieldErrors := validateEngagement(req)
	if len(fieldErrors) > 0 {
		httpx.WriteError(w, r, http.StatusBadRequest, "validation_error", "Invalid engagement", fieldErrors)
		return
	}

	engagement, err := s.Engagements.CreateEngagement(r.Context(), params)
	if err != nil {
		s.internalError(w, r, "Failed to create engagement", err)
		return
	}

	s.audit(r, audit.Entry{
		EngagementID: uuidPtr(engagement.ID),
		Action:       "engagement.created",
		EntityType:   "engagement",
		EntityID:     uuidPtr(engagement.ID),
		Metadata:     map[string]any{"organization": engagement.Organization, "periodType": engagement.PeriodType},
	})
	httpx.WriteJSON(w, http.StatusCreated, mapEngagement(engagement))
}

func (s *Server) GetEngagements(w http.ResponseWriter, r *http.Request) {
	limit := defaultEngagementLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httpx.WriteError(w, r, http.StatusBadRequest, "validation_error", "limit must be a positive integer", nil)
			return
		}
		limit = min(parsed, maxEngagementLimit)
	}

	engagements, err := s.Engagements.ListEngagements(r.Context(), store.ListEngagementsParams{
		Organization: strings.TrimSpace(r.URL.Query().Get("organization")),
		LimitRows:    int32(limit),
	})
	if err != nil {
		s.internalError(w, r, "Failed to list engagements", err)
		return
	}

	items := make([]engagementResponse, 0, len(engagements))
	for _, engagement := range engagements {
		items = append(items, mapEngagement(engagement))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) GetEngagementsEngagementId(w http.ResponseWriter, r *http.Request, engagementId openapi_types.UUID) {
	engagement, err := s.Engagements.GetEngagement(r.Context(), engagementId)
	if err != nil {
		if isNotFound(err) {
			httpx.WriteError(w, r, http.StatusNotFound, "engagement_not_found", "Engagement not found", nil)
			return
		}
		s.internalError(w, r, "Failed to load engagement", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapEngagement(engagement))
}

func validateEngagement(req createEngagementRequest) (store.CreateEngagementParams, map[string]string) {
	fieldErrors := map[string]string{}
	params := store.CreateEngagementParams{
		Name:         strings.TrimSpace(req.Name),
		Organization: strings.TrimSpace(req.Organization),
		PeriodType:   strings.ToLower(strings.TrimSpace(req.PeriodType)),
	}

	if params.Name == "" {
		fieldErrors["name"] = "required"
	}
	if params.Organization == "" {
		fieldErrors["organization"] = "required"
	}
	if _, ok := validPeriodTypes[params.PeriodType]; !ok {
		fieldErrors["periodType"] = "must be monthly, quarterly or annual"
	}

	start, err := time.Parse(dateLayout, strings.TrimSpace(req.PeriodStart))
	if err != nil {
		fieldErrors["periodStart"] = "must be YYYY-MM-DD"
	}
	end, err := time.Parse(dateLayout, strings.TrimSpace(req.PeriodEnd))
	if err != nil {
		fieldErrors["periodEnd"] = "must be YYYY-MM-DD"
	}
	if _, bad := fieldErrors["periodStart"]; !bad {
		if _, bad := fieldErrors["periodEnd"]; !bad && end.Before(start) {
			fieldErrors["periodEnd"] = "must not be before periodStart"
		}
	}

	params.PeriodStart = start
	params.PeriodEnd = end
	return params, fieldErrors
}
