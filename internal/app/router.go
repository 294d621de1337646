package app

import (
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	openapimiddleware "github.com/oapi-codegen/nethttp-middleware"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/unified-report/apps/api/internal/audit"
	"github.com/unified-report/apps/api/internal/config"
	"github.com/unified-report/apps/api/internal/handlers"
	"github.com/unified-report/apps/api/internal/httpx"
	"github.com/unified-report/apps/api/internal/middleware"
	"github.com/unified-report/apps/api/internal/sections"
)

//go:embed openapi.yaml
var openapiSpec []byte

// Store is the persistence the router wires into handlers and the audit
// log. *store.Store satisfies it.
type Store interface {
	handlers.Storage
	audit.Inserter
}

func NewRouter(cfg config.Config, st Store, defaults sections.Defaults, logger *slog.Logger) (http.Handler, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate openapi spec: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders(cfg.Env))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.LimitBodyBytesWithOverrides(cfg.APIMaxBodyBytes, []middleware.BodyLimitOverride{
		{PathContains: "/imports/", MaxBytes: cfg.ImportMaxFileBytes},
	}))

	api := chi.NewRouter()
	api.Use(openapimiddleware.OapiRequestValidatorWithOptions(doc, &openapimiddleware.Options{
		SilenceServersWarning: true,
		ErrorHandler: func(w http.ResponseWriter, message string, statusCode int) {
			requestID := w.Header().Get("X-Request-Id")
			httpx.WriteJSON(w, statusCode, httpx.ErrorEnvelope{
				Error:     httpx.ErrorBody{Code: "validation_error", Message: message},
				RequestID: requestID,
			})
		},
	}))

	auditLogger := audit.NewLogger(st, logger)
	h := handlers.NewServer(cfg, st, defaults, auditLogger, logger)

	gate := middleware.NewTokenGate(cfg.APITokenHash)
	importLimiter := middleware.NewIPRateLimiterWithMaxEntries(cfg.ImportRateLimitPerMin, time.Minute, cfg.RateLimitMaxIPs)
	requireEngagement := middleware.RequireEngagement(st)

	api.Get("/health", h.GetHealth)
	api.Get("/imports/templates/{file}", func(w http.ResponseWriter, r *http.Request) {
		h.GetImportTemplate(w, r, chi.URLParam(r, "file"))
	})

	api.Group(func(protected chi.Router) {
		protected.Use(gate.RequireToken)

		protected.Post("/engagements", h.PostEngagements)
		protected.Get("/engagements", h.GetEngagements)

		protected.Route("/engagements/{engagementId}", func(scoped chi.Router) {
			scoped.Use(requireEngagement)

			scoped.Get("/", func(w http.ResponseWriter, r *http.Request) {
				h.GetEngagementsEngagementId(w, r, engagementID(r))
			})
			scoped.Get("/sections", func(w http.ResponseWriter, r *http.Request) {
				h.GetSections(w, r, engagementID(r))
			})
			scoped.Get("/sections/{sectionKey}", func(w http.ResponseWriter, r *http.Request) {
				h.GetSection(w, r, engagementID(r), chi.URLParam(r, "sectionKey"))
			})
			scoped.Put("/sections/{sectionKey}", func(w http.ResponseWriter, r *http.Request) {
				h.PutSection(w, r, engagementID(r), chi.URLParam(r, "sectionKey"))
			})
			scoped.With(importLimiter.Middleware("Too many imports, try again shortly")).Post("/imports/{importKind}", func(w http.ResponseWriter, r *http.Request) {
				h.PostImport(w, r, engagementID(r), chi.URLParam(r, "importKind"))
			})
			scoped.Get("/exports/{file}", func(w http.ResponseWriter, r *http.Request) {
				h.GetSectionExport(w, r, engagementID(r), chi.URLParam(r, "file"))
			})
			scoped.Post("/oem-compliance/tracks", func(w http.ResponseWriter, r *http.Request) {
				h.PostComplianceTracks(w, r, engagementID(r))
			})
		})

		protected.Get("/oem-compliance/tracks/{trackId}", withUUID("trackId", h.GetComplianceTracksTrackId))
		protected.Post("/oem-compliance/tracks/{trackId}/recalculate", withUUID("trackId", h.PostComplianceTracksTrackIdRecalculate))
		protected.Post("/oem-compliance/tracks/{trackId}/assignments", withUUID("trackId", h.PostComplianceTracksTrackIdAssignments))
		protected.Patch("/oem-compliance/assignments/{assignmentId}", withUUID("assignmentId", h.PatchComplianceAssignmentsAssignmentId))
	})

	r.Mount("/api", api)
	return r, nil
}

// engagementID reads the id RequireEngagement already validated.
func engagementID(r *http.Request) openapi_types.UUID {
	id, _ := middleware.EngagementIDFromContext(r.Context())
	return id
}

func withUUID(name string, next func(http.ResponseWriter, *http.Request, openapi_types.UUID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var id openapi_types.UUID
		err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id, runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		})
		if err != nil {
			httpx.WriteError(w, r, http.StatusBadRequest, "validation_error", fmt.Sprintf("Invalid format for parameter %s", name), nil)
			return
		}
		next(w, r, id)
	}
}
