package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/unified-report/apps/api/internal/store"
)

// EngagementLookup is satisfied by store.Queries.
type EngagementLookup interface {
	GetEngagement(ctx context.Context, id uuid.UUID) (store.Engagement, error)
}

// RequireEngagement rejects requests whose {engagementId} path parameter
// does not name an existing engagement, and stores the parsed id in the
// request context.
func RequireEngagement(lookup EngagementLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			engagementID, err := uuid.Parse(chi.URLParam(r, "engagementId"))
			if err != nil {
				writeError(w, r, http.StatusBadRequest, "validation_error", "engagementId must be a UUID", nil)
				return
			}

			if _, err := lookup.GetEngagement(r.Context(), engagementID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					writeError(w, r, http.StatusNotFound, "engagement_not_found", "Engagement was not found", nil)
					return
				}
				writeError(w, r, http.StatusInternalServerError, "internal_error", "Failed to load engagement", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithEngagementID(r.Context(), engagementID)))
		})
	}
}
