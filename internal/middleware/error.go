package middleware

import (
	"encoding/json"
	"net/http"
)

// middlewareError mirrors httpx.ErrorEnvelope. httpx imports this package,
// so the envelope is declared again here.
type middlewareError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details any    `json:"details,omitempty"`
	} `json:"error"`
	RequestID string `json:"requestId"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	var envelope middlewareError
	envelope.Error.Code = code
	envelope.Error.Message = message
	envelope.Error.Details = details
	envelope.RequestID = RequestIDFromContext(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope)
}

// writeUnauthorized adds the bearer challenge before the 401 body.
func writeUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="report-api"`)
	writeError(w, r, http.StatusUnauthorized, "unauthorized", message, nil)
}
