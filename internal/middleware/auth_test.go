package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/unified-report/apps/api/internal/auth"
)

func TestTokenGate(t *testing.T) {
	hash, err := auth.HashToken("s3cret-token")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	gate := NewTokenGate(hash)

	var operator Operator
	handler := gate.RequireToken(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		operator, _ = OperatorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic s3cret-token", want: http.StatusUnauthorized},
		{name: "wrong token", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "valid", header: "Bearer s3cret-token", want: http.StatusNoContent},
		{name: "valid cached", header: "bearer  s3cret-token", want: http.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/engagements", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("expected status %d, got %d", tc.want, rr.Code)
			}
			if tc.want == http.StatusUnauthorized && rr.Header().Get("WWW-Authenticate") == "" {
				t.Fatalf("expected bearer challenge on 401")
			}
		})
	}

	if operator.TokenFingerprint == "" {
		t.Fatalf("expected operator fingerprint in context")
	}
}

func TestTokenGateDisabledWithoutHash(t *testing.T) {
	gate := NewTokenGate("")
	handler := gate.RequireToken(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected open gate, got %d", rr.Code)
	}
}
