package middleware

import (
	"net/http"
	"strings"
	"sync"

	"github.com/unified-report/apps/api/internal/auth"
)

// TokenGate admits requests carrying a bearer token that matches an argon2id
// hash. Verified tokens are remembered by fingerprint so argon2 runs once per
// token rather than once per request.
type TokenGate struct {
	Hash string

	mu       sync.Mutex
	verified map[string]struct{}
}

func NewTokenGate(hash string) *TokenGate {
	return &TokenGate{Hash: strings.TrimSpace(hash), verified: map[string]struct{}{}}
}

// Enabled reports whether a hash is configured. A gate without a hash lets
// every request through.
func (g *TokenGate) Enabled() bool {
	return g != nil && g.Hash != ""
}

func (g *TokenGate) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeUnauthorized(w, r, "Bearer token required")
			return
		}

		fingerprint := auth.Fingerprint(token)
		if !g.known(fingerprint) {
			match, err := auth.VerifyToken(token, g.Hash)
			if err != nil {
				writeError(w, r, http.StatusInternalServerError, "internal_error", "Token verification failed", nil)
				return
			}
			if !match {
				writeUnauthorized(w, r, "Invalid token")
				return
			}
			g.remember(fingerprint)
		}

		ctx := WithOperator(r.Context(), Operator{TokenFingerprint: fingerprint[:12]})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *TokenGate) known(fingerprint string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.verified[fingerprint]
	return ok
}

func (g *TokenGate) remember(fingerprint string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verified[fingerprint] = struct{}{}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
