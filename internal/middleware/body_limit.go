package middleware

import (
	"net/http"
	"strings"
)

// BodyLimitOverride raises or lowers the body limit for paths containing
// PathContains, such as "/imports/" under any engagement.
type BodyLimitOverride struct {
	PathContains string
	MaxBytes     int64
}

func LimitBodyBytesWithOverrides(defaultMax int64, overrides []BodyLimitOverride) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			maxBytes := defaultMax
			for _, override := range overrides {
				if override.PathContains == "" || override.MaxBytes <= 0 {
					continue
				}
				if strings.Contains(r.URL.Path, override.PathContains) {
					maxBytes = override.MaxBytes
					break
				}
			}
			if maxBytes > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
