package httpx

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/HackDavis/admissions-portal-sub000/pkg/slogx"
)

// AdminKeyMiddleware requires "Authorization: Bearer <key>" matching the
// configured admin key. An empty key rejects every request.
func AdminKeyMiddleware(key string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			if key == "" || subtle.ConstantTimeCompare([]byte(raw), []byte(key)) != 1 {
				slogx.FromContext(r.Context()).Warn("admin key rejected", "path", r.URL.Path)
				writeBearerError(w, "invalid admin key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "invalid_token", desc)
}
