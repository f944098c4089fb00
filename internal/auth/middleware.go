package auth

import (
	"net/http"
	"strings"

	"github.com/expenseflow/expenseflow/internal/platform/httpx"
	"github.com/expenseflow/expenseflow/internal/shared"
)

// Middleware verifies bearer credentials and enforces role requirements.
type Middleware struct {
	Secret string
}

// RequireAuth rejects requests without a valid bearer token. A missing
// credential and an invalid one yield distinct 401 details.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "unauthenticated")
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "unauthenticated")
			return
		}
		identity, err := VerifyToken(raw, m.Secret)
		if err != nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), identity)))
	})
}

// RequireAdmin rejects callers without the admin role. It assumes
// RequireAuth ran earlier in the chain.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := shared.IdentityFromContext(r.Context())
		if identity == nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "unauthenticated")
			return
		}
		if !identity.IsAdmin() {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
