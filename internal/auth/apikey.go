package auth

import (
	"net/http"
	"strings"

	"github.com/noah-isme/backend-fooddist/internal/app"
	"github.com/noah-isme/backend-fooddist/internal/common"
)

// ServiceKeyHeader carries internal service API keys on
// service-to-service requests.
const ServiceKeyHeader = "X-Internal-API-Key"

// RequireServiceKey authorizes internal callers by comparing the
// presented key against the configured argon2id hash. With no hash
// configured every request is rejected.
func RequireServiceKey(hash string) func(http.Handler) http.Handler {
	hash = strings.TrimSpace(hash)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hash == "" {
				common.JSONError(w, http.StatusServiceUnavailable, "SERVICE_KEY_UNSET", "internal API key not configured", nil)
				return
			}
			key := strings.TrimSpace(r.Header.Get(ServiceKeyHeader))
			if key == "" {
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing internal API key", nil)
				return
			}
			ok, err := app.VerifyServiceKey(key, hash)
			if err != nil || !ok {
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid internal API key", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
