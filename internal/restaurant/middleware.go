package restaurant

import (
	"net/http"
	"strings"

	"github.com/noah-isme/backend-fooddist/internal/auth"
)

// Resolver resolves the acting restaurant from verified token claims or,
// as a fallback for service-to-service calls, a request header.
type Resolver struct {
	HeaderName string
	Verifier   *auth.Verifier
}

// NewResolver returns a resolver using the provided header name; empty
// defaults to "X-Restaurant-ID".
func NewResolver(headerName string, verifier *auth.Verifier) *Resolver {
	if headerName == "" {
		headerName = "X-Restaurant-ID"
	}
	return &Resolver{HeaderName: headerName, Verifier: verifier}
}

// Middleware resolves the restaurant for the request and injects it into
// the context passed downstream. Requests without a resolvable restaurant
// pass through unchanged; handlers that require one reject later.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if id := r.Resolve(req); id != "" {
			req = req.WithContext(WithID(req.Context(), id))
		}
		next.ServeHTTP(w, req)
	})
}

// Resolve finds the restaurant identifier from the token claim first and
// the configured header second.
func (r *Resolver) Resolve(req *http.Request) string {
	if r == nil || req == nil {
		return ""
	}
	if r.Verifier != nil {
		if token := bearerToken(req); token != "" {
			if claims, err := r.Verifier.VerifyToken(token); err == nil && claims.RestaurantID != "" {
				return claims.RestaurantID
			}
		}
	}
	return strings.TrimSpace(req.Header.Get(r.HeaderName))
}

func bearerToken(req *http.Request) string {
	header := strings.TrimSpace(req.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
