package mw

import (
	"net/http"

	"swapstats/internal/config"
	"swapstats/pkg/httputil"

	"github.com/go-chi/chi/v5/middleware"
)

const basicAuthRealm = "swapstats"

type BasicAuthMiddleware struct {
	guard func(http.Handler) http.Handler
}

// NewBasicAuth returns nil when no credentials are configured
func NewBasicAuth(cfg *config.BasicAuthConfig) *BasicAuthMiddleware {
	if cfg == nil || cfg.User == "" || cfg.Pass == "" {
		return nil
	}
	return &BasicAuthMiddleware{
		guard: middleware.BasicAuth(basicAuthRealm, map[string]string{cfg.User: cfg.Pass}),
	}
}

func (m *BasicAuthMiddleware) Handler(next http.Handler) http.Handler {
	return m.guard(next)
}

// Deny rejects every request; privileged routes use it when no credentials are configured
func Deny(w http.ResponseWriter, r *http.Request) {
	_ = httputil.Error(w, r, http.StatusForbidden, "forbidden", "endpoint is disabled")
}
