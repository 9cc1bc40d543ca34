package mw

import (
	"net/http"
	"strings"

	"swapstats/internal/config"
)

type CORSMiddleware struct {
	Origins []string
	Methods []string
	Headers []string
}

func NewCORS(cfg *config.CORSConfig) *CORSMiddleware {
	if cfg == nil {
		panic("CORS config cannot be nil")
	}
	return &CORSMiddleware{
		Origins: cfg.Origins,
		Methods: cfg.Methods,
		Headers: cfg.Headers,
	}
}

func (c *CORSMiddleware) Handler() func(http.Handler) http.Handler {
	methods := joinOrDefault(c.Methods, "GET, OPTIONS")
	headers := joinOrDefault(c.Headers, "Authorization, Content-Type")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := c.allowOrigin(r.Header.Get("Origin")); origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", methods)
				w.Header().Set("Access-Control-Allow-Headers", headers)
			}
			w.Header().Add("Vary", "Origin")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// allowOrigin returns the value for Access-Control-Allow-Origin, "" when the origin is not listed
func (c *CORSMiddleware) allowOrigin(origin string) string {
	if len(c.Origins) == 0 {
		return "*"
	}
	for _, o := range c.Origins {
		if o == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(o, origin) {
			return origin
		}
	}
	return ""
}

func joinOrDefault(v []string, def string) string {
	var parts []string
	for _, s := range v {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return def
	}
	return strings.Join(parts, ", ")
}
