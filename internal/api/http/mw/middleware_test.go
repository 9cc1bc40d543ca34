package mw

import (
	"compress/gzip"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"swapstats/internal/config"
	"swapstats/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ========== Geo block ==========

type staticLookup map[string]string

func (s staticLookup) CountryCode(ip net.IP) (string, error) {
	code, ok := s[ip.String()]
	if !ok {
		return "", errors.New("address not found")
	}
	return code, nil
}

func TestGeoBlock(t *testing.T) {
	lookup := staticLookup{
		"203.0.113.1": "IR",
		"203.0.113.2": "de",
		"203.0.113.3": "US",
	}

	t.Run("panics_without_lookup", func(t *testing.T) {
		assert.Panics(t, func() {
			NewGeoBlock(testutil.Logger(), &config.GeoBlockConfig{}, nil)
		})
	})

	t.Run("default_list", func(t *testing.T) {
		m := NewGeoBlock(testutil.Logger(), &config.GeoBlockConfig{Enabled: true}, lookup)

		assert.True(t, m.Blocked("203.0.113.1"))
		assert.False(t, m.Blocked("203.0.113.2"))
		assert.False(t, m.Blocked("203.0.113.3"))
	})

	t.Run("configured_list_replaces_default", func(t *testing.T) {
		m := NewGeoBlock(testutil.Logger(), &config.GeoBlockConfig{Countries: []string{" us ", "DE"}}, lookup)

		assert.False(t, m.Blocked("203.0.113.1"))
		assert.True(t, m.Blocked("203.0.113.2"))
		assert.True(t, m.Blocked("203.0.113.3"))
	})

	t.Run("unknown_and_private_pass", func(t *testing.T) {
		m := NewGeoBlock(testutil.Logger(), &config.GeoBlockConfig{}, staticLookup{"10.0.0.1": "IR"})

		assert.False(t, m.Blocked("198.51.100.1"))
		assert.False(t, m.Blocked("10.0.0.1"))
		assert.False(t, m.Blocked("garbage"))
	})

	t.Run("handler_returns_451", func(t *testing.T) {
		calls := 0
		h := NewGeoBlock(testutil.Logger(), &config.GeoBlockConfig{}, lookup).Handler(okHandler(&calls))

		rec := serve(h, "203.0.113.1:5000", nil)
		assert.Equal(t, http.StatusUnavailableForLegalReasons, rec.Code)
		assert.Contains(t, rec.Body.String(), `"error":"restricted_region"`)

		rec = serve(h, "203.0.113.2:5000", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, calls)
	})
}

func TestOpenGeoIP(t *testing.T) {
	_, err := OpenGeoIP("")
	assert.Error(t, err)

	_, err = OpenGeoIP("/nonexistent/GeoLite2-Country.mmdb")
	assert.Error(t, err)
}

// ========== Basic auth ==========

func TestBasicAuth(t *testing.T) {
	t.Run("nil_without_credentials", func(t *testing.T) {
		assert.Nil(t, NewBasicAuth(nil))
		assert.Nil(t, NewBasicAuth(&config.BasicAuthConfig{User: "admin"}))
	})

	m := NewBasicAuth(&config.BasicAuthConfig{User: "admin", Pass: "secret"})
	require.NotNil(t, m)

	calls := 0
	h := m.Handler(okHandler(&calls))

	tests := []struct {
		name   string
		user   string
		pass   string
		set    bool
		status int
	}{
		{"valid_credentials", "admin", "secret", true, http.StatusOK},
		{"wrong_password", "admin", "nope", true, http.StatusUnauthorized},
		{"wrong_user", "root", "secret", true, http.StatusUnauthorized},
		{"missing_header", "", "", false, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v3/swaps/failed", nil)
			if tt.set {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusUnauthorized {
				assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
	assert.Equal(t, 1, calls)
}

func TestDeny(t *testing.T) {
	rec := httptest.NewRecorder()
	Deny(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// ========== Gzip ==========

func TestGzip(t *testing.T) {
	body := `{"ticker_id":"KMD_LTC"}`
	h := NewGzip(0, testutil.Logger()).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))

	t.Run("compresses_when_accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Encoding", "gzip, deflate")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

		zr, err := gzip.NewReader(rec.Body)
		require.NoError(t, err)
		plain, err := io.ReadAll(zr)
		require.NoError(t, err)
		assert.Equal(t, body, string(plain))
	})

	t.Run("plain_otherwise", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Empty(t, rec.Header().Get("Content-Encoding"))
		assert.Equal(t, body, rec.Body.String())
	})

	t.Run("no_content_stays_empty", func(t *testing.T) {
		nc := NewGzip(0, testutil.Logger()).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		rec := httptest.NewRecorder()
		nc.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Header().Get("Content-Encoding"))
		assert.Zero(t, rec.Body.Len())
	})
}

// ========== CORS ==========

func TestCORS(t *testing.T) {
	t.Run("wildcard_by_default", func(t *testing.T) {
		h := NewCORS(&config.CORSConfig{}).Handler()(okHandler(nil))
		rec := serve(h, "1.1.1.1:1", map[string]string{"Origin": "https://a.example"})

		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	})

	t.Run("listed_origin_is_echoed", func(t *testing.T) {
		h := NewCORS(&config.CORSConfig{Origins: []string{"https://a.example"}}).Handler()(okHandler(nil))

		rec := serve(h, "1.1.1.1:1", map[string]string{"Origin": "https://a.example"})
		assert.Equal(t, "https://a.example", rec.Header().Get("Access-Control-Allow-Origin"))

		rec = serve(h, "1.1.1.1:1", map[string]string{"Origin": "https://b.example"})
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight_short_circuits", func(t *testing.T) {
		calls := 0
		h := NewCORS(&config.CORSConfig{}).Handler()(okHandler(&calls))

		req := httptest.NewRequest(http.MethodOptions, "/api/v3/gecko/tickers", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Zero(t, calls)
	})
}

// ========== Logging ==========

func TestLogging_PassesThrough(t *testing.T) {
	h := NewLogging(testutil.Logger()).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = io.WriteString(w, "short and stout")
	}))

	rec := serve(h, "1.1.1.1:1", nil)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", rec.Body.String())
}
