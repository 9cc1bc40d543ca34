package mw

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"swapstats/internal/config"
	"swapstats/pkg/httputil"

	"github.com/oschwald/geoip2-golang"
	"gitlab.com/nevasik7/alerting/logger"
)

// RestrictedCountries is used when the config does not list any
var RestrictedCountries = []string{"CU", "IR", "KP", "SY"}

// CountryLookup resolves an ip to an ISO 3166-1 alpha-2 code
type CountryLookup interface {
	CountryCode(ip net.IP) (string, error)
}

// GeoIPLookup reads a MaxMind country or city database
type GeoIPLookup struct {
	db *geoip2.Reader
}

func OpenGeoIP(path string) (*GeoIPLookup, error) {
	if path == "" {
		return nil, errors.New("geoip db path is required")
	}

	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed open geoip db, error=%w", err)
	}
	return &GeoIPLookup{db: db}, nil
}

func (g *GeoIPLookup) CountryCode(ip net.IP) (string, error) {
	rec, err := g.db.Country(ip)
	if err != nil {
		return "", err
	}
	return rec.Country.IsoCode, nil
}

func (g *GeoIPLookup) Close() error {
	return g.db.Close()
}

type GeoBlockMiddleware struct {
	Lookup  CountryLookup
	Log     logger.Logger
	blocked map[string]struct{}
}

func NewGeoBlock(log logger.Logger, cfg *config.GeoBlockConfig, lookup CountryLookup) *GeoBlockMiddleware {
	if cfg == nil {
		panic("geo block config cannot be nil")
	}
	if lookup == nil {
		panic("country lookup cannot be nil")
	}

	countries := cfg.Countries
	if len(countries) == 0 {
		countries = RestrictedCountries
	}

	blocked := make(map[string]struct{}, len(countries))
	for _, c := range countries {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			blocked[c] = struct{}{}
		}
	}

	return &GeoBlockMiddleware{Lookup: lookup, Log: log, blocked: blocked}
}

// Blocked reports whether ip resolves to a restricted country; unknown ips pass
func (m *GeoBlockMiddleware) Blocked(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil || !isPublicIP(ip) {
		return false
	}

	code, err := m.Lookup.CountryCode(parsed)
	if err != nil {
		m.Log.Debugf("Geo lookup failed, ip=%s, error=%v", ip, err)
		return false
	}

	_, ok := m.blocked[strings.ToUpper(code)]
	return ok
}

func (m *GeoBlockMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Blocked(clientIP(r)) {
			_ = httputil.Error(w, r, http.StatusUnavailableForLegalReasons, "restricted_region", "service is not available in your region")
			return
		}
		next.ServeHTTP(w, r)
	})
}
