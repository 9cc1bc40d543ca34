package mw

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"swapstats/internal/config"
	"swapstats/internal/stores/redis"
	"swapstats/pkg/httputil"

	goredis "github.com/redis/go-redis/v9"
	"gitlab.com/nevasik7/alerting/logger"
)

type RateLimitMiddleware struct {
	Cfg *config.RateBucket
	Rdb *redis.Client
	Log logger.Logger
}

func NewRateLimit(log logger.Logger, cfg *config.RateBucket, rdb *redis.Client) *RateLimitMiddleware {
	if cfg == nil {
		panic("rate limit config cannot be nil")
	}
	if rdb == nil {
		panic("redis client cannot be nil")
	}

	// sane defaults
	if cfg.TTL <= 0 {
		cfg.TTL = 2 * time.Minute
	}
	if cfg.RefillPerSec <= 0 {
		cfg.RefillPerSec = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	return &RateLimitMiddleware{Cfg: cfg, Rdb: rdb, Log: log}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if ip == "" {
			ip = "unknown"
		}

		allowed, left, err := m.allow(r.Context(), m.Rdb.Key("rl:ip:"+ip), time.Now())
		if err != nil {
			// fail open
			m.Log.Warnf("Rate limit check failed, ip=%s, error=%v", ip, err)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.Cfg.Burst))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(math.Floor(left))))

		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter(m.Cfg.RefillPerSec, left)))
			_ = httputil.Error(w, r, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// --- redis token-bucket (Lua) for atomic and one query ---
var luaTokenBucket = goredis.NewScript(`
-- KEYS[1] = key
-- ARGV[1] = now_ms
-- ARGV[2] = refill_per_sec
-- ARGV[3] = burst
-- ARGV[4] = ttl_seconds
local key   = KEYS[1]
local now   = tonumber(ARGV[1])
local rate  = tonumber(ARGV[2])
local burst = tonumber(ARGV[3])
local ttl   = tonumber(ARGV[4])

local last_ms = tonumber(redis.call('HGET', key, 'ts') or now)
local tokens  = tonumber(redis.call('HGET', key, 'tok') or burst)

if now > last_ms then
  local delta = (now - last_ms) / 1000.0
  tokens = math.min(burst, tokens + (delta * rate))
end

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end

redis.call('HSET', key, 'tok', tokens, 'ts', now)
redis.call('EXPIRE', key, ttl)

return {allowed, tostring(tokens)}
`)

func (m *RateLimitMiddleware) allow(ctx context.Context, key string, now time.Time) (bool, float64, error) {
	ttl := int(m.Cfg.TTL.Seconds())
	if ttl <= 0 {
		ttl = 120
	}

	res, err := luaTokenBucket.Run(ctx, m.Rdb.Client, []string{key},
		now.UnixMilli(),
		m.Cfg.RefillPerSec,
		m.Cfg.Burst,
		ttl,
	).Slice()
	if err != nil {
		return false, 0, err
	}
	if len(res) != 2 {
		return true, 0, nil
	}

	allowed, _ := res[0].(int64)
	raw, _ := res[1].(string)
	left, _ := strconv.ParseFloat(raw, 64)

	return allowed == 1, left, nil
}

// retryAfter is the whole seconds until one token is back, at least 1
func retryAfter(refillPerSec int, left float64) int {
	if refillPerSec <= 0 {
		return 1
	}
	missing := 1 - left
	if missing <= 0 {
		return 1
	}
	sec := int(math.Ceil(missing / float64(refillPerSec)))
	if sec < 1 {
		sec = 1
	}
	return sec
}

// clientIP prefers the first public hop of X-Forwarded-For, then X-Real-IP, then the peer address
func clientIP(r *http.Request) string {
	for _, ip := range parseXFF(r.Header.Get("X-Forwarded-For")) {
		if isPublicIP(ip) {
			return ip
		}
	}

	if xrip := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xrip) != nil {
		return xrip
	}

	return remoteAddrIP(r.RemoteAddr)
}

func parseXFF(xff string) []string {
	if xff == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(xff, ",") {
		ip := strings.TrimSpace(part)
		if net.ParseIP(ip) != nil {
			out = append(out, ip)
		}
	}
	return out
}

func isPublicIP(raw string) bool {
	ip := net.ParseIP(raw)
	if ip == nil {
		return false
	}
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast())
}

func remoteAddrIP(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
