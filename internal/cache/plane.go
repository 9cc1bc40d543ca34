package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"swapstats/internal/metrics"

	"github.com/google/uuid"
	"gitlab.com/nevasik7/alerting/logger"
)

// Plane is the advisory key/value layer: backend errors are logged and read as misses
type Plane struct {
	log       logger.Logger
	backend   Backend
	testing   bool
	opTimeout time.Duration
}

type Options struct {
	Testing   bool
	OpTimeout time.Duration
}

func New(log logger.Logger, backend Backend, opts Options) (*Plane, error) {
	if backend == nil {
		return nil, errors.New("cache backend is required")
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 500 * time.Millisecond
	}

	return &Plane{
		log:       log,
		backend:   backend,
		testing:   opts.Testing,
		opTimeout: opts.OpTimeout,
	}, nil
}

// Key namespaces test runs away from real state
func (p *Plane) Key(key string) string {
	if p.testing {
		return key + testSuffix
	}
	return key
}

func (p *Plane) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()

	b, ok, err := p.backend.Get(ctx, p.Key(key))
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		p.log.Warnf("Failed cache get key=%s, error=%v", key, err)
		return nil, false
	case !ok:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return b, true
}

func (p *Plane) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()

	if err := p.backend.Set(ctx, p.Key(key), val, ttl); err != nil {
		return fmt.Errorf("failed cache set key=%s, error=%w", key, err)
	}
	return nil
}

func (p *Plane) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()

	return p.backend.Del(ctx, p.Key(key))
}

// AcquireLock succeeds iff no unexpired lock exists for key; the token identifies this holder
func (p *Plane) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()

	token := uuid.NewString()
	ok, err := p.backend.SetNX(ctx, p.Key(lockPrefix+key), []byte(token), ttl)
	if err != nil {
		p.log.Warnf("Failed acquire lock key=%s, error=%v", key, err)
		return "", false
	}
	if !ok {
		return "", false
	}
	return token, true
}

// ReleaseLock drops the lock only while token still holds it, an expired and re-taken lock stays.
// It ignores the caller context so a cancelled request still drops its lock.
func (p *Plane) ReleaseLock(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.opTimeout)
	defer cancel()

	released, err := p.backend.DelIfValue(ctx, p.Key(lockPrefix+key), []byte(token))
	if err != nil {
		p.log.Warnf("Failed release lock key=%s, error=%v", key, err)
		return
	}
	if !released {
		p.log.Warnf("Lock key=%s expired before release, held by another owner now", key)
	}
}

// WaitForValue polls for a cooperating writer
func (p *Plane) WaitForValue(ctx context.Context, key string, attempts int, interval time.Duration) ([]byte, bool) {
	for i := 0; i < attempts; i++ {
		if b, ok := p.Get(ctx, key); ok {
			return b, true
		}

		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(interval):
		}
	}
	return p.Get(ctx, key)
}

func (p *Plane) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()

	return p.backend.Ping(ctx)
}

func (p *Plane) Close() error {
	return p.backend.Close()
}

// GetJSON decodes a cached artifact; a value that fails to decode counts as a miss
func GetJSON[T any](ctx context.Context, p *Plane, key string) (T, bool) {
	var out T

	b, ok := p.Get(ctx, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(b, &out); err != nil {
		p.log.Warnf("Failed decode cached key=%s, error=%v", key, err)
		var zero T
		return zero, false
	}
	return out, true
}

func SetJSON(ctx context.Context, p *Plane, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed encode key=%s, error=%w", key, err)
	}
	return p.Set(ctx, key, b, ttl)
}
