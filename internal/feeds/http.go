package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"swapstats/internal/metrics"

	"github.com/cenkalti/backoff/v4"
	"gitlab.com/nevasik7/alerting/logger"
)

const maxBodyBytes = 64 << 20

// fetcher is the shared GET+decode path of every feed client
type fetcher struct {
	log        logger.Logger
	hc         *http.Client
	maxRetries uint64
	retryWait  time.Duration
}

func newFetcher(log logger.Logger, timeout time.Duration, maxRetries uint64) fetcher {
	// sane defaults
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return fetcher{
		log:        log,
		hc:         &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		retryWait:  500 * time.Millisecond,
	}
}

func (f fetcher) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = f.retryWait
	eb.MaxInterval = 10 * f.retryWait
	return backoff.WithContext(backoff.WithMaxRetries(eb, f.maxRetries), ctx)
}

// getJSON retries transient faults with exponential backoff; status and schema faults are permanent
func (f fetcher) getJSON(ctx context.Context, feed, url string, out any) error {
	attempt := 0
	op := func() error {
		attempt++

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(&Error{Feed: feed, Kind: KindStatus, Err: err})
		}
		req.Header.Set("Accept", "application/json")

		resp, err := f.hc.Do(req)
		if err != nil {
			f.log.Debugf("Feed %s request attempt=%d failed, error=%v", feed, attempt, err)
			return &Error{Feed: feed, Kind: KindTransient, Err: err}
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests:
			_, _ = io.Copy(io.Discard, resp.Body)
			return &Error{Feed: feed, Kind: KindTransient, Status: resp.StatusCode, Err: errors.New(resp.Status)}
		case resp.StatusCode >= http.StatusBadRequest:
			return backoff.Permanent(&Error{Feed: feed, Kind: KindStatus, Status: resp.StatusCode, Err: errors.New(resp.Status)})
		}

		if err = json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
			return backoff.Permanent(schemaErr(feed, fmt.Errorf("failed decode body, error=%w", err)))
		}
		return nil
	}

	if err := backoff.Retry(op, f.backOff(ctx)); err != nil {
		metrics.FeedRequests.WithLabelValues(feed, "error").Inc()
		var fe *Error
		if !errors.As(err, &fe) {
			// context cancellation surfaces unwrapped
			err = &Error{Feed: feed, Kind: KindTransient, Err: err}
		}
		return err
	}

	metrics.FeedRequests.WithLabelValues(feed, "ok").Inc()
	return nil
}
