package feeds

import (
	"time"

	"gitlab.com/nevasik7/alerting/logger"
)

type Options struct {
	Timeout    time.Duration
	MaxRetries uint64
	// first retry delay, doubles per attempt
	RetryWait time.Duration
}

func (o Options) fetcher(log logger.Logger) fetcher {
	f := newFetcher(log, o.Timeout, o.MaxRetries)
	if o.RetryWait > 0 {
		f.retryWait = o.RetryWait
	}
	return f
}
