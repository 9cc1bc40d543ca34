package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "swapstats"

var (
	IngestRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingest",
		Name:      "rows_total",
		Help:      "Canonical rows written by the ingestion pipeline.",
	}, []string{"op"}) // insert|update|skip

	SourceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingest",
		Name:      "source_errors_total",
		Help:      "Source ledger fetch failures.",
	}, []string{"source"})

	FeedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "feeds",
		Name:      "requests_total",
		Help:      "External feed requests by feed and result.",
	}, []string{"feed", "result"})

	RPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "requests_total",
		Help:      "Swap-node RPC calls by method and result.",
	}, []string{"method", "result"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Cache plane lookups by result.",
	}, []string{"result"}) // hit|miss|error

	TaskRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "task_runs_total",
		Help:      "Scheduled task runs by result.",
	}, []string{"task", "result"}) // ok|error|skipped

	TaskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "task_duration_seconds",
		Help:      "Scheduled task duration.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
	}, []string{"task"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status class.",
	}, []string{"route", "code"})
)

func Handler() http.Handler {
	h := promhttp.Handler()
	return h
}
