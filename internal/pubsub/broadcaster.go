package pubsub

import "context"

// Broadcaster fans processing events out to other processes. Publishing is best effort.
type Broadcaster interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Health(ctx context.Context) error
}

// Subjects published by the processing node, relative to the broadcast prefix
const (
	SubjectIngest    = "ingest.completed"
	SubjectRecompute = "stats.recomputed"
	SubjectRefData   = "refdata.refreshed"
)
