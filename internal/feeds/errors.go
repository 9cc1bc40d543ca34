package feeds

import (
	"errors"
	"fmt"
)

// Kind of external fault
type Kind string

const (
	// network, timeout, 5xx or 429: retried, the tick keeps the last good value
	KindTransient Kind = "transient"
	// non retryable 4xx
	KindStatus Kind = "status"
	// response missing required keys or of unexpected type
	KindSchema Kind = "schema"
)

type Error struct {
	Feed   string
	Kind   Kind
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("feed %s %s fault, status=%d, error=%v", e.Feed, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("feed %s %s fault, error=%v", e.Feed, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func IsKind(err error, kind Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == kind
}

func schemaErr(feed string, err error) *Error {
	return &Error{Feed: feed, Kind: KindSchema, Err: err}
}
