package contentstore

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound        = errors.New("content store: not found")
	ErrVersionConflict = errors.New("content store: version conflict")
)

// TransientError marks a failure the caller may retry: network errors,
// timeouts, throttling and 5xx responses.
type TransientError struct {
	Op         string
	Path       string
	StatusCode int
	// RetryAfter is the wait the server asked for, zero when it gave none.
	RetryAfter time.Duration
	Err        error
}

func (e *TransientError) Error() string {
	if e == nil {
		return "content store: transient error"
	}
	msg := fmt.Sprintf("content store: transient %s %q", e.Op, e.Path)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status=%d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransientError) Unwrap() error { return e.Err }

func (e *TransientError) HTTPStatusCode() int { return e.StatusCode }

func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsRetryable reports whether a retry may succeed. Version conflicts are
// retried the same way as transient failures.
func IsRetryable(err error) bool {
	return IsTransient(err) || errors.Is(err, ErrVersionConflict)
}

// retryAfterOf returns the server-requested wait carried by err, if any.
func retryAfterOf(err error) time.Duration {
	var te *TransientError
	if errors.As(err, &te) {
		return te.RetryAfter
	}
	return 0
}
