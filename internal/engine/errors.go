package engine

import (
	"context"
	"errors"
)

// Sentinel texts handed to callers in place of model output.
const (
	SentinelUnavailable = "⚠️ Ancestor AI is currently unavailable."
)

// dependencyUnavailableError signals a missing external dependency (llama-cli,
// llama-server, model file, or a build without llama support).
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing/failed runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var target dependencyUnavailableError
	return errors.As(err, &target)
}

// errAbandoned is returned through onToken when a stream consumer stops
// iterating. It is a lifecycle event, not a failure.
var errAbandoned = errors.New("stream abandoned by consumer")

// isCancellation reports whether err means the caller went away rather than
// the resource failing.
func isCancellation(err error) bool {
	return errors.Is(err, errAbandoned) || errors.Is(err, context.Canceled)
}

// outcomeLabel classifies err for metrics.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errAbandoned):
		return "abandoned"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case isBreakerOpen(err):
		return "breaker_open"
	case IsDependencyUnavailable(err):
		return "unavailable"
	default:
		return "error"
	}
}
