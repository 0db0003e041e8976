package errs

import (
	"github.com/cockroachdb/errors"
)

// Error kinds. Errors are classified by marking them with one of these
// sentinels, so the classification survives further wrapping.
var (
	// ErrUserInput is a malformed request to a synchronous command.
	ErrUserInput = errors.New("invalid input")
	// ErrNotFound means a natural key did not resolve at the external source.
	ErrNotFound = errors.New("not found")
	// ErrTransientSource is a failed fetch that may succeed on a later attempt.
	ErrTransientSource = errors.New("transient source failure")
	// ErrSinkUnavailable means a notification channel could not be delivered to.
	ErrSinkUnavailable = errors.New("sink unavailable")
	// ErrIntegrityViolation is a broken store invariant or caller contract.
	ErrIntegrityViolation = errors.New("integrity violation")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrIntegrityViolation, "integrity_violation"},
	{ErrUserInput, "user_input"},
	{ErrNotFound, "not_found"},
	{ErrTransientSource, "transient_source"},
	{ErrSinkUnavailable, "sink_unavailable"},
}

// Mark classifies err as kind. A nil err stays nil.
func Mark(err error, kind error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, kind)
}

// Newf creates a new error of the given kind.
func Newf(kind error, format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), kind)
}

// Wrapf adds context to err and classifies it as kind.
func Wrapf(err error, kind error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(err, format, args...), kind)
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err, kind error) bool {
	return errors.Is(err, kind)
}

// KindOf returns a short label for logs and metrics. Unclassified errors
// are reported as "unknown".
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "unknown"
}
