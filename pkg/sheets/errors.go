package sheets

import (
	"errors"
	"fmt"
)

var (
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	ErrColumnNotFound    = errors.New("column not found")
)

// RemoteUnavailableError is returned once a retry policy gives up.
type RemoteUnavailableError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *RemoteUnavailableError) Error() string {
	msg := "<nil>"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s: failed after %d attempts: %s", e.Op, e.Attempts, msg)
}

func (e *RemoteUnavailableError) Unwrap() error { return e.Err }

func (e *RemoteUnavailableError) Is(target error) bool {
	return target == ErrRemoteUnavailable
}

// ColumnNotFoundError names the header label that could not be resolved.
type ColumnNotFoundError struct {
	Table string
	Label string
}

func (e *ColumnNotFoundError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("column %q not found", e.Label)
	}
	return fmt.Sprintf("column %q not found in %s", e.Label, e.Table)
}

func (e *ColumnNotFoundError) Is(target error) bool {
	return target == ErrColumnNotFound
}
