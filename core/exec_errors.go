package core

import (
	"errors"
	"fmt"
)

// ExecErrorKind classifies executor failures.
type ExecErrorKind string

const (
	// ExecErrorUnknown is an uncategorized executor failure.
	ExecErrorUnknown ExecErrorKind = "unknown"
	// ExecErrorSpawn indicates the process could not be started.
	ExecErrorSpawn ExecErrorKind = "spawn"
	// ExecErrorWait indicates waiting on the process failed.
	ExecErrorWait ExecErrorKind = "wait"
	// ExecErrorSignal indicates a signal could not be delivered.
	ExecErrorSignal ExecErrorKind = "signal"
	// ExecErrorStream indicates reading process output failed.
	ExecErrorStream ExecErrorKind = "stream"
)

// ExecError wraps executor failures with a stable classification.
type ExecError struct {
	Kind    ExecErrorKind
	Op      string
	Message string
	Err     error
}

// NewExecError constructs a classified executor error.
func NewExecError(kind ExecErrorKind, op string, err error) *ExecError {
	return &ExecError{Kind: kind, Op: op, Err: err}
}

func (e *ExecError) Error() string {
	if e == nil {
		return "exec error"
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %v", e.Op, e.Err)
		}
		return e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("exec %s failed", e.Op)
	}
	return "exec error"
}

func (e *ExecError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ExecErrorKindOf returns the classification of err, or ExecErrorUnknown.
func ExecErrorKindOf(err error) ExecErrorKind {
	var execErr *ExecError
	if errors.As(err, &execErr) && execErr.Kind != "" {
		return execErr.Kind
	}
	return ExecErrorUnknown
}
