package core

import (
	"context"

	"pkt.systems/dropterm/schema"
)

// Executor starts shell commands and exposes their output streams.
type Executor interface {
	Start(ctx context.Context, req ExecRequest) (CommandHandle, error)
}

// ExecRequest describes a command invocation.
type ExecRequest struct {
	RunID      schema.RunID
	WorkingDir string
	Command    string
	// Env holds KEY=VALUE overrides applied last.
	Env []string
}

// CommandOutput captures a line of output from a command.
type CommandOutput struct {
	Stream schema.StreamKind
	Text   string
}

// CommandStream yields command output lines. Next returns io.EOF once every
// stream is drained.
type CommandStream interface {
	Next(ctx context.Context) (CommandOutput, error)
	Close() error
}

// CommandHandle exposes output and lifecycle controls for a command.
type CommandHandle interface {
	Outputs() CommandStream
	Signal(ctx context.Context, sig ProcessSignal) error
	Wait(ctx context.Context) (ExitResult, error)
	// Done is closed once the process exited.
	Done() <-chan struct{}
	Close() error
}

// ExitResult describes the process outcome.
type ExitResult struct {
	ExitCode int
	// Signal names the signal that terminated the process, if any.
	Signal string
}

// ProcessSignal indicates which signal to send to the process group.
type ProcessSignal string

const (
	// ProcessSignalHUP requests a hangup signal.
	ProcessSignalHUP ProcessSignal = "HUP"
	// ProcessSignalINT requests an interrupt signal.
	ProcessSignalINT ProcessSignal = "INT"
	// ProcessSignalTERM requests a termination signal.
	ProcessSignalTERM ProcessSignal = "TERM"
	// ProcessSignalKILL requests an immediate kill signal.
	ProcessSignalKILL ProcessSignal = "KILL"
)
