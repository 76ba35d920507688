package core

import (
	"context"
	"time"

	"pkt.systems/dropterm/schema"
	"pkt.systems/pslog"
)

// Completer computes completion candidates.
type Completer interface {
	Complete(req schema.CompletionRequest) schema.CompletionResult
}

// TerminalLauncher opens command in an external terminal application.
type TerminalLauncher interface {
	Launch(ctx context.Context, command, workingDir string) error
}

// Clipboard receives copied text.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// SelectionProvider reports the file selection of the host window.
type SelectionProvider interface {
	SelectedPaths() []string
}

// StaticSelection is a SelectionProvider over a fixed list.
type StaticSelection []string

// SelectedPaths implements SelectionProvider.
func (s StaticSelection) SelectedPaths() []string {
	return append([]string(nil), s...)
}

// ControllerDeps captures the collaborators of a controller. Loop is
// required; everything else is optional.
type ControllerDeps struct {
	Loop      Loop
	Executor  Executor
	Completer Completer
	Host      WindowHost
	Surface   ResultsSurface
	Launcher  TerminalLauncher
	Clipboard Clipboard
	Selection SelectionProvider
	Renderer  Renderer
	EventSink EventSink
	Metrics   Metrics
	Logger    pslog.Logger
	// Env holds KEY=VALUE overrides for every run.
	Env []string
	Now func() time.Time
}
