package schema

import "errors"

var (
	// ErrEmptyCommand indicates the entry field was blank on submit.
	ErrEmptyCommand = errors.New("empty command")
	// ErrRunOutstanding indicates a run is already executing.
	ErrRunOutstanding = errors.New("run outstanding")
	// ErrInvalidWorkingDir indicates the working directory cannot be used.
	ErrInvalidWorkingDir = errors.New("invalid working directory")
	// ErrNotActive indicates the controller is not bound to a window.
	ErrNotActive = errors.New("window not active")
	// ErrRunNotFound indicates a requested run could not be found.
	ErrRunNotFound = errors.New("run not found")
	// ErrNoRuns indicates the run queue is empty.
	ErrNoRuns = errors.New("no runs")
	// ErrNoSelection indicates there are no selected paths.
	ErrNoSelection = errors.New("no selection")
	// ErrExecutorUnavailable indicates no process executor is configured.
	ErrExecutorUnavailable = errors.New("executor not configured")
	// ErrLauncherUnavailable indicates no terminal launcher is configured.
	ErrLauncherUnavailable = errors.New("terminal launcher not configured")
	// ErrClipboardUnavailable indicates no clipboard writer is configured.
	ErrClipboardUnavailable = errors.New("clipboard not configured")
	// ErrUnknownAction indicates an action outside the known set.
	ErrUnknownAction = errors.New("unknown action")
	// ErrLoopStopped indicates the UI loop no longer accepts work.
	ErrLoopStopped = errors.New("ui loop stopped")
)
