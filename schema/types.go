package schema

import "time"

// WindowID identifies a controller bound to one host window.
type WindowID string

// RunID identifies a run within a controller.
type RunID string

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	// RunPending is a run that was appended but not yet handed to the dispatcher.
	RunPending RunStatus = "pending"
	// RunRunning is a run whose process is executing.
	RunRunning RunStatus = "running"
	// RunCompleted is a run whose process exited with status 0.
	RunCompleted RunStatus = "completed"
	// RunFailed is a run whose process exited nonzero or could not be started.
	RunFailed RunStatus = "failed"
	// RunCancelled is a run that was cancelled by the user.
	RunCancelled RunStatus = "cancelled"
)

// Terminal reports whether the status is final.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunCancelled:
		return true
	default:
		return false
	}
}

// StreamKind indicates which stream produced an output chunk.
type StreamKind string

const (
	// StreamStdout is output captured from stdout.
	StreamStdout StreamKind = "stdout"
	// StreamStderr is output captured from stderr.
	StreamStderr StreamKind = "stderr"
	// StreamSystem is a diagnostic produced by dropterm itself.
	StreamSystem StreamKind = "system"
)

// OutputChunk is one line of run output.
type OutputChunk struct {
	Stream StreamKind `json:"stream"`
	Text   string     `json:"text"`
}

// RunSnapshot is a read-only copy of a run. Truncated counts output lines
// dropped from the head of Output.
type RunSnapshot struct {
	ID         RunID         `json:"id"`
	Command    string        `json:"command"`
	WorkingDir string        `json:"working_dir"`
	Status     RunStatus     `json:"status"`
	Output     []OutputChunk `json:"output,omitempty"`
	Truncated  int           `json:"truncated,omitempty"`
	StartedAt  time.Time     `json:"started_at,omitempty"`
	FinishedAt time.Time     `json:"finished_at,omitempty"`
	ExitCode   *int          `json:"exit_code,omitempty"`
}

// Duration returns the wall time of a finished run, or zero.
func (r RunSnapshot) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// NoSelection is the selection index used when there are no candidates.
const NoSelection = -1

// Candidate is a completion candidate for the word under the cursor. Text
// replaces the partial word.
type Candidate struct {
	Text      string `json:"text"`
	IsCommand bool   `json:"is_command"`
}

// Frame is the host window geometry at activation.
type Frame struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// WindowSnapshot is a read-only view of a controller.
type WindowSnapshot struct {
	ID                WindowID      `json:"id"`
	Active            bool          `json:"active"`
	WorkingDir        string        `json:"working_dir"`
	Selection         []string      `json:"selection,omitempty"`
	Command           string        `json:"command"`
	Cursor            int           `json:"cursor"`
	CurrentRun        RunID         `json:"current_run,omitempty"`
	SelectedRun       RunID         `json:"selected_run,omitempty"`
	Runs              []RunSnapshot `json:"runs,omitempty"`
	Height            int           `json:"height"`
	Candidates        []Candidate   `json:"candidates,omitempty"`
	SelectedCandidate int           `json:"selected_candidate"`
}

// CompletionRequest asks for candidates for the word under the cursor.
type CompletionRequest struct {
	Partial    string
	IsCommand  bool
	WorkingDir string
}

// CompletionResult holds sorted candidates and the default selection, or
// NoSelection when there are none.
type CompletionResult struct {
	Candidates []Candidate
	Selected   int
}
