package schema

// RunEventKind describes a run queue mutation.
type RunEventKind string

const (
	// RunAppended is emitted when a run is added to the queue.
	RunAppended RunEventKind = "appended"
	// RunOutput is emitted when output chunks are appended to a run.
	RunOutput RunEventKind = "output"
	// RunStatusChanged is emitted when a run changes status.
	RunStatusChanged RunEventKind = "status"
	// RunRemoved is emitted when a run is evicted or removed.
	RunRemoved RunEventKind = "removed"
	// RunsCleared is emitted when the queue is cleared.
	RunsCleared RunEventKind = "cleared"
)

// RunEvent describes a run queue mutation.
type RunEvent struct {
	WindowID WindowID      `json:"window_id"`
	Kind     RunEventKind  `json:"kind"`
	RunID    RunID         `json:"run_id,omitempty"`
	Status   RunStatus     `json:"status,omitempty"`
	Chunks   []OutputChunk `json:"chunks,omitempty"`
}

// HeightEvent is emitted when the host applied a window height change.
type HeightEvent struct {
	WindowID WindowID `json:"window_id"`
	Height   int      `json:"height"`
	Delta    int      `json:"delta"`
}

// CommandEvent is emitted when the entry field text or cursor changed.
type CommandEvent struct {
	WindowID WindowID `json:"window_id"`
	Command  string   `json:"command"`
	Cursor   int      `json:"cursor"`
}
