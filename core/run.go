package core

import (
	"time"

	"pkt.systems/dropterm/schema"
)

// run is one executed or executing command. Once its status is terminal it
// is frozen and every mutation reports false.
type run struct {
	id         schema.RunID
	command    string
	workingDir string
	status     schema.RunStatus
	output     []schema.OutputChunk
	truncated  int
	maxLines   int
	startedAt  time.Time
	finishedAt time.Time
	exitCode   *int
}

func newRun(id schema.RunID, command, workingDir string, maxLines int) *run {
	return &run{
		id:         id,
		command:    command,
		workingDir: workingDir,
		status:     schema.RunPending,
		maxLines:   maxLines,
	}
}

func (r *run) start(now time.Time) bool {
	if r.status != schema.RunPending {
		return false
	}
	r.status = schema.RunRunning
	r.startedAt = now
	return true
}

func (r *run) appendOutput(chunks ...schema.OutputChunk) bool {
	if r.status.Terminal() || len(chunks) == 0 {
		return false
	}
	r.output = append(r.output, chunks...)
	r.trim()
	return true
}

// finish moves the run to a terminal status exactly once. Diagnostic chunks
// are appended before the run freezes.
func (r *run) finish(status schema.RunStatus, exitCode *int, now time.Time, diag ...schema.OutputChunk) bool {
	if r.status.Terminal() || !status.Terminal() {
		return false
	}
	if len(diag) > 0 {
		r.output = append(r.output, diag...)
		r.trim()
	}
	if r.startedAt.IsZero() {
		r.startedAt = now
	}
	r.status = status
	r.finishedAt = now
	if exitCode != nil && status != schema.RunCancelled {
		code := *exitCode
		r.exitCode = &code
	}
	return true
}

func (r *run) trim() {
	if r.maxLines <= 0 || len(r.output) <= r.maxLines {
		return
	}
	drop := len(r.output) - r.maxLines
	r.truncated += drop
	r.output = append([]schema.OutputChunk(nil), r.output[drop:]...)
}

func (r *run) snapshot() schema.RunSnapshot {
	snap := schema.RunSnapshot{
		ID:         r.id,
		Command:    r.command,
		WorkingDir: r.workingDir,
		Status:     r.status,
		Output:     append([]schema.OutputChunk(nil), r.output...),
		Truncated:  r.truncated,
		StartedAt:  r.startedAt,
		FinishedAt: r.finishedAt,
	}
	if r.exitCode != nil {
		code := *r.exitCode
		snap.ExitCode = &code
	}
	return snap
}
