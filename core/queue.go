package core

import (
	"time"

	"pkt.systems/dropterm/schema"
)

// RunQueue is the ordered run history of one window. Insertion order is
// submission order and is never changed. RunQueue is not safe for concurrent
// use; the controller only touches it from the UI loop.
type RunQueue struct {
	runs      []*run
	index     map[schema.RunID]*run
	maxRuns   int
	maxLines  int
	observers map[int]func(schema.RunEvent)
	nextObs   int
}

// NewRunQueue constructs a queue retaining at most maxRuns runs of at most
// maxLines output lines each. Zero disables a limit; the controller always
// passes the bounded values of a normalized config.
func NewRunQueue(maxRuns, maxLines int) *RunQueue {
	return &RunQueue{
		index:     make(map[schema.RunID]*run),
		maxRuns:   maxRuns,
		maxLines:  maxLines,
		observers: make(map[int]func(schema.RunEvent)),
	}
}

// Observe registers fn for every queue mutation and returns a cancel func.
func (q *RunQueue) Observe(fn func(schema.RunEvent)) func() {
	if fn == nil {
		return func() {}
	}
	id := q.nextObs
	q.nextObs++
	q.observers[id] = fn
	return func() { delete(q.observers, id) }
}

// Append adds a pending run and evicts the oldest terminal runs beyond the
// retention limit.
func (q *RunQueue) Append(id schema.RunID, command, workingDir string) schema.RunSnapshot {
	r := newRun(id, command, workingDir, q.maxLines)
	q.runs = append(q.runs, r)
	q.index[id] = r
	q.emit(schema.RunEvent{Kind: schema.RunAppended, RunID: id, Status: r.status})
	q.evict()
	return r.snapshot()
}

// Start moves a pending run to running.
func (q *RunQueue) Start(id schema.RunID, now time.Time) bool {
	r := q.index[id]
	if r == nil || !r.start(now) {
		return false
	}
	q.emit(schema.RunEvent{Kind: schema.RunStatusChanged, RunID: id, Status: r.status})
	return true
}

// AppendOutput appends chunks to a non-terminal run.
func (q *RunQueue) AppendOutput(id schema.RunID, chunks ...schema.OutputChunk) bool {
	r := q.index[id]
	if r == nil || !r.appendOutput(chunks...) {
		return false
	}
	q.emit(schema.RunEvent{Kind: schema.RunOutput, RunID: id, Status: r.status, Chunks: append([]schema.OutputChunk(nil), chunks...)})
	return true
}

// Finish resolves a run exactly once.
func (q *RunQueue) Finish(id schema.RunID, status schema.RunStatus, exitCode *int, now time.Time, diag ...schema.OutputChunk) bool {
	r := q.index[id]
	if r == nil || !r.finish(status, exitCode, now, diag...) {
		return false
	}
	if len(diag) > 0 {
		q.emit(schema.RunEvent{Kind: schema.RunOutput, RunID: id, Status: r.status, Chunks: append([]schema.OutputChunk(nil), diag...)})
	}
	q.emit(schema.RunEvent{Kind: schema.RunStatusChanged, RunID: id, Status: r.status})
	q.evict()
	return true
}

// Remove drops a terminal run from the queue.
func (q *RunQueue) Remove(id schema.RunID) bool {
	r := q.index[id]
	if r == nil || !r.status.Terminal() {
		return false
	}
	q.drop(id)
	return true
}

// Clear drops every terminal run and returns how many were removed. A
// non-terminal run stays in place.
func (q *RunQueue) Clear() int {
	kept := q.runs[:0]
	removed := 0
	for _, r := range q.runs {
		if r.status.Terminal() {
			delete(q.index, r.id)
			removed++
			continue
		}
		kept = append(kept, r)
	}
	for i := len(kept); i < len(q.runs); i++ {
		q.runs[i] = nil
	}
	q.runs = kept
	q.emit(schema.RunEvent{Kind: schema.RunsCleared})
	return removed
}

// Get returns a snapshot of one run.
func (q *RunQueue) Get(id schema.RunID) (schema.RunSnapshot, bool) {
	r := q.index[id]
	if r == nil {
		return schema.RunSnapshot{}, false
	}
	return r.snapshot(), true
}

// Latest returns the most recently appended run.
func (q *RunQueue) Latest() (schema.RunSnapshot, bool) {
	if len(q.runs) == 0 {
		return schema.RunSnapshot{}, false
	}
	return q.runs[len(q.runs)-1].snapshot(), true
}

// Snapshot returns every run in submission order.
func (q *RunQueue) Snapshot() []schema.RunSnapshot {
	out := make([]schema.RunSnapshot, 0, len(q.runs))
	for _, r := range q.runs {
		out = append(out, r.snapshot())
	}
	return out
}

// Len returns the number of retained runs.
func (q *RunQueue) Len() int {
	return len(q.runs)
}

func (q *RunQueue) evict() {
	if q.maxRuns <= 0 {
		return
	}
	for len(q.runs) > q.maxRuns {
		victim := schema.RunID("")
		for _, r := range q.runs {
			if r.status.Terminal() {
				victim = r.id
				break
			}
		}
		if victim == "" {
			return
		}
		q.drop(victim)
	}
}

func (q *RunQueue) drop(id schema.RunID) {
	for i, r := range q.runs {
		if r.id != id {
			continue
		}
		copy(q.runs[i:], q.runs[i+1:])
		q.runs[len(q.runs)-1] = nil
		q.runs = q.runs[:len(q.runs)-1]
		break
	}
	delete(q.index, id)
	q.emit(schema.RunEvent{Kind: schema.RunRemoved, RunID: id})
}

func (q *RunQueue) emit(event schema.RunEvent) {
	for _, fn := range q.observers {
		fn(event)
	}
}
