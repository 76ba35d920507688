package core

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"pkt.systems/dropterm/schema"
)

type fakeHandle struct {
	outputs  chan CommandOutput
	done     chan struct{}
	exit     ExitResult
	waitErr  error
	onSignal func(h *fakeHandle, sig ProcessSignal)

	mu      sync.Mutex
	signals []ProcessSignal
	closed  bool
	exited  bool
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{
		outputs: make(chan CommandOutput, 64),
		done:    make(chan struct{}),
	}
}

func (h *fakeHandle) Outputs() CommandStream {
	return fakeStream{h: h}
}

func (h *fakeHandle) Signal(_ context.Context, sig ProcessSignal) error {
	h.mu.Lock()
	h.signals = append(h.signals, sig)
	fn := h.onSignal
	h.mu.Unlock()
	if fn != nil {
		fn(h, sig)
	}
	return nil
}

func (h *fakeHandle) Wait(ctx context.Context) (ExitResult, error) {
	select {
	case <-h.done:
		return h.exit, h.waitErr
	case <-ctx.Done():
		return ExitResult{}, ctx.Err()
	}
}

func (h *fakeHandle) Done() <-chan struct{} {
	return h.done
}

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	return nil
}

func (h *fakeHandle) emit(stream schema.StreamKind, lines ...string) {
	for _, line := range lines {
		h.outputs <- CommandOutput{Stream: stream, Text: line}
	}
}

// exitWith closes the output stream and ends the process once.
func (h *fakeHandle) exitWith(code int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.exited {
		return
	}
	h.exited = true
	h.exit = ExitResult{ExitCode: code}
	close(h.outputs)
	close(h.done)
}

func (h *fakeHandle) signalsSent() []ProcessSignal {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]ProcessSignal(nil), h.signals...)
}

type fakeStream struct {
	h *fakeHandle
}

func (s fakeStream) Next(ctx context.Context) (CommandOutput, error) {
	select {
	case out, ok := <-s.h.outputs:
		if !ok {
			return CommandOutput{}, io.EOF
		}
		return out, nil
	case <-ctx.Done():
		return CommandOutput{}, ctx.Err()
	}
}

func (s fakeStream) Close() error { return nil }

type fakeExecutor struct {
	mu       sync.Mutex
	requests []ExecRequest
	handles  []*fakeHandle
	startErr error
	gate     chan struct{}
	prepare  func(h *fakeHandle)
}

func (e *fakeExecutor) Start(ctx context.Context, req ExecRequest) (CommandHandle, error) {
	if e.gate != nil {
		select {
		case <-e.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests = append(e.requests, req)
	if e.startErr != nil {
		return nil, e.startErr
	}
	h := newFakeHandle()
	if e.prepare != nil {
		e.prepare(h)
	}
	e.handles = append(e.handles, h)
	return h, nil
}

func (e *fakeExecutor) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.requests)
}

func (e *fakeExecutor) handle(t *testing.T, loop *SerialLoop, i int) *fakeHandle {
	t.Helper()
	var h *fakeHandle
	waitFor(t, loop, func() bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		if len(e.handles) > i {
			h = e.handles[i]
			return true
		}
		return false
	})
	return h
}

type fakeHost struct {
	max     int
	mu      sync.Mutex
	resizes []int
	dones   []func()
}

func (h *fakeHost) MaxHeight() int {
	return h.max
}

func (h *fakeHost) ResizeBy(delta int, done func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resizes = append(h.resizes, delta)
	h.dones = append(h.dones, done)
}

func (h *fakeHost) complete(i int) {
	h.mu.Lock()
	done := h.dones[i]
	h.mu.Unlock()
	done()
}

func (h *fakeHost) resizeCalls() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int(nil), h.resizes...)
}

type fixedSurface struct {
	min     int
	desired int
}

func (s fixedSurface) MinContentHeight() int { return s.min }

func (s fixedSurface) DesiredHeight([]schema.RunSnapshot) int { return s.desired }

type fakeCompleter struct {
	last schema.CompletionRequest
	fn   func(req schema.CompletionRequest) schema.CompletionResult
}

func (f *fakeCompleter) Complete(req schema.CompletionRequest) schema.CompletionResult {
	f.last = req
	if f.fn == nil {
		return schema.CompletionResult{Selected: schema.NoSelection}
	}
	return f.fn(req)
}

type fakeClipboard struct {
	text string
	err  error
}

func (f *fakeClipboard) WriteText(_ context.Context, text string) error {
	if f.err != nil {
		return f.err
	}
	f.text = text
	return nil
}

type fakeLauncher struct {
	command string
	dir     string
	err     error
}

func (f *fakeLauncher) Launch(_ context.Context, command, dir string) error {
	f.command = command
	f.dir = dir
	return f.err
}

type recordingSink struct {
	runs     []schema.RunEvent
	heights  []schema.HeightEvent
	commands []schema.CommandEvent
}

func (s *recordingSink) OnRunEvent(event schema.RunEvent)         { s.runs = append(s.runs, event) }
func (s *recordingSink) OnHeightEvent(event schema.HeightEvent)   { s.heights = append(s.heights, event) }
func (s *recordingSink) OnCommandEvent(event schema.CommandEvent) { s.commands = append(s.commands, event) }

var errSpawn = errors.New("exec: \"nope\": executable file not found")

// waitFor drains the loop until cond holds or the deadline passes.
func waitFor(t *testing.T, loop *SerialLoop, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		loop.Drain()
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met before deadline")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func newTestController(t *testing.T, cfg schema.ControllerConfig, deps ControllerDeps) (*Controller, *SerialLoop) {
	t.Helper()
	loop := NewSerialLoop()
	deps.Loop = loop
	c, err := NewController(cfg, deps)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	if err := c.Activate(context.Background(), schema.ActivateRequest{WorkingDir: t.TempDir()}); err != nil {
		t.Fatalf("activate: %v", err)
	}
	loop.Drain()
	return c, loop
}

func submit(t *testing.T, c *Controller, command string) schema.RunID {
	t.Helper()
	c.SetCommand(command, len(command))
	id, err := c.ExecuteCommand(context.Background())
	if err != nil {
		t.Fatalf("execute %q: %v", command, err)
	}
	return id
}

func runStatus(c *Controller, id schema.RunID) schema.RunStatus {
	run, _ := c.Run(id)
	return run.Status
}
