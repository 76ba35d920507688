package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"pkt.systems/dropterm/internal/logx"
	"pkt.systems/dropterm/schema"
	"pkt.systems/pslog"
)

// Metrics records dispatcher activity.
type Metrics interface {
	RunStarted()
	RunFinished(status schema.RunStatus, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) RunStarted() {}

func (noopMetrics) RunFinished(schema.RunStatus, time.Duration) {}

// runSink receives dispatcher results on the UI loop.
type runSink interface {
	runOutput(id schema.RunID, chunks []schema.OutputChunk)
	runFinished(id schema.RunID, status schema.RunStatus, exitCode *int, diag []schema.OutputChunk)
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	Loop        Loop
	Executor    Executor
	CancelGrace time.Duration
	Metrics     Metrics
	Env         []string
	Now         func() time.Time
}

// Dispatcher runs one command at a time and reports its output and outcome
// onto the UI loop. Every method must be called from the loop.
type Dispatcher struct {
	loop    Loop
	exec    Executor
	grace   time.Duration
	metrics Metrics
	env     []string
	now     func() time.Time
	sink    runSink
	job     *job
}

type job struct {
	id              schema.RunID
	ctx             context.Context
	cancel          context.CancelFunc
	handle          CommandHandle
	cancelRequested bool
	stopping        bool
	started         time.Time
}

func newDispatcher(cfg DispatcherConfig, sink runSink) *Dispatcher {
	if cfg.CancelGrace <= 0 {
		cfg.CancelGrace = schema.DefaultCancelGrace
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopMetrics{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Dispatcher{
		loop:    cfg.Loop,
		exec:    cfg.Executor,
		grace:   cfg.CancelGrace,
		metrics: cfg.Metrics,
		env:     append([]string(nil), cfg.Env...),
		now:     cfg.Now,
		sink:    sink,
	}
}

// Outstanding reports whether a run is executing.
func (d *Dispatcher) Outstanding() bool {
	return d.job != nil
}

// Current returns the executing run id, if any.
func (d *Dispatcher) Current() schema.RunID {
	if d.job == nil {
		return ""
	}
	return d.job.id
}

// Start validates the working directory and spawns command asynchronously.
// Output and the final outcome arrive later through the sink.
func (d *Dispatcher) Start(ctx context.Context, id schema.RunID, command, workingDir string) error {
	if d.job != nil {
		return schema.ErrRunOutstanding
	}
	if d.exec == nil {
		return schema.ErrExecutorUnavailable
	}
	if err := ValidateWorkingDir(workingDir); err != nil {
		return err
	}
	runCtx, cancel := logx.Detach(ctx)
	log := logx.WithRun(pslog.Ctx(runCtx), id)
	runCtx = logx.ContextWithRun(pslog.ContextWithLogger(runCtx, log), id)
	j := &job{
		id:      id,
		ctx:     runCtx,
		cancel:  cancel,
		started: d.now(),
	}
	d.job = j
	d.metrics.RunStarted()
	req := ExecRequest{
		RunID:      id,
		WorkingDir: workingDir,
		Command:    command,
		Env:        append([]string(nil), d.env...),
	}
	go d.execute(j, req)
	return nil
}

// Cancel requests cancellation of the executing run. The run resolves as
// cancelled once the process exits.
func (d *Dispatcher) Cancel() bool {
	j := d.job
	if j == nil {
		return false
	}
	j.cancelRequested = true
	if j.handle != nil {
		d.stop(j)
	}
	return true
}

func (d *Dispatcher) execute(j *job, req ExecRequest) {
	log := pslog.Ctx(j.ctx)
	handle, err := d.exec.Start(j.ctx, req)
	if err != nil {
		log.Warn("dispatch spawn failed", "err", err)
		d.loop.Post(func() { d.finish(j, ExitResult{}, err) })
		return
	}
	defer func() {
		if closeErr := handle.Close(); closeErr != nil {
			log.Debug("dispatch handle close failed", "err", closeErr)
		}
	}()
	d.loop.Post(func() { d.attach(j, handle) })

	var streamErr error
	stream := handle.Outputs()
	for {
		out, err := stream.Next(j.ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && j.ctx.Err() == nil {
				streamErr = NewExecError(ExecErrorStream, "read output", err)
			}
			break
		}
		chunk := schema.OutputChunk{Stream: out.Stream, Text: out.Text}
		d.loop.Post(func() { d.output(j, chunk) })
	}
	res, err := handle.Wait(j.ctx)
	if err == nil {
		err = streamErr
	}
	log.Debug("dispatch process exited", "exit_code", res.ExitCode, "signal", res.Signal)
	d.loop.Post(func() { d.finish(j, res, err) })
}

func (d *Dispatcher) attach(j *job, handle CommandHandle) {
	if d.job != j {
		go func() {
			_ = handle.Signal(context.Background(), ProcessSignalKILL)
		}()
		return
	}
	j.handle = handle
	if j.cancelRequested {
		d.stop(j)
	}
}

func (d *Dispatcher) output(j *job, chunk schema.OutputChunk) {
	if d.job != j {
		return
	}
	d.sink.runOutput(j.id, []schema.OutputChunk{chunk})
}

func (d *Dispatcher) finish(j *job, res ExitResult, err error) {
	if d.job != j {
		return
	}
	d.job = nil
	j.cancel()

	var (
		status   schema.RunStatus
		exitCode *int
		diag     []schema.OutputChunk
	)
	switch {
	case j.cancelRequested:
		status = schema.RunCancelled
	case err != nil:
		status = schema.RunFailed
		diag = append(diag, schema.OutputChunk{Stream: schema.StreamSystem, Text: execFailureText(err)})
	case res.ExitCode == 0:
		status = schema.RunCompleted
		code := 0
		exitCode = &code
	default:
		status = schema.RunFailed
		code := res.ExitCode
		exitCode = &code
		if res.Signal != "" {
			diag = append(diag, schema.OutputChunk{Stream: schema.StreamSystem, Text: "terminated by signal " + res.Signal})
		}
	}
	duration := d.now().Sub(j.started)
	d.metrics.RunFinished(status, duration)
	pslog.Ctx(j.ctx).Info("dispatch finished", "status", status, "duration_ms", duration.Milliseconds())
	d.sink.runFinished(j.id, status, exitCode, diag)
}

// stop sends TERM to the process group, then KILL when the process is still
// alive after the grace period. A process that survives KILL is abandoned
// and the run is resolved without it.
func (d *Dispatcher) stop(j *job) {
	if j.stopping || j.handle == nil {
		return
	}
	j.stopping = true
	handle := j.handle
	grace := d.grace
	go func() {
		log := pslog.Ctx(j.ctx)
		signalCtx := logx.CopyContextFields(pslog.ContextWithLogger(context.Background(), log), j.ctx)
		if err := handle.Signal(signalCtx, ProcessSignalTERM); err != nil && !isDone(handle.Done()) {
			log.Warn("dispatch stop signal failed", "signal", ProcessSignalTERM, "err", err)
		}
		if waitDone(handle.Done(), grace) {
			return
		}
		if err := handle.Signal(signalCtx, ProcessSignalKILL); err != nil && !isDone(handle.Done()) {
			log.Warn("dispatch stop signal failed", "signal", ProcessSignalKILL, "err", err)
		}
		if waitDone(handle.Done(), grace) {
			return
		}
		log.Warn("dispatch process did not exit after kill")
		d.loop.Post(func() { d.finish(j, ExitResult{}, nil) })
	}()
}

// ValidateWorkingDir checks that dir exists, is a directory and is
// searchable.
func ValidateWorkingDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("%w: empty path", schema.ErrInvalidWorkingDir)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", schema.ErrInvalidWorkingDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", schema.ErrInvalidWorkingDir, dir)
	}
	if err := unix.Access(dir, unix.X_OK); err != nil {
		return fmt.Errorf("%w: %s: %v", schema.ErrInvalidWorkingDir, dir, err)
	}
	return nil
}

func execFailureText(err error) string {
	switch ExecErrorKindOf(err) {
	case ExecErrorSpawn:
		return fmt.Sprintf("failed to start: %v", err)
	case ExecErrorStream:
		return fmt.Sprintf("output error: %v", err)
	default:
		return fmt.Sprintf("error: %v", err)
	}
}

func isDone(ch <-chan struct{}) bool {
	if ch == nil {
		return false
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func waitDone(ch <-chan struct{}, d time.Duration) bool {
	if ch == nil {
		return false
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ch:
		return true
	case <-timer.C:
		return false
	}
}
