package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"pkt.systems/dropterm/core"
	"pkt.systems/dropterm/schema"
	"pkt.systems/pslog"
)

// DefaultWaitDelay bounds how long output is drained after the process
// exited while a background child still holds the output open.
const DefaultWaitDelay = 2 * time.Second

// Config controls how commands are handed to the shell.
type Config struct {
	Shell      string
	Args       []string
	UsePTY     bool
	LoadDotenv bool
	Env        []string
	WaitDelay  time.Duration
}

// Executor implements core.Executor by running each command line through a
// shell in its own process group.
type Executor struct {
	cfg Config
}

// New constructs a shell executor. The defaults run "sh -c <command>".
func New(cfg Config) *Executor {
	if cfg.Shell == "" {
		cfg.Shell = "sh"
	}
	if cfg.Args == nil {
		cfg.Args = []string{"-c"}
	}
	if cfg.WaitDelay <= 0 {
		cfg.WaitDelay = DefaultWaitDelay
	}
	return &Executor{cfg: cfg}
}

// Start spawns req.Command and returns once the process is running.
func (e *Executor) Start(ctx context.Context, req core.ExecRequest) (core.CommandHandle, error) {
	log := pslog.Ctx(ctx)
	args := append(append([]string(nil), e.cfg.Args...), req.Command)
	cmd := exec.Command(e.cfg.Shell, args...)
	cmd.Dir = req.WorkingDir
	cmd.Env = e.environ(log, req)
	log.Info("shell exec start", "workdir", req.WorkingDir, "shell", e.cfg.Shell, "pty", e.cfg.UsePTY)
	log.Trace("shell exec command", "command", req.Command)

	var (
		stream  *combinedStream
		closers []io.Closer
	)
	if e.cfg.UsePTY {
		ptmx, err := pty.Start(cmd)
		if err != nil {
			log.Warn("shell exec pty start failed", "err", err)
			return nil, core.NewExecError(core.ExecErrorSpawn, "start", err)
		}
		closers = append(closers, ptmx)
		stream = newCombinedStream(log, source{reader: ptmx, kind: schema.StreamStdout, tty: true})
	} else {
		stdoutR, stdoutW, err := os.Pipe()
		if err != nil {
			return nil, core.NewExecError(core.ExecErrorSpawn, "stdout pipe", err)
		}
		stderrR, stderrW, err := os.Pipe()
		if err != nil {
			_ = stdoutR.Close()
			_ = stdoutW.Close()
			return nil, core.NewExecError(core.ExecErrorSpawn, "stderr pipe", err)
		}
		cmd.Stdout = stdoutW
		cmd.Stderr = stderrW
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		err = cmd.Start()
		_ = stdoutW.Close()
		_ = stderrW.Close()
		if err != nil {
			_ = stdoutR.Close()
			_ = stderrR.Close()
			log.Warn("shell exec start failed", "err", err)
			return nil, core.NewExecError(core.ExecErrorSpawn, "start", err)
		}
		closers = append(closers, stdoutR, stderrR)
		stream = newCombinedStream(log,
			source{reader: stdoutR, kind: schema.StreamStdout},
			source{reader: stderrR, kind: schema.StreamStderr},
		)
	}

	pid := cmd.Process.Pid
	pgid, err := unix.Getpgid(pid)
	if err != nil {
		pgid = pid
	}
	log.Debug("shell exec started", "pid", pid, "pgid", pgid)

	h := &handle{
		cmd:     cmd,
		pgid:    pgid,
		stream:  stream,
		closers: closers,
		log:     log,
		started: time.Now(),
		done:    make(chan struct{}),
	}
	go h.wait(e.cfg.WaitDelay)
	return h, nil
}

func (e *Executor) environ(log pslog.Logger, req core.ExecRequest) []string {
	var dotenv map[string]string
	if e.cfg.LoadDotenv {
		var err error
		dotenv, err = readDotenv(req.WorkingDir)
		if err != nil {
			log.Warn("shell exec dotenv ignored", "workdir", req.WorkingDir, "err", err)
		}
	}
	return mergeEnv(os.Environ(), dotenv, e.cfg.Env, req.Env)
}

type handle struct {
	cmd     *exec.Cmd
	pgid    int
	stream  *combinedStream
	closers []io.Closer
	log     pslog.Logger
	started time.Time

	done      chan struct{}
	result    core.ExitResult
	err       error
	closeOnce sync.Once
}

func (h *handle) wait(delay time.Duration) {
	err := h.cmd.Wait()
	res := core.ExitResult{}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
				res.ExitCode = 128 + int(status.Signal())
				res.Signal = unix.SignalName(status.Signal())
			}
			err = nil
		} else {
			h.log.Error("shell exec wait failed", "err", err)
			err = core.NewExecError(core.ExecErrorWait, "wait", err)
		}
	}
	h.result = res
	h.err = err
	fields := []any{
		"exit_code", res.ExitCode,
		"duration_ms", time.Since(h.started).Milliseconds(),
	}
	if res.Signal != "" {
		fields = append(fields, "signal", res.Signal)
	}
	h.log.Info("shell exec finished", fields...)
	close(h.done)

	select {
	case <-h.stream.drained:
	case <-time.After(delay):
		h.log.Debug("shell exec output abandoned", "wait_delay_ms", delay.Milliseconds())
		h.closeReaders()
	}
}

func (h *handle) Outputs() core.CommandStream {
	return h.stream
}

func (h *handle) Signal(ctx context.Context, sig core.ProcessSignal) error {
	_ = ctx
	signal, err := toSignal(sig)
	if err != nil {
		return core.NewExecError(core.ExecErrorSignal, "signal", err)
	}
	if h.pgid > 0 {
		if err := unix.Kill(-h.pgid, signal); err == nil {
			return nil
		}
	}
	if err := h.cmd.Process.Signal(signal); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		return core.NewExecError(core.ExecErrorSignal, "signal", err)
	}
	return nil
}

func (h *handle) Wait(ctx context.Context) (core.ExitResult, error) {
	select {
	case <-ctx.Done():
		return core.ExitResult{}, ctx.Err()
	case <-h.done:
		return h.result, h.err
	}
}

func (h *handle) Done() <-chan struct{} {
	return h.done
}

func (h *handle) Close() error {
	h.closeReaders()
	return nil
}

func (h *handle) closeReaders() {
	h.closeOnce.Do(func() {
		for _, c := range h.closers {
			_ = c.Close()
		}
	})
}

func toSignal(sig core.ProcessSignal) (unix.Signal, error) {
	switch sig {
	case core.ProcessSignalHUP:
		return unix.SIGHUP, nil
	case core.ProcessSignalINT:
		return unix.SIGINT, nil
	case core.ProcessSignalTERM:
		return unix.SIGTERM, nil
	case core.ProcessSignalKILL:
		return unix.SIGKILL, nil
	default:
		return 0, fmt.Errorf("unsupported signal: %s", sig)
	}
}
