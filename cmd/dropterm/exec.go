package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/dropterm/internal/appconfig"
	"pkt.systems/dropterm/internal/logx"
	"pkt.systems/dropterm/schema"
)

func newExecCmd(cfgPath *string) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "exec [--dir D] -- CMD...",
		Short: "Run one command through the controller and mirror its exit status",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			workdir, err := resolveDir(dir)
			if err != nil {
				return err
			}
			code, err := runHeadless(cmd.Context(), cfg, workdir, strings.Join(args, " "), cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if code != 0 {
				return exitCodeError{code: code}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "working directory (default current directory)")
	return cmd
}

// runHeadless submits command and copies its output until the run reaches
// a terminal status. Cancelling ctx cancels the run.
func runHeadless(ctx context.Context, cfg appconfig.Config, dir, command string, stdout, stderr io.Writer) (int, error) {
	loopCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	defer stop()
	a, err := newApp(loopCtx, cfg, wireOptions{})
	if err != nil {
		return 0, err
	}
	a.start(loopCtx)
	history := a.loadHistory(loopCtx)
	defer a.saveHistory(loopCtx, history)

	events, unsubscribe, err := a.activate(loopCtx, schema.ActivateRequest{WorkingDir: dir})
	if err != nil {
		return 0, err
	}
	defer unsubscribe()

	var runID schema.RunID
	var submitErr error
	if err := a.loop.Do(loopCtx, func() {
		a.ctrl.SetCommand(command, len([]rune(command)))
		runID, submitErr = a.ctrl.ExecuteCommand(loopCtx)
	}); err != nil {
		return 0, err
	}
	if submitErr != nil {
		return 0, submitErr
	}

	logger := logx.WithWindowRun(loopCtx, a.ctrl.ID(), runID)
	out := runPrinter{stdout: stdout, stderr: stderr}
	cancelled := false
	done := ctx.Done()
	for {
		run, ok, err := a.snapshot(loopCtx, runID)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, fmt.Errorf("%w: %s", schema.ErrRunNotFound, runID)
		}
		out.print(run)
		if run.Status.Terminal() {
			logger.Debug("exec finished", "status", run.Status)
			return exitStatus(run), nil
		}
		select {
		case _, open := <-events:
			if !open {
				return 0, errors.New("event stream closed")
			}
		case <-done:
			done = nil
			if !cancelled {
				cancelled = true
				logger.Info("exec interrupted, cancelling run")
				if err := a.loop.Do(loopCtx, func() { _ = a.ctrl.CancelCurrentCommand(loopCtx) }); err != nil {
					return 0, err
				}
			}
		}
	}
}

func (a *app) snapshot(ctx context.Context, id schema.RunID) (schema.RunSnapshot, bool, error) {
	var run schema.RunSnapshot
	var ok bool
	err := a.loop.Do(ctx, func() { run, ok = a.ctrl.Run(id) })
	return run, ok, err
}

// exitStatus maps a finished run onto a process exit status.
func exitStatus(run schema.RunSnapshot) int {
	if run.ExitCode != nil {
		return *run.ExitCode
	}
	switch run.Status {
	case schema.RunCompleted:
		return 0
	case schema.RunCancelled:
		return 130
	default:
		return 1
	}
}

// runPrinter writes the output lines of a run that were not written yet.
// Lines are counted from the start of the run so head truncation does not
// repeat them.
type runPrinter struct {
	stdout  io.Writer
	stderr  io.Writer
	printed int
}

func (p *runPrinter) print(run schema.RunSnapshot) {
	next := p.printed - run.Truncated
	if next < 0 {
		next = 0
	}
	for _, chunk := range run.Output[min(next, len(run.Output)):] {
		w := p.stdout
		if chunk.Stream != schema.StreamStdout {
			w = p.stderr
		}
		_, _ = fmt.Fprintln(w, chunk.Text)
	}
	if total := run.Truncated + len(run.Output); total > p.printed {
		p.printed = total
	}
}
