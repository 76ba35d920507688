package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"pkt.systems/dropterm/internal/appconfig"
	"pkt.systems/dropterm/schema"
	"pkt.systems/dropterm/tui"
	"pkt.systems/pslog"
)

func newTUICmd(cfgPath *string) *cobra.Command {
	var dir string
	var selection []string
	var disableAuditTrails bool
	cmd := &cobra.Command{
		Use:   "tui [--dir D] [--select P ...]",
		Short: "Open the drop-down window below the prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if disableAuditTrails {
				cfg.Logging.DisableAuditTrails = true
			}
			workdir, err := resolveDir(dir)
			if err != nil {
				return err
			}
			return runTUI(cmd.Context(), cfg, workdir, selection)
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "working directory (default current directory)")
	cmd.Flags().StringArrayVarP(&selection, "select", "s", nil, "selected path, repeatable")
	cmd.Flags().BoolVar(&disableAuditTrails, "disable-audit-trails", false, "disable command audit logging")
	return cmd
}

func runTUI(ctx context.Context, cfg appconfig.Config, dir string, selection []string) error {
	logger, closeLog, err := fileLogger(cfg.Logging.File)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()
	ctx = pslog.ContextWithLogger(ctx, logger)

	width, height := 0, 0
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		width, height = w, h
	}
	host := tui.NewHost(height)

	loopCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	defer stop()
	a, err := newApp(loopCtx, cfg, wireOptions{
		Host:   host,
		Width:  width,
		Chrome: tui.ChromeRows,
	})
	if err != nil {
		return err
	}
	a.start(loopCtx)
	history := a.loadHistory(loopCtx)

	req := schema.ActivateRequest{
		WorkingDir: dir,
		Selection:  selection,
		Frame:      schema.Frame{Width: width, Height: tui.ChromeRows},
	}
	events, unsubscribe, err := a.activate(loopCtx, req)
	if err != nil {
		return err
	}
	defer unsubscribe()

	err = tui.Run(ctx, tui.Config{
		Loop:       a.loop,
		Controller: a.ctrl,
		Events:     events,
		Host:       host,
		Renderer:   a.renderer,
		Prompt:     a.renderer.Prompt,
		Logger:     logger,
	})
	a.saveHistory(loopCtx, history)
	if closeErr := a.loop.Do(loopCtx, a.ctrl.Close); closeErr != nil {
		logger.Debug("controller close skipped", "err", closeErr)
	}
	return err
}

// fileLogger logs to a rotated file because the terminal belongs to the
// window. LOG_LEVEL and friends apply as on stderr.
func fileLogger(path string) (pslog.Logger, func() error, error) {
	if path == "" {
		logger := pslog.NewWithOptions(io.Discard, pslog.Options{Mode: pslog.ModeStructured, NoColor: true})
		return logger, func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(file),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeStructured, NoColor: true}),
	)
	return logger, file.Close, nil
}
