package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"pkt.systems/dropterm/core"
	"pkt.systems/dropterm/internal/appconfig"
	"pkt.systems/dropterm/internal/clipboard"
	"pkt.systems/dropterm/internal/completion"
	"pkt.systems/dropterm/internal/eventbus"
	"pkt.systems/dropterm/internal/format"
	"pkt.systems/dropterm/internal/metrics"
	"pkt.systems/dropterm/internal/persist"
	"pkt.systems/dropterm/internal/shell"
	"pkt.systems/dropterm/internal/terminal"
	"pkt.systems/dropterm/schema"
	"pkt.systems/pslog"
)

// wireOptions carries the host specific parts of the wiring.
type wireOptions struct {
	Host core.WindowHost
	// Width and Chrome size the results layout.
	Width  int
	Chrome int
	// ClipboardOut receives OSC 52 sequences.
	ClipboardOut io.Writer
}

// app is one controller with everything it talks to.
type app struct {
	cfg      appconfig.Config
	loop     *core.SerialLoop
	bus      *eventbus.Bus
	ctrl     *core.Controller
	renderer *format.PlainRenderer
	recorder *metrics.Recorder
}

func newApp(ctx context.Context, cfg appconfig.Config, opts wireOptions) (*app, error) {
	logger := pslog.Ctx(ctx)
	mode, err := clipboard.ParseMode(cfg.Clipboard.Mode)
	if err != nil {
		return nil, err
	}
	loop := core.NewSerialLoop()
	bus := eventbus.New(logger)
	renderer := format.NewPlainRenderer()
	recorder := metrics.NewRecorder()

	executor := shell.New(shell.Config{
		Shell:      cfg.Shell.Path,
		Args:       cfg.Shell.Args,
		UsePTY:     cfg.Shell.UsePTY,
		LoadDotenv: cfg.Shell.LoadDotenv,
		Env:        cfg.Shell.Env,
	})
	completer := completion.New(completion.Config{
		SearchPath:    cfg.Completion.SearchPath,
		Builtins:      cfg.Completion.Builtins,
		MaxCandidates: cfg.Completion.MaxCandidates,
		Logger:        logger,
	})
	clip := clipboard.New(clipboard.Config{
		Mode:    mode,
		Command: cfg.Clipboard.Command,
		Output:  opts.ClipboardOut,
	})
	deps := core.ControllerDeps{
		Loop:      loop,
		Executor:  executor,
		Completer: completer,
		Host:      opts.Host,
		Surface:   core.NewResultsLayout(renderer, opts.Width, opts.Chrome),
		Launcher:  terminal.New(terminal.Config{Command: cfg.Terminal.Command}),
		Clipboard: clip,
		Renderer:  renderer,
		EventSink: bus,
		Metrics:   recorder,
		Logger:    logger,
	}
	ctrl, err := core.NewController(cfg.ControllerSettings(), deps)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:      cfg,
		loop:     loop,
		bus:      bus,
		ctrl:     ctrl,
		renderer: renderer,
		recorder: recorder,
	}, nil
}

// start runs the UI loop and the metrics endpoint until ctx is done.
func (a *app) start(ctx context.Context) {
	logger := pslog.Ctx(ctx)
	go func() {
		if err := a.loop.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("ui loop stopped", "err", err)
		}
	}()
	if a.cfg.Metrics.Addr == "" {
		return
	}
	go func() {
		if err := metrics.ListenAndServe(ctx, a.cfg.Metrics.Addr, a.recorder.Handler()); err != nil {
			logger.Warn("metrics server stopped", "err", err)
		}
	}()
}

// activate binds the controller to a window and returns its event stream.
func (a *app) activate(ctx context.Context, req schema.ActivateRequest) (<-chan eventbus.Event, func(), error) {
	events, cancel := a.bus.Subscribe(a.ctrl.ID())
	var activateErr error
	err := a.loop.Do(ctx, func() {
		activateErr = a.ctrl.Activate(ctx, req)
	})
	if err == nil {
		err = activateErr
	}
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return events, cancel, nil
}

func loadConfig(path string) (appconfig.Config, error) {
	return appconfig.Load(path)
}

// resolveDir returns dir, or the current directory when empty.
func resolveDir(dir string) (string, error) {
	if dir == "" {
		return os.Getwd()
	}
	return filepath.Abs(dir)
}

// loadHistory seeds the controller from the history file. The returned
// store is nil when history is not persisted.
func (a *app) loadHistory(ctx context.Context) *persist.Store {
	if a.cfg.Controller.HistoryFile == "" {
		return nil
	}
	logger := pslog.Ctx(ctx)
	store, err := persist.NewStoreWithLogger(a.cfg.Controller.HistoryFile, logger)
	if err != nil {
		logger.Warn("history disabled", "err", err)
		return nil
	}
	entries, _, err := store.Load()
	if err != nil {
		return store
	}
	if err := a.loop.Do(ctx, func() { a.ctrl.LoadHistory(entries) }); err != nil {
		logger.Debug("history load skipped", "err", err)
	}
	return store
}

// saveHistory writes the controller history through store.
func (a *app) saveHistory(ctx context.Context, store *persist.Store) {
	if store == nil {
		return
	}
	var entries []string
	if err := a.loop.Do(ctx, func() { entries = a.ctrl.History() }); err != nil {
		return
	}
	_ = store.Save(entries)
}
