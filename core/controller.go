package core

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"pkt.systems/dropterm/internal/format"
	"pkt.systems/dropterm/internal/logx"
	"pkt.systems/dropterm/schema"
	"pkt.systems/pslog"
)

// Controller is the command-execution controller of one drop-down window.
// It owns the entry field, the run queue and the command history. Every
// method must be called from the UI loop.
type Controller struct {
	id         schema.WindowID
	cfg        schema.ControllerConfig
	loop       Loop
	log        pslog.Logger
	now        func() time.Time
	queue      *RunQueue
	dispatcher *Dispatcher
	negotiator *Negotiator
	history    *historyBuffer
	completer  Completer
	launcher   TerminalLauncher
	clipboard  Clipboard
	selection  SelectionProvider
	renderer   Renderer
	surface    ResultsSurface
	sink       EventSink

	active     bool
	workingDir string
	selected   []string
	frame      schema.Frame
	command    []rune
	cursor     int
	selectedID schema.RunID

	candidates     []schema.Candidate
	candidateIndex int
	candidateSpan  wordSpan

	renegotiatePending bool
}

// NewController constructs an inactive controller.
func NewController(cfg schema.ControllerConfig, deps ControllerDeps) (*Controller, error) {
	normalized, err := schema.NormalizeControllerConfig(cfg)
	if err != nil {
		return nil, err
	}
	cfg = normalized
	if deps.Loop == nil {
		return nil, errors.New("controller requires a ui loop")
	}
	if deps.Renderer == nil {
		deps.Renderer = format.NewPlainRenderer()
	}
	if deps.Surface == nil {
		deps.Surface = NewResultsLayout(deps.Renderer, 0, 1)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	id := newWindowID()
	c := &Controller{
		id:             id,
		cfg:            cfg,
		loop:           deps.Loop,
		log:            logger.With("window", id),
		now:            deps.Now,
		queue:          NewRunQueue(cfg.MaxRuns, cfg.MaxOutputLines),
		history:        newHistory(cfg.HistoryMax),
		completer:      deps.Completer,
		launcher:       deps.Launcher,
		clipboard:      deps.Clipboard,
		selection:      deps.Selection,
		renderer:       deps.Renderer,
		surface:        deps.Surface,
		sink:           deps.EventSink,
		candidateIndex: schema.NoSelection,
	}
	c.dispatcher = newDispatcher(DispatcherConfig{
		Loop:        deps.Loop,
		Executor:    deps.Executor,
		CancelGrace: cfg.CancelGrace,
		Metrics:     deps.Metrics,
		Env:         deps.Env,
		Now:         deps.Now,
	}, c)
	c.negotiator = NewNegotiator(NegotiatorConfig{
		Loop:      deps.Loop,
		Host:      deps.Host,
		Surface:   deps.Surface,
		Logger:    c.log,
		MinHeight: cfg.MinHeight,
		MaxHeight: cfg.MaxHeight,
		OnApplied: c.heightApplied,
	})
	c.queue.Observe(c.runEvent)
	return c, nil
}

// ID returns the window id.
func (c *Controller) ID() schema.WindowID {
	return c.id
}

// Activate binds the controller to a window. It resets the entry field and
// keeps the run history.
func (c *Controller) Activate(ctx context.Context, req schema.ActivateRequest) error {
	dir := strings.TrimSpace(req.WorkingDir)
	if dir == "" {
		return schema.ErrInvalidWorkingDir
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	c.active = true
	c.workingDir = dir
	c.selected = append([]string(nil), req.Selection...)
	c.frame = req.Frame
	if req.Frame.Height > 0 {
		c.negotiator.Reset(req.Frame.Height)
	}
	c.setCommand(nil, 0)
	logx.WithWorkdir(c.log, dir).Info("window activated", "selection", len(c.selected))
	c.renegotiate()
	return nil
}

// Deactivate releases the window. The outstanding run keeps running unless
// the controller is configured to cancel it.
func (c *Controller) Deactivate(ctx context.Context) error {
	if !c.active {
		return nil
	}
	c.active = false
	c.clearCandidates()
	if c.cfg.CancelOnDeactivate && c.dispatcher.Cancel() {
		c.log.Info("window deactivated, cancelling run", "run", c.dispatcher.Current())
		return nil
	}
	c.log.Info("window deactivated", "outstanding", c.dispatcher.Outstanding())
	return nil
}

// Active reports whether the controller is bound to a window.
func (c *Controller) Active() bool {
	return c.active
}

// WorkingDir returns the bound working directory.
func (c *Controller) WorkingDir() string {
	return c.workingDir
}

// SetCommand replaces the entry field. cursor counts runes and is clamped.
func (c *Controller) SetCommand(text string, cursor int) {
	c.setCommand([]rune(text), cursor)
}

// Command returns the entry field text and cursor.
func (c *Controller) Command() (string, int) {
	return string(c.command), c.cursor
}

// ExecuteCommand submits the entry field. It is a no-op returning
// schema.ErrEmptyCommand or schema.ErrRunOutstanding when the text is blank
// or a run is executing. A working directory that cannot be used yields a
// failed run; no process is started.
func (c *Controller) ExecuteCommand(ctx context.Context) (schema.RunID, error) {
	if !c.active {
		return "", schema.ErrNotActive
	}
	command := strings.TrimSpace(string(c.command))
	if command == "" {
		return "", schema.ErrEmptyCommand
	}
	if c.dispatcher.Outstanding() {
		return "", schema.ErrRunOutstanding
	}
	id := newRunID()
	log := logx.WithRun(c.log, id)
	if !c.cfg.DisableAuditLogging {
		logx.WithWorkdir(log, c.workingDir).Debug("command audit", "command", command)
	}
	c.queue.Append(id, command, c.workingDir)
	c.history.Append(command)
	c.selectedID = ""
	c.setCommand(nil, 0)

	runCtx := logx.ContextWithWindowLogger(ctx, c.log, c.id)
	if err := c.dispatcher.Start(runCtx, id, command, c.workingDir); err != nil {
		log.Warn("dispatch rejected", "err", err)
		c.queue.Finish(id, schema.RunFailed, nil, c.now(), schema.OutputChunk{Stream: schema.StreamSystem, Text: err.Error()})
		c.renegotiate()
		return id, nil
	}
	c.queue.Start(id, c.now())
	log.Info("dispatch start")
	c.renegotiate()
	return id, nil
}

// ExecuteCommandInTerminal opens the entry field in the external terminal.
// No run is recorded.
func (c *Controller) ExecuteCommandInTerminal(ctx context.Context) error {
	if !c.active {
		return schema.ErrNotActive
	}
	if c.launcher == nil {
		return schema.ErrLauncherUnavailable
	}
	command := strings.TrimSpace(string(c.command))
	if command == "" {
		return schema.ErrEmptyCommand
	}
	if err := c.launcher.Launch(ctx, command, c.workingDir); err != nil {
		c.log.Warn("terminal launch failed", "err", err)
		return err
	}
	if !c.cfg.DisableAuditLogging {
		c.log.Debug("command audit", "command", command, "terminal", true)
	}
	c.history.Append(command)
	c.setCommand(nil, 0)
	return nil
}

// CancelCurrentCommand requests cancellation of the outstanding run. The run
// becomes cancelled once the dispatcher confirms the process exit.
func (c *Controller) CancelCurrentCommand(ctx context.Context) error {
	id := c.dispatcher.Current()
	if !c.dispatcher.Cancel() {
		return schema.ErrRunNotFound
	}
	logx.WithRun(c.log, id).Info("dispatch cancel requested")
	return nil
}

// InsertSelection inserts the selected paths relative to the working
// directory at the cursor.
func (c *Controller) InsertSelection() error {
	return c.insertSelection(false)
}

// InsertSelectionFullPaths inserts the selected absolute paths at the cursor.
func (c *Controller) InsertSelectionFullPaths() error {
	return c.insertSelection(true)
}

func (c *Controller) insertSelection(full bool) error {
	paths := c.selectedPaths()
	if len(paths) == 0 {
		return schema.ErrNoSelection
	}
	words := make([]string, 0, len(paths))
	for _, p := range paths {
		words = append(words, QuoteArg(c.displayPath(p, full)))
	}
	c.insertText(strings.Join(words, " "))
	return nil
}

func (c *Controller) selectedPaths() []string {
	if c.selection != nil {
		if paths := c.selection.SelectedPaths(); len(paths) > 0 {
			return paths
		}
	}
	return append([]string(nil), c.selected...)
}

func (c *Controller) displayPath(p string, full bool) string {
	abs := p
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(c.workingDir, abs)
	}
	abs = filepath.Clean(abs)
	if full || c.workingDir == "" {
		return abs
	}
	rel, err := filepath.Rel(c.workingDir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return abs
	}
	return rel
}

// insertText inserts text at the cursor, separated from neighbouring words
// by a space.
func (c *Controller) insertText(text string) {
	insert := []rune(text)
	if c.cursor > 0 && !isSpace(c.command[c.cursor-1]) {
		insert = append([]rune{' '}, insert...)
	}
	if c.cursor < len(c.command) && !isSpace(c.command[c.cursor]) {
		insert = append(insert, ' ')
	}
	next := make([]rune, 0, len(c.command)+len(insert))
	next = append(next, c.command[:c.cursor]...)
	next = append(next, insert...)
	next = append(next, c.command[c.cursor:]...)
	c.setCommand(next, c.cursor+len(insert))
}

// PullCommandFromResults copies the selected run's command, or the most
// recent one, into the entry field. It is a no-op on an empty queue.
func (c *Controller) PullCommandFromResults() error {
	var (
		run schema.RunSnapshot
		ok  bool
	)
	if c.selectedID != "" {
		run, ok = c.queue.Get(c.selectedID)
	}
	if !ok {
		run, ok = c.queue.Latest()
	}
	if !ok {
		return schema.ErrNoRuns
	}
	c.SetCommand(run.Command, len([]rune(run.Command)))
	return nil
}

// CopyResultsToClipboard renders every run as plain text and writes it to
// the clipboard.
func (c *Controller) CopyResultsToClipboard(ctx context.Context) error {
	if c.clipboard == nil {
		return schema.ErrClipboardUnavailable
	}
	runs := c.queue.Snapshot()
	if len(runs) == 0 {
		return schema.ErrNoRuns
	}
	text := c.renderer.PlainText(runs)
	if err := c.clipboard.WriteText(ctx, text); err != nil {
		c.log.Warn("clipboard write failed", "err", err)
		return err
	}
	c.log.Debug("clipboard write", "runs", len(runs), "bytes", len(text))
	return nil
}

// CompletionsForPartialWord returns candidates for partial in the working
// directory and the default selection index.
func (c *Controller) CompletionsForPartialWord(partial string, isCommand bool) ([]schema.Candidate, int) {
	if c.completer == nil {
		return nil, schema.NoSelection
	}
	res := c.completer.Complete(schema.CompletionRequest{
		Partial:    partial,
		IsCommand:  isCommand,
		WorkingDir: c.workingDir,
	})
	if len(res.Candidates) == 0 {
		return nil, schema.NoSelection
	}
	return res.Candidates, res.Selected
}

// CompleteAtCursor computes candidates for the word left of the cursor and
// keeps them for ApplyCompletion.
func (c *Controller) CompleteAtCursor() ([]schema.Candidate, int) {
	span := wordAtCursor(c.command, c.cursor)
	candidates, selected := c.CompletionsForPartialWord(span.partial, span.isCommand)
	c.candidates = candidates
	c.candidateIndex = selected
	c.candidateSpan = span
	return append([]schema.Candidate(nil), candidates...), selected
}

// Complete completes the word left of the cursor: a single candidate is
// applied, several extend the word to their common prefix and stay listed.
func (c *Controller) Complete() error {
	candidates, _ := c.CompleteAtCursor()
	switch len(candidates) {
	case 0:
		return schema.ErrNoSelection
	case 1:
		return c.ApplyCompletion(0)
	}
	prefix := commonPrefix(candidates)
	if len([]rune(prefix)) > len([]rune(c.candidateSpan.partial)) {
		span := c.candidateSpan
		c.replaceSpan(span, prefix)
		c.candidateSpan = wordSpan{start: span.start, end: span.start + len([]rune(prefix)), partial: prefix, isCommand: span.isCommand}
	}
	return nil
}

// SelectCandidate moves the candidate selection by delta, wrapping around.
func (c *Controller) SelectCandidate(delta int) int {
	if len(c.candidates) == 0 {
		return schema.NoSelection
	}
	n := len(c.candidates)
	c.candidateIndex = ((c.candidateIndex+delta)%n + n) % n
	return c.candidateIndex
}

// ApplyCompletion replaces the completed word with candidate index. Final
// candidates are followed by a space; directories are not.
func (c *Controller) ApplyCompletion(index int) error {
	if index < 0 || index >= len(c.candidates) {
		return schema.ErrNoSelection
	}
	cand := c.candidates[index]
	text := cand.Text
	if !cand.IsCommand {
		text = quoteCandidate(text)
	}
	if !strings.HasSuffix(text, "/") {
		text += " "
	}
	c.replaceSpan(c.candidateSpan, text)
	c.clearCandidates()
	return nil
}

// quoteCandidate quotes a path candidate while keeping a leading "~/" and a
// trailing "/" outside the quotes.
func quoteCandidate(text string) string {
	if text == "~/" || text == "/" {
		return text
	}
	prefix, suffix := "", ""
	if strings.HasPrefix(text, "~/") {
		prefix, text = "~/", text[2:]
	}
	if strings.HasSuffix(text, "/") {
		text, suffix = text[:len(text)-1], "/"
	}
	return prefix + QuoteArg(text) + suffix
}

func (c *Controller) replaceSpan(span wordSpan, text string) {
	start, end := span.start, span.end
	if start > len(c.command) {
		start = len(c.command)
	}
	if end > len(c.command) || end < start {
		end = start
	}
	insert := []rune(text)
	next := make([]rune, 0, len(c.command)-(end-start)+len(insert))
	next = append(next, c.command[:start]...)
	next = append(next, insert...)
	next = append(next, c.command[end:]...)
	candidates, index, cspan := c.candidates, c.candidateIndex, c.candidateSpan
	c.setCommand(next, start+len(insert))
	c.candidates, c.candidateIndex, c.candidateSpan = candidates, index, cspan
}

func (c *Controller) clearCandidates() {
	c.candidates = nil
	c.candidateIndex = schema.NoSelection
	c.candidateSpan = wordSpan{}
}

// HistoryPrev shows the previous history entry.
func (c *Controller) HistoryPrev() bool {
	entry, ok := c.history.Prev(string(c.command))
	if !ok {
		return false
	}
	c.SetCommand(entry, len([]rune(entry)))
	c.log.Trace("history prev")
	return true
}

// HistoryNext shows the next history entry or the saved draft.
func (c *Controller) HistoryNext() bool {
	entry, ok := c.history.Next()
	if !ok {
		return false
	}
	c.SetCommand(entry, len([]rune(entry)))
	c.log.Trace("history next")
	return true
}

// History returns the submitted commands, oldest first.
func (c *Controller) History() []string {
	return c.history.Entries()
}

// LoadHistory seeds the command history with saved entries, oldest first.
func (c *Controller) LoadHistory(entries []string) {
	c.history.Load(entries)
}

// SelectRun marks a run as selected; an empty id clears the selection.
func (c *Controller) SelectRun(id schema.RunID) error {
	if id == "" {
		c.selectedID = ""
		return nil
	}
	if _, ok := c.queue.Get(id); !ok {
		return schema.ErrRunNotFound
	}
	c.selectedID = id
	return nil
}

// ClearResults removes every finished run and returns how many were removed.
// The outstanding run is kept.
func (c *Controller) ClearResults() int {
	removed := c.queue.Clear()
	if _, ok := c.queue.Get(c.selectedID); !ok {
		c.selectedID = ""
	}
	c.renegotiate()
	return removed
}

// Run returns a snapshot of one run.
func (c *Controller) Run(id schema.RunID) (schema.RunSnapshot, bool) {
	return c.queue.Get(id)
}

// Runs returns every retained run in submission order.
func (c *Controller) Runs() []schema.RunSnapshot {
	return c.queue.Snapshot()
}

// Snapshot returns a read-only view of the controller.
func (c *Controller) Snapshot() schema.WindowSnapshot {
	return schema.WindowSnapshot{
		ID:                c.id,
		Active:            c.active,
		WorkingDir:        c.workingDir,
		Selection:         c.selectedPaths(),
		Command:           string(c.command),
		Cursor:            c.cursor,
		CurrentRun:        c.dispatcher.Current(),
		SelectedRun:       c.selectedID,
		Runs:              c.queue.Snapshot(),
		Height:            c.negotiator.Height(),
		Candidates:        append([]schema.Candidate(nil), c.candidates...),
		SelectedCandidate: c.candidateIndex,
	}
}

// SetViewportWidth updates the wrapping width of the default results layout.
func (c *Controller) SetViewportWidth(width int) {
	if layout, ok := c.surface.(*ResultsLayout); ok && layout.Width() != width {
		layout.SetWidth(width)
		c.renegotiate()
	}
}

// RequestWindowHeightChange asks the host for a height change of delta.
// completion fires once after the change was applied.
func (c *Controller) RequestWindowHeightChange(delta int, completion func()) {
	c.negotiator.RequestHeightChange(delta, completion)
}

// Close cancels the outstanding run.
func (c *Controller) Close() {
	if c.dispatcher.Cancel() {
		c.log.Info("controller closed, cancelling run", "run", c.dispatcher.Current())
	}
}

func (c *Controller) runOutput(id schema.RunID, chunks []schema.OutputChunk) {
	if c.queue.AppendOutput(id, chunks...) {
		c.renegotiate()
	}
}

func (c *Controller) runFinished(id schema.RunID, status schema.RunStatus, exitCode *int, diag []schema.OutputChunk) {
	if !c.queue.Finish(id, status, exitCode, c.now(), diag...) {
		return
	}
	c.renegotiate()
}

func (c *Controller) runEvent(event schema.RunEvent) {
	if c.sink == nil {
		return
	}
	event.WindowID = c.id
	c.sink.OnRunEvent(event)
}

func (c *Controller) heightApplied(height, delta int) {
	if c.sink == nil {
		return
	}
	c.sink.OnHeightEvent(schema.HeightEvent{WindowID: c.id, Height: height, Delta: delta})
}

func (c *Controller) setCommand(text []rune, cursor int) {
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(text) {
		cursor = len(text)
	}
	c.command = text
	c.cursor = cursor
	c.clearCandidates()
	if c.sink != nil {
		c.sink.OnCommandEvent(schema.CommandEvent{WindowID: c.id, Command: string(text), Cursor: cursor})
	}
}

// renegotiate schedules one height request that moves the window towards
// the height the results want. Calls within a loop turn coalesce.
func (c *Controller) renegotiate() {
	if c.renegotiatePending {
		return
	}
	c.renegotiatePending = true
	c.loop.Post(func() {
		c.renegotiatePending = false
		if !c.active {
			return
		}
		desired := c.negotiator.Clamp(c.surface.DesiredHeight(c.queue.Snapshot()))
		delta := desired - c.negotiator.ProjectedHeight()
		if delta != 0 {
			c.negotiator.RequestHeightChange(delta, nil)
		}
	})
}

func commonPrefix(candidates []schema.Candidate) string {
	if len(candidates) == 0 {
		return ""
	}
	prefix := []rune(candidates[0].Text)
	for _, cand := range candidates[1:] {
		text := []rune(cand.Text)
		n := 0
		for n < len(prefix) && n < len(text) && prefix[n] == text[n] {
			n++
		}
		prefix = prefix[:n]
	}
	return string(prefix)
}
