package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"pkt.systems/dropterm/core"
	"pkt.systems/dropterm/internal/eventbus"
	"pkt.systems/dropterm/internal/format"
	"pkt.systems/dropterm/internal/logx"
	"pkt.systems/dropterm/schema"
	"pkt.systems/pslog"
)

// ChromeRows is the number of rows outside the results: one status row and
// the entry field.
const ChromeRows = 2

const defaultWidth = 80

// Config wires the terminal host to a controller.
type Config struct {
	Loop       *core.SerialLoop
	Controller *core.Controller
	Events     <-chan eventbus.Event
	Host       *Host
	Renderer   core.Renderer
	Prompt     string
	Input      io.Reader
	Output     io.Writer
	Logger     pslog.Logger
}

// busMsg signals that controller state changed.
type busMsg struct {
	last  eventbus.Event
	count int
}

type eventsClosedMsg struct{}

type model struct {
	ctx      context.Context
	loop     *core.SerialLoop
	ctrl     *core.Controller
	events   <-chan eventbus.Event
	host     *Host
	renderer core.Renderer
	log      pslog.Logger
	th       theme
	prompt   string

	width      int
	termHeight int
	height     int

	editor   lineEditor
	scroll   scrollView
	snap     schema.WindowSnapshot
	notice   string
	quitting bool
}

func newModel(ctx context.Context, cfg Config) model {
	if cfg.Renderer == nil {
		cfg.Renderer = format.NewPlainRenderer()
	}
	if cfg.Prompt == "" {
		cfg.Prompt = "$ "
	}
	if cfg.Logger == nil {
		cfg.Logger = pslog.Ctx(ctx)
	}
	if cfg.Controller != nil {
		cfg.Logger = logx.WithWindow(pslog.ContextWithLogger(ctx, cfg.Logger), cfg.Controller.ID())
	}
	m := model{
		ctx:      ctx,
		loop:     cfg.Loop,
		ctrl:     cfg.Controller,
		events:   cfg.Events,
		host:     cfg.Host,
		renderer: cfg.Renderer,
		log:      cfg.Logger,
		th:       defaultTheme(),
		prompt:   cfg.Prompt,
		width:    defaultWidth,
		height:   ChromeRows,
	}
	if cfg.Host != nil {
		m.termHeight = cfg.Host.MaxHeight()
	}
	m.refresh(true)
	if m.snap.Height > ChromeRows {
		m.height = m.snap.Height
	}
	return m
}

func (m model) Init() tea.Cmd {
	return waitForEvents(m.events)
}

// waitForEvents blocks for the next bus event and folds every event queued
// behind it into one message.
func waitForEvents(events <-chan eventbus.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		msg := busMsg{last: ev, count: 1}
		for {
			select {
			case next, ok := <-events:
				if !ok {
					return msg
				}
				msg.last = next
				msg.count++
			default:
				return msg
			}
		}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.termHeight = msg.Height
		if m.host != nil {
			m.host.SetMaxHeight(msg.Height)
		}
		m.do(func() { m.ctrl.SetViewportWidth(msg.Width) })
		m.refresh(false)
		return m, nil
	case resizeMsg:
		m.height = m.clampHeight(m.height + msg.delta)
		if msg.done != nil {
			msg.done()
		}
		return m, nil
	case busMsg:
		m.refresh(false)
		return m, waitForEvents(m.events)
	case eventsClosedMsg:
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	if k.Type == tea.KeyRunes && !k.Alt {
		m.editor.Insert(k.Runes...)
		m.syncCommand()
		return m, nil
	}
	switch k.String() {
	case "ctrl+c":
		if m.snap.CurrentRun == "" {
			return m.quit()
		}
		m.perform(core.ActionCancel)
	case "esc":
		if len(m.snap.Candidates) == 0 {
			return m.quit()
		}
		m.syncCommand()
	case "enter":
		if m.snap.SelectedCandidate >= 0 && len(m.snap.Candidates) > 0 {
			index := m.snap.SelectedCandidate
			m.call(func() error { return m.ctrl.ApplyCompletion(index) })
			break
		}
		m.scroll.ResetScroll()
		m.perform(core.ActionExecute)
	case "tab":
		if len(m.snap.Candidates) > 1 {
			m.do(func() { m.ctrl.SelectCandidate(1) })
			m.refresh(false)
			break
		}
		m.perform(core.ActionComplete)
	case "shift+tab":
		m.do(func() { m.ctrl.SelectCandidate(-1) })
		m.refresh(false)
	case "ctrl+t":
		m.perform(core.ActionExecuteInTerminal)
	case "ctrl+y":
		m.perform(core.ActionCopyResults)
	case "ctrl+p":
		m.perform(core.ActionPullCommand)
	case "ctrl+l":
		m.perform(core.ActionClearResults)
	case "ctrl+o":
		m.perform(core.ActionInsertSelection)
	case "ctrl+f":
		m.perform(core.ActionInsertSelectionFullPaths)
	case "up":
		m.perform(core.ActionHistoryPrev)
	case "down":
		m.perform(core.ActionHistoryNext)
	case "pgup":
		m.scroll.Scroll(m.resultsRows(), m.resultsRows())
	case "pgdown":
		m.scroll.Scroll(-m.resultsRows(), m.resultsRows())
	default:
		if m.edit(k) {
			m.syncCommand()
		}
	}
	return m, nil
}

// edit applies an entry field key and reports whether the text or cursor
// changed.
func (m *model) edit(k tea.KeyMsg) bool {
	before, cursor := m.editor.String(), m.editor.Cursor()
	switch k.String() {
	case "left", "ctrl+b":
		m.editor.MoveLeft()
	case "right":
		m.editor.MoveRight()
	case "home", "ctrl+a":
		m.editor.MoveStart()
	case "end", "ctrl+e":
		m.editor.MoveEnd()
	case "alt+b", "ctrl+left":
		m.editor.MoveWordLeft()
	case "alt+f", "ctrl+right":
		m.editor.MoveWordRight()
	case "backspace":
		m.editor.Backspace()
	case "delete", "ctrl+d":
		m.editor.Delete()
	case "ctrl+w", "alt+backspace":
		m.editor.DeleteWordBackward()
	case "ctrl+u":
		m.editor.KillLineStart()
	case "ctrl+k":
		m.editor.KillLineEnd()
	default:
		if k.Type != tea.KeySpace {
			return false
		}
		m.editor.Insert(' ')
	}
	return m.editor.String() != before || m.editor.Cursor() != cursor
}

func (m model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	return m, tea.Quit
}

// perform runs a controller action and adopts the entry field it leaves.
func (m *model) perform(a core.Action) {
	m.call(func() error { return m.ctrl.Perform(m.ctx, a) })
}

func (m *model) call(fn func() error) {
	var err error
	if loopErr := m.do(func() { err = fn() }); loopErr != nil {
		err = loopErr
	}
	m.notice = ""
	if err != nil {
		m.notice = err.Error()
		m.log.Debug("tui action failed", "err", err)
	}
	m.refresh(true)
}

func (m *model) syncCommand() {
	text, cursor := m.editor.String(), m.editor.Cursor()
	m.do(func() { m.ctrl.SetCommand(text, cursor) })
	m.refresh(false)
}

func (m *model) do(fn func()) error {
	if m.loop == nil || m.ctrl == nil {
		return schema.ErrLoopStopped
	}
	err := m.loop.Do(m.ctx, fn)
	if err != nil && !errors.Is(err, context.Canceled) {
		m.log.Warn("tui loop call failed", "err", err)
	}
	return err
}

// refresh re-reads the controller snapshot and re-renders the results.
// adopt replaces the entry field with the controller's.
func (m *model) refresh(adopt bool) {
	var snap schema.WindowSnapshot
	if err := m.do(func() { snap = m.ctrl.Snapshot() }); err != nil {
		return
	}
	m.snap = snap
	if adopt {
		m.editor.Set(snap.Command, snap.Cursor)
	}
	var lines []string
	for _, run := range snap.Runs {
		lines = append(lines, m.renderer.RenderRun(run)...)
	}
	m.scroll.SetLines(renderResults(lines, m.width, m.th))
}

func (m model) clampHeight(h int) int {
	if m.termHeight > 0 && h > m.termHeight {
		h = m.termHeight
	}
	if h < ChromeRows {
		h = ChromeRows
	}
	return h
}

func (m model) resultsRows() int {
	return m.clampHeight(m.height) - ChromeRows
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	limit := m.resultsRows()
	rows := make([]string, 0, limit+ChromeRows)
	view := m.scroll.Snapshot(limit)
	if limit > 0 {
		rows = append(rows, view.Lines...)
	}
	for len(rows) < limit {
		rows = append(rows, "")
	}
	rows = append(rows, m.statusLine(view))
	rows = append(rows, renderEntry(m.prompt, []rune(m.editor.String()), m.editor.Cursor(), m.width, m.th))
	return strings.Join(rows, "\n")
}

func (m model) statusLine(view scrollState) string {
	if len(m.snap.Candidates) > 0 {
		return renderCandidates(m.snap.Candidates, m.snap.SelectedCandidate, m.width, m.th)
	}
	parts := []string{m.snap.WorkingDir}
	if m.snap.CurrentRun != "" {
		parts = append(parts, m.th.Running.Render("running"))
	}
	if !view.AtBottom {
		parts = append(parts, fmt.Sprintf("+%d rows below", view.ScrollOffset))
	}
	if m.notice != "" {
		parts = append(parts, m.th.Error.Render(m.notice))
	}
	return m.th.Status.Render(trimToWidth(parts[0], m.width/2)) + " " + strings.Join(parts[1:], " · ")
}
