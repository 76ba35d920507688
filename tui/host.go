package tui

import (
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

// resizeMsg asks the model to grow or shrink the window by delta rows.
type resizeMsg struct {
	delta int
	done  func()
}

// Host implements core.WindowHost for the terminal window. The window is
// the inline region drawn by the bubbletea program; its height is whatever
// the model renders.
type Host struct {
	maxHeight atomic.Int64

	mu      sync.Mutex
	send    func(tea.Msg)
	pending []resizeMsg
}

// NewHost constructs a host bounded by maxHeight rows. Zero leaves the
// height unbounded until the terminal size is known.
func NewHost(maxHeight int) *Host {
	h := &Host{}
	h.maxHeight.Store(int64(maxHeight))
	return h
}

// MaxHeight implements core.WindowHost.
func (h *Host) MaxHeight() int {
	return int(h.maxHeight.Load())
}

// SetMaxHeight records the terminal height.
func (h *Host) SetMaxHeight(rows int) {
	h.maxHeight.Store(int64(rows))
}

// ResizeBy implements core.WindowHost. Requests made before the program is
// attached are delivered once it is.
func (h *Host) ResizeBy(delta int, done func()) {
	msg := resizeMsg{delta: delta, done: done}
	h.mu.Lock()
	send := h.send
	if send == nil {
		h.pending = append(h.pending, msg)
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()
	go send(msg)
}

// attach routes resize requests to the running program.
func (h *Host) attach(send func(tea.Msg)) {
	h.mu.Lock()
	h.send = send
	pending := h.pending
	h.pending = nil
	h.mu.Unlock()
	for _, msg := range pending {
		go send(msg)
	}
}

// detach completes later resize requests immediately; nothing is drawn
// once the program exited.
func (h *Host) detach() {
	h.mu.Lock()
	h.send = func(msg tea.Msg) {
		if m, ok := msg.(resizeMsg); ok && m.done != nil {
			m.done()
		}
	}
	h.mu.Unlock()
}
