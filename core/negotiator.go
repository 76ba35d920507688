package core

import "pkt.systems/pslog"

// WindowHost owns the real window. ResizeBy applies a signed height delta
// and calls done once the change is in effect; done may be called from any
// goroutine.
type WindowHost interface {
	MaxHeight() int
	ResizeBy(delta int, done func())
}

// heightBatch collects the requests that share one resize.
type heightBatch struct {
	delta       int
	completions []func()
}

// Negotiator coalesces window height requests. Requests made before the
// scheduled flush share one resize; requests made while a resize is at the
// host share the next one. Every method must be called from the UI loop.
type Negotiator struct {
	loop      Loop
	host      WindowHost
	surface   ResultsSurface
	log       pslog.Logger
	minHeight int
	maxHeight int
	height    int
	pending   *heightBatch
	scheduled bool
	inFlight  *heightBatch
	onApplied func(height, delta int)
}

// NegotiatorConfig configures a Negotiator. MinHeight and MaxHeight narrow
// the range reported by the surface and host; zero leaves it unchanged.
type NegotiatorConfig struct {
	Loop      Loop
	Host      WindowHost
	Surface   ResultsSurface
	Logger    pslog.Logger
	Height    int
	MinHeight int
	MaxHeight int
	OnApplied func(height, delta int)
}

// NewNegotiator constructs a negotiator starting at cfg.Height.
func NewNegotiator(cfg NegotiatorConfig) *Negotiator {
	return &Negotiator{
		loop:      cfg.Loop,
		host:      cfg.Host,
		surface:   cfg.Surface,
		log:       cfg.Logger,
		minHeight: cfg.MinHeight,
		maxHeight: cfg.MaxHeight,
		height:    cfg.Height,
		onApplied: cfg.OnApplied,
	}
}

// Height returns the last applied height.
func (n *Negotiator) Height() int {
	return n.height
}

// ProjectedHeight returns the height once every pending request applied.
func (n *Negotiator) ProjectedHeight() int {
	h := n.height
	if n.inFlight != nil {
		h = n.Clamp(h + n.inFlight.delta)
	}
	if n.pending != nil {
		h = n.Clamp(h + n.pending.delta)
	}
	return h
}

// Clamp bounds h to the current minimum and maximum. The minimum wins when
// the range is empty.
func (n *Negotiator) Clamp(h int) int {
	lo, hi := n.bounds()
	if hi > 0 && h > hi {
		h = hi
	}
	if h < lo {
		h = lo
	}
	return h
}

// Reset sets the applied height without resizing, e.g. after the host window
// was recreated.
func (n *Negotiator) Reset(height int) {
	n.height = height
}

// RequestHeightChange asks for a height change of delta. completion, when
// set, fires exactly once after the resize that included this request was
// applied.
func (n *Negotiator) RequestHeightChange(delta int, completion func()) {
	if n.pending == nil {
		n.pending = &heightBatch{}
	}
	n.pending.delta += delta
	if completion != nil {
		n.pending.completions = append(n.pending.completions, completion)
	}
	n.schedule()
}

func (n *Negotiator) schedule() {
	if n.scheduled || n.inFlight != nil || n.pending == nil {
		return
	}
	n.scheduled = true
	n.loop.Post(n.flush)
}

func (n *Negotiator) flush() {
	n.scheduled = false
	if n.inFlight != nil || n.pending == nil {
		return
	}
	b := n.pending
	n.pending = nil
	target := n.Clamp(n.height + b.delta)
	delta := target - n.height
	if delta == 0 || n.host == nil {
		n.height = target
		n.fire(b)
		n.schedule()
		return
	}
	b.delta = delta
	n.inFlight = b
	if n.log != nil {
		n.log.Debug("negotiator resize requested", "delta", delta, "target", target)
	}
	n.host.ResizeBy(delta, func() {
		n.loop.Post(func() { n.applied(b) })
	})
}

func (n *Negotiator) applied(b *heightBatch) {
	if n.inFlight != b {
		return
	}
	n.inFlight = nil
	n.height += b.delta
	if n.log != nil {
		n.log.Debug("negotiator resize applied", "delta", b.delta, "height", n.height)
	}
	if n.onApplied != nil {
		n.onApplied(n.height, b.delta)
	}
	n.schedule()
	n.fire(b)
}

func (n *Negotiator) fire(b *heightBatch) {
	completions := b.completions
	b.completions = nil
	for _, fn := range completions {
		fn()
	}
}

func (n *Negotiator) bounds() (int, int) {
	lo := n.minHeight
	if n.surface != nil {
		if m := n.surface.MinContentHeight(); m > lo {
			lo = m
		}
	}
	hi := n.maxHeight
	if n.host != nil {
		if m := n.host.MaxHeight(); m > 0 && (hi <= 0 || m < hi) {
			hi = m
		}
	}
	if lo < 0 {
		lo = 0
	}
	return lo, hi
}
