package eventbus

import (
	"context"
	"sync"

	"pkt.systems/dropterm/schema"
	"pkt.systems/pslog"
)

// EventType identifies the event payload.
type EventType string

const (
	// EventRun carries run queue mutations for a window.
	EventRun EventType = "run"
	// EventHeight carries applied window height changes.
	EventHeight EventType = "height"
	// EventCommand carries entry field updates.
	EventCommand EventType = "command"
)

// Event represents a UI-facing event emitted by a controller.
type Event struct {
	Type    EventType
	Run     schema.RunEvent
	Height  schema.HeightEvent
	Command schema.CommandEvent
}

// WindowID returns the window the event belongs to.
func (e Event) WindowID() schema.WindowID {
	switch e.Type {
	case EventRun:
		return e.Run.WindowID
	case EventHeight:
		return e.Height.WindowID
	case EventCommand:
		return e.Command.WindowID
	}
	return ""
}

// Bus fanouts events to per-window subscribers. Slow subscribers lose
// events instead of blocking the publisher, so subscribers should treat an
// event as a signal to re-read controller state.
type Bus struct {
	mu    sync.Mutex
	subs  map[schema.WindowID]map[chan Event]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[schema.WindowID]map[chan Event]struct{}),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber for the window and returns a channel + cancel.
func (b *Bus) Subscribe(windowID schema.WindowID) (<-chan Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan Event, b.depth)
	b.mu.Lock()
	windowSubs := b.subs[windowID]
	if windowSubs == nil {
		windowSubs = make(map[chan Event]struct{})
		b.subs[windowID] = windowSubs
	}
	windowSubs[ch] = struct{}{}
	count := len(windowSubs)
	b.mu.Unlock()
	if b.log != nil {
		b.log.With("window", windowID).Debug("eventbus subscribe", "subs", count)
	}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if subs := b.subs[windowID]; subs != nil {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.subs, windowID)
				}
			}
			close(ch)
			b.mu.Unlock()
			if b.log != nil {
				b.log.With("window", windowID).Debug("eventbus unsubscribe")
			}
		})
	}
}

// OnRunEvent publishes a run event.
func (b *Bus) OnRunEvent(event schema.RunEvent) {
	b.publish(event.WindowID, Event{Type: EventRun, Run: event})
}

// OnHeightEvent publishes a height event.
func (b *Bus) OnHeightEvent(event schema.HeightEvent) {
	b.publish(event.WindowID, Event{Type: EventHeight, Height: event})
}

// OnCommandEvent publishes an entry field event.
func (b *Bus) OnCommandEvent(event schema.CommandEvent) {
	b.publish(event.WindowID, Event{Type: EventCommand, Command: event})
}

func (b *Bus) publish(windowID schema.WindowID, event Event) {
	if b == nil {
		return
	}
	dropped := 0
	b.mu.Lock()
	for sub := range b.subs[windowID] {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	b.mu.Unlock()
	if dropped > 0 && b.log != nil {
		b.log.With("window", windowID).Trace("eventbus dropped", "count", dropped)
	}
}
