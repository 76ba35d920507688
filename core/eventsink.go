package core

import "pkt.systems/dropterm/schema"

// EventSink receives run, height and entry field events from a controller.
// Events are delivered on the UI loop and must not block.
type EventSink interface {
	OnRunEvent(event schema.RunEvent)
	OnHeightEvent(event schema.HeightEvent)
	OnCommandEvent(event schema.CommandEvent)
}
