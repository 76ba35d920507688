package core

import "pkt.systems/dropterm/schema"

// Renderer formats runs for display. RenderRun lines may carry a leading
// schema marker describing their origin; PlainText carries none.
type Renderer interface {
	RenderRun(run schema.RunSnapshot) []string
	PlainText(runs []schema.RunSnapshot) string
}
