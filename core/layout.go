package core

import (
	"github.com/mattn/go-runewidth"

	"pkt.systems/dropterm/internal/format"
	"pkt.systems/dropterm/schema"
)

// ResultsSurface measures the results view.
type ResultsSurface interface {
	// MinContentHeight is the smallest height that keeps the entry field usable.
	MinContentHeight() int
	// DesiredHeight is the height that shows every rendered run line.
	DesiredHeight(runs []schema.RunSnapshot) int
}

// ResultsLayout is the default ResultsSurface. It renders runs, wraps each
// line at the viewport width and counts rows.
type ResultsLayout struct {
	renderer Renderer
	width    int
	// chrome is the number of rows taken by the entry field and borders.
	chrome int
}

// NewResultsLayout constructs a layout for a viewport of width columns with
// chrome rows reserved outside the results.
func NewResultsLayout(renderer Renderer, width, chrome int) *ResultsLayout {
	if chrome < 1 {
		chrome = 1
	}
	return &ResultsLayout{renderer: renderer, width: width, chrome: chrome}
}

// SetWidth updates the viewport width used for wrapping.
func (l *ResultsLayout) SetWidth(width int) {
	l.width = width
}

// Width returns the viewport width.
func (l *ResultsLayout) Width() int {
	return l.width
}

// MinContentHeight implements ResultsSurface.
func (l *ResultsLayout) MinContentHeight() int {
	return l.chrome
}

// DesiredHeight implements ResultsSurface.
func (l *ResultsLayout) DesiredHeight(runs []schema.RunSnapshot) int {
	rows := 0
	for _, run := range runs {
		for _, line := range l.lines(run) {
			rows += WrappedRows(schema.StripMarker(line), l.width)
		}
	}
	return rows + l.chrome
}

func (l *ResultsLayout) lines(run schema.RunSnapshot) []string {
	if l.renderer == nil {
		l.renderer = format.NewPlainRenderer()
	}
	return l.renderer.RenderRun(run)
}

// WrappedRows returns how many rows line occupies at width columns. An empty
// line takes one row; a non-positive width disables wrapping.
func WrappedRows(line string, width int) int {
	if width <= 0 {
		return 1
	}
	w := runewidth.StringWidth(line)
	if w == 0 {
		return 1
	}
	return (w + width - 1) / width
}
