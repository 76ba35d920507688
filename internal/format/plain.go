package format

import (
	"fmt"
	"strings"
	"time"

	"pkt.systems/dropterm/schema"
)

// PlainRenderer formats runs as plain text lines.
type PlainRenderer struct {
	// Prompt prefixes the command echo line.
	Prompt string
}

// NewPlainRenderer returns a default plain-text renderer.
func NewPlainRenderer() *PlainRenderer {
	return &PlainRenderer{Prompt: "$ "}
}

// RenderRun converts a run into marked display lines: the command echo,
// the output and a footer once the run finished.
func (p *PlainRenderer) RenderRun(run schema.RunSnapshot) []string {
	lines := make([]string, 0, len(run.Output)+3)
	lines = append(lines, schema.CommandMarker+p.prompt()+run.Command)
	if run.Truncated > 0 {
		lines = append(lines, schema.SystemMarker+fmt.Sprintf("... %d earlier lines truncated", run.Truncated))
	}
	for _, chunk := range run.Output {
		lines = append(lines, markLines(markerFor(chunk.Stream), splitLines(chunk.Text))...)
	}
	if footer := footerLine(run); footer != "" {
		lines = append(lines, schema.FooterMarker+footer)
	}
	return lines
}

// PlainText renders runs as unmarked text, one line per row.
func (p *PlainRenderer) PlainText(runs []schema.RunSnapshot) string {
	var b strings.Builder
	for i, run := range runs {
		if i > 0 {
			b.WriteByte('\n')
		}
		for _, line := range p.RenderRun(run) {
			b.WriteString(schema.StripMarker(line))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (p *PlainRenderer) prompt() string {
	if p == nil {
		return "$ "
	}
	return p.Prompt
}

func markerFor(stream schema.StreamKind) string {
	switch stream {
	case schema.StreamStderr:
		return schema.StderrMarker
	case schema.StreamSystem:
		return schema.SystemMarker
	default:
		return ""
	}
}

func footerLine(run schema.RunSnapshot) string {
	duration := FormatDuration(run.Duration())
	switch run.Status {
	case schema.RunCompleted, schema.RunFailed:
		if run.ExitCode != nil {
			return fmt.Sprintf("--- command finished in %s (exit %d) ---", duration, *run.ExitCode)
		}
		return fmt.Sprintf("--- command failed after %s ---", duration)
	case schema.RunCancelled:
		return fmt.Sprintf("--- command cancelled after %s ---", duration)
	default:
		return ""
	}
}

// FormatDuration renders a duration the way run footers show it.
func FormatDuration(duration time.Duration) string {
	if duration < time.Second {
		return fmt.Sprintf("%dms", duration.Milliseconds())
	}
	seconds := duration.Seconds()
	if seconds < 10 {
		return fmt.Sprintf("%.2fs", seconds)
	}
	return fmt.Sprintf("%.1fs", seconds)
}

func splitLines(text string) []string {
	return strings.Split(text, "\n")
}

func markLines(marker string, lines []string) []string {
	if marker == "" || len(lines) == 0 {
		return lines
	}
	marked := make([]string, 0, len(lines))
	for _, line := range lines {
		marked = append(marked, marker+line)
	}
	return marked
}
