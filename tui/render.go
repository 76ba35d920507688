package tui

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"pkt.systems/dropterm/schema"
)

type lineKind int

const (
	lineOutput lineKind = iota
	lineCommand
	lineStderr
	lineSystem
	lineFooter
)

type lineInfo struct {
	text string
	kind lineKind
}

func classifyLine(raw string) lineInfo {
	for _, m := range []struct {
		marker string
		kind   lineKind
	}{
		{schema.CommandMarker, lineCommand},
		{schema.StderrMarker, lineStderr},
		{schema.SystemMarker, lineSystem},
		{schema.FooterMarker, lineFooter},
	} {
		if strings.HasPrefix(raw, m.marker) {
			return lineInfo{text: strings.TrimPrefix(raw, m.marker), kind: m.kind}
		}
	}
	return lineInfo{text: raw, kind: lineOutput}
}

func (t theme) styleFor(kind lineKind) (lipgloss.Style, bool) {
	switch kind {
	case lineCommand:
		return t.Command, true
	case lineStderr:
		return t.Stderr, true
	case lineSystem:
		return t.System, true
	case lineFooter:
		return t.Footer, true
	}
	return lipgloss.Style{}, false
}

// renderLines turns one marked results line into styled rows of at most
// width columns.
func renderLines(raw string, width int, th theme) []string {
	info := classifyLine(raw)
	rows := wrapPlain(sanitizeOutputLine(info.text), width)
	style, ok := th.styleFor(info.kind)
	if !ok {
		return rows
	}
	for i, row := range rows {
		if row != "" {
			rows[i] = style.Render(row)
		}
	}
	return rows
}

// renderResults renders every run of the snapshot into styled rows.
func renderResults(lines []string, width int, th theme) []string {
	var out []string
	for _, raw := range lines {
		out = append(out, renderLines(raw, width, th)...)
	}
	return out
}

// wrapPlain breaks text into rows of at most width display columns. An
// empty text yields one empty row; a non-positive width disables wrapping.
func wrapPlain(text string, width int) []string {
	if width <= 0 || runewidth.StringWidth(text) <= width {
		return []string{text}
	}
	var (
		rows []string
		b    strings.Builder
		cols int
	)
	for _, r := range text {
		w := runewidth.RuneWidth(r)
		if cols+w > width && cols > 0 {
			rows = append(rows, b.String())
			b.Reset()
			cols = 0
		}
		b.WriteRune(r)
		cols += w
	}
	if b.Len() > 0 {
		rows = append(rows, b.String())
	}
	return rows
}

// sanitizeOutputLine drops escape sequences and control characters from
// process output and expands tabs.
func sanitizeOutputLine(text string) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(text); {
		ch := text[i]
		if ch == 0x1b {
			i = skipEscape(text, i+1)
			continue
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == utf8.RuneError && size == 1 {
			i++
			continue
		}
		switch {
		case r == '\t':
			b.WriteString("    ")
		case r < 0x20 || r == 0x7f:
		default:
			b.WriteRune(r)
		}
		i += size
	}
	return b.String()
}

func skipEscape(text string, i int) int {
	if i >= len(text) {
		return i
	}
	switch text[i] {
	case '[':
		return skipCSI(text, i+1)
	case ']':
		return skipOSC(text, i+1)
	default:
		return i + 1
	}
}

func skipCSI(text string, i int) int {
	for i < len(text) {
		b := text[i]
		if b >= 0x40 && b <= 0x7e {
			return i + 1
		}
		i++
	}
	return i
}

func skipOSC(text string, i int) int {
	for i < len(text) {
		switch text[i] {
		case 0x07:
			return i + 1
		case 0x1b:
			if i+1 < len(text) && text[i+1] == '\\' {
				return i + 2
			}
		}
		i++
	}
	return i
}

// renderEntry draws the prompt and entry field with the cursor, scrolled
// horizontally so the cursor stays visible.
func renderEntry(prompt string, text []rune, cursor, width int, th theme) string {
	avail := width - runewidth.StringWidth(prompt)
	if avail < 1 {
		avail = 1
	}
	start := 0
	for runewidth.StringWidth(string(text[start:cursor]))+1 > avail && start < cursor {
		start++
	}
	var b strings.Builder
	b.WriteString(th.Prompt.Render(prompt))
	cols := 0
	for i := start; i <= len(text); i++ {
		r := ' '
		if i < len(text) {
			r = text[i]
		}
		w := runewidth.RuneWidth(r)
		if cols+w > avail {
			break
		}
		if i == cursor {
			b.WriteString(th.Cursor.Render(string(r)))
		} else if i < len(text) {
			b.WriteRune(r)
		}
		cols += w
	}
	return b.String()
}

// renderCandidates lists completion candidates on one row, keeping the
// selected candidate in view.
func renderCandidates(candidates []schema.Candidate, selected, width int, th theme) string {
	if len(candidates) == 0 || width <= 0 {
		return ""
	}
	start := 0
	if selected > 0 {
		cols := 0
		for i := selected; i >= 0; i-- {
			cols += runewidth.StringWidth(candidates[i].Text) + 2
			if cols > width {
				start = i + 1
				break
			}
		}
	}
	var parts []string
	cols := 0
	for i := start; i < len(candidates); i++ {
		text := candidates[i].Text
		w := runewidth.StringWidth(text) + 2
		if cols+w > width {
			break
		}
		if i == selected {
			parts = append(parts, th.Selected.Render(text))
		} else {
			parts = append(parts, th.Candidate.Render(text))
		}
		cols += w
	}
	return strings.Join(parts, "  ")
}

func trimToWidth(value string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(value, width, "…")
}
