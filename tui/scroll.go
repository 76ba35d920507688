package tui

// scrollState is the visible slice of the results rows.
type scrollState struct {
	Lines        []string
	TotalLines   int
	ScrollOffset int
	AtBottom     bool
}

// scrollView stores the rendered results rows and the scroll position.
// offset is the number of rows from the bottom; 0 follows new output.
type scrollView struct {
	lines  []string
	offset int
}

// SetLines replaces the rows. When scrolled up, the offset grows with the
// rows added below so the visible rows stay put.
func (s *scrollView) SetLines(lines []string) {
	grown := len(lines) - len(s.lines)
	s.lines = lines
	if s.offset > 0 && grown > 0 {
		s.offset += grown
	}
	if s.offset > len(s.lines) {
		s.offset = len(s.lines)
	}
	if s.offset < 0 {
		s.offset = 0
	}
}

// ResetScroll returns the view to the bottom.
func (s *scrollView) ResetScroll() {
	s.offset = 0
}

// Scroll moves the offset by delta. Positive delta scrolls up towards older
// rows. limit is the viewport height.
func (s *scrollView) Scroll(delta, limit int) {
	s.offset = clampScroll(s.offset+delta, len(s.lines), limit)
}

// Snapshot returns the rows visible in a viewport of limit rows.
func (s *scrollView) Snapshot(limit int) scrollState {
	total := len(s.lines)
	if limit <= 0 || limit > total {
		limit = total
	}
	if max := maxScroll(total, limit); s.offset > max {
		s.offset = max
	}
	end := total - s.offset
	if end < 0 {
		end = 0
	}
	start := end - limit
	if start < 0 {
		start = 0
	}
	lines := make([]string, end-start)
	copy(lines, s.lines[start:end])
	return scrollState{
		Lines:        lines,
		TotalLines:   total,
		ScrollOffset: s.offset,
		AtBottom:     s.offset == 0,
	}
}

func maxScroll(total, limit int) int {
	if total <= 0 || limit <= 0 || total <= limit {
		return 0
	}
	return total - limit
}

func clampScroll(offset, total, limit int) int {
	max := maxScroll(total, limit)
	if offset < 0 {
		return 0
	}
	if offset > max {
		return max
	}
	return offset
}
