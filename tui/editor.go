package tui

// lineEditor is the entry field: a single line of runes with a cursor.
type lineEditor struct {
	buf    []rune
	cursor int
}

func (e *lineEditor) String() string {
	return string(e.buf)
}

func (e *lineEditor) Cursor() int {
	return e.cursor
}

func (e *lineEditor) Len() int {
	return len(e.buf)
}

func (e *lineEditor) Clear() {
	e.buf = nil
	e.cursor = 0
}

// Set replaces the text and clamps cursor into it.
func (e *lineEditor) Set(value string, cursor int) {
	e.buf = []rune(value)
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(e.buf) {
		cursor = len(e.buf)
	}
	e.cursor = cursor
}

func (e *lineEditor) Insert(runes ...rune) {
	if len(runes) == 0 {
		return
	}
	if e.cursor < 0 {
		e.cursor = 0
	}
	if e.cursor > len(e.buf) {
		e.cursor = len(e.buf)
	}
	next := make([]rune, 0, len(e.buf)+len(runes))
	next = append(next, e.buf[:e.cursor]...)
	next = append(next, runes...)
	next = append(next, e.buf[e.cursor:]...)
	e.buf = next
	e.cursor += len(runes)
}

func (e *lineEditor) Backspace() {
	if e.cursor <= 0 {
		return
	}
	e.buf = append(e.buf[:e.cursor-1], e.buf[e.cursor:]...)
	e.cursor--
}

func (e *lineEditor) Delete() {
	if e.cursor < 0 || e.cursor >= len(e.buf) {
		return
	}
	e.buf = append(e.buf[:e.cursor], e.buf[e.cursor+1:]...)
}

func (e *lineEditor) MoveLeft() {
	if e.cursor > 0 {
		e.cursor--
	}
}

func (e *lineEditor) MoveRight() {
	if e.cursor < len(e.buf) {
		e.cursor++
	}
}

func (e *lineEditor) MoveStart() {
	e.cursor = 0
}

func (e *lineEditor) MoveEnd() {
	e.cursor = len(e.buf)
}

func (e *lineEditor) MoveWordLeft() {
	e.cursor = e.wordStart()
}

func (e *lineEditor) MoveWordRight() {
	i := e.cursor
	for i < len(e.buf) && isSpace(e.buf[i]) {
		i++
	}
	for i < len(e.buf) && !isSpace(e.buf[i]) {
		i++
	}
	e.cursor = i
}

func (e *lineEditor) DeleteWordBackward() {
	start := e.wordStart()
	if start >= e.cursor {
		return
	}
	e.buf = append(e.buf[:start], e.buf[e.cursor:]...)
	e.cursor = start
}

func (e *lineEditor) KillLineStart() {
	if e.cursor <= 0 {
		return
	}
	e.buf = append([]rune(nil), e.buf[e.cursor:]...)
	e.cursor = 0
}

func (e *lineEditor) KillLineEnd() {
	if e.cursor >= len(e.buf) {
		return
	}
	e.buf = e.buf[:e.cursor]
}

func (e *lineEditor) wordStart() int {
	i := e.cursor
	for i > 0 && isSpace(e.buf[i-1]) {
		i--
	}
	for i > 0 && !isSpace(e.buf[i-1]) {
		i--
	}
	return i
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t'
}
