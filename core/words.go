package core

import "strings"

// shellSafe lists bytes that never need quoting in a shell word.
const shellSafe = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_@%+=:,./-"

// QuoteArg quotes value for a POSIX shell when it contains anything outside
// the safe set.
func QuoteArg(value string) string {
	if value == "" {
		return "''"
	}
	safe := true
	for i := 0; i < len(value); i++ {
		if strings.IndexByte(shellSafe, value[i]) < 0 {
			safe = false
			break
		}
	}
	if safe {
		return value
	}
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}

// wordSpan locates the word ending at cursor in text.
type wordSpan struct {
	start     int
	end       int
	partial   string
	isCommand bool
}

// wordAtCursor returns the partial word left of cursor. The word is in
// command position when it is the first token or the first token after a
// pipe, list separator or subshell opener.
func wordAtCursor(text []rune, cursor int) wordSpan {
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(text) {
		cursor = len(text)
	}
	start := cursor
	for start > 0 && !isWordBreak(text[start-1]) {
		start--
	}
	i := start
	for i > 0 && isSpace(text[i-1]) {
		i--
	}
	isCommand := i == 0 || isCommandSeparator(text[i-1])
	return wordSpan{
		start:     start,
		end:       cursor,
		partial:   string(text[start:cursor]),
		isCommand: isCommand,
	}
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n'
}

func isCommandSeparator(r rune) bool {
	switch r {
	case '|', ';', '&', '(':
		return true
	}
	return false
}

func isWordBreak(r rune) bool {
	if isSpace(r) || isCommandSeparator(r) {
		return true
	}
	switch r {
	case ')', '<', '>':
		return true
	}
	return false
}
