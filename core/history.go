package core

import "strings"

const defaultHistoryMax = 200

// historyBuffer keeps submitted commands. index is -1 while not navigating.
type historyBuffer struct {
	entries []string
	max     int
	index   int
	draft   string
}

func newHistory(max int) *historyBuffer {
	if max <= 0 {
		max = defaultHistoryMax
	}
	return &historyBuffer{max: max, index: -1}
}

// Append records a submitted command and ends navigation. Blank entries and
// repeats of the last entry are skipped.
func (h *historyBuffer) Append(entry string) bool {
	if h == nil {
		return false
	}
	h.reset()
	if strings.TrimSpace(entry) == "" {
		return false
	}
	if len(h.entries) > 0 && h.entries[len(h.entries)-1] == entry {
		return false
	}
	h.entries = append(h.entries, entry)
	if len(h.entries) > h.max {
		h.entries = h.entries[len(h.entries)-h.max:]
	}
	return true
}

// Load appends previously saved entries, oldest first, with the same rules
// as Append.
func (h *historyBuffer) Load(entries []string) {
	for _, entry := range entries {
		h.Append(entry)
	}
}

func (h *historyBuffer) Entries() []string {
	if h == nil {
		return nil
	}
	return append([]string(nil), h.entries...)
}

// Prev steps back from current and returns the entry to show.
func (h *historyBuffer) Prev(current string) (string, bool) {
	if h == nil || len(h.entries) == 0 {
		return "", false
	}
	switch {
	case h.index == -1:
		h.draft = current
		h.index = len(h.entries) - 1
	case h.index > 0:
		h.index--
	default:
		return "", false
	}
	return h.entries[h.index], true
}

// Next steps forward. Stepping past the newest entry restores the draft that
// was in the entry field when navigation started.
func (h *historyBuffer) Next() (string, bool) {
	if h == nil || h.index == -1 {
		return "", false
	}
	if h.index < len(h.entries)-1 {
		h.index++
		return h.entries[h.index], true
	}
	draft := h.draft
	h.reset()
	return draft, true
}

func (h *historyBuffer) reset() {
	h.index = -1
	h.draft = ""
}
