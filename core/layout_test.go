package core

import (
	"testing"

	"pkt.systems/dropterm/schema"
)

func TestWrappedRows(t *testing.T) {
	cases := []struct {
		line  string
		width int
		rows  int
	}{
		{"", 10, 1},
		{"abc", 10, 1},
		{"abcdefghij", 10, 1},
		{"abcdefghijk", 10, 2},
		{"日本語日本語", 4, 3},
		{"anything", 0, 1},
	}
	for _, tc := range cases {
		if got := WrappedRows(tc.line, tc.width); got != tc.rows {
			t.Fatalf("WrappedRows(%q, %d) = %d, want %d", tc.line, tc.width, got, tc.rows)
		}
	}
}

func TestResultsLayoutDesiredHeight(t *testing.T) {
	layout := NewResultsLayout(nil, 5, 2)
	if layout.MinContentHeight() != 2 {
		t.Fatalf("expected chrome rows as minimum, got %d", layout.MinContentHeight())
	}
	runs := []schema.RunSnapshot{{
		Command: "ls",
		Status:  schema.RunRunning,
		Output:  []schema.OutputChunk{{Text: "0123456789"}, {Text: "a"}},
	}}
	// "$ ls" + two rows for the long line + "a" + chrome
	if got := layout.DesiredHeight(runs); got != 6 {
		t.Fatalf("expected 6 rows, got %d", got)
	}
	layout.SetWidth(0)
	if got := layout.DesiredHeight(runs); got != 5 {
		t.Fatalf("expected 5 rows without wrapping, got %d", got)
	}
}
