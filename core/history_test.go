package core

import "testing"

func TestHistoryAppendDedupesConsecutive(t *testing.T) {
	h := newHistory(10)
	h.Append("ls")
	h.Append("ls")
	h.Append("pwd")
	h.Append("ls")
	h.Append("   ")
	entries := h.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %+v", entries)
	}
	if entries[0] != "ls" || entries[1] != "pwd" || entries[2] != "ls" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestHistoryTrimsToMax(t *testing.T) {
	h := newHistory(2)
	h.Append("one")
	h.Append("two")
	h.Append("three")
	entries := h.Entries()
	if len(entries) != 2 || entries[0] != "two" || entries[1] != "three" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestHistoryNavigationRestoresDraft(t *testing.T) {
	h := newHistory(10)
	h.Append("one")
	h.Append("two")

	if got, ok := h.Prev("draft"); !ok || got != "two" {
		t.Fatalf("expected two, got %q ok=%v", got, ok)
	}
	if got, ok := h.Prev("two"); !ok || got != "one" {
		t.Fatalf("expected one, got %q ok=%v", got, ok)
	}
	if _, ok := h.Prev("one"); ok {
		t.Fatalf("expected no older entry")
	}
	if got, ok := h.Next(); !ok || got != "two" {
		t.Fatalf("expected two, got %q ok=%v", got, ok)
	}
	if got, ok := h.Next(); !ok || got != "draft" {
		t.Fatalf("expected draft restored, got %q ok=%v", got, ok)
	}
	if _, ok := h.Next(); ok {
		t.Fatalf("expected next to be a no-op when not navigating")
	}
}

func TestHistoryEmpty(t *testing.T) {
	h := newHistory(0)
	if h.max != defaultHistoryMax {
		t.Fatalf("expected default max %d, got %d", defaultHistoryMax, h.max)
	}
	if _, ok := h.Prev("x"); ok {
		t.Fatalf("expected prev on empty history to be a no-op")
	}
}

func TestHistoryLoadAppliesLimits(t *testing.T) {
	h := newHistory(3)
	h.Load([]string{"a", "a", "", "b", "c", "d"})
	entries := h.Entries()
	if len(entries) != 3 || entries[0] != "b" || entries[1] != "c" || entries[2] != "d" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if got, ok := h.Prev(""); !ok || got != "d" {
		t.Fatalf("expected newest loaded entry first, got %q", got)
	}
}
