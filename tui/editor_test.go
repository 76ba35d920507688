package tui

import "testing"

func TestLineEditorInsertAndDelete(t *testing.T) {
	var e lineEditor
	e.Insert([]rune("ls -la")...)
	e.MoveLeft()
	e.MoveLeft()
	e.MoveLeft()
	e.Insert('x')
	if e.String() != "ls x-la" || e.Cursor() != 4 {
		t.Fatalf("unexpected state %q@%d", e.String(), e.Cursor())
	}
	e.Backspace()
	e.Delete()
	if e.String() != "ls la" || e.Cursor() != 3 {
		t.Fatalf("unexpected state %q@%d", e.String(), e.Cursor())
	}
}

func TestLineEditorWordMotion(t *testing.T) {
	var e lineEditor
	e.Set("git commit  -m", 14)
	e.MoveWordLeft()
	if e.Cursor() != 12 {
		t.Fatalf("expected cursor 12, got %d", e.Cursor())
	}
	e.MoveWordLeft()
	if e.Cursor() != 4 {
		t.Fatalf("expected cursor 4, got %d", e.Cursor())
	}
	e.MoveWordRight()
	if e.Cursor() != 10 {
		t.Fatalf("expected cursor 10, got %d", e.Cursor())
	}
	e.DeleteWordBackward()
	if e.String() != "git   -m" || e.Cursor() != 4 {
		t.Fatalf("unexpected state %q@%d", e.String(), e.Cursor())
	}
}

func TestLineEditorKill(t *testing.T) {
	var e lineEditor
	e.Set("echo hello world", 10)
	e.KillLineEnd()
	if e.String() != "echo hello" {
		t.Fatalf("unexpected kill end %q", e.String())
	}
	e.Set("echo hello world", 5)
	e.KillLineStart()
	if e.String() != "hello world" || e.Cursor() != 0 {
		t.Fatalf("unexpected kill start %q@%d", e.String(), e.Cursor())
	}
}

func TestLineEditorSetClampsCursor(t *testing.T) {
	var e lineEditor
	e.Set("héllo", 99)
	if e.Cursor() != 5 {
		t.Fatalf("expected rune cursor 5, got %d", e.Cursor())
	}
	e.Set("abc", -2)
	if e.Cursor() != 0 {
		t.Fatalf("expected cursor 0, got %d", e.Cursor())
	}
}
