package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"pkt.systems/dropterm/schema"
	"pkt.systems/pslog"
)

func newCaptureLogger(capture *logCapture) pslog.Logger {
	return pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
}

func TestWithWindowRunAddsFields(t *testing.T) {
	capture := &logCapture{}
	ctx := pslog.ContextWithLogger(context.Background(), newCaptureLogger(capture))
	log := WithWindowRun(ctx, "w1", "r1")
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["window"] != "w1" {
		t.Fatalf("expected window field, got %+v", entry)
	}
	if entry["run"] != "r1" {
		t.Fatalf("expected run field, got %+v", entry)
	}
}

func TestWithWindowSkipsFieldAlreadyOnContext(t *testing.T) {
	capture := &logCapture{}
	base := newCaptureLogger(capture).With("window", "w1")
	ctx := ContextWithWindowLogger(context.Background(), base, "w1")
	log := WithWindow(ctx, "w1")
	log.Info("hello")

	line := capture.buf.String()
	if bytes.Count([]byte(line), []byte(`"window"`)) != 1 {
		t.Fatalf("expected a single window field, got %s", line)
	}
}

func TestWithWorkdirOmitsEmpty(t *testing.T) {
	capture := &logCapture{}
	log := WithWorkdir(newCaptureLogger(capture), "")
	log.Info("hello")

	entry := capture.firstEntry(t)
	if _, ok := entry["workdir"]; ok {
		t.Fatalf("did not expect workdir for empty dir")
	}
}

func TestDetachKeepsMarkersDropsCancel(t *testing.T) {
	capture := &logCapture{}
	base := ContextWithWindowLogger(context.Background(), newCaptureLogger(capture), "w1")
	parent, cancel := context.WithCancel(ContextWithRun(base, "r1"))
	detached, detachedCancel := Detach(parent)
	defer detachedCancel()
	cancel()

	if detached.Err() != nil {
		t.Fatalf("expected detached context to outlive parent")
	}
	if got, _ := detached.Value(windowKey).(schema.WindowID); got != "w1" {
		t.Fatalf("expected window marker copied, got %q", got)
	}
	if got, _ := detached.Value(runKey).(schema.RunID); got != "r1" {
		t.Fatalf("expected run marker copied, got %q", got)
	}
}

type logCapture struct {
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *logCapture) firstEntry(t *testing.T) map[string]any {
	t.Helper()
	data := c.buf.Bytes()
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		idx = len(data)
	}
	line := bytes.TrimSpace(data[:idx])
	entry := map[string]any{}
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("parse log entry: %v", err)
	}
	return entry
}
