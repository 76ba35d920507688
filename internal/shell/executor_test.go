package shell

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pkt.systems/dropterm/core"
	"pkt.systems/dropterm/schema"
	"pkt.systems/pslog"
)

func collect(t *testing.T, h core.CommandHandle) []core.CommandOutput {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var out []core.CommandOutput
	for {
		line, err := h.Outputs().Next(ctx)
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		out = append(out, line)
	}
}

func waitResult(t *testing.T, h core.CommandHandle) core.ExitResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := h.Wait(ctx)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	return res
}

func TestExecutorCapturesStreamsAndExitCode(t *testing.T) {
	exec := New(Config{})
	h, err := exec.Start(context.Background(), core.ExecRequest{
		WorkingDir: t.TempDir(),
		Command:    "echo out; echo err 1>&2; exit 3",
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer h.Close()
	out := collect(t, h)
	var stdout, stderr []string
	for _, line := range out {
		switch line.Stream {
		case schema.StreamStdout:
			stdout = append(stdout, line.Text)
		case schema.StreamStderr:
			stderr = append(stderr, line.Text)
		}
	}
	if strings.Join(stdout, ",") != "out" || strings.Join(stderr, ",") != "err" {
		t.Fatalf("unexpected output stdout=%v stderr=%v", stdout, stderr)
	}
	res := waitResult(t, h)
	if res.ExitCode != 3 || res.Signal != "" {
		t.Fatalf("expected exit 3, got %+v", res)
	}
}

func TestExecutorRunsInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	h, err := New(Config{}).Start(context.Background(), core.ExecRequest{WorkingDir: dir, Command: "ls"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer h.Close()
	out := collect(t, h)
	if len(out) != 1 || out[0].Text != "marker.txt" {
		t.Fatalf("unexpected output %+v", out)
	}
	if res := waitResult(t, h); res.ExitCode != 0 {
		t.Fatalf("expected exit 0, got %+v", res)
	}
}

func TestExecutorEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	dotenv := "DT_A=dotenv\nDT_B=dotenv\nDT_C=dotenv\n"
	if err := os.WriteFile(filepath.Join(dir, DotenvFile), []byte(dotenv), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	exec := New(Config{LoadDotenv: true, Env: []string{"DT_B=config", "DT_C=config"}})
	h, err := exec.Start(context.Background(), core.ExecRequest{
		WorkingDir: dir,
		Command:    `echo "$DT_A $DT_B $DT_C"`,
		Env:        []string{"DT_C=request"},
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer h.Close()
	out := collect(t, h)
	if len(out) != 1 || out[0].Text != "dotenv config request" {
		t.Fatalf("unexpected output %+v", out)
	}
	waitResult(t, h)
}

func TestExecutorKillsProcessGroup(t *testing.T) {
	h, err := New(Config{}).Start(context.Background(), core.ExecRequest{
		WorkingDir: t.TempDir(),
		Command:    "sleep 30 & wait",
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer h.Close()
	if err := h.Signal(context.Background(), core.ProcessSignalKILL); err != nil {
		t.Fatalf("signal: %v", err)
	}
	select {
	case <-h.Done():
	case <-time.After(10 * time.Second):
		t.Fatalf("process did not exit")
	}
	res := waitResult(t, h)
	if res.ExitCode != 137 || res.Signal != "SIGKILL" {
		t.Fatalf("expected SIGKILL exit, got %+v", res)
	}
	collect(t, h)
}

func TestExecutorSpawnFailure(t *testing.T) {
	exec := New(Config{Shell: filepath.Join(t.TempDir(), "missing-shell")})
	_, err := exec.Start(context.Background(), core.ExecRequest{WorkingDir: t.TempDir(), Command: "true"})
	if err == nil {
		t.Fatalf("expected spawn error")
	}
	if kind := core.ExecErrorKindOf(err); kind != core.ExecErrorSpawn {
		t.Fatalf("expected spawn kind, got %s", kind)
	}
}

func TestExecutorRejectsUnknownSignal(t *testing.T) {
	h, err := New(Config{}).Start(context.Background(), core.ExecRequest{WorkingDir: t.TempDir(), Command: "true"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer h.Close()
	if err := h.Signal(context.Background(), core.ProcessSignal("USR9")); core.ExecErrorKindOf(err) != core.ExecErrorSignal {
		t.Fatalf("expected signal error, got %v", err)
	}
	collect(t, h)
	waitResult(t, h)
}

func TestExecutorAbandonsOutputHeldByBackgroundChild(t *testing.T) {
	exec := New(Config{WaitDelay: 100 * time.Millisecond})
	h, err := exec.Start(context.Background(), core.ExecRequest{
		WorkingDir: t.TempDir(),
		Command:    "echo ready; sleep 30 &",
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() {
		_ = h.Signal(context.Background(), core.ProcessSignalKILL)
		_ = h.Close()
	}()
	out := collect(t, h)
	if len(out) != 1 || out[0].Text != "ready" {
		t.Fatalf("unexpected output %+v", out)
	}
	if res := waitResult(t, h); res.ExitCode != 0 {
		t.Fatalf("expected exit 0, got %+v", res)
	}
}

func TestExecutorSplitsOverlongLines(t *testing.T) {
	h, err := New(Config{}).Start(context.Background(), core.ExecRequest{
		WorkingDir: t.TempDir(),
		Command:    "head -c 2000000 /dev/zero | tr '\\0' a; echo; seq 1 3",
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer h.Close()
	out := collect(t, h)
	long := 0
	var tail []string
	for _, line := range out {
		if len(line.Text) > maxChunkBytes {
			t.Fatalf("chunk of %d bytes exceeds the cap", len(line.Text))
		}
		if strings.HasPrefix(line.Text, "a") {
			long += len(line.Text)
			continue
		}
		tail = append(tail, line.Text)
	}
	if long != 2000000 {
		t.Fatalf("expected 2000000 bytes of the long line, got %d", long)
	}
	if strings.Join(tail, ",") != "1,2,3" {
		t.Fatalf("expected output after the long line, got %v", tail)
	}
	if res := waitResult(t, h); res.ExitCode != 0 {
		t.Fatalf("expected exit 0, got %+v", res)
	}
}

func TestCombinedStreamDropsNewlineAfterSplitChunk(t *testing.T) {
	text := strings.Repeat("b", maxChunkBytes) + "\nnext\n"
	stream := newCombinedStream(pslog.Ctx(context.Background()), source{reader: strings.NewReader(text), kind: schema.StreamStdout})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var got []string
	for {
		line, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		got = append(got, line.Text)
	}
	if len(got) != 2 || len(got[0]) != maxChunkBytes || got[1] != "next" {
		t.Fatalf("unexpected chunks: %d, last %q", len(got), got[len(got)-1])
	}
}

func TestMergeEnvPrecedence(t *testing.T) {
	env := mergeEnv(
		[]string{"A=os", "B=os", "BROKEN"},
		map[string]string{"B": "dotenv", "C": "dotenv"},
		[]string{"C=config"},
		[]string{"D=request=x"},
	)
	want := "A=os,B=dotenv,C=config,D=request=x"
	if got := strings.Join(env, ","); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestReadDotenvMissingFile(t *testing.T) {
	values, err := readDotenv(t.TempDir())
	if err != nil || values != nil {
		t.Fatalf("expected empty result, got %v %v", values, err)
	}
}
