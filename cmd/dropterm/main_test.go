package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pkt.systems/dropterm/schema"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{"tui": false, "exec": false, "complete": false, "config": false, "version": false}
	for _, cmd := range root.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("expected root command to include %s", name)
		}
	}
}

func TestExitStatus(t *testing.T) {
	three := 3
	tests := []struct {
		name string
		run  schema.RunSnapshot
		want int
	}{
		{name: "exit-code", run: schema.RunSnapshot{Status: schema.RunFailed, ExitCode: &three}, want: 3},
		{name: "completed", run: schema.RunSnapshot{Status: schema.RunCompleted}, want: 0},
		{name: "cancelled", run: schema.RunSnapshot{Status: schema.RunCancelled}, want: 130},
		{name: "spawn-failed", run: schema.RunSnapshot{Status: schema.RunFailed}, want: 1},
	}
	for _, tc := range tests {
		if got := exitStatus(tc.run); got != tc.want {
			t.Fatalf("%s: exitStatus = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestRunPrinterSkipsPrintedAndTruncatedLines(t *testing.T) {
	var stdout, stderr bytes.Buffer
	p := runPrinter{stdout: &stdout, stderr: &stderr}
	p.print(schema.RunSnapshot{Output: []schema.OutputChunk{{Stream: schema.StreamStdout, Text: "a"}}})
	p.print(schema.RunSnapshot{Output: []schema.OutputChunk{
		{Stream: schema.StreamStdout, Text: "a"},
		{Stream: schema.StreamStderr, Text: "b"},
		{Stream: schema.StreamStdout, Text: "c"},
	}})
	p.print(schema.RunSnapshot{Truncated: 2, Output: []schema.OutputChunk{
		{Stream: schema.StreamStdout, Text: "c"},
		{Stream: schema.StreamSystem, Text: "d"},
	}})
	if stdout.String() != "a\nc\n" {
		t.Fatalf("unexpected stdout %q", stdout.String())
	}
	if stderr.String() != "b\nd\n" {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
}

func TestPrintCandidatesMarksDefault(t *testing.T) {
	var out bytes.Buffer
	result := schema.CompletionResult{Candidates: []schema.Candidate{{Text: "readme.md"}, {Text: "results/"}}, Selected: 0}
	if err := printCandidates(&out, result); err != nil {
		t.Fatalf("print: %v", err)
	}
	if out.String() != "* readme.md\n  results/\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestConfigInitWritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	root := newRootCmd()
	root.SetArgs([]string{"--config", path, "config", "init"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file: %v", err)
	}
	root = newRootCmd()
	root.SetArgs([]string{"--config", path, "config", "init"})
	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Fatalf("expected existing config to be kept")
	}
}

func TestExecMirrorsExitStatus(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfgPath := filepath.Join(t.TempDir(), "missing.yaml")
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"--config", cfgPath, "exec", "--dir", dir, "--", "echo out; echo err >&2; exit 4"})
	err := root.ExecuteContext(context.Background())
	var exit exitCodeError
	if !errors.As(err, &exit) || exit.code != 4 {
		t.Fatalf("expected exit code 4, got %v", err)
	}
	if !strings.Contains(stdout.String(), "out") {
		t.Fatalf("expected stdout, got %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "err") {
		t.Fatalf("expected stderr, got %q", stderr.String())
	}
	data, err := os.ReadFile(filepath.Join(home, ".dropterm", "history.json"))
	if err != nil {
		t.Fatalf("expected saved history: %v", err)
	}
	if !strings.Contains(string(data), "exit 4") {
		t.Fatalf("expected command in history, got %s", data)
	}
}

func TestExecInvalidDirFails(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfgPath := filepath.Join(t.TempDir(), "missing.yaml")
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"--config", cfgPath, "exec", "--dir", filepath.Join(t.TempDir(), "nope"), "--", "true"})
	err := root.ExecuteContext(context.Background())
	var exit exitCodeError
	if !errors.As(err, &exit) || exit.code != 1 {
		t.Fatalf("expected exit code 1, got %v", err)
	}
	if !strings.Contains(stderr.String(), "working directory") {
		t.Fatalf("expected diagnostic on stderr, got %q", stderr.String())
	}
}
