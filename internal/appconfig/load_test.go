package appconfig

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def, err := DefaultConfig()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	if cfg.Shell.Path != def.Shell.Path || cfg.Results.MaxRuns != def.Results.MaxRuns {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadReadsValues(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
shell:
  path: /bin/bash
  args: ["-lc"]
  use_pty: true
  env:
    - FOO=bar
  cancel_grace_ms: 500
completion:
  search_path: ["$DT_BIN"]
  max_candidates: 20
window:
  min_height: 4
  max_height: 30
results:
  max_runs: 10
controller:
  cancel_on_deactivate: true
  history_file: $DT_STATE/history.json
clipboard:
  mode: osc52
metrics:
  addr: 127.0.0.1:9464
`)
	t.Setenv("DT_BIN", "/opt/bin")
	t.Setenv("DT_STATE", "/var/lib/dropterm")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Shell.Path != "/bin/bash" || !reflect.DeepEqual(cfg.Shell.Args, []string{"-lc"}) || !cfg.Shell.UsePTY {
		t.Fatalf("unexpected shell config %+v", cfg.Shell)
	}
	if !reflect.DeepEqual(cfg.Shell.Env, []string{"FOO=bar"}) {
		t.Fatalf("unexpected env %v", cfg.Shell.Env)
	}
	if !reflect.DeepEqual(cfg.Completion.SearchPath, []string{"/opt/bin"}) {
		t.Fatalf("expected expanded search path, got %v", cfg.Completion.SearchPath)
	}
	settings := cfg.ControllerSettings()
	if settings.CancelGrace != 500*time.Millisecond || settings.MinHeight != 4 || settings.MaxHeight != 30 || settings.MaxRuns != 10 {
		t.Fatalf("unexpected controller settings %+v", settings)
	}
	if !settings.CancelOnDeactivate {
		t.Fatalf("expected cancel_on_deactivate")
	}
	if settings.MaxOutputLines != 5000 {
		t.Fatalf("expected default output limit, got %d", settings.MaxOutputLines)
	}
	if cfg.Controller.HistoryFile != "/var/lib/dropterm/history.json" {
		t.Fatalf("expected expanded history file, got %q", cfg.Controller.HistoryFile)
	}
	if cfg.Clipboard.Mode != "osc52" || cfg.Metrics.Addr != "127.0.0.1:9464" {
		t.Fatalf("unexpected clipboard/metrics %+v %+v", cfg.Clipboard, cfg.Metrics)
	}
}

func TestLoadRejectsUnsupportedConfigVersion(t *testing.T) {
	path := writeConfig(t, `
config_version: 3
shell:
  path: sh
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported config_version") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRejectsInvertedHeights(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
window:
  min_height: 20
  max_height: 10
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "min height") {
		t.Fatalf("expected height error, got %v", err)
	}
}

func TestLoadRejectsUnknownClipboardMode(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
clipboard:
  mode: carrier-pigeon
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "clipboard.mode") {
		t.Fatalf("expected clipboard error, got %v", err)
	}
}

func TestLoadRejectsMalformedEnv(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
shell:
  env: ["NOEQUALS"]
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "shell.env") {
		t.Fatalf("expected env error, got %v", err)
	}
}

func TestLoadRejectsMetricsAddr(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
metrics:
  addr: nonsense
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "metrics.addr") {
		t.Fatalf("expected metrics error, got %v", err)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("FOO", "bar")
	value := expandEnv("$FOO/$UID/$GID/$MISSING")
	if !strings.HasPrefix(value, "bar/") {
		t.Fatalf("expected env expansion, got %q", value)
	}
	if strings.Contains(value, "$UID") || strings.Contains(value, "$GID") {
		t.Fatalf("expected UID/GID expansion, got %q", value)
	}
	if !strings.HasSuffix(value, "/$MISSING") {
		t.Fatalf("expected missing vars to remain, got %q", value)
	}
}

func TestWriteDefaultRespectsOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	written, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("write default: %v", err)
	}
	if written != path {
		t.Fatalf("expected path %q, got %q", path, written)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config to exist: %v", err)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected error when config exists")
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Fatalf("expected overwrite to succeed: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("expected written default to load: %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
