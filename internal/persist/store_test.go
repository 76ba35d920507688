package persist

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestStoreLoadMissing(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "history.json"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	entries, ok, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok || entries != nil {
		t.Fatalf("expected missing history")
	}
}

func TestStoreSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "history.json")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	want := []string{"ls -la", "make test"}
	if err := store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := store.Load()
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("history mismatch: got %v want %v", got, want)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 history file, got %v", info.Mode().Perm())
	}
	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "history-*.json"))
	if len(leftovers) != 0 {
		t.Fatalf("expected no temp files, got %v", leftovers)
	}
}

func TestStoreRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte(`{"version":9,"entries":["ls"]}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, _, err := store.Load(); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestNewStoreRequiresPath(t *testing.T) {
	if _, err := NewStore("  "); err == nil {
		t.Fatalf("expected error for blank path")
	}
}
