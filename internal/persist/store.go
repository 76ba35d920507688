package persist

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"pkt.systems/pslog"
)

// HistoryVersion marks the history file format.
const HistoryVersion = 1

// HistorySnapshot is the persisted command history, oldest entry first.
type HistorySnapshot struct {
	Version int      `json:"version"`
	Entries []string `json:"entries"`
}

// Store persists the command history to one file.
type Store struct {
	path string
	log  pslog.Logger
}

// NewStore constructs a store at path.
func NewStore(path string) (*Store, error) {
	return NewStoreWithLogger(path, nil)
}

// NewStoreWithLogger constructs a store with logging.
func NewStoreWithLogger(path string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path is required")
	}
	if logger != nil {
		logger = logger.With("history_file", path)
	}
	return &Store{path: path, log: logger}, nil
}

// Path returns the history file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the history. A missing file is not an error.
func (s *Store) Load() ([]string, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.debug("history load miss")
			return nil, false, nil
		}
		s.warn("history load failed", err)
		return nil, false, err
	}
	var snapshot HistorySnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		s.warn("history load failed", err)
		return nil, false, err
	}
	if snapshot.Version != HistoryVersion {
		err := errors.New("unsupported history version")
		s.warn("history load failed", err)
		return nil, false, err
	}
	if s.log != nil {
		s.log.Debug("history load ok", "entries", len(snapshot.Entries))
	}
	return snapshot.Entries, true, nil
}

// Save replaces the history file atomically.
func (s *Store) Save(entries []string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		s.warn("history save failed", err)
		return err
	}
	data, err := json.MarshalIndent(HistorySnapshot{Version: HistoryVersion, Entries: entries}, "", "  ")
	if err != nil {
		s.warn("history save failed", err)
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "history-*.json")
	if err != nil {
		s.warn("history save failed", err)
		return err
	}
	if err := writeSynced(tmp, data); err != nil {
		_ = os.Remove(tmp.Name())
		s.warn("history save failed", err)
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		s.warn("history save failed", err)
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		s.warn("history save failed", err)
		return err
	}
	if s.log != nil {
		s.log.Trace("history save ok", "entries", len(entries))
	}
	return nil
}

func writeSynced(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (s *Store) debug(msg string) {
	if s.log != nil {
		s.log.Debug(msg)
	}
}

func (s *Store) warn(msg string, err error) {
	if s.log != nil {
		s.log.Warn(msg, "err", err)
	}
}
