package completion

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pkt.systems/dropterm/schema"
	"pkt.systems/pslog"
)

// DefaultMaxCandidates bounds the number of returned candidates.
const DefaultMaxCandidates = 500

// DefaultBuiltins are shell builtins offered in command position.
var DefaultBuiltins = []string{
	"alias", "bg", "cd", "command", "echo", "eval", "exec", "exit", "export",
	"fg", "jobs", "printf", "pwd", "read", "set", "shift", "source", "test",
	"trap", "type", "ulimit", "umask", "unalias", "unset", "wait",
}

// Config configures an Engine.
type Config struct {
	// SearchPath lists the directories searched for commands. Empty means
	// the PATH environment variable.
	SearchPath    []string
	Builtins      []string
	MaxCandidates int
	// HomeDir expands a leading "~/". Empty means the current user's home.
	HomeDir string
	Logger  pslog.Logger
}

// Engine computes completion candidates for a partial word.
type Engine struct {
	searchPath []string
	builtins   []string
	max        int
	home       string
	log        pslog.Logger
}

// New constructs an Engine with defaults applied.
func New(cfg Config) *Engine {
	if len(cfg.SearchPath) == 0 {
		cfg.SearchPath = filepath.SplitList(os.Getenv("PATH"))
	}
	if cfg.Builtins == nil {
		cfg.Builtins = DefaultBuiltins
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = DefaultMaxCandidates
	}
	if cfg.HomeDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.HomeDir = home
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = pslog.Ctx(context.Background())
	}
	return &Engine{
		searchPath: append([]string(nil), cfg.SearchPath...),
		builtins:   append([]string(nil), cfg.Builtins...),
		max:        cfg.MaxCandidates,
		home:       cfg.HomeDir,
		log:        cfg.Logger,
	}
}

// Complete returns the sorted candidates for req.Partial. Selected is 0 when
// there are candidates and schema.NoSelection otherwise. Filesystem errors
// yield an empty result.
func (e *Engine) Complete(req schema.CompletionRequest) schema.CompletionResult {
	var candidates []schema.Candidate
	if req.IsCommand && !strings.Contains(req.Partial, "/") {
		candidates = e.commands(req.Partial)
	} else {
		candidates = e.paths(req.Partial, req.WorkingDir)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Text < candidates[j].Text
	})
	if len(candidates) > e.max {
		candidates = candidates[:e.max]
	}
	if len(candidates) == 0 {
		return schema.CompletionResult{Selected: schema.NoSelection}
	}
	return schema.CompletionResult{Candidates: candidates, Selected: 0}
}

func (e *Engine) commands(partial string) []schema.Candidate {
	seen := make(map[string]struct{})
	var out []schema.Candidate
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, schema.Candidate{Text: name, IsCommand: true})
	}
	for _, name := range e.builtins {
		if strings.HasPrefix(name, partial) {
			add(name)
		}
	}
	for _, dir := range e.searchPath {
		if dir == "" {
			dir = "."
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			e.log.Trace("completion search dir skipped", "dir", dir, "err", err)
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			if !strings.HasPrefix(name, partial) {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			if isExecutable(filepath.Join(dir, name)) {
				add(name)
			}
		}
	}
	return out
}

func (e *Engine) paths(partial, workingDir string) []schema.Candidate {
	dirPart, base := splitPartial(partial)
	readDir := e.resolve(dirPart, workingDir)
	entries, err := os.ReadDir(readDir)
	if err != nil {
		e.log.Trace("completion read dir failed", "dir", readDir, "err", err)
		return nil
	}
	// An empty partial lists everything; otherwise dot entries need a "." base.
	showHidden := partial == "" || strings.HasPrefix(base, ".")
	out := make([]schema.Candidate, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, base) {
			continue
		}
		if !showHidden && strings.HasPrefix(name, ".") {
			continue
		}
		text := dirPart + name
		if isDir(readDir, entry) {
			text += "/"
		}
		out = append(out, schema.Candidate{Text: text})
	}
	return out
}

// resolve maps the directory component of a partial word to a directory on
// disk.
func (e *Engine) resolve(dirPart, workingDir string) string {
	switch {
	case dirPart == "":
		return workingDir
	case strings.HasPrefix(dirPart, "~/"):
		if e.home == "" {
			return dirPart
		}
		return filepath.Join(e.home, dirPart[2:])
	case filepath.IsAbs(dirPart):
		return dirPart
	default:
		return filepath.Join(workingDir, dirPart)
	}
}

// splitPartial splits "src/ma" into "src/" and "ma".
func splitPartial(partial string) (string, string) {
	idx := strings.LastIndex(partial, "/")
	if idx < 0 {
		return "", partial
	}
	return partial[:idx+1], partial[idx+1:]
}

func isDir(dir string, entry os.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, entry.Name()))
	return err == nil && info.IsDir()
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}
