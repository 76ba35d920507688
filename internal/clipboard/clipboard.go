package clipboard

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"github.com/aymanbagabas/go-osc52/v2"
	"golang.org/x/term"

	"pkt.systems/dropterm/schema"
	"pkt.systems/pslog"
)

// Mode selects how copied text reaches the system clipboard.
type Mode string

const (
	// ModeAuto uses a clipboard command when one is found and falls back to
	// OSC 52 when the output is a terminal.
	ModeAuto Mode = "auto"
	// ModeOSC52 writes an OSC 52 escape sequence to the terminal.
	ModeOSC52 Mode = "osc52"
	// ModeCommand pipes text into a clipboard command such as pbcopy.
	ModeCommand Mode = "command"
	// ModeNone disables copying.
	ModeNone Mode = "none"
)

// ParseMode returns the mode named by value. Empty means ModeAuto.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeOSC52:
		return ModeOSC52, nil
	case ModeCommand:
		return ModeCommand, nil
	case ModeNone:
		return ModeNone, nil
	default:
		return "", fmt.Errorf("unknown clipboard mode %q", value)
	}
}

// Config configures a Writer.
type Config struct {
	Mode Mode
	// Command overrides the detected clipboard command (argv form).
	Command []string
	// Output receives OSC 52 sequences. Defaults to os.Stderr.
	Output io.Writer
	Getenv func(string) string
}

// Writer implements core.Clipboard.
type Writer struct {
	mode    Mode
	command []string
	out     io.Writer
	getenv  func(string) string
	mu      sync.Mutex
}

// New constructs a clipboard writer.
func New(cfg Config) *Writer {
	if cfg.Mode == "" {
		cfg.Mode = ModeAuto
	}
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.Getenv == nil {
		cfg.Getenv = os.Getenv
	}
	command := append([]string(nil), cfg.Command...)
	if len(command) == 0 && cfg.Mode != ModeOSC52 {
		command = DetectCommand(cfg.Getenv)
	}
	return &Writer{
		mode:    cfg.Mode,
		command: command,
		out:     cfg.Output,
		getenv:  cfg.Getenv,
	}
}

// WriteText copies text to the clipboard.
func (w *Writer) WriteText(ctx context.Context, text string) error {
	log := pslog.Ctx(ctx)
	switch w.mode {
	case ModeNone:
		return schema.ErrClipboardUnavailable
	case ModeOSC52:
		return w.writeOSC52(text)
	case ModeCommand:
		if len(w.command) == 0 {
			return schema.ErrClipboardUnavailable
		}
		return w.runCommand(ctx, text)
	}
	if len(w.command) > 0 {
		err := w.runCommand(ctx, text)
		if err == nil {
			return nil
		}
		log.Debug("clipboard command failed; trying osc52", "command", w.command[0], "err", err)
	}
	if !isTerminal(w.out) {
		return schema.ErrClipboardUnavailable
	}
	return w.writeOSC52(text)
}

func (w *Writer) runCommand(ctx context.Context, text string) error {
	cmd := exec.CommandContext(ctx, w.command[0], w.command[1:]...)
	cmd.Stdin = strings.NewReader(text)
	if out, err := cmd.CombinedOutput(); err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %w: %s", w.command[0], err, msg)
		}
		return fmt.Errorf("%s: %w", w.command[0], err)
	}
	return nil
}

func (w *Writer) writeOSC52(text string) error {
	seq := osc52.New(text)
	termName := strings.ToLower(w.getenv("TERM"))
	switch {
	case w.getenv("TMUX") != "":
		seq = seq.Tmux()
	case strings.HasPrefix(termName, "screen"):
		seq = seq.Screen()
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := seq.WriteTo(w.out)
	return err
}

// DetectCommand returns the clipboard command for the current platform, or
// nil when none is installed.
func DetectCommand(getenv func(string) string) []string {
	var candidates [][]string
	switch runtime.GOOS {
	case "darwin":
		candidates = [][]string{{"pbcopy"}}
	default:
		if getenv("WAYLAND_DISPLAY") != "" {
			candidates = append(candidates, []string{"wl-copy"})
		}
		candidates = append(candidates,
			[]string{"xclip", "-selection", "clipboard"},
			[]string{"xsel", "--clipboard", "--input"},
		)
	}
	for _, argv := range candidates {
		if path, err := exec.LookPath(argv[0]); err == nil {
			return append([]string{path}, argv[1:]...)
		}
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
