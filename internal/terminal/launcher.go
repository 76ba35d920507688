package terminal

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"pkt.systems/dropterm/core"
	"pkt.systems/dropterm/schema"
	"pkt.systems/pslog"
)

// Placeholders expanded in every argument of the launch template.
const (
	PlaceholderDir     = "{dir}"
	PlaceholderCommand = "{command}"
	PlaceholderScript  = "{script}"
)

// DefaultCommand returns the launch template for the current platform.
func DefaultCommand() []string {
	if runtime.GOOS == "darwin" {
		return []string{"open", "-a", "Terminal", PlaceholderScript}
	}
	return []string{"x-terminal-emulator", "-e", "sh", PlaceholderScript}
}

// Config configures a Launcher.
type Config struct {
	// Command is the argv template. Empty means DefaultCommand.
	Command []string
	// TempDir receives launch scripts. Empty means os.TempDir.
	TempDir string
}

// Launcher implements core.TerminalLauncher by starting a terminal
// application that runs the command in the working directory and then
// leaves an interactive shell open.
type Launcher struct {
	argv    []string
	tempDir string
}

// New constructs a terminal launcher.
func New(cfg Config) *Launcher {
	argv := append([]string(nil), cfg.Command...)
	if len(argv) == 0 {
		argv = DefaultCommand()
	}
	return &Launcher{argv: argv, tempDir: cfg.TempDir}
}

// Launch starts the terminal and returns once it is running.
func (l *Launcher) Launch(ctx context.Context, command, workingDir string) error {
	log := pslog.Ctx(ctx)
	values := map[string]string{
		PlaceholderDir:     workingDir,
		PlaceholderCommand: command,
	}
	var script string
	if usesPlaceholder(l.argv, PlaceholderScript) {
		path, err := writeScript(l.tempDir, command, workingDir)
		if err != nil {
			return fmt.Errorf("terminal script: %w", err)
		}
		script = path
		values[PlaceholderScript] = path
	}
	argv := Expand(l.argv, values)
	bin, err := exec.LookPath(argv[0])
	if err != nil {
		removeScript(script)
		return fmt.Errorf("%w: %s", schema.ErrLauncherUnavailable, argv[0])
	}
	cmd := exec.Command(bin, argv[1:]...)
	cmd.Dir = workingDir
	if err := cmd.Start(); err != nil {
		removeScript(script)
		log.Warn("terminal launch failed", "bin", bin, "err", err)
		return fmt.Errorf("%w: %v", schema.ErrLauncherUnavailable, err)
	}
	log.Info("terminal launched", "bin", bin, "pid", cmd.Process.Pid, "workdir", workingDir)
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Debug("terminal launcher exited", "bin", bin, "err", err)
		}
	}()
	return nil
}

// Expand substitutes placeholders in every argument of argv.
func Expand(argv []string, values map[string]string) []string {
	pairs := make([]string, 0, len(values)*2)
	for key, value := range values {
		pairs = append(pairs, key, value)
	}
	replacer := strings.NewReplacer(pairs...)
	out := make([]string, len(argv))
	for i, arg := range argv {
		out[i] = replacer.Replace(arg)
	}
	return out
}

// Script returns the shell script run inside the terminal. It removes
// itself, runs command in workingDir, then execs the user's shell.
func Script(command, workingDir string) string {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	b.WriteString("rm -f \"$0\"\n")
	fmt.Fprintf(&b, "cd %s || exit 1\n", core.QuoteArg(workingDir))
	b.WriteString(command)
	b.WriteString("\n")
	b.WriteString("exec \"${SHELL:-/bin/sh}\"\n")
	return b.String()
}

func writeScript(dir, command, workingDir string) (string, error) {
	f, err := os.CreateTemp(dir, "dropterm-*.sh")
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(Script(command, workingDir)); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := os.Chmod(f.Name(), 0o700); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func removeScript(path string) {
	if path != "" {
		_ = os.Remove(path)
	}
}

func usesPlaceholder(argv []string, placeholder string) bool {
	for _, arg := range argv {
		if strings.Contains(arg, placeholder) {
			return true
		}
	}
	return false
}
