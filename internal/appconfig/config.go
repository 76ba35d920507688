package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/dropterm/internal/completion"
	"pkt.systems/dropterm/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int              `mapstructure:"config_version" yaml:"config_version"`
	Shell         ShellConfig      `mapstructure:"shell" yaml:"shell"`
	Completion    CompletionConfig `mapstructure:"completion" yaml:"completion"`
	Window        WindowConfig     `mapstructure:"window" yaml:"window"`
	Results       ResultsConfig    `mapstructure:"results" yaml:"results"`
	Controller    ControllerConfig `mapstructure:"controller" yaml:"controller"`
	Terminal      TerminalConfig   `mapstructure:"terminal" yaml:"terminal"`
	Clipboard     ClipboardConfig  `mapstructure:"clipboard" yaml:"clipboard"`
	Metrics       MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
	Logging       LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// ShellConfig controls how commands are executed. Env entries use
// KEY=VALUE form.
type ShellConfig struct {
	Path          string   `mapstructure:"path" yaml:"path"`
	Args          []string `mapstructure:"args" yaml:"args"`
	UsePTY        bool     `mapstructure:"use_pty" yaml:"use_pty"`
	LoadDotenv    bool     `mapstructure:"load_dotenv" yaml:"load_dotenv"`
	Env           []string `mapstructure:"env" yaml:"env"`
	CancelGraceMS int      `mapstructure:"cancel_grace_ms" yaml:"cancel_grace_ms"`
}

// CancelGrace returns the TERM to KILL wait.
func (c ShellConfig) CancelGrace() time.Duration {
	return time.Duration(c.CancelGraceMS) * time.Millisecond
}

// CompletionConfig controls the completion engine. An empty search path
// means $PATH.
type CompletionConfig struct {
	SearchPath    []string `mapstructure:"search_path" yaml:"search_path"`
	Builtins      []string `mapstructure:"builtins" yaml:"builtins"`
	MaxCandidates int      `mapstructure:"max_candidates" yaml:"max_candidates"`
}

// WindowConfig bounds the window height in rows. Zero disables a bound.
type WindowConfig struct {
	MinHeight int `mapstructure:"min_height" yaml:"min_height"`
	MaxHeight int `mapstructure:"max_height" yaml:"max_height"`
}

// ResultsConfig limits retained results.
type ResultsConfig struct {
	MaxRuns        int `mapstructure:"max_runs" yaml:"max_runs"`
	MaxOutputLines int `mapstructure:"max_output_lines" yaml:"max_output_lines"`
}

// ControllerConfig controls window controller policies. An empty
// HistoryFile keeps the command history in memory only.
type ControllerConfig struct {
	CancelOnDeactivate bool   `mapstructure:"cancel_on_deactivate" yaml:"cancel_on_deactivate"`
	HistoryMax         int    `mapstructure:"history_max" yaml:"history_max"`
	HistoryFile        string `mapstructure:"history_file" yaml:"history_file"`
}

// TerminalConfig configures the external terminal launcher. Command is an
// argv template with {dir}, {command} and {script} placeholders; empty means
// the platform default.
type TerminalConfig struct {
	Command []string `mapstructure:"command" yaml:"command"`
}

// ClipboardConfig configures the clipboard writer.
type ClipboardConfig struct {
	Mode    string   `mapstructure:"mode" yaml:"mode"`
	Command []string `mapstructure:"command" yaml:"command"`
}

// MetricsConfig configures the optional prometheus endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// LoggingConfig controls log output and audit logging behavior.
type LoggingConfig struct {
	File               string `mapstructure:"file" yaml:"file"`
	DisableAuditTrails bool   `mapstructure:"disable_audit_trails" yaml:"disable_audit_trails"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Shell: ShellConfig{
			Path:          "sh",
			Args:          []string{"-c"},
			UsePTY:        false,
			LoadDotenv:    false,
			Env:           []string{},
			CancelGraceMS: int(schema.DefaultCancelGrace / time.Millisecond),
		},
		Completion: CompletionConfig{
			SearchPath:    []string{},
			Builtins:      append([]string(nil), completion.DefaultBuiltins...),
			MaxCandidates: completion.DefaultMaxCandidates,
		},
		Window: WindowConfig{
			MinHeight: 0,
			MaxHeight: 0,
		},
		Results: ResultsConfig{
			MaxRuns:        schema.DefaultMaxRuns,
			MaxOutputLines: schema.DefaultMaxOutputLines,
		},
		Controller: ControllerConfig{
			CancelOnDeactivate: false,
			HistoryMax:         schema.DefaultHistoryMax,
			HistoryFile:        filepath.Join(home, ".dropterm", "history.json"),
		},
		Terminal: TerminalConfig{
			Command: []string{},
		},
		Clipboard: ClipboardConfig{
			Mode:    "auto",
			Command: []string{},
		},
		Metrics: MetricsConfig{
			Addr: "",
		},
		Logging: LoggingConfig{
			File:               filepath.Join(home, ".dropterm", "dropterm.log"),
			DisableAuditTrails: false,
		},
	}, nil
}

// ControllerSettings maps the config onto the core controller settings.
func (c Config) ControllerSettings() schema.ControllerConfig {
	return schema.ControllerConfig{
		MaxRuns:             c.Results.MaxRuns,
		MaxOutputLines:      c.Results.MaxOutputLines,
		HistoryMax:          c.Controller.HistoryMax,
		MinHeight:           c.Window.MinHeight,
		MaxHeight:           c.Window.MaxHeight,
		CancelGrace:         c.Shell.CancelGrace(),
		CancelOnDeactivate:  c.Controller.CancelOnDeactivate,
		DisableAuditLogging: c.Logging.DisableAuditTrails,
	}
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".dropterm", "config.yaml"), nil
}
