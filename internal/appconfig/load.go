package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pkt.systems/dropterm/internal/clipboard"
	"pkt.systems/dropterm/schema"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("shell.path", cfg.Shell.Path)
	v.SetDefault("shell.args", cfg.Shell.Args)
	v.SetDefault("shell.use_pty", cfg.Shell.UsePTY)
	v.SetDefault("shell.load_dotenv", cfg.Shell.LoadDotenv)
	v.SetDefault("shell.env", cfg.Shell.Env)
	v.SetDefault("shell.cancel_grace_ms", cfg.Shell.CancelGraceMS)
	v.SetDefault("completion.search_path", cfg.Completion.SearchPath)
	v.SetDefault("completion.builtins", cfg.Completion.Builtins)
	v.SetDefault("completion.max_candidates", cfg.Completion.MaxCandidates)
	v.SetDefault("window.min_height", cfg.Window.MinHeight)
	v.SetDefault("window.max_height", cfg.Window.MaxHeight)
	v.SetDefault("results.max_runs", cfg.Results.MaxRuns)
	v.SetDefault("results.max_output_lines", cfg.Results.MaxOutputLines)
	v.SetDefault("controller.cancel_on_deactivate", cfg.Controller.CancelOnDeactivate)
	v.SetDefault("controller.history_max", cfg.Controller.HistoryMax)
	v.SetDefault("controller.history_file", cfg.Controller.HistoryFile)
	v.SetDefault("terminal.command", cfg.Terminal.Command)
	v.SetDefault("clipboard.mode", cfg.Clipboard.Mode)
	v.SetDefault("clipboard.command", cfg.Clipboard.Command)
	v.SetDefault("metrics.addr", cfg.Metrics.Addr)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.disable_audit_trails", cfg.Logging.DisableAuditTrails)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting in cfg.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Shell.Path) == "" {
		return fmt.Errorf("shell.path must not be empty")
	}
	if cfg.Shell.CancelGraceMS < 0 {
		return fmt.Errorf("shell.cancel_grace_ms must not be negative")
	}
	for _, entry := range cfg.Shell.Env {
		if key, _, ok := strings.Cut(entry, "="); !ok || key == "" {
			return fmt.Errorf("shell.env entry %q must use KEY=VALUE form", entry)
		}
	}
	if cfg.Completion.MaxCandidates < 0 {
		return fmt.Errorf("completion.max_candidates must not be negative")
	}
	if cfg.Results.MaxRuns < 0 || cfg.Results.MaxOutputLines < 0 {
		return fmt.Errorf("results limits must not be negative")
	}
	if cfg.Controller.HistoryMax < 0 {
		return fmt.Errorf("controller.history_max must not be negative")
	}
	if _, err := schema.NormalizeControllerConfig(cfg.ControllerSettings()); err != nil {
		return fmt.Errorf("window: %w", err)
	}
	if _, err := clipboard.ParseMode(cfg.Clipboard.Mode); err != nil {
		return fmt.Errorf("clipboard.mode: %w", err)
	}
	if addr := strings.TrimSpace(cfg.Metrics.Addr); addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("metrics.addr must be host:port: %w", err)
		}
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Shell.Path = expandEnv(cfg.Shell.Path)
	for i, dir := range cfg.Completion.SearchPath {
		cfg.Completion.SearchPath[i] = expandEnv(dir)
	}
	cfg.Controller.HistoryFile = expandEnv(cfg.Controller.HistoryFile)
	cfg.Logging.File = expandEnv(cfg.Logging.File)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
