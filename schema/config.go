package schema

import (
	"errors"
	"time"
)

// ControllerConfig defines defaults and limits for a window controller.
// MinHeight is a floor applied on top of the results surface minimum and
// MaxHeight a ceiling applied below the host maximum; zero disables either.
// Zero MaxRuns, MaxOutputLines or HistoryMax select the defaults, so a
// normalized config always bounds retained output.
type ControllerConfig struct {
	MaxRuns        int
	MaxOutputLines int
	HistoryMax     int
	MinHeight      int
	MaxHeight      int
	CancelGrace    time.Duration

	// CancelOnDeactivate cancels the outstanding run when the window closes.
	CancelOnDeactivate bool
	// DisableAuditLogging disables audit trail debug logs for commands.
	DisableAuditLogging bool
}

const (
	// DefaultMaxRuns is the default number of retained runs.
	DefaultMaxRuns = 200
	// DefaultMaxOutputLines is the default per-run output limit.
	DefaultMaxOutputLines = 5000
	// DefaultHistoryMax is the default command history length.
	DefaultHistoryMax = 200
	// DefaultCancelGrace is the wait between TERM and KILL.
	DefaultCancelGrace = 3 * time.Second
)

// NormalizeControllerConfig applies defaults and validates the config.
func NormalizeControllerConfig(cfg ControllerConfig) (ControllerConfig, error) {
	if cfg.MaxRuns <= 0 {
		cfg.MaxRuns = DefaultMaxRuns
	}
	if cfg.MaxOutputLines <= 0 {
		cfg.MaxOutputLines = DefaultMaxOutputLines
	}
	if cfg.HistoryMax <= 0 {
		cfg.HistoryMax = DefaultHistoryMax
	}
	if cfg.CancelGrace <= 0 {
		cfg.CancelGrace = DefaultCancelGrace
	}
	if cfg.MinHeight < 0 {
		return ControllerConfig{}, errors.New("min height must not be negative")
	}
	if cfg.MaxHeight < 0 {
		return ControllerConfig{}, errors.New("max height must not be negative")
	}
	if cfg.MaxHeight > 0 && cfg.MinHeight > cfg.MaxHeight {
		return ControllerConfig{}, errors.New("min height must not exceed max height")
	}
	return cfg, nil
}
