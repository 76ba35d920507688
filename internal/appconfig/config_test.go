package appconfig

import (
	"testing"
	"time"
)

func TestDefaultConfigControllerSettings(t *testing.T) {
	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	settings := cfg.ControllerSettings()
	if settings.CancelGrace != 3*time.Second {
		t.Fatalf("expected 3s cancel grace, got %s", settings.CancelGrace)
	}
	if settings.MaxRuns != 200 || settings.MaxOutputLines != 5000 || settings.HistoryMax != 200 {
		t.Fatalf("unexpected limits %+v", settings)
	}
	if settings.CancelOnDeactivate {
		t.Fatalf("expected runs to survive deactivation by default")
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected default config to validate: %v", err)
	}
}
