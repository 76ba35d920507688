package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run draws the window inline below the cursor and blocks until the user
// quits or ctx is done. The controller must already be active; Run
// deactivates it on return.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Loop == nil || cfg.Controller == nil {
		return errors.New("tui requires a loop and a controller")
	}
	if cfg.Host == nil {
		cfg.Host = NewHost(0)
	}
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if cfg.Input != nil {
		opts = append(opts, tea.WithInput(cfg.Input))
	}
	if cfg.Output != nil {
		opts = append(opts, tea.WithOutput(cfg.Output))
	}
	p := tea.NewProgram(newModel(ctx, cfg), opts...)
	cfg.Host.attach(p.Send)
	_, err := p.Run()
	cfg.Host.detach()

	deactivate := context.WithoutCancel(ctx)
	if loopErr := cfg.Loop.Do(deactivate, func() {
		_ = cfg.Controller.Deactivate(deactivate)
	}); loopErr != nil && cfg.Logger != nil {
		cfg.Logger.Debug("tui deactivate skipped", "err", loopErr)
	}
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
