package core

import (
	"context"
	"errors"
	"fmt"

	"pkt.systems/dropterm/schema"
)

// Action is a user action bound to a key or menu item.
type Action int

// Actions a host can bind.
const (
	ActionExecute Action = iota
	ActionExecuteInTerminal
	ActionCancel
	ActionInsertSelection
	ActionInsertSelectionFullPaths
	ActionPullCommand
	ActionCopyResults
	ActionClearResults
	ActionHistoryPrev
	ActionHistoryNext
	ActionComplete
)

var actionNames = [...]string{
	ActionExecute:                  "execute",
	ActionExecuteInTerminal:        "execute-in-terminal",
	ActionCancel:                   "cancel",
	ActionInsertSelection:          "insert-selection",
	ActionInsertSelectionFullPaths: "insert-selection-full-paths",
	ActionPullCommand:              "pull-command",
	ActionCopyResults:              "copy-results",
	ActionClearResults:             "clear-results",
	ActionHistoryPrev:              "history-prev",
	ActionHistoryNext:              "history-next",
	ActionComplete:                 "complete",
}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return fmt.Sprintf("action(%d)", int(a))
	}
	return actionNames[a]
}

// ParseAction returns the action with the given name.
func ParseAction(name string) (Action, error) {
	for i, n := range actionNames {
		if n == name {
			return Action(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %s", schema.ErrUnknownAction, name)
}

// Perform runs action a. Actions that have nothing to act on are no-ops and
// return nil; real failures such as a clipboard error are returned.
func (c *Controller) Perform(ctx context.Context, a Action) error {
	var err error
	switch a {
	case ActionExecute:
		_, err = c.ExecuteCommand(ctx)
	case ActionExecuteInTerminal:
		err = c.ExecuteCommandInTerminal(ctx)
	case ActionCancel:
		err = c.CancelCurrentCommand(ctx)
	case ActionInsertSelection:
		err = c.InsertSelection()
	case ActionInsertSelectionFullPaths:
		err = c.InsertSelectionFullPaths()
	case ActionPullCommand:
		err = c.PullCommandFromResults()
	case ActionCopyResults:
		err = c.CopyResultsToClipboard(ctx)
	case ActionClearResults:
		c.ClearResults()
	case ActionHistoryPrev:
		c.HistoryPrev()
	case ActionHistoryNext:
		c.HistoryNext()
	case ActionComplete:
		err = c.Complete()
	default:
		return fmt.Errorf("%w: %d", schema.ErrUnknownAction, int(a))
	}
	if err != nil && isNoop(err) {
		c.log.Debug("action skipped", "action", a.String(), "reason", err)
		return nil
	}
	return err
}

func isNoop(err error) bool {
	return errors.Is(err, schema.ErrEmptyCommand) ||
		errors.Is(err, schema.ErrRunOutstanding) ||
		errors.Is(err, schema.ErrRunNotFound) ||
		errors.Is(err, schema.ErrNoRuns) ||
		errors.Is(err, schema.ErrNoSelection)
}
