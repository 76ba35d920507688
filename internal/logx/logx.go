package logx

import (
	"context"

	"pkt.systems/dropterm/schema"
	"pkt.systems/pslog"
)

type contextKey int

const (
	windowKey contextKey = iota
	runKey
)

// WithWindow annotates the logger with the window id if present.
func WithWindow(ctx context.Context, windowID schema.WindowID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if windowID != "" {
		if current, ok := ctx.Value(windowKey).(schema.WindowID); ok && current == windowID {
			return log
		}
		log = log.With("window", windowID)
	}
	return log
}

// WithWindowRun annotates the logger with window and run identifiers.
func WithWindowRun(ctx context.Context, windowID schema.WindowID, runID schema.RunID) pslog.Logger {
	log := WithWindow(ctx, windowID)
	if runID != "" {
		if current, ok := ctx.Value(runKey).(schema.RunID); ok && current == runID {
			return log
		}
		log = log.With("run", runID)
	}
	return log
}

// WithRun annotates the logger with a run id when available.
func WithRun(log pslog.Logger, runID schema.RunID) pslog.Logger {
	if runID != "" {
		log = log.With("run", runID)
	}
	return log
}

// WithWorkdir annotates the logger with the working directory when available.
func WithWorkdir(log pslog.Logger, dir string) pslog.Logger {
	if dir != "" {
		log = log.With("workdir", dir)
	}
	return log
}

// ContextWithWindow stores the window marker on the context for log de-duplication.
func ContextWithWindow(ctx context.Context, windowID schema.WindowID) context.Context {
	if ctx == nil || windowID == "" {
		return ctx
	}
	return context.WithValue(ctx, windowKey, windowID)
}

// ContextWithRun stores the run marker on the context for log de-duplication.
func ContextWithRun(ctx context.Context, runID schema.RunID) context.Context {
	if ctx == nil || runID == "" {
		return ctx
	}
	return context.WithValue(ctx, runKey, runID)
}

// ContextWithWindowLogger attaches the logger and window marker to the context.
func ContextWithWindowLogger(ctx context.Context, log pslog.Logger, windowID schema.WindowID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithWindow(ctx, windowID)
}

// CopyContextFields copies window/run markers from src to dst.
func CopyContextFields(dst context.Context, src context.Context) context.Context {
	if src == nil {
		return dst
	}
	if window, ok := src.Value(windowKey).(schema.WindowID); ok && window != "" {
		dst = ContextWithWindow(dst, window)
	}
	if run, ok := src.Value(runKey).(schema.RunID); ok && run != "" {
		dst = ContextWithRun(dst, run)
	}
	return dst
}

// Detach returns a cancellable context that keeps the logger and markers of
// ctx but not its deadline or cancellation.
func Detach(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.Background()
	if ctx != nil {
		if logger := pslog.Ctx(ctx); logger != nil {
			base = CopyContextFields(pslog.ContextWithLogger(base, logger), ctx)
		}
	}
	return context.WithCancel(base)
}
