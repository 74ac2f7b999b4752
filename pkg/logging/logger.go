// Package logging provides the structured event logger injected into every
// operator component. Components never log through process-wide state; they
// receive a Logger (or derive one with WithResource/WithValues) so tests can
// capture output in isolation.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Component names used as the "component" attribute on every event.
const (
	ComponentController = "controller"
	ComponentFetcher    = "recommendation-fetcher"
	ComponentGitOps     = "gitops"
	ComponentReview     = "review"
	ComponentStatus     = "status"
	ComponentSecrets    = "secrets"
)

// Logger emits structured reconciliation events. It wraps slog so callers
// get key/value logging with a fixed component attribute.
type Logger struct {
	*slog.Logger
	component string
}

// Options configures logger construction.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // json or text
	Output io.Writer
}

// NewLogger returns a JSON logger on stdout for the given component.
func NewLogger(component string) *Logger {
	return NewLoggerWithOptions(component, Options{Level: "info", Format: "json"})
}

// NewLoggerWithOptions returns a logger with explicit level, format and
// output, used by tests to capture events.
func NewLoggerWithOptions(component string, opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{Level: parseLevel(opts.Level)}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "text":
		handler = slog.NewTextHandler(out, handlerOpts)
	default:
		handler = slog.NewJSONHandler(out, handlerOpts)
	}

	return &Logger{
		Logger:    slog.New(handler).With("component", component),
		component: component,
	}
}

// Component returns the component this logger is bound to.
func (l *Logger) Component() string {
	return l.component
}

// WithValues returns a logger carrying additional fixed key/value pairs.
func (l *Logger) WithValues(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), component: l.component}
}

// WithResource returns a logger scoped to one Kubernetes resource.
func (l *Logger) WithResource(kind, namespace, name string) *Logger {
	return l.WithValues("kind", kind, "namespace", namespace, "name", name)
}

// InfoEvent logs an informational event.
func (l *Logger) InfoEvent(msg string, args ...any) {
	l.Info(msg, args...)
}

// DebugEvent logs a debug event.
func (l *Logger) DebugEvent(msg string, args ...any) {
	l.Debug(msg, args...)
}

// WarnEvent logs a warning event.
func (l *Logger) WarnEvent(msg string, args ...any) {
	l.Warn(msg, args...)
}

// ErrorEvent logs an error event with the error attached.
func (l *Logger) ErrorEvent(err error, msg string, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	l.Error(msg, args...)
}

// ReconcileStart marks the beginning of a reconciliation cycle and returns
// a logger scoped to the resource under reconciliation.
func (l *Logger) ReconcileStart(namespace, name string) *Logger {
	scoped := l.WithValues("namespace", namespace, "name", name)
	scoped.InfoEvent("Reconciliation started")
	return scoped
}

// ReconcileSuccess records a completed cycle.
func (l *Logger) ReconcileSuccess(namespace, name string, durationSeconds float64) {
	l.InfoEvent("Reconciliation succeeded",
		"namespace", namespace,
		"name", name,
		"durationSeconds", durationSeconds,
	)
}

// ReconcileError records a failed cycle.
func (l *Logger) ReconcileError(namespace, name string, err error, durationSeconds float64) {
	l.ErrorEvent(err, "Reconciliation failed",
		"namespace", namespace,
		"name", name,
		"durationSeconds", durationSeconds,
	)
}

// PatchWritten records a patch artifact landing in the working copy.
func (l *Logger) PatchWritten(path string, operations int) {
	l.InfoEvent("Patch artifact written", "path", path, "operations", operations)
}

// BranchEnsured records the reuse-or-create decision for the change branch.
func (l *Logger) BranchEnsured(branch string, created bool) {
	l.InfoEvent("Change branch ensured", "branch", branch, "created", created)
}

// PushCompleted records a successful force-push of the change branch.
func (l *Logger) PushCompleted(branch, commit string) {
	l.InfoEvent("Branch pushed", "branch", branch, "commit", commit)
}

// PRCreated records a newly opened review request.
func (l *Logger) PRCreated(number int, url string) {
	l.InfoEvent("Pull request created", "number", number, "url", url)
}

// PRReused records that an existing open review request covers the branch.
func (l *Logger) PRReused(number int, url string) {
	l.InfoEvent("Pull request reused", "number", number, "url", url)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
