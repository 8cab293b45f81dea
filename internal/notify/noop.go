package notify

import (
	"context"
	"log/slog"
)

// NoOpNotifier is used when no webhook is configured. Events go to the log
// instead: critical ones at WARN so a failing token refresh is still
// visible, everything else at DEBUG.
type NoOpNotifier struct {
	log *slog.Logger
}

func NewNoOpNotifier(log *slog.Logger) *NoOpNotifier {
	return &NoOpNotifier{log: log}
}

// Notify logs e and never fails.
func (n *NoOpNotifier) Notify(ctx context.Context, e *Event) error {
	level := slog.LevelDebug
	if e.Severity == SeverityCritical {
		level = slog.LevelWarn
	}

	args := make([]any, 0, 4+2*len(e.Fields))
	args = append(args, "title", e.Title, "severity", string(e.Severity))
	for _, name := range fieldNames(e.Fields) {
		args = append(args, name, e.Fields[name])
	}

	n.log.Log(ctx, level, "notification not delivered, no webhook configured", args...)
	return nil
}
