// Package notify delivers operator notifications about the proxy's
// marketplace access, such as a token refresh that keeps failing.
package notify

import (
	"context"
	"sort"
	"time"
)

// Severity of an operator event.
type Severity string

// Severities.
const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityResolved Severity = "resolved"
)

// Event is a single operator notification.
type Event struct {
	Title    string
	Detail   string
	Severity Severity
	Fields   map[string]string
	At       time.Time
}

// Notifier sends operator events.
type Notifier interface {
	Notify(ctx context.Context, e *Event) error
}

func fieldNames(fields map[string]string) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
