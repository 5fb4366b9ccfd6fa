// Package notify delivers user-visible failure notifications, keyed so that
// at most one notification is active per key and a later success can clear
// an earlier failure.
package notify

import (
	"log/slog"
	"sync"
)

// Notifier is consumed by the refresh engine to surface hard failures.
type Notifier interface {
	// NotifyFailure shows (or replaces) the failure notification for key.
	NotifyFailure(key, title, message string, diag map[string]string)
	// Cancel removes any active notification for key. Cancelling an unknown
	// key is a no-op.
	Cancel(key string)
}

// LogNotifier implements Notifier for the headless daemon by writing
// structured log records. It tracks active keys so that repeated failures
// replace rather than stack.
type LogNotifier struct {
	logger *slog.Logger

	mu     sync.Mutex
	active map[string]struct{}
}

// NewLogNotifier creates a LogNotifier writing to the given logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{
		logger: logger,
		active: make(map[string]struct{}),
	}
}

func (n *LogNotifier) NotifyFailure(key, title, message string, diag map[string]string) {
	n.mu.Lock()
	_, replaced := n.active[key]
	n.active[key] = struct{}{}
	n.mu.Unlock()

	attrs := []any{"key", key, "title", title, "message", message, "replaced", replaced}
	for k, v := range diag {
		attrs = append(attrs, "diag_"+k, v)
	}
	n.logger.Error("sync failure", attrs...)
}

func (n *LogNotifier) Cancel(key string) {
	n.mu.Lock()
	_, found := n.active[key]
	delete(n.active, key)
	n.mu.Unlock()

	if found {
		n.logger.Info("sync failure cleared", "key", key)
	}
}

// Active reports whether a notification is currently shown for key.
func (n *LogNotifier) Active(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.active[key]
	return ok
}
