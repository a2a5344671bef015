package page

import (
	"sync"
	"time"
)

const (
	DefaultMaxRuntimeErrors = 5
	DefaultErrorWindow      = 30 * time.Second
)

// RuntimeError is a console.error call or an uncaught exception.
type RuntimeError struct {
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	Stack     string `json:"stack,omitempty"`
}

// ErrorLog keeps at most limit runtime errors from the recent window.
type ErrorLog struct {
	mu      sync.Mutex
	entries []RuntimeError
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewErrorLog creates a log. Non-positive arguments use the defaults.
func NewErrorLog(limit int, window time.Duration) *ErrorLog {
	if limit <= 0 {
		limit = DefaultMaxRuntimeErrors
	}
	if window <= 0 {
		window = DefaultErrorWindow
	}
	return &ErrorLog{limit: limit, window: window, now: time.Now}
}

// Add records an error and prunes expired and excess entries.
func (l *ErrorLog) Add(message, stack string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.entries = append(l.entries, RuntimeError{
		Message:   message,
		Timestamp: now.UnixMilli(),
		Stack:     stack,
	})
	l.entries = l.prune(now)
}

// Reset drops every entry.
func (l *ErrorLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// Recent returns a copy of the errors inside the window.
func (l *ErrorLog) Recent() []RuntimeError {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = l.prune(l.now())
	if len(l.entries) == 0 {
		return nil
	}
	return append([]RuntimeError(nil), l.entries...)
}

func (l *ErrorLog) prune(now time.Time) []RuntimeError {
	cutoff := now.Add(-l.window).UnixMilli()
	kept := l.entries[:0]
	for _, e := range l.entries {
		if e.Timestamp > cutoff {
			kept = append(kept, e)
		}
	}
	if len(kept) > l.limit {
		kept = append(kept[:0], kept[len(kept)-l.limit:]...)
	}
	return kept
}
