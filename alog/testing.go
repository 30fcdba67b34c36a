package alog

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Test returns a logger tuned for unit testing.
// It logs everything down to debug level as text and
// exposes log-specific assertions following stretchr/testify.
//
// Every assert func returns a bool indicating whether the assertion was successful or not.
func Test(t *testing.T) *TestLogger {
	t.Helper()

	buf := &testBuffer{}

	return &TestLogger{
		Logger: New(
			WithLevel(slog.LevelDebug),
			WithHandler(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
		),
		t:   t,
		buf: buf,
	}
}

// TestLogger is a special logger for unit testing.
// Inject its Logger as a dependency and assert on all the lines logged with it.
type TestLogger struct {
	*slog.Logger

	t   *testing.T
	buf *testBuffer
}

// String returns the complete log output.
func (l *TestLogger) String() string {
	return strings.Join(l.buf.snapshot(), "")
}

func (l *TestLogger) Lines() []string {
	return l.buf.snapshot()
}

// Empty asserts that the logger has no lines logged.
func (l *TestLogger) Empty(msgAndArgs ...any) bool {
	l.t.Helper()

	if lines := l.buf.snapshot(); len(lines) > 0 {
		return assert.Fail(l.t, fmt.Sprintf("logger is not empty, it has %d line(s)", len(lines)), msgAndArgs...)
	}

	return true
}

// Contains asserts that at least one line contains the given substring.
func (l *TestLogger) Contains(contains string, msgAndArgs ...any) bool {
	l.t.Helper()

	for _, line := range l.buf.snapshot() {
		if strings.Contains(line, contains) {
			return true
		}
	}

	return assert.Fail(l.t, "log output does not have a line which contains: "+contains, msgAndArgs...)
}

// NotContains asserts that no line of the log output contains the given substring.
func (l *TestLogger) NotContains(notContains string, msgAndArgs ...any) bool {
	l.t.Helper()

	for _, line := range l.buf.snapshot() {
		if strings.Contains(line, notContains) {
			return assert.Fail(l.t, "log output contains: "+notContains+", should not be", msgAndArgs...)
		}
	}

	return true
}

// Total asserts that the logger has exactly total number of lines logged.
func (l *TestLogger) Total(total int, msgAndArgs ...any) bool {
	l.t.Helper()

	if lines := l.buf.snapshot(); len(lines) != total {
		return assert.Fail(l.t, fmt.Sprintf("logger does not have %d lines, it has: %d", total, len(lines)), msgAndArgs...)
	}

	return true
}

// testBuffer keeps every write as its own line.
// slog handlers write each record with a single call to Write.
type testBuffer struct {
	mu    sync.Mutex
	lines []string
}

func (b *testBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lines = append(b.lines, string(p))

	return len(p), nil
}

func (b *testBuffer) snapshot() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	lines := make([]string, len(b.lines))
	copy(lines, b.lines)

	return lines
}
