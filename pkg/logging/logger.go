// Package logging is a small structured logger.
// Entries are JSON objects, and details attached to a context with ContextWith
// end up in every entry logged with that context.
package logging

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"go.llib.dev/testcase/clock"
)

// Logger writes one JSON object per entry to Out.
// The zero value logs at info level to the standard output.
type Logger struct {
	Out   io.Writer
	Level Level

	// MessageKey, LevelKey and TimestampKey rename the fixed keys of an entry.
	MessageKey   string
	LevelKey     string
	TimestampKey string
	// KeyFormatter [optional] rewrites every key, e.g. strings.ToUpper.
	KeyFormatter func(string) string
	// Separator is written after each entry, "\n" by default.
	Separator string
	// TestingTB [optional] makes the logging calls test helpers,
	// so test output points at the caller instead of this package.
	TestingTB testingTB

	mu sync.Mutex
}

type testingTB interface {
	Helper()
}

func (l *Logger) Debug(ctx context.Context, msg string, ds ...Detail) {
	l.helper()
	l.Log(ctx, LevelDebug, msg, ds...)
}

func (l *Logger) Info(ctx context.Context, msg string, ds ...Detail) {
	l.helper()
	l.Log(ctx, LevelInfo, msg, ds...)
}

func (l *Logger) Warn(ctx context.Context, msg string, ds ...Detail) {
	l.helper()
	l.Log(ctx, LevelWarn, msg, ds...)
}

func (l *Logger) Error(ctx context.Context, msg string, ds ...Detail) {
	l.helper()
	l.Log(ctx, LevelError, msg, ds...)
}

func (l *Logger) Fatal(ctx context.Context, msg string, ds ...Detail) {
	l.helper()
	l.Log(ctx, LevelFatal, msg, ds...)
}

// Log writes an entry when level is enabled. Details given here win over the context details.
func (l *Logger) Log(ctx context.Context, level Level, msg string, ds ...Detail) {
	l.helper()
	if !level.enabledBy(l.level()) {
		return
	}
	e := make(entry)
	for _, d := range append(contextDetails(ctx), ds...) {
		if d != nil {
			d.addTo(l, e)
		}
	}
	e[l.fixedKey(l.LevelKey, "level")] = level
	e[l.fixedKey(l.MessageKey, "message")] = msg
	e[l.fixedKey(l.TimestampKey, "timestamp")] = clock.Now().Format(time.RFC3339)

	bs, err := json.Marshal(e)
	if err != nil {
		return
	}
	sep := l.Separator
	if sep == "" {
		sep = "\n"
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	var out io.Writer = os.Stdout
	if l.Out != nil {
		out = l.Out
	}
	_, _ = out.Write(append(bs, sep...))
}

func (l *Logger) level() Level {
	if l.Level == "" {
		return defaultLevel
	}
	return l.Level
}

func (l *Logger) formatKey(key string) string {
	if l.KeyFormatter == nil {
		return key
	}
	return l.KeyFormatter(key)
}

func (l *Logger) fixedKey(custom, fallback string) string {
	if custom != "" {
		return l.formatKey(custom)
	}
	return l.formatKey(fallback)
}

func (l *Logger) helper() {
	if l.TestingTB != nil {
		l.TestingTB.Helper()
	}
}
