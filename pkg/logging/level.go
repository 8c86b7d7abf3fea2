package logging

import (
	"os"
	"strings"
)

type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)

func (ll Level) String() string { return string(ll) }

var defaultLevel = LevelInfo

func (ll Level) rank() int {
	switch ll {
	case LevelDebug:
		return 0
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	case LevelFatal:
		return 4
	default:
		return 1
	}
}

// enabledBy reports whether an entry at ll passes a logger set to threshold.
func (ll Level) enabledBy(threshold Level) bool {
	return threshold.rank() <= ll.rank()
}

// ParseLevel maps a textual level, as used in LOG_LEVEL, to a Level.
func ParseLevel(raw string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	case "fatal", "critical":
		return LevelFatal, true
	default:
		return "", false
	}
}

func init() {
	if level, ok := ParseLevel(os.Getenv("LOG_LEVEL")); ok {
		defaultLevel = level
	}
}
