package logger

import "sync"

// Logger provides structured logging with levels

type Logger struct {
	MinLevel LogLevel
	mu       sync.Mutex
}

// LogLevel represents the severity of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// New returns a logger that discards everything below minLevel.
func New(minLevel LogLevel) *Logger {
	return &Logger{MinLevel: minLevel}
}

// ParseLevel maps a config string to a LogLevel, defaulting to info.
func ParseLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}
