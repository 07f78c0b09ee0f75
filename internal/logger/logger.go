package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level represents log severity
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case DEBUG:
		return zerolog.DebugLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ParseLevel maps a LOG_LEVEL value to a Level, defaulting to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Logger provides structured, component-scoped logging on top of zerolog.
// Component loggers resolve the root logger on every call, so package-level
// loggers created before Init still honor the configured output and level.
type Logger struct {
	root      *zerolog.Logger
	component string
	fields    map[string]interface{}
}

// Config for creating a new logger
type Config struct {
	Output   io.Writer
	MinLevel Level
	UseColor bool
	// JSON disables the console writer and emits one JSON object per line.
	JSON bool
}

var (
	mu            sync.RWMutex
	defaultLogger *Logger
)

// Init (re)configures the default logger.
func Init(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	out := cfg.Output
	if !cfg.JSON {
		out = zerolog.ConsoleWriter{
			Out:        cfg.Output,
			NoColor:    !cfg.UseColor,
			TimeFormat: "2006-01-02 15:04:05.000",
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zl := zerolog.New(out).Level(cfg.MinLevel.zerolog()).With().Timestamp().Logger()

	mu.Lock()
	defaultLogger = &Logger{root: &zl}
	mu.Unlock()

	// Redirect standard log to our logger
	log.SetOutput(&logAdapter{})
	log.SetFlags(0)
}

// logAdapter adapts standard log to our logger
type logAdapter struct{}

func (a *logAdapter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	Default().Info("%s", msg)
	return len(p), nil
}

// Default returns the default logger
func Default() *Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l != nil {
		return l
	}

	Init(Config{
		Output:   os.Stdout,
		MinLevel: INFO,
		UseColor: true,
	})
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// WithComponent creates a logger with a component name
func WithComponent(component string) *Logger {
	return &Logger{component: component}
}

// Zerolog returns the resolved zerolog logger carrying this logger's component and fields.
func (l *Logger) Zerolog() zerolog.Logger {
	ctx := l.base().With()
	if l.component != "" {
		ctx = ctx.Str("component", l.component)
	}
	if len(l.fields) > 0 {
		ctx = ctx.Fields(l.fields)
	}
	return ctx.Logger()
}

func (l *Logger) base() *zerolog.Logger {
	if l.root != nil {
		return l.root
	}
	return Default().root
}

// WithField returns a new logger with an additional field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithFields returns a new logger with additional fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	newFields := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}
	return &Logger{
		root:      l.root,
		component: l.component,
		fields:    newFields,
	}
}

func (l *Logger) log(level Level, msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	zl := l.Zerolog()
	zl.WithLevel(level.zerolog()).Msg(msg)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.log(DEBUG, msg, args...)
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...interface{}) {
	l.log(INFO, msg, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log(WARN, msg, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...interface{}) {
	l.log(ERROR, msg, args...)
}

// ErrorWithStack logs an error with stack trace
func (l *Logger) ErrorWithStack(msg string, err error) {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	zl := l.Zerolog()
	zl.Error().Err(err).Str("stack", string(buf[:n])).Msg(msg)
}

// Package-level convenience functions

func Debug(msg string, args ...interface{}) { Default().Debug(msg, args...) }
func Info(msg string, args ...interface{})  { Default().Info(msg, args...) }
func Warn(msg string, args ...interface{})  { Default().Warn(msg, args...) }
func Error(msg string, args ...interface{}) { Default().Error(msg, args...) }
