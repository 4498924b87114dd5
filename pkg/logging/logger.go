package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

var levelNames = map[LogLevel]string{
	DebugLevel: "DEBUG",
	InfoLevel:  "INFO",
	WarnLevel:  "WARN",
	ErrorLevel: "ERROR",
	FatalLevel: "FATAL",
}

// String returns string representation of log level
func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseLevel maps a configuration string to a LogLevel, defaulting to InfoLevel
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	default:
		return InfoLevel
	}
}

// Fields represents structured log fields
type Fields map[string]interface{}

type contextKey string

const (
	sessionIDKey contextKey = "session_id"
	cityKey      contextKey = "city"
)

// WithSessionID attaches an analysis session or request ID to ctx
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// WithCity attaches the city under analysis to ctx
func WithCity(ctx context.Context, city string) context.Context {
	return context.WithValue(ctx, cityKey, city)
}

// SessionID returns the session ID stored in ctx, if any
func SessionID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}

func cityFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	city, _ := ctx.Value(cityKey).(string)
	return city
}

// sink is the writer and level shared by a logger and everything derived from it with With
type sink struct {
	mu    sync.Mutex
	out   io.Writer
	level LogLevel
}

// StructuredLogger writes one JSON object per line. Messages follow the
// "[TAG] Human readable text" convention so entries can be grepped by tag.
type StructuredLogger struct {
	sink     *sink
	service  string
	version  string
	hostname string
	base     Fields
}

// LogEntry represents a single structured log entry
type LogEntry struct {
	Timestamp  time.Time              `json:"timestamp"`
	Level      string                 `json:"level"`
	Service    string                 `json:"service"`
	Version    string                 `json:"version"`
	Hostname   string                 `json:"hostname"`
	Message    string                 `json:"message"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
	SessionID  string                 `json:"session_id,omitempty"`
	City       string                 `json:"city,omitempty"`
	File       string                 `json:"file,omitempty"`
	Line       int                    `json:"line,omitempty"`
	Function   string                 `json:"function,omitempty"`
	Error      string                 `json:"error,omitempty"`
	StackTrace string                 `json:"stack_trace,omitempty"`
}

// NewStructuredLogger creates a new structured logger writing to stdout
func NewStructuredLogger(service, version string, level LogLevel) *StructuredLogger {
	return NewStructuredLoggerTo(os.Stdout, service, version, level)
}

// NewStructuredLoggerTo creates a structured logger writing to w.
// The interactive shell logs to stderr so stdout stays readable.
func NewStructuredLoggerTo(w io.Writer, service, version string, level LogLevel) *StructuredLogger {
	hostname, _ := os.Hostname()

	return &StructuredLogger{
		sink:     &sink{out: w, level: level},
		service:  service,
		version:  version,
		hostname: hostname,
	}
}

// Discard returns a logger that drops every entry, used by tests
func Discard() *StructuredLogger {
	return NewStructuredLoggerTo(io.Discard, "test", "0.0.0", FatalLevel+1)
}

// SetLevel sets the minimum log level for l and every logger derived from it
func (l *StructuredLogger) SetLevel(level LogLevel) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.level = level
}

// With returns a logger that adds fields to every entry. Fields given on a
// single call win over these.
func (l *StructuredLogger) With(fields Fields) *StructuredLogger {
	derived := *l
	derived.base = merge(l.base, fields)
	return &derived
}

// Debug logs a debug message with structured fields
func (l *StructuredLogger) Debug(ctx context.Context, message string, fields Fields) {
	l.log(ctx, DebugLevel, message, fields, nil)
}

// Info logs an info message with structured fields
func (l *StructuredLogger) Info(ctx context.Context, message string, fields Fields) {
	l.log(ctx, InfoLevel, message, fields, nil)
}

// Warn logs a warning message with structured fields
func (l *StructuredLogger) Warn(ctx context.Context, message string, fields Fields) {
	l.log(ctx, WarnLevel, message, fields, nil)
}

// Error logs an error message with structured fields and error details
func (l *StructuredLogger) Error(ctx context.Context, message string, fields Fields, err error) {
	l.log(ctx, ErrorLevel, message, fields, err)
}

// Fatal logs a fatal message and exits the program
func (l *StructuredLogger) Fatal(ctx context.Context, message string, fields Fields, err error) {
	l.log(ctx, FatalLevel, message, fields, err)
	os.Exit(1)
}

func (l *StructuredLogger) enabled(level LogLevel) bool {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	return level >= l.sink.level
}

func (l *StructuredLogger) log(ctx context.Context, level LogLevel, message string, fields Fields, err error) {
	if !l.enabled(level) {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level.String(),
		Service:   l.service,
		Version:   l.version,
		Hostname:  l.hostname,
		Message:   message,
		Fields:    merge(l.base, fields),
		SessionID: SessionID(ctx),
		City:      cityFrom(ctx),
	}

	if level >= ErrorLevel {
		// skip log and the exported level method
		if pc, file, line, ok := runtime.Caller(2); ok {
			entry.File = file
			entry.Line = line
			if fn := runtime.FuncForPC(pc); fn != nil {
				entry.Function = fn.Name()
			}
		}
		if err != nil {
			entry.Error = err.Error()
		}
		if level == FatalLevel {
			entry.StackTrace = stackTrace()
		}
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	if encodeErr := json.NewEncoder(l.sink.out).Encode(entry); encodeErr != nil {
		fmt.Fprintf(os.Stderr, "%s [%s] %s: %v (log encoding failed: %v)\n",
			entry.Timestamp.Format(time.RFC3339), entry.Level, message, entry.Fields, encodeErr)
	}
}

func merge(base, fields Fields) Fields {
	if len(base) == 0 {
		return fields
	}
	merged := make(Fields, len(base)+len(fields))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return merged
}

func stackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
