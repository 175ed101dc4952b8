// Package logging provides the structured loggers used across a run.
//
// Entries carry a severity, a message, the run id and optional labels and
// fields. Every message is passed through the security sanitizer before it
// reaches a sink, so credentials never end up in logs.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/andywolf/csv2issues/internal/security"
)

// Severity levels for structured logs
type Severity string

const (
	SeverityDebug   Severity = "DEBUG"
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// Logger is implemented by every log sink.
type Logger interface {
	Log(severity Severity, message string, fields map[string]interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Flush() error
	Close() error
}

// LogEntry is one structured log line.
type LogEntry struct {
	Severity  Severity               `json:"severity"`
	Message   string                 `json:"message"`
	Timestamp string                 `json:"timestamp"`
	RunID     string                 `json:"run_id,omitempty"`
	Labels    map[string]string      `json:"labels,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Option configures the JSON and text loggers.
type Option func(*base)

// WithRunID tags every entry with the run id.
func WithRunID(id string) Option {
	return func(b *base) {
		b.runID = id
	}
}

// WithLabels adds labels to every entry.
func WithLabels(labels map[string]string) Option {
	return func(b *base) {
		for k, v := range labels {
			b.labels[k] = v
		}
	}
}

// WithSanitizer replaces the default sanitizer.
func WithSanitizer(s *security.LogSanitizer) Option {
	return func(b *base) {
		if s != nil {
			b.sanitizer = s
		}
	}
}

// WithVerbose enables DEBUG entries.
func WithVerbose(verbose bool) Option {
	return func(b *base) {
		b.verbose = verbose
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		b.now = now
	}
}

// base holds what the writer-backed loggers share.
type base struct {
	mu        sync.Mutex
	writer    io.Writer
	runID     string
	labels    map[string]string
	sanitizer *security.LogSanitizer
	verbose   bool
	now       func() time.Time
	write     func(entry LogEntry)
}

func newBase(w io.Writer, opts []Option) *base {
	b := &base{
		writer:    w,
		labels:    map[string]string{"component": "csv2issues"},
		sanitizer: security.NewLogSanitizer(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Log writes a structured entry.
func (b *base) Log(severity Severity, message string, fields map[string]interface{}) {
	if severity == SeverityDebug && !b.verbose {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.writer == nil {
		return
	}

	var sanitized map[string]interface{}
	if len(fields) > 0 {
		sanitized = make(map[string]interface{}, len(fields))
		for k, v := range fields {
			if s, ok := v.(string); ok {
				v = b.sanitizer.Sanitize(s)
			}
			sanitized[k] = v
		}
	}

	b.write(LogEntry{
		Severity:  severity,
		Message:   b.sanitizer.Sanitize(message),
		Timestamp: b.now().UTC().Format(time.RFC3339Nano),
		RunID:     b.runID,
		Labels:    b.labels,
		Fields:    sanitized,
	})
}

func (b *base) Debugf(format string, args ...interface{}) {
	b.Log(SeverityDebug, fmt.Sprintf(format, args...), nil)
}

func (b *base) Infof(format string, args ...interface{}) {
	b.Log(SeverityInfo, fmt.Sprintf(format, args...), nil)
}

func (b *base) Warningf(format string, args ...interface{}) {
	b.Log(SeverityWarning, fmt.Sprintf(format, args...), nil)
}

func (b *base) Errorf(format string, args ...interface{}) {
	b.Log(SeverityError, fmt.Sprintf(format, args...), nil)
}

// Flush syncs the writer when it supports it.
func (b *base) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if syncer, ok := b.writer.(interface{ Sync() error }); ok {
		return syncer.Sync()
	}
	return nil
}

// Close is a no-op; the writer is owned by the caller.
func (b *base) Close() error {
	return nil
}

// JSONLogger writes one JSON object per line, compatible with the Cloud
// Logging structured format.
type JSONLogger struct {
	*base
}

// NewJSONLogger creates a JSON logger writing to w.
func NewJSONLogger(w io.Writer, opts ...Option) *JSONLogger {
	l := &JSONLogger{base: newBase(w, opts)}
	l.write = func(entry LogEntry) {
		fmt.Fprintln(l.writer, FormatEntry(entry))
	}
	return l
}

// TextLogger writes human readable lines: "LEVEL message key=value".
type TextLogger struct {
	*base
}

// NewTextLogger creates a console logger writing to w.
func NewTextLogger(w io.Writer, opts ...Option) *TextLogger {
	l := &TextLogger{base: newBase(w, opts)}
	l.write = func(entry LogEntry) {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("%-7s %s", entry.Severity, entry.Message))
		keys := make([]string, 0, len(entry.Fields))
		for k := range entry.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf(" %s=%v", k, entry.Fields[k]))
		}
		fmt.Fprintln(l.writer, sb.String())
	}
	return l
}

// FormatEntry renders entry as a JSON string.
func FormatEntry(entry LogEntry) string {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Sprintf(`{"severity":"ERROR","message":"failed to marshal log entry: %v"}`, err)
	}
	return string(data)
}

// New returns a text or JSON logger depending on format ("text" or "json").
func New(format string, w io.Writer, opts ...Option) (Logger, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return NewTextLogger(w, opts...), nil
	case "json":
		return NewJSONLogger(w, opts...), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (must be text or json)", format)
	}
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Log(Severity, string, map[string]interface{}) {}
func (NopLogger) Debugf(string, ...interface{})                {}
func (NopLogger) Infof(string, ...interface{})                 {}
func (NopLogger) Warningf(string, ...interface{})              {}
func (NopLogger) Errorf(string, ...interface{})                {}
func (NopLogger) Flush() error                                 { return nil }
func (NopLogger) Close() error                                 { return nil }

var (
	_ Logger = (*JSONLogger)(nil)
	_ Logger = (*TextLogger)(nil)
	_ Logger = NopLogger{}
)
