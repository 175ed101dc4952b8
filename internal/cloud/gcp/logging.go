// Package gcp connects a run to Google Cloud: structured logs go to Cloud
// Logging and the GitHub token can be read from Secret Manager.
package gcp

import (
	"context"
	"fmt"
	"sync"

	cloudlogging "cloud.google.com/go/logging"
	"google.golang.org/api/option"

	"github.com/andywolf/csv2issues/internal/logging"
	"github.com/andywolf/csv2issues/internal/security"
)

// DefaultLogID is the Cloud Logging log name used for runs.
const DefaultLogID = "csv2issues"

// entryLogger is the part of *cloudlogging.Logger the CloudLogger needs.
type entryLogger interface {
	Log(e cloudlogging.Entry)
	Flush() error
}

// CloudLogger sends entries to Cloud Logging. It implements logging.Logger.
type CloudLogger struct {
	mu        sync.Mutex
	client    *cloudlogging.Client
	logger    entryLogger
	runID     string
	labels    map[string]string
	sanitizer *security.LogSanitizer
	verbose   bool
	closed    bool
}

// CloudLoggerOption configures a CloudLogger.
type CloudLoggerOption func(*CloudLogger)

// WithRunID tags every entry with the run id label.
func WithRunID(id string) CloudLoggerOption {
	return func(cl *CloudLogger) {
		cl.runID = id
		cl.labels["run_id"] = id
	}
}

// WithLabels adds labels to every entry.
func WithLabels(labels map[string]string) CloudLoggerOption {
	return func(cl *CloudLogger) {
		for k, v := range labels {
			cl.labels[k] = v
		}
	}
}

// WithSanitizer replaces the default sanitizer.
func WithSanitizer(s *security.LogSanitizer) CloudLoggerOption {
	return func(cl *CloudLogger) {
		if s != nil {
			cl.sanitizer = s
		}
	}
}

// WithVerbose enables DEBUG entries.
func WithVerbose(verbose bool) CloudLoggerOption {
	return func(cl *CloudLogger) {
		cl.verbose = verbose
	}
}

// NewCloudLogger creates a Cloud Logging client for projectID and returns a
// logger writing to logID.
func NewCloudLogger(ctx context.Context, projectID, logID string, opts []CloudLoggerOption, clientOpts ...option.ClientOption) (*CloudLogger, error) {
	if projectID == "" {
		return nil, fmt.Errorf("project ID is required for Cloud Logging")
	}
	if logID == "" {
		logID = DefaultLogID
	}

	client, err := cloudlogging.NewClient(ctx, projectID, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create logging client: %w", err)
	}

	cl := newCloudLogger(nil, opts)
	cl.client = client
	cl.logger = client.Logger(logID)
	return cl, nil
}

func newCloudLogger(l entryLogger, opts []CloudLoggerOption) *CloudLogger {
	cl := &CloudLogger{
		logger:    l,
		labels:    map[string]string{"component": "csv2issues"},
		sanitizer: security.NewLogSanitizer(),
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

func toCloudSeverity(s logging.Severity) cloudlogging.Severity {
	switch s {
	case logging.SeverityDebug:
		return cloudlogging.Debug
	case logging.SeverityWarning:
		return cloudlogging.Warning
	case logging.SeverityError:
		return cloudlogging.Error
	default:
		return cloudlogging.Info
	}
}

// Log writes a structured entry.
func (cl *CloudLogger) Log(severity logging.Severity, message string, fields map[string]interface{}) {
	if severity == logging.SeverityDebug && !cl.verbose {
		return
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.closed || cl.logger == nil {
		return
	}

	payload := map[string]interface{}{
		"message": cl.sanitizer.Sanitize(message),
	}
	if cl.runID != "" {
		payload["run_id"] = cl.runID
	}
	for k, v := range fields {
		if s, ok := v.(string); ok {
			v = cl.sanitizer.Sanitize(s)
		}
		payload[k] = v
	}

	labels := make(map[string]string, len(cl.labels))
	for k, v := range cl.labels {
		labels[k] = v
	}

	cl.logger.Log(cloudlogging.Entry{
		Severity: toCloudSeverity(severity),
		Payload:  payload,
		Labels:   labels,
	})
}

func (cl *CloudLogger) Debugf(format string, args ...interface{}) {
	cl.Log(logging.SeverityDebug, fmt.Sprintf(format, args...), nil)
}

func (cl *CloudLogger) Infof(format string, args ...interface{}) {
	cl.Log(logging.SeverityInfo, fmt.Sprintf(format, args...), nil)
}

func (cl *CloudLogger) Warningf(format string, args ...interface{}) {
	cl.Log(logging.SeverityWarning, fmt.Sprintf(format, args...), nil)
}

func (cl *CloudLogger) Errorf(format string, args ...interface{}) {
	cl.Log(logging.SeverityError, fmt.Sprintf(format, args...), nil)
}

// Flush sends buffered entries.
func (cl *CloudLogger) Flush() error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.closed || cl.logger == nil {
		return nil
	}
	return cl.logger.Flush()
}

// Close flushes remaining entries and closes the client.
func (cl *CloudLogger) Close() error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.closed {
		return nil
	}
	cl.closed = true

	if cl.client != nil {
		return cl.client.Close()
	}
	if cl.logger != nil {
		return cl.logger.Flush()
	}
	return nil
}

// Tee fans entries out to several loggers.
type Tee []logging.Logger

func (t Tee) Log(severity logging.Severity, message string, fields map[string]interface{}) {
	for _, l := range t {
		l.Log(severity, message, fields)
	}
}

func (t Tee) Debugf(format string, args ...interface{}) {
	t.Log(logging.SeverityDebug, fmt.Sprintf(format, args...), nil)
}

func (t Tee) Infof(format string, args ...interface{}) {
	t.Log(logging.SeverityInfo, fmt.Sprintf(format, args...), nil)
}

func (t Tee) Warningf(format string, args ...interface{}) {
	t.Log(logging.SeverityWarning, fmt.Sprintf(format, args...), nil)
}

func (t Tee) Errorf(format string, args ...interface{}) {
	t.Log(logging.SeverityError, fmt.Sprintf(format, args...), nil)
}

// Flush flushes every logger and returns the first error.
func (t Tee) Flush() error {
	var first error
	for _, l := range t {
		if err := l.Flush(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close closes every logger and returns the first error.
func (t Tee) Close() error {
	var first error
	for _, l := range t {
		if err := l.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var (
	_ logging.Logger = (*CloudLogger)(nil)
	_ logging.Logger = Tee(nil)
)
