package pipeline

import (
	"errors"
	"fmt"
)

// ErrAborted is returned when the confirmation gate is declined. Nothing has
// been created when it is returned.
var ErrAborted = errors.New("run aborted before any changes were made")

// ConfigurationError reports a missing or invalid run input.
type ConfigurationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// FileNotFoundError reports an input file that does not exist or cannot be
// read.
type FileNotFoundError struct {
	Path string
	Err  error
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("CSV file not found: %s: %v", e.Path, e.Err)
}

func (e *FileNotFoundError) Unwrap() error { return e.Err }

// AccessError reports a failed repository access probe.
type AccessError struct {
	Repository string
	Err        error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("cannot access repository %s: %v", e.Repository, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }
