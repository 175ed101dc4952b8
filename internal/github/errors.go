package github

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	// Message is the "message" field of the response, or the raw body
	// when the body is not JSON.
	Message string
	Errors  []FieldError
	Body    string
}

// FieldError is one entry of the "errors" array GitHub returns with 422s.
type FieldError struct {
	Resource string `json:"resource"`
	Field    string `json:"field"`
	Code     string `json:"code"`
	Message  string `json:"message,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Hint returns a short remediation hint for common statuses, or "".
func (e *APIError) Hint() string {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return "check that the token is valid and not expired"
	case http.StatusForbidden:
		return "check the token scopes or the rate limit"
	case http.StatusNotFound:
		return "check the repository name and that the token can see it"
	default:
		return ""
	}
}

// TransportError is returned when a request could not be completed.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when a successful response body is not valid JSON.
type DecodeError struct {
	Body string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to parse response: %s", e.Body)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// parseAPIError builds an APIError from a response body.
func parseAPIError(statusCode int, body []byte) error {
	var payload struct {
		Message string       `json:"message"`
		Errors  []FieldError `json:"errors"`
	}
	apiErr := &APIError{StatusCode: statusCode, Body: string(body)}

	if err := json.Unmarshal(body, &payload); err != nil || payload.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
		return apiErr
	}

	apiErr.Message = payload.Message
	apiErr.Errors = payload.Errors
	return apiErr
}

// IsAlreadyExists reports whether err is a validation failure because the
// resource already exists.
func IsAlreadyExists(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, fe := range apiErr.Errors {
		if fe.Code == "already_exists" {
			return true
		}
	}
	return strings.Contains(apiErr.Body, "already_exists")
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
