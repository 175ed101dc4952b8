// Package security redacts credentials from text before it is logged or
// written to a report.
package security

import (
	"regexp"
	"strings"
)

var (
	// Classic and fine-grained GitHub tokens (personal, OAuth, app, refresh).
	githubTokenPattern = regexp.MustCompile(`(gh[pousr]_[A-Za-z0-9]{36,}|github_pat_[A-Za-z0-9_]{22,})`)

	bearerTokenPattern = regexp.MustCompile(`(?i)\b(bearer|token)[[:space:]]+([A-Za-z0-9_\-\.]{16,})`)

	jwtPattern = regexp.MustCompile(`eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*`)

	privateKeyPattern = regexp.MustCompile(`(?s)-----BEGIN[[:space:]]+(?:RSA[[:space:]]+)?PRIVATE[[:space:]]+KEY-----.*?-----END[[:space:]]+(?:RSA[[:space:]]+)?PRIVATE[[:space:]]+KEY-----`)

	urlPasswordPattern = regexp.MustCompile(`(?i)(https?)://[^:/\s]+:([^@\s]+)@`)
)

// LogSanitizer masks secrets in log messages. Extra literal secrets (for
// example the configured token) can be registered with AddSecret.
type LogSanitizer struct {
	secrets []string
}

// NewLogSanitizer creates a sanitizer with the built-in patterns.
func NewLogSanitizer() *LogSanitizer {
	return &LogSanitizer{}
}

// AddSecret registers a literal value that must never appear in output.
// Values shorter than 8 characters are ignored to avoid mangling ordinary text.
func (ls *LogSanitizer) AddSecret(secret string) {
	if len(secret) >= 8 {
		ls.secrets = append(ls.secrets, secret)
	}
}

// Sanitize returns message with secrets replaced by placeholders.
func (ls *LogSanitizer) Sanitize(message string) string {
	for _, s := range ls.secrets {
		message = strings.ReplaceAll(message, s, "[REDACTED]")
	}

	message = privateKeyPattern.ReplaceAllString(message, "[REDACTED-PRIVATE-KEY]")
	message = jwtPattern.ReplaceAllString(message, "[REDACTED-JWT]")
	message = githubTokenPattern.ReplaceAllString(message, "[REDACTED-GITHUB-TOKEN]")
	message = bearerTokenPattern.ReplaceAllString(message, "${1} [REDACTED]")
	message = urlPasswordPattern.ReplaceAllString(message, "${1}://[REDACTED]@")

	return message
}

// SanitizeMap sanitizes every value of m into a new map.
func (ls *LogSanitizer) SanitizeMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		if isSensitiveKey(k) {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = ls.Sanitize(v)
	}
	return out
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, keyword := range []string{"password", "secret", "token", "private", "credential"} {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

var defaultSanitizer = NewLogSanitizer()

// Redact sanitizes s with the built-in patterns only.
func Redact(s string) string {
	return defaultSanitizer.Sanitize(s)
}
