package logging

import (
	"regexp"
)

// RedactedText is the replacement text for sensitive data.
const RedactedText = "[REDACTED]"

var (
	// Matches password=xxx, pwd=xxx, pass=xxx in DSN-style strings
	// (until the next delimiter).
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Matches bearer tokens (Databricks personal access tokens travel this way).
	bearerPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_.]+`)

	// Matches token/access_token query or config parameters.
	tokenPattern = regexp.MustCompile(`(?i)(access[_-]?token|token)=[A-Za-z0-9-_]{8,}`)

	// Matches user:pass@ credentials embedded in connection URLs and DSNs,
	// including the mysql form user:pass@tcp(host:port)/db.
	connStringPattern = regexp.MustCompile(`[^:/@\s(]+:[^:/@\s]+@`)
)

// SanitizeConnectionString removes credentials from connection strings and
// DSNs before they are logged. Handles both URL form (user:pass@host) and
// the mysql DSN form (user:pass@tcp(host:port)/db).
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, RedactedText+"@")
	return sanitized
}

// SanitizeError scrubs error messages that may echo credentials back from a
// driver or a remote API. Use this before logging any connector error.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(err.Error(), "${1}="+RedactedText)
	sanitized = bearerPattern.ReplaceAllString(sanitized, "Bearer "+RedactedText)
	sanitized = tokenPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, RedactedText+"@")
	return sanitized
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
