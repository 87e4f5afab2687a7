// Package logger provides structured logging for libcat-cli.
package logger

import (
	"log/slog"
	"strings"
)

// Sensitive key patterns that should be redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"credential",
	"authorization",
	"bearer",
	"admin_code",
	"cookie",
}

const redactedValue = "***REDACTED***"

func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()

		// Value-shaped detection wins over key-based detection.
		if IsSensitiveValue(strVal) {
			return slog.String(a.Key, RedactString(strVal))
		}

		if strVal != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// maskValue keeps the first and last three characters of body.
func maskValue(prefix, body string) string {
	if len(body) <= 6 {
		return prefix + "***"
	}
	return prefix + body[:3] + "..." + body[len(body)-3:]
}

// RedactString masks a bearer token, keeping enough to tell tokens apart.
//
// Sanctum-style tokens ("42|secret") keep their numeric ID; JWTs keep the
// "eyJ" header marker. Other values are returned unchanged.
func RedactString(value string) string {
	v := strings.TrimPrefix(value, "Bearer ")
	if id, secret, ok := splitSanctum(v); ok {
		return maskValue(id+"|", secret)
	}
	if isJWT(v) {
		return maskValue("", v)
	}
	return value
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// IsSensitiveValue checks if a value looks like a bearer token.
func IsSensitiveValue(value string) bool {
	v := strings.TrimPrefix(value, "Bearer ")
	if _, _, ok := splitSanctum(v); ok {
		return true
	}
	return isJWT(v)
}

func splitSanctum(v string) (id, secret string, ok bool) {
	idx := strings.IndexByte(v, '|')
	if idx <= 0 || idx == len(v)-1 || strings.ContainsAny(v, " \t") {
		return "", "", false
	}
	for _, r := range v[:idx] {
		if r < '0' || r > '9' {
			return "", "", false
		}
	}
	return v[:idx], v[idx+1:], len(v[idx+1:]) >= 16
}

func isJWT(v string) bool {
	return strings.HasPrefix(v, "eyJ") && strings.Count(v, ".") == 2 && !strings.ContainsAny(v, " \t")
}
