// Package logger provides structured logging for libcat-cli.
//
// This package wraps log/slog:
//
//   - logger.go: Logger interface, configuration and the global default
//   - context.go: Context-aware logging with request IDs
//   - redact.go: Bearer token and password redaction
//
// Output goes to stderr so that it never mixes with command output on stdout.
// The default level is warn; --verbose switches to debug.
package logger
