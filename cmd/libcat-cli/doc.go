// Package main provides the entry point for libcat-cli.
//
// The CLI gives terminal access to a library catalog API:
//
//   - Sign-in, registration and logout with a persisted bearer token
//   - Browsing, borrowing and returning books
//   - Profile and password changes
//   - Book and account administration for admins
//   - Configuration management
//
// Usage:
//
//	libcat-cli [command] [flags]
//	libcat-cli login --email ada@example.com --password ...
//	libcat-cli books list --status available -o json
//	libcat-cli console
//
// The CLI supports both single-command mode and the interactive console.
package main
