// Package credential persists the session bearer token between CLI runs.
//
// The token is modelled as a cookie: a named value with an expiry, a secure
// flag and a SameSite policy. Three backends implement Store:
//
//   - FileStore: a YAML record with the token sealed by an AEAD cipher.
//   - BadgerStore: an encrypted Badger directory with per-entry TTL.
//   - MemoryStore: process-local, used by tests and --ephemeral.
//
// Expired credentials are never returned; Get reports ErrNotFound instead.
package credential
