// Package domain defines the core domain models for the library console.
//
// Domain models are plain value types without IO dependencies. This package
// contains:
//
//   - User: account identity with role and status, plus auth payloads
//   - Book: catalog entry with availability and borrow metadata
//   - Errors: coded domain errors and the APIError returned by the backend
//
// Wire shapes follow the catalog REST API (snake_case JSON).
package domain
