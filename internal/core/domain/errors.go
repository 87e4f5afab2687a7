package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Kind groups error codes by how the console reacts to them.
type Kind uint8

const (
	KindInternal Kind = iota
	KindInput         // rejected before any request was sent
	KindAuth          // no session, refused credentials or missing role
	KindBackend       // backend unreachable or replying with something unusable
)

// Error is a coded failure. Copies made by WithDetails or Wrap still match
// their sentinel under errors.Is, which compares codes only.
type Error struct {
	Kind    Kind
	Code    string // LC-<AREA>-<NNNN>
	Message string
	Details string // user-facing text, when set
	Cause   error
}

func define(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Details != "" {
		b.WriteString(": ")
		b.WriteString(e.Details)
	}
	b.WriteString(" [")
	b.WriteString(e.Code)
	b.WriteByte(']')
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details string) *Error {
	c := *e
	c.Details = details
	return &c
}

// Wrap returns a copy of e caused by cause.
func (e *Error) Wrap(cause error) *Error {
	c := *e
	c.Cause = cause
	return &c
}

// Text is what the console prints for e.
func (e *Error) Text() string {
	if e.Details != "" {
		return e.Details
	}
	return e.Message
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Exit statuses of libcat-cli.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
	ExitAuth    = 3
	ExitBackend = 4
)

// ExitCode maps err to a process exit status. Backend rejections that carry
// an HTTP status count as backend failures.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch KindOf(err) {
	case KindInput:
		return ExitUsage
	case KindAuth:
		return ExitAuth
	case KindBackend:
		return ExitBackend
	}
	if _, ok := AsAPIError(err); ok {
		return ExitBackend
	}
	return ExitFailure
}

// Input errors.
var (
	// ErrValidation indicates input was rejected before any network call.
	ErrValidation = define(KindInput, "LC-VALD-4000", "validation failed")
	// ErrAdminCodeMismatch indicates the admin registration code did not match.
	ErrAdminCodeMismatch = define(KindInput, "LC-VALD-4001", "invalid admin registration code")
)

// Authentication and session errors.
var (
	ErrAuthRejected     = define(KindAuth, "LC-AUTH-4010", "authentication rejected")
	ErrNotAuthenticated = define(KindAuth, "LC-AUTH-4011", "not signed in")
	ErrAccessDenied     = define(KindAuth, "LC-AUTH-4030", "access denied, admin privileges required")

	// ErrTokenMalformed indicates a stored token failed the structural check.
	ErrTokenMalformed = define(KindAuth, "LC-TOKN-4000", "malformed token")
	// ErrTokenExpired indicates a self-describing token carries a past expiry.
	ErrTokenExpired = define(KindAuth, "LC-TOKN-4011", "token expired")

	// ErrProfileInFlight indicates a profile fetch for the token is already running.
	ErrProfileInFlight = define(KindInternal, "LC-SESS-4090", "profile fetch already in progress")
	// ErrStaleProfile indicates a profile response arrived for a replaced token.
	ErrStaleProfile = define(KindInternal, "LC-SESS-4091", "stale profile response discarded")
)

// Backend and storage errors.
var (
	ErrProfileInvalid     = define(KindBackend, "LC-PROF-5020", "invalid profile response")
	ErrUnexpectedResponse = define(KindBackend, "LC-NET-5020", "unexpected response from backend")
	ErrTransport          = define(KindBackend, "LC-NET-5030", "backend unreachable")

	// ErrCredentialStore indicates the persisted credential could not be read or written.
	ErrCredentialStore = define(KindInternal, "LC-STOR-5000", "credential store error")
)

// APIError is an HTTP error response from the catalog backend.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Errors     map[string][]string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return e.Message
}

// FieldMessages returns the first message of every field error, ordered by field.
func (e *APIError) FieldMessages() []string {
	if len(e.Errors) == 0 {
		return nil
	}
	fields := make([]string, 0, len(e.Errors))
	for f := range e.Errors {
		fields = append(fields, f)
	}
	slices.Sort(fields)

	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		if m := e.Errors[f]; len(m) > 0 && strings.TrimSpace(m[0]) != "" {
			msgs = append(msgs, m[0])
		}
	}
	return msgs
}

// AsAPIError extracts an APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.StatusCode
	}
	return 0
}

// MessageOr returns the server-supplied message in err, or fallback.
func MessageOr(err error, fallback string) string {
	if apiErr, ok := AsAPIError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
