// Package domain defines the core domain models for the library console.
package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Role is the coarse authorization tier of an account.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the recognized roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// AccountStatus is the activation state of an account.
type AccountStatus string

const (
	AccountActive   AccountStatus = "active"
	AccountInactive AccountStatus = "inactive"
)

// Toggle returns the opposite status.
func (s AccountStatus) Toggle() AccountStatus {
	if s == AccountActive {
		return AccountInactive
	}
	return AccountActive
}

// User is the identity record returned by the profile endpoint.
type User struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Role      Role          `json:"role"`
	Status    AccountStatus `json:"status"`
	CreatedAt string        `json:"created_at,omitempty"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Clone returns a copy of u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// Status is the loosely typed "status" field of backend envelopes.
// The backend sends either a boolean or a string such as "success".
type Status struct {
	set   bool
	isStr bool
	b     bool
	s     string
}

// BoolStatus returns a boolean Status.
func BoolStatus(v bool) Status { return Status{set: true, b: v} }

// StringStatus returns a string Status.
func StringStatus(v string) Status { return Status{set: true, isStr: true, s: v} }

// UnmarshalJSON accepts true/false, a string, or null.
func (s *Status) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = Status{}
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*s = BoolStatus(b)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = StringStatus(str)
	return nil
}

// MarshalJSON writes the status back in its original shape.
func (s Status) MarshalJSON() ([]byte, error) {
	switch {
	case !s.set:
		return []byte("null"), nil
	case s.isStr:
		return json.Marshal(s.s)
	default:
		return json.Marshal(s.b)
	}
}

// Present reports whether the field was sent.
func (s Status) Present() bool { return s.set }

// Failed reports an explicit failure flag (false, "error", "fail", "failed").
func (s Status) Failed() bool {
	if !s.set {
		return false
	}
	if !s.isStr {
		return !s.b
	}
	switch strings.ToLower(s.s) {
	case "error", "fail", "failed", "failure":
		return true
	}
	return false
}

// Success reports an explicit success flag (true or "success").
func (s Status) Success() bool {
	if !s.set {
		return false
	}
	if !s.isStr {
		return s.b
	}
	return s.s == "success"
}

// String returns the raw status for logging.
func (s Status) String() string {
	switch {
	case !s.set:
		return ""
	case s.isStr:
		return s.s
	case s.b:
		return "true"
	default:
		return "false"
	}
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the body of POST /register.
type Registration struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	Role                 Role   `json:"role"`
	AdminCode            string `json:"admin_code,omitempty"`
}

// Normalize applies the role default and drops the admin code for
// non-privileged registrations.
func (r Registration) Normalize() Registration {
	if r.Role == "" {
		r.Role = RoleUser
	}
	if r.Role != RoleAdmin {
		r.AdminCode = ""
	}
	return r
}

// AuthResponse is the body returned by /login and /register.
type AuthResponse struct {
	Token   string `json:"token"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	User    *User  `json:"user,omitempty"`
}

// ProfileEnvelope is the body returned by GET /profile.
type ProfileEnvelope struct {
	Status  Status `json:"status"`
	Data    *User  `json:"data"`
	Message string `json:"message,omitempty"`
}

// ProfileUpdate is the body of PUT /user/profile.
type ProfileUpdate struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// PasswordChange is the body of PUT /user/change-password.
type PasswordChange struct {
	CurrentPassword         string `json:"current_password"`
	NewPassword             string `json:"new_password"`
	NewPasswordConfirmation string `json:"new_password_confirmation"`
}

// UserInput is the body of POST /users and PUT /users/{id}.
type UserInput struct {
	Name     string        `json:"name"`
	Email    string        `json:"email"`
	Role     Role          `json:"role"`
	Status   AccountStatus `json:"status"`
	Password string        `json:"password,omitempty"`
}

// UserPage is one page of GET /users.
type UserPage struct {
	CurrentPage int    `json:"current_page"`
	LastPage    int    `json:"last_page"`
	PerPage     int    `json:"per_page"`
	Total       int    `json:"total"`
	Users       []User `json:"data"`
}
