package session

import (
	"crypto/subtle"
	"strings"

	"github.com/yndnr/libcat-go/internal/core/domain"
)

// VerifyRegistration applies the checks a caller must pass before Register
// is invoked. expectedAdminCode is the code an admin registration must
// present; when it is empty, admin registration is refused.
func VerifyRegistration(reg domain.Registration, expectedAdminCode string) error {
	reg = reg.Normalize()

	if strings.TrimSpace(reg.Name) == "" || strings.TrimSpace(reg.PasswordConfirmation) == "" {
		return domain.ErrValidation.WithDetails("Name and password confirmation are required")
	}
	if strings.TrimSpace(reg.Email) == "" || reg.Password == "" {
		return domain.ErrValidation.WithDetails("Email and password are required")
	}
	if reg.Password != reg.PasswordConfirmation {
		return domain.ErrValidation.WithDetails("Passwords do not match")
	}
	if !reg.Role.Valid() {
		return domain.ErrValidation.WithDetails("Unknown role " + string(reg.Role))
	}

	if reg.Role == domain.RoleAdmin {
		if reg.AdminCode == "" {
			return domain.ErrValidation.WithDetails("Admin registration code is required")
		}
		if expectedAdminCode == "" ||
			subtle.ConstantTimeCompare([]byte(reg.AdminCode), []byte(expectedAdminCode)) != 1 {
			return domain.ErrAdminCodeMismatch.WithDetails("Invalid admin registration code")
		}
	}
	return nil
}
