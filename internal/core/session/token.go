package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yndnr/libcat-go/internal/core/domain"
)

// DefaultMinTokenLength is the shortest stored token accepted at bootstrap.
const DefaultMinTokenLength = 10

// CheckToken performs the structural check applied to a stored token.
// The token stays opaque; the only inspection beyond length is the exp
// claim of tokens that parse as JWTs.
func CheckToken(token string, minLen int, now time.Time) error {
	if strings.TrimSpace(token) == "" {
		return domain.ErrTokenMalformed.WithDetails("empty token")
	}
	if len(token) < minLen {
		return domain.ErrTokenMalformed.WithDetails(fmt.Sprintf("length %d below minimum %d", len(token), minLen))
	}

	if exp, ok := jwtExpiry(token); ok && !now.Before(exp) {
		return domain.ErrTokenExpired.WithDetails("expired at " + exp.UTC().Format(time.RFC3339))
	}
	return nil
}

// jwtExpiry returns the exp claim of a JWT without verifying its signature.
func jwtExpiry(token string) (time.Time, bool) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
