package session

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yndnr/libcat-go/internal/core/domain"
)

func signedJWT(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestCheckToken(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"sanctum token", "3|abcdefghijklmnopqrstuvwxyz", nil},
		{"exactly minimum", strings.Repeat("x", DefaultMinTokenLength), nil},
		{"one below minimum", strings.Repeat("x", DefaultMinTokenLength-1), domain.ErrTokenMalformed},
		{"empty", "", domain.ErrTokenMalformed},
		{"whitespace", "            ", domain.ErrTokenMalformed},
		{"jwt without exp", signedJWT(t, jwt.MapClaims{"sub": "1"}), nil},
		{"jwt valid", signedJWT(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()}), nil},
		{"jwt expired", signedJWT(t, jwt.MapClaims{"exp": now.Add(-time.Minute).Unix()}), domain.ErrTokenExpired},
		{"dotted opaque token", "not.a.jwt-but-long-enough", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckToken(tt.token, DefaultMinTokenLength, now)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("CheckToken() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckToken() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
