// Package credential persists the session bearer token between CLI runs.
package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	// DefaultName is the cookie name the token is stored under.
	DefaultName = "authToken"

	// DefaultMaxAge is how long a stored token stays valid.
	DefaultMaxAge = 7 * 24 * time.Hour
)

// ErrNotFound is returned when no usable credential is stored.
var ErrNotFound = errors.New("credential: not found")

// SameSite mirrors the cookie SameSite attribute.
type SameSite string

const (
	SameSiteStrict SameSite = "Strict"
	SameSiteLax    SameSite = "Lax"
)

// Cookie is a persisted bearer token.
type Cookie struct {
	Name     string
	Value    string
	Expires  time.Time
	Secure   bool
	SameSite SameSite
}

// NewCookie builds a cookie that expires maxAge after now.
func NewCookie(name, value string, maxAge time.Duration, secure bool, now time.Time) Cookie {
	if name == "" {
		name = DefaultName
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return Cookie{
		Name:     name,
		Value:    value,
		Expires:  now.Add(maxAge).UTC(),
		Secure:   secure,
		SameSite: SameSiteStrict,
	}
}

// Expired reports whether the cookie is past its expiry at now.
// A zero Expires never expires.
func (c Cookie) Expired(now time.Time) bool {
	return !c.Expires.IsZero() && !now.Before(c.Expires)
}

// TTL returns the remaining lifetime at now.
func (c Cookie) TTL(now time.Time) time.Duration {
	if c.Expires.IsZero() {
		return 0
	}
	return c.Expires.Sub(now)
}

// Store persists a single credential.
type Store interface {
	// Get returns the stored cookie or ErrNotFound.
	Get(ctx context.Context) (Cookie, error)

	// Set replaces the stored cookie.
	Set(ctx context.Context, c Cookie) error

	// Remove deletes the stored cookie. Removing nothing is not an error.
	Remove(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	Path    string
	KeyFile string
	Name    string
	Logger  *slog.Logger
}

// Open creates the store described by cfg.
func Open(cfg Config) (Store, error) {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	switch strings.ToLower(cfg.Backend) {
	case "", BackendFile:
		return NewFileStore(cfg.Path, cfg.KeyFile), nil
	case BackendBadger:
		key, err := LoadOrCreateKey(cfg.KeyFile)
		if err != nil {
			return nil, err
		}
		return OpenBadgerStore(cfg.Path, cfg.Name, key, cfg.Logger)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("credential: unknown backend %q", cfg.Backend)
	}
}
