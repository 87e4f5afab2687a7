package credential

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// fileRecord is the on-disk layout of a FileStore.
type fileRecord struct {
	Name     string    `yaml:"name"`
	Cipher   string    `yaml:"cipher"`
	Sealed   string    `yaml:"sealed"`
	Expires  time.Time `yaml:"expires"`
	Secure   bool      `yaml:"secure"`
	SameSite string    `yaml:"same_site"`
}

// FileStore keeps the credential in a single YAML file.
// The token itself is sealed with the key from keyFile; the cookie name is
// bound to the ciphertext as additional data.
type FileStore struct {
	path    string
	keyFile string
	now     func() time.Time
}

// NewFileStore creates a file-backed store. Nothing is touched on disk
// until the first Set.
func NewFileStore(path, keyFile string) *FileStore {
	if keyFile == "" {
		keyFile = path + ".key"
	}
	return &FileStore{path: path, keyFile: keyFile, now: time.Now}
}

// Path returns the record location.
func (s *FileStore) Path() string {
	return s.path
}

// Get implements Store.
func (s *FileStore) Get(ctx context.Context) (Cookie, error) {
	if err := ctx.Err(); err != nil {
		return Cookie{}, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Cookie{}, ErrNotFound
	}
	if err != nil {
		return Cookie{}, fmt.Errorf("credential: read %s: %w", s.path, err)
	}

	var rec fileRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return Cookie{}, fmt.Errorf("credential: parse %s: %w", s.path, err)
	}

	if !rec.Expires.IsZero() && !s.now().Before(rec.Expires) {
		_ = s.Remove(ctx)
		return Cookie{}, ErrNotFound
	}

	key, err := LoadKey(s.keyFile)
	if errors.Is(err, fs.ErrNotExist) {
		return Cookie{}, ErrNotFound
	}
	if err != nil {
		return Cookie{}, err
	}
	sl, err := newSealer(key, CipherType(rec.Cipher))
	if err != nil {
		return Cookie{}, err
	}
	sealed, err := base64.StdEncoding.DecodeString(rec.Sealed)
	if err != nil {
		return Cookie{}, fmt.Errorf("credential: decode: %w", err)
	}
	value, err := sl.open(sealed, []byte(rec.Name))
	if err != nil {
		return Cookie{}, fmt.Errorf("credential: open sealed token: %w", err)
	}

	return Cookie{
		Name:     rec.Name,
		Value:    string(value),
		Expires:  rec.Expires,
		Secure:   rec.Secure,
		SameSite: SameSite(rec.SameSite),
	}, nil
}

// Set implements Store.
func (s *FileStore) Set(ctx context.Context, c Cookie) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("credential: create dir: %w", err)
	}
	key, err := LoadOrCreateKey(s.keyFile)
	if err != nil {
		return err
	}
	sl, err := newSealer(key, defaultCipher())
	if err != nil {
		return err
	}
	sealed, err := sl.seal([]byte(c.Value), []byte(c.Name))
	if err != nil {
		return fmt.Errorf("credential: seal: %w", err)
	}

	data, err := yaml.Marshal(fileRecord{
		Name:     c.Name,
		Cipher:   string(sl.kind),
		Sealed:   base64.StdEncoding.EncodeToString(sealed),
		Expires:  c.Expires.UTC(),
		Secure:   c.Secure,
		SameSite: string(c.SameSite),
	})
	if err != nil {
		return fmt.Errorf("credential: encode: %w", err)
	}
	if err := writeFileAtomic(s.path, data, 0o600); err != nil {
		return fmt.Errorf("credential: write %s: %w", s.path, err)
	}
	return nil
}

// Remove implements Store.
func (s *FileStore) Remove(ctx context.Context) error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("credential: remove %s: %w", s.path, err)
	}
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	return nil
}
