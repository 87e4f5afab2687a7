package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v3"
	"gopkg.in/yaml.v3"
)

const keyPrefix = "credential/"

// badgerRecord is the value layout. Badger encrypts at rest, so the token
// is stored in the clear inside the value.
type badgerRecord struct {
	Value    string    `yaml:"value"`
	Expires  time.Time `yaml:"expires"`
	Secure   bool      `yaml:"secure"`
	SameSite string    `yaml:"same_site"`
}

// BadgerStore keeps the credential in an encrypted Badger directory.
type BadgerStore struct {
	db   *badger.DB
	name string
	now  func() time.Time
}

// OpenBadgerStore opens (or creates) the Badger directory at dir.
func OpenBadgerStore(dir, name string, key []byte, logger *slog.Logger) (*BadgerStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("credential: badger dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if name == "" {
		name = DefaultName
	}

	opts := badger.DefaultOptions(dir).
		WithLogger(&badgerLogger{logger: logger}).
		WithEncryptionKey(key).
		WithIndexCacheSize(1 << 20).
		WithBlockCacheSize(1 << 20).
		WithValueLogFileSize(1 << 20).
		WithNumVersionsToKeep(1).
		WithSyncWrites(true)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("credential: open badger: %w", err)
	}
	return &BadgerStore{db: db, name: name, now: time.Now}, nil
}

func (s *BadgerStore) key() []byte {
	return []byte(keyPrefix + s.name)
}

// Get implements Store.
func (s *BadgerStore) Get(ctx context.Context) (Cookie, error) {
	if err := ctx.Err(); err != nil {
		return Cookie{}, err
	}

	var rec badgerRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key())
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return yaml.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Cookie{}, ErrNotFound
	}
	if err != nil {
		return Cookie{}, fmt.Errorf("credential: badger get: %w", err)
	}

	c := Cookie{
		Name:     s.name,
		Value:    rec.Value,
		Expires:  rec.Expires,
		Secure:   rec.Secure,
		SameSite: SameSite(rec.SameSite),
	}
	if c.Expired(s.now()) {
		_ = s.Remove(ctx)
		return Cookie{}, ErrNotFound
	}
	return c, nil
}

// Set implements Store.
func (s *BadgerStore) Set(ctx context.Context, c Cookie) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	val, err := yaml.Marshal(badgerRecord{
		Value:    c.Value,
		Expires:  c.Expires.UTC(),
		Secure:   c.Secure,
		SameSite: string(c.SameSite),
	})
	if err != nil {
		return fmt.Errorf("credential: encode: %w", err)
	}

	entry := badger.NewEntry(s.key(), val)
	if ttl := c.TTL(s.now()); ttl > 0 {
		entry = entry.WithTTL(ttl)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(entry)
	}); err != nil {
		return fmt.Errorf("credential: badger set: %w", err)
	}
	return nil
}

// Remove implements Store.
func (s *BadgerStore) Remove(ctx context.Context) error {
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.key())
	}); err != nil {
		return fmt.Errorf("credential: badger delete: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// badgerLogger adapts slog.Logger to badger.Logger.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

// Badger is chatty at info level; demote to debug.
func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
