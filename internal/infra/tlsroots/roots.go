package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

var (
	// ErrNoCertsFound means a CA bundle held no CERTIFICATE block.
	ErrNoCertsFound = errors.New("tlsroots: no certificates found in PEM file")

	// ErrIncompleteKeyPair means only one of CertFile and KeyFile was set.
	ErrIncompleteKeyPair = errors.New("tlsroots: client certificate and key must be set together")
)

// bundleExts are the file extensions read from CADir.
var bundleExts = []string{".pem", ".crt", ".cer"}

// ClientConfig describes the TLS settings for talking to the catalog API.
type ClientConfig struct {
	CAFile       string
	CADir        string
	NoSystemRoot bool
	CertFile     string
	KeyFile      string
	ServerName   string
	Logger       *slog.Logger
}

// IsZero reports whether cfg leaves the default transport untouched.
func (cfg ClientConfig) IsZero() bool {
	return cfg == ClientConfig{Logger: cfg.Logger}
}

// Load builds a client TLS config, or returns nil for a zero config.
func Load(cfg ClientConfig) (*tls.Config, error) {
	if cfg.IsZero() {
		return nil, nil
	}
	if (cfg.CertFile == "") != (cfg.KeyFile == "") {
		return nil, ErrIncompleteKeyPair
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	pool := basePool(cfg.NoSystemRoot)
	if cfg.CAFile != "" {
		if _, err := addBundle(pool, cfg.CAFile, log); err != nil {
			return nil, err
		}
	}
	if cfg.CADir != "" {
		if _, err := addBundleDir(pool, cfg.CADir, log); err != nil {
			return nil, err
		}
	}

	tc := &tls.Config{
		RootCAs:    pool,
		ServerName: cfg.ServerName,
		MinVersion: tls.VersionTLS12,
	}
	if cfg.CertFile != "" {
		pair, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("tlsroots: load key pair: %w", err)
		}
		tc.Certificates = []tls.Certificate{pair}
	}
	return tc, nil
}

func basePool(empty bool) *x509.CertPool {
	if !empty {
		if pool, err := x509.SystemCertPool(); err == nil {
			return pool
		}
	}
	return x509.NewCertPool()
}

// addBundle adds every certificate in the PEM file at path and returns how
// many it added.
func addBundle(pool *x509.CertPool, path string, log *slog.Logger) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("tlsroots: read CA file: %w", err)
	}
	certs, err := parseBundle(data)
	if err != nil {
		return 0, fmt.Errorf("tlsroots: %s: %w", path, err)
	}
	now := time.Now()
	for _, c := range certs {
		if now.After(c.NotAfter) {
			log.Warn("CA certificate has expired", "path", path,
				"subject", c.Subject.String(), "not_after", c.NotAfter)
		}
		pool.AddCert(c)
	}
	return len(certs), nil
}

// addBundleDir adds every bundle in dir. A bad bundle is logged and skipped.
func addBundleDir(pool *x509.CertPool, dir string, log *slog.Logger) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("tlsroots: read CA dir: %w", err)
	}
	added := 0
	for _, e := range entries {
		if e.IsDir() || !slices.Contains(bundleExts, strings.ToLower(filepath.Ext(e.Name()))) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		n, err := addBundle(pool, path, log)
		if err != nil {
			log.Warn("skipping CA file", "path", path, "error", err)
		}
		added += n
	}
	return added, nil
}

// parseBundle decodes the CERTIFICATE blocks of a PEM bundle, ignoring
// other block types.
func parseBundle(data []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	for {
		block, rest := pem.Decode(data)
		if block == nil {
			break
		}
		data = rest
		if block.Type != "CERTIFICATE" {
			continue
		}
		c, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse certificate: %w", err)
		}
		certs = append(certs, c)
	}
	if len(certs) == 0 {
		return nil, ErrNoCertsFound
	}
	return certs, nil
}
