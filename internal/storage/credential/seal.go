package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
)

// CipherType identifies the AEAD that sealed a record.
type CipherType string

const (
	CipherAESGCM   CipherType = "aes-gcm"
	CipherChaCha20 CipherType = "chacha20-poly1305"
)

// defaultCipher prefers AES-GCM where Go has hardware AES.
func defaultCipher() CipherType {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		return CipherAESGCM
	default:
		return CipherChaCha20
	}
}

type sealer struct {
	kind CipherType
	aead cipher.AEAD
}

func newSealer(key []byte, kind CipherType) (*sealer, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("credential: invalid key size %d", len(key))
	}

	var (
		aead cipher.AEAD
		err  error
	)
	switch kind {
	case CipherAESGCM:
		var block cipher.Block
		block, err = aes.NewCipher(key)
		if err == nil {
			aead, err = cipher.NewGCM(block)
		}
	case CipherChaCha20:
		aead, err = chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("credential: unknown cipher %q", kind)
	}
	if err != nil {
		return nil, err
	}
	return &sealer{kind: kind, aead: aead}, nil
}

// seal returns nonce||ciphertext.
func (s *sealer) seal(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

func (s *sealer) open(sealed, additionalData []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(sealed) < n+s.aead.Overhead() {
		return nil, errors.New("credential: sealed value too short")
	}
	return s.aead.Open(nil, sealed[:n], sealed[n:], additionalData)
}
