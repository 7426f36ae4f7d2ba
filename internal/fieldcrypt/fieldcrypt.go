// Package fieldcrypt encrypts personal fields before they reach the account
// store and derives lookup digests for fields that must stay searchable.
package fieldcrypt

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

// ErrDecrypt is returned when a ciphertext is not valid for the key
var ErrDecrypt = errors.New("fieldcrypt: cannot decrypt value")

// Cipher seals and opens field values with NaCl secretbox. Ciphertexts are
// base64 (raw URL alphabet) of nonce || box.
type Cipher struct {
	sealKey [keySize]byte
	macKey  []byte
}

// New derives independent sealing and digest keys from secret
func New(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, fmt.Errorf("fieldcrypt: secret cannot be empty")
	}

	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("profiles-api field keys"))

	c := &Cipher{macKey: make([]byte, keySize)}
	if _, err := io.ReadFull(kdf, c.sealKey[:]); err != nil {
		return nil, fmt.Errorf("fieldcrypt: derive seal key: %w", err)
	}
	if _, err := io.ReadFull(kdf, c.macKey); err != nil {
		return nil, fmt.Errorf("fieldcrypt: derive digest key: %w", err)
	}
	return c, nil
}

// Seal encrypts plaintext with a random nonce
func (c *Cipher) Seal(plaintext []byte) (string, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("fieldcrypt: nonce: %w", err)
	}

	out := secretbox.Seal(nonce[:], plaintext, &nonce, &c.sealKey)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Open decrypts a value produced by Seal
func (c *Cipher) Open(ciphertext string) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return nil, ErrDecrypt
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])

	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &c.sealKey)
	if !ok {
		return nil, ErrDecrypt
	}
	return plain, nil
}

// SealString encrypts a string field; the empty string stays empty
func (c *Cipher) SealString(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	return c.Seal([]byte(s))
}

// OpenString decrypts a string field; the empty string stays empty
func (c *Cipher) OpenString(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	plain, err := c.Open(s)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Digest returns a keyed, deterministic digest of value for equality lookups
func (c *Cipher) Digest(value string) string {
	mac := hmac.New(sha256.New, c.macKey)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}
