// Package payload implements the Symmetric Payload Cipher (spec §4.5):
// AES-128 in CTR mode, sealing per-record name and treatment fields at
// rest under a key and nonce shared between the dataset owner and the
// client. The server only ever shuttles the opaque sealed bytes.
//
// No third-party AES implementation appears anywhere in the example
// pack; stdlib crypto/aes + crypto/cipher is the universal Go idiom for
// this and is used deliberately here, not by omission (see DESIGN.md).
package payload

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// KeySize and NonceSize are fixed by spec §4.5.
const (
	KeySize   = 16
	NonceSize = 16
)

// Cipher seals and opens UTF-8 payloads with a fixed (key, nonce) pair.
// Per spec §4.5, every field begins a fresh AES-CTR stream from counter
// 0 — Cipher enforces this by allocating a new cipher.Stream per call
// instead of keeping stream state across calls.
type Cipher struct {
	key   [KeySize]byte
	nonce [NonceSize]byte
}

// New builds a Cipher from a 16-byte key and 16-byte nonce.
func New(key, nonce []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("payload: key must be %d bytes, got %d", KeySize, len(key))
	}
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("payload: nonce must be %d bytes, got %d", NonceSize, len(nonce))
	}
	c := &Cipher{}
	copy(c.key[:], key)
	copy(c.nonce[:], nonce)
	return c, nil
}

func (c *Cipher) stream() (cipher.Stream, error) {
	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return nil, fmt.Errorf("payload: aes.NewCipher: %w", err)
	}
	return cipher.NewCTR(block, c.nonce[:]), nil
}

// Seal encrypts plaintext (raw UTF-8 bytes) starting from a fresh CTR
// stream at counter 0.
func (c *Cipher) Seal(plaintext []byte) ([]byte, error) {
	stream, err := c.stream()
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(plaintext))
	stream.XORKeyStream(out, plaintext)
	return out, nil
}

// Open decrypts ciphertext produced by Seal. AES-CTR is its own inverse,
// but Open is kept distinct from Seal for readability at call sites.
func (c *Cipher) Open(ciphertext []byte) ([]byte, error) {
	stream, err := c.stream()
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(ciphertext))
	stream.XORKeyStream(out, ciphertext)
	return out, nil
}

// SealString is a convenience wrapper sealing a UTF-8 string.
func (c *Cipher) SealString(s string) ([]byte, error) {
	return c.Seal([]byte(s))
}

// OpenString is a convenience wrapper opening into a UTF-8 string.
func (c *Cipher) OpenString(ciphertext []byte) (string, error) {
	out, err := c.Open(ciphertext)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
