// AES-256-GCM sealing for large-blob entries and other CTAP payloads.
// CTAP 2.1 Section 6.10.3 requires AES-256-GCM with a 12-byte nonce and a
// 16-byte tag appended to the ciphertext.

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
)

// AES-GCM constants from CTAP 2.1 Section 6.10.3.
const (
	// AESGCMKeySize is the AES-256 key size in bytes. Large-blob keys are
	// always this length.
	AESGCMKeySize = 32

	// AESGCMNonceSize is the GCM nonce size in bytes.
	AESGCMNonceSize = 12

	// AESGCMTagSize is the authentication tag size in bytes.
	AESGCMTagSize = 16
)

// Errors
var (
	ErrAESGCMInvalidKeySize     = errors.New("aesgcm: invalid key size, must be 32 bytes")
	ErrAESGCMInvalidNonceSize   = errors.New("aesgcm: invalid nonce size, must be 12 bytes")
	ErrAESGCMCiphertextTooShort = errors.New("aesgcm: ciphertext too short")
	ErrAESGCMAuthFailed         = errors.New("aesgcm: message authentication failed")
)

// AESGCM represents an AES-256-GCM cipher instance.
type AESGCM struct {
	aead cipher.AEAD
}

// NewAESGCM creates a new AES-256-GCM cipher.
// The key must be exactly 32 bytes (256 bits).
func NewAESGCM(key []byte) (*AESGCM, error) {
	if len(key) != AESGCMKeySize {
		return nil, ErrAESGCMInvalidKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &AESGCM{aead: aead}, nil
}

// Seal encrypts and authenticates plaintext with associated data.
//
// Parameters:
//   - nonce: 12-byte nonce (must be unique for each encryption with the same key)
//   - plaintext: data to encrypt
//   - aad: additional authenticated data (not encrypted, but authenticated)
//
// Returns ciphertext || tag.
func (c *AESGCM) Seal(nonce, plaintext, aad []byte) ([]byte, error) {
	if len(nonce) != AESGCMNonceSize {
		return nil, ErrAESGCMInvalidNonceSize
	}
	return c.aead.Seal(nil, nonce, plaintext, aad), nil
}

// Open decrypts and verifies ciphertext with associated data.
//
// Parameters:
//   - nonce: 12-byte nonce (same as used for encryption)
//   - ciphertext: encrypted data with trailing tag
//   - aad: additional authenticated data
//
// Returns the decrypted plaintext, or ErrAESGCMAuthFailed if the tag does
// not verify.
func (c *AESGCM) Open(nonce, ciphertext, aad []byte) ([]byte, error) {
	if len(nonce) != AESGCMNonceSize {
		return nil, ErrAESGCMInvalidNonceSize
	}
	if len(ciphertext) < AESGCMTagSize {
		return nil, ErrAESGCMCiphertextTooShort
	}

	plaintext, err := c.aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrAESGCMAuthFailed
	}
	return plaintext, nil
}

// AESGCM256Encrypt is a convenience function for one-shot AES-256-GCM encryption.
// Returns ciphertext || tag.
func AESGCM256Encrypt(key, nonce, plaintext, aad []byte) ([]byte, error) {
	gcm, err := NewAESGCM(key)
	if err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, plaintext, aad)
}

// AESGCM256Decrypt is a convenience function for one-shot AES-256-GCM decryption.
// Returns the decrypted plaintext, or an error if authentication fails.
func AESGCM256Decrypt(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	gcm, err := NewAESGCM(key)
	if err != nil {
		return nil, err
	}
	return gcm.Open(nonce, ciphertext, aad)
}
