// Package crypto provides the cryptographic primitives used by the CTAP 2.1
// client: AES-256-GCM sealing, SHA-256 digests, HMAC-SHA-256, HKDF-SHA-256,
// and CSPRNG nonce generation.
package crypto

import (
	"crypto/sha256"
	"hash"
)

// SHA-256 constants.
const (
	// SHA256LenBytes is the SHA-256 output length in bytes.
	SHA256LenBytes = 32

	// SHA256TruncLenBytes is the truncated digest length used by the
	// large-blob array trailer: the first 16 bytes of SHA-256.
	SHA256TruncLenBytes = 16
)

// SHA256 computes the SHA-256 cryptographic hash of a message.
//
// Returns a 32-byte (256-bit) hash digest.
func SHA256(message []byte) [SHA256LenBytes]byte {
	return sha256.Sum256(message)
}

// SHA256Slice computes the SHA-256 hash and returns it as a slice.
// This is a convenience function for cases where a slice is preferred.
func SHA256Slice(message []byte) []byte {
	h := sha256.Sum256(message)
	return h[:]
}

// SHA256Trunc computes SHA-256 and returns its first 16 bytes.
// This is the large-blob array trailer digest (CTAP 2.1 Section 6.10.1).
func SHA256Trunc(message []byte) []byte {
	h := sha256.Sum256(message)
	return h[:SHA256TruncLenBytes]
}

// NewSHA256 returns a new hash.Hash for computing SHA-256 digests incrementally.
// This is useful for hashing large data or streaming data.
func NewSHA256() hash.Hash {
	return sha256.New()
}
