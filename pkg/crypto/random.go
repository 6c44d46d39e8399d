package crypto

import (
	"crypto/rand"
	"io"
)

// RandomBytes fills a new slice of the given length from the CSPRNG.
func RandomBytes(length int) ([]byte, error) {
	b := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}

// RandomNonce returns a fresh 12-byte AES-GCM nonce from the CSPRNG.
// Each large-blob entry is sealed under its own nonce.
func RandomNonce() ([]byte, error) {
	return RandomBytes(AESGCMNonceSize)
}
