package crypto

import (
	"crypto/ecdh"
	"crypto/rand"
	"fmt"
)

// P-256 constants for the PIN/UV auth key agreement (CTAP 2.1 Section 6.5.5).
const (
	// P256CoordSizeBytes is the size of one affine coordinate in bytes.
	P256CoordSizeBytes = 32

	// P256PublicKeySizeBytes is the uncompressed public key size.
	// Format: 0x04 || X (32 bytes) || Y (32 bytes) = 65 bytes
	P256PublicKeySizeBytes = 65
)

// P256KeyPair represents an ephemeral P-256 key pair used for the platform
// side of the PIN/UV key agreement.
type P256KeyPair struct {
	private *ecdh.PrivateKey
}

// P256GenerateKeyPair generates a new ephemeral P-256 key pair.
func P256GenerateKeyPair() (*P256KeyPair, error) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ECDH key: %w", err)
	}
	return &P256KeyPair{private: priv}, nil
}

// P256KeyPairFromPrivateKey creates a key pair from an existing private key
// scalar. Intended for tests with fixed keys.
func P256KeyPairFromPrivateKey(privateKey []byte) (*P256KeyPair, error) {
	priv, err := ecdh.P256().NewPrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &P256KeyPair{private: priv}, nil
}

// PublicKey returns the public key in uncompressed format (65 bytes).
// Format: 0x04 || X (32 bytes) || Y (32 bytes)
func (kp *P256KeyPair) PublicKey() []byte {
	return kp.private.PublicKey().Bytes()
}

// PublicKeyCoords returns the affine X and Y coordinates, 32 bytes each.
// The PIN/UV key agreement transports these as separate COSE key fields.
func (kp *P256KeyPair) PublicKeyCoords() (x, y []byte) {
	pub := kp.private.PublicKey().Bytes()
	return pub[1 : 1+P256CoordSizeBytes], pub[1+P256CoordSizeBytes:]
}

// ECDH computes the shared point with a peer public key given as affine
// coordinates and returns its X coordinate (32 bytes). Both PIN/UV auth
// protocols derive their session secrets from this value.
func (kp *P256KeyPair) ECDH(peerX, peerY []byte) ([]byte, error) {
	if len(peerX) != P256CoordSizeBytes || len(peerY) != P256CoordSizeBytes {
		return nil, fmt.Errorf("peer coordinates must be %d bytes each", P256CoordSizeBytes)
	}

	raw := make([]byte, 0, P256PublicKeySizeBytes)
	raw = append(raw, 0x04)
	raw = append(raw, peerX...)
	raw = append(raw, peerY...)

	peer, err := ecdh.P256().NewPublicKey(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid peer public key: %w", err)
	}

	// crypto/ecdh returns the X coordinate of the shared point.
	shared, err := kp.private.ECDH(peer)
	if err != nil {
		return nil, fmt.Errorf("ECDH failed: %w", err)
	}
	return shared, nil
}
