// Package pinuv implements the CTAP 2.1 PIN/UV auth protocols (Sections
// 6.5.6 and 6.5.7) and the clientPIN token exchange. The large-blob
// subsystem uses it to acquire a pinUvAuthToken scoped to the largeBlobWrite
// permission and to MAC each write fragment under that token.
package pinuv

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"

	"github.com/SigmaG33/libfido2/pkg/blob"
	"github.com/SigmaG33/libfido2/pkg/crypto"
)

// ProtocolID identifies a PIN/UV auth protocol version.
type ProtocolID uint64

const (
	// ProtocolV1 is pinUvAuthProtocol 1 (CTAP 2.1 Section 6.5.6).
	ProtocolV1 ProtocolID = 1

	// ProtocolV2 is pinUvAuthProtocol 2 (CTAP 2.1 Section 6.5.7).
	ProtocolV2 ProtocolID = 2
)

// Shared secret sizes per protocol.
const (
	// sharedSecretLenV1 is SHA-256(ECDH x-coordinate).
	sharedSecretLenV1 = 32

	// sharedSecretLenV2 is HMAC key (32) || AES key (32).
	sharedSecretLenV2 = 64

	// v1AuthLen is the truncated HMAC length protocol 1 uses.
	v1AuthLen = 16
)

// Errors
var (
	ErrUnsupportedProtocol = errors.New("pinuv: unsupported protocol version")
	ErrInvalidSecretSize   = errors.New("pinuv: invalid shared secret size")
	ErrInvalidPadding      = errors.New("pinuv: data is not block-aligned")
	ErrCiphertextTooShort  = errors.New("pinuv: ciphertext too short")
)

// Protocol 2 HKDF info strings.
var (
	hkdfInfoHMACKey = []byte("CTAP2 HMAC key")
	hkdfInfoAESKey  = []byte("CTAP2 AES key")
)

// Protocol is one PIN/UV auth protocol version: the key-agreement KDF and
// the encrypt/decrypt/authenticate primitives the clientPIN exchange and the
// per-fragment write MACs are built on.
type Protocol interface {
	// ID returns the protocol version number as sent on the wire.
	ID() ProtocolID

	// Encapsulate runs the platform side of the key agreement against the
	// authenticator's public key coordinates. It returns the platform's
	// COSE key (to transmit) and the derived shared secret.
	Encapsulate(peerX, peerY []byte) (*COSEKey, []byte, error)

	// Encrypt encrypts plaintext under the shared secret.
	Encrypt(secret, plaintext []byte) ([]byte, error)

	// Decrypt decrypts ciphertext under the shared secret.
	Decrypt(secret, ciphertext []byte) ([]byte, error)

	// Authenticate MACs message under key. key is either a shared secret
	// or a decrypted pinUvAuthToken.
	Authenticate(key, message []byte) []byte

	// Verify reports whether signature is a valid MAC of message under
	// key, in constant time.
	Verify(key, message, signature []byte) bool
}

// New returns the Protocol implementation for the given version.
func New(id ProtocolID) (Protocol, error) {
	switch id {
	case ProtocolV1:
		return &protocolV1{}, nil
	case ProtocolV2:
		return &protocolV2{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedProtocol, id)
	}
}

// ecdhX runs ECDH against the peer coordinates with a fresh platform key
// and returns the platform COSE key plus the shared point's x-coordinate.
func ecdhX(peerX, peerY []byte) (*COSEKey, []byte, error) {
	platform, err := crypto.P256GenerateKeyPair()
	if err != nil {
		return nil, nil, fmt.Errorf("pinuv: generate platform key: %w", err)
	}

	z, err := platform.ECDH(peerX, peerY)
	if err != nil {
		return nil, nil, fmt.Errorf("pinuv: key agreement: %w", err)
	}

	x, y := platform.PublicKeyCoords()
	return newECDHCOSEKey(x, y), z, nil
}

// aesCBC applies AES-256-CBC with the given IV in the given direction.
func aesCBC(key, iv, in []byte, encrypt bool) ([]byte, error) {
	if len(in)%aes.BlockSize != 0 {
		return nil, ErrInvalidPadding
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(in))
	if encrypt {
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, in)
	} else {
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, in)
	}
	return out, nil
}

// protocolV1 implements pinUvAuthProtocol 1: the shared secret is
// SHA-256(x), encryption is AES-256-CBC with a zero IV, and MACs are
// HMAC-SHA-256 truncated to 16 bytes.
type protocolV1 struct{}

func (p *protocolV1) ID() ProtocolID { return ProtocolV1 }

func (p *protocolV1) Encapsulate(peerX, peerY []byte) (*COSEKey, []byte, error) {
	platformKey, z, err := ecdhX(peerX, peerY)
	if err != nil {
		return nil, nil, err
	}
	defer blob.Zero(z)

	secret := crypto.SHA256Slice(z)
	return platformKey, secret, nil
}

func (p *protocolV1) Encrypt(secret, plaintext []byte) ([]byte, error) {
	if len(secret) != sharedSecretLenV1 {
		return nil, ErrInvalidSecretSize
	}
	iv := make([]byte, aes.BlockSize)
	return aesCBC(secret, iv, plaintext, true)
}

func (p *protocolV1) Decrypt(secret, ciphertext []byte) ([]byte, error) {
	if len(secret) != sharedSecretLenV1 {
		return nil, ErrInvalidSecretSize
	}
	iv := make([]byte, aes.BlockSize)
	return aesCBC(secret, iv, ciphertext, false)
}

func (p *protocolV1) Authenticate(key, message []byte) []byte {
	mac := crypto.HMACSHA256(key, message)
	return mac[:v1AuthLen]
}

func (p *protocolV1) Verify(key, message, signature []byte) bool {
	return crypto.HMACEqual(p.Authenticate(key, message), signature)
}

// protocolV2 implements pinUvAuthProtocol 2: HKDF-SHA-256 derives separate
// HMAC and AES keys, encryption carries a random IV, and MACs are full
// HMAC-SHA-256.
type protocolV2 struct{}

func (p *protocolV2) ID() ProtocolID { return ProtocolV2 }

func (p *protocolV2) Encapsulate(peerX, peerY []byte) (*COSEKey, []byte, error) {
	platformKey, z, err := ecdhX(peerX, peerY)
	if err != nil {
		return nil, nil, err
	}
	defer blob.Zero(z)

	salt := make([]byte, crypto.SHA256LenBytes)
	hmacKey, err := crypto.HKDFSHA256(z, salt, hkdfInfoHMACKey, 32)
	if err != nil {
		return nil, nil, fmt.Errorf("pinuv: derive HMAC key: %w", err)
	}
	aesKey, err := crypto.HKDFSHA256(z, salt, hkdfInfoAESKey, 32)
	if err != nil {
		blob.Zero(hmacKey)
		return nil, nil, fmt.Errorf("pinuv: derive AES key: %w", err)
	}

	secret := make([]byte, 0, sharedSecretLenV2)
	secret = append(secret, hmacKey...)
	secret = append(secret, aesKey...)
	blob.Zero(hmacKey)
	blob.Zero(aesKey)
	return platformKey, secret, nil
}

func (p *protocolV2) Encrypt(secret, plaintext []byte) ([]byte, error) {
	if len(secret) != sharedSecretLenV2 {
		return nil, ErrInvalidSecretSize
	}

	iv, err := crypto.RandomBytes(aes.BlockSize)
	if err != nil {
		return nil, err
	}

	ct, err := aesCBC(secret[32:], iv, plaintext, true)
	if err != nil {
		return nil, err
	}
	return append(iv, ct...), nil
}

func (p *protocolV2) Decrypt(secret, ciphertext []byte) ([]byte, error) {
	if len(secret) != sharedSecretLenV2 {
		return nil, ErrInvalidSecretSize
	}
	if len(ciphertext) < aes.BlockSize {
		return nil, ErrCiphertextTooShort
	}

	iv, ct := ciphertext[:aes.BlockSize], ciphertext[aes.BlockSize:]
	return aesCBC(secret[32:], iv, ct, false)
}

func (p *protocolV2) Authenticate(key, message []byte) []byte {
	// A 64-byte key is a shared secret; its first half is the HMAC key.
	// A decrypted pinUvAuthToken is used as-is.
	if len(key) == sharedSecretLenV2 {
		key = key[:32]
	}
	return crypto.HMACSHA256Slice(key, message)
}

func (p *protocolV2) Verify(key, message, signature []byte) bool {
	return crypto.HMACEqual(p.Authenticate(key, message), signature)
}
