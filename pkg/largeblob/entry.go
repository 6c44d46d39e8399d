package largeblob

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/SigmaG33/libfido2/pkg/blob"
	"github.com/SigmaG33/libfido2/pkg/crypto"
	"github.com/SigmaG33/libfido2/pkg/ctap"
)

// Per-entry constants (CTAP 2.1 Section 6.10.3).
const (
	// KeySize is the large-blob key length: an AES-256 key derived per
	// credential at creation time.
	KeySize = crypto.AESGCMKeySize

	// entryNonceSize is the AES-GCM nonce stored with each entry.
	entryNonceSize = crypto.AESGCMNonceSize

	// entryAADSize is "blob" plus the 64-bit original size.
	entryAADSize = 12
)

// aadPrefix is the fixed associated-data prefix bound into every entry's
// GCM tag.
var aadPrefix = []byte("blob")

// Entry decode errors.
var (
	errEntryMissingCiphertext = errors.New("largeblob: entry has no ciphertext")
	errEntryMissingNonce      = errors.New("largeblob: entry has no nonce")
	errEntryBadNonceSize      = errors.New("largeblob: entry nonce is not 12 bytes")
	errEntryShortCiphertext   = errors.New("largeblob: entry ciphertext shorter than tag")
	errEntryBadOrigSize       = errors.New("largeblob: entry original size out of range")
)

// Entry is one sealed element of the large-blob array: the compressed
// plaintext sealed under the credential's large-blob key, the nonce it was
// sealed with, and the pre-compression plaintext length.
type Entry struct {
	Ciphertext []byte `cbor:"1,keyasint"`
	Nonce      []byte `cbor:"2,keyasint"`
	OrigSize   uint64 `cbor:"3,keyasint"`
}

// validate enforces the entry invariants before use. Entries come from an
// untrusted peripheral; nothing about them is assumed.
func (e *Entry) validate() error {
	switch {
	case len(e.Ciphertext) == 0:
		return errEntryMissingCiphertext
	case len(e.Ciphertext) < crypto.AESGCMTagSize:
		return errEntryShortCiphertext
	case len(e.Nonce) == 0:
		return errEntryMissingNonce
	case len(e.Nonce) != entryNonceSize:
		return errEntryBadNonceSize
	case e.OrigSize == 0 || e.OrigSize > maxOrigSize:
		return errEntryBadOrigSize
	}
	return nil
}

// entryAAD builds the associated data for an entry:
// "blob" followed by origSize as a little-endian 64-bit unsigned integer.
func entryAAD(origSize uint64) []byte {
	aad := make([]byte, entryAADSize)
	copy(aad, aadPrefix)
	binary.LittleEndian.PutUint64(aad[len(aadPrefix):], origSize)
	return aad
}

// sealEntry compresses plaintext and seals it under key with a fresh
// nonce. key must be a 32-byte large-blob key.
func sealEntry(key, plaintext []byte) (*Entry, error) {
	compressed, err := deflateBlob(plaintext)
	if err != nil {
		return nil, err
	}
	defer blob.Zero(compressed)

	nonce, err := crypto.RandomNonce()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	origSize := uint64(len(plaintext))
	ciphertext, err := crypto.AESGCM256Encrypt(key, nonce, compressed, entryAAD(origSize))
	if err != nil {
		blob.Zero(nonce)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	return &Entry{
		Ciphertext: ciphertext,
		Nonce:      nonce,
		OrigSize:   origSize,
	}, nil
}

// open trial-decrypts the entry under key and inflates the result to
// OrigSize bytes. ok is false when the key does not match or the contents
// do not inflate; trial failures are expected during lookup and carry no
// diagnostic value.
func (e *Entry) open(key []byte) (plaintext []byte, ok bool) {
	compressed, err := crypto.AESGCM256Decrypt(key, e.Nonce, e.Ciphertext, entryAAD(e.OrigSize))
	if err != nil {
		return nil, false
	}
	defer blob.Zero(compressed)

	plaintext, err = inflateBlob(compressed, e.OrigSize)
	if err != nil {
		return nil, false
	}
	return plaintext, true
}

// decodeEntry parses one raw array element into an Entry and checks its
// invariants. Unknown map keys are ignored.
func decodeEntry(raw []byte) (*Entry, error) {
	var e Entry
	if err := ctap.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("largeblob: decode entry: %w", err)
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
