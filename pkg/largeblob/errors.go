// Package largeblob implements the CTAP 2.1 authenticatorLargeBlobs client
// (Section 6.10): reading, parsing, and rewriting the per-credential
// encrypted large-blob array stored on an authenticator.
package largeblob

import "errors"

// Large-blob errors.
var (
	// ErrInvalidArgument is returned for caller mistakes: a key that is
	// not 32 bytes, an empty plaintext on Put, or a device whose
	// advertised message size leaves no room for fragments.
	ErrInvalidArgument = errors.New("largeblob: invalid argument")

	// ErrInternal is returned when a local primitive (CBOR encode,
	// compression, CSPRNG) fails.
	ErrInternal = errors.New("largeblob: internal error")

	// ErrNoEntry is returned by Get when no array entry decrypts under
	// the provided key.
	ErrNoEntry = errors.New("largeblob: no entry found")

	// ErrNoCredentialManager is returned by Trim when no credential
	// management collaborator was configured.
	ErrNoCredentialManager = errors.New("largeblob: no credential manager configured")
)
