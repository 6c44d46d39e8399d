// Package ctap provides the CTAP 2.1 command surface the client library is
// built on: command and status bytes, the canonical CBOR codec, the Device
// transport interface, and a request/reply round-trip helper.
package ctap

// CTAP 2.1 authenticator command bytes (Section 6.1).
const (
	// CmdClientPIN is authenticatorClientPIN.
	CmdClientPIN = 0x06

	// CmdCredentialManagement is authenticatorCredentialManagement.
	CmdCredentialManagement = 0x0A

	// CmdLargeBlobs is authenticatorLargeBlobs.
	CmdLargeBlobs = 0x0C
)

// Transport bounds.
const (
	// MaxWireSize is the upper bound on a single CTAP CBOR message,
	// regardless of what maxMsgSize the authenticator advertises.
	MaxWireSize = 2048

	// NoTimeout disables the receive timeout when passed as a millisecond
	// timeout value.
	NoTimeout = -1
)
