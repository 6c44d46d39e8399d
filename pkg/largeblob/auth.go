package largeblob

import (
	"encoding/binary"

	"github.com/SigmaG33/libfido2/pkg/crypto"
	"github.com/SigmaG33/libfido2/pkg/ctap"
	"github.com/SigmaG33/libfido2/pkg/pinuv"
)

// writeAuthInput layout (CTAP 2.1 Section 6.10.4): 32 bytes of 0xFF, the
// large-blob command byte, a zero byte, the 32-bit little-endian chunk
// offset, and SHA-256 of the chunk.
const (
	authInputSize   = 70
	authPrefixSize  = 32
	authPrefixByte  = 0xFF
	authOffsetIndex = authPrefixSize + 2
	authDigestIndex = authOffsetIndex + 4
)

// Token MACs write fragments under an acquired PIN/UV auth token.
// pinuv.Token is the concrete implementation; tests substitute fakes.
type Token interface {
	// Authenticate MACs the 70-byte per-fragment input.
	Authenticate(message []byte) []byte

	// ProtocolID is the pinUvAuthProtocol version for wire field 5.
	ProtocolID() uint64

	// Destroy zeroizes the token material.
	Destroy()
}

// TokenSource acquires write-authorization tokens. The default source runs
// the PIN/UV subprotocol; a nil token from GetUVToken is never returned —
// callers that may write unauthenticated check CanGetUVToken first.
type TokenSource interface {
	// CanGetUVToken reports whether a token can be obtained from this
	// device with the given PIN.
	CanGetUVToken(dev ctap.Device, pin string) bool

	// GetUVToken obtains a token scoped to the largeBlobWrite permission.
	GetUVToken(dev ctap.Device, pin string, timeoutMs int) (Token, error)
}

// pinUVTokenSource is the default TokenSource, backed by pkg/pinuv.
type pinUVTokenSource struct{}

func (pinUVTokenSource) CanGetUVToken(dev ctap.Device, pin string) bool {
	return pinuv.CanGetUVToken(dev, pin)
}

func (pinUVTokenSource) GetUVToken(dev ctap.Device, pin string, timeoutMs int) (Token, error) {
	token, err := pinuv.GetUVToken(dev, pin, pinuv.PermLargeBlobWrite, "", timeoutMs)
	if err != nil {
		return nil, err
	}
	return token, nil
}

// writeAuthInput builds the 70-byte HMAC input authorizing one write chunk.
// The caller has already confirmed the offset fits in 32 bits.
func writeAuthInput(offset uint32, chunk []byte) []byte {
	input := make([]byte, authInputSize)
	for i := 0; i < authPrefixSize; i++ {
		input[i] = authPrefixByte
	}
	input[authPrefixSize] = ctap.CmdLargeBlobs
	input[authPrefixSize+1] = 0x00
	binary.LittleEndian.PutUint32(input[authOffsetIndex:], offset)
	copy(input[authDigestIndex:], crypto.SHA256Slice(chunk))
	return input
}
