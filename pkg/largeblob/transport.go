package largeblob

import (
	"fmt"
	"math"

	"github.com/SigmaG33/libfido2/pkg/blob"
	"github.com/SigmaG33/libfido2/pkg/ctap"
)

// fragmentOverhead is the headroom reserved in each message for the CBOR
// framing around a fragment.
const fragmentOverhead = 64

// getRequest is the authenticatorLargeBlobs read parameter map.
// Key 2 is reserved for writes.
type getRequest struct {
	Get    uint64 `cbor:"1,keyasint"`
	Offset uint64 `cbor:"3,keyasint"`
}

// getReply is the read response map. Unknown keys are ignored.
type getReply struct {
	Config []byte `cbor:"1,keyasint"`
}

// setRequest is the authenticatorLargeBlobs write parameter map.
// Length is present only on the first chunk; the auth fields are present
// iff a token was acquired.
type setRequest struct {
	Set               []byte  `cbor:"1,keyasint"`
	Offset            uint64  `cbor:"2,keyasint"`
	Length            *uint64 `cbor:"3,keyasint,omitempty"`
	PinUvAuthParam    []byte  `cbor:"4,keyasint,omitempty"`
	PinUvAuthProtocol *uint64 `cbor:"5,keyasint,omitempty"`
}

// fragmentLen derives the per-round-trip fragment bound from the device
// descriptor: min(maxMsgSize, MaxWireSize) − 64. A device whose message
// size leaves no room for fragments is unusable for this feature.
func fragmentLen(dev ctap.Device) (int, error) {
	maxMsg := dev.Info().MaxMsgSize
	if maxMsg > ctap.MaxWireSize {
		maxMsg = ctap.MaxWireSize
	}
	n := maxMsg - fragmentOverhead
	if n <= 0 {
		return 0, fmt.Errorf("%w: device maxMsgSize %d leaves no fragment room", ErrInvalidArgument, dev.Info().MaxMsgSize)
	}
	return n, nil
}

// readArrayBytes fetches the authenticator's serialized array in fragments.
//
// Starting at offset 0 it requests n bytes per round trip and appends each
// returned fragment to the accumulator; a fragment shorter than requested
// (possibly empty) is the last. A fragment longer than requested cannot
// come from a conforming authenticator and is rejected.
func readArrayBytes(dev ctap.Device, timeoutMs int) ([]byte, error) {
	n, err := fragmentLen(dev)
	if err != nil {
		return nil, err
	}

	accum := blob.New()
	last := n
	for last == n {
		req := getRequest{Get: uint64(n), Offset: uint64(accum.Len())}
		var rsp getReply
		if err := ctap.Call(dev, ctap.CmdLargeBlobs, &req, &rsp, timeoutMs); err != nil {
			return nil, err
		}
		if len(rsp.Config) > n {
			return nil, fmt.Errorf("%w: fragment of %d bytes exceeds requested %d", ctap.ErrRx, len(rsp.Config), n)
		}
		last = len(rsp.Config)
		accum.Append(rsp.Config)
	}

	return accum.Bytes(), nil
}

// writeArrayBytes writes the serialized array (CBOR body plus trailer) back
// to the authenticator in chunks of at most the fragment bound. The
// trailing digest is flushed as its own final chunk rather than riding on
// the last body chunk.
//
// Each chunk carries its offset; the first chunk additionally carries the
// total length. When a token is present every chunk is MACed under it.
// Chunks are strictly sequential: the next is not sent until the previous
// reply reported success. There is no partial-write recovery here; the
// authenticator discards incomplete writes.
func writeArrayBytes(dev ctap.Device, wire []byte, token Token, timeoutMs int) error {
	n, err := fragmentLen(dev)
	if err != nil {
		return err
	}
	if uint64(len(wire)) > math.MaxUint32 {
		return fmt.Errorf("%w: array of %d bytes exceeds the offset space", ErrInvalidArgument, len(wire))
	}
	if len(wire) <= trailerSize {
		return fmt.Errorf("%w: serialized array shorter than its trailer", ErrInternal)
	}

	total := uint64(len(wire))
	offset := 0

	sendChunk := func(chunk []byte) error {
		req := setRequest{Set: chunk, Offset: uint64(offset)}
		if offset == 0 {
			req.Length = &total
		}
		if token != nil {
			input := writeAuthInput(uint32(offset), chunk)
			req.PinUvAuthParam = token.Authenticate(input)
			blob.Zero(input)
			proto := token.ProtocolID()
			req.PinUvAuthProtocol = &proto
		}

		if err := ctap.Call(dev, ctap.CmdLargeBlobs, &req, nil, timeoutMs); err != nil {
			return err
		}
		offset += len(chunk)
		return nil
	}

	sendAll := func(stream []byte) error {
		for off := 0; off < len(stream); off += n {
			end := off + n
			if end > len(stream) {
				end = len(stream)
			}
			if err := sendChunk(stream[off:end]); err != nil {
				return err
			}
		}
		return nil
	}

	body := wire[:len(wire)-trailerSize]
	trailer := wire[len(wire)-trailerSize:]
	if err := sendAll(body); err != nil {
		return err
	}
	return sendAll(trailer)
}
