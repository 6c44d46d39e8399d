package largeblob

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/SigmaG33/libfido2/pkg/crypto"
	"github.com/SigmaG33/libfido2/pkg/ctap"
)

// trailerSize is the truncation digest appended to the serialized array:
// the first 16 bytes of SHA-256 over the CBOR body.
const trailerSize = crypto.SHA256TruncLenBytes

// Array is the in-memory large-blob array: an ordered sequence of raw CBOR
// map elements. Elements are kept raw and decoded on demand so that
// non-conformant entries survive a read-modify-write cycle untouched.
type Array struct {
	elements []cbor.RawMessage
}

// Len returns the number of array elements.
func (a *Array) Len() int {
	return len(a.elements)
}

// decodeArray parses the wire form of the array: a definite-length CBOR
// array of maps followed by the 16-byte trailer.
//
// A short body, a trailer mismatch, or unparseable CBOR all yield the empty
// array rather than an error: a freshly provisioned authenticator reports
// its (valid, empty) initial array the same way, and treating corruption as
// empty lets the next write repair storage.
func decodeArray(wire []byte) *Array {
	if len(wire) <= trailerSize {
		return &Array{}
	}

	body := wire[:len(wire)-trailerSize]
	trailer := wire[len(wire)-trailerSize:]
	if !crypto.HMACEqual(crypto.SHA256Trunc(body), trailer) {
		return &Array{}
	}

	var elements []cbor.RawMessage
	if err := ctap.Unmarshal(body, &elements); err != nil {
		return &Array{}
	}
	return &Array{elements: elements}
}

// serialize encodes the array as definite-length CBOR and appends the
// truncation digest.
func (a *Array) serialize() ([]byte, error) {
	elements := a.elements
	if elements == nil {
		elements = []cbor.RawMessage{}
	}
	body, err := ctap.Marshal(elements)
	if err != nil {
		return nil, fmt.Errorf("%w: encode array: %v", ErrInternal, err)
	}
	return append(body, crypto.SHA256Trunc(body)...), nil
}

// insert appends a new sealed entry to the array.
func (a *Array) insert(e *Entry) error {
	raw, err := ctap.Marshal(e)
	if err != nil {
		return fmt.Errorf("%w: encode entry: %v", ErrInternal, err)
	}
	a.elements = append(a.elements, raw)
	return nil
}

// replace overwrites the element at index with a new sealed entry,
// preserving its position.
func (a *Array) replace(index int, e *Entry) error {
	raw, err := ctap.Marshal(e)
	if err != nil {
		return fmt.Errorf("%w: encode entry: %v", ErrInternal, err)
	}
	a.elements[index] = raw
	return nil
}

// remove drops the element at index, preserving the order of the rest.
func (a *Array) remove(index int) {
	a.elements = append(a.elements[:index], a.elements[index+1:]...)
}

// lookup scans the array in order, trial-decrypting each decodable element
// under key. The first element that authenticates is the match. Decode and
// decryption failures are expected and never abort the scan.
func (a *Array) lookup(key []byte) (index int, plaintext []byte, ok bool) {
	for i, raw := range a.elements {
		e, err := decodeEntry(raw)
		if err != nil {
			continue
		}
		if pt, opened := e.open(key); opened {
			return i, pt, true
		}
	}
	return 0, nil, false
}
