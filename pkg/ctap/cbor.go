package ctap

import (
	"github.com/fxamacker/cbor/v2"
)

// CBOR codec modes for CTAP 2.1 canonical encoding (Section 6, "Message
// Encoding"). Requests and replies are definite-length maps with integer
// keys; indefinite-length items and tags never appear on the wire and are
// rejected on decode. Unknown map keys are ignored so that newer
// authenticators remain parseable.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	if encMode, err = cbor.CTAP2EncOptions().EncMode(); err != nil {
		panic(err)
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
		TagsMd:      cbor.TagsForbidden,
	}
	if decMode, err = decOpts.DecMode(); err != nil {
		panic(err)
	}
}

// Marshal encodes v using CTAP2 canonical CBOR.
func Marshal(v interface{}) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CTAP2 CBOR data into v.
func Unmarshal(data []byte, v interface{}) error {
	return decMode.Unmarshal(data, v)
}
