package crypto

import (
	"bytes"
	"encoding/hex"
	"testing"
)

// Test vectors from NIST FIPS 180-4 and NIST CAVP.
var sha256TestVectors = []struct {
	name     string
	message  string // hex-encoded input
	expected string // hex-encoded expected hash
}{
	{
		name:     "FIPS180-4_B1_abc",
		message:  "616263", // "abc"
		expected: "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
	},
	{
		name:     "CAVP_empty",
		message:  "",
		expected: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
	},
	{
		name:     "CAVP_8bit",
		message:  "d3",
		expected: "28969cdfa74a12c82f3bad960b0b000aca2ac329deea5c2328ebc6f2ba9802c1",
	},
	{
		name:     "CAVP_32bit",
		message:  "74ba2521",
		expected: "b16aa56be3880d18cd41e68384cf1ec8c17680c45a02b1575dc1518923ae8b0e",
	},
}

func TestSHA256(t *testing.T) {
	for _, tv := range sha256TestVectors {
		t.Run(tv.name, func(t *testing.T) {
			message, err := hex.DecodeString(tv.message)
			if err != nil {
				t.Fatal(err)
			}
			expected, err := hex.DecodeString(tv.expected)
			if err != nil {
				t.Fatal(err)
			}

			got := SHA256(message)
			if !bytes.Equal(got[:], expected) {
				t.Errorf("SHA256 = %x, want %x", got, expected)
			}
			if !bytes.Equal(SHA256Slice(message), expected) {
				t.Errorf("SHA256Slice mismatch")
			}
		})
	}
}

func TestSHA256Trunc(t *testing.T) {
	message := []byte("abc")
	full := SHA256(message)
	trunc := SHA256Trunc(message)
	if len(trunc) != SHA256TruncLenBytes {
		t.Fatalf("truncated length = %d, want %d", len(trunc), SHA256TruncLenBytes)
	}
	if !bytes.Equal(trunc, full[:SHA256TruncLenBytes]) {
		t.Errorf("SHA256Trunc = %x, want first 16 bytes of %x", trunc, full)
	}
}

func TestNewSHA256Incremental(t *testing.T) {
	h := NewSHA256()
	h.Write([]byte("a"))
	h.Write([]byte("bc"))
	want := SHA256([]byte("abc"))
	if !bytes.Equal(h.Sum(nil), want[:]) {
		t.Errorf("incremental digest differs from one-shot")
	}
}
