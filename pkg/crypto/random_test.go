package crypto

import (
	"bytes"
	"testing"
)

func TestRandomNonce(t *testing.T) {
	n1, err := RandomNonce()
	if err != nil {
		t.Fatalf("RandomNonce failed: %v", err)
	}
	if len(n1) != AESGCMNonceSize {
		t.Fatalf("nonce length = %d, want %d", len(n1), AESGCMNonceSize)
	}

	n2, err := RandomNonce()
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(n1, n2) {
		t.Error("two fresh nonces are identical")
	}
}

func TestRandomBytesLength(t *testing.T) {
	for _, n := range []int{0, 1, 32, 257} {
		b, err := RandomBytes(n)
		if err != nil {
			t.Fatalf("RandomBytes(%d) failed: %v", n, err)
		}
		if len(b) != n {
			t.Errorf("RandomBytes(%d) length = %d", n, len(b))
		}
	}
}
