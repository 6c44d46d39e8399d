package largeblob

import (
	"bytes"
	"sync"
	"testing"

	"github.com/fxamacker/cbor/v2"

	"github.com/SigmaG33/libfido2/pkg/crypto"
	"github.com/SigmaG33/libfido2/pkg/ctap"
	"github.com/SigmaG33/libfido2/pkg/pinuv"
)

// fakeAuthenticator implements the authenticator side of the large-blob
// wire protocol over a ctap.Pipe: fragment reads, staged writes with offset
// and length checks, per-chunk MAC verification, and the final trailer
// check before committing storage.
type fakeAuthenticator struct {
	pipe  *ctap.Pipe
	proto pinuv.Protocol

	mu      sync.Mutex
	storage []byte // committed serialized array (body plus trailer)
	token   []byte // when set, every write chunk must carry a valid MAC

	// staged write
	pending     []byte
	expectedLen int
	chunks      [][]byte // chunks of the most recent write, in order

	// oversizeReads makes reads return one more byte than requested, for
	// testing defensive rejection.
	oversizeReads bool

	// observed traffic
	reads  int
	writes int
}

func newFakeAuthenticator(t *testing.T, pipe *ctap.Pipe) *fakeAuthenticator {
	t.Helper()
	proto, err := pinuv.New(pinuv.ProtocolV2)
	if err != nil {
		t.Fatal(err)
	}
	f := &fakeAuthenticator{pipe: pipe, proto: proto}
	go f.serve()
	return f
}

// seedArray commits a serialized array directly into storage.
func (f *fakeAuthenticator) seedArray(wire []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storage = append([]byte(nil), wire...)
}

func (f *fakeAuthenticator) storedBytes() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.storage...)
}

func (f *fakeAuthenticator) counts() (reads, writes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads, f.writes
}

func (f *fakeAuthenticator) writeChunks() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.chunks))
	copy(out, f.chunks)
	return out
}

func (f *fakeAuthenticator) serve() {
	for {
		payload, err := f.pipe.AuthRecv(ctap.NoTimeout)
		if err != nil {
			return
		}
		reply := f.handle(payload)
		if f.pipe.AuthSend(reply) != nil {
			return
		}
	}
}

func (f *fakeAuthenticator) handle(payload []byte) []byte {
	if len(payload) < 2 || payload[0] != ctap.CmdLargeBlobs {
		return []byte{byte(ctap.ErrInvalidCommand)}
	}

	var req map[int]cbor.RawMessage
	if err := ctap.Unmarshal(payload[1:], &req); err != nil {
		return []byte{byte(ctap.ErrInvalidCBOR)}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Key 1 is a count on reads and a byte string on writes.
	var count uint64
	if err := ctap.Unmarshal(req[1], &count); err == nil {
		return f.handleGet(count, req)
	}
	return f.handleSet(req)
}

func (f *fakeAuthenticator) handleGet(count uint64, req map[int]cbor.RawMessage) []byte {
	var offset uint64
	if raw, ok := req[3]; !ok || ctap.Unmarshal(raw, &offset) != nil {
		return []byte{byte(ctap.ErrMissingParameter)}
	}
	f.reads++

	if offset > uint64(len(f.storage)) {
		offset = uint64(len(f.storage))
	}
	end := offset + count
	if end > uint64(len(f.storage)) {
		end = uint64(len(f.storage))
	}
	fragment := f.storage[offset:end]
	if f.oversizeReads {
		padded := make([]byte, count+1)
		copy(padded, fragment)
		fragment = padded
	}

	body, err := ctap.Marshal(map[int][]byte{1: fragment})
	if err != nil {
		return []byte{byte(ctap.ErrOther)}
	}
	return append([]byte{byte(ctap.StatusOK)}, body...)
}

func (f *fakeAuthenticator) handleSet(req map[int]cbor.RawMessage) []byte {
	var chunk []byte
	if raw, ok := req[1]; !ok || ctap.Unmarshal(raw, &chunk) != nil {
		return []byte{byte(ctap.ErrInvalidParameter)}
	}
	var offset uint64
	if raw, ok := req[2]; !ok || ctap.Unmarshal(raw, &offset) != nil {
		return []byte{byte(ctap.ErrMissingParameter)}
	}
	f.writes++

	if offset == 0 {
		var total uint64
		if raw, ok := req[3]; !ok || ctap.Unmarshal(raw, &total) != nil {
			return []byte{byte(ctap.ErrMissingParameter)}
		}
		f.pending = nil
		f.expectedLen = int(total)
		f.chunks = nil
	} else {
		if _, ok := req[3]; ok {
			// Length is only valid on the first chunk.
			return []byte{byte(ctap.ErrInvalidParameter)}
		}
		if offset != uint64(len(f.pending)) {
			return []byte{byte(ctap.ErrInvalidSeq)}
		}
	}

	if f.token != nil {
		var mac []byte
		if raw, ok := req[4]; !ok || ctap.Unmarshal(raw, &mac) != nil {
			return []byte{byte(ctap.ErrPinRequired)}
		}
		want := f.proto.Authenticate(f.token, writeAuthInput(uint32(offset), chunk))
		if !bytes.Equal(mac, want) {
			return []byte{byte(ctap.ErrPinAuthInvalid)}
		}
	}

	f.pending = append(f.pending, chunk...)
	f.chunks = append(f.chunks, append([]byte(nil), chunk...))
	if len(f.pending) > f.expectedLen {
		return []byte{byte(ctap.ErrInvalidParameter)}
	}
	if len(f.pending) == f.expectedLen {
		if len(f.pending) <= trailerSize {
			return []byte{byte(ctap.ErrInvalidParameter)}
		}
		body := f.pending[:len(f.pending)-trailerSize]
		trailer := f.pending[len(f.pending)-trailerSize:]
		if !bytes.Equal(crypto.SHA256Trunc(body), trailer) {
			return []byte{byte(ctap.ErrIntegrityFailure)}
		}
		f.storage = f.pending
		f.pending = nil
		f.expectedLen = 0
	}

	return []byte{byte(ctap.StatusOK)}
}

// fakeTokenSource hands out MACs under a fixed token, mirroring the token
// the fake authenticator checks against.
type fakeTokenSource struct {
	proto pinuv.Protocol
	token []byte
}

func (s *fakeTokenSource) CanGetUVToken(dev ctap.Device, pin string) bool {
	return s.token != nil
}

func (s *fakeTokenSource) GetUVToken(dev ctap.Device, pin string, timeoutMs int) (Token, error) {
	return &fakeToken{proto: s.proto, token: s.token}, nil
}

type fakeToken struct {
	proto     pinuv.Protocol
	token     []byte
	destroyed bool
}

func (t *fakeToken) Authenticate(message []byte) []byte {
	return t.proto.Authenticate(t.token, message)
}

func (t *fakeToken) ProtocolID() uint64 { return uint64(t.proto.ID()) }

func (t *fakeToken) Destroy() { t.destroyed = true }

// testSetup wires a pipe, a fake authenticator, and a client together.
func testSetup(t *testing.T, maxMsgSize int, authenticated bool) (*Client, *fakeAuthenticator) {
	t.Helper()

	pipe := ctap.NewPipe()
	t.Cleanup(func() { pipe.Close() })

	auth := newFakeAuthenticator(t, pipe)
	dev := ctap.NewPipeDevice(pipe, ctap.PipeDeviceConfig{Info: ctap.Info{MaxMsgSize: maxMsgSize}})

	source := &fakeTokenSource{proto: auth.proto}
	if authenticated {
		token := bytes.Repeat([]byte{0x7A}, 32)
		auth.token = token
		source.token = token
	}

	client := NewClient(dev, ClientConfig{Tokens: source, Timeout: 2000})
	return client, auth
}

// testKey builds a deterministic 32-byte key from a fill byte.
func testKey(fill byte) []byte {
	return bytes.Repeat([]byte{fill}, KeySize)
}
