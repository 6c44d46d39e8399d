package largeblob

import (
	"bytes"
	"compress/flate"
	"fmt"
	"io"
)

// maxOrigSize bounds the uncompressed size of a single blob. Anything
// larger cannot have come from a conforming authenticator and refuses to
// inflate.
const maxOrigSize = 1 << 24

// deflateBlob compresses plaintext with raw DEFLATE. Entries store the
// compressed form; origSize records the plaintext length for inflation.
func deflateBlob(plaintext []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return buf.Bytes(), nil
}

// inflateBlob decompresses data and requires the stream to produce exactly
// origSize bytes. Truncated or over-long streams are rejected; the device
// is untrusted and origSize is the only stated contract.
func inflateBlob(data []byte, origSize uint64) ([]byte, error) {
	if origSize == 0 || origSize > maxOrigSize {
		return nil, fmt.Errorf("%w: bad original size %d", ErrInvalidArgument, origSize)
	}

	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()

	out := make([]byte, origSize)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("largeblob: inflate: %w", err)
	}

	// The stream must end exactly at origSize.
	var extra [1]byte
	for {
		n, err := r.Read(extra[:])
		if n != 0 {
			return nil, fmt.Errorf("largeblob: inflate: stream longer than original size")
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("largeblob: inflate: %w", err)
		}
	}

	return out, nil
}
