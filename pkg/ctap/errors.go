package ctap

import "errors"

// Transport-level errors.
var (
	// ErrTx is returned when sending a request to the device fails.
	ErrTx = errors.New("ctap: transmit failed")

	// ErrRx is returned when receiving a reply fails or the reply is
	// malformed.
	ErrRx = errors.New("ctap: receive failed")
)
