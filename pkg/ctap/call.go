package ctap

import "fmt"

// Call performs one CTAP CBOR round trip: encode req, transmit, await the
// reply, check its status byte, and decode the response map into rsp.
//
// req may be nil for commands without parameters; rsp may be nil when only
// the status byte matters. A non-OK status byte is returned as an Error so
// authenticator-reported conditions pass through to the caller unchanged.
//
// Commands are strictly sequential: Call does not return until the reply for
// this request has been received and decoded, so there is never more than
// one outstanding request on the device.
func Call(dev Device, cmd byte, req, rsp interface{}, timeoutMs int) error {
	payload := []byte{cmd}
	if req != nil {
		body, err := Marshal(req)
		if err != nil {
			return fmt.Errorf("ctap: encode command 0x%02x: %w", cmd, err)
		}
		payload = append(payload, body...)
	}

	if err := dev.Tx(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrTx, err)
	}

	reply, err := dev.Rx(timeoutMs)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRx, err)
	}
	if len(reply) == 0 {
		return fmt.Errorf("%w: empty reply", ErrRx)
	}

	if status := Error(reply[0]); status != StatusOK {
		return status
	}

	if rsp != nil {
		if len(reply) < 2 {
			return fmt.Errorf("%w: reply has no payload", ErrRx)
		}
		if err := Unmarshal(reply[1:], rsp); err != nil {
			return fmt.Errorf("%w: decode reply: %v", ErrRx, err)
		}
	}

	return nil
}
