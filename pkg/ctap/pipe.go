package ctap

import (
	"errors"
	"time"

	"github.com/pion/logging"
	"github.com/pion/transport/v3/packetio"
)

// Pipe errors.
var (
	ErrPipeClosed = errors.New("ctap: pipe closed")
)

// pipeBufferSize bounds one queued message: status byte plus the largest
// CBOR payload the transport permits.
const pipeBufferSize = MaxWireSize + 1

// Pipe provides bidirectional in-memory CTAP message exchange between a
// platform-side Device and a test authenticator. Each direction is a
// message-preserving queue with read-deadline support.
//
// Use Pipe for deterministic protocol tests without real device I/O: drive
// the platform side through NewPipeDevice and serve the authenticator side
// with AuthRecv/AuthSend.
type Pipe struct {
	toDevice *packetio.Buffer
	toAuth   *packetio.Buffer
}

// NewPipe creates a new bidirectional pipe.
func NewPipe() *Pipe {
	return &Pipe{
		toDevice: packetio.NewBuffer(),
		toAuth:   packetio.NewBuffer(),
	}
}

// Close closes both directions. Blocked reads return an error.
func (p *Pipe) Close() error {
	err1 := p.toAuth.Close()
	err2 := p.toDevice.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// AuthRecv receives the next request sent by the platform side.
// timeoutMs bounds the wait; NoTimeout (-1) waits indefinitely.
func (p *Pipe) AuthRecv(timeoutMs int) ([]byte, error) {
	return readMessage(p.toAuth, timeoutMs)
}

// AuthSend queues a reply for the platform side.
func (p *Pipe) AuthSend(reply []byte) error {
	_, err := p.toDevice.Write(reply)
	return err
}

// readMessage reads one queued message, honoring the millisecond timeout.
func readMessage(buf *packetio.Buffer, timeoutMs int) ([]byte, error) {
	if timeoutMs >= 0 {
		if err := buf.SetReadDeadline(time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)); err != nil {
			return nil, err
		}
	} else {
		if err := buf.SetReadDeadline(time.Time{}); err != nil {
			return nil, err
		}
	}

	msg := make([]byte, pipeBufferSize)
	n, err := buf.Read(msg)
	if err != nil {
		return nil, err
	}
	return msg[:n], nil
}

// PipeDeviceConfig configures a PipeDevice.
type PipeDeviceConfig struct {
	// Info is the device descriptor reported by Info().
	Info Info

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// PipeDevice is the platform end of a Pipe. It implements Device.
type PipeDevice struct {
	pipe *Pipe
	info Info
	log  logging.LeveledLogger
}

// NewPipeDevice creates a Device backed by the given pipe.
func NewPipeDevice(pipe *Pipe, config PipeDeviceConfig) *PipeDevice {
	d := &PipeDevice{
		pipe: pipe,
		info: config.Info,
	}
	if config.LoggerFactory != nil {
		d.log = config.LoggerFactory.NewLogger("ctap-pipe")
	}
	return d
}

// Tx sends one request to the authenticator side.
func (d *PipeDevice) Tx(payload []byte) error {
	if d.log != nil {
		d.log.Tracef("tx % x", payload)
	}
	_, err := d.pipe.toAuth.Write(payload)
	return err
}

// Rx receives one reply from the authenticator side.
func (d *PipeDevice) Rx(timeoutMs int) ([]byte, error) {
	reply, err := readMessage(d.pipe.toDevice, timeoutMs)
	if err != nil {
		return nil, err
	}
	if d.log != nil {
		d.log.Tracef("rx % x", reply)
	}
	return reply, nil
}

// Info returns the configured device descriptor.
func (d *PipeDevice) Info() Info {
	return d.info
}

// Verify PipeDevice implements Device.
var _ Device = (*PipeDevice)(nil)
