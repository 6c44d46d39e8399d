package ctap

import (
	"bytes"
	"testing"
	"time"
)

func TestPipeMessageBoundaries(t *testing.T) {
	pipe := NewPipe()
	defer pipe.Close()
	dev := NewPipeDevice(pipe, PipeDeviceConfig{})

	if err := dev.Tx([]byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if err := dev.Tx([]byte{4}); err != nil {
		t.Fatal(err)
	}

	first, err := pipe.AuthRecv(1000)
	if err != nil {
		t.Fatal(err)
	}
	second, err := pipe.AuthRecv(1000)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first, []byte{1, 2, 3}) || !bytes.Equal(second, []byte{4}) {
		t.Errorf("messages = % x / % x, boundaries not preserved", first, second)
	}
}

func TestPipeRecvTimeout(t *testing.T) {
	pipe := NewPipe()
	defer pipe.Close()

	start := time.Now()
	if _, err := pipe.AuthRecv(20); err == nil {
		t.Error("AuthRecv returned without data")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}

func TestPipeDeviceInfo(t *testing.T) {
	pipe := NewPipe()
	defer pipe.Close()

	info := Info{MaxMsgSize: 1200, PinUvAuthToken: true, PinUvAuthProtocols: []uint64{2, 1}}
	dev := NewPipeDevice(pipe, PipeDeviceConfig{Info: info})

	got := dev.Info()
	if got.MaxMsgSize != 1200 || !got.PinUvAuthToken || len(got.PinUvAuthProtocols) != 2 {
		t.Errorf("Info = %+v", got)
	}
}

func TestPipeCloseUnblocksReader(t *testing.T) {
	pipe := NewPipe()
	done := make(chan error, 1)
	go func() {
		_, err := pipe.AuthRecv(NoTimeout)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	pipe.Close()

	select {
	case err := <-done:
		if err == nil {
			t.Error("read returned nil error after close")
		}
	case <-time.After(time.Second):
		t.Error("reader still blocked after close")
	}
}
