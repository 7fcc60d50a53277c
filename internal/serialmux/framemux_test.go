package serialmux

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/computercard/oscbridge/internal/wire"
)

func inputFrame(cv1 int16) []byte {
	pkt := make([]byte, wire.InputPacketSize)
	pkt[0] = wire.SyncDeviceToHost
	binary.LittleEndian.PutUint16(pkt[2:], uint16(cv1))
	return pkt
}

func TestNewFrameMux(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewFrameMux(port)

	require.NotNil(t, mux)
	require.NotNil(t, mux.subscribers)
}

func TestFrameMuxSubscribeUnsubscribe(t *testing.T) {
	mux := NewFrameMux(NewTestableSerialPort())

	id1, ch1 := mux.Subscribe()
	id2, ch2 := mux.Subscribe()

	assert.NotEmpty(t, id1)
	assert.NotEmpty(t, id2)
	assert.NotEqual(t, id1, id2, "subscription IDs should be unique")
	assert.NotNil(t, ch1)
	assert.NotNil(t, ch2)

	mux.subscriberMu.Lock()
	assert.Len(t, mux.subscribers, 2)
	mux.subscriberMu.Unlock()

	mux.Unsubscribe(id1)

	// The channel must be closed and removed.
	select {
	case _, ok := <-ch1:
		assert.False(t, ok, "unsubscribed channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel closure")
	}
	mux.subscriberMu.Lock()
	assert.Len(t, mux.subscribers, 1)
	mux.subscriberMu.Unlock()
}

func TestFrameMuxWriteFrame(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewFrameMux(port)

	pkt := wire.OutputFrame{Ch: [4]int16{1, 2, 3, 4}}.Encode()
	require.NoError(t, mux.WriteFrame(pkt))
	assert.Equal(t, pkt, port.GetWrittenData())
}

func TestFrameMuxWriteFrameError(t *testing.T) {
	port := NewTestableSerialPort()
	port.WriteError = errors.New("device unplugged")
	mux := NewFrameMux(port)

	err := mux.WriteFrame(wire.OutputFrame{}.Encode())
	assert.Error(t, err)
}

func TestFrameMuxMonitorDeliversFrames(t *testing.T) {
	port := NewTestableSerialPort()
	port.BlockReads = true
	mux := NewFrameMux(port)

	id, frames := mux.Subscribe()
	defer mux.Unsubscribe(id)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitorDone := make(chan error, 1)
	go func() {
		monitorDone <- mux.Monitor(ctx)
	}()

	// Garbage before the frame exercises resynchronization end to end.
	port.AddReadData([]byte{0xFF, 0xFE})
	port.AddReadData(inputFrame(1234))

	select {
	case frame := <-frames:
		assert.Equal(t, int16(1234), frame.CV[0])
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for decoded frame")
	}

	cancel()
	select {
	case err := <-monitorDone:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for monitor to stop")
	}
}

func TestFrameMuxMonitorReturnsReadError(t *testing.T) {
	port := NewTestableSerialPort()
	readErr := errors.New("serial gone")
	port.ReadError = readErr
	mux := NewFrameMux(port)

	err := mux.Monitor(context.Background())
	assert.Equal(t, readErr, err)
}

func TestFrameMuxMonitorReportsErrorAfterFrames(t *testing.T) {
	// A read error that follows delivered frames races the reader
	// goroutine's channel close; Monitor must still surface the error,
	// never a clean nil return, or the caller keeps a dead transport alive.
	readErr := errors.New("serial gone")

	for i := 0; i < 200; i++ {
		port := NewTestableSerialPort()
		port.AddReadData(inputFrame(55))
		mux := NewFrameMux(port)

		monitorDone := make(chan error, 1)
		go func() {
			monitorDone <- mux.Monitor(context.Background())
		}()

		// Wait until the frame bytes have been consumed, then fail the
		// next read.
		require.Eventually(t, func() bool {
			port.mu.Lock()
			defer port.mu.Unlock()
			return port.ReadBuffer.Len() == 0 && port.ReadCalls > 0
		}, 2*time.Second, time.Millisecond)

		port.mu.Lock()
		port.ReadError = readErr
		port.mu.Unlock()

		select {
		case err := <-monitorDone:
			require.Equal(t, readErr, err, "iteration %d: read error swallowed", i)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for monitor to return the read error")
		}
	}
}

func TestFrameMuxSlowSubscriberDoesNotBlock(t *testing.T) {
	port := NewTestableSerialPort()
	port.BlockReads = true
	mux := NewFrameMux(port)

	// Nobody ever reads from this subscription.
	id, _ := mux.Subscribe()
	defer mux.Unsubscribe(id)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitorDone := make(chan error, 1)
	go func() {
		monitorDone <- mux.Monitor(ctx)
	}()

	// Several frames; the stalled subscriber must not wedge the monitor.
	for i := 0; i < 5; i++ {
		port.AddReadData(inputFrame(int16(i)))
	}
	time.Sleep(50 * time.Millisecond)

	cancel()
	select {
	case <-monitorDone:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor blocked on a slow subscriber")
	}
}

func TestFrameMuxClose(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewFrameMux(port)

	_, ch := mux.Subscribe()
	require.NoError(t, mux.Close())

	_, ok := <-ch
	assert.False(t, ok, "subscriber channels should be closed on Close")
	assert.True(t, port.Closed)
}

func TestPortOptionsNormalize(t *testing.T) {
	tests := []struct {
		name    string
		opts    PortOptions
		wantErr bool
	}{
		{"defaults", PortOptions{}, false},
		{"explicit", PortOptions{BaudRate: 9600, DataBits: 8, StopBits: 1, Parity: "even"}, false},
		{"bad data bits", PortOptions{DataBits: 9}, true},
		{"bad stop bits", PortOptions{StopBits: 3}, true},
		{"bad parity", PortOptions{Parity: "M"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalized, err := tt.opts.Normalize()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Greater(t, normalized.BaudRate, 0)
			assert.NotEmpty(t, normalized.Parity)

			_, err = tt.opts.SerialMode()
			assert.NoError(t, err)
		})
	}
}

func TestMockFrameMuxReplaysFrames(t *testing.T) {
	mux := NewMockFrameMux(inputFrame(777), 5*time.Millisecond)
	defer mux.Close()

	id, frames := mux.Subscribe()
	defer mux.Unsubscribe(id)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mux.Monitor(ctx)

	select {
	case frame := <-frames:
		assert.Equal(t, int16(777), frame.CV[0])
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for mock frame")
	}
}
