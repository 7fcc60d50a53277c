// Package serialmux provides an abstraction over a serial port carrying the
// Workshop Computer binary packet protocol, with the ability for multiple
// clients to subscribe to decoded input frames and for concurrent callers
// to write whole output frames to a single serial device.
package serialmux

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/computercard/oscbridge/internal/wire"
)

var ErrWriteFailed = fmt.Errorf("failed to write to serial port")

// FrameMux multiplexes a serial port speaking the binary packet protocol.
// Decoded device->host frames fan out to subscribers; host->device frames
// are written under a mutex so two frames never interleave on the wire.
type FrameMux[T SerialPorter] struct {
	port         T
	subscribers  map[string]chan wire.InputFrame
	subscriberMu sync.Mutex
	writeMu      sync.Mutex
	closing      bool
	closingMu    sync.Mutex
}

// FrameMuxInterface defines the interface for the FrameMux type.
type FrameMuxInterface interface {
	// Subscribe creates a new channel for receiving decoded input frames
	// from the serial port. The channel ID is used to identify the unique
	// channel when unsubscribing.
	Subscribe() (string, chan wire.InputFrame)
	// Unsubscribe removes a channel from the list of subscribers.
	Unsubscribe(string)
	// WriteFrame writes one complete output frame to the serial port.
	WriteFrame([]byte) error
	// Monitor reads bytes from the serial port, reassembles frames and
	// sends them to the appropriate channels.
	Monitor(context.Context) error
	// Close closes all subscribed channels and closes the serial port.
	Close() error
}

// NewFrameMux creates a FrameMux instance backed by the given port.
func NewFrameMux[T SerialPorter](port T) *FrameMux[T] {
	return &FrameMux[T]{
		port:        port,
		subscribers: make(map[string]chan wire.InputFrame),
	}
}

// randomID generates a random channel ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

func (m *FrameMux[T]) Subscribe() (string, chan wire.InputFrame) {
	id := randomID()
	ch := make(chan wire.InputFrame)
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	m.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber from the frame mux.
func (m *FrameMux[T]) Unsubscribe(id string) {
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	if ch, ok := m.subscribers[id]; ok {
		close(ch)
		delete(m.subscribers, id)
	}
}

// WriteFrame writes one complete output frame to the serial port. The write
// mutex guarantees that concurrent callers cannot interleave frame bytes on
// the transport.
func (m *FrameMux[T]) WriteFrame(pkt []byte) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	n, err := m.port.Write(pkt)
	if err != nil {
		return err
	}
	if n != len(pkt) {
		return ErrWriteFailed
	}
	return nil
}

// Monitor reads from the serial port, reassembles input frames and fans
// them out to subscribers. A read error is returned to the caller: a failed
// serial read means the device is gone and the bridge cannot continue.
func (m *FrameMux[T]) Monitor(ctx context.Context) error {
	frameChan := make(chan wire.InputFrame)
	readErrChan := make(chan error, 1)

	// Read raw chunks on a separate goroutine so the blocking Read cannot
	// stall the outer loop's context handling. The decoder's buffer
	// survives short reads, so any chunking is acceptable here.
	go func() {
		defer close(frameChan)
		decoder := wire.NewDecoder()
		buf := make([]byte, 256)
		for {
			n, err := m.port.Read(buf)
			if err != nil {
				select {
				case readErrChan <- err:
				case <-ctx.Done():
				}
				return
			}
			if n == 0 {
				// Poll timeout on a silent device; check for shutdown.
				select {
				case <-ctx.Done():
					return
				default:
					continue
				}
			}
			for _, frame := range decoder.Feed(buf[:n]) {
				select {
				case frameChan <- frame:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	for {
		select {
		// check if the context is done
		// and exit the loop if so
		case <-ctx.Done():
			return ctx.Err()

		case err := <-readErrChan:
			return err

		case frame, ok := <-frameChan:
			if !ok {
				// The reader goroutine is gone. It may have sent a read
				// error just before closing the channel; both cases can be
				// ready at once and select picks arbitrarily, so the error
				// must be drained here or a dead transport looks like a
				// clean shutdown.
				select {
				case err := <-readErrChan:
					return err
				default:
					return nil
				}
			}
			// Check if we're closing
			m.closingMu.Lock()
			if m.closing {
				m.closingMu.Unlock()
				return nil
			}
			m.closingMu.Unlock()

			m.subscriberMu.Lock()
			for _, ch := range m.subscribers {
				select {
				case ch <- frame:
				default:
					// if the channel is full/blocking skip so as not to block the outer loop
				}
			}
			m.subscriberMu.Unlock()
		}
	}
}

func (m *FrameMux[T]) Close() error {
	m.closingMu.Lock()
	m.closing = true
	m.closingMu.Unlock()

	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	for id, ch := range m.subscribers {
		close(ch)
		delete(m.subscribers, id)
	}
	return m.port.Close()
}
