package bridge

import (
	"sync"

	"github.com/computercard/oscbridge/internal/units"
	"github.com/computercard/oscbridge/internal/wire"
)

// FrameWriter is the transport-facing side of the output path. The
// implementation must write each frame with a single Write call so frames
// never interleave on the wire.
type FrameWriter interface {
	WriteFrame([]byte) error
}

// OutputState holds the latest commanded value for every output channel and
// the two pulse outputs. Each control update mutates exactly one slot and
// immediately sends a frame carrying the full combined state, so untouched
// channels always keep their last committed values.
//
// The mutex covers the whole read-modify-encode-write sequence: concurrent
// control messages can never produce a torn frame mixing two in-flight
// updates.
type OutputState struct {
	mu     sync.Mutex
	frame  wire.OutputFrame
	span   float64
	writer FrameWriter
}

// NewOutputState returns an OutputState with all channels at zero and
// pulses low.
func NewOutputState(span float64, writer FrameWriter) *OutputState {
	return &OutputState{span: span, writer: writer}
}

// Apply merges one control update into the output state and sends a frame
// reflecting the combined state of all channels. Updates with an unknown
// class or an out-of-range index are silently ignored: a malformed external
// message must not crash the bridge, and the control plane has no channel
// for reporting errors back.
//
// There is no batching: one control message in, one frame out.
func (s *OutputState) Apply(class string, index int, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch class {
	case ClassCh:
		if index < 1 || index > len(s.frame.Ch) {
			return nil
		}
		volts := units.ClampVolts(value, s.span)
		s.frame.Ch[index-1] = units.VoltsToNative(volts, s.span)
	case ClassPulse:
		high := units.PulseFromPhysical(value)
		switch index {
		case 1:
			s.frame.Pulse1 = high
		case 2:
			s.frame.Pulse2 = high
		default:
			return nil
		}
	default:
		return nil
	}

	return s.writer.WriteFrame(s.frame.Encode())
}

// Snapshot returns a copy of the current output state.
func (s *OutputState) Snapshot() wire.OutputFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// Zero resets every channel and pulse to zero and sends the corresponding
// frame, leaving the device outputs quiet. Used on shutdown.
func (s *OutputState) Zero() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = wire.OutputFrame{}
	return s.writer.WriteFrame(s.frame.Encode())
}
