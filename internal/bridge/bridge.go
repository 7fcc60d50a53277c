// Package bridge contains the steady-state protocol engine that connects
// the Workshop Computer's binary serial protocol to OSC controllers: the
// output state coalescer, the telemetry change filter and the orchestrator
// running the two independent data directions.
package bridge

import (
	"context"
	"log"

	"github.com/computercard/oscbridge/internal/config"
	"github.com/computercard/oscbridge/internal/serialmux"
	"github.com/computercard/oscbridge/internal/units"
	"github.com/computercard/oscbridge/internal/wire"
)

// Sender delivers one telemetry value to the controller-facing transport.
type Sender interface {
	Send(address string, value float64) error
}

// Recorder persists emitted telemetry. Optional; see internal/db.
type Recorder interface {
	RecordReading(address string, value float64) error
}

// Options configures optional bridge behaviour.
type Options struct {
	// FilterEnabled turns on change suppression for continuous telemetry
	// addresses. The outbound control path is never filtered or batched.
	FilterEnabled bool

	// Recorder, if non-nil, receives every emitted telemetry reading.
	Recorder Recorder
}

// Bridge owns the two data directions between the serial device and the
// OSC control plane. The directions share only the output state (which has
// its own mutex) and the serial write path (serialized by the frame mux);
// no ordering is guaranteed between them.
type Bridge struct {
	mux      serialmux.FrameMuxInterface
	profile  *config.Profile
	sender   Sender
	filter   *ChangeFilter
	outputs  *OutputState
	recorder Recorder
}

// New constructs a Bridge from its collaborators. The output and filter
// state are created here and owned by the bridge for the process lifetime.
func New(mux serialmux.FrameMuxInterface, profile *config.Profile, sender Sender, opts Options) *Bridge {
	b := &Bridge{
		mux:      mux,
		profile:  profile,
		sender:   sender,
		outputs:  NewOutputState(profile.GetVoltageSpan(), mux),
		recorder: opts.Recorder,
	}
	if opts.FilterEnabled {
		b.filter = NewChangeFilter(profile.GetChangeThreshold())
	}
	return b
}

// Outputs exposes the output state, used by tests and by shutdown handling.
func (b *Bridge) Outputs() *OutputState {
	return b.outputs
}

// HandleControl applies one inbound control message to the device. It is
// invoked by the OSC server's dispatch, potentially concurrently across
// messages; the output state serializes the updates. Malformed addresses
// and out-of-range indexes are dropped without an error; the control plane
// has no acknowledgment channel.
func (b *Bridge) HandleControl(address string, value float64) {
	class, index, ok := ParseControlAddress(address)
	if !ok {
		return
	}
	if err := b.outputs.Apply(class, index, value); err != nil {
		log.Printf("❌ Error writing output frame for %s: %v", address, err)
	}
}

// Run executes the inbound direction: decoded input frames are converted to
// physical units, filtered, and emitted as telemetry until the context is
// cancelled or the frame source closes. Send errors are logged and the loop
// continues; they are transient network conditions, not protocol failures.
func (b *Bridge) Run(ctx context.Context) error {
	id, frames := b.mux.Subscribe()
	defer b.mux.Unsubscribe(id)

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			b.PublishFrame(frame)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// PublishFrame emits telemetry for every input channel of one decoded
// frame, applying the change filter when enabled.
func (b *Bridge) PublishFrame(frame wire.InputFrame) {
	span := b.profile.GetVoltageSpan()
	knobUnits := b.profile.GetKnobUnits()

	// Input channels are numbered top-to-bottom on the panel: audio
	// inputs first, then CV inputs, matching the firmware's mapping.
	b.emit("/ch/1", units.NativeToVolts(frame.Audio[0], span))
	b.emit("/ch/2", units.NativeToVolts(frame.Audio[1], span))
	b.emit("/ch/3", units.NativeToVolts(frame.CV[0], span))
	b.emit("/ch/4", units.NativeToVolts(frame.CV[1], span))

	b.emit("/knob/main", units.KnobToPhysical(frame.Knobs[0], knobUnits))
	b.emit("/knob/x", units.KnobToPhysical(frame.Knobs[1], knobUnits))
	b.emit("/knob/y", units.KnobToPhysical(frame.Knobs[2], knobUnits))

	b.emit(AddrSwitch, float64(frame.Switch))
	b.emit(AddrPulse1, units.PulseToPhysical(frame.Pulse1))
	b.emit(AddrPulse2, units.PulseToPhysical(frame.Pulse2))
}

func (b *Bridge) emit(address string, value float64) {
	if b.filter != nil && !b.filter.ShouldEmit(address, value) {
		return
	}
	if err := b.sender.Send(address, value); err != nil {
		log.Printf("❌ Error sending %s: %v", address, err)
		return
	}
	if b.filter != nil {
		b.filter.Record(address, value)
	}
	if b.recorder != nil {
		if err := b.recorder.RecordReading(address, value); err != nil {
			log.Printf("failed to record reading %s: %v", address, err)
		}
	}
}

// Shutdown sends the final all-zero, pulses-clear frame so the device is
// left quiet. Errors are ignored beyond logging: the transport may already
// be gone, and shutdown must not block on it.
func (b *Bridge) Shutdown() {
	if err := b.outputs.Zero(); err != nil {
		log.Printf("failed to zero outputs on shutdown: %v", err)
	}
}
