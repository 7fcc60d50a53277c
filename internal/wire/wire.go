// Package wire implements the Workshop Computer binary packet protocol
// carried over USB CDC. Packets are fixed-size and start with a direction
// specific sync byte; the protocol defines no checksum, so framing relies
// entirely on sync-byte resynchronization.
package wire

import (
	"encoding/binary"
	"fmt"
)

// Protocol constants. Sizes include the sync and flag bytes.
const (
	SyncHostToDevice = 0xC0
	SyncDeviceToHost = 0xC1
	OutputPacketSize = 10 // host -> device: sync, flags, int16[4]
	InputPacketSize  = 16 // device -> host: sync, flags, int16[7]
)

// Output flag bits (host -> device).
const (
	FlagPulse1 = 0x01
	FlagPulse2 = 0x02
)

// InputFrame is one decoded device->host packet: two CV inputs, two audio
// inputs, three knobs, two pulse inputs and the three-position switch.
type InputFrame struct {
	Pulse1 bool
	Pulse2 bool
	Switch uint8 // 0=down, 1=middle, 2=up

	CV    [2]int16 // -2048..+2047
	Audio [2]int16 // -2048..+2047
	Knobs [3]int16 // Main, X, Y: 0..4095
}

// ParseInputFrame decodes a well-formed 16-byte device->host packet. The
// caller is expected to have located the frame via Decoder; the sync byte is
// still validated so a misuse fails loudly rather than yielding garbage.
func ParseInputFrame(pkt []byte) (InputFrame, error) {
	if len(pkt) != InputPacketSize {
		return InputFrame{}, fmt.Errorf("input frame must be %d bytes, got %d", InputPacketSize, len(pkt))
	}
	if pkt[0] != SyncDeviceToHost {
		return InputFrame{}, fmt.Errorf("input frame missing sync byte 0x%02X, got 0x%02X", SyncDeviceToHost, pkt[0])
	}

	flags := pkt[1]
	f := InputFrame{
		Pulse1: flags&FlagPulse1 != 0,
		Pulse2: flags&FlagPulse2 != 0,
		Switch: (flags >> 2) & 0x03,
	}
	f.CV[0] = int16(binary.LittleEndian.Uint16(pkt[2:4]))
	f.CV[1] = int16(binary.LittleEndian.Uint16(pkt[4:6]))
	f.Audio[0] = int16(binary.LittleEndian.Uint16(pkt[6:8]))
	f.Audio[1] = int16(binary.LittleEndian.Uint16(pkt[8:10]))
	f.Knobs[0] = int16(binary.LittleEndian.Uint16(pkt[10:12]))
	f.Knobs[1] = int16(binary.LittleEndian.Uint16(pkt[12:14]))
	f.Knobs[2] = int16(binary.LittleEndian.Uint16(pkt[14:16]))
	return f, nil
}

// OutputFrame is the full host->device output state: four analog channels
// and two pulse outputs. Encoding always serializes every channel so a
// partial update can never zero the untouched ones.
type OutputFrame struct {
	Pulse1 bool
	Pulse2 bool
	Ch     [4]int16 // channels 1..4, -2048..+2047
}

// Encode serializes the frame into exactly OutputPacketSize bytes. Callers
// must hand the result to a single Write so frame bytes never interleave on
// the transport.
func (f OutputFrame) Encode() []byte {
	pkt := make([]byte, OutputPacketSize)
	pkt[0] = SyncHostToDevice
	if f.Pulse1 {
		pkt[1] |= FlagPulse1
	}
	if f.Pulse2 {
		pkt[1] |= FlagPulse2
	}
	for i, v := range f.Ch {
		binary.LittleEndian.PutUint16(pkt[2+2*i:], uint16(v))
	}
	return pkt
}
