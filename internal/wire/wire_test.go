package wire

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// specimenFrame is a captured device->host packet: pulse1 high, switch in
// the middle position, CV In 1 railed high, knob X and Y barely open.
var specimenFrame = []byte{
	0xC1, 0x05,
	0x00, 0x08, // cv1 = +2048
	0x00, 0x00, // cv2 = 0
	0x00, 0x00, // audio1 = 0
	0x00, 0x00, // audio2 = 0
	0x0F, 0xF0, // knob main (corrupt-looking raw, parses as int16)
	0x0F, 0x00, // knob x = 15
	0x0F, 0x00, // knob y = 15
}

func TestParseInputFrame(t *testing.T) {
	frame, err := ParseInputFrame(specimenFrame)
	if err != nil {
		t.Fatalf("ParseInputFrame returned error: %v", err)
	}

	want := InputFrame{
		Pulse1: true,
		Pulse2: false,
		Switch: 1,
		CV:     [2]int16{2048, 0},
		Audio:  [2]int16{0, 0},
		Knobs:  [3]int16{-4081, 15, 15},
	}
	if diff := cmp.Diff(want, frame); diff != "" {
		t.Errorf("ParseInputFrame mismatch (-want +got):\n%s", diff)
	}
}

func TestParseInputFrameFlagBits(t *testing.T) {
	tests := []struct {
		name      string
		flags     byte
		pulse1    bool
		pulse2    bool
		switchPos uint8
	}{
		{"all clear", 0x00, false, false, 0},
		{"pulse1 only", 0x01, true, false, 0},
		{"pulse2 only", 0x02, false, true, 0},
		{"both pulses", 0x03, true, true, 0},
		{"switch middle", 0x04, false, false, 1},
		{"switch up", 0x08, false, false, 2},
		{"pulse1 and switch middle", 0x05, true, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkt := make([]byte, InputPacketSize)
			pkt[0] = SyncDeviceToHost
			pkt[1] = tt.flags

			frame, err := ParseInputFrame(pkt)
			if err != nil {
				t.Fatalf("ParseInputFrame returned error: %v", err)
			}
			if frame.Pulse1 != tt.pulse1 {
				t.Errorf("Pulse1 = %v, want %v", frame.Pulse1, tt.pulse1)
			}
			if frame.Pulse2 != tt.pulse2 {
				t.Errorf("Pulse2 = %v, want %v", frame.Pulse2, tt.pulse2)
			}
			if frame.Switch != tt.switchPos {
				t.Errorf("Switch = %d, want %d", frame.Switch, tt.switchPos)
			}
		})
	}
}

func TestParseInputFrameErrors(t *testing.T) {
	if _, err := ParseInputFrame(specimenFrame[:10]); err == nil {
		t.Error("expected error for short packet")
	}
	bad := append([]byte(nil), specimenFrame...)
	bad[0] = 0x00
	if _, err := ParseInputFrame(bad); err == nil {
		t.Error("expected error for missing sync byte")
	}
}

func TestOutputFrameEncode(t *testing.T) {
	frame := OutputFrame{
		Pulse1: true,
		Ch:     [4]int16{100, -100, 2047, -2048},
	}

	pkt := frame.Encode()
	want := []byte{
		0xC0, 0x01,
		0x64, 0x00, // 100
		0x9C, 0xFF, // -100
		0xFF, 0x07, // 2047
		0x00, 0xF8, // -2048
	}
	if !bytes.Equal(pkt, want) {
		t.Errorf("Encode() = % X, want % X", pkt, want)
	}
	if len(pkt) != OutputPacketSize {
		t.Errorf("Encode() length = %d, want %d", len(pkt), OutputPacketSize)
	}
}

func TestOutputFrameEncodeFlags(t *testing.T) {
	tests := []struct {
		name  string
		frame OutputFrame
		flags byte
	}{
		{"no pulses", OutputFrame{}, 0x00},
		{"pulse1", OutputFrame{Pulse1: true}, 0x01},
		{"pulse2", OutputFrame{Pulse2: true}, 0x02},
		{"both", OutputFrame{Pulse1: true, Pulse2: true}, 0x03},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkt := tt.frame.Encode()
			if pkt[0] != SyncHostToDevice {
				t.Errorf("sync byte = 0x%02X, want 0x%02X", pkt[0], SyncHostToDevice)
			}
			if pkt[1] != tt.flags {
				t.Errorf("flags = 0x%02X, want 0x%02X", pkt[1], tt.flags)
			}
		})
	}
}
