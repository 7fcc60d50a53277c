// Package units converts between the Workshop Computer's native fixed-point
// values and physical units (volts or normalized fractions). All conversions
// are pure functions parameterized by the configured total voltage span;
// the two hardware revisions differ only in that span and in the knob unit
// convention.
package units

import "math"

// Native value domain for all analog channels.
const (
	NativeMin = -2048
	NativeMax = 2047
)

// nativeSteps is the number of native steps across the full voltage span.
const nativeSteps = NativeMax - NativeMin + 1

// Knob unit mode constants.
const (
	KnobVolts = "volts" // 0.0 .. 6.0 V
	KnobNorm  = "norm"  // 0.0 .. 1.0
)

// ValidKnobUnits contains all valid knob unit values.
var ValidKnobUnits = []string{KnobVolts, KnobNorm}

// KnobUnitsValid checks if the given knob unit mode is valid.
func KnobUnitsValid(mode string) bool {
	for _, valid := range ValidKnobUnits {
		if mode == valid {
			return true
		}
	}
	return false
}

// ClampVolts clamps a caller-supplied voltage to the legal interval for the
// configured span. Inputs are clamped before conversion so an out-of-range
// control value can never reach the device as a wrapped native value.
func ClampVolts(volts, span float64) float64 {
	limit := span / 2
	if volts > limit {
		return limit
	}
	if volts < -limit {
		return -limit
	}
	return volts
}

// VoltsToNative converts a voltage to the native fixed-point value,
// clamping to [NativeMin, NativeMax].
func VoltsToNative(volts, span float64) int16 {
	native := int(math.Round(volts / span * nativeSteps))
	if native > NativeMax {
		native = NativeMax
	}
	if native < NativeMin {
		native = NativeMin
	}
	return int16(native)
}

// NativeToVolts converts a native fixed-point value to a voltage. Values
// outside the native domain (possible on the wire, since int16 is wider
// than the hardware's 12-bit range) are clamped first.
func NativeToVolts(native int16, span float64) float64 {
	if native > NativeMax {
		native = NativeMax
	}
	if native < NativeMin {
		native = NativeMin
	}
	return float64(native) * span / nativeSteps
}

// KnobToPhysical converts a raw knob reading (0..4095, device->host only)
// into the configured unit: 0-6 V or a 0-1 fraction. Unknown modes fall
// back to volts.
func KnobToPhysical(raw int16, mode string) float64 {
	r := float64(raw)
	if r < 0 {
		r = 0
	}
	if r > 4095 {
		r = 4095
	}
	switch mode {
	case KnobNorm:
		return r / 4095.0
	default:
		return r * 6.0 / 4095.0
	}
}

// PulseToPhysical converts a pulse state to its OSC representation.
func PulseToPhysical(high bool) float64 {
	if high {
		return 1.0
	}
	return 0.0
}

// PulseFromPhysical converts a control value to a pulse state: any strictly
// positive value is high, zero or negative is low.
func PulseFromPhysical(value float64) bool {
	return value > 0
}
