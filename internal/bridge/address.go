package bridge

import (
	"strconv"
	"strings"
)

// Channel class constants for control-plane addresses.
const (
	ClassCh    = "ch"
	ClassPulse = "pulse"
)

// Telemetry addresses for the device's discrete inputs.
const (
	AddrSwitch = "/switch"
	AddrPulse1 = "/pulse/1"
	AddrPulse2 = "/pulse/2"
)

// ParseControlAddress splits a control-plane OSC address like "/ch/3" or
// "/pulse/1" into its channel class and 1-based index. ok is false for
// anything that is not a well-formed two-segment numeric address; range
// validation is left to the output state, which knows the legal index range
// per class.
func ParseControlAddress(address string) (class string, index int, ok bool) {
	parts := strings.Split(strings.Trim(address, "/"), "/")
	if len(parts) != 2 {
		return "", 0, false
	}
	index, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, false
	}
	return parts[0], index, true
}

// DiscreteAddress reports whether a telemetry address carries a discrete
// value (switch position, pulse state). Discrete addresses bypass the
// change threshold: their transitions matter even when numerically small.
func DiscreteAddress(address string) bool {
	return address == AddrSwitch || strings.HasPrefix(address, "/pulse/")
}
