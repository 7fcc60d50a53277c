package bridge

import "math"

// ChangeFilter suppresses re-emission of telemetry readings that have not
// moved by more than the configured threshold since they were last sent.
// Discrete addresses (switch, pulses) always pass.
//
// The filter's map is owned by the single inbound frame loop; there are no
// concurrent writers, so it needs no lock.
type ChangeFilter struct {
	threshold float64
	last      map[string]float64
}

// NewChangeFilter returns a filter with the given threshold for continuous
// addresses.
func NewChangeFilter(threshold float64) *ChangeFilter {
	return &ChangeFilter{
		threshold: threshold,
		last:      make(map[string]float64),
	}
}

// ShouldEmit reports whether the value for the address differs enough from
// the last recorded emission to be worth sending. The first value for any
// address always passes.
func (f *ChangeFilter) ShouldEmit(address string, value float64) bool {
	if DiscreteAddress(address) {
		return true
	}
	prev, seen := f.last[address]
	if !seen {
		return true
	}
	return math.Abs(value-prev) > f.threshold
}

// Record stores the value as the last emission for the address. Callers
// record only what they actually sent.
func (f *ChangeFilter) Record(address string, value float64) {
	f.last[address] = value
}
