// Package config holds the hardware revision profile for the bridge. The
// two known Workshop Computer revisions differ only in total voltage span
// and knob unit convention, so both are expressed as data here rather than
// as separate code paths.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/computercard/oscbridge/internal/units"
)

// Known hardware revision names accepted by LoadRevision.
const (
	RevisionProto1 = "proto1" // ±6 V outputs, knobs reported in volts
	RevisionProto2 = "proto2" // 15 V span, knobs reported as 0..1
)

// Profile describes the physical-units behaviour of one hardware revision.
// All fields are optional in the JSON file; omitted fields keep their
// defaults, so partial profiles are safe.
type Profile struct {
	// VoltageSpan is the total voltage range covered by the native
	// -2048..+2047 domain, e.g. 12.0 for a -6..+6 V device.
	VoltageSpan *float64 `json:"voltage_span,omitempty"`

	// KnobUnits selects how knob readings are reported: "volts" (0-6 V)
	// or "norm" (0-1).
	KnobUnits *string `json:"knob_units,omitempty"`

	// ChangeThreshold is the minimum delta a continuous input must move
	// before it is re-emitted to the network.
	ChangeThreshold *float64 `json:"change_threshold,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }

// DefaultProfile returns the proto1 profile, matching the original bridge's
// hardcoded constants.
func DefaultProfile() *Profile {
	return &Profile{
		VoltageSpan: ptrFloat64(12.0),
		KnobUnits:   ptrString(units.KnobVolts),
	}
}

// LoadRevision returns the built-in profile for a named hardware revision.
func LoadRevision(name string) (*Profile, error) {
	switch name {
	case RevisionProto1:
		return DefaultProfile(), nil
	case RevisionProto2:
		return &Profile{
			VoltageSpan: ptrFloat64(15.0),
			KnobUnits:   ptrString(units.KnobNorm),
		}, nil
	default:
		return nil, fmt.Errorf("unknown hardware revision %q: expected %q or %q", name, RevisionProto1, RevisionProto2)
	}
}

// LoadProfile loads a Profile from a JSON file. Fields omitted from the
// JSON retain their defaults.
func LoadProfile(path string) (*Profile, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("profile file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}

	profile := &Profile{}
	if err := json.Unmarshal(data, profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile JSON: %w", err)
	}

	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	return profile, nil
}

// Merge overlays the override's set fields onto the profile. Fields the
// override leaves nil keep the receiver's values, so a partial JSON profile
// adjusts a revision preset instead of resetting it.
func (p *Profile) Merge(override *Profile) {
	if override == nil {
		return
	}
	if override.VoltageSpan != nil {
		p.VoltageSpan = override.VoltageSpan
	}
	if override.KnobUnits != nil {
		p.KnobUnits = override.KnobUnits
	}
	if override.ChangeThreshold != nil {
		p.ChangeThreshold = override.ChangeThreshold
	}
}

// Validate checks that the profile values are usable.
func (p *Profile) Validate() error {
	if p.VoltageSpan != nil && *p.VoltageSpan <= 0 {
		return fmt.Errorf("voltage_span must be positive, got %f", *p.VoltageSpan)
	}
	if p.KnobUnits != nil && !units.KnobUnitsValid(*p.KnobUnits) {
		return fmt.Errorf("knob_units must be one of %v, got %q", units.ValidKnobUnits, *p.KnobUnits)
	}
	if p.ChangeThreshold != nil && *p.ChangeThreshold < 0 {
		return fmt.Errorf("change_threshold must be non-negative, got %f", *p.ChangeThreshold)
	}
	return nil
}

// GetVoltageSpan returns the voltage_span value or the default.
func (p *Profile) GetVoltageSpan() float64 {
	if p.VoltageSpan == nil {
		return 12.0
	}
	return *p.VoltageSpan
}

// GetKnobUnits returns the knob_units value or the default.
func (p *Profile) GetKnobUnits() string {
	if p.KnobUnits == nil {
		return units.KnobVolts
	}
	return *p.KnobUnits
}

// GetChangeThreshold returns the change_threshold value or the default.
func (p *Profile) GetChangeThreshold() float64 {
	if p.ChangeThreshold == nil {
		return 0.005
	}
	return *p.ChangeThreshold
}

// SetChangeThreshold overrides the change threshold, used by the -threshold
// command line flag.
func (p *Profile) SetChangeThreshold(threshold float64) {
	p.ChangeThreshold = ptrFloat64(threshold)
}
