package sim

import (
	"fmt"
	"strings"
)

// Mode names the active stepping backend.
type Mode uint8

const (
	ModeScalar       Mode = iota // Sequential, one particle at a time
	ModeParallel                 // Fork-join over the worker pool
	ModeVectorNarrow             // 4-lane form, one particle per op
	ModeVectorWide               // 8-lane form, two particles per op
	ModeBLAS                     // Linear part through blas32 kernels
	ModeDevice                   // Offloaded to the compute device
	numModes
)

var modeNames = [numModes]string{
	ModeScalar:       "scalar",
	ModeParallel:     "parallel",
	ModeVectorNarrow: "vector4",
	ModeVectorWide:   "vector8",
	ModeBLAS:         "blas",
	ModeDevice:       "device",
}

// Modes lists every mode in key order (1..6 in the viewer).
func Modes() []Mode {
	out := make([]Mode, 0, numModes)
	for m := Mode(0); m < numModes; m++ {
		out = append(out, m)
	}
	return out
}

func (m Mode) String() string {
	if m >= numModes {
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
	return modeNames[m]
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m < numModes
}

// ParseMode converts a mode name (case-insensitive) to a Mode.
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for m, n := range modeNames {
		if n == name {
			return Mode(m), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, uint8(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Residency says which side owns the authoritative particle arrays.
type Residency uint8

const (
	HostResident Residency = iota
	DeviceResident
)

func (r Residency) String() string {
	if r == DeviceResident {
		return "device"
	}
	return "host"
}

// Residency returns where the arrays live while m is active.
func (m Mode) Residency() Residency {
	if m == ModeDevice {
		return DeviceResident
	}
	return HostResident
}
