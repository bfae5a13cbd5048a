package sim

import "errors"

var (
	// ErrCapabilityUnavailable is returned when the device backend is requested
	// but the capability probe failed. The stepper stays on its previous mode.
	ErrCapabilityUnavailable = errors.New("sim: device offload unavailable")

	// ErrUnknownMode is returned for mode values or names outside the known set.
	ErrUnknownMode = errors.New("sim: unknown mode")

	// ErrInvalidParams is returned when simulation parameters fail validation.
	ErrInvalidParams = errors.New("sim: invalid parameters")

	// ErrDeviceFailure wraps transfer and dispatch failures of a device.
	ErrDeviceFailure = errors.New("sim: device failure")
)
