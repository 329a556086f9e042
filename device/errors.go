package device

import "errors"

// Decode errors for device frames and property maps.
var (
	// ErrInvalidStateFrame is returned when a Classic state frame is not
	// valid hex or is too short to carry every field.
	ErrInvalidStateFrame = errors.New("device: invalid state frame")

	// ErrInvalidProperties is returned when a Fog property map carries a
	// value of an unexpected type.
	ErrInvalidProperties = errors.New("device: invalid device properties")

	// ErrInvalidMode is returned when a mode ordinal or name is out of range.
	ErrInvalidMode = errors.New("device: invalid mode")

	// ErrInvalidFanSpeed is returned when a fan speed ordinal or name is
	// out of range.
	ErrInvalidFanSpeed = errors.New("device: invalid fan speed")
)
