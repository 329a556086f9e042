package mqtt

import "errors"

// Transport errors. Use errors.Is to check for these in calling code;
// cloud-side failures pass through as cloudapi sentinels.
var (
	// ErrConnectionFailed is returned when the initial broker connection
	// cannot be established.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrUnsupportedPlatform is returned by NewClient for platform
	// identifiers it has no transport for.
	ErrUnsupportedPlatform = errors.New("mqtt: unsupported platform")
)
