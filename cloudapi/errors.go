package cloudapi

import "errors"

// Cloud API errors.
var (
	// ErrInvalidAuth is returned when the backend rejects credentials or
	// a token, or when a token cannot be decoded.
	ErrInvalidAuth = errors.New("cloudapi: invalid auth")

	// ErrCannotConnect is returned on transport failures and malformed
	// response envelopes.
	ErrCannotConnect = errors.New("cloudapi: cannot connect")
)
