// Package cloudapi implements the Deye cloud REST API client.
//
// The cloud backend is the entry point for everything else in this
// module: it authenticates the end user, lists their appliances, and
// hands out per-platform MQTT credentials. Fog-platform appliances are
// additionally controlled through it directly (property get/set), with
// MQTT used only for pushes.
//
// # Authentication
//
// Login exchanges username/password for a JWT. The client never
// verifies the token signature (it is not the issuer); it only decodes
// the enduserid and exp claims to know who it is and when to refresh.
// Any authenticated request transparently refreshes the token when it
// expires within 24 hours, falling back to a fresh login when the
// backend rejects the refresh. SetOnTokenRefreshed lets callers persist
// new tokens so later sessions skip the password login.
//
//	api := cloudapi.NewClient(nil, username, password)
//	if err := api.Authenticate(ctx); err != nil {
//	    return err
//	}
//	devices, err := api.DeviceList(ctx)
//
// # Error Taxonomy
//
// Every failure wraps one of two sentinels: ErrInvalidAuth for anything
// the backend rejected (bad credentials, expired or undecodable tokens,
// nonzero envelope codes) and ErrCannotConnect for transport failures
// and malformed envelopes. Callers branch with errors.Is.
//
// # Response Envelope
//
// All endpoints wrap their payload as
//
//	{"meta": {"code": 0, "message": "ok"}, "data": ...}
//
// and the client validates the envelope before looking at data.
package cloudapi
