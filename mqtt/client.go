package mqtt

import (
	"context"
	"fmt"

	"github.com/deye-community/go-deye/cloudapi"
	"github.com/deye-community/go-deye/device"
)

// Client is the uniform transport surface over both IoT platforms.
//
// All methods are safe for concurrent use. Subscribe, PublishCommand
// and QueryDeviceState require a successful Connect first; see the
// package documentation for the lifecycle and delivery contracts.
type Client interface {
	// Connect fetches broker credentials from the cloud and establishes
	// the connection. Cloud failures (cloudapi.ErrInvalidAuth,
	// cloudapi.ErrCannotConnect) propagate unchanged; broker failures
	// wrap ErrConnectionFailed.
	Connect(ctx context.Context) error

	// Disconnect closes the connection. Registered callbacks survive
	// and take effect again after a later Connect.
	Disconnect()

	// SubscribeStateChange registers a callback for decoded state
	// pushes of one appliance. The returned closure removes the
	// registration; it is idempotent and safe after Disconnect.
	SubscribeStateChange(productID, deviceID string, callback func(*device.State)) (unsubscribe func())

	// SubscribeAvailabilityChange registers a callback for
	// online/offline transitions of one appliance. The returned closure
	// removes the registration; it is idempotent and safe after
	// Disconnect.
	SubscribeAvailabilityChange(productID, deviceID string, callback func(available bool)) (unsubscribe func())

	// PublishCommand sends a command to one appliance. On the Classic
	// platform this is a fire-and-forget broker publish, queued for
	// replay when offline; on the Fog platform it is a confirmed cloud
	// round trip whose failure is returned.
	PublishCommand(ctx context.Context, productID, deviceID string, command *device.Command) error

	// QueryDeviceState fetches a fresh state snapshot. The transport
	// never times out on its own; bound the wait through ctx.
	QueryDeviceState(ctx context.Context, productID, deviceID string) (*device.State, error)
}

// CloudAPI is the slice of the cloud client the transports consume.
// *cloudapi.Client satisfies it; tests substitute fakes.
type CloudAPI interface {
	ClassicMQTTInfo(ctx context.Context) (*cloudapi.ClassicMQTTInfo, error)
	FogMQTTInfo(ctx context.Context) (*cloudapi.FogMQTTInfo, error)
	FogDeviceProperties(ctx context.Context, deviceID string) (device.Properties, error)
	SetFogDeviceProperties(ctx context.Context, deviceID string, params map[string]int) error
}

// Logger is the optional logging hook for transport diagnostics.
// Compatible with *slog.Logger and logging.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// NewClient returns the transport for the given platform.
//
// Parameters:
//   - api: Cloud client used for credentials and, on Fog, for commands
//     and queries
//   - platform: Platform identifier from cloudapi.DeviceInfo
//
// Returns:
//   - Client: *ClassicClient or *FogClient
//   - error: ErrUnsupportedPlatform for unknown identifiers
func NewClient(api CloudAPI, platform cloudapi.Platform) (Client, error) {
	switch platform {
	case cloudapi.PlatformClassic:
		return NewClassicClient(api), nil
	case cloudapi.PlatformFog:
		return NewFogClient(api), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
}
