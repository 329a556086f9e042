package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/deye-community/go-deye/device"
)

// classicQueryStateCommand is the fixed frame that makes an appliance
// push its current state.
var classicQueryStateCommand = []byte{0x00, 0x01}

// ClassicClient is the transport for appliances on the Classic
// platform. State and availability arrive as pushes on per-device
// topics; commands are raw binary frames published to the device's
// command topic.
//
// Construct with NewClassicClient or via NewClient.
type ClassicClient struct {
	core *core
	api  CloudAPI

	mu       sync.RWMutex
	endpoint string
}

// NewClassicClient returns an unconnected Classic transport.
func NewClassicClient(api CloudAPI) *ClassicClient {
	c := &ClassicClient{api: api}
	c.core = newCore(c.fetchCredentials)
	return c
}

// SetLogger installs a logger for transport diagnostics (dropped
// payloads, reconnect credential refreshes). Without one they are
// silently discarded.
func (c *ClassicClient) SetLogger(logger Logger) {
	c.core.setLogger(logger)
}

// Connect establishes the broker connection. See Client.Connect.
func (c *ClassicClient) Connect(ctx context.Context) error {
	return c.core.connect(ctx)
}

// Disconnect closes the broker connection. See Client.Disconnect.
func (c *ClassicClient) Disconnect() {
	c.core.disconnect()
}

// fetchCredentials pulls Classic broker credentials from the cloud and
// captures the account topic prefix.
func (c *ClassicClient) fetchCredentials(ctx context.Context) (credentials, error) {
	info, err := c.api.ClassicMQTTInfo(ctx)
	if err != nil {
		return credentials{}, err
	}

	c.mu.Lock()
	c.endpoint = info.Endpoint
	c.mu.Unlock()

	return credentials{
		host:     info.Host,
		port:     info.SSLPort,
		username: info.LoginName,
		password: info.Password,
		clientID: info.ClientID,
	}, nil
}

// topicPrefix builds the per-device topic root
// {endpoint}/{productID}/{deviceID}.
func (c *ClassicClient) topicPrefix(productID, deviceID string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.endpoint + "/" + productID + "/" + deviceID
}

// SubscribeStateChange registers a callback for state pushes. The
// payload on the status topic is a JSON envelope holding the hex frame
// under "data"; envelopes that do not decode are dropped.
func (c *ClassicClient) SubscribeStateChange(productID, deviceID string, callback func(*device.State)) func() {
	topic := c.topicPrefix(productID, deviceID) + "/status/hex"
	return c.core.subscribeTopic(topic, func(payload []byte) {
		frame, err := classicEnvelopeString(payload)
		if err != nil {
			c.core.logWarn("dropping malformed state payload", "topic", topic, "error", err)
			return
		}
		state, err := device.ParseClassicState(frame)
		if err != nil {
			c.core.logWarn("dropping undecodable state frame", "topic", topic, "error", err)
			return
		}
		callback(state)
	})
}

// SubscribeAvailabilityChange registers a callback for online/offline
// transitions. The payload on the online topic is a JSON envelope
// holding {"online": bool} under "data".
func (c *ClassicClient) SubscribeAvailabilityChange(productID, deviceID string, callback func(bool)) func() {
	topic := c.topicPrefix(productID, deviceID) + "/online/json"
	return c.core.subscribeTopic(topic, func(payload []byte) {
		online, err := classicEnvelopeOnline(payload)
		if err != nil {
			c.core.logWarn("dropping malformed availability payload", "topic", topic, "error", err)
			return
		}
		callback(online)
	})
}

// PublishCommand publishes the command frame to the device's command
// topic. While disconnected the frame is queued and replayed on the
// next connect; the error is always nil, satisfying Client.
func (c *ClassicClient) PublishCommand(_ context.Context, productID, deviceID string, command *device.Command) error {
	c.publishFrame(productID, deviceID, command.Bytes())
	return nil
}

func (c *ClassicClient) publishFrame(productID, deviceID string, frame []byte) {
	topic := c.topicPrefix(productID, deviceID) + "/command/hex"
	c.core.publishOrQueue(topic, frame)
}

// QueryDeviceState asks the appliance for a fresh state push and
// returns the first one received. Resolution happens at most once even
// when a second push races the cleanup, and the temporary registration
// is removed on every path.
//
// The transport imposes no timeout of its own; bound the wait through
// ctx.
func (c *ClassicClient) QueryDeviceState(ctx context.Context, productID, deviceID string) (*device.State, error) {
	states := make(chan *device.State, 1)
	var resolved atomic.Bool
	unsubscribe := c.SubscribeStateChange(productID, deviceID, func(state *device.State) {
		if resolved.CompareAndSwap(false, true) {
			states <- state
		}
	})
	defer unsubscribe()

	c.publishFrame(productID, deviceID, classicQueryStateCommand)

	select {
	case state := <-states:
		return state, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("mqtt: query device state: %w", ctx.Err())
	}
}

// classicEnvelopeString unwraps the "data" member of a Classic push as
// a string.
func classicEnvelopeString(payload []byte) (string, error) {
	var env struct {
		Data *string `json:"data"`
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		return "", err
	}
	if env.Data == nil {
		return "", fmt.Errorf("payload has no %q member", "data")
	}
	return *env.Data, nil
}

// classicEnvelopeOnline unwraps the "data" member of an availability
// push.
func classicEnvelopeOnline(payload []byte) (bool, error) {
	var env struct {
		Data *struct {
			Online *bool `json:"online"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		return false, err
	}
	if env.Data == nil || env.Data.Online == nil {
		return false, fmt.Errorf("payload has no %q member", "data.online")
	}
	return *env.Data.Online, nil
}
