package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/deye-community/go-deye/device"
)

// Fog push envelope discriminators.
const (
	bizCodeDeviceData   = "device_data"
	bizCodeDeviceStatus = "device_status"

	messageTypeThingProperty = "thing_property"

	deviceStatusOnline = "online"
)

// fogEnvelope is the tagged union pushed on the account topic. Every
// push for the account arrives here; biz_code and device_id decide
// which subscribers care.
type fogEnvelope struct {
	DeviceID string  `json:"device_id"`
	BizCode  string  `json:"biz_code"`
	Data     fogData `json:"data"`
}

type fogData struct {
	MessageType string            `json:"message_type"`
	Properties  device.Properties `json:"properties"`
	Status      string            `json:"status"`
}

// FogClient is the transport for appliances on the Fog platform. All
// pushes for the account share a single broker topic and are filtered
// per device; commands and queries go through the cloud API rather
// than the broker, so they are confirmed round trips with no pending
// queueing.
//
// Construct with NewFogClient or via NewClient.
type FogClient struct {
	core *core
	api  CloudAPI

	mu    sync.RWMutex
	topic string
}

// NewFogClient returns an unconnected Fog transport.
func NewFogClient(api CloudAPI) *FogClient {
	c := &FogClient{api: api}
	c.core = newCore(c.fetchCredentials)
	return c
}

// SetLogger installs a logger for transport diagnostics (dropped
// payloads, reconnect credential refreshes). Without one they are
// silently discarded.
func (c *FogClient) SetLogger(logger Logger) {
	c.core.setLogger(logger)
}

// Connect establishes the broker connection. See Client.Connect.
func (c *FogClient) Connect(ctx context.Context) error {
	return c.core.connect(ctx)
}

// Disconnect closes the broker connection. See Client.Disconnect.
func (c *FogClient) Disconnect() {
	c.core.disconnect()
}

// fetchCredentials pulls Fog broker credentials from the cloud and
// captures the account topic. The backend reports ports as strings;
// they are converted here so a bad value fails the connect rather than
// the dial.
func (c *FogClient) fetchCredentials(ctx context.Context) (credentials, error) {
	info, err := c.api.FogMQTTInfo(ctx)
	if err != nil {
		return credentials{}, err
	}
	port, err := strconv.Atoi(info.SSLPort)
	if err != nil {
		return credentials{}, fmt.Errorf("%w: ssl port %q is not numeric", ErrConnectionFailed, info.SSLPort)
	}

	c.mu.Lock()
	c.topic = "fogcloud/app/" + info.Username + "/sub"
	c.mu.Unlock()

	return credentials{
		host:     info.Host,
		port:     port,
		username: info.Username,
		password: info.Password,
		clientID: info.ClientID,
	}, nil
}

// accountTopic returns the shared inbound topic for the account.
func (c *FogClient) accountTopic() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.topic
}

// SubscribeStateChange registers a callback for thing-property pushes
// of one appliance. Pushes for other devices and other biz codes on
// the shared topic are filtered out silently; pushes that match but do
// not decode are dropped.
func (c *FogClient) SubscribeStateChange(productID, deviceID string, callback func(*device.State)) func() {
	topic := c.accountTopic()
	return c.core.subscribeTopic(topic, func(payload []byte) {
		var env fogEnvelope
		if err := json.Unmarshal(payload, &env); err != nil {
			c.core.logWarn("dropping malformed push payload", "topic", topic, "error", err)
			return
		}
		if env.DeviceID != deviceID || env.BizCode != bizCodeDeviceData ||
			env.Data.MessageType != messageTypeThingProperty {
			return
		}
		if env.Data.Properties == nil {
			c.core.logWarn("dropping property push without properties", "topic", topic, "device_id", deviceID)
			return
		}
		state, err := device.ParseFogState(env.Data.Properties)
		if err != nil {
			c.core.logWarn("dropping undecodable property push", "topic", topic, "error", err)
			return
		}
		callback(state)
	})
}

// SubscribeAvailabilityChange registers a callback for online/offline
// transitions of one appliance, derived from device_status pushes on
// the shared topic.
func (c *FogClient) SubscribeAvailabilityChange(productID, deviceID string, callback func(bool)) func() {
	topic := c.accountTopic()
	return c.core.subscribeTopic(topic, func(payload []byte) {
		var env fogEnvelope
		if err := json.Unmarshal(payload, &env); err != nil {
			c.core.logWarn("dropping malformed push payload", "topic", topic, "error", err)
			return
		}
		if env.DeviceID != deviceID || env.BizCode != bizCodeDeviceStatus {
			return
		}
		if env.Data.Status == "" {
			c.core.logWarn("dropping status push without status", "topic", topic, "device_id", deviceID)
			return
		}
		callback(env.Data.Status == deviceStatusOnline)
	})
}

// PublishCommand writes the command's thing properties through the
// cloud. Unlike Classic this is a confirmed round trip: the error is
// the cloud's answer, and nothing is queued while offline.
func (c *FogClient) PublishCommand(ctx context.Context, productID, deviceID string, command *device.Command) error {
	return c.api.SetFogDeviceProperties(ctx, deviceID, command.FogProperties())
}

// QueryDeviceState fetches the appliance's current thing properties
// from the cloud. The broker plays no part in Fog queries.
func (c *FogClient) QueryDeviceState(ctx context.Context, productID, deviceID string) (*device.State, error) {
	props, err := c.api.FogDeviceProperties(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return device.ParseFogState(props)
}
