package mqtt

import (
	"context"
	"errors"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/deye-community/go-deye/cloudapi"
	"github.com/deye-community/go-deye/device"
)

const fogAccountTopic = "fogcloud/app/fog-user/sub"

func newTestFog(t *testing.T, api *fakeCloudAPI) (*FogClient, *fakePahoClient) {
	t.Helper()
	client := NewFogClient(api)
	fake := newFakePahoClient()
	client.core.newClient = func(opts *pahomqtt.ClientOptions) pahomqtt.Client {
		fake.mu.Lock()
		fake.opts = opts
		fake.mu.Unlock()
		return fake
	}
	return client, fake
}

func connectFog(t *testing.T, api *fakeCloudAPI) (*FogClient, *fakePahoClient) {
	t.Helper()
	client, fake := newTestFog(t, api)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(client.Disconnect)
	return client, fake
}

// ===== Connection =====

func TestFogConnect(t *testing.T) {
	client, fake := connectFog(t, newFakeCloudAPI())

	opts := fake.opts
	if got := opts.Servers[0].String(); got != "ssl://fog.deye.example:8883" {
		t.Errorf("broker URL = %q, want ssl://fog.deye.example:8883 (string port converted)", got)
	}
	user, pass := opts.CredentialsProvider()
	if user != "fog-user" || pass != "fog-pass" {
		t.Errorf("credentials = (%q, %q), want (fog-user, fog-pass)", user, pass)
	}
	if got := client.accountTopic(); got != fogAccountTopic {
		t.Errorf("account topic = %q, want %q", got, fogAccountTopic)
	}
}

func TestFogConnectRejectsBadPort(t *testing.T) {
	api := newFakeCloudAPI()
	api.fogInfoFn = func(int) (*cloudapi.FogMQTTInfo, error) {
		return &cloudapi.FogMQTTInfo{Username: "u", Password: "p", Host: "h", SSLPort: "not-a-port"}, nil
	}
	client, _ := newTestFog(t, api)

	err := client.Connect(context.Background())
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

// ===== Push filtering =====

func TestFogStateChangeFiltering(t *testing.T) {
	client, fake := connectFog(t, newFakeCloudAPI())

	states := make(chan *device.State, 4)
	unsubscribe := client.SubscribeStateChange(testProductID, testDeviceID, func(s *device.State) {
		states <- s
	})
	defer unsubscribe()

	if got := fake.subscribeCount(fogAccountTopic); got != 1 {
		t.Fatalf("wire subscribes to %s = %d, want 1", fogAccountTopic, got)
	}

	// None of these may reach the callback: wrong device, wrong biz
	// code, wrong message type, missing properties, broken JSON.
	ignored := []string{
		`{"device_id":"other","biz_code":"device_data","data":{"message_type":"thing_property","properties":{"Power":1}}}`,
		`{"device_id":"d1","biz_code":"device_status","data":{"status":"online"}}`,
		`{"device_id":"d1","biz_code":"device_data","data":{"message_type":"thing_config","properties":{"Power":1}}}`,
		`{"device_id":"d1","biz_code":"device_data","data":{"message_type":"thing_property"}}`,
		`{broken`,
	}
	for _, payload := range ignored {
		fake.deliver(fogAccountTopic, payload)
	}

	fake.deliver(fogAccountTopic,
		`{"device_id":"d1","biz_code":"device_data","data":{"message_type":"thing_property",`+
			`"properties":{"Power":1,"Mode":0,"WindSpeed":2,"SetHumidity":45,"CurrentAmbientTemperature":21,"CurrentEnvironmentalHumidity":58}}}`)

	state := awaitState(t, states)
	if !state.PowerOn {
		t.Error("PowerOn = false, want true")
	}
	if state.Mode != device.ModeManual {
		t.Errorf("Mode = %s, want %s", state.Mode, device.ModeManual)
	}
	if state.FanSpeed != device.FanSpeedMiddle {
		t.Errorf("FanSpeed = %s, want %s", state.FanSpeed, device.FanSpeedMiddle)
	}
	if state.TargetHumidity != 45 {
		t.Errorf("TargetHumidity = %d, want 45", state.TargetHumidity)
	}
	if state.EnvironmentTemperature != 21 {
		t.Errorf("EnvironmentTemperature = %d, want 21", state.EnvironmentTemperature)
	}
	if state.EnvironmentHumidity != 58 {
		t.Errorf("EnvironmentHumidity = %d, want 58", state.EnvironmentHumidity)
	}

	select {
	case s := <-states:
		t.Errorf("filtered push leaked through: %v", s)
	default:
	}
}

func TestFogAvailabilityChangeFiltering(t *testing.T) {
	client, fake := connectFog(t, newFakeCloudAPI())

	avail := make(chan bool, 4)
	unsubscribe := client.SubscribeAvailabilityChange(testProductID, testDeviceID, func(online bool) {
		avail <- online
	})
	defer unsubscribe()

	fake.deliver(fogAccountTopic, `{"device_id":"d1","biz_code":"device_status","data":{"status":"online"}}`)
	if got := awaitBool(t, avail); !got {
		t.Error("availability = false, want true")
	}

	fake.deliver(fogAccountTopic, `{"device_id":"d1","biz_code":"device_status","data":{"status":"offline"}}`)
	if got := awaitBool(t, avail); got {
		t.Error("availability = true, want false")
	}

	// Wrong device, wrong biz code, missing status: all dropped.
	fake.deliver(fogAccountTopic, `{"device_id":"other","biz_code":"device_status","data":{"status":"online"}}`)
	fake.deliver(fogAccountTopic, `{"device_id":"d1","biz_code":"device_data","data":{"message_type":"thing_property","properties":{}}}`)
	fake.deliver(fogAccountTopic, `{"device_id":"d1","biz_code":"device_status","data":{}}`)

	fake.deliver(fogAccountTopic, `{"device_id":"d1","biz_code":"device_status","data":{"status":"online"}}`)
	if got := awaitBool(t, avail); !got {
		t.Error("sentinel availability = false, want true")
	}
	select {
	case v := <-avail:
		t.Errorf("filtered push leaked through: %t", v)
	default:
	}
}

func TestFogSharedTopicSingleWireSubscription(t *testing.T) {
	client, fake := connectFog(t, newFakeCloudAPI())

	states := make(chan *device.State, 1)
	avail := make(chan bool, 1)
	unsubState := client.SubscribeStateChange(testProductID, testDeviceID, func(s *device.State) {
		states <- s
	})
	defer unsubState()
	unsubAvail := client.SubscribeAvailabilityChange(testProductID, testDeviceID, func(online bool) {
		avail <- online
	})
	defer unsubAvail()

	// Both registrations share the account topic on the wire.
	if got := fake.subscribeCount(fogAccountTopic); got != 1 {
		t.Errorf("wire subscribes = %d, want 1", got)
	}

	// One status push reaches only the availability callback.
	fake.deliver(fogAccountTopic, `{"device_id":"d1","biz_code":"device_status","data":{"status":"online"}}`)
	if got := awaitBool(t, avail); !got {
		t.Error("availability = false, want true")
	}
	select {
	case s := <-states:
		t.Errorf("status push reached the state callback: %v", s)
	case <-time.After(50 * time.Millisecond):
	}
}

// ===== Cloud-side command and query =====

func TestFogPublishCommandGoesThroughCloud(t *testing.T) {
	api := newFakeCloudAPI()
	client, fake := connectFog(t, api)

	command := device.NewCommand()
	command.PowerOn = true
	command.Mode = device.ModeAuto
	if err := client.PublishCommand(context.Background(), testProductID, testDeviceID, command); err != nil {
		t.Fatalf("PublishCommand() error = %v", err)
	}

	api.mu.Lock()
	calls := append([]fogSetCall(nil), api.setCalls...)
	api.mu.Unlock()
	if len(calls) != 1 {
		t.Fatalf("property-set calls = %d, want 1", len(calls))
	}
	if calls[0].deviceID != testDeviceID {
		t.Errorf("property-set device = %q, want %q", calls[0].deviceID, testDeviceID)
	}
	if got := calls[0].params["Power"]; got != 1 {
		t.Errorf("params[Power] = %d, want 1", got)
	}
	if got := calls[0].params["Mode"]; got != int(device.ModeAuto) {
		t.Errorf("params[Mode] = %d, want %d", got, int(device.ModeAuto))
	}

	// Nothing goes over the broker and nothing is queued while offline.
	if got := len(fake.publishedRecords()); got != 0 {
		t.Errorf("broker publishes = %d, want 0", got)
	}
	fake.setOpen(false)
	if err := client.PublishCommand(context.Background(), testProductID, testDeviceID, command); err != nil {
		t.Fatalf("PublishCommand() while broker down error = %v", err)
	}
	fake.setOpen(true)
	fake.fireOnConnect()
	if got := len(fake.publishedRecords()); got != 0 {
		t.Errorf("broker publishes after reconnect = %d, want 0 (no pending queue on this platform)", got)
	}
}

func TestFogPublishCommandPropagatesCloudError(t *testing.T) {
	api := newFakeCloudAPI()
	api.setErr = errors.New("backend rejected write")
	client, _ := connectFog(t, api)

	err := client.PublishCommand(context.Background(), testProductID, testDeviceID, device.NewCommand())
	if err == nil {
		t.Fatal("PublishCommand() error = nil, want backend error")
	}
}

func TestFogQueryDeviceState(t *testing.T) {
	api := newFakeCloudAPI()
	api.propsFn = func(deviceID string) (device.Properties, error) {
		if deviceID != testDeviceID {
			t.Errorf("properties queried for %q, want %q", deviceID, testDeviceID)
		}
		return device.Properties{
			"Power":       float64(1),
			"SetHumidity": float64(40),
		}, nil
	}
	client, fake := connectFog(t, api)

	state, err := client.QueryDeviceState(context.Background(), testProductID, testDeviceID)
	if err != nil {
		t.Fatalf("QueryDeviceState() error = %v", err)
	}
	if !state.PowerOn || state.TargetHumidity != 40 {
		t.Errorf("state = %v, want power on with target humidity 40", state)
	}

	// The broker plays no part in Fog queries.
	if got := len(fake.publishedRecords()); got != 0 {
		t.Errorf("broker publishes during query = %d, want 0", got)
	}
}

func TestFogQueryDeviceStatePropagatesCloudError(t *testing.T) {
	api := newFakeCloudAPI()
	api.propsFn = func(string) (device.Properties, error) {
		return nil, cloudapi.ErrCannotConnect
	}
	client, _ := connectFog(t, api)

	_, err := client.QueryDeviceState(context.Background(), testProductID, testDeviceID)
	if !errors.Is(err, cloudapi.ErrCannotConnect) {
		t.Errorf("QueryDeviceState() error = %v, want cloudapi.ErrCannotConnect", err)
	}
}
