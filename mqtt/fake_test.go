package mqtt

import (
	"context"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/deye-community/go-deye/cloudapi"
	"github.com/deye-community/go-deye/device"
)

// waitTimeout bounds every asynchronous wait in this package's tests.
const waitTimeout = 2 * time.Second

// fakeToken is an already-resolved paho token.
type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// fakeMessage carries a payload through the paho Message interface.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

type publishRecord struct {
	topic   string
	payload []byte
}

// fakePahoClient stands in for the broker connection. It records
// subscribe/unsubscribe/publish traffic, lets tests deliver inbound
// messages through the handler the transport registered, and lets them
// fire the connection callbacks the way paho would.
type fakePahoClient struct {
	mu           sync.Mutex
	open         bool
	connectErr   error
	opts         *pahomqtt.ClientOptions
	handler      pahomqtt.MessageHandler
	subscribes   []string
	unsubscribes []string
	published    []publishRecord
	disconnects  int

	// publishes signals each Publish so tests can wait for traffic
	// produced on other goroutines.
	publishes chan publishRecord
}

func newFakePahoClient() *fakePahoClient {
	return &fakePahoClient{publishes: make(chan publishRecord, 16)}
}

func (f *fakePahoClient) Connect() pahomqtt.Token {
	f.mu.Lock()
	err := f.connectErr
	if err == nil {
		f.open = true
	}
	opts := f.opts
	f.mu.Unlock()

	if err != nil {
		return &fakeToken{err: err}
	}
	if opts != nil && opts.OnConnect != nil {
		opts.OnConnect(f)
	}
	return &fakeToken{}
}

func (f *fakePahoClient) Disconnect(uint) {
	f.mu.Lock()
	f.open = false
	f.disconnects++
	f.mu.Unlock()
}

func (f *fakePahoClient) Publish(topic string, _ byte, _ bool, payload interface{}) pahomqtt.Token {
	data, _ := payload.([]byte)
	rec := publishRecord{topic: topic, payload: data}
	f.mu.Lock()
	f.published = append(f.published, rec)
	f.mu.Unlock()
	select {
	case f.publishes <- rec:
	default:
	}
	return &fakeToken{}
}

func (f *fakePahoClient) Subscribe(topic string, _ byte, callback pahomqtt.MessageHandler) pahomqtt.Token {
	f.mu.Lock()
	f.subscribes = append(f.subscribes, topic)
	f.handler = callback
	f.mu.Unlock()
	return &fakeToken{}
}

func (f *fakePahoClient) SubscribeMultiple(map[string]byte, pahomqtt.MessageHandler) pahomqtt.Token {
	return &fakeToken{}
}

func (f *fakePahoClient) Unsubscribe(topics ...string) pahomqtt.Token {
	f.mu.Lock()
	f.unsubscribes = append(f.unsubscribes, topics...)
	f.mu.Unlock()
	return &fakeToken{}
}

func (f *fakePahoClient) AddRoute(string, pahomqtt.MessageHandler) {}

func (f *fakePahoClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakePahoClient) IsConnectionOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakePahoClient) OptionsReader() pahomqtt.ClientOptionsReader {
	return pahomqtt.ClientOptionsReader{}
}

// setOpen flips the connection state without firing callbacks,
// mimicking a link drop the transport has not been told about yet.
func (f *fakePahoClient) setOpen(open bool) {
	f.mu.Lock()
	f.open = open
	f.mu.Unlock()
}

// deliver routes an inbound message through the registered handler the
// way the broker I/O goroutine would. Delivery before any Subscribe is
// a no-op.
func (f *fakePahoClient) deliver(topic string, payload string) {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()
	if handler != nil {
		handler(f, &fakeMessage{topic: topic, payload: []byte(payload)})
	}
}

// fireOnConnect replays paho's on-connect callback, as it would after
// a reconnect.
func (f *fakePahoClient) fireOnConnect() {
	f.mu.Lock()
	opts := f.opts
	f.mu.Unlock()
	if opts != nil && opts.OnConnect != nil {
		opts.OnConnect(f)
	}
}

// fireConnectionLost replays paho's connection-lost callback.
func (f *fakePahoClient) fireConnectionLost(err error) {
	f.mu.Lock()
	opts := f.opts
	f.mu.Unlock()
	if opts != nil && opts.OnConnectionLost != nil {
		opts.OnConnectionLost(f, err)
	}
}

func (f *fakePahoClient) subscribeCount(topic string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.subscribes {
		if t == topic {
			n++
		}
	}
	return n
}

func (f *fakePahoClient) unsubscribeCount(topic string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.unsubscribes {
		if t == topic {
			n++
		}
	}
	return n
}

func (f *fakePahoClient) publishedRecords() []publishRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]publishRecord, len(f.published))
	copy(out, f.published)
	return out
}

// awaitPublish blocks until the fake sees a publish on the given topic.
func (f *fakePahoClient) awaitPublish(t *testing.T, topic string) publishRecord {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case rec := <-f.publishes:
			if rec.topic == topic {
				return rec
			}
		case <-deadline:
			t.Fatalf("no publish on %s within %v", topic, waitTimeout)
		}
	}
}

// fakeCloudAPI implements CloudAPI with canned responses. The info
// hooks receive a 1-based call count so tests can vary credentials
// across refreshes.
type fakeCloudAPI struct {
	mu            sync.Mutex
	classicCalls  int
	fogCalls      int
	classicInfoFn func(call int) (*cloudapi.ClassicMQTTInfo, error)
	fogInfoFn     func(call int) (*cloudapi.FogMQTTInfo, error)
	propsFn       func(deviceID string) (device.Properties, error)
	setErr        error
	setCalls      []fogSetCall
}

type fogSetCall struct {
	deviceID string
	params   map[string]int
}

func newFakeCloudAPI() *fakeCloudAPI {
	return &fakeCloudAPI{
		classicInfoFn: func(int) (*cloudapi.ClassicMQTTInfo, error) {
			return &cloudapi.ClassicMQTTInfo{
				Password:  "classic-pass",
				LoginName: "classic-user",
				Host:      "mqtt.deye.example",
				Port:      1883,
				ClientID:  "classic-client",
				Endpoint:  "b5f6c6",
				SSLPort:   8883,
			}, nil
		},
		fogInfoFn: func(int) (*cloudapi.FogMQTTInfo, error) {
			return &cloudapi.FogMQTTInfo{
				Username: "fog-user",
				ClientID: "fog-client",
				Password: "fog-pass",
				Host:     "fog.deye.example",
				WSPort:   "443",
				SSLPort:  "8883",
			}, nil
		},
		propsFn: func(string) (device.Properties, error) {
			return device.Properties{}, nil
		},
	}
}

func (f *fakeCloudAPI) ClassicMQTTInfo(context.Context) (*cloudapi.ClassicMQTTInfo, error) {
	f.mu.Lock()
	f.classicCalls++
	call := f.classicCalls
	fn := f.classicInfoFn
	f.mu.Unlock()
	return fn(call)
}

func (f *fakeCloudAPI) FogMQTTInfo(context.Context) (*cloudapi.FogMQTTInfo, error) {
	f.mu.Lock()
	f.fogCalls++
	call := f.fogCalls
	fn := f.fogInfoFn
	f.mu.Unlock()
	return fn(call)
}

func (f *fakeCloudAPI) FogDeviceProperties(_ context.Context, deviceID string) (device.Properties, error) {
	f.mu.Lock()
	fn := f.propsFn
	f.mu.Unlock()
	return fn(deviceID)
}

func (f *fakeCloudAPI) SetFogDeviceProperties(_ context.Context, deviceID string, params map[string]int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls = append(f.setCalls, fogSetCall{deviceID: deviceID, params: params})
	return f.setErr
}

func (f *fakeCloudAPI) classicInfoCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.classicCalls
}

// recordingLogger captures transport diagnostics for assertions.
type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) warnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}

func (l *recordingLogger) errorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors)
}
