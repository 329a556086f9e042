package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// dispatchBuffer sizes the hand-off channel between the broker I/O
// goroutine and the dispatch goroutine. A full buffer applies
// backpressure to the I/O goroutine rather than dropping messages.
const dispatchBuffer = 64

// registration is one callback slot on a topic. Slots keep their
// registration order; removal goes by id.
type registration struct {
	id uint64
	fn func(payload []byte)
}

// pendingPublish is a publish buffered while disconnected.
type pendingPublish struct {
	topic   string
	payload []byte
}

// core carries the transport machinery shared by both platform
// clients: the subscriber registry, the pending-publish queue, the
// dispatch goroutine and the credential lifecycle. Platform clients
// compose it and supply fetchCredentials.
//
// The registry and queue are mutated from caller goroutines
// (subscribe, unsubscribe, publish) and from the broker I/O goroutine
// (connect-time restoration, message routing); mu covers both.
type core struct {
	// fetchCredentials asks the cloud for fresh broker credentials. The
	// platform client captures its topic-space fields (endpoint,
	// account username) as a side effect.
	fetchCredentials func(ctx context.Context) (credentials, error)

	// newClient builds the underlying broker client; tests swap it.
	newClient func(*pahomqtt.ClientOptions) pahomqtt.Client

	mu          sync.Mutex
	client      pahomqtt.Client
	subscribers map[string][]registration
	pending     []pendingPublish
	creds       credentials
	credsStale  bool
	nextID      uint64
	dispatch    chan func()
	done        chan struct{}

	// closing marks a locally initiated disconnect so a racing
	// connection-lost event does not trigger a credential refresh.
	closing atomic.Bool

	logger   Logger
	loggerMu sync.RWMutex
}

func newCore(fetch func(ctx context.Context) (credentials, error)) *core {
	return &core{
		fetchCredentials: fetch,
		newClient:        pahomqtt.NewClient,
		subscribers:      make(map[string][]registration),
	}
}

// connect fetches credentials, dials the broker and starts the
// dispatch goroutine. Credential errors propagate unchanged, broker
// errors wrap ErrConnectionFailed. Safe to call again after
// disconnect; the registry and pending queue carry over.
func (c *core) connect(ctx context.Context) error {
	creds, err := c.fetchCredentials(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.creds = creds
	c.credsStale = false
	c.closing.Store(false)
	c.dispatch = make(chan func(), dispatchBuffer)
	c.done = make(chan struct{})
	dispatch, done := c.dispatch, c.done
	client := c.newClient(c.buildOptions(creds))
	c.client = client
	c.mu.Unlock()

	go dispatchLoop(dispatch, done)

	token := client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		c.stopDispatch()
		return fmt.Errorf("%w: no broker response within %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		c.stopDispatch()
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return nil
}

// disconnect closes the broker connection. No credential refresh
// happens on this path.
func (c *core) disconnect() {
	c.closing.Store(true)
	c.stopDispatch()

	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client != nil {
		client.Disconnect(defaultDisconnectQuiesce)
	}
}

// stopDispatch stops the dispatch goroutine; deliveries still queued
// are dropped.
func (c *core) stopDispatch() {
	c.mu.Lock()
	if c.done != nil {
		close(c.done)
		c.done = nil
		c.dispatch = nil
	}
	c.mu.Unlock()
}

// dispatchLoop delivers queued callback batches until done closes.
func dispatchLoop(jobs <-chan func(), done <-chan struct{}) {
	for {
		select {
		case job := <-jobs:
			job()
		case <-done:
			return
		}
	}
}

// subscribeTopic adds a callback to the registry; the first callback
// on a topic also subscribes on the wire when connected. The returned
// closure removes the callback again, unsubscribing on the wire only
// when it removed the topic's last callback while connected. It is
// idempotent and safe after disconnect.
func (c *core) subscribeTopic(topic string, fn func(payload []byte)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	regs := c.subscribers[topic]
	first := len(regs) == 0
	c.subscribers[topic] = append(regs, registration{id: id, fn: fn})
	client := c.client
	c.mu.Unlock()

	if first && client != nil && client.IsConnectionOpen() {
		c.watchToken("subscribe", topic, client.Subscribe(topic, defaultQoS, c.onMessage))
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			regs := c.subscribers[topic]
			for i, reg := range regs {
				if reg.id == id {
					c.subscribers[topic] = append(regs[:i:i], regs[i+1:]...)
					break
				}
			}
			last := len(c.subscribers[topic]) == 0
			if last {
				delete(c.subscribers, topic)
			}
			client := c.client
			c.mu.Unlock()

			if last && client != nil && client.IsConnectionOpen() {
				c.watchToken("unsubscribe", topic, client.Unsubscribe(topic))
			}
		})
	}
}

// publishOrQueue publishes immediately while connected and buffers
// otherwise; buffered publishes replay in order on the next connect.
func (c *core) publishOrQueue(topic string, payload []byte) {
	c.mu.Lock()
	client := c.client
	if client == nil || !client.IsConnectionOpen() {
		c.pending = append(c.pending, pendingPublish{topic: topic, payload: payload})
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.watchToken("publish", topic, client.Publish(topic, defaultQoS, false, payload))
}

// onMessage routes one inbound message to the dispatch goroutine. It
// runs on the broker I/O goroutine and must not invoke callbacks
// itself. Messages for topics nobody subscribes to are dropped.
func (c *core) onMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	topic, payload := msg.Topic(), msg.Payload()

	c.mu.Lock()
	regs := c.subscribers[topic]
	if len(regs) == 0 || c.dispatch == nil {
		c.mu.Unlock()
		return
	}
	handlers := make([]func([]byte), len(regs))
	for i, reg := range regs {
		handlers[i] = reg.fn
	}
	dispatch, done := c.dispatch, c.done
	c.mu.Unlock()

	job := func() {
		for _, fn := range handlers {
			c.invoke(topic, fn, payload)
		}
	}
	select {
	case dispatch <- job:
	case <-done:
	}
}

// invoke runs one callback with panic recovery so a misbehaving
// subscriber cannot kill dispatch.
func (c *core) invoke(topic string, fn func([]byte), payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logError("subscriber callback panicked", "topic", topic, "panic", r)
		}
	}()
	fn(payload)
}

// handleConnect runs on every (re)connect: restore wire subscriptions
// for every topic that still has callbacks, then flush publishes
// queued while offline, oldest first. Failures here are not surfaced;
// the broker closes the connection on hard failures and the next
// reconnect retries.
func (c *core) handleConnect(client pahomqtt.Client) {
	c.mu.Lock()
	topics := make([]string, 0, len(c.subscribers))
	for topic, regs := range c.subscribers {
		if len(regs) > 0 {
			topics = append(topics, topic)
		}
	}
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, topic := range topics {
		client.Subscribe(topic, defaultQoS, c.onMessage)
	}
	for _, p := range pending {
		client.Publish(p.topic, defaultQoS, false, p.payload)
	}
}

// handleConnectionLost refreshes broker credentials after an
// unexpected drop, so the auto-reconnect dials with a live login
// rather than the one that just failed. Locally initiated disconnects
// skip the refresh.
func (c *core) handleConnectionLost(err error) {
	if c.closing.Load() {
		return
	}
	c.logWarn("connection lost, refreshing broker credentials", "error", err)
	if rerr := c.refreshCredentials(context.Background()); rerr != nil {
		c.logError("broker credential refresh failed", "error", rerr)
	}
}

// refreshCredentials fetches fresh credentials and installs them for
// the next connect attempt. On failure the stored credentials are
// marked stale so currentCredentials retries before serving them.
func (c *core) refreshCredentials(ctx context.Context) error {
	creds, err := c.fetchCredentials(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.credsStale = true
		return err
	}
	c.creds = creds
	c.credsStale = false
	return nil
}

// currentCredentials serves the broker login to a connect attempt.
// Credentials left stale by a failed refresh are refreshed once more
// here, giving every reconnect attempt a chance at a live login
// instead of re-dialing with a dead one.
func (c *core) currentCredentials() (string, string) {
	c.mu.Lock()
	stale := c.credsStale
	c.mu.Unlock()

	if stale {
		if err := c.refreshCredentials(context.Background()); err != nil {
			c.logError("broker credential refresh retry failed", "error", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds.username, c.creds.password
}

// watchToken logs failed or unacknowledged broker operations from the
// fire-and-forget paths, where waiting inline would stall the caller
// or the I/O goroutine.
func (c *core) watchToken(op, topic string, token pahomqtt.Token) {
	go func() {
		if !token.WaitTimeout(defaultOpTimeout) {
			c.logWarn("broker "+op+" unacknowledged", "topic", topic, "timeout", defaultOpTimeout)
			return
		}
		if err := token.Error(); err != nil {
			c.logWarn("broker "+op+" failed", "topic", topic, "error", err)
		}
	}()
}

func (c *core) setLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

func (c *core) logWarn(msg string, args ...any) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()
	if logger != nil {
		logger.Warn(msg, args...)
	}
}

func (c *core) logError(msg string, args ...any) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()
	if logger != nil {
		logger.Error(msg, args...)
	}
}
