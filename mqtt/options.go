package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for the initial
	// broker connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultOpTimeout is the maximum time to wait for a publish,
	// subscribe or unsubscribe acknowledgment before logging it as lost.
	defaultOpTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time allowed for in-flight
	// operations on disconnect, in milliseconds.
	defaultDisconnectQuiesce = 1000

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// maxReconnectInterval caps the auto-reconnect backoff.
	maxReconnectInterval = 2 * time.Minute

	// defaultQoS is used for every subscribe and publish. The vendor
	// brokers deliver state pushes at most once.
	defaultQoS = 0

	// tlsMinVersion is the minimum TLS version for broker connections.
	tlsMinVersion = tls.VersionTLS12

	// clientIDPrefix starts generated client IDs when the cloud hands
	// out none.
	clientIDPrefix = "go-deye-"
)

// credentials is one broker login as handed out by the cloud.
type credentials struct {
	host     string
	port     int
	username string
	password string
	clientID string
}

// buildOptions creates the paho client options for the current
// credentials.
//
// The brokers of both platforms are TLS-only, so the URL scheme is
// always ssl. Username and password are deliberately not baked in:
// they go stale when the cloud rotates them, so every connect attempt
// asks the CredentialsProvider instead. Connect retry stays off so the
// initial Connect surfaces failures to the caller; reconnects after an
// established session are paho's job.
func (c *core) buildOptions(creds credentials) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	opts.AddBroker(fmt.Sprintf("ssl://%s:%d", creds.host, creds.port))

	clientID := creds.clientID
	if clientID == "" {
		clientID = clientIDPrefix + uuid.NewString()
	}
	opts.SetClientID(clientID)

	opts.SetCredentialsProvider(c.currentCredentials)

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetMaxReconnectInterval(maxReconnectInterval)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)
	opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})

	opts.SetOnConnectHandler(c.handleConnect)
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleConnectionLost(err)
	})

	return opts
}
