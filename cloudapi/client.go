package cloudapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/deye-community/go-deye/device"
)

// Vendor constants. The app ID and extend blob identify the official
// mobile app; the login endpoint rejects requests without them.
const (
	// DefaultEndpoint is the production end-user API base URL.
	DefaultEndpoint = "https://api.deye.com.cn/v3/enduser"

	loginAppID  = "a774310e-a430-11e7-9d4c-00163e0c1b21"
	loginExtend = `{"cid":"63d5b0df098443db906f857003f29d12","type":"1"}`
	pushType    = "Ali"
)

// Request defaults.
const (
	// defaultRequestTimeout bounds each HTTP exchange when the caller
	// supplies no http.Client of their own.
	defaultRequestTimeout = 15 * time.Second
)

// Client talks to the Deye cloud on behalf of one end user.
//
// The zero value is not usable; construct with NewClient. All methods
// are safe for concurrent use.
type Client struct {
	httpClient *http.Client
	endpoint   string
	username   string
	password   string

	mu               sync.RWMutex
	authToken        string
	userID           string
	tokenExp         time.Time
	onTokenRefreshed func(token string)
}

// NewClient returns a client for the production endpoint.
//
// Parameters:
//   - httpClient: HTTP client to use; nil gets a default with a 15s
//     timeout
//   - username: Account login name (phone number or email)
//   - password: Account password
func NewClient(httpClient *http.Client, username, password string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	return &Client{
		httpClient: httpClient,
		endpoint:   DefaultEndpoint,
		username:   username,
		password:   password,
	}
}

// SetEndpoint overrides the API base URL. Intended for tests and
// regional deployments; call before the first request.
func (c *Client) SetEndpoint(endpoint string) {
	c.endpoint = endpoint
}

// Authenticate logs in with username/password and stores the returned
// auth token.
//
// Returns:
//   - error: ErrInvalidAuth if the backend rejects the credentials or
//     returns no token, ErrCannotConnect on transport failure
func (c *Client) Authenticate(ctx context.Context) error {
	env, err := c.request(ctx, http.MethodPost, "login/", loginRequest{
		AppID:     loginAppID,
		Extend:    loginExtend,
		PushType:  pushType,
		LoginName: c.username,
		Password:  c.password,
	}, false)
	if err != nil {
		return err
	}

	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Token == "" {
		return fmt.Errorf("%w: login response carried no token", ErrInvalidAuth)
	}
	return c.SetAuthToken(data.Token)
}

// DeviceList returns every appliance bound to the account.
func (c *Client) DeviceList(ctx context.Context) ([]DeviceInfo, error) {
	env, err := c.request(ctx, http.MethodGet, "deviceList/?app=new", nil, true)
	if err != nil {
		return nil, err
	}

	var devices []DeviceInfo
	if err := json.Unmarshal(env.Data, &devices); err != nil {
		return nil, fmt.Errorf("%w: malformed device list: %v", ErrCannotConnect, err)
	}
	return devices, nil
}

// ProductList returns the vendor product catalog grouped by category.
func (c *Client) ProductList(ctx context.Context) ([]ProductType, error) {
	env, err := c.request(ctx, http.MethodGet, "productlist/?app=new", nil, true)
	if err != nil {
		return nil, err
	}

	var data struct {
		Result []ProductType `json:"result"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: malformed product list: %v", ErrCannotConnect, err)
	}
	return data.Result, nil
}

// ClassicMQTTInfo returns broker coordinates and credentials for the
// Classic platform.
func (c *Client) ClassicMQTTInfo(ctx context.Context) (*ClassicMQTTInfo, error) {
	env, err := c.request(ctx, http.MethodGet, "mqttInfo/", nil, true)
	if err != nil {
		return nil, err
	}

	var info ClassicMQTTInfo
	if err := json.Unmarshal(env.Data, &info); err != nil {
		return nil, fmt.Errorf("%w: malformed mqtt info: %v", ErrCannotConnect, err)
	}
	return &info, nil
}

// FogMQTTInfo returns broker coordinates and credentials for the Fog
// platform.
func (c *Client) FogMQTTInfo(ctx context.Context) (*FogMQTTInfo, error) {
	env, err := c.request(ctx, http.MethodGet, "fogmqttinfo/", nil, true)
	if err != nil {
		return nil, err
	}

	var info FogMQTTInfo
	if err := json.Unmarshal(env.Data, &info); err != nil {
		return nil, fmt.Errorf("%w: malformed fog mqtt info: %v", ErrCannotConnect, err)
	}
	return &info, nil
}

// FogDeviceProperties fetches the current thing-property map of a Fog
// appliance.
func (c *Client) FogDeviceProperties(ctx context.Context, deviceID string) (device.Properties, error) {
	path := "get/properties/?device_id=" + url.QueryEscape(deviceID)
	env, err := c.request(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return nil, err
	}

	var data struct {
		Properties device.Properties `json:"properties"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: malformed properties: %v", ErrCannotConnect, err)
	}
	return data.Properties, nil
}

// PollFogDeviceProperties asks the backend to refresh a Fog appliance's
// properties from the hardware. The refreshed values arrive as a
// device_data push, not in this response.
func (c *Client) PollFogDeviceProperties(ctx context.Context, deviceID string) error {
	_, err := c.request(ctx, http.MethodPost, "set/properties/", setPropertiesRequest{
		DeviceID: deviceID,
		Params:   map[string]int{"RealData": 1},
	}, true)
	return err
}

// SetFogDeviceProperties writes thing properties to a Fog appliance.
// The params map usually comes from Command.FogProperties.
func (c *Client) SetFogDeviceProperties(ctx context.Context, deviceID string, params map[string]int) error {
	_, err := c.request(ctx, http.MethodPost, "set/properties/", setPropertiesRequest{
		DeviceID: deviceID,
		Params:   params,
	}, true)
	return err
}

type loginRequest struct {
	AppID     string `json:"appid"`
	Extend    string `json:"extend"`
	PushType  string `json:"pushtype"`
	LoginName string `json:"loginname"`
	Password  string `json:"password"`
}

type refreshRequest struct {
	Token string `json:"token"`
}

type setPropertiesRequest struct {
	DeviceID string         `json:"device_id"`
	Params   map[string]int `json:"params"`
}

// request performs one HTTP exchange and validates the response
// envelope. Authenticated requests first refresh the token if it is
// near expiry, then attach the Authorization header.
func (c *Client) request(ctx context.Context, method, path string, body any, authenticated bool) (*responseEnvelope, error) {
	if authenticated {
		if err := c.RefreshTokenIfNearExpiry(ctx, false); err != nil {
			return nil, err
		}
	}

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: encoding request: %v", ErrCannotConnect, err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+"/"+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCannotConnect, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		if token := c.AuthToken(); token != "" {
			req.Header.Set("Authorization", "JWT "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCannotConnect, err)
	}
	defer resp.Body.Close()

	var env responseEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrCannotConnect, err)
	}
	if err := env.validate(); err != nil {
		return nil, err
	}
	return &env, nil
}
