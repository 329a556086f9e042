package cloudapi

import (
	"encoding/json"
	"fmt"
)

// Platform identifies which IoT backend an appliance is enrolled on.
// The ordinals are the values the deviceList endpoint returns.
type Platform int

// Known platforms.
const (
	// PlatformClassic appliances exchange binary frames over the vendor
	// MQTT broker.
	PlatformClassic Platform = 1

	// PlatformFog appliances exchange JSON thing-properties through the
	// cloud, with pushes relayed over a cloud MQTT broker.
	PlatformFog Platform = 2
)

// String returns the stable lower-case platform name.
func (p Platform) String() string {
	switch p {
	case PlatformClassic:
		return "classic"
	case PlatformFog:
		return "fog"
	}
	return fmt.Sprintf("platform(%d)", int(p))
}

// DeviceInfo describes one appliance bound to the account. Field names
// mirror the deviceList payload.
type DeviceInfo struct {
	ProductTypeID   int             `json:"producttype_id"`
	DeviceName      string          `json:"device_name"`
	ProductName     string          `json:"product_name"`
	Platform        Platform        `json:"platform"`
	MAC             string          `json:"mac"`
	ProtocolVersion string          `json:"protocol_version"`
	GatewayType     int             `json:"gatewaytype"`
	IsCombo         bool            `json:"is_combo"`
	Alias           string          `json:"alias"`
	DeviceID        string          `json:"device_id"`
	ProductID       string          `json:"product_id"`
	Role            int             `json:"role"`
	ProductIcon     string          `json:"product_icon"`
	Online          bool            `json:"online"`
	ProductType     string          `json:"product_type"`
	Payload         json.RawMessage `json:"payload"`
	PictureV3       string          `json:"picture_v3"`
	WorkTime        int             `json:"work_time"`
	UserCount       int             `json:"user_count"`
}

// ClassicMQTTInfo carries broker coordinates and per-user credentials
// for the Classic platform. Endpoint is the account-scoped topic prefix.
type ClassicMQTTInfo struct {
	Password  string `json:"password"`
	LoginName string `json:"loginname"`
	Host      string `json:"mqtthost"`
	Port      int    `json:"mqttport"`
	ClientID  string `json:"clientid"`
	Endpoint  string `json:"endpoint"`
	SSLPort   int    `json:"sslport"`
}

// FogTopics lists the topics the account may use on the Fog broker.
type FogTopics struct {
	All []string `json:"all"`
	Pub []string `json:"pub"`
	Sub []string `json:"sub"`
}

// FogMQTTInfo carries broker coordinates and per-user credentials for
// the Fog platform. The backend returns the ports as strings.
type FogMQTTInfo struct {
	Username string    `json:"username"`
	ClientID string    `json:"clientid"`
	Password string    `json:"password"`
	Host     string    `json:"mqtt_host"`
	WSPort   string    `json:"ws_port"`
	SSLPort  string    `json:"ssl_port"`
	Topics   FogTopics `json:"topic"`
	Expire   int       `json:"expire"`
}

// ProductDefinition describes one product model in the vendor catalog.
type ProductDefinition struct {
	ProductID   string `json:"productid"`
	Name        string `json:"pname"`
	Brand       string `json:"brand"`
	Model       string `json:"model"`
	Picture     string `json:"picture"`
	PictureV3   string `json:"picture_v3"`
	ConfigGuide string `json:"config_guide"`
	Status      int    `json:"status"`
	ConfigType  int    `json:"configType"`
}

// ProductType groups catalog entries by appliance category.
type ProductType struct {
	Type     string              `json:"ptype"`
	TypeName string              `json:"ptypename"`
	Products []ProductDefinition `json:"pdata"`
}

// envelopeMeta is the status block every response carries.
type envelopeMeta struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// responseEnvelope wraps every backend response. Data stays raw until
// the caller knows its shape.
type responseEnvelope struct {
	Meta *envelopeMeta   `json:"meta"`
	Data json.RawMessage `json:"data"`
}

// validate maps the envelope status onto the package sentinels: a
// missing meta block is a connectivity problem, a nonzero code an
// authorization one.
func (e *responseEnvelope) validate() error {
	if e.Meta == nil {
		return fmt.Errorf("%w: response missing meta", ErrCannotConnect)
	}
	if e.Meta.Code != 0 {
		return fmt.Errorf("%w: code %d (%s)", ErrInvalidAuth, e.Meta.Code, e.Meta.Message)
	}
	return nil
}
