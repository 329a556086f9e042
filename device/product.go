package device

// ProductConfig describes the capability set of one product model:
// which modes and fan speeds the hardware accepts, the target humidity
// bounds, and which switches exist at all.
type ProductConfig struct {
	Modes             []Mode
	FanSpeeds         []FanSpeed
	MinTargetHumidity int
	MaxTargetHumidity int
	Anion             bool
	Oscillating       bool
	WaterPump         bool
}

// productOverride narrows the default capability set for one product.
//
// A nil slice inherits the default list; an empty non-nil slice disables
// the feature outright (several dehumidifiers expose no mode selection).
// Humidity bounds of zero inherit. The no* switches only ever remove
// capabilities, matching how the vendor app describes hardware.
type productOverride struct {
	modes             []Mode
	fanSpeeds         []FanSpeed
	minTargetHumidity int
	maxTargetHumidity int
	noAnion           bool
	noOscillating     bool
	noWaterPump       bool
}

// productOverrides is keyed by the vendor product ID. Entry comments give
// the marketing model name.
var productOverrides = map[string]productOverride{
	"07dddba41c3011e8829100163e0f811e": { // 612S
		modes:         []Mode{},
		fanSpeeds:     []FanSpeed{FanSpeedLow, FanSpeedHigh},
		noOscillating: true,
		noWaterPump:   true,
	},
	"441480dcf29611eca05a0242ac480009": { // 8220C
		modes:             []Mode{ModeManual, ModeAuto},
		fanSpeeds:         []FanSpeed{FanSpeedLow, FanSpeedHigh},
		maxTargetHumidity: 90,
		noAnion:           true,
		noOscillating:     true,
		noWaterPump:       true,
	},
	"e69a5f54983f11ec964d0242ac480009": { // B12A3
		modes:         []Mode{ModeManual, ModeClothesDryer, ModeAirPurifier, ModeSleep},
		fanSpeeds:     []FanSpeed{},
		noOscillating: true,
		noWaterPump:   true,
	},
	"c56f9e0c7d2b11e9829100163e0f811e": { // D50A3
		modes:         []Mode{ModeManual, ModeClothesDryer, ModeSleep},
		fanSpeeds:     []FanSpeed{FanSpeedLow, FanSpeedMiddle, FanSpeedHigh},
		noAnion:       true,
		noOscillating: true,
		noWaterPump:   true,
	},
	"86cec9fc5c9811e8829100163e0f811e": { // D50B3
		modes:         []Mode{ModeManual, ModeClothesDryer},
		fanSpeeds:     []FanSpeed{FanSpeedLow, FanSpeedMiddle, FanSpeedHigh},
		noAnion:       true,
		noOscillating: true,
	},
	"c2c2d92c049f11e8829100163e0f811e": { // E12A3
		modes:         []Mode{ModeManual, ModeClothesDryer},
		fanSpeeds:     []FanSpeed{},
		noAnion:       true,
		noOscillating: true,
		noWaterPump:   true,
	},
	"8d52bc78f38511e89d4c00163e0c1b21": { // G25A3
		modes:       []Mode{},
		fanSpeeds:   []FanSpeed{FanSpeedLow, FanSpeedHigh},
		noAnion:     true,
		noWaterPump: true,
	},
	"a3850ae49ea511e89d4c00163e0c1b21": { // N20A3
		modes:             []Mode{ModeManual, ModeClothesDryer, ModeAuto},
		fanSpeeds:         []FanSpeed{FanSpeedLow, FanSpeedMiddle, FanSpeedHigh},
		minTargetHumidity: 30,
		maxTargetHumidity: 70,
		noOscillating:     true,
		noWaterPump:       true,
	},
	"5ea0feae4b1111ebb73c0242ac480009": { // L48A3
		modes:         []Mode{ModeManual, ModeClothesDryer},
		fanSpeeds:     []FanSpeed{FanSpeedLow, FanSpeedHigh},
		noAnion:       true,
		noOscillating: true,
		noWaterPump:   true,
	},
	"2c4bd0861c3011e89d4c00163e0c1b21": { // T22A3
		modes:         []Mode{ModeManual, ModeClothesDryer, ModeAirPurifier, ModeAuto},
		fanSpeeds:     []FanSpeed{FanSpeedLow, FanSpeedMiddle, FanSpeedHigh},
		noOscillating: true,
		noWaterPump:   true,
	},
	"6f97c340a43011e7829100163e0f811e": { // TM208FC
		modes:         []Mode{ModeManual, ModeClothesDryer, ModeAirPurifier, ModeAuto},
		fanSpeeds:     []FanSpeed{FanSpeedLow, FanSpeedHigh},
		noOscillating: true,
		noWaterPump:   true,
	},
	"20eae2ea268511e8829100163e0f811e": { // U20A3
		noOscillating: true,
		noWaterPump:   true,
	},
	"363b686a31ee11efb7203b3cd9717242": { // U20Air
		modes:         []Mode{ModeManual, ModeClothesDryer, ModeSleep},
		fanSpeeds:     []FanSpeed{FanSpeedLow, FanSpeedHigh},
		noOscillating: true,
		noWaterPump:   true,
	},
	"2b770cba268611e89d4c00163e0c1b21": { // V58A3
		noOscillating: true,
		noWaterPump:   true,
	},
	"17ab051af38611e89d4c00163e0c1b21": { // W20A3
		modes:         []Mode{ModeManual, ModeClothesDryer},
		fanSpeeds:     []FanSpeed{FanSpeedLow, FanSpeedHigh},
		noAnion:       true,
		noOscillating: true,
		noWaterPump:   true,
	},
	"06e8c86cca0811e99d4c00163e0c1b21": { // W20A3-京鱼座
		modes:         []Mode{ModeManual, ModeClothesDryer},
		fanSpeeds:     []FanSpeed{FanSpeedLow, FanSpeedHigh},
		noAnion:       true,
		noOscillating: true,
		noWaterPump:   true,
	},
	"d74ab1167d9f11e8829100163e0f811e": { // X20A3
		modes:         []Mode{ModeManual, ModeClothesDryer, ModeAuto, ModeSleep},
		fanSpeeds:     []FanSpeed{FanSpeedLow, FanSpeedMiddle, FanSpeedHigh},
		noOscillating: true,
		noWaterPump:   true,
	},
	"ff71de22187111e99d4c00163e0c1b21": { // Z12A3
		modes:         []Mode{ModeManual, ModeClothesDryer},
		fanSpeeds:     []FanSpeed{FanSpeedLow, FanSpeedHigh},
		noAnion:       true,
		noOscillating: true,
		noWaterPump:   true,
	},
	"1b351ce6187211e99d4c00163e0c1b21": { // Z20B3
		modes:         []Mode{ModeManual, ModeClothesDryer},
		fanSpeeds:     []FanSpeed{FanSpeedLow, FanSpeedHigh},
		noAnion:       true,
		noOscillating: true,
		noWaterPump:   true,
	},
	"82547192d2a811e99d4c00163e0c1b21": { // Z20B3-天猫精灵
		modes:         []Mode{ModeManual, ModeClothesDryer},
		fanSpeeds:     []FanSpeed{FanSpeedLow, FanSpeedHigh},
		noAnion:       true,
		noOscillating: true,
		noWaterPump:   true,
	},
	"32c309aa779011ed8cf00242ac480009": { // 890C
		modes:             []Mode{ModeManual, ModeAuto},
		fanSpeeds:         []FanSpeed{FanSpeedLow, FanSpeedHigh},
		maxTargetHumidity: 90,
		noAnion:           true,
		noOscillating:     true,
		noWaterPump:       true,
	},
	"764c37606bc711eea9b10242ac480009": { // 890T
		modes:             []Mode{ModeManual, ModeAuto},
		fanSpeeds:         []FanSpeed{FanSpeedLow, FanSpeedHigh},
		maxTargetHumidity: 90,
		noAnion:           true,
		noOscillating:     true,
		noWaterPump:       true,
	},
	"edd9a010778f11ed97500242ac480009": { // 6138A
		modes:             []Mode{ModeManual, ModeAuto},
		fanSpeeds:         []FanSpeed{FanSpeedLow, FanSpeedHigh},
		maxTargetHumidity: 90,
		noAnion:           true,
		noOscillating:     true,
		noWaterPump:       true,
	},
	"246e3b9a779011ed9a5f0242ac480009": { // 8138C
		modes:             []Mode{ModeManual, ModeAuto},
		fanSpeeds:         []FanSpeed{FanSpeedLow, FanSpeedHigh},
		maxTargetHumidity: 90,
		noAnion:           true,
		noOscillating:     true,
		noWaterPump:       true,
	},
	"5b0033e0f65411ee880a0242ac480009": { // 8158C
		modes:             []Mode{ModeManual, ModeAuto},
		fanSpeeds:         []FanSpeed{FanSpeedLow, FanSpeedHigh},
		maxTargetHumidity: 90,
		noAnion:           true,
		noOscillating:     true,
		noWaterPump:       true,
	},
	"be47762e6bc711eea54d0242ac480009": { // 8158T
		modes:             []Mode{ModeManual, ModeAuto},
		fanSpeeds:         []FanSpeed{FanSpeedLow, FanSpeedHigh},
		maxTargetHumidity: 90,
		noAnion:           true,
		noOscillating:     true,
		noWaterPump:       true,
	},
	"db6707b2268911e8829100163e0f811e": { // S12A3
		modes:         []Mode{},
		fanSpeeds:     []FanSpeed{FanSpeedLow, FanSpeedHigh},
		noOscillating: true,
		noWaterPump:   true,
	},
	"775bd87e9bfc11eb9b040242ac480009": { // 620S
		modes:         []Mode{},
		fanSpeeds:     []FanSpeed{FanSpeedLow, FanSpeedHigh},
		noOscillating: true,
		noWaterPump:   true,
	},
	"720618be0e4e11e99d4c00163e0c1b21": { // F20C3
		modes:         []Mode{ModeManual, ModeClothesDryer, ModeAirPurifier, ModeAuto},
		fanSpeeds:     []FanSpeed{FanSpeedLow, FanSpeedHigh},
		noOscillating: true,
		noWaterPump:   true,
	},
	"b767729a234e11e8829100163e0f811e": { // JD121EC
		modes:         []Mode{ModeManual, ModeClothesDryer},
		fanSpeeds:     []FanSpeed{},
		noAnion:       true,
		noOscillating: true,
		noWaterPump:   true,
	},
	"fcda68cc6a1211e8829100163e0f811e": { // JD201FC
		modes:         []Mode{ModeManual, ModeClothesDryer, ModeAirPurifier, ModeAuto},
		fanSpeeds:     []FanSpeed{FanSpeedLow, FanSpeedHigh},
		noOscillating: true,
		noWaterPump:   true,
	},
}

// ProductFeatureConfig returns the capability set for a product ID.
// Unknown products get the full default capability set, which matches
// how the vendor app treats unrecognized hardware.
//
// The returned slices are copies; callers may modify them freely.
func ProductFeatureConfig(productID string) ProductConfig {
	cfg := ProductConfig{
		Modes: []Mode{
			ModeManual,
			ModeClothesDryer,
			ModeAirPurifier,
			ModeAuto,
			ModeSleep,
		},
		FanSpeeds: []FanSpeed{
			FanSpeedLow,
			FanSpeedMiddle,
			FanSpeedHigh,
			FanSpeedFull,
		},
		MinTargetHumidity: 25,
		MaxTargetHumidity: 80,
		Anion:             true,
		Oscillating:       true,
		WaterPump:         true,
	}

	o, ok := productOverrides[productID]
	if !ok {
		return cfg
	}
	if o.modes != nil {
		cfg.Modes = append([]Mode(nil), o.modes...)
	}
	if o.fanSpeeds != nil {
		cfg.FanSpeeds = append([]FanSpeed(nil), o.fanSpeeds...)
	}
	if o.minTargetHumidity != 0 {
		cfg.MinTargetHumidity = o.minTargetHumidity
	}
	if o.maxTargetHumidity != 0 {
		cfg.MaxTargetHumidity = o.maxTargetHumidity
	}
	if o.noAnion {
		cfg.Anion = false
	}
	if o.noOscillating {
		cfg.Oscillating = false
	}
	if o.noWaterPump {
		cfg.WaterPump = false
	}
	return cfg
}
