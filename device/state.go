package device

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Frame size constraints.
const (
	// classicStateMinLen is the smallest decoded frame that carries every
	// field read by ParseClassicState; the exhaust temperature sits at
	// byte 17. Appliances observed in the field send 22-byte frames.
	classicStateMinLen = 18

	// temperatureOffset is added to Celsius readings on the wire so the
	// byte stays unsigned down to -40°C.
	temperatureOffset = 40
)

// State is the canonical snapshot of an appliance, decoded from either
// platform's wire format.
//
// The exported fields are the observable surface: they participate in
// Equal and feed ToCommand. The unexported fields hold diagnostic
// readings and advisory bits that the protocol carries but integrations
// have no use for; they are retained so a decoded frame loses nothing.
type State struct {
	PowerOn                bool     `json:"power_on"`
	Mode                   Mode     `json:"mode"`
	FanSpeed               FanSpeed `json:"fan_speed"`
	TargetHumidity         int      `json:"target_humidity"`
	EnvironmentTemperature int      `json:"environment_temperature"`
	EnvironmentHumidity    int      `json:"environment_humidity"`
	AnionOn                bool     `json:"anion_on"`
	WaterPumpOn            bool     `json:"water_pump_on"`
	OscillatingOn          bool     `json:"oscillating_on"`
	ChildLockOn            bool     `json:"child_lock_on"`
	WaterTankFull          bool     `json:"water_tank_full"`
	Defrosting             bool     `json:"defrosting"`
	FanRunning             bool     `json:"fan_running"`

	// Diagnostics, excluded from Equal and ToCommand.
	coilTemperature    int
	exhaustTemperature int
	electromagnetic    bool
	press              bool
	environmentDegree  bool
	poweroffAdvisory   bool
	poweronAdvisory    bool
}

// ParseClassicState decodes a hex-encoded Classic state frame.
//
// See the package documentation for the frame layout. The header bytes
// are not validated; appliances vary them across firmware revisions.
//
// Parameters:
//   - frame: Hex string as received on the status topic (after envelope
//     unwrapping)
//
// Returns:
//   - *State: Decoded state
//   - error: ErrInvalidStateFrame, ErrInvalidMode or ErrInvalidFanSpeed
//     if decoding fails
func ParseClassicState(frame string) (*State, error) {
	raw, err := hex.DecodeString(frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStateFrame, err)
	}
	if len(raw) < classicStateMinLen {
		return nil, fmt.Errorf("%w: too short (%d bytes, need at least %d)",
			ErrInvalidStateFrame, len(raw), classicStateMinLen)
	}

	// Bytes 2-3: state flags (big-endian uint16)
	flags := StateFlag(binary.BigEndian.Uint16(raw[2:4]))

	// Byte 4: fan speed (high nibble) | mode (low nibble)
	fan := FanSpeed(raw[4] >> 4)
	mode := Mode(raw[4] & 0x0F)
	if !fan.Valid() {
		return nil, fmt.Errorf("%w: ordinal %d", ErrInvalidFanSpeed, byte(fan))
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: ordinal %d", ErrInvalidMode, byte(mode))
	}

	return &State{
		PowerOn:                flags&StateFlagPower != 0,
		Mode:                   mode,
		FanSpeed:               fan,
		TargetHumidity:         int(raw[5]),
		EnvironmentTemperature: int(raw[15]) - temperatureOffset,
		EnvironmentHumidity:    int(raw[16]),
		AnionOn:                flags&StateFlagAnion != 0,
		WaterPumpOn:            flags&StateFlagWaterPump != 0,
		OscillatingOn:          flags&StateFlagOscillating != 0,
		ChildLockOn:            flags&StateFlagChildLock != 0,
		WaterTankFull:          flags&StateFlagWaterTankFull != 0,
		Defrosting:             flags&StateFlagDefrosting != 0,
		FanRunning:             flags&StateFlagFanRunning != 0,

		coilTemperature:    int(raw[14]) - temperatureOffset,
		exhaustTemperature: int(raw[17]) - temperatureOffset,
		electromagnetic:    flags&StateFlagElectromagnetic != 0,
		press:              flags&StateFlagPress != 0,
		environmentDegree:  flags&StateFlagDegree != 0,
		poweroffAdvisory:   flags&StateFlagPoweroff != 0,
		poweronAdvisory:    flags&StateFlagPoweron != 0,
	}, nil
}

// ParseFogState decodes a Fog thing-property map.
//
// Absent keys take the protocol defaults: switches off, fan stopped,
// sleep mode, target humidity 60, ambient readings 27. Present keys with
// non-numeric values fail the whole decode.
//
// Parameters:
//   - props: Property map from a device_data push or a properties query
//
// Returns:
//   - *State: Decoded state
//   - error: ErrInvalidProperties, ErrInvalidMode or ErrInvalidFanSpeed
//     if decoding fails
func ParseFogState(props Properties) (*State, error) {
	r := propReader{props: props}

	fan := FanSpeed(r.intValue(propWindSpeed, int(FanSpeedStopped)))
	mode := Mode(r.intValue(propMode, int(ModeSleep)))

	state := &State{
		PowerOn:                r.boolValue(propPower),
		Mode:                   mode,
		FanSpeed:               fan,
		TargetHumidity:         r.intValue(propSetHumidity, 60),
		EnvironmentTemperature: r.intValue(propAmbientTemperature, 27),
		EnvironmentHumidity:    r.intValue(propEnvironmentalHumidity, 27),
		AnionOn:                r.boolValue(propNegativeIon),
		WaterPumpOn:            r.boolValue(propWaterPump),
		OscillatingOn:          r.boolValue(propSwingingWind),
		ChildLockOn:            r.boolValue(propKeyLock),
		WaterTankFull:          r.boolValue(propWaterTank),
		Defrosting:             r.boolValue(propDemisting),
		FanRunning:             r.boolValue(propFan),

		coilTemperature:    r.intValue(propCoilTemperature, 27),
		exhaustTemperature: r.intValue(propExhaustTemperature, 27),
	}
	if r.err != nil {
		return nil, r.err
	}
	if !fan.Valid() {
		return nil, fmt.Errorf("%w: ordinal %d", ErrInvalidFanSpeed, byte(fan))
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: ordinal %d", ErrInvalidMode, byte(mode))
	}
	return state, nil
}

// Equal reports whether the observable fields of two states match.
// Diagnostic readings and advisory bits do not participate, so states
// decoded from different platforms compare equal when the appliance is
// in the same condition.
func (s *State) Equal(other *State) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.PowerOn == other.PowerOn &&
		s.Mode == other.Mode &&
		s.FanSpeed == other.FanSpeed &&
		s.TargetHumidity == other.TargetHumidity &&
		s.EnvironmentTemperature == other.EnvironmentTemperature &&
		s.EnvironmentHumidity == other.EnvironmentHumidity &&
		s.AnionOn == other.AnionOn &&
		s.WaterPumpOn == other.WaterPumpOn &&
		s.OscillatingOn == other.OscillatingOn &&
		s.ChildLockOn == other.ChildLockOn &&
		s.WaterTankFull == other.WaterTankFull &&
		s.Defrosting == other.Defrosting &&
		s.FanRunning == other.FanRunning
}

// ToCommand derives the command that would hold the appliance in this
// state. Only the controllable fields carry over; sensor readings and
// status bits have no command-side representation.
func (s *State) ToCommand() *Command {
	return &Command{
		AnionOn:        s.AnionOn,
		WaterPumpOn:    s.WaterPumpOn,
		PowerOn:        s.PowerOn,
		OscillatingOn:  s.OscillatingOn,
		ChildLockOn:    s.ChildLockOn,
		FanSpeed:       s.FanSpeed,
		Mode:           s.Mode,
		TargetHumidity: s.TargetHumidity,
	}
}

// String returns a human-readable representation of the state.
func (s *State) String() string {
	return fmt.Sprintf("State{Power:%t, Mode:%s, Fan:%s, Target:%d%%, Temp:%d, Humidity:%d%%}",
		s.PowerOn, s.Mode, s.FanSpeed, s.TargetHumidity,
		s.EnvironmentTemperature, s.EnvironmentHumidity)
}
