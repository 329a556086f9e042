package device

import (
	"fmt"
	"strings"
)

// Mode is an appliance operating mode.
//
// The ordinal values are the vendor wire encoding and must not be
// reordered.
type Mode byte

// All modes reported by known firmware revisions.
const (
	ModeManual       Mode = 0
	ModeClothesDryer Mode = 1
	ModeAirPurifier  Mode = 2
	ModeAuto         Mode = 3

	// ModeUnknown and ModeUnknown2 appear on some firmware revisions.
	// Their meaning is undocumented; they are carried as opaque values
	// rather than rejected.
	ModeUnknown  Mode = 4
	ModeUnknown2 Mode = 5

	ModeSleep Mode = 6
)

// Valid reports whether m is a mode ordinal known to the wire protocol.
func (m Mode) Valid() bool {
	return m <= ModeSleep
}

// String returns the stable lower-case name used by flags and logs.
func (m Mode) String() string {
	switch m {
	case ModeManual:
		return "manual"
	case ModeClothesDryer:
		return "clothes-dryer"
	case ModeAirPurifier:
		return "air-purifier"
	case ModeAuto:
		return "auto"
	case ModeUnknown:
		return "unknown"
	case ModeUnknown2:
		return "unknown-2"
	case ModeSleep:
		return "sleep"
	}
	return fmt.Sprintf("mode(%d)", byte(m))
}

// ParseMode converts a mode name (as produced by Mode.String) back to a
// Mode. Matching is case-insensitive.
func ParseMode(s string) (Mode, error) {
	for m := ModeManual; m <= ModeSleep; m++ {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// FanSpeed is an appliance fan speed step.
//
// The ordinal values are the vendor wire encoding and must not be
// reordered.
type FanSpeed byte

// All fan speed steps. FanSpeedStopped is only ever reported, never
// commanded.
const (
	FanSpeedStopped FanSpeed = 0
	FanSpeedLow     FanSpeed = 1
	FanSpeedMiddle  FanSpeed = 2
	FanSpeedHigh    FanSpeed = 3
	FanSpeedFull    FanSpeed = 4
)

// Valid reports whether f is a fan speed ordinal known to the wire protocol.
func (f FanSpeed) Valid() bool {
	return f <= FanSpeedFull
}

// String returns the stable lower-case name used by flags and logs.
func (f FanSpeed) String() string {
	switch f {
	case FanSpeedStopped:
		return "stopped"
	case FanSpeedLow:
		return "low"
	case FanSpeedMiddle:
		return "middle"
	case FanSpeedHigh:
		return "high"
	case FanSpeedFull:
		return "full"
	}
	return fmt.Sprintf("fan-speed(%d)", byte(f))
}

// ParseFanSpeed converts a fan speed name (as produced by FanSpeed.String)
// back to a FanSpeed. Matching is case-insensitive.
func ParseFanSpeed(s string) (FanSpeed, error) {
	for f := FanSpeedStopped; f <= FanSpeedFull; f++ {
		if strings.EqualFold(s, f.String()) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidFanSpeed, s)
}

// StateFlag is the 16-bit flag word at bytes 2-3 of a Classic state frame.
//
// StateFlag and CommandFlag use different bit assignments. They are
// distinct types so one can never be written where the other is meant.
type StateFlag uint16

// State flag bits, LSB first.
const (
	StateFlagAnion           StateFlag = 1 << 0
	StateFlagWaterPump       StateFlag = 1 << 1
	StateFlagElectromagnetic StateFlag = 1 << 2 // diagnostic
	StateFlagPress           StateFlag = 1 << 3 // diagnostic
	StateFlagDegree          StateFlag = 1 << 4 // diagnostic

	// Bits 5-7 are unassigned.

	StateFlagPower       StateFlag = 1 << 8
	StateFlagOscillating StateFlag = 1 << 9
	StateFlagChildLock   StateFlag = 1 << 10

	// StateFlagPoweroff and StateFlagPoweron are advisory transition bits.
	// They do not track the power state; use StateFlagPower for that.
	StateFlagPoweroff StateFlag = 1 << 11
	StateFlagPoweron  StateFlag = 1 << 12

	StateFlagDefrosting    StateFlag = 1 << 13
	StateFlagWaterTankFull StateFlag = 1 << 14
	StateFlagFanRunning    StateFlag = 1 << 15
)

// CommandFlag is the flag byte at offset 2 of a Classic command frame.
//
// The bit layout differs from StateFlag: power sits at bit 0 here but at
// bit 8 in the state word.
type CommandFlag byte

// Command flag bits, LSB first.
const (
	CommandFlagPower       CommandFlag = 1 << 0
	CommandFlagOscillating CommandFlag = 1 << 1
	CommandFlagChildLock   CommandFlag = 1 << 2
	CommandFlagPoweroff    CommandFlag = 1 << 3
	CommandFlagPoweron     CommandFlag = 1 << 4
	CommandFlagWaterPump   CommandFlag = 1 << 5
	CommandFlagAnion       CommandFlag = 1 << 6
)
