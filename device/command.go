package device

import "fmt"

// commandFrameLen is the fixed size of a Classic command frame.
const commandFrameLen = 10

// Command holds the controllable fields of an appliance.
//
// All fields are scalar, so commands compare with ==. A Command encodes
// to either platform's wire format without loss: Bytes for Classic,
// FogProperties for Fog.
type Command struct {
	AnionOn        bool
	WaterPumpOn    bool
	PowerOn        bool
	OscillatingOn  bool
	ChildLockOn    bool
	FanSpeed       FanSpeed
	Mode           Mode
	TargetHumidity int
}

// NewCommand returns a command with the protocol defaults: everything
// switched off, fan low, manual mode, target humidity 60.
func NewCommand() *Command {
	return &Command{
		FanSpeed:       FanSpeedLow,
		Mode:           ModeManual,
		TargetHumidity: 60,
	}
}

// Bytes encodes the command as a Classic command frame:
//
//	Byte 0-1: Header 0x08 0x02
//	Byte 2:   Command flags (see CommandFlag)
//	Byte 3:   Fan speed (high nibble) | mode (low nibble)
//	Byte 4:   Target humidity, percent
//	Byte 5-9: Reserved, zero
//
// Returns:
//   - []byte: 10-byte frame ready for the command topic
func (c *Command) Bytes() []byte {
	var flags CommandFlag
	if c.PowerOn {
		flags |= CommandFlagPower
	}
	if c.OscillatingOn {
		flags |= CommandFlagOscillating
	}
	if c.ChildLockOn {
		flags |= CommandFlagChildLock
	}
	if c.WaterPumpOn {
		flags |= CommandFlagWaterPump
	}
	if c.AnionOn {
		flags |= CommandFlagAnion
	}

	buf := make([]byte, commandFrameLen)
	buf[0] = 0x08
	buf[1] = 0x02
	buf[2] = byte(flags)
	buf[3] = byte(c.FanSpeed)<<4 | byte(c.Mode)&0x0F
	buf[4] = byte(c.TargetHumidity)
	// Bytes 5-9 stay zero.
	return buf
}

// FogProperties encodes the command as the property map the Fog platform
// accepts. Switches become 0/1 integers, enums their ordinals.
func (c *Command) FogProperties() map[string]int {
	return map[string]int{
		propKeyLock:      boolToInt(c.ChildLockOn),
		propMode:         int(c.Mode),
		propPower:        boolToInt(c.PowerOn),
		propWindSpeed:    int(c.FanSpeed),
		propSetHumidity:  c.TargetHumidity,
		propNegativeIon:  boolToInt(c.AnionOn),
		propSwingingWind: boolToInt(c.OscillatingOn),
		propWaterPump:    boolToInt(c.WaterPumpOn),
	}
}

// String returns a human-readable representation of the command.
func (c *Command) String() string {
	return fmt.Sprintf("Command{Power:%t, Mode:%s, Fan:%s, Target:%d%%}",
		c.PowerOn, c.Mode, c.FanSpeed, c.TargetHumidity)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
