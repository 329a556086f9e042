package main

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/deye-community/go-deye/cloudapi"
	"github.com/deye-community/go-deye/device"
	"github.com/deye-community/go-deye/internal/config"
)

// TestFindDevice verifies device lookup by id.
func TestFindDevice(t *testing.T) {
	devices := []cloudapi.DeviceInfo{
		{DeviceID: "dev-1", DeviceName: "Bedroom Dehumidifier"},
		{DeviceID: "dev-2", DeviceName: "Basement Dehumidifier"},
	}

	got, err := findDevice(devices, "dev-2")
	if err != nil {
		t.Fatalf("findDevice(dev-2) error = %v", err)
	}
	if got.DeviceName != "Basement Dehumidifier" {
		t.Errorf("findDevice(dev-2).DeviceName = %q, want %q", got.DeviceName, "Basement Dehumidifier")
	}

	_, err = findDevice(devices, "dev-9")
	if err == nil || !strings.Contains(err.Error(), "dev-9 not found") {
		t.Errorf("findDevice(dev-9) error = %v, want not-found", err)
	}

	_, err = findDevice(nil, "dev-1")
	if err == nil {
		t.Error("findDevice on empty list should fail")
	}
}

// TestDeviceIDResolution verifies the flag/config precedence for the
// device id.
func TestDeviceIDResolution(t *testing.T) {
	tests := []struct {
		name      string
		flagValue string
		configID  string
		want      string
		wantErr   bool
	}{
		{name: "flag wins over config", flagValue: "dev-flag", configID: "dev-config", want: "dev-flag"},
		{name: "config fallback", flagValue: "", configID: "dev-config", want: "dev-config"},
		{name: "missing everywhere", flagValue: "", configID: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &app{cfg: &config.Config{}}
			a.cfg.Device.ID = tt.configID

			got, err := a.deviceID(tt.flagValue)
			if tt.wantErr {
				if err == nil {
					t.Fatal("deviceID() should fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("deviceID() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("deviceID() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestParseOnOff verifies switch flag parsing.
func TestParseOnOff(t *testing.T) {
	tests := []struct {
		value   string
		want    bool
		wantErr bool
	}{
		{value: "on", want: true},
		{value: "off", want: false},
		{value: "ON", wantErr: true},
		{value: "true", wantErr: true},
		{value: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := parseOnOff("power", tt.value)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseOnOff(%q) should fail", tt.value)
				}
				if !strings.Contains(err.Error(), "-power") {
					t.Errorf("parseOnOff(%q) error = %v, should name the flag", tt.value, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseOnOff(%q) error = %v", tt.value, err)
			}
			if got != tt.want {
				t.Errorf("parseOnOff(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

// TestApplyCommandFlags verifies that only the flags the user passed
// change the command.
func TestApplyCommandFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		mutate  func(c *device.Command)
		wantErr bool
	}{
		{
			name:   "no flags leaves command untouched",
			args:   nil,
			mutate: func(*device.Command) {},
		},
		{
			name:   "power on",
			args:   []string{"-power", "on"},
			mutate: func(c *device.Command) { c.PowerOn = true },
		},
		{
			name: "mode and fan speed",
			args: []string{"-mode", "clothes-dryer", "-fan-speed", "high"},
			mutate: func(c *device.Command) {
				c.Mode = device.ModeClothesDryer
				c.FanSpeed = device.FanSpeedHigh
			},
		},
		{
			name:   "target humidity",
			args:   []string{"-target-humidity", "45"},
			mutate: func(c *device.Command) { c.TargetHumidity = 45 },
		},
		{
			name: "all switches",
			args: []string{"-anion", "on", "-water-pump", "on", "-oscillating", "on", "-child-lock", "off"},
			mutate: func(c *device.Command) {
				c.AnionOn = true
				c.WaterPumpOn = true
				c.OscillatingOn = true
				c.ChildLockOn = false
			},
		},
		{
			name:    "bad switch value",
			args:    []string{"-power", "yes"},
			wantErr: true,
		},
		{
			name:    "unknown mode",
			args:    []string{"-mode", "turbo"},
			wantErr: true,
		},
		{
			name:    "unknown fan speed",
			args:    []string{"-fan-speed", "warp"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, _ := newSetFlagSet()
			fs.SetOutput(io.Discard)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("Parse(%v) error = %v", tt.args, err)
			}

			got := device.NewCommand()
			err := applyCommandFlags(fs, got)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("applyCommandFlags(%v) should fail", tt.args)
				}
				return
			}
			if err != nil {
				t.Fatalf("applyCommandFlags(%v) error = %v", tt.args, err)
			}

			want := device.NewCommand()
			tt.mutate(want)
			if *got != *want {
				t.Errorf("applyCommandFlags(%v) = %+v, want %+v", tt.args, got, want)
			}
		})
	}
}

// TestApplyCommandFlagsKeepsDerivedFields verifies that fields derived
// from the device's current state survive a partial set.
func TestApplyCommandFlagsKeepsDerivedFields(t *testing.T) {
	state := &device.State{
		PowerOn:        true,
		Mode:           device.ModeAuto,
		FanSpeed:       device.FanSpeedHigh,
		TargetHumidity: 45,
		ChildLockOn:    true,
	}
	command := state.ToCommand()

	fs, _ := newSetFlagSet()
	if err := fs.Parse([]string{"-anion", "on"}); err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	if err := applyCommandFlags(fs, command); err != nil {
		t.Fatalf("applyCommandFlags error = %v", err)
	}

	if !command.AnionOn {
		t.Error("AnionOn = false, want true from flag")
	}
	if !command.PowerOn || command.Mode != device.ModeAuto ||
		command.FanSpeed != device.FanSpeedHigh || command.TargetHumidity != 45 ||
		!command.ChildLockOn {
		t.Errorf("derived fields changed: %+v", command)
	}
}

// TestParseFlagsHelp verifies -h maps to a clean exit, not an error.
func TestParseFlagsHelp(t *testing.T) {
	fs, _ := newSetFlagSet()
	fs.SetOutput(io.Discard)

	help, err := parseFlags(fs, []string{"-h"})
	if err != nil {
		t.Fatalf("parseFlags(-h) error = %v", err)
	}
	if !help {
		t.Error("parseFlags(-h) help = false, want true")
	}

	fs2, _ := newSetFlagSet()
	fs2.SetOutput(io.Discard)
	help, err = parseFlags(fs2, []string{"-no-such-flag"})
	if err == nil {
		t.Error("parseFlags(-no-such-flag) should fail")
	}
	if help {
		t.Error("parseFlags(-no-such-flag) help = true, want false")
	}
}

// TestNoArgs verifies stray arguments are rejected.
func TestNoArgs(t *testing.T) {
	if err := noArgs("devices", nil); err != nil {
		t.Errorf("noArgs(devices) error = %v", err)
	}
	err := noArgs("devices", []string{"extra"})
	if err == nil || !strings.Contains(err.Error(), "devices") {
		t.Errorf("noArgs(devices, extra) error = %v, want command name", err)
	}
}

// TestPrintDeviceState verifies the state rendering line by line.
func TestPrintDeviceState(t *testing.T) {
	state := &device.State{
		PowerOn:                true,
		Mode:                   device.ModeAuto,
		FanSpeed:               device.FanSpeedMiddle,
		TargetHumidity:         55,
		EnvironmentTemperature: 23,
		EnvironmentHumidity:    61,
		WaterPumpOn:            true,
		WaterTankFull:          true,
	}

	var buf bytes.Buffer
	printDeviceState(&buf, state)

	want := `  Power: On
  Mode: auto
  Fan Speed: middle
  Target Humidity: 55%
  Current Humidity: 61%
  Current Temperature: 23°C
  Anion: Off
  Water Pump: On
  Oscillating: Off
  Child Lock: Off
  Water Tank Full: Yes
  Defrosting: No
`
	if got := buf.String(); got != want {
		t.Errorf("printDeviceState() =\n%s\nwant\n%s", got, want)
	}
}
