package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/deye-community/go-deye/cloudapi"
	"github.com/deye-community/go-deye/device"
	"github.com/deye-community/go-deye/mqtt"
	"github.com/deye-community/go-deye/statelog"
)

// runDevices lists every appliance bound to the account.
func (a *app) runDevices(ctx context.Context, args []string) error {
	if err := noArgs("devices", args); err != nil {
		return err
	}

	api, err := a.newAPI(ctx)
	if err != nil {
		return err
	}

	devices, err := api.DeviceList(ctx)
	if err != nil {
		return fmt.Errorf("listing devices: %w", err)
	}

	fmt.Fprintf(a.stdout, "Found %d device(s):\n", len(devices))
	for i, d := range devices {
		status := "Offline"
		if d.Online {
			status = "Online"
		}
		fmt.Fprintf(a.stdout, "%d. %s (%s) - %s\n", i+1, d.DeviceName, d.DeviceID, status)
		fmt.Fprintf(a.stdout, "   Product: %s (%s)\n", d.ProductName, d.ProductID)
		fmt.Fprintf(a.stdout, "   MAC: %s\n", d.MAC)
		fmt.Fprintf(a.stdout, "   Platform: %s\n", d.Platform)
		fmt.Fprintln(a.stdout)
	}
	return nil
}

// runProducts lists the vendor product catalog.
func (a *app) runProducts(ctx context.Context, args []string) error {
	if err := noArgs("products", args); err != nil {
		return err
	}

	api, err := a.newAPI(ctx)
	if err != nil {
		return err
	}

	productTypes, err := api.ProductList(ctx)
	if err != nil {
		return fmt.Errorf("listing products: %w", err)
	}

	fmt.Fprintf(a.stdout, "Found %d product type(s):\n", len(productTypes))
	for _, pt := range productTypes {
		fmt.Fprintf(a.stdout, "\n%s (%s):\n", pt.TypeName, pt.Type)
		fmt.Fprintf(a.stdout, "  Total products: %d\n", len(pt.Products))

		for i, p := range pt.Products {
			fmt.Fprintf(a.stdout, "  %d. %s (%s)\n", i+1, p.Name, p.ProductID)
			fmt.Fprintf(a.stdout, "     Model: %s\n", p.Model)
			fmt.Fprintf(a.stdout, "     Brand: %s\n", p.Brand)
			status := "Active"
			if p.Status == 1 {
				status = "Inactive"
			}
			fmt.Fprintf(a.stdout, "     Status: %s\n", status)
			fmt.Fprintf(a.stdout, "     Config Type: %d\n", p.ConfigType)
			if p.ConfigGuide != "" {
				fmt.Fprintf(a.stdout, "     Config Guide: %s\n", p.ConfigGuide)
			}
			fmt.Fprintln(a.stdout)
		}
	}
	return nil
}

// runGet queries and prints the current state of one device.
func (a *app) runGet(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	deviceFlag := fs.String("device-id", "", "device to query (env DEYE_DEVICE_ID)")
	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}

	id, err := a.deviceID(*deviceFlag)
	if err != nil {
		return err
	}

	api, err := a.newAPI(ctx)
	if err != nil {
		return err
	}

	info, err := resolveDevice(ctx, api, id)
	if err != nil {
		return err
	}

	transport, err := a.connectTransport(ctx, api, info)
	if err != nil {
		return err
	}
	defer transport.Disconnect()

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	state, err := transport.QueryDeviceState(queryCtx, info.ProductID, id)
	if err != nil {
		return fmt.Errorf("querying %s (%s): %w", info.DeviceName, id, err)
	}

	fmt.Fprintf(a.stdout, "Device state for %s (%s):\n", info.DeviceName, id)
	printDeviceState(a.stdout, state)
	return nil
}

// runSet changes the state of one device.
//
// The command is derived from a fresh state snapshot so that switches
// the user did not name keep their current position.
func (a *app) runSet(ctx context.Context, args []string) error {
	fs, deviceFlag := newSetFlagSet()
	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}

	id, err := a.deviceID(*deviceFlag)
	if err != nil {
		return err
	}

	api, err := a.newAPI(ctx)
	if err != nil {
		return err
	}

	info, err := resolveDevice(ctx, api, id)
	if err != nil {
		return err
	}

	transport, err := a.connectTransport(ctx, api, info)
	if err != nil {
		return err
	}
	defer transport.Disconnect()

	queryCtx, cancelQuery := context.WithTimeout(ctx, queryTimeout)
	defer cancelQuery()

	state, err := transport.QueryDeviceState(queryCtx, info.ProductID, id)
	if err != nil {
		return fmt.Errorf("querying %s (%s): %w", info.DeviceName, id, err)
	}

	command := state.ToCommand()
	if err := applyCommandFlags(fs, command); err != nil {
		return err
	}

	publishCtx, cancelPublish := context.WithTimeout(ctx, queryTimeout)
	defer cancelPublish()

	if err := transport.PublishCommand(publishCtx, info.ProductID, id, command); err != nil {
		return fmt.Errorf("sending command to %s (%s): %w", info.DeviceName, id, err)
	}

	fmt.Fprintf(a.stdout, "Command sent to %s (%s)\n", info.DeviceName, id)
	return nil
}

// runMonitor streams state and availability changes until the context
// is cancelled, optionally recording each state to a SQLite file.
func (a *app) runMonitor(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("monitor", flag.ContinueOnError)
	deviceFlag := fs.String("device-id", "", "device to monitor (env DEYE_DEVICE_ID)")
	recordPath := fs.String("record", "", "record observed states to this SQLite file")
	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}

	id, err := a.deviceID(*deviceFlag)
	if err != nil {
		return err
	}

	path := *recordPath
	if path == "" {
		path = a.cfg.StateLog.Path
	}

	var recorder *statelog.Log
	if path != "" {
		recorder, err = statelog.Open(path)
		if err != nil {
			return fmt.Errorf("opening state log: %w", err)
		}
		defer func() {
			if closeErr := recorder.Close(); closeErr != nil {
				a.log.Error("closing state log", "error", closeErr)
			}
		}()
		a.log.Info("recording states", "path", path)
	}

	api, err := a.newAPI(ctx)
	if err != nil {
		return err
	}

	info, err := resolveDevice(ctx, api, id)
	if err != nil {
		return err
	}

	transport, err := a.connectTransport(ctx, api, info)
	if err != nil {
		return err
	}
	defer transport.Disconnect()

	unsubscribeState := transport.SubscribeStateChange(info.ProductID, id, func(state *device.State) {
		fmt.Fprintf(a.stdout, "\nState update at %s:\n", time.Now().Format("2006-01-02 15:04:05"))
		printDeviceState(a.stdout, state)

		if recorder == nil {
			return
		}
		recordCtx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := recorder.Record(recordCtx, id, state); err != nil {
			a.log.Error("recording state", "error", err)
		}
	})
	defer unsubscribeState()

	unsubscribeAvailability := transport.SubscribeAvailabilityChange(info.ProductID, id, func(available bool) {
		status := "Offline"
		if available {
			status = "Online"
		}
		fmt.Fprintf(a.stdout, "\nDevice availability changed: %s\n", status)
	})
	defer unsubscribeAvailability()

	fmt.Fprintf(a.stdout, "Monitoring %s (%s). Press Ctrl+C to stop.\n", info.DeviceName, id)
	<-ctx.Done()
	fmt.Fprintln(a.stdout, "Received exit, exiting")
	return nil
}

// runPrintToken prints the auth token for reuse in the environment.
func (a *app) runPrintToken(ctx context.Context, args []string) error {
	if err := noArgs("print-token", args); err != nil {
		return err
	}

	api, err := a.newAPI(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Authentication token: %s\n", api.AuthToken())
	fmt.Fprintln(a.stdout)
	fmt.Fprintln(a.stdout, "Export this token to avoid sending username/password with each request:")
	fmt.Fprintf(a.stdout, "DEYE_AUTH_TOKEN=%s\n", api.AuthToken())
	return nil
}

// runRefreshToken forces a token refresh and prints the replacement.
func (a *app) runRefreshToken(ctx context.Context, args []string) error {
	if err := noArgs("refresh-token", args); err != nil {
		return err
	}

	api, err := a.newAPI(ctx)
	if err != nil {
		return err
	}

	if err := api.RefreshTokenIfNearExpiry(ctx, true); err != nil {
		return fmt.Errorf("refreshing token: %w", err)
	}

	fmt.Fprintln(a.stdout, "Authentication token refreshed successfully.")
	fmt.Fprintf(a.stdout, "New token: %s\n", api.AuthToken())
	return nil
}

// runClassicMQTTInfo prints the Classic platform broker coordinates.
func (a *app) runClassicMQTTInfo(ctx context.Context, args []string) error {
	if err := noArgs("classic-mqtt", args); err != nil {
		return err
	}

	api, err := a.newAPI(ctx)
	if err != nil {
		return err
	}

	info, err := api.ClassicMQTTInfo(ctx)
	if err != nil {
		return fmt.Errorf("fetching Classic MQTT info: %w", err)
	}

	fmt.Fprintln(a.stdout, "Classic platform MQTT information:")
	fmt.Fprintf(a.stdout, "  Host: %s\n", info.Host)
	fmt.Fprintf(a.stdout, "  SSL Port: %d\n", info.SSLPort)
	fmt.Fprintf(a.stdout, "  Client ID: %s\n", info.ClientID)
	fmt.Fprintf(a.stdout, "  Username: %s\n", info.LoginName)
	fmt.Fprintf(a.stdout, "  Password: %s\n", info.Password)
	fmt.Fprintf(a.stdout, "  Endpoint: %s\n", info.Endpoint)
	return nil
}

// runFogMQTTInfo prints the Fog platform broker coordinates.
func (a *app) runFogMQTTInfo(ctx context.Context, args []string) error {
	if err := noArgs("fog-mqtt", args); err != nil {
		return err
	}

	api, err := a.newAPI(ctx)
	if err != nil {
		return err
	}

	info, err := api.FogMQTTInfo(ctx)
	if err != nil {
		return fmt.Errorf("fetching Fog MQTT info: %w", err)
	}

	fmt.Fprintln(a.stdout, "Fog platform MQTT information:")
	fmt.Fprintf(a.stdout, "  Host: %s\n", info.Host)
	fmt.Fprintf(a.stdout, "  SSL Port: %s\n", info.SSLPort)
	fmt.Fprintf(a.stdout, "  Client ID: %s\n", info.ClientID)
	fmt.Fprintf(a.stdout, "  Username: %s\n", info.Username)
	fmt.Fprintf(a.stdout, "  Password: %s\n", info.Password)
	fmt.Fprintf(a.stdout, "  Expire: %d\n", info.Expire)
	fmt.Fprintf(a.stdout, "  Subscribe Topics: %s\n", strings.Join(info.Topics.Sub, ", "))
	return nil
}

// deviceID resolves the device to operate on: flag first, then config
// (which includes the DEYE_DEVICE_ID environment variable).
func (a *app) deviceID(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if a.cfg.Device.ID != "" {
		return a.cfg.Device.ID, nil
	}
	return "", errors.New("a device id is required: pass -device-id or set DEYE_DEVICE_ID")
}

// connectTransport builds the platform transport for a device and
// connects it.
func (a *app) connectTransport(ctx context.Context, api *cloudapi.Client, info *cloudapi.DeviceInfo) (mqtt.Client, error) {
	transport, err := mqtt.NewClient(api, info.Platform)
	if err != nil {
		return nil, err
	}

	if loggable, ok := transport.(interface{ SetLogger(mqtt.Logger) }); ok {
		loggable.SetLogger(a.log.With("component", "mqtt"))
	}

	if err := transport.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connecting to broker: %w", err)
	}
	return transport, nil
}

// resolveDevice looks a device up in the account's device list.
func resolveDevice(ctx context.Context, api *cloudapi.Client, deviceID string) (*cloudapi.DeviceInfo, error) {
	devices, err := api.DeviceList(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	return findDevice(devices, deviceID)
}

// findDevice returns the entry matching deviceID.
func findDevice(devices []cloudapi.DeviceInfo, deviceID string) (*cloudapi.DeviceInfo, error) {
	for i := range devices {
		if devices[i].DeviceID == deviceID {
			return &devices[i], nil
		}
	}
	return nil, fmt.Errorf("device %s not found", deviceID)
}

// newSetFlagSet builds the flag set for the set command. Only flags the
// user actually passed are applied, so the defaults here are never
// written to a command.
func newSetFlagSet() (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	deviceFlag := fs.String("device-id", "", "device to control (env DEYE_DEVICE_ID)")
	fs.String("power", "", `power switch ("on"/"off")`)
	fs.String("mode", "", "working mode (manual, clothes-dryer, air-purifier, auto, sleep)")
	fs.String("fan-speed", "", "fan speed (low, middle, high, full)")
	fs.Int("target-humidity", 0, "target humidity percentage (30-80)")
	fs.String("anion", "", `anion switch ("on"/"off")`)
	fs.String("water-pump", "", `water pump switch ("on"/"off")`)
	fs.String("oscillating", "", `oscillating switch ("on"/"off")`)
	fs.String("child-lock", "", `child lock switch ("on"/"off")`)
	return fs, deviceFlag
}

// applyCommandFlags copies the flags the user passed onto the command,
// leaving every other field as derived from the device's current state.
func applyCommandFlags(fs *flag.FlagSet, command *device.Command) error {
	var err error
	fs.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		value := f.Value.String()
		switch f.Name {
		case "power":
			command.PowerOn, err = parseOnOff(f.Name, value)
		case "mode":
			command.Mode, err = device.ParseMode(value)
		case "fan-speed":
			command.FanSpeed, err = device.ParseFanSpeed(value)
		case "target-humidity":
			command.TargetHumidity, err = strconv.Atoi(value)
		case "anion":
			command.AnionOn, err = parseOnOff(f.Name, value)
		case "water-pump":
			command.WaterPumpOn, err = parseOnOff(f.Name, value)
		case "oscillating":
			command.OscillatingOn, err = parseOnOff(f.Name, value)
		case "child-lock":
			command.ChildLockOn, err = parseOnOff(f.Name, value)
		}
	})
	return err
}

// parseOnOff converts an "on"/"off" flag value to a bool.
func parseOnOff(name, value string) (bool, error) {
	switch value {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("-%s must be %q or %q, got %q", name, "on", "off", value)
}

// parseFlags parses a subcommand flag set, mapping the help request to
// a clean exit.
func parseFlags(fs *flag.FlagSet, args []string) (help bool, err error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

// noArgs rejects stray arguments on subcommands that take none.
func noArgs(command string, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%s takes no arguments", command)
	}
	return nil
}

// printDeviceState renders a state snapshot one field per line.
func printDeviceState(w io.Writer, state *device.State) {
	fmt.Fprintf(w, "  Power: %s\n", onOff(state.PowerOn))
	fmt.Fprintf(w, "  Mode: %s\n", state.Mode)
	fmt.Fprintf(w, "  Fan Speed: %s\n", state.FanSpeed)
	fmt.Fprintf(w, "  Target Humidity: %d%%\n", state.TargetHumidity)
	fmt.Fprintf(w, "  Current Humidity: %d%%\n", state.EnvironmentHumidity)
	fmt.Fprintf(w, "  Current Temperature: %d°C\n", state.EnvironmentTemperature)
	fmt.Fprintf(w, "  Anion: %s\n", onOff(state.AnionOn))
	fmt.Fprintf(w, "  Water Pump: %s\n", onOff(state.WaterPumpOn))
	fmt.Fprintf(w, "  Oscillating: %s\n", onOff(state.OscillatingOn))
	fmt.Fprintf(w, "  Child Lock: %s\n", onOff(state.ChildLockOn))
	fmt.Fprintf(w, "  Water Tank Full: %s\n", yesNo(state.WaterTankFull))
	fmt.Fprintf(w, "  Defrosting: %s\n", yesNo(state.Defrosting))
}

func onOff(v bool) string {
	if v {
		return "On"
	}
	return "Off"
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
