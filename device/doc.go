// Package device implements the canonical state and command model for Deye
// humidifier and dehumidifier appliances, together with codecs for both
// vendor wire formats.
//
// # Platforms
//
// Deye ships two device generations that speak different dialects:
//
//   - Classic: the appliance publishes a hex-encoded binary frame and
//     accepts a 10-byte binary command frame over MQTT.
//   - Fog: the appliance reports and accepts a flat JSON property map
//     ("thing properties") routed through the vendor cloud.
//
// Both dialects decode into the same State type and both are derived from
// the same Command type, so callers never branch on the platform:
//
//	state, err := device.ParseClassicState(payload)
//	if err != nil {
//	    return err
//	}
//	cmd := state.ToCommand()
//	cmd.TargetHumidity = 55
//	publish(cmd.Bytes()) // or cmd.FogProperties() on the Fog platform
//
// # State Frames
//
// The Classic state frame layout (decoded bytes, minimum 18; appliances
// observed in the field send 22):
//
//	Byte 0-1:  Header (not validated)
//	Byte 2-3:  State flags, big-endian (see StateFlag)
//	Byte 4:    Fan speed (high nibble) | mode (low nibble)
//	Byte 5:    Target humidity, percent
//	Byte 14:   Coil temperature + 40 (diagnostic)
//	Byte 15:   Ambient temperature + 40
//	Byte 16:   Ambient humidity, percent
//	Byte 17:   Exhaust temperature + 40 (diagnostic)
//
// Diagnostic readings are parsed but deliberately kept out of State
// equality and command derivation; they are not part of the appliance's
// controllable surface.
//
// # Product Capabilities
//
// Not every product supports every mode, speed, or switch.
// ProductFeatureConfig returns the capability set for a product ID so
// integrations can hide controls the hardware lacks.
package device
