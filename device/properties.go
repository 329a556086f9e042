package device

import "fmt"

// Properties is the flat key/value map the Fog platform uses for thing
// properties. Values decoded from JSON arrive as float64; the accessors
// below tolerate the integer types a caller may use when building maps
// by hand.
//
// The map is typed as any rather than int because the backend mixes
// nested structures (such as a "fault" object) into the same map.
type Properties map[string]any

// Fog thing-property keys shared by state parsing and command encoding.
const (
	propKeyLock               = "KeyLock"
	propMode                  = "Mode"
	propPower                 = "Power"
	propWindSpeed             = "WindSpeed"
	propSetHumidity           = "SetHumidity"
	propNegativeIon           = "NegativeIon"
	propSwingingWind          = "SwingingWind"
	propWaterPump             = "WaterPump"
	propWaterTank             = "WaterTank"
	propDemisting             = "Demisting"
	propFan                   = "Fan"
	propAmbientTemperature    = "CurrentAmbientTemperature"
	propEnvironmentalHumidity = "CurrentEnvironmentalHumidity"
	propCoilTemperature       = "CurrentCoilTemperature"
	propExhaustTemperature    = "CurrentExhaustTemperature"
)

// intValue returns the numeric value stored under key, or fallback when
// the key is absent.
func (p Properties) intValue(key string, fallback int) (int, error) {
	raw, ok := p[key]
	if !ok {
		return fallback, nil
	}
	switch v := raw.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("%w: key %q holds %T, want number", ErrInvalidProperties, key, raw)
	}
}

// propReader reads typed values out of a Properties map, remembering the
// first error so callers can check once after a run of reads.
type propReader struct {
	props Properties
	err   error
}

func (r *propReader) intValue(key string, fallback int) int {
	if r.err != nil {
		return fallback
	}
	v, err := r.props.intValue(key, fallback)
	if err != nil {
		r.err = err
		return fallback
	}
	return v
}

// boolValue treats any non-zero numeric value as true. Absent keys are
// false.
func (r *propReader) boolValue(key string) bool {
	return r.intValue(key, 0) != 0
}
