// Package color implements the integer HSB to RGB conversion used by the
// output stage, plus the raw-sensor-to-domain mappings for the dial and the
// ambient light sensor.
package color

// Domain boundaries for the perceptual color model.
const (
	HueMax        = 359
	SaturationMax = 255
	BrightnessMax = 255
)

// RawSensorMax is the top of the analog input range (12-bit ADC).
const RawSensorMax = 4095

// Width of one sector of the hue wheel, in degrees.
const sectorWidth = 60

// RGB is a device color triple, channel order red/green/blue.
type RGB struct {
	R uint8
	G uint8
	B uint8
}

// HSBToRGB converts a hue/saturation/brightness triple to RGB using the
// six-sector decomposition of the hue wheel. Hue must already be clamped to
// [0,359]; saturation and brightness to [0,255]. All arithmetic is integer
// and truncating.
func HSBToRGB(hue, saturation, brightness int) RGB {
	if saturation == 0 {
		// Achromatic: all channels carry brightness.
		v := uint8(brightness)
		return RGB{R: v, G: v, B: v}
	}

	sector := hue / sectorWidth
	offset := hue % sectorWidth

	base := (BrightnessMax - saturation) * brightness / BrightnessMax
	up := base + (brightness-base)*offset/sectorWidth
	down := base + (brightness-base)*(sectorWidth-offset)/sectorWidth

	var r, g, b int
	switch sector {
	case 0: // red -> yellow
		r, g, b = brightness, up, base
	case 1: // yellow -> green
		r, g, b = down, brightness, base
	case 2: // green -> cyan
		r, g, b = base, brightness, up
	case 3: // cyan -> blue
		r, g, b = base, down, brightness
	case 4: // blue -> magenta
		r, g, b = up, base, brightness
	case 5: // magenta -> red
		r, g, b = brightness, base, down
	}

	return RGB{R: uint8(r), G: uint8(g), B: uint8(b)}
}

// SensorToBrightness maps a raw analog reading onto [0,255]. When inverted
// is true the result is complemented, so a brighter room yields a dimmer
// output. Readings above RawSensorMax clamp, they never wrap.
func SensorToBrightness(raw int, inverted bool) int {
	v := Clamp(raw*BrightnessMax/RawSensorMax, 0, BrightnessMax)
	if inverted {
		return BrightnessMax - v
	}
	return v
}

// SensorToHue maps a raw analog reading onto the hue wheel [0,359].
func SensorToHue(raw int) int {
	return Clamp(raw*HueMax/RawSensorMax, 0, HueMax)
}

// ClampHue saturates a hue candidate to [0,359].
func ClampHue(hue int) int {
	return Clamp(hue, 0, HueMax)
}

// Clamp saturates v to [min, max].
func Clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
