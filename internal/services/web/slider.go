package web

import "math"

// Slider bounds for the size_position request field. Position 0 maps to one
// KiB and the maximum position to 100 MiB.
const (
	SliderMaxPosition = 500
	sliderMaxKiB      = 102_400
	kibibyte          = int64(1024)
)

// sliderExponent shapes the curve so small positions stay fine-grained while
// the upper range covers whole repositories.
const sliderExponent = 1.5

// SliderPositionToBytes converts a slider position into a file size threshold
// in bytes following a logarithmic curve. Out-of-range positions clamp to the
// nearest bound.
func SliderPositionToBytes(position int) int64 {
	if position <= 0 {
		return kibibyte
	}
	if position >= SliderMaxPosition {
		return sliderMaxKiB * kibibyte
	}
	fraction := math.Pow(float64(position)/float64(SliderMaxPosition), sliderExponent)
	sizeKiB := math.Round(math.Exp(fraction * math.Log(sliderMaxKiB)))
	return int64(sizeKiB) * kibibyte
}
