package emath

import "math"

// Some functions that only operate on basic types, that are useful

// https://www.sjbrown.co.uk/posts/gamma-correct-rendering/ - "linear RGB to sRGB"
// Each channel in `v` is assumed to be in the range [0,1]
func GammaExpand_sRGB(v Vec3) Vec3 {
	return Vec3{
		GammaExpand_F64(v[0]),
		GammaExpand_F64(v[1]),
		GammaExpand_F64(v[2]),
	}
}

func GammaExpand_F64(f float64) float64 {
	if f <= 0.0031308 {
		return 12.92 * f
	}
	return 1.055 * math.Pow(f, 1.0/2.4) - 0.055
}

func Clamp(f, min, max float64) float64 {
	if f < min { return min }
	if f > max { return max }
	return f
}

// RoundToStep rounds f to the nearest multiple of step (half away from zero).
func RoundToStep(f, step float64) float64 {
	if step <= 0.0 { return f }
	return math.Round(f/step) * step
}

// Stops returns how many stops `to` is above `from`, i.e. log2(to/from)
func Stops(from, to float64) float64 {
	return math.Log2(to / from)
}
