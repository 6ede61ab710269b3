// Package exposure deals in physical camera settings: shutter speed,
// aperture and ISO, and how they add up to an exposure value (EV).
package exposure

import (
	"fmt"
	"math"
)

type rat64 [2]int64

func (r rat64)Float() float64 { return float64(r[0]) / float64(r[1]) }

// Settings are the three physical exposure parameters
type Settings struct {
	ShutterSeconds  float64  `yaml:"shutterseconds"`
	Aperture        float64  `yaml:"aperture"`  // f-number; f/5.6 is 5.6
	ISO             float64  `yaml:"iso"`
}

var(
	// Third-stop shutter speeds, as marked on camera dials. Like the
	// whole-stop sequence, this isn't quite mathematical.
	shutterSpeeds = []rat64{
		rat64{1, 8000}, rat64{1, 6400}, rat64{1, 5000},
		rat64{1, 4000}, rat64{1, 3200}, rat64{1, 2500},
		rat64{1, 2000}, rat64{1, 1600}, rat64{1, 1250},
		rat64{1, 1000}, rat64{1,  800}, rat64{1,  640},
		rat64{1,  500}, rat64{1,  400}, rat64{1,  320},
		rat64{1,  250}, rat64{1,  200}, rat64{1,  160},
		rat64{1,  125}, rat64{1,  100}, rat64{1,   80},
		rat64{1,   60}, rat64{1,   50}, rat64{1,   40},
		rat64{1,   30}, rat64{1,   25}, rat64{1,   20},
		rat64{1,   15}, rat64{1,   13}, rat64{1,   10},
		rat64{1,    8}, rat64{1,    6}, rat64{1,    5},
		rat64{1,    4}, rat64{3,   10}, rat64{4,   10},
		rat64{1,    2}, rat64{6,   10}, rat64{8,   10},
		rat64{1,    1}, rat64{13,  10}, rat64{16,  10},
		rat64{2,    1}, rat64{25,  10}, rat64{32,  10},
		rat64{4,    1}, rat64{5,    1}, rat64{6,    1},
		rat64{8,    1}, rat64{10,   1}, rat64{13,   1},
		rat64{15,   1}, rat64{20,   1}, rat64{25,   1},
		rat64{30,   1},
	}

	// Third-stop f-numbers from f/1.0 to f/32, as x10 int values
	apertureX10FStops = []int{
		10,  11,  12,  14,  16,  18,  20,  22,  25,  28,  32,
		35,  40,  45,  50,  56,  63,  71,  80,  90, 100, 110,
		130, 140, 160, 180, 200, 220, 250, 290, 320,
	}

	isoSpeeds = []int{
		50, 64, 80, 100, 125, 160, 200, 250, 320, 400, 500, 640,
		800, 1000, 1250, 1600, 2000, 2500, 3200, 4000, 5000, 6400,
		8000, 10000, 12800, 16000, 20000, 25600, 32000, 40000, 51200,
		64000, 80000, 102400,
	}
)

func (s Settings)String() string {
	str := fmt.Sprintf("f/%.1f", s.Aperture)
	if s.ShutterSeconds < 1.0 && s.ShutterSeconds > 0 {
		str += fmt.Sprintf(", 1/%.0f", 1.0 / s.ShutterSeconds)
	} else {
		str += fmt.Sprintf(", %.1fs", s.ShutterSeconds)
	}
	str += fmt.Sprintf(", ISO%.0f", s.ISO)
	return str + fmt.Sprintf(", EV100 %5.2f", s.EV100())
}

// EV100 is the standard exposure value, normalized to ISO 100:
// https://en.wikipedia.org/wiki/Exposure_value. Higher EVs let in less
// light (brighter scenes).
func (s Settings)EV100() float64 {
	return math.Log2(s.Aperture * s.Aperture / s.ShutterSeconds) - math.Log2(s.ISO / 100.0)
}

// StopsFrom is how many stops brighter an image taken with these
// settings would be, compared to one taken with the base settings.
func (s Settings)StopsFrom(base Settings) float64 {
	return base.EV100() - s.EV100()
}

func (s Settings)Validate() error {
	if s.ShutterSeconds <= 0 || s.Aperture <= 0 || s.ISO <= 0 {
		return fmt.Errorf("%w: settings (%v) must all be > 0", ErrInvalidConstraints, [3]float64{s.ShutterSeconds, s.Aperture, s.ISO})
	}
	return nil
}

func standardShutterSpeeds() []float64 {
	ret := make([]float64, len(shutterSpeeds))
	for i, ss := range shutterSpeeds {
		ret[i] = ss.Float()
	}
	return ret
}

func standardApertures() []float64 {
	ret := make([]float64, len(apertureX10FStops))
	for i, ap := range apertureX10FStops {
		ret[i] = float64(ap) / 10.0
	}
	return ret
}

func standardISOs() []float64 {
	ret := make([]float64, len(isoSpeeds))
	for i, iso := range isoSpeeds {
		ret[i] = float64(iso)
	}
	return ret
}

// snapToStandard finds the marked value closest to v (in stops) that
// lies within [min,max]. If the table has nothing in range, the value
// is just clamped.
func snapToStandard(v, min, max float64, table []float64) float64 {
	const tol = 1e-9

	best, bestDist := math.NaN(), math.Inf(1)
	for _, t := range table {
		if t < min*(1-tol) || t > max*(1+tol) {
			continue
		}
		if d := math.Abs(math.Log2(t / v)); d < bestDist {
			best, bestDist = t, d
		}
	}
	if math.IsNaN(best) {
		return math.Max(min, math.Min(max, v))
	}
	return best
}

// ClosestShutterSpeed rounds a time to the nearest marked speed
func ClosestShutterSpeed(secs float64) float64 {
	t := standardShutterSpeeds()
	return snapToStandard(secs, t[0], t[len(t)-1], t)
}

func ClosestAperture(fnum float64) float64 {
	t := standardApertures()
	return snapToStandard(fnum, t[0], t[len(t)-1], t)
}

func ClosestISO(iso float64) float64 {
	t := standardISOs()
	return snapToStandard(iso, t[0], t[len(t)-1], t)
}
