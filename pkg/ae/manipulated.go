package ae

import(
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/abworrall/exposurelab/pkg/ecolor"
	"github.com/abworrall/exposurelab/pkg/emath"
	"github.com/abworrall/exposurelab/pkg/metering"
)

// A Scene is everything about the input that doesn't depend on the EV
// being considered: the base luminance, the metering weights, and which
// pixels are part of the picture at all.
type Scene struct {
	Luminance   emath.FloatGrid
	Meter       emath.FloatGrid
	Valid     []bool

	sorted    []float64   // luminance of the valid pixels, ascending; for the fence quartiles
}

func NewScene(img *ecolor.LinearImage, meter emath.FloatGrid) (Scene, error) {
	lum := metering.ComputeLuminance(img)
	if !lum.SameShape(meter) {
		return Scene{}, fmt.Errorf("%w: weight map is %dx%d, image is %dx%d", ErrInvalidParameter,
			meter.Dx(), meter.Dy(), lum.Dx(), lum.Dy())
	}

	sc := Scene{
		Luminance: lum,
		Meter:     meter,
		Valid:     make([]bool, lum.Len()),
	}

	for y:=0; y<lum.Dy(); y++ {
		for x:=0; x<lum.Dx(); x++ {
			_, _, _, a := img.RGBAAt(x + img.Rect.Min.X, y + img.Rect.Min.Y)
			v := lum.Get(x, y)
			if a > 0 && !math.IsNaN(v) && !math.IsInf(v, 0) {
				sc.Valid[y*lum.Dx() + x] = true
				sc.sorted = append(sc.sorted, v)
			}
		}
	}
	sort.Float64s(sc.sorted)

	return sc, nil
}

// A Fence is the IQR outlier fence; luminances outside [Low,High]
// don't contribute to the manipulated histogram.
type Fence struct {
	Q1, Q3      float64
	Low, High   float64
}

func (f Fence)Contains(v float64) bool { return v >= f.Low && v <= f.High }

// fence works out the IQR fence at a given exposure gain. Scaling by a
// positive gain doesn't reorder the pixels, so the quartiles of the
// scaled luminance are the base quartiles times the gain.
func (sc Scene)fence(gain, k float64) Fence {
	if len(sc.sorted) == 0 {
		return Fence{Low: math.Inf(1), High: math.Inf(-1)}
	}
	q1 := stat.Quantile(0.25, stat.Empirical, sc.sorted, nil) * gain
	q3 := stat.Quantile(0.75, stat.Empirical, sc.sorted, nil) * gain
	iqr := q3 - q1
	return Fence{Q1:q1, Q3:q3, Low: q1 - k*iqr, High: q3 + k*iqr}
}

// A Manipulated histogram is the AE's view of the scene at one EV: the
// luminance scaled by 2^EV, outliers fenced off, pixels reweighted by
// the algorithm, and the result pushed through a simple sensor model
// (crush to black at the shadow threshold, saturate at 1.0).
type Manipulated struct {
	EV            float64
	Luminance     emath.FloatGrid     // scaled, not clamped
	Sensor        emath.FloatGrid     // what the sensor would record
	Weights       emath.FloatGrid     // algorithm weights; zero outside the fence
	Fence
	Histogram     metering.Histogram
	Clipping      metering.Clipping
}

func BuildManipulated(sc Scene, ev float64, algo Algorithm, cfg Config) Manipulated {
	gain := math.Pow(2.0, ev)
	m := Manipulated{
		EV:        ev,
		Luminance: sc.Luminance.Scaled(gain),
		Fence:     sc.fence(gain, cfg.FenceK),
	}

	lv := m.Luminance.Values()
	inRange := make([]bool, len(lv))
	for i, v := range lv {
		inRange[i] = sc.Valid[i] && m.Fence.Contains(v)
	}

	m.Weights = m.Luminance.NewFromThis()
	copy(m.Weights.Values(), algo.Weigh(lv, sc.Meter.Values(), inRange))

	m.Sensor = m.Luminance.NewFromThis()
	sv := m.Sensor.Values()
	for i, v := range lv {
		sv[i] = sensorResponse(v, cfg.ShadowThreshold)
	}

	m.Histogram = metering.ComputeWeightedHistogram(m.Sensor, m.Weights, cfg.Bins)
	m.Clipping  = metering.ComputeClipping(m.Luminance, m.Weights, cfg.ShadowThreshold)

	return m
}

func sensorResponse(v, epsilon float64) float64 {
	if v <= epsilon { return 0.0 }
	if v >= 1.0     { return 1.0 }
	return v
}
