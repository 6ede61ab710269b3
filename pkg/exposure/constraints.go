package exposure

import(
	"errors"
	"fmt"
	"math"
)

var ErrInvalidConstraints = errors.New("invalid exposure constraints")

// Constraints are the physical limits of the camera and lens, plus how
// finely the target EV gets quantized.
type Constraints struct {
	ISOMin             float64  `yaml:"isomin"`           // the base ISO
	ISOMax             float64  `yaml:"isomax"`
	ShutterMin         float64  `yaml:"shuttermin"`       // seconds
	ShutterMax         float64  `yaml:"shuttermax"`
	ApertureMin        float64  `yaml:"aperturemin"`      // f-number; the widest opening
	ApertureMax        float64  `yaml:"aperturemax"`
	QuantizationStep   float64  `yaml:"quantizationstep"` // in EV; 1/3 is third-stops
}

func DefaultConstraints() Constraints {
	return Constraints{
		ISOMin:           100,
		ISOMax:           6400,
		ShutterMin:       1.0/8000.0,
		ShutterMax:       30,
		ApertureMin:      1.4,
		ApertureMax:      22,
		QuantizationStep: 1.0/3.0,
	}
}

// DefaultBase is the reference exposure when nothing better is known:
// the sunny-16 rule's neighbour for an overcast day.
func DefaultBase() Settings {
	return Settings{ShutterSeconds: 1.0/125.0, Aperture: 8, ISO: 100}
}

func (c Constraints)Validate() error {
	for name, v := range map[string]float64{
		"isomin": c.ISOMin, "isomax": c.ISOMax,
		"shuttermin": c.ShutterMin, "shuttermax": c.ShutterMax,
		"aperturemin": c.ApertureMin, "aperturemax": c.ApertureMax,
		"quantizationstep": c.QuantizationStep,
	} {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s=%f must be > 0", ErrInvalidConstraints, name, v)
		}
	}

	switch {
	case c.ISOMax < c.ISOMin:
		return fmt.Errorf("%w: isomax %.0f < base iso %.0f", ErrInvalidConstraints, c.ISOMax, c.ISOMin)
	case c.ShutterMax < c.ShutterMin:
		return fmt.Errorf("%w: shuttermax %f < shuttermin %f", ErrInvalidConstraints, c.ShutterMax, c.ShutterMin)
	case c.ApertureMax < c.ApertureMin:
		return fmt.Errorf("%w: aperturemax %.1f < aperturemin %.1f", ErrInvalidConstraints, c.ApertureMax, c.ApertureMin)
	}
	return nil
}

// Admits checks that the base settings can actually be dialled in
func (c Constraints)Admits(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	const tol = 1e-9
	switch {
	case s.ISO < c.ISOMin*(1-tol) || s.ISO > c.ISOMax*(1+tol):
		return fmt.Errorf("%w: base ISO%.0f outside [%.0f,%.0f]", ErrInvalidConstraints, s.ISO, c.ISOMin, c.ISOMax)
	case s.ShutterSeconds < c.ShutterMin*(1-tol) || s.ShutterSeconds > c.ShutterMax*(1+tol):
		return fmt.Errorf("%w: base shutter %fs outside [%f,%f]", ErrInvalidConstraints, s.ShutterSeconds, c.ShutterMin, c.ShutterMax)
	case s.Aperture < c.ApertureMin*(1-tol) || s.Aperture > c.ApertureMax*(1+tol):
		return fmt.Errorf("%w: base f/%.1f outside [%.1f,%.1f]", ErrInvalidConstraints, s.Aperture, c.ApertureMin, c.ApertureMax)
	}
	return nil
}

// evRange is the span of each parameter, in stops relative to base
// (positive is more light)
type evRange struct {
	Min, Max float64
}

func (r evRange)clamp(v float64) float64 { return math.Max(r.Min, math.Min(r.Max, v)) }

func (c Constraints)shutterRange(base Settings) evRange {
	return evRange{math.Log2(c.ShutterMin / base.ShutterSeconds), math.Log2(c.ShutterMax / base.ShutterSeconds)}
}

// A wider aperture (smaller f-number) lets in more light; light goes
// with the square of 1/N.
func (c Constraints)apertureRange(base Settings) evRange {
	return evRange{2 * math.Log2(base.Aperture / c.ApertureMax), 2 * math.Log2(base.Aperture / c.ApertureMin)}
}

func (c Constraints)isoRange(base Settings) evRange {
	return evRange{math.Log2(c.ISOMin / base.ISO), math.Log2(c.ISOMax / base.ISO)}
}

// EVRange is the total exposure change achievable from base
func (c Constraints)EVRange(base Settings) (float64, float64) {
	s, a, i := c.shutterRange(base), c.apertureRange(base), c.isoRange(base)
	return s.Min + a.Min + i.Min, s.Max + a.Max + i.Max
}
