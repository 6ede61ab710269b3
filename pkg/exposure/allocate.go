package exposure

import(
	"fmt"
	"math"
	"strings"

	"github.com/abworrall/exposurelab/pkg/emath"
)

// A Priority decides which parameter soaks up the exposure change first
type Priority string

const(
	PriorityShutter  Priority = "shutter"
	PriorityAperture Priority = "aperture"
	PriorityISO      Priority = "iso"
	PriorityBalanced Priority = "balanced"
)

var Priorities = []Priority{PriorityShutter, PriorityAperture, PriorityISO, PriorityBalanced}

func ParsePriority(s string) (Priority, error) {
	for _, p := range Priorities {
		if string(p) == strings.ToLower(s) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: no allocation priority named '%s', wanted %v", ErrInvalidConstraints, s, Priorities)
}

// The names logged when a bound gets hit
const(
	HitEVMin        = "ev_min"
	HitEVMax        = "ev_max"
	HitShutterMin   = "shutter_min"
	HitShutterMax   = "shutter_max"
	HitApertureMin  = "aperture_min"
	HitApertureMax  = "aperture_max"
	HitISOMin       = "iso_min"
	HitISOMax       = "iso_max"
)

// Contributions are how many stops each parameter adds, relative to
// the base settings
type Contributions struct {
	Shutter   float64  `yaml:"shutter"`
	Aperture  float64  `yaml:"aperture"`
	ISO       float64  `yaml:"iso"`
}

func (c Contributions)Total() float64 { return c.Shutter + c.Aperture + c.ISO }

func (c Contributions)String() string {
	return fmt.Sprintf("shutter %+.2f, aperture %+.2f, iso %+.2f (= %+.2f)", c.Shutter, c.Aperture, c.ISO, c.Total())
}

// The AllocationLog explains how the target EV was split up, and where
// the camera's limits got in the way. The achieved EV can fall short of
// the target; Hits says why.
type AllocationLog struct {
	Priority      Priority        `yaml:"priority"`
	Base          Settings        `yaml:"base"`
	RequestedEV   float64         `yaml:"requestedev"`
	ClampedEV     float64         `yaml:"clampedev"`
	QuantizedEV   float64         `yaml:"quantizedev"`
	Planned       Contributions   `yaml:"planned"`
	Achieved      Contributions   `yaml:"achieved"`
	AchievedEV    float64         `yaml:"achievedev"`
	Shortfall     float64         `yaml:"shortfall"`   // QuantizedEV - AchievedEV
	Hits        []string          `yaml:"hits"`
}

func (l AllocationLog)Hit(name string) bool {
	for _, h := range l.Hits {
		if h == name { return true }
	}
	return false
}

func (l *AllocationLog)hit(name string) {
	if !l.Hit(name) {
		l.Hits = append(l.Hits, name)
	}
}

func (l AllocationLog)String() string {
	str := fmt.Sprintf("allocation (%s priority) from base %s\n", l.Priority, l.Base)
	str += fmt.Sprintf("  target EV %+.2f, clamped %+.2f, quantized %+.2f\n", l.RequestedEV, l.ClampedEV, l.QuantizedEV)
	str += fmt.Sprintf("  planned : %s\n", l.Planned)
	str += fmt.Sprintf("  achieved: %s\n", l.Achieved)
	str += fmt.Sprintf("  shortfall %+.2f EV", l.Shortfall)
	if len(l.Hits) > 0 {
		str += fmt.Sprintf(", limits hit: %s", strings.Join(l.Hits, ", "))
	}
	return str + "\n"
}

// Allocate spreads a target exposure change (in stops, relative to the
// base settings; positive means more light) across shutter, aperture
// and ISO. The target is clamped to what the constraints allow and
// quantized; then it is split according to the priority, and each part
// is turned into a physical setting, clamped, and snapped to a marked
// value. Same inputs, same outputs.
func Allocate(targetEV float64, base Settings, c Constraints, p Priority) (Settings, AllocationLog, error) {
	l := AllocationLog{Priority: p, Base: base, RequestedEV: targetEV, Hits: []string{}}

	if math.IsNaN(targetEV) || math.IsInf(targetEV, 0) {
		return Settings{}, AllocationLog{}, fmt.Errorf("%w: target EV %f", ErrInvalidConstraints, targetEV)
	}
	if err := c.Validate(); err != nil {
		return Settings{}, AllocationLog{}, err
	}
	if err := c.Admits(base); err != nil {
		return Settings{}, AllocationLog{}, err
	}
	if _, err := ParsePriority(string(p)); err != nil {
		return Settings{}, AllocationLog{}, err
	}

	// 1. Clamp to what is achievable at all
	evMin, evMax := c.EVRange(base)
	l.ClampedEV = targetEV
	if targetEV > evMax {
		l.ClampedEV = evMax
		l.hit(HitEVMax)
	} else if targetEV < evMin {
		l.ClampedEV = evMin
		l.hit(HitEVMin)
	}

	// 2. Quantize; if rounding pushed us out of range, step back in.
	// One step back always lands inside, since Admits(base) puts 0 in [evMin,evMax].
	q := emath.RoundToStep(l.ClampedEV, c.QuantizationStep)
	if q > evMax + 1e-9 { q -= c.QuantizationStep }
	if q < evMin - 1e-9 { q += c.QuantizationStep }
	l.QuantizedEV = q

	// 3. Split according to priority
	sr, ar := c.shutterRange(base), c.apertureRange(base)
	switch p {
	case PriorityShutter:
		l.Planned.Shutter = sr.clamp(q)
		if l.Planned.Shutter < q {
			l.hit(HitShutterMax)
		} else if l.Planned.Shutter > q {
			l.hit(HitShutterMin)
		}
		rest := q - l.Planned.Shutter
		l.Planned.Aperture = 0.6 * rest
		l.Planned.ISO = 0.4 * rest

	case PriorityAperture:
		l.Planned.Aperture = ar.clamp(q)
		if l.Planned.Aperture < q {
			l.hit(HitApertureMin) // wanted it wider than the lens opens
		} else if l.Planned.Aperture > q {
			l.hit(HitApertureMax)
		}
		rest := q - l.Planned.Aperture
		l.Planned.Shutter = 0.6 * rest
		l.Planned.ISO = 0.4 * rest

	case PriorityISO:
		l.Planned.Shutter = q / 2.0
		l.Planned.Aperture = q / 2.0

	case PriorityBalanced:
		l.Planned.Shutter = q / 3.0
		l.Planned.Aperture = q / 3.0
		l.Planned.ISO = q / 3.0
	}

	// 4. Into physical units, clamped and snapped
	s := Settings{
		ShutterSeconds: l.clampPhysical(base.ShutterSeconds * math.Exp2(l.Planned.Shutter),
			c.ShutterMin, c.ShutterMax, HitShutterMin, HitShutterMax),
		Aperture: l.clampPhysical(base.Aperture / math.Exp2(l.Planned.Aperture / 2.0),
			c.ApertureMin, c.ApertureMax, HitApertureMin, HitApertureMax),
		ISO: l.clampPhysical(base.ISO * math.Exp2(l.Planned.ISO),
			c.ISOMin, c.ISOMax, HitISOMin, HitISOMax),
	}

	s.ShutterSeconds = snapToStandard(s.ShutterSeconds, c.ShutterMin, c.ShutterMax, standardShutterSpeeds())
	s.Aperture       = snapToStandard(s.Aperture, c.ApertureMin, c.ApertureMax, standardApertures())
	s.ISO            = snapToStandard(s.ISO, c.ISOMin, c.ISOMax, standardISOs())

	l.Achieved = Contributions{
		Shutter:  emath.Stops(base.ShutterSeconds, s.ShutterSeconds),
		Aperture: 2 * emath.Stops(s.Aperture, base.Aperture),
		ISO:      emath.Stops(base.ISO, s.ISO),
	}
	l.AchievedEV = l.Achieved.Total()
	l.Shortfall  = l.QuantizedEV - l.AchievedEV

	return s, l, nil
}

// clampPhysical keeps v inside [min,max], logging the bound it hit.
// Values within rounding error of a bound don't count as a hit.
func (l *AllocationLog)clampPhysical(v, min, max float64, minName, maxName string) float64 {
	const tol = 1e-9
	if v > max*(1+tol) {
		l.hit(maxName)
		return max
	}
	if v < min*(1-tol) {
		l.hit(minName)
		return min
	}
	return math.Max(min, math.Min(max, v))
}
