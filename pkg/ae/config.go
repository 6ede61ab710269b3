package ae

import(
	"errors"
	"fmt"
	"math"

	"github.com/abworrall/exposurelab/pkg/metering"
)

var(
	ErrInvalidParameter = errors.New("invalid AE parameter")
	ErrNoCandidates     = errors.New("no valid EV candidates")
)

// Priorities are what the AE is trying to achieve. The tolerances are
// fractions of the weighted pixel mass, not of the pixel count.
type Priorities struct {
	HighlightTolerance  float64  `yaml:"highlighttolerance"` // ηh: max fraction allowed to blow out
	ShadowTolerance     float64  `yaml:"shadowtolerance"`    // ηs: max fraction allowed to crush
	ShadowThreshold     float64  `yaml:"shadowthreshold"`    // ε:  luminance at/below this is crushed
	MidtoneTarget       float64  `yaml:"midtonetarget"`      // m:  where the median should land
}

func DefaultPriorities() Priorities {
	return Priorities{
		HighlightTolerance: 0.02,
		ShadowTolerance:    0.05,
		ShadowThreshold:    0.01,
		MidtoneTarget:      0.18,
	}
}

func (p Priorities)Validate() error {
	check := func(name string, v float64) error {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: %s=%f outside [0,1]", ErrInvalidParameter, name, v)
		}
		return nil
	}
	if err := check("highlighttolerance", p.HighlightTolerance); err != nil { return err }
	if err := check("shadowtolerance",    p.ShadowTolerance);    err != nil { return err }
	if err := check("shadowthreshold",    p.ShadowThreshold);    err != nil { return err }
	if err := check("midtonetarget",      p.MidtoneTarget);      err != nil { return err }
	return nil
}

func (p Priorities)String() string {
	return fmt.Sprintf("ηh=%.3f ηs=%.3f ε=%.4f m=%.3f",
		p.HighlightTolerance, p.ShadowTolerance, p.ShadowThreshold, p.MidtoneTarget)
}

// A Norm combines the two clip excesses into a single stage 2 penalty
type Norm string

const(
	NormL1   Norm = "l1"
	NormL2   Norm = "l2"
	NormLInf Norm = "linf"
)

var Norms = []Norm{NormL1, NormL2, NormLInf}

func ParseNorm(s string) (Norm, error) {
	for _, n := range Norms {
		if string(n) == s {
			return n, nil
		}
	}
	return "", fmt.Errorf("%w: no norm named '%s', wanted %v", ErrInvalidParameter, s, Norms)
}

func (n Norm)Combine(a, b float64) float64 {
	switch n {
	case NormL1:   return math.Abs(a) + math.Abs(b)
	case NormLInf: return math.Max(math.Abs(a), math.Abs(b))
	default:       return math.Hypot(a, b)
	}
}

// Config controls the EV sweep and how manipulated histograms are built
type Config struct {
	SweepMin     float64  `yaml:"sweepmin"`
	SweepMax     float64  `yaml:"sweepmax"`
	SweepStep    float64  `yaml:"sweepstep"`
	FenceK       float64  `yaml:"fencek"`   // IQR multiplier for the outlier fence
	Bins         int      `yaml:"bins"`
	Norm         Norm     `yaml:"norm"`

	Priorities            `yaml:"priorities"`
}

func DefaultConfig() Config {
	return Config{
		SweepMin:   -4.0,
		SweepMax:    4.0,
		SweepStep:   1.0/3.0,
		FenceK:      1.5,
		Bins:        metering.DefaultBins,
		Norm:        NormL2,
		Priorities:  DefaultPriorities(),
	}
}

func (c Config)Validate() error {
	for name, v := range map[string]float64{
		"sweepmin": c.SweepMin, "sweepmax": c.SweepMax, "sweepstep": c.SweepStep, "fencek": c.FenceK,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s=%f must be finite", ErrInvalidParameter, name, v)
		}
	}

	switch {
	case c.SweepStep <= 0:
		return fmt.Errorf("%w: sweep step %f <= 0", ErrInvalidParameter, c.SweepStep)
	case c.SweepMax < c.SweepMin:
		return fmt.Errorf("%w: sweep [%f,%f] is backwards", ErrInvalidParameter, c.SweepMin, c.SweepMax)
	case (c.SweepMax - c.SweepMin) / c.SweepStep > 10000:
		return fmt.Errorf("%w: sweep of %f stops at step %f is too many candidates", ErrInvalidParameter,
			c.SweepMax - c.SweepMin, c.SweepStep)
	case c.FenceK <= 0:
		return fmt.Errorf("%w: fence k %f <= 0", ErrInvalidParameter, c.FenceK)
	case c.Bins <= 0:
		return fmt.Errorf("%w: bins %d <= 0", ErrInvalidParameter, c.Bins)
	}
	if _, err := ParseNorm(string(c.Norm)); err != nil {
		return err
	}
	return c.Priorities.Validate()
}

// Sweep lists the candidate EVs, lowest first. Candidates are computed
// from an integer index so a 1/3 step doesn't drift.
func (c Config)Sweep() []float64 {
	n := int(math.Floor((c.SweepMax - c.SweepMin) / c.SweepStep + 1e-9))
	evs := make([]float64, 0, n+1)
	for i:=0; i<=n; i++ {
		ev := c.SweepMin + float64(i) * c.SweepStep
		evs = append(evs, math.Round(ev * 1e9) / 1e9)
	}
	return evs
}
