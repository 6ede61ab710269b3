// Package ae is the auto-exposure decision engine. It sweeps a range of
// candidate EVs over a metered scene, scores each one from its
// manipulated histogram, and picks one according to the algorithm.
package ae

import(
	"fmt"
	"math"
)

// Select runs the EV sweep and picks an EV. The returned trace explains
// the decision. It fails with ErrNoCandidates if no EV in the sweep has
// any weighted mass to judge (e.g. every pixel is transparent or fenced
// off, or the metering map is empty).
func Select(sc Scene, algo Algorithm, cfg Config) (Trace, error) {
	if algo == nil {
		return Trace{}, fmt.Errorf("%w: no algorithm", ErrInvalidParameter)
	}
	if err := cfg.Validate(); err != nil {
		return Trace{}, err
	}

	tr := Trace{
		Algorithm:   algo.Name(),
		Priorities:  cfg.Priorities,
		Norm:        cfg.Norm,
		ChosenIndex: -1,
		ChosenEV:    math.NaN(),
	}

	nValid := 0
	for _, ev := range cfg.Sweep() {
		m := BuildManipulated(sc, ev, algo, cfg)
		c := Evaluate(m, cfg)
		if c.Stage != StageInvalid {
			nValid++
		}
		tr.Candidates = append(tr.Candidates, c)
	}

	if nValid == 0 {
		return Trace{}, fmt.Errorf("%w: %d EVs in [%+.2f,%+.2f] all had zero weighted mass",
			ErrNoCandidates, len(tr.Candidates), cfg.SweepMin, cfg.SweepMax)
	}

	if err := algo.Choose(&tr, cfg); err != nil {
		return Trace{}, err
	}

	return tr, nil
}

// Evaluate scores a single manipulated histogram
func Evaluate(m Manipulated, cfg Config) Candidate {
	c := Candidate{
		EV:    m.EV,
		Mass:  m.Histogram.Total,
		Stage: StageEvaluated,
	}

	if m.Histogram.Total <= 0 {
		c.Stage = StageInvalid
		return c
	}

	c.HighlightClip = m.Clipping.Highlight
	c.ShadowClip    = m.Clipping.Shadow
	c.Median        = m.Histogram.Median()
	c.MidtoneError  = math.Abs(c.Median - cfg.MidtoneTarget)
	c.Entropy       = m.Histogram.Entropy()

	return c
}
