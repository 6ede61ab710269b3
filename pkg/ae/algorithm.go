package ae

import(
	"fmt"
	"math"
	"strings"
)

// An Algorithm is one of the four AE strategies. Each does two things:
// weighs the in-range pixels of a manipulated histogram, and chooses the
// winning candidate once the whole sweep has been scored. The set is
// closed; the unexported method keeps other packages from adding to it.
type Algorithm interface {
	Name() string

	// Weigh returns a weight per pixel. Pixels not in range get zero.
	Weigh(lum, meter []float64, inRange []bool) []float64

	// Choose fills in the selection fields of the trace
	Choose(tr *Trace, cfg Config) error

	isAlgorithm()
}

type Global   struct{}
type Semantic struct{}
type Saliency struct{}
type Entropy  struct{}

var Algorithms = []Algorithm{Global{}, Semantic{}, Saliency{}, Entropy{}}

func ParseAlgorithm(name string) (Algorithm, error) {
	for _, a := range Algorithms {
		if a.Name() == strings.ToLower(name) {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: no AE algorithm named '%s', wanted %s", ErrInvalidParameter, name, ListAlgorithms())
}

func ListAlgorithms() string {
	names := []string{}
	for _, a := range Algorithms {
		names = append(names, a.Name())
	}
	return fmt.Sprintf("%v", names)
}

func (Global)Name() string   { return "global" }
func (Semantic)Name() string { return "semantic" }
func (Saliency)Name() string { return "saliency" }
func (Entropy)Name() string  { return "entropy" }

func (Global)isAlgorithm()   {}
func (Semantic)isAlgorithm() {}
func (Saliency)isAlgorithm() {}
func (Entropy)isAlgorithm()  {}

// Global ignores the metering map; every in-range pixel counts the same.
func (Global)Weigh(lum, meter []float64, inRange []bool) []float64 {
	w := make([]float64, len(lum))
	for i := range w {
		if inRange[i] { w[i] = 1.0 }
	}
	return w
}

// Semantic uses the metering weights as they are.
func (Semantic)Weigh(lum, meter []float64, inRange []bool) []float64 {
	return meteredWeights(meter, inRange)
}

// Entropy weighs like Semantic; it differs only in how it chooses.
func (Entropy)Weigh(lum, meter []float64, inRange []bool) []float64 {
	return meteredWeights(meter, inRange)
}

// Saliency boosts the metering weight of pixels that stand out from the
// metered mean luminance μ: w = meter * (1 + |lum-μ|/μ). The contrast
// term is relative to μ, so it doesn't change as the EV scales things.
func (Saliency)Weigh(lum, meter []float64, inRange []bool) []float64 {
	w := meteredWeights(meter, inRange)

	// Weighted mean over the weighted pixels only; the rest may hold NaNs
	wsum, lsum := 0.0, 0.0
	for i, v := range w {
		if v > 0 {
			wsum += v
			lsum += v * lum[i]
		}
	}
	if wsum <= 0 || lsum <= 0 {
		return w
	}
	mu := lsum / wsum

	for i := range w {
		if w[i] > 0 {
			w[i] *= 1.0 + math.Abs(lum[i] - mu) / mu
		}
	}
	return w
}

func meteredWeights(meter []float64, inRange []bool) []float64 {
	w := make([]float64, len(meter))
	for i := range w {
		if inRange[i] && meter[i] > 0 { w[i] = meter[i] }
	}
	return w
}

func (Global)Choose(tr *Trace, cfg Config) error   { return chooseLexicographic(tr, cfg) }
func (Semantic)Choose(tr *Trace, cfg Config) error { return chooseLexicographic(tr, cfg) }
func (Saliency)Choose(tr *Trace, cfg Config) error { return chooseLexicographic(tr, cfg) }

// Entropy doesn't filter on clipping at all; it takes the EV whose
// manipulated histogram carries the most information. Blown or crushed
// pixels pile up in the end bins, which lowers the entropy, so clipping
// is discouraged without being constrained.
func (Entropy)Choose(tr *Trace, cfg Config) error {
	valid := tr.validIndices()
	for _, i := range valid {
		tr.Candidates[i].Stage = StageEntropy
	}

	best := filterMin(tr.Candidates, valid, func(c Candidate) float64 { return -c.Entropy })
	tr.addStage(StageEntropy, best)

	winner := breakTies(tr.Candidates, best)
	tr.choose(winner)

	c := tr.Candidates[winner]
	tr.Justification = fmt.Sprintf("entropy: EV %+.2f maximizes histogram entropy (%.3f bits)", c.EV, c.Entropy)
	if len(best) > 1 {
		tr.Justification += fmt.Sprintf("; %d EVs tied, median %.4f closest to target %.3f wins",
			len(best), c.Median, cfg.MidtoneTarget)
	}
	return nil
}

// chooseLexicographic honors the clip tolerances first, and the midtone
// target second. If no EV meets both tolerances, it relaxes to the EV
// that exceeds them by the least.
func chooseLexicographic(tr *Trace, cfg Config) error {
	valid := tr.validIndices()

	feasible := []int{}
	for _, i := range valid {
		c := &tr.Candidates[i]
		if c.HighlightClip <= cfg.HighlightTolerance && c.ShadowClip <= cfg.ShadowTolerance {
			c.Stage = StageFeasible
			feasible = append(feasible, i)
		}
	}
	tr.addStage(StageFeasible, feasible)

	if len(feasible) > 0 {
		winner := breakTies(tr.Candidates, feasible)
		tr.choose(winner)
		c := tr.Candidates[winner]
		tr.Justification = fmt.Sprintf("stage 1: %d of %d EVs keep highlight clip <= %.1f%% and shadow clip <= %.1f%%; "+
			"EV %+.2f puts the median (%.4f) closest to the midtone target %.3f",
			len(feasible), len(valid), 100*cfg.HighlightTolerance, 100*cfg.ShadowTolerance,
			c.EV, c.Median, cfg.MidtoneTarget)
		return nil
	}

	// Stage 2: nothing is feasible, so minimize how far over the tolerances we go
	tr.Relaxations++
	for _, i := range valid {
		c := &tr.Candidates[i]
		c.Stage = StageRelaxed
		c.Penalty = cfg.Norm.Combine(
			math.Max(0, c.HighlightClip - cfg.HighlightTolerance),
			math.Max(0, c.ShadowClip - cfg.ShadowTolerance))
	}

	best := filterMin(tr.Candidates, valid, func(c Candidate) float64 { return c.Penalty })
	tr.addStage(StageRelaxed, best)

	winner := breakTies(tr.Candidates, best)
	tr.choose(winner)
	c := tr.Candidates[winner]
	tr.Justification = fmt.Sprintf("stage 2: no EV keeps highlight clip <= %.1f%% and shadow clip <= %.1f%%; "+
		"relaxed to the smallest %s excess (%.4f) at EV %+.2f (highlight %.1f%%, shadow %.1f%%)",
		100*cfg.HighlightTolerance, 100*cfg.ShadowTolerance, cfg.Norm, c.Penalty, c.EV,
		100*c.HighlightClip, 100*c.ShadowClip)
	return nil
}
