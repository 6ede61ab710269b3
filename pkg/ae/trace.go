package ae

import(
	"fmt"
	"math"
	"strings"
)

// How far a candidate got through the selection
type Stage int

const(
	StageInvalid   Stage = iota // no weighted mass at this EV; never chosen
	StageEvaluated              // scored, but not feasible
	StageFeasible               // met both clip tolerances (stage 1)
	StageRelaxed                // considered under the relaxed penalty (stage 2)
	StageEntropy                // considered by the entropy maximizer
)

func (s Stage)String() string {
	switch s {
	case StageInvalid:   return "invalid"
	case StageEvaluated: return "evaluated"
	case StageFeasible:  return "feasible"
	case StageRelaxed:   return "relaxed"
	case StageEntropy:   return "entropy"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

func (s Stage)MarshalYAML() (interface{}, error) { return s.String(), nil }

// A Candidate is one EV from the sweep, and how it scored
type Candidate struct {
	EV              float64  `yaml:"ev"`
	HighlightClip   float64  `yaml:"highlightclip"`
	ShadowClip      float64  `yaml:"shadowclip"`
	Median          float64  `yaml:"median"`
	MidtoneError    float64  `yaml:"midtoneerror"`
	Entropy         float64  `yaml:"entropy,omitempty"`
	Penalty         float64  `yaml:"penalty,omitempty"`
	Mass            float64  `yaml:"mass"`
	Stage           Stage    `yaml:"stage"`
	Chosen          bool     `yaml:"chosen,omitempty"`
}

// A StageSet is the set of EVs still in contention after a stage
type StageSet struct {
	Stage   Stage      `yaml:"stage"`
	EVs   []float64    `yaml:"evs"`
}

// A Trace records one run of the selector, from start to finish. It
// is built fresh for every call to Select.
type Trace struct {
	Algorithm      string        `yaml:"algorithm"`
	Priorities     Priorities    `yaml:"priorities"`
	Norm           Norm          `yaml:"norm"`
	Candidates   []Candidate     `yaml:"candidates"`
	Stages       []StageSet      `yaml:"stages"`
	Relaxations    int           `yaml:"relaxations"`
	ChosenIndex    int           `yaml:"chosenindex"`
	ChosenEV       float64       `yaml:"chosenev"`
	Justification  string        `yaml:"justification"`
}

func (tr *Trace)validIndices() []int {
	ret := []int{}
	for i, c := range tr.Candidates {
		if c.Stage != StageInvalid {
			ret = append(ret, i)
		}
	}
	return ret
}

func (tr *Trace)addStage(s Stage, idxs []int) {
	set := StageSet{Stage: s, EVs: []float64{}}
	for _, i := range idxs {
		set.EVs = append(set.EVs, tr.Candidates[i].EV)
	}
	tr.Stages = append(tr.Stages, set)
}

func (tr *Trace)choose(i int) {
	tr.ChosenIndex = i
	tr.ChosenEV = tr.Candidates[i].EV
	tr.Candidates[i].Chosen = true
}

func (tr Trace)Chosen() Candidate {
	return tr.Candidates[tr.ChosenIndex]
}

func (tr Trace)String() string {
	str := fmt.Sprintf("AE trace: %s, %s, norm %s\n", tr.Algorithm, tr.Priorities, tr.Norm)
	str += fmt.Sprintf("   %7s %8s %8s %8s %8s %8s %8s  %s\n",
		"EV", "hiclip%", "shclip%", "median", "err", "entropy", "penalty", "stage")
	for _, c := range tr.Candidates {
		mark := " "
		if c.Chosen { mark = "*" }
		str += fmt.Sprintf(" %s %+7.2f %8.3f %8.3f %8.4f %8.4f %8.3f %8.4f  %s\n", mark,
			c.EV, 100*c.HighlightClip, 100*c.ShadowClip, c.Median, c.MidtoneError,
			c.Entropy, c.Penalty, c.Stage)
	}
	for _, s := range tr.Stages {
		evs := []string{}
		for _, ev := range s.EVs {
			evs = append(evs, fmt.Sprintf("%+.2f", ev))
		}
		str += fmt.Sprintf("%-9s: [%s]\n", s.Stage, strings.Join(evs, " "))
	}
	str += fmt.Sprintf("relaxations: %d\n", tr.Relaxations)
	return str + fmt.Sprintf("chose EV %+.2f: %s\n", tr.ChosenEV, tr.Justification)
}

// Scores closer than this are treated as tied
const tieTolerance = 1e-9

// filterMin keeps the candidates whose key is within tieTolerance of the
// smallest key among idxs
func filterMin(cands []Candidate, idxs []int, key func(Candidate) float64) []int {
	if len(idxs) == 0 {
		return idxs
	}
	min := math.Inf(1)
	for _, i := range idxs {
		if k := key(cands[i]); k < min { min = k }
	}
	ret := []int{}
	for _, i := range idxs {
		if key(cands[i]) <= min + tieTolerance {
			ret = append(ret, i)
		}
	}
	return ret
}

// breakTies picks one candidate out of a set that has tied on the
// primary criterion: closest median to the target, then the smallest
// |EV| (least change from the metered exposure), then the lower EV.
func breakTies(cands []Candidate, idxs []int) int {
	idxs = filterMin(cands, idxs, func(c Candidate) float64 { return c.MidtoneError })
	idxs = filterMin(cands, idxs, func(c Candidate) float64 { return math.Abs(c.EV) })
	idxs = filterMin(cands, idxs, func(c Candidate) float64 { return c.EV })
	return idxs[0]
}
