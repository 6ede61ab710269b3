// Package metering assigns per-pixel weights to a scene and computes
// the weighted luminance statistics that exposure decisions are based on.
package metering

import(
	"errors"
	"fmt"
	"math"

	"github.com/abworrall/exposurelab/pkg/ecolor"
	"github.com/abworrall/exposurelab/pkg/emath"
)

// ErrConfiguration is returned for bad metering modes or parameters.
var ErrConfiguration = errors.New("metering configuration error")

type Mode string

const(
	ModeMatrix  Mode = "matrix"
	ModeCenter  Mode = "center"
	ModeSpot    Mode = "spot"
	ModeSubject Mode = "subject"
)

var Modes = []Mode{ModeMatrix, ModeCenter, ModeSpot, ModeSubject}

func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: no metering mode named '%s', wanted %v", ErrConfiguration, s, Modes)
}

// Params tune the shape of each metering mode. Radii and sigmas are in
// normalized frame units: 1.0 is the distance from the center to the
// middle of an edge.
type Params struct {
	MatrixCenterBias  float64  `yaml:"matrixcenterbias"`  // how much extra weight the middle gets, on top of 1.0
	MatrixSigma       float64  `yaml:"matrixsigma"`
	CenterSigma       float64  `yaml:"centersigma"`
	SpotRadius        float64  `yaml:"spotradius"`
	SubjectThreshold  float64  `yaml:"subjectthreshold"`  // mask values at/above this are the subject
	SubjectFloor      float64  `yaml:"subjectfloor"`      // fraction of mask value kept for background

	SubjectMask      *emath.FloatGrid `yaml:"-"`
}

func DefaultParams() Params {
	return Params{
		MatrixCenterBias: 0.5,
		MatrixSigma:      0.5,
		CenterSigma:      0.25,
		SpotRadius:       0.1,
		SubjectThreshold: 0.5,
		SubjectFloor:     0.10,
	}
}

func (p Params)Validate() error {
	for name, v := range map[string]float64{
		"matrixcenterbias": p.MatrixCenterBias, "matrixsigma": p.MatrixSigma, "centersigma": p.CenterSigma,
		"spotradius": p.SpotRadius, "subjectthreshold": p.SubjectThreshold, "subjectfloor": p.SubjectFloor,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s=%f must be finite", ErrConfiguration, name, v)
		}
	}

	switch {
	case p.MatrixCenterBias < 0:
		return fmt.Errorf("%w: matrix center bias %f < 0", ErrConfiguration, p.MatrixCenterBias)
	case p.MatrixSigma <= 0 || p.CenterSigma <= 0:
		return fmt.Errorf("%w: sigmas must be > 0 (matrix=%f, center=%f)", ErrConfiguration, p.MatrixSigma, p.CenterSigma)
	case p.SpotRadius <= 0:
		return fmt.Errorf("%w: spot radius %f <= 0", ErrConfiguration, p.SpotRadius)
	case p.SubjectThreshold < 0 || p.SubjectThreshold > 1:
		return fmt.Errorf("%w: subject threshold %f outside [0,1]", ErrConfiguration, p.SubjectThreshold)
	case p.SubjectFloor < 0 || p.SubjectFloor > 1:
		return fmt.Errorf("%w: subject floor %f outside [0,1]", ErrConfiguration, p.SubjectFloor)
	}
	return nil
}

// GenerateWeightMap builds the metering weights for the image. The
// result sums to 1.0; or, if no pixel ends up with any weight (e.g. a
// spot too small to cover a pixel center), it is all zeros.
func GenerateWeightMap(img *ecolor.LinearImage, mode Mode, p Params) (emath.FloatGrid, error) {
	if err := p.Validate(); err != nil {
		return emath.FloatGrid{}, err
	}

	w, h := img.Dx(), img.Dy()
	wm := emath.NewFloatGrid(w, h)

	var f func(x, y int, r float64) float64

	switch mode {
	case ModeMatrix:
		f = func(_, _ int, r float64) float64 {
			return 1.0 + p.MatrixCenterBias * math.Exp(-r*r / (2 * p.MatrixSigma * p.MatrixSigma))
		}

	case ModeCenter:
		f = func(_, _ int, r float64) float64 {
			return math.Exp(-r*r / (2 * p.CenterSigma * p.CenterSigma))
		}

	case ModeSpot:
		f = func(_, _ int, r float64) float64 {
			if r <= p.SpotRadius { return 1.0 }
			return 0.0
		}

	case ModeSubject:
		if p.SubjectMask == nil {
			return wm, fmt.Errorf("%w: subject metering needs a subject mask", ErrConfiguration)
		}
		mask := p.SubjectMask
		if mask.Dx() != w || mask.Dy() != h {
			return wm, fmt.Errorf("%w: subject mask is %dx%d, image is %dx%d",
				ErrConfiguration, mask.Dx(), mask.Dy(), w, h)
		}
		f = func(x, y int, _ float64) float64 {
			m := emath.Clamp(mask.Get(x, y), 0, 1)
			if m >= p.SubjectThreshold { return 1.0 }
			return p.SubjectFloor * m
		}

	default:
		return wm, fmt.Errorf("%w: no metering mode named '%s'", ErrConfiguration, mode)
	}

	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			// Transparent pixels are not part of the scene
			if _, _, _, a := img.RGBAAt(x + img.Rect.Min.X, y + img.Rect.Min.Y); a <= 0 {
				continue
			}
			wm.Set(x, y, f(x, y, normalizedRadius(x, y, w, h)))
		}
	}

	wm.Normalize()
	return wm, nil
}

// normalizedRadius is the distance of the pixel center from the frame
// center, with each axis scaled so the edge midpoints sit at 1.0
func normalizedRadius(x, y, w, h int) float64 {
	dx := (float64(x) + 0.5 - float64(w)/2.0) / (float64(w)/2.0)
	dy := (float64(y) + 0.5 - float64(h)/2.0) / (float64(h)/2.0)
	return math.Sqrt(dx*dx + dy*dy)
}
