package metering

import(
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/abworrall/exposurelab/pkg/emath"
)

const DefaultBins = 256

// A Histogram of weighted luminance. The bins span the luminance range
// actually observed (Min to Max), not a fixed [0,1], so the histogram
// stretches or squeezes with the dynamic range of the input.
//
// A degenerate histogram (Min == Max; everything at one level) has all
// bins zero, and a CDF that sits at Total for every index.
type Histogram struct {
	Bins       []float64
	CDF        []float64
	Min, Max     float64
	Total        float64  // total weight mass
	Degenerate   bool
}

func (h Histogram)BinWidth() float64 {
	if len(h.Bins) == 0 { return 0 }
	return (h.Max - h.Min) / float64(len(h.Bins))
}

func (h Histogram)String() string {
	return fmt.Sprintf("hist[%d bins, {%.5f,%.5f}, mass=%.5f, degenerate=%v]",
		len(h.Bins), h.Min, h.Max, h.Total, h.Degenerate)
}

// ComputeWeightedHistogram bins each pixel's luminance, counting its
// weight. Pixels with zero weight take no part, not even in working out
// the observed min/max.
func ComputeWeightedHistogram(lum, weights emath.FloatGrid, nBins int) Histogram {
	if nBins <= 0 { nBins = DefaultBins }

	h := Histogram{
		Bins: make([]float64, nBins),
		CDF:  make([]float64, nBins),
	}

	lv, wv := lum.Values(), weights.Values()
	n := len(lv)
	if len(wv) < n { n = len(wv) }

	min, max := math.Inf(1), math.Inf(-1)
	for i:=0; i<n; i++ {
		if wv[i] <= 0 { continue }
		h.Total += wv[i]
		if lv[i] < min { min = lv[i] }
		if lv[i] > max { max = lv[i] }
	}

	if h.Total <= 0 {
		// Nothing to see; an empty histogram
		h.Total = 0
		h.Degenerate = true
		return h
	}

	h.Min, h.Max = min, max

	if min == max {
		h.Degenerate = true
		for i := range h.CDF { h.CDF[i] = h.Total }
		return h
	}

	scale := float64(nBins) / (max - min)
	for i:=0; i<n; i++ {
		if wv[i] <= 0 { continue }
		idx := int((lv[i] - min) * scale)
		if idx >= nBins { idx = nBins-1 }
		if idx < 0      { idx = 0 }
		h.Bins[idx] += wv[i]
	}

	cum := 0.0
	for i:=0; i<nBins; i++ {
		cum += h.Bins[i]
		h.CDF[i] = cum
	}
	// Re-pin to the bin sum, so cdf[last] == sum(bins) exactly
	h.Total = cum

	return h
}

// ComputePercentiles does an inverse-CDF lookup for each percentile
// (expressed as a fraction, e.g. 0.5 for the median): it finds the
// first bin whose cumulative mass reaches p*total, and returns the
// luminance at the center of that bin.
func ComputePercentiles(cdf []float64, ps []float64, min, max float64) []float64 {
	ret := make([]float64, len(ps))
	if len(cdf) == 0 {
		for i := range ret { ret[i] = min }
		return ret
	}

	total := cdf[len(cdf)-1]
	binWidth := (max - min) / float64(len(cdf))

	for i, p := range ps {
		target := emath.Clamp(p, 0, 1) * total
		idx := len(cdf)-1
		for j:=0; j<len(cdf); j++ {
			if cdf[j] >= target - 1e-12*total {
				idx = j
				break
			}
		}
		ret[i] = min + (float64(idx) + 0.5) * binWidth
	}

	return ret
}

func (h Histogram)Percentiles(ps ...float64) []float64 {
	return ComputePercentiles(h.CDF, ps, h.Min, h.Max)
}

func (h Histogram)Median() float64 {
	return h.Percentiles(0.5)[0]
}

// Entropy is the Shannon entropy, in bits, of the normalized bin
// masses. A degenerate histogram (everything in one level) has zero
// entropy.
func (h Histogram)Entropy() float64 {
	if h.Degenerate || h.Total <= 0 {
		return 0.0
	}
	p := make([]float64, len(h.Bins))
	for i, b := range h.Bins {
		p[i] = b / h.Total
	}
	return stat.Entropy(p) / math.Ln2
}

// Clipping holds the fraction of the weighted mass that is blown out
// (luminance >= 1.0) or crushed (luminance <= the shadow threshold).
type Clipping struct {
	Highlight  float64
	Shadow     float64
	Mass       float64  // total weight the fractions are relative to
}

func ComputeClipping(lum, weights emath.FloatGrid, epsilon float64) Clipping {
	c := Clipping{}
	lv, wv := lum.Values(), weights.Values()
	n := len(lv)
	if len(wv) < n { n = len(wv) }

	hi, lo := 0.0, 0.0
	for i:=0; i<n; i++ {
		if wv[i] <= 0 { continue }
		c.Mass += wv[i]
		if lv[i] >= 1.0     { hi += wv[i] }
		if lv[i] <= epsilon { lo += wv[i] }
	}

	if c.Mass > 0 {
		c.Highlight = hi / c.Mass
		c.Shadow    = lo / c.Mass
	}
	return c
}
