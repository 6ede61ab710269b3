package ae

import(
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/exposurelab/pkg/ecolor"
	"github.com/abworrall/exposurelab/pkg/emath"
	"github.com/abworrall/exposurelab/pkg/metering"
)

func TestFenceDropsOutliers(t *testing.T) {
	img := ecolor.NewUniformLinearImage(10, 10, 0.1, 0.1, 0.1)
	img.SetRGBA(9, 9, 100, 100, 100, 1)
	sc := meteredScene(t, img, metering.ModeMatrix)

	m := BuildManipulated(sc, 0, Global{}, DefaultConfig())
	assert.Equal(t, 0.0, m.Weights.Get(9, 9), "the outlier is fenced off")
	assert.Equal(t, 1.0, m.Weights.Get(0, 0))
	assert.Equal(t, 0.0, m.Clipping.Highlight, "so it doesn't count as clipped")
	assert.InDelta(t, 99.0, m.Histogram.Total, 1e-9)

	// The fence scales with the exposure
	m2 := BuildManipulated(sc, 1, Global{}, DefaultConfig())
	assert.InDelta(t, 2*m.Fence.Q1, m2.Fence.Q1, 1e-12)
	assert.InDelta(t, 2*m.Fence.Q3, m2.Fence.Q3, 1e-12)
}

func TestSensorResponse(t *testing.T) {
	img := ecolor.NewLinearImage(3, 1)
	img.SetRGBA(0, 0, 0.004, 0.004, 0.004, 1)
	img.SetRGBA(1, 0, 0.2, 0.2, 0.2, 1)
	img.SetRGBA(2, 0, 0.4, 0.4, 0.4, 1)
	sc := meteredScene(t, img, metering.ModeMatrix)

	m := BuildManipulated(sc, 1, Global{}, DefaultConfig())
	assert.Equal(t, 0.0, m.Sensor.Get(0, 0), "0.008 is crushed")
	assert.InDelta(t, 0.4, m.Sensor.Get(1, 0), 1e-9)
	assert.InDelta(t, 0.8, m.Luminance.Get(2, 0), 1e-9)

	m = BuildManipulated(sc, 2, Global{}, DefaultConfig())
	assert.Equal(t, 1.0, m.Sensor.Get(2, 0))
	assert.InDelta(t, 1.6, m.Luminance.Get(2, 0), 1e-9, "clipping is judged on the unclamped value")
	assert.InDelta(t, 1.0/3.0, m.Clipping.Highlight, 1e-9)
}

func TestSaliencyWeights(t *testing.T) {
	lum := []float64{1, 1, 1, 5}
	meter := []float64{0.25, 0.25, 0.25, 0.25}
	in := []bool{true, true, true, true}

	w := Saliency{}.Weigh(lum, meter, in)
	assert.InDelta(t, 0.375, w[0], 1e-12)
	assert.InDelta(t, 0.625, w[3], 1e-12)

	// Out of range pixels get nothing, and don't poison the mean
	w = Saliency{}.Weigh([]float64{math.NaN(), 1, 3}, []float64{0.5, 0.25, 0.25}, []bool{false, true, true})
	assert.Equal(t, 0.0, w[0])
	assert.InDelta(t, 0.375, w[1], 1e-12)
	assert.InDelta(t, 0.375, w[2], 1e-12)
}

func TestAlgorithmWeights(t *testing.T) {
	lum := []float64{0.1, 0.2, 0.3}
	meter := []float64{0.5, 0.0, 0.5}
	in := []bool{true, true, false}

	assert.Equal(t, []float64{1, 1, 0}, Global{}.Weigh(lum, meter, in))
	assert.Equal(t, []float64{0.5, 0, 0}, Semantic{}.Weigh(lum, meter, in))
	assert.Equal(t, []float64{0.5, 0, 0}, Entropy{}.Weigh(lum, meter, in))
}

func TestNewSceneShapeMismatch(t *testing.T) {
	img := ecolor.NewUniformLinearImage(4, 4, 0.5, 0.5, 0.5)
	_, err := NewScene(img, emath.NewFloatGrid(2, 2))
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestNewSceneValidity(t *testing.T) {
	img := ecolor.NewUniformLinearImage(3, 1, 0.5, 0.5, 0.5)
	img.SetRGBA(1, 0, 0.5, 0.5, 0.5, 0)
	img.SetRGBA(2, 0, math.Inf(1), 0.5, 0.5, 1)

	sc, err := NewScene(img, emath.NewFloatGrid(3, 1))
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, false}, sc.Valid)
}
