package emath

import(
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"gonum.org/v1/gonum/floats"
)

// A FloatGrid is a grid of floats, with some operations. Weight maps
// and luminance fields are both FloatGrids, laid out row by row.
type FloatGrid struct {
	stride int
	values []float64
}

func NewFloatGrid(w, h int) FloatGrid {
	return FloatGrid{
		stride: w,
		values: make([]float64, w*h),
	}
}

func (g1 *FloatGrid)NewFromThis() FloatGrid  { return NewFloatGrid(g1.Dx(), g1.Dy()) }
func (fg *FloatGrid)Set(x, y int, v float64) { fg.values[fg.stride*y + x] = v }
func (fg *FloatGrid)Get(x, y int) float64    { return fg.values[fg.stride*y + x] }
func (fg *FloatGrid)Dx() int                 { return fg.stride }
func (fg *FloatGrid)Len() int                { return len(fg.values) }

// Values exposes the backing slice; index i is pixel (i%Dx, i/Dx).
func (fg *FloatGrid)Values() []float64       { return fg.values }

func (fg *FloatGrid)Dy() int {
	if fg.stride == 0 { return 0 }
	return len(fg.values) / fg.stride
}

func (g1 *FloatGrid)SameShape(g2 FloatGrid) bool {
	return g1.Dx() == g2.Dx() && g1.Dy() == g2.Dy()
}

func (g1 *FloatGrid)Copy() *FloatGrid {
	g2 := FloatGrid{stride: g1.stride, values:make([]float64, len(g1.values))}
	copy(g2.values, g1.values)
	return &g2
}

func (fg *FloatGrid)Sum() float64 {
	return floats.Sum(fg.values)
}

// Normalize scales the grid so its values sum to 1. A grid that sums
// to zero (or to NaN/Inf) is left as all zeros, and false is returned.
func (fg *FloatGrid)Normalize() bool {
	sum := fg.Sum()
	if sum <= 0.0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		for i := range fg.values { fg.values[i] = 0.0 }
		return false
	}
	floats.Scale(1.0/sum, fg.values)
	return true
}

// Scaled returns a copy of the grid with every value multiplied by f
func (g1 *FloatGrid)Scaled(f float64) FloatGrid {
	g2 := *g1.Copy()
	floats.Scale(f, g2.values)
	return g2
}

func (fg *FloatGrid)MinMax() (float64, float64) {
	if len(fg.values) == 0 { return 0, 0 }
	return floats.Min(fg.values), floats.Max(fg.values)
}

func (fg *FloatGrid)Stats() string {
	min, max := fg.MinMax()
	return fmt.Sprintf("fg[%dx%d, vals{%f,%f}, sum=%f]", fg.Dx(), fg.Dy(), min, max, fg.Sum())
}

// ToImg saves a simple grayscale, based on the range of values in the grid, and gamma scaling the
// gray to look normal for human vision
func (fg *FloatGrid)ToImg(title, filename string) error {
	min, max := fg.MinMax()
	span := max - min
	if span == 0.0 { span = 1.0 }

	img := image.NewRGBA64(image.Rectangle{Max:image.Point{fg.Dx(), fg.Dy()}})
	for x:=0; x<fg.Dx(); x++ {
		for y:=0; y<fg.Dy(); y++ {
			lum := fg.Get(x,y)
			gray := GammaExpand_F64 ((lum - min) / span)
			col := color.RGBA64{uint16(gray * 65535.0), uint16(gray * 65535.0), uint16(gray * 65535.0), 0xFFFF}
			img.Set(x, y, col)
		}
	}

	dc := gg.NewContextForImage(img)
	dc.SetRGB(1,0,0)
	dc.DrawString(title, 10, 20)
	return dc.SavePNG(filename)
}
