package ecolor

import(
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/mdouchement/hdr/hdrcolor"
)

// A LinearImage is a buffer of linear-light RGBA samples. Channel
// values are nominally in [0.0, 1.0], where 1.0 is the level that
// saturates the sensor; superbright pixels may go above 1.0. Implements
// the image.Image and hdr.Image interfaces, so it can be fed to the
// RGBE encoder and the tone mapping operators.
type LinearImage struct {
	Rect   image.Rectangle
	Pix  []float64 // RGBA, 4 floats per pixel, row by row
}

func NewLinearImage(w, h int) *LinearImage {
	return &LinearImage{
		Rect: image.Rect(0, 0, w, h),
		Pix:  make([]float64, 4*w*h),
	}
}

// NewUniformLinearImage is a flat field of a single color, fully opaque
func NewUniformLinearImage(w, h int, r, g, b float64) *LinearImage {
	li := NewLinearImage(w, h)
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			li.SetRGBA(x, y, r, g, b, 1.0)
		}
	}
	return li
}

// Implement image.Image
func (li *LinearImage)ColorModel() color.Model       { return hdrcolor.RGBModel }
func (li *LinearImage)Bounds() image.Rectangle       { return li.Rect }
func (li *LinearImage)At(x, y int) color.Color       { return li.HDRAt(x, y) }

// Implement hdr.Image
func (li *LinearImage)Size() int                     { return li.Rect.Dx() * li.Rect.Dy() }
func (li *LinearImage)HDRAt(x, y int) hdrcolor.Color {
	r, g, b, _ := li.RGBAAt(x, y)
	return hdrcolor.RGB{R:r, G:g, B:b}
}

func (li *LinearImage)Dx() int { return li.Rect.Dx() }
func (li *LinearImage)Dy() int { return li.Rect.Dy() }

func (li *LinearImage)offset(x, y int) int {
	return 4 * ((y - li.Rect.Min.Y) * li.Rect.Dx() + (x - li.Rect.Min.X))
}

func (li *LinearImage)RGBAAt(x, y int) (r, g, b, a float64) {
	if !(image.Point{x, y}.In(li.Rect)) {
		return 0, 0, 0, 0
	}
	i := li.offset(x, y)
	return li.Pix[i], li.Pix[i+1], li.Pix[i+2], li.Pix[i+3]
}

func (li *LinearImage)SetRGBA(x, y int, r, g, b, a float64) {
	if !(image.Point{x, y}.In(li.Rect)) {
		return
	}
	i := li.offset(x, y)
	li.Pix[i], li.Pix[i+1], li.Pix[i+2], li.Pix[i+3] = r, g, b, a
}

// Exposed returns a copy of the image with the color channels scaled
// by 2^ev; one stop doubles the light.
func (li *LinearImage)Exposed(ev float64) *LinearImage {
	gain := math.Pow(2.0, ev)
	out := &LinearImage{Rect: li.Rect, Pix: make([]float64, len(li.Pix))}
	for i:=0; i<len(li.Pix); i+=4 {
		out.Pix[i]   = li.Pix[i]   * gain
		out.Pix[i+1] = li.Pix[i+1] * gain
		out.Pix[i+2] = li.Pix[i+2] * gain
		out.Pix[i+3] = li.Pix[i+3]
	}
	return out
}

func (li *LinearImage)String() string {
	return fmt.Sprintf("LinearImage %s", li.Rect)
}
