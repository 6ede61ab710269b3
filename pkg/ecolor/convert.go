package ecolor

import(
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mdouchement/hdr"

	"github.com/abworrall/exposurelab/pkg/emath"
)

// FromImage converts any image into a LinearImage, with its origin at
// (0,0). HDR images (e.g. decoded RGBE) already hold linear values and
// are copied across as-is; everything else is assumed to be sRGB
// encoded, and gets gamma-decoded into linear light.
func FromImage(img image.Image) *LinearImage {
	if li, ok := img.(*LinearImage); ok {
		return li
	}

	bounds := img.Bounds()
	li := NewLinearImage(bounds.Dx(), bounds.Dy())

	if himg, ok := img.(hdr.Image); ok {
		for y:=0; y<bounds.Dy(); y++ {
			for x:=0; x<bounds.Dx(); x++ {
				r, g, b, a := himg.HDRAt(x + bounds.Min.X, y + bounds.Min.Y).HDRRGBA()
				li.SetRGBA(x, y, r, g, b, a)
			}
		}
		return li
	}

	for y:=0; y<bounds.Dy(); y++ {
		for x:=0; x<bounds.Dx(); x++ {
			r, g, b, a := linearize(img.At(x + bounds.Min.X, y + bounds.Min.Y))
			li.SetRGBA(x, y, r, g, b, a)
		}
	}
	return li
}

// linearize undoes the sRGB transfer curve. Fully transparent pixels
// come back as transparent black.
func linearize(c color.Color) (r, g, b, a float64) {
	_, _, _, a16 := c.RGBA()
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return 0, 0, 0, 0
	}
	r, g, b = cf.LinearRgb()
	return r, g, b, float64(a16) / float64(0xFFFF)
}

// MaskFromImage turns a grayscale (or any) image into a float grid in
// [0,1], for use as a subject mask. The encoded gray level is used
// directly, since masks are drawn, not measured.
func MaskFromImage(img image.Image) emath.FloatGrid {
	bounds := img.Bounds()
	mask := emath.NewFloatGrid(bounds.Dx(), bounds.Dy())
	for y:=0; y<bounds.Dy(); y++ {
		for x:=0; x<bounds.Dx(); x++ {
			g := color.Gray16Model.Convert(img.At(x + bounds.Min.X, y + bounds.Min.Y)).(color.Gray16)
			mask.Set(x, y, float64(g.Y) / float64(0xFFFF))
		}
	}
	return mask
}
