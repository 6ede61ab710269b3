package metering

import(
	"github.com/abworrall/exposurelab/pkg/ecolor"
	"github.com/abworrall/exposurelab/pkg/emath"
)

// Rec.709 / sRGB primaries; Y from linear RGB
var Rec709 = emath.Vec3{0.2126, 0.7152, 0.0722}

// ComputeLuminance maps each pixel to its relative luminance. No
// clamping happens here, so superbright pixels stay above 1.0 and can
// be counted as clipped later on.
func ComputeLuminance(img *ecolor.LinearImage) emath.FloatGrid {
	w, h := img.Dx(), img.Dy()
	lum := emath.NewFloatGrid(w, h)
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			r, g, b, _ := img.RGBAAt(x + img.Rect.Min.X, y + img.Rect.Min.Y)
			lum.Set(x, y, Rec709.Dot(emath.Vec3{r, g, b}))
		}
	}
	return lum
}
