package exposurelab

import(
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/fogleman/gg"
	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/tmo"
	"gopkg.in/yaml.v2"

	"github.com/abworrall/exposurelab/pkg/ecolor"
	"github.com/abworrall/exposurelab/pkg/emath"
	"github.com/abworrall/exposurelab/pkg/metering"
)

var(
	Tonemappers = []string{"drago03", "durand", "icam06", "linear", "reinhard05"}
)

func ListTonemappers() string {
	return fmt.Sprintf("%v", Tonemappers)
}

// Preview simulates what the sensor records at the given EV: scale the
// light, clip at 1.0, then sRGB encode for display.
func Preview(li *ecolor.LinearImage, ev float64) *image.RGBA64 {
	exposed := li.Exposed(ev)
	img := image.NewRGBA64(image.Rect(0, 0, li.Dx(), li.Dy()))

	for y:=0; y<li.Dy(); y++ {
		for x:=0; x<li.Dx(); x++ {
			r, g, b, _ := exposed.RGBAAt(x + li.Rect.Min.X, y + li.Rect.Min.Y)
			v := emath.Vec3{r, g, b}
			v.FloorAt(0)
			v.CeilingAt(1)
			v = emath.GammaExpand_sRGB(v)
			img.SetRGBA64(x, y, color.RGBA64{uint16(v[0]*0xFFFF), uint16(v[1]*0xFFFF), uint16(v[2]*0xFFFF), 0xFFFF})
		}
	}
	return img
}

// PlotHistogram draws the histogram bars, with a marker for the median
// and for the midtone target, and a caption.
func PlotHistogram(h metering.Histogram, target float64, title, filename string) error {
	const W, H, margin = 512, 256, 24

	dc := gg.NewContext(W, H)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	peak := 0.0
	for _, b := range h.Bins {
		if b > peak { peak = b }
	}

	barW := float64(W) / float64(len(h.Bins))
	dc.SetRGB(0.2, 0.2, 0.2)
	if peak > 0 {
		for i, b := range h.Bins {
			bh := b / peak * float64(H - margin)
			dc.DrawRectangle(float64(i)*barW, float64(H) - bh, barW, bh)
		}
		dc.Fill()
	}

	// Markers, in histogram (luminance) coords
	xFor := func(lum float64) float64 {
		if h.Max == h.Min { return float64(W) / 2 }
		return (lum - h.Min) / (h.Max - h.Min) * float64(W)
	}
	dc.SetRGB(0, 0, 1)
	dc.DrawLine(xFor(h.Median()), float64(margin), xFor(h.Median()), float64(H))
	dc.Stroke()
	if target >= h.Min && target <= h.Max {
		dc.SetRGB(1, 0, 0)
		dc.DrawLine(xFor(target), float64(margin), xFor(target), float64(H))
		dc.Stroke()
	}

	dc.SetRGB(0, 0, 0)
	dc.DrawString(title, 4, 16)
	return dc.SavePNG(filename)
}

// WriteDebugFiles dumps everything about a decision, with filenames
// that start with prefix.
func (sc *Scene)WriteDebugFiles(res Result, prefix string) error {
	files := []string{}

	fn := prefix + "weights.png"
	if err := sc.WeightMap.ToImg(fmt.Sprintf("%s metering", sc.Config.Metering.Mode), fn); err != nil {
		return fmt.Errorf("weight map: %v", err)
	}
	files = append(files, fn)

	m, err := sc.ManipulatedAt(res.Trace.ChosenEV)
	if err != nil {
		return err
	}
	fn = prefix + "histogram.png"
	title := fmt.Sprintf("%s @ EV %+.2f: median %.3f, clip %.1f%%/%.1f%%", res.Trace.Algorithm, m.EV,
		m.Histogram.Median(), 100*m.Clipping.Highlight, 100*m.Clipping.Shadow)
	if err := PlotHistogram(m.Histogram, sc.AE.MidtoneTarget, title, fn); err != nil {
		return fmt.Errorf("histogram: %v", err)
	}
	files = append(files, fn)

	fn = prefix + "preview.png"
	if err := WritePNG(Preview(sc.Image, res.Trace.ChosenEV), fn); err != nil {
		return err
	}
	files = append(files, fn)

	fn = prefix + "exposed.hdr"
	if err := WriteToHDR(sc.Image.Exposed(res.Trace.ChosenEV), fn); err != nil {
		return err
	}
	files = append(files, fn)

	fn = prefix + "decision.yaml"
	if err := WriteYaml(res, fn); err != nil {
		return err
	}
	files = append(files, fn)

	sc.Log.Info("render", "debug files written", map[string]interface{}{"id": res.ID, "files": files})
	return nil
}

// Tonemap renders the scene with one of the HDR tone mapping operators,
// as a reference to compare the AE preview against.
func (sc *Scene)Tonemap(name, filename string) error {
	op, err := SetupTonemapper(sc.Image, name)
	if err != nil {
		return err
	}
	sc.Log.Info("render", "tonemapping", map[string]interface{}{"operator": name, "file": filename})
	return WritePNG(op.Perform(), filename)
}

func SetupTonemapper(img hdr.Image, name string) (tmo.ToneMappingOperator, error) {
	switch name {
	case "drago03":
		op := tmo.NewDefaultDrago03(img)
		op.Bias = 1.0
		return op, nil
	case "durand":     return tmo.NewDefaultDurand(img), nil
	case "icam06":     return tmo.NewDefaultICam06(img), nil
	case "linear":     return tmo.NewLinear(img), nil
	case "reinhard05": return tmo.NewDefaultReinhard05(img), nil
	}
	return nil, fmt.Errorf("ToneMapper %q not recognized, wanted %s", name, ListTonemappers())
}

func WritePNG(img image.Image, filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		return png.Encode(writer, img)
	}
}

// WriteToHDR outputs a Radiance HDR image. You can load this into photoshop or other HDR tools.
func WriteToHDR(img hdr.Image, filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("WriteToHDR, open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		return rgbe.Encode(writer, img)
	}
}

func WriteYaml(v interface{}, filename string) error {
	b, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("yaml marshal for '%s': %v", filename, err)
	}
	return os.WriteFile(filename, b, 0644)
}
