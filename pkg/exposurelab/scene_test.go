package exposurelab

import(
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/exposurelab/pkg/ae"
	"github.com/abworrall/exposurelab/pkg/ecolor"
	"github.com/abworrall/exposurelab/pkg/exposure"
	"github.com/abworrall/exposurelab/pkg/metering"
)

func grayScene(w, h int, v float64) Scene {
	sc := NewScene()
	sc.SetImage(ecolor.NewUniformLinearImage(w, h, v, v, v))
	sc.AE.HighlightTolerance = 0.05
	sc.AE.ShadowTolerance = 0.05
	sc.AE.MidtoneTarget = 0.18
	return sc
}

func gradientScene(w, h int) Scene {
	li := ecolor.NewLinearImage(w, h)
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			v := 0.01 + float64(x+y) / float64(w+h)
			li.SetRGBA(x, y, v, v, v, 1)
		}
	}
	sc := NewScene()
	sc.SetImage(li)
	return sc
}

func writeGrayPNG(t *testing.T, filename string, w, h int, f func(x, y int) uint8) {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			img.SetGray(x, y, color.Gray{f(x, y)})
		}
	}
	fh, err := os.Create(filename)
	require.NoError(t, err)
	defer fh.Close()
	require.NoError(t, png.Encode(fh, img))
}

func TestDecideUniformGray(t *testing.T) {
	sc := grayScene(64, 64, 0.5)

	res, err := sc.Decide()
	require.NoError(t, err)

	assert.Len(t, res.ID, 36)
	assert.InDelta(t, -4.0/3.0, res.Trace.ChosenEV, 1e-9)
	assert.Equal(t, ae.StageFeasible, res.Trace.Chosen().Stage)
	assert.Equal(t, 0.0, res.Trace.Chosen().HighlightClip)
	assert.InDelta(t, 0.198, res.Trace.Chosen().Median, 1e-3)

	assert.NoError(t, sc.Constraints.Admits(res.Settings))
	assert.Equal(t, exposure.PriorityBalanced, res.Allocation.Priority)
	assert.InDelta(t, -4.0/3.0, res.Allocation.QuantizedEV, 1e-9)
	assert.InDelta(t, 1.0, sc.WeightMap.Sum(), 1e-9)
}

func TestDecideIsRepeatable(t *testing.T) {
	sc := gradientScene(32, 24)
	sc.Algorithm = "saliency"

	r1, err := sc.Decide()
	require.NoError(t, err)
	r2, err := sc.Decide()
	require.NoError(t, err)

	assert.NotEqual(t, r1.ID, r2.ID)
	assert.Equal(t, r1.Trace, r2.Trace)
	assert.Equal(t, r1.Settings, r2.Settings)
}

func TestDecideSubjectMetering(t *testing.T) {
	t.Run("no mask", func(t *testing.T) {
		sc := grayScene(8, 8, 0.5)
		sc.Metering.Mode = "subject"
		_, err := sc.Decide()
		assert.ErrorIs(t, err, metering.ErrConfiguration)
	})

	t.Run("mask file", func(t *testing.T) {
		dir := t.TempDir()
		maskFile := filepath.Join(dir, "mask.png")
		writeGrayPNG(t, maskFile, 8, 8, func(x, y int) uint8 {
			if x < 4 { return 255 }
			return 0
		})

		sc := grayScene(8, 8, 0.5)
		sc.Metering.Mode = "subject"
		sc.Metering.MaskFile = maskFile
		sc.Algorithm = "semantic"

		_, err := sc.Decide()
		require.NoError(t, err)
		assert.Greater(t, sc.WeightMap.Get(0, 0), 0.0)
		assert.Equal(t, 0.0, sc.WeightMap.Get(7, 7))
	})

	t.Run("missing mask file", func(t *testing.T) {
		sc := grayScene(8, 8, 0.5)
		sc.Metering.Mode = "subject"
		sc.Metering.MaskFile = filepath.Join(t.TempDir(), "nope.png")
		_, err := sc.Decide()
		assert.ErrorIs(t, err, metering.ErrConfiguration)
	})
}

func TestDecideNoImage(t *testing.T) {
	sc := NewScene()
	_, err := sc.Decide()
	assert.ErrorIs(t, err, metering.ErrConfiguration)
}

func TestBaseSettings(t *testing.T) {
	sc := grayScene(4, 4, 0.5)
	assert.Equal(t, exposure.DefaultBase(), sc.BaseSettings())

	asShot := exposure.Settings{ShutterSeconds: 1.0/60.0, Aperture: 4, ISO: 400}
	sc.AsShot = &asShot
	assert.Equal(t, asShot, sc.BaseSettings())

	sc.UseExifBase = false
	assert.Equal(t, exposure.DefaultBase(), sc.BaseSettings())

	sc.UseExifBase = true
	sc.AsShot = &exposure.Settings{ShutterSeconds: 120, Aperture: 4, ISO: 400}
	assert.Equal(t, exposure.DefaultBase(), sc.BaseSettings(), "as-shot outside the constraints")
}

func TestLoadFilesAndDirs(t *testing.T) {
	dir := t.TempDir()
	cfg := "algorithm: entropy\npriority: iso\nae:\n  priorities:\n    midtonetarget: 0.25\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfg), 0644))
	writeGrayPNG(t, filepath.Join(dir, "scene.png"), 12, 8, func(x, y int) uint8 { return uint8(20 * x) })
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	sc := NewScene()
	require.NoError(t, sc.LoadFilesAndDirs(dir))

	assert.Equal(t, "entropy", sc.Algorithm)
	assert.Equal(t, "iso", sc.Priority)
	assert.Equal(t, 0.25, sc.AE.MidtoneTarget)
	assert.Equal(t, ae.DefaultPriorities().HighlightTolerance, sc.AE.HighlightTolerance, "unset fields keep their defaults")
	require.NotNil(t, sc.Image)
	assert.Equal(t, 12, sc.Image.Dx())
	assert.Nil(t, sc.AsShot)

	res, err := sc.Decide()
	require.NoError(t, err)
	assert.Equal(t, ae.StageEntropy, res.Trace.Chosen().Stage)
	assert.Equal(t, exposure.PriorityISO, res.Allocation.Priority)

	t.Run("only one image", func(t *testing.T) {
		assert.Error(t, sc.LoadFilesAndDirs(filepath.Join(dir, "scene.png")))
	})

	t.Run("missing file", func(t *testing.T) {
		fresh := NewScene()
		assert.Error(t, fresh.LoadFilesAndDirs(filepath.Join(dir, "nope.png")))
	})
}

func TestFinalizeConfig(t *testing.T) {
	require.NoError(t, NewConfig().FinalizeConfig())

	tests := []struct {
		name  string
		edit  func(*Config)
		want  error
	}{
		{"metering mode", func(c *Config) { c.Metering.Mode = "evaluative" }, metering.ErrConfiguration},
		{"metering params", func(c *Config) { c.Metering.CenterSigma = 0 }, metering.ErrConfiguration},
		{"algorithm", func(c *Config) { c.Algorithm = "matrix" }, ae.ErrInvalidParameter},
		{"tolerance", func(c *Config) { c.AE.HighlightTolerance = 2 }, ae.ErrInvalidParameter},
		{"priority", func(c *Config) { c.Priority = "program" }, exposure.ErrInvalidConstraints},
		{"constraints", func(c *Config) { c.Constraints.ApertureMax = 1 }, exposure.ErrInvalidConstraints},
		{"base", func(c *Config) { c.Base.ISO = 25 }, exposure.ErrInvalidConstraints},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConfig()
			tt.edit(&c)
			assert.ErrorIs(t, c.FinalizeConfig(), tt.want)
		})
	}
}

func TestConfigYamlNonFinite(t *testing.T) {
	c, err := newConfigFromYaml([]byte("ae:\n  sweepmin: .nan\n"))
	require.NoError(t, err)
	assert.ErrorIs(t, c.FinalizeConfig(), ae.ErrInvalidParameter)

	c, err = newConfigFromYaml([]byte("metering:\n  centersigma: .inf\n"))
	require.NoError(t, err)
	assert.ErrorIs(t, c.FinalizeConfig(), metering.ErrConfiguration)
}

func TestConfigYamlRoundTrip(t *testing.T) {
	c := NewConfig()
	c.Algorithm = "saliency"
	c.Constraints.ISOMax = 3200

	c2, err := newConfigFromYaml([]byte(c.AsYaml()))
	require.NoError(t, err)
	assert.Equal(t, c, c2)
}

func TestWriteDebugFiles(t *testing.T) {
	sc := gradientScene(16, 16)
	res, err := sc.Decide()
	require.NoError(t, err)

	prefix := filepath.Join(t.TempDir(), "dbg-")
	require.NoError(t, sc.WriteDebugFiles(res, prefix))
	for _, f := range []string{"weights.png", "histogram.png", "preview.png", "exposed.hdr", "decision.yaml"} {
		assert.FileExists(t, prefix + f)
	}

	_, err = loadImageFile(prefix + "exposed.hdr")
	assert.NoError(t, err, "the exposed scene reads back as RGBE")
}

func TestPreview(t *testing.T) {
	li := ecolor.NewUniformLinearImage(2, 2, 0.5, 0.5, 4.0)
	img := Preview(li, -1)

	c := img.RGBA64At(1, 1)
	assert.InDelta(t, 0.537*0xFFFF, float64(c.R), 0.001*0xFFFF)
	assert.Equal(t, uint16(0xFFFF), c.B, "over-exposed channels clip")
}

func TestSetupTonemapper(t *testing.T) {
	sc := gradientScene(8, 8)
	for _, name := range Tonemappers {
		op, err := SetupTonemapper(sc.Image, name)
		assert.NoError(t, err, name)
		assert.NotNil(t, op, name)
	}
	_, err := SetupTonemapper(sc.Image, "hable")
	assert.Error(t, err)
}
