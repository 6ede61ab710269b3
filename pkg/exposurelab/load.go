package exposurelab

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/tiff"

	"github.com/abworrall/exposurelab/pkg/ecolor"
	"github.com/abworrall/exposurelab/pkg/emath"
	"github.com/abworrall/exposurelab/pkg/exposure"
)

// LoadFilesAndDirs loads a config and a scene image from the args,
// recursing into directories. YAML files replace the config; image
// files become the scene. Only one image can be loaded.
func (sc *Scene)LoadFilesAndDirs(args ...string) (error) {
	for _, arg := range args {
		item, err := os.Stat(arg)

		switch {

		case err != nil:
			return fmt.Errorf("load %s: %v", arg, err)

		case item.IsDir():
			contents, err := os.ReadDir(arg)
			if err != nil {
				return fmt.Errorf("readdir %s: %v", arg, err)
			}
			for _, content := range contents {
				if err := sc.LoadFilesAndDirs(filepath.Join(arg, content.Name())); err != nil {
					return fmt.Errorf("load %s: %v", arg, err)
				}
			}

		default: // is a file, load it
			if err := sc.loadFile(arg); err != nil {
				return fmt.Errorf("loadfile %s: %v", arg, err)
			}
		}
	}

	return nil
}

func (sc *Scene)loadFile(filename string) error {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {

	case ".yaml", ".yml":
		cfg, err := loadConfig(filename)
		if err != nil {
			return fmt.Errorf("Loading %s as config YAML failed: %v", filename, err)
		}
		sc.Config = cfg
		sc.Log.Info("load", "loaded base configuration", map[string]interface{}{"file": filename})

	case ".hdr", ".tif", ".tiff", ".png", ".jpg", ".jpeg":
		if sc.Image != nil {
			return fmt.Errorf("already have a scene image (%s), can't also load %s", sc.SourceFilename, filename)
		}
		img, err := loadImageFile(filename)
		if err != nil {
			return err
		}
		sc.SetImage(img)
		sc.SourceFilename = filename

		if ext != ".hdr" && ext != ".png" {
			if as, err := loadExifExposure(filename); err != nil {
				sc.Log.Debug("load", "no usable EXIF exposure", map[string]interface{}{"file": filename, "err": err.Error()})
			} else {
				sc.AsShot = &as
			}
		}

		sc.Log.Info("load", "loaded scene image", map[string]interface{}{
			"file": filename, "bounds": sc.Image.Rect.String(), "asshot": sc.asShotString(),
		})

	default:
		sc.Log.Debug("load", "ignoring file", map[string]interface{}{"file": filename})
	}

	return nil
}

func loadConfig(filename string) (Config, error) {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("config read %s: %v", filename, err)
	}

	return newConfigFromYaml(contents)
}

// loadImageFile decodes any of the image formats we know about
func loadImageFile(filename string) (image.Image, error) {
	reader, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open+r img '%s': %v", filename, err)
	}
	defer reader.Close()

	var img image.Image
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".hdr":
		img, err = rgbe.Decode(reader)
	case ".tif", ".tiff":
		img, err = tiff.Decode(reader)
	default:
		img, _, err = image.Decode(reader)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding '%s': %v", filename, err)
	}
	return img, nil
}

func loadMask(filename string) (emath.FloatGrid, error) {
	img, err := loadImageFile(filename)
	if err != nil {
		return emath.FloatGrid{}, fmt.Errorf("subject mask: %v", err)
	}
	return ecolor.MaskFromImage(img), nil
}

// loadExifExposure pulls the as-shot exposure triple out of the EXIF.
// Exposure compensation is ignored, as it is informational; the
// FNumber/ExposureTime/ISO triple fully defines the exposure.
func loadExifExposure(filename string) (exposure.Settings, error) {
	s := exposure.Settings{}

	reader, err := os.Open(filename)
	if err != nil {
		return s, fmt.Errorf("open+r exif '%s': %v", filename, err)
	}
	defer reader.Close()

	ex, err := exif.Decode(reader)
	if err != nil {
		return s, fmt.Errorf("exif parsing '%s': %v", filename, err)
	}

	if tag,err := ex.Get(exif.ISOSpeedRatings); err != nil {
		return s, fmt.Errorf("exif ISO '%s': %v", filename, err)
	} else if val,err := tag.Int64(0); err != nil {
		return s, fmt.Errorf("exif ISO '%s': %v", filename, err)
	} else {
		s.ISO = float64(val)
	}

	if tag,err := ex.Get(exif.FNumber); err != nil {
		return s, fmt.Errorf("exif FNumber '%s': %v", filename, err)
	} else if num,denom,err := tag.Rat2(0); err != nil {
		return s, fmt.Errorf("exif FNumber '%s': %v", filename, err)
	} else if denom == 0 {
		return s, fmt.Errorf("exif FNumber '%s' has zero denominator", filename)
	} else {
		s.Aperture = float64(num) / float64(denom)
	}

	if tag,err := ex.Get(exif.ExposureTime); err != nil {
		return s, fmt.Errorf("exif ExposureTime '%s': %v", filename, err)
	} else if num,denom,err := tag.Rat2(0); err != nil {
		return s, fmt.Errorf("exif ExposureTime '%s': %v", filename, err)
	} else if denom == 0 {
		return s, fmt.Errorf("exif ExposureTime '%s' has zero denominator", filename)
	} else {
		s.ShutterSeconds = float64(num) / float64(denom)
	}

	return s, s.Validate()
}
