// Package exposurelab runs the whole auto-exposure pipeline on a scene:
// load it, meter it, pick an EV, and turn that EV into camera settings.
package exposurelab

import(
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"

	"github.com/abworrall/exposurelab/pkg/ae"
	"github.com/abworrall/exposurelab/pkg/ecolor"
	"github.com/abworrall/exposurelab/pkg/emath"
	"github.com/abworrall/exposurelab/pkg/exposure"
	"github.com/abworrall/exposurelab/pkg/logger"
	"github.com/abworrall/exposurelab/pkg/metering"
)

// A Scene holds the input image and the config, and runs the pipeline
// over them.
type Scene struct {
	Config

	Image           *ecolor.LinearImage
	SourceFilename    string
	AsShot          *exposure.Settings     // from EXIF, if the input had any
	Mask            *emath.FloatGrid       // subject mask, for subject metering

	WeightMap         emath.FloatGrid      // filled in by Meter

	Log               logger.Logger
}

// A Result is the outcome of one decision
type Result struct {
	ID            string                  `yaml:"id"`
	Settings      exposure.Settings       `yaml:"settings"`
	Trace         ae.Trace                `yaml:"trace"`
	Allocation    exposure.AllocationLog  `yaml:"allocation"`
	Elapsed       time.Duration           `yaml:"elapsed"`
}

func (r Result)String() string {
	return fmt.Sprintf("decision %s: %s (EV %+.2f, took %s)", r.ID, r.Settings, r.Trace.ChosenEV, r.Elapsed)
}

func NewScene() Scene {
	return Scene{
		Config: NewConfig(),
		Log:    logger.Nop(),
	}
}

func (sc *Scene)SetImage(img image.Image) {
	sc.Image = ecolor.FromImage(img)
	sc.WeightMap = emath.FloatGrid{}
}

func (sc Scene)String() string {
	if sc.Image == nil {
		return "Scene[no image]"
	}
	return fmt.Sprintf("Scene[%s %s, as-shot %s]", sc.SourceFilename, sc.Image.Rect, sc.asShotString())
}

func (sc Scene)asShotString() string {
	if sc.AsShot == nil { return "unknown" }
	return sc.AsShot.String()
}

// Meter generates the weight map for the configured metering mode,
// loading the subject mask from disk if needed.
func (sc *Scene)Meter() error {
	if sc.Image == nil {
		return fmt.Errorf("%w: no scene image loaded", metering.ErrConfiguration)
	}

	mode, err := sc.GetMeteringMode()
	if err != nil {
		return err
	}

	params := sc.Config.Metering.Params
	if mode == metering.ModeSubject {
		if sc.Mask == nil && sc.Config.Metering.MaskFile != "" {
			mask, err := loadMask(sc.Config.Metering.MaskFile)
			if err != nil {
				return fmt.Errorf("%w: %v", metering.ErrConfiguration, err)
			}
			sc.Mask = &mask
		}
		params.SubjectMask = sc.Mask
	}

	wm, err := metering.GenerateWeightMap(sc.Image, mode, params)
	if err != nil {
		return err
	}
	sc.WeightMap = wm

	if wm.Sum() == 0 {
		sc.Log.Warning("meter", "weight map is empty; no pixel was metered", map[string]interface{}{"mode": mode})
	} else {
		sc.Log.Debug("meter", "weight map", map[string]interface{}{"mode": mode, "stats": wm.Stats()})
	}
	return nil
}

// BaseSettings picks the reference exposure for the allocator: the
// as-shot EXIF settings when we have them (and the camera could have
// used them), otherwise the configured base.
func (sc Scene)BaseSettings() exposure.Settings {
	if sc.UseExifBase && sc.AsShot != nil {
		if err := sc.Constraints.Admits(*sc.AsShot); err == nil {
			return *sc.AsShot
		} else {
			sc.Log.Warning("allocate", "as-shot settings outside constraints, using configured base",
				map[string]interface{}{"asshot": sc.AsShot.String(), "err": err.Error()})
		}
	}
	return sc.Base
}

// Decide runs the full pipeline: meter, select an EV, allocate it.
func (sc *Scene)Decide() (Result, error) {
	start := time.Now()
	res := Result{ID: uuid.New().String()}

	if err := sc.Config.FinalizeConfig(); err != nil {
		return Result{}, err
	}
	algo, _ := sc.GetAlgorithm()
	prio, _ := sc.GetPriority()

	if err := sc.Meter(); err != nil {
		return Result{}, err
	}

	aeScene, err := ae.NewScene(sc.Image, sc.WeightMap)
	if err != nil {
		return Result{}, err
	}

	trace, err := ae.Select(aeScene, algo, sc.AE)
	if err != nil {
		sc.Log.Error("select", err, map[string]interface{}{"id": res.ID, "algorithm": algo.Name()})
		return Result{}, err
	}
	res.Trace = trace

	sc.Log.Info("select", "chose EV", map[string]interface{}{
		"id": res.ID, "algorithm": algo.Name(), "ev": trace.ChosenEV,
		"relaxations": trace.Relaxations, "why": trace.Justification,
	})
	if sc.Verbosity > 0 {
		sc.Log.Debug("select", "trace\n" + trace.String(), map[string]interface{}{"id": res.ID})
	}

	settings, alloc, err := exposure.Allocate(trace.ChosenEV, sc.BaseSettings(), sc.Constraints, prio)
	if err != nil {
		sc.Log.Error("allocate", err, map[string]interface{}{"id": res.ID})
		return Result{}, err
	}
	res.Settings = settings
	res.Allocation = alloc

	fields := map[string]interface{}{
		"id": res.ID, "settings": settings.String(), "achieved": alloc.AchievedEV, "shortfall": alloc.Shortfall,
	}
	if len(alloc.Hits) > 0 {
		fields["hits"] = alloc.Hits
	}
	sc.Log.Info("allocate", "allocated exposure", fields)

	res.Elapsed = time.Since(start)
	return res, nil
}

// ManipulatedAt rebuilds the manipulated histogram for one EV, for
// plotting and debugging; Meter must have run.
func (sc *Scene)ManipulatedAt(ev float64) (ae.Manipulated, error) {
	algo, err := sc.GetAlgorithm()
	if err != nil {
		return ae.Manipulated{}, err
	}
	aeScene, err := ae.NewScene(sc.Image, sc.WeightMap)
	if err != nil {
		return ae.Manipulated{}, err
	}
	return ae.BuildManipulated(aeScene, ev, algo, sc.AE), nil
}
