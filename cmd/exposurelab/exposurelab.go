package main

import(
	"flag"
	"fmt"
	"log"

	"github.com/codahale/hdrhistogram"

	"github.com/abworrall/exposurelab/pkg/ae"
	"github.com/abworrall/exposurelab/pkg/exposurelab"
	"github.com/abworrall/exposurelab/pkg/logger"
)

var(
	fVerbosity int
	fMetering string
	fMaskFile string
	fAlgorithm string
	fPriority string
	fNorm string
	fMidtone float64
	fOutputPrefix string
	fTonemapper string
	fRepeat int
)

func init() {
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")
	flag.StringVar(&fMetering, "metering", "", "metering mode: matrix, center, spot, subject")
	flag.StringVar(&fMaskFile, "mask", "", "grayscale subject mask image, for subject metering")
	flag.StringVar(&fAlgorithm, "algorithm", "", "AE algorithm: global, semantic, saliency, entropy")
	flag.StringVar(&fPriority, "priority", "", "allocation priority: shutter, aperture, iso, balanced")
	flag.StringVar(&fNorm, "norm", "", "relaxation penalty norm: l1, l2, linf")
	flag.Float64Var(&fMidtone, "midtone", -1, "midtone target for the median luminance (0.0->1.0)")
	flag.StringVar(&fOutputPrefix, "out", "", "if set, write debug images and the decision yaml with this filename prefix")
	flag.StringVar(&fTonemapper, "tonemapper", "", "also write a tone mapped reference image: "+exposurelab.ListTonemappers())
	flag.IntVar(&fRepeat, "repeat", 1, "run the decision this many times, and report latency")
	flag.Parse()

	log.Printf("exposurelab starting\n")
}

func main() {
	sc := exposurelab.NewScene()
	sc.Log = logger.NewConsoleLogger(logger.LevelForVerbosity(fVerbosity))

	if err := sc.LoadFilesAndDirs(flag.Args()...); err != nil {
		log.Fatal(err)
	}

	// Override the config file with command line args, if relevant
	if fMetering != ""     { sc.Config.Metering.Mode = fMetering }
	if fMaskFile != ""     { sc.Config.Metering.MaskFile = fMaskFile }
	if fAlgorithm != ""    { sc.Config.Algorithm = fAlgorithm }
	if fPriority != ""     { sc.Config.Priority = fPriority }
	if fNorm != ""         { sc.Config.AE.Norm = ae.Norm(fNorm) }
	if fMidtone >= 0       { sc.Config.AE.MidtoneTarget = fMidtone }
	if fOutputPrefix != "" { sc.Config.OutputPrefix = fOutputPrefix }
	if fVerbosity > 0      { sc.Config.Verbosity = fVerbosity }

	if sc.Verbosity > 0 {
		log.Printf("Final configuration:-\n\n%s\n", sc.Config.AsYaml())
	}

	if sc.Image == nil {
		log.Fatal("no scene image given (want a .hdr, .tif, .png or .jpg)")
	}

	var res exposurelab.Result
	latency := hdrhistogram.New(1, 60*1000*1000, 3) // microseconds
	for i:=0; i<fRepeat || i == 0; i++ {
		r, err := sc.Decide()
		if err != nil {
			log.Fatalf("decision failed: %v\n", err)
		}
		if err := latency.RecordValue(r.Elapsed.Microseconds()); err != nil {
			log.Printf("latency %s not recorded: %v\n", r.Elapsed, err)
		}
		res = r
	}

	fmt.Printf("%s\n\n%s\n%s\n", sc, res.Trace, res.Allocation)
	fmt.Printf("Settings: %s\n", res.Settings)

	if fRepeat > 1 {
		fmt.Printf("Latency over %d runs: p50 %dus, p99 %dus, max %dus\n", latency.TotalCount(),
			latency.ValueAtQuantile(50), latency.ValueAtQuantile(99), latency.Max())
	}

	if sc.OutputPrefix != "" {
		if err := sc.WriteDebugFiles(res, sc.OutputPrefix); err != nil {
			log.Fatalf("writing debug files: %v\n", err)
		}
	}

	if fTonemapper != "" {
		if err := sc.Tonemap(fTonemapper, fmt.Sprintf("%stmo-%s.png", sc.OutputPrefix, fTonemapper)); err != nil {
			log.Fatal(err)
		}
	}
}
