package exposurelab

import(
	"fmt"
	"log"

	"gopkg.in/yaml.v2"

	"github.com/abworrall/exposurelab/pkg/ae"
	"github.com/abworrall/exposurelab/pkg/exposure"
	"github.com/abworrall/exposurelab/pkg/metering"
)

/* Example config file ...

metering:
  mode: subject
  maskfile: subject-mask.png
  subjectthreshold: 0.5
algorithm: semantic
ae:
  sweepmin: -4
  sweepmax: 4
  sweepstep: 0.3333333333
  norm: l2
  priorities:
    highlighttolerance: 0.02
    shadowtolerance: 0.05
    shadowthreshold: 0.01
    midtonetarget: 0.18
priority: aperture
constraints:
  isomin: 100
  isomax: 3200
  shuttermin: 0.000125
  shuttermax: 0.5
  aperturemin: 2.8
  aperturemax: 16
  quantizationstep: 0.3333333333
base:
  shutterseconds: 0.008
  aperture: 8
  iso: 100

*/

type MeteringConfig struct {
	Mode             string  `yaml:"mode"`
	MaskFile         string  `yaml:"maskfile"`
	metering.Params          `yaml:",inline"`
}

type Config struct {
	Verbosity       int                    `yaml:"verbosity"`

	Metering        MeteringConfig         `yaml:"metering"`
	Algorithm       string                 `yaml:"algorithm"`
	AE              ae.Config              `yaml:"ae"`

	Priority        string                 `yaml:"priority"`
	Constraints     exposure.Constraints   `yaml:"constraints"`
	Base            exposure.Settings      `yaml:"base"`         // reference exposure for the allocator
	UseExifBase     bool                   `yaml:"useexifbase"`  // prefer the as-shot settings, if the input has EXIF

	OutputPrefix    string                 `yaml:"outputprefix"` // if set, debug files get written
}

func NewConfig() Config {
	return Config{
		Metering:    MeteringConfig{Mode: string(metering.ModeMatrix), Params: metering.DefaultParams()},
		Algorithm:   "global",
		AE:          ae.DefaultConfig(),
		Priority:    string(exposure.PriorityBalanced),
		Constraints: exposure.DefaultConstraints(),
		Base:        exposure.DefaultBase(),
		UseExifBase: true,
	}
}

func newConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("config yaml: %v", err)
	}
	return c, nil
}

func (c Config)AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		log.Fatalf("Can't marshal config yaml: %v\n", err)
	}
	return string(b)
}

// FinalizeConfig checks that everything named in the config exists,
// and that all the numbers are in range.
func (c Config)FinalizeConfig() error {
	if _, err := c.GetMeteringMode(); err != nil { return err }
	if err := c.Metering.Params.Validate(); err != nil { return err }
	if _, err := c.GetAlgorithm(); err != nil { return err }
	if err := c.AE.Validate(); err != nil { return err }
	if _, err := c.GetPriority(); err != nil { return err }
	if err := c.Constraints.Validate(); err != nil { return err }
	if err := c.Constraints.Admits(c.Base); err != nil {
		return fmt.Errorf("base settings: %w", err)
	}
	return nil
}

func (c Config)GetMeteringMode() (metering.Mode, error) {
	return metering.ParseMode(c.Metering.Mode)
}

func (c Config)GetAlgorithm() (ae.Algorithm, error) {
	return ae.ParseAlgorithm(c.Algorithm)
}

func (c Config)GetPriority() (exposure.Priority, error) {
	return exposure.ParsePriority(c.Priority)
}
