package topology

import (
	"strconv"
	"strings"
	"time"

	"github.com/adsim-project/adsim-go/pkg/waveform"
)

// SensorsPerModule is the fixed number of sensors every module carries.
const SensorsPerModule = 3

// IndexPlaceholder is replaced by the module index in name patterns.
const IndexPlaceholder = "{index}"

// DefaultUpdateInterval is used when the topology does not set one.
const DefaultUpdateInterval = 5 * time.Second

// Topology describes the simulated controller layout.
type Topology struct {
	// ModuleCount is the number of modules, 1 to 65535 so every module
	// has its own uint16 address.
	ModuleCount int `yaml:"moduleCount" validate:"min=1,max=65535"`

	// UpdateIntervalMs is the value refresh interval in milliseconds.
	UpdateIntervalMs int `yaml:"updateIntervalMs" validate:"gte=0"`

	// Templates are applied to modules in order, cycling when exhausted.
	Templates []ModuleTemplate `yaml:"templates" validate:"min=1,dive"`
}

// ModuleTemplate describes one kind of module.
type ModuleTemplate struct {
	// NamePattern is the module name; {index} is replaced by the module index.
	NamePattern string `yaml:"namePattern" validate:"required"`

	// Status is reported as the module status (e.g. "running").
	Status string `yaml:"status,omitempty"`

	// Sensors holds exactly three sensor templates.
	Sensors []SensorTemplate `yaml:"sensors" validate:"len=3,dive"`
}

// SensorTemplate describes one sensor of a module template.
type SensorTemplate struct {
	Name string `yaml:"name" validate:"required"`
	Type string `yaml:"type,omitempty"`
	Unit string `yaml:"unit,omitempty"`

	// MinValue and MaxValue bound the generated value; nil means unbounded.
	MinValue *float64 `yaml:"minValue,omitempty"`
	MaxValue *float64 `yaml:"maxValue,omitempty"`

	// WaveformKind is one of "sine", "noisy-sine", "square".
	WaveformKind string `yaml:"waveformKind" validate:"required,waveform"`

	// WaveformConfig is optional; a range-derived default is used when absent.
	WaveformConfig *waveform.Config `yaml:"waveformConfig,omitempty"`
}

// Kind returns the parsed waveform kind. Validated templates always parse;
// an invalid name yields the zero Kind.
func (s SensorTemplate) Kind() waveform.Kind {
	k, _ := waveform.ParseKind(s.WaveformKind)
	return k
}

// Config returns the explicit waveform configuration or the range-derived default.
func (s SensorTemplate) Config() waveform.Config {
	if s.WaveformConfig != nil {
		return *s.WaveformConfig
	}
	return waveform.DefaultConfig(s.MinValue, s.MaxValue)
}

// UpdateInterval returns the refresh interval, defaulting to 5s.
func (t *Topology) UpdateInterval() time.Duration {
	if t.UpdateIntervalMs <= 0 {
		return DefaultUpdateInterval
	}
	return time.Duration(t.UpdateIntervalMs) * time.Millisecond
}

// TemplateFor returns the template used by the module with the given 1-based index.
func (t *Topology) TemplateFor(moduleIndex int) ModuleTemplate {
	return t.Templates[(moduleIndex-1)%len(t.Templates)]
}

// SensorCount returns the total number of addressable sensors.
func (t *Topology) SensorCount() int {
	return t.ModuleCount * SensorsPerModule
}

// ExpandName substitutes the {index} placeholder in a name pattern.
func ExpandName(pattern string, index int) string {
	return strings.ReplaceAll(pattern, IndexPlaceholder, strconv.Itoa(index))
}

func float(v float64) *float64 { return &v }

// Default returns the built-in topology used when no file can be loaded:
// five production-line modules with temperature, pressure and vibration
// sensors refreshed every five seconds.
func Default() *Topology {
	return &Topology{
		ModuleCount:      5,
		UpdateIntervalMs: 5000,
		Templates: []ModuleTemplate{
			{
				NamePattern: "Production Line {index}",
				Status:      "running",
				Sensors: []SensorTemplate{
					{
						Name:         "Temperature {index}",
						Type:         "temperature",
						Unit:         "°C",
						MinValue:     float(0),
						MaxValue:     float(100),
						WaveformKind: waveform.KindSine.String(),
						WaveformConfig: &waveform.Config{
							Amplitude: 30, Frequency: 0.001, DCOffset: 50,
						},
					},
					{
						Name:         "Pressure {index}",
						Type:         "pressure",
						Unit:         "bar",
						MinValue:     float(0),
						MaxValue:     float(10),
						WaveformKind: waveform.KindNoisySine.String(),
						WaveformConfig: &waveform.Config{
							Amplitude: 2, Frequency: 0.002, DCOffset: 5,
						},
					},
					{
						Name:         "Vibration {index}",
						Type:         "vibration",
						Unit:         "mm/s",
						MinValue:     float(0),
						MaxValue:     float(20),
						WaveformKind: waveform.KindSquare.String(),
						WaveformConfig: &waveform.Config{
							Amplitude: 5, Frequency: 0.0005, DCOffset: 10,
						},
					},
				},
			},
		},
	}
}
