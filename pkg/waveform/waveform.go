package waveform

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknownKind is returned when a waveform kind name is not recognised.
var ErrUnknownKind = errors.New("unknown waveform kind")

// NoiseFraction is the peak noise of the noisy-sine kind relative to its amplitude.
const NoiseFraction = 0.1

// DefaultFrequency is used for derived configurations (radians per millisecond).
const DefaultFrequency = 0.001

// Kind selects the function used to synthesize a value.
type Kind uint8

const (
	// KindSine is a pure sine wave.
	KindSine Kind = iota + 1

	// KindNoisySine is a sine wave with uniform noise added.
	KindNoisySine

	// KindSquare is a symmetric square wave.
	KindSquare
)

// String returns the kind name as used in topology files.
func (k Kind) String() string {
	switch k {
	case KindSine:
		return "sine"
	case KindNoisySine:
		return "noisy-sine"
	case KindSquare:
		return "square"
	default:
		return "unknown"
	}
}

// IsValid returns true for the three supported kinds.
func (k Kind) IsValid() bool {
	return k >= KindSine && k <= KindSquare
}

// ParseKind converts a topology file name into a Kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "sine":
		return KindSine, nil
	case "noisy-sine", "noisy_sine", "noisySine":
		return KindNoisySine, nil
	case "square":
		return KindSquare, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
}

// Config holds the waveform parameters of a sensor.
type Config struct {
	Amplitude   float64 `yaml:"amplitude" json:"amplitude"`
	Frequency   float64 `yaml:"frequency" json:"frequency"`
	PhaseOffset float64 `yaml:"phaseOffset" json:"phaseOffset"`
	DCOffset    float64 `yaml:"dcOffset" json:"dcOffset"`
}

// DefaultConfig derives a configuration from a sensor's value range.
// The wave is centred in the range and swings across 80% of it, which
// leaves room for the noisy-sine noise term. Without both bounds a unit
// amplitude around zero is used.
func DefaultConfig(min, max *float64) Config {
	if min == nil || max == nil {
		return Config{Amplitude: 1, Frequency: DefaultFrequency}
	}
	return Config{
		Amplitude: 0.4 * (*max - *min),
		Frequency: DefaultFrequency,
		DCOffset:  (*min + *max) / 2,
	}
}

// Rand is the randomness source for the noisy-sine kind.
// *math/rand.Rand satisfies it.
type Rand interface {
	// Float64 returns a pseudo-random number in [0.0, 1.0).
	Float64() float64
}

// Evaluate returns the raw (unclamped) value of a waveform at t milliseconds.
// rng may be nil, in which case the noisy-sine kind behaves like sine.
// Unknown kinds evaluate to DCOffset.
func Evaluate(kind Kind, cfg Config, t float64, rng Rand) float64 {
	phase := cfg.Frequency*t + cfg.PhaseOffset

	switch kind {
	case KindSine:
		return cfg.DCOffset + cfg.Amplitude*math.Sin(phase)

	case KindNoisySine:
		v := cfg.DCOffset + cfg.Amplitude*math.Sin(phase)
		if rng != nil {
			v += (rng.Float64()*2 - 1) * cfg.Amplitude * NoiseFraction
		}
		return v

	case KindSquare:
		if math.Sin(phase) > 0 {
			return cfg.DCOffset + cfg.Amplitude
		}
		return cfg.DCOffset - cfg.Amplitude

	default:
		return cfg.DCOffset
	}
}

// Clamp limits v to [min, max] when both bounds are present.
func Clamp(v float64, min, max *float64) float64 {
	if min == nil || max == nil {
		return v
	}
	if v < *min {
		return *min
	}
	if v > *max {
		return *max
	}
	return v
}

// Generate evaluates a waveform and clamps the result.
func Generate(kind Kind, cfg Config, t float64, min, max *float64, rng Rand) float64 {
	return Clamp(Evaluate(kind, cfg, t, rng), min, max)
}

// Millis converts a Unix time in nanoseconds to the millisecond time base.
func Millis(unixNano int64) float64 {
	return float64(unixNano) / 1e6
}
