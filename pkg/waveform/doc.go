// Package waveform generates synthetic sensor values.
//
// A sensor's value is a pure function of its waveform kind, its waveform
// configuration and a timestamp. The only source of non-determinism is the
// noise term of the noisy-sine kind, which is drawn from a caller-provided
// random source so tests can pin it.
//
// # Kinds
//
//   - sine: DCOffset + Amplitude*sin(Frequency*t + PhaseOffset)
//   - noisy-sine: sine plus uniform noise in [-0.1*Amplitude, +0.1*Amplitude]
//   - square: DCOffset + Amplitude while sin(Frequency*t + PhaseOffset) > 0,
//     DCOffset - Amplitude otherwise (symmetric)
//
// # Time Base
//
// t is expressed in milliseconds. With the default frequency of 0.001 a
// full sine period lasts 2π seconds.
//
// # Clamping
//
// Results are clamped to [min, max] only when both bounds are present.
package waveform
