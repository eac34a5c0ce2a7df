package fitting

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// DefaultClipLevel is the digitizer full-scale value for normalized signals
const DefaultClipLevel = 0.98

// SignalAnalyzer works directly on raw captured signals
type SignalAnalyzer struct {
	ClipLevel float64
}

// NewSignalAnalyzer creates an analyzer; a non-positive clip level selects DefaultClipLevel
func NewSignalAnalyzer(clipLevel float64) *SignalAnalyzer {
	if clipLevel <= 0 {
		clipLevel = DefaultClipLevel
	}
	return &SignalAnalyzer{ClipLevel: clipLevel}
}

// MaxIntensity returns the largest FT magnitude of the signal, excluding DC
func (a *SignalAnalyzer) MaxIntensity(signal []float64) float64 {
	mags := Spectrum(signal)
	if len(mags) < 2 {
		return 0
	}
	return floats.Max(mags[1:])
}

// IsSaturated reports whether the signal reaches the clip level
func (a *SignalAnalyzer) IsSaturated(signal []float64) bool {
	if len(signal) == 0 {
		return false
	}
	peak := math.Max(floats.Max(signal), -floats.Min(signal))
	return peak >= a.ClipLevel
}

// Spectrum returns the single-sided FT magnitude of a real signal
func Spectrum(signal []float64) []float64 {
	n := len(signal)
	if n < 2 {
		return nil
	}
	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, signal)

	mags := make([]float64, len(coeffs))
	for i, c := range coeffs {
		mags[i] = 2 * cmplx.Abs(c) / float64(n)
	}
	return mags
}
