package analysis

import (
	"math/cmplx"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

var ErrTooShort = errors.New("series too short")

// Spectrum returns the one-sided amplitude spectrum of series sampled every
// dt seconds. The mean is removed first, so amps[0] is zero for any
// constant offset.
func Spectrum(series []float64, dt float64) (freqs, amps []float64, err error) {
	n := len(series)
	if n < 4 {
		return nil, nil, errors.Wrapf(ErrTooShort, "%d samples", n)
	}
	if dt <= 0 {
		return nil, nil, errors.Errorf("sample period must be positive, got %g", dt)
	}

	mean := stat.Mean(series, nil)
	centered := make([]float64, n)
	for i, x := range series {
		centered[i] = x - mean
	}

	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, centered)
	freqs = make([]float64, len(coeff))
	amps = make([]float64, len(coeff))
	for i, c := range coeff {
		freqs[i] = fft.Freq(i) / dt
		amps[i] = 2 * cmplx.Abs(c) / float64(n)
	}
	return freqs, amps, nil
}

// DominantFrequency is the frequency of the largest non-DC spectral peak.
func DominantFrequency(series []float64, dt float64) (float64, error) {
	freqs, amps, err := Spectrum(series, dt)
	if err != nil {
		return 0, err
	}
	best := 1
	for i := 2; i < len(amps); i++ {
		if amps[i] > amps[best] {
			best = i
		}
	}
	return freqs[best], nil
}
