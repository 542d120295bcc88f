package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// PowerSpectrum returns the magnitude of the first half of the spectrum of
// the mean-removed series. NaN samples are treated as the mean.
func PowerSpectrum(data []float64) []float64 {
	if len(data) < 2 {
		return nil
	}
	centered := center(data)
	spectrum := fft.FFTReal(centered)
	ps := make([]float64, len(spectrum)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(spectrum[i])
	}
	return ps
}

// DominantFrequency returns the frequency in Hz of the strongest non-DC
// bin for samples taken every dt seconds, and its magnitude. A constant
// series reports zero.
func DominantFrequency(data []float64, dt float64) (freq, power float64) {
	ps := PowerSpectrum(data)
	if len(ps) < 2 || !(dt > 0) {
		return 0, 0
	}
	best := 0
	for k := 1; k < len(ps); k++ {
		if ps[k] > ps[best] || best == 0 {
			best = k
		}
	}
	if ps[best] < 1e-12 {
		return 0, 0
	}
	return float64(best) / (float64(len(data)) * dt), ps[best]
}

func center(data []float64) []float64 {
	s := Summarize(data)
	out := make([]float64, len(data))
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[i] = v - s.Mean
	}
	return out
}

type Summary struct {
	Count    int
	Min, Max float64
	Mean     float64
	RMS      float64
}

// Summarize skips non-finite samples, so series of broken links still
// summarize what was recorded before the break.
func Summarize(data []float64) Summary {
	s := Summary{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum, sq float64
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		s.Count++
		sum += v
		sq += v * v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	if s.Count == 0 {
		return Summary{}
	}
	s.Mean = sum / float64(s.Count)
	s.RMS = math.Sqrt(sq / float64(s.Count))
	return s
}
