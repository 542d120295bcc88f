package analysis

import (
	"math"
	"strings"
	"testing"
)

func sine(freq, dt float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 2 + math.Sin(2*math.Pi*freq*float64(i)*dt)
	}
	return out
}

func TestDominantFrequency(t *testing.T) {
	dt := 1.0 / 60
	for _, freq := range []float64{0.5, 1.5, 4} {
		got, power := DominantFrequency(sine(freq, dt, 600), dt)
		// 600 samples over 10 s gives 0.1 Hz bins.
		if math.Abs(got-freq) > 0.1 {
			t.Errorf("expected %f Hz, got %f", freq, got)
		}
		if power <= 0 {
			t.Errorf("expected positive power at %f Hz", freq)
		}
	}
}

func TestDominantFrequencyConstant(t *testing.T) {
	data := []float64{3, 3, 3, 3, 3, 3, 3, 3}
	if f, p := DominantFrequency(data, 0.1); f != 0 || p != 0 {
		t.Errorf("expected no frequency, got %f %f", f, p)
	}
	if f, _ := DominantFrequency(nil, 0.1); f != 0 {
		t.Error("expected zero for empty series")
	}
}

func TestPowerSpectrumLength(t *testing.T) {
	ps := PowerSpectrum(sine(1, 0.01, 100))
	if len(ps) != 50 {
		t.Errorf("expected 50 bins, got %d", len(ps))
	}
	if ps[0] > 1e-9 {
		t.Errorf("expected mean removed, DC bin = %f", ps[0])
	}
}

func TestSummarizeSkipsNaN(t *testing.T) {
	s := Summarize([]float64{1, math.NaN(), 3, math.Inf(1)})
	if s.Count != 2 || s.Min != 1 || s.Max != 3 || s.Mean != 2 {
		t.Errorf("unexpected summary %+v", s)
	}
	if math.Abs(s.RMS-math.Sqrt(5)) > 1e-12 {
		t.Errorf("expected rms sqrt(5), got %f", s.RMS)
	}
	if Summarize(nil).Count != 0 {
		t.Error("expected empty summary")
	}
}

func TestPhasePortrait(t *testing.T) {
	xs := []float64{0, 1, math.NaN(), -1}
	ys := []float64{1, 0, 0, -1, 5}
	p := NewPhasePortrait(xs, ys)
	if len(p.Points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(p.Points))
	}
	art := PhasePortraitToASCII(p, 20, 10)
	if strings.Count(art, "\n") != 10 {
		t.Errorf("expected 10 rows, got %q", art)
	}
	if !strings.Contains(art, "•") {
		t.Error("expected plotted points")
	}
	if PhasePortraitToASCII(&PhasePortrait2D{}, 10, 5) != "" {
		t.Error("expected empty art for empty portrait")
	}
}
