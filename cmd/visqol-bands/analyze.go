package main

import (
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-visqol/alignment"
	"github.com/cwbudde/algo-visqol/signal"
	"github.com/cwbudde/algo-visqol/similarity"
	"github.com/cwbudde/algo-visqol/visqol"
)

const (
	fftSize = 4096
	fftHop  = 2048
)

type bandRow struct {
	CenterFreq float64 `json:"center_freq"`
	// Mean prepared neurogram level, dB above the common floor.
	RefLevel float64 `json:"ref_level"`
	DegLevel float64 `json:"deg_level"`
	NSIM     float64 `json:"nsim"`
	// SpectrumDiffDB is the long-term spectral level of deg relative to ref
	// over the band's ERB-neighbourhood.
	SpectrumDiffDB float64 `json:"spectrum_diff_db"`
}

type bandReport struct {
	SampleRate  int       `json:"sample_rate"`
	Frames      int       `json:"frames"`
	Lag         int       `json:"lag_samples"`
	Correlation float64   `json:"correlation"`
	Reliable    bool      `json:"reliable"`
	NSIM        float64   `json:"nsim"`
	Bands       []bandRow `json:"bands"`
}

// analyze aligns deg to ref and reports per-band neurogram statistics over
// the full overlapping span.
func analyze(comp *visqol.Components, ref, deg signal.Signal) (*bandReport, error) {
	if ref.SampleRate != deg.SampleRate {
		return nil, fmt.Errorf("sample rates differ: %d vs %d", ref.SampleRate, deg.SampleRate)
	}
	est, err := alignment.EstimateLag(ref, deg, comp.Alignment)
	if err != nil {
		return nil, err
	}
	aligned := deg
	if est.Reliable && est.Lag != 0 {
		aligned = alignment.Shift(deg, est.Lag)
	}

	w, err := comp.Window(ref.SampleRate)
	if err != nil {
		return nil, err
	}
	refSpec, degSpec, err := comp.Neurograms(ref, aligned, w)
	if err != nil {
		return nil, err
	}
	n := min(refSpec.NumFrames(), degSpec.NumFrames())
	if n == 0 {
		return nil, fmt.Errorf("signals are shorter than one analysis window")
	}

	mean, bandNSIM := similarity.NSIM(refSpec, degSpec, 0, 0, n)
	diffs, err := spectrumDiffs(ref.Samples, aligned.Samples, ref.SampleRate, refSpec.CenterFreqs)
	if err != nil {
		return nil, err
	}

	rep := &bandReport{
		SampleRate:  ref.SampleRate,
		Frames:      n,
		Lag:         est.Lag,
		Correlation: est.Correlation,
		Reliable:    est.Reliable,
		NSIM:        mean,
		Bands:       make([]bandRow, refSpec.NumBands()),
	}
	for b := range rep.Bands {
		rep.Bands[b] = bandRow{
			CenterFreq:     refSpec.CenterFreqs[b],
			RefLevel:       stat.Mean(refSpec.Data[b][:n], nil),
			DegLevel:       stat.Mean(degSpec.Data[b][:n], nil),
			NSIM:           bandNSIM[b],
			SpectrumDiffDB: diffs[b],
		}
	}
	return rep, nil
}

// spectrumDiffs averages Hann-windowed magnitude spectra of both signals and
// returns deg/ref in dB for each band. Band edges sit halfway between
// neighbouring centre frequencies on a log axis.
func spectrumDiffs(ref, deg []float64, sr int, centers []float64) ([]float64, error) {
	out := make([]float64, len(centers))
	n := min(len(ref), len(deg))
	if n < fftSize {
		return out, nil
	}

	plan, err := algofft.NewPlanReal64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("fft plan: %w", err)
	}
	hann := make([]float64, fftSize)
	for i := range hann {
		hann[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(fftSize-1))
	}

	nBins := fftSize / 2
	avgRef := make([]float64, nBins)
	avgDeg := make([]float64, nBins)
	specRef := make([]complex128, nBins+1)
	specDeg := make([]complex128, nBins+1)
	bufRef := make([]float64, fftSize)
	bufDeg := make([]float64, fftSize)
	for pos := 0; pos+fftSize <= n; pos += fftHop {
		for i := 0; i < fftSize; i++ {
			bufRef[i] = ref[pos+i] * hann[i]
			bufDeg[i] = deg[pos+i] * hann[i]
		}
		plan.Forward(specRef, bufRef)
		plan.Forward(specDeg, bufDeg)
		for k := 1; k < nBins; k++ {
			avgRef[k] += cmplx.Abs(specRef[k])
			avgDeg[k] += cmplx.Abs(specDeg[k])
		}
	}

	binHz := float64(sr) / float64(fftSize)
	for b := range centers {
		lo, hi := bandEdges(centers, b)
		eRef, eDeg := 0.0, 0.0
		for k := 1; k < nBins; k++ {
			f := float64(k) * binHz
			if f < lo || f >= hi {
				continue
			}
			eRef += avgRef[k] * avgRef[k]
			eDeg += avgDeg[k] * avgDeg[k]
		}
		if eRef <= 0 && eDeg <= 0 {
			continue
		}
		out[b] = 10 * math.Log10(math.Max(eDeg, 1e-20)/math.Max(eRef, 1e-20))
	}
	return out, nil
}

func bandEdges(centers []float64, b int) (float64, float64) {
	cf := centers[b]
	lo, hi := cf/math.Sqrt2, cf*math.Sqrt2
	if b > 0 {
		lo = math.Sqrt(centers[b-1] * cf)
	}
	if b+1 < len(centers) {
		hi = math.Sqrt(cf * centers[b+1])
	}
	return lo, hi
}
