// Package alignment removes a constant time offset between a reference and
// a degraded signal.
package alignment

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/cwbudde/algo-fft"

	"github.com/cwbudde/algo-visqol/signal"
)

const (
	DefaultMaxLagSeconds  = 1.0
	DefaultMinCorrelation = 0.1
)

const (
	coarseTolerance = 1e-4
	maxCandidates   = 64
)

var ErrSampleRateMismatch = errors.New("alignment: sample rates differ")

// Options bounds the lag search.
type Options struct {
	MaxLagSeconds float64
	// MinCorrelation is the normalised peak below which no lag is applied.
	MinCorrelation float64
	// MinRemainingSeconds limits positive lags so that at least this much
	// of the degraded signal survives trimming.
	MinRemainingSeconds float64
}

func DefaultOptions() Options {
	return Options{
		MaxLagSeconds:  DefaultMaxLagSeconds,
		MinCorrelation: DefaultMinCorrelation,
	}
}

// Estimate describes the best lag found. A positive Lag means the degraded
// signal starts late.
type Estimate struct {
	Lag         int
	Correlation float64
	Reliable    bool
}

// GloballyAlign shifts deg by the single lag that maximises its
// cross-correlation with ref. Late signals are trimmed at the front, early
// ones are padded with leading zeros. When no reliable lag exists deg is
// returned unchanged with lag 0. deg is never modified in place.
func GloballyAlign(ref, deg signal.Signal, opts Options) (signal.Signal, int, error) {
	est, err := EstimateLag(ref, deg, opts)
	if err != nil {
		return signal.Signal{}, 0, err
	}
	if !est.Reliable || est.Lag == 0 {
		return deg, 0, nil
	}
	return Shift(deg, est.Lag), est.Lag, nil
}

// Shift applies lag to s: positive trims, negative prepends zeros.
func Shift(s signal.Signal, lag int) signal.Signal {
	switch {
	case lag > 0:
		if lag >= len(s.Samples) {
			return signal.New(nil, s.SampleRate)
		}
		return signal.New(append([]float64(nil), s.Samples[lag:]...), s.SampleRate)
	case lag < 0:
		out := make([]float64, -lag+len(s.Samples))
		copy(out[-lag:], s.Samples)
		return signal.New(out, s.SampleRate)
	default:
		return s
	}
}

// EstimateLag finds the lag maximising sum(deg[n+lag]*ref[n]) within
// ±MaxLagSeconds. Equal peaks resolve to the smallest |lag|.
func EstimateLag(ref, deg signal.Signal, opts Options) (Estimate, error) {
	if err := ref.Validate(); err != nil {
		return Estimate{}, fmt.Errorf("alignment: reference: %w", err)
	}
	if err := deg.Validate(); err != nil {
		return Estimate{}, fmt.Errorf("alignment: degraded: %w", err)
	}
	if ref.SampleRate != deg.SampleRate {
		return Estimate{}, fmt.Errorf("%w: %d vs %d Hz", ErrSampleRateMismatch, ref.SampleRate, deg.SampleRate)
	}
	if opts.MaxLagSeconds <= 0 {
		opts.MaxLagSeconds = DefaultMaxLagSeconds
	}

	er, ed := ref.Energy(), deg.Energy()
	if er == 0 || ed == 0 {
		return Estimate{}, nil
	}

	xcorr, err := crossCorrelate(ref.Samples, deg.Samples)
	if err != nil {
		return Estimate{}, fmt.Errorf("alignment: %w", err)
	}
	// xcorr[k] holds lag k-(len(ref)-1).
	zero := len(ref.Samples) - 1
	maxLag := int(math.Round(opts.MaxLagSeconds * float64(ref.SampleRate)))
	maxNeg := min(maxLag, len(ref.Samples)-1)
	keep := max(1, int(math.Ceil(opts.MinRemainingSeconds*float64(deg.SampleRate))))
	maxPos := max(0, min(maxLag, len(deg.Samples)-keep))

	// The FFT pass runs in float32; keep every lag close to its peak and
	// rescore those exactly. Lags are visited by increasing |lag|.
	var coarse float32
	for k := zero - maxNeg; k <= zero+maxPos; k++ {
		coarse = max(coarse, xcorr[k])
	}
	tol := float32(coarseTolerance) * peakAbs(xcorr)
	lags := make([]int, 0, maxCandidates)
	visit := func(lag int) {
		if len(lags) < maxCandidates && xcorr[zero+lag] >= coarse-tol {
			lags = append(lags, lag)
		}
	}
	visit(0)
	for d := 1; d <= max(maxNeg, maxPos); d++ {
		if d <= maxNeg {
			visit(-d)
		}
		if d <= maxPos {
			visit(d)
		}
	}

	bestLag := 0
	best := math.Inf(-1)
	for _, lag := range lags {
		if v := dotAtLag(deg.Samples, ref.Samples, lag); v > best {
			best, bestLag = v, lag
		}
	}

	dot := best
	if math.IsInf(dot, -1) {
		dot = 0
	}
	corr := dot / math.Sqrt(er*ed)
	return Estimate{
		Lag:         bestLag,
		Correlation: corr,
		Reliable:    dot > 0 && corr >= opts.MinCorrelation,
	}, nil
}

// crossCorrelate convolves deg with the time-reversed ref.
func crossCorrelate(ref, deg []float64) ([]float32, error) {
	rev := make([]float32, len(ref))
	for i, v := range ref {
		rev[len(ref)-1-i] = float32(v)
	}
	d := make([]float32, len(deg))
	for i, v := range deg {
		d[i] = float32(v)
	}
	out := make([]float32, len(deg)+len(ref)-1)
	if err := algofft.ConvolveReal(out, d, rev); err != nil {
		return nil, err
	}
	return out, nil
}

// dotAtLag returns sum(a[n+lag]*b[n]) over the overlapping range.
func dotAtLag(a []float64, b []float64, lag int) float64 {
	var ai, bi int
	if lag >= 0 {
		ai = lag
	} else {
		bi = -lag
	}
	n := min(len(a)-ai, len(b)-bi)
	if n <= 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[ai+i] * b[bi+i]
	}
	return sum
}

func peakAbs(x []float32) float32 {
	var p float32
	for _, v := range x {
		p = max(p, v, -v)
	}
	return p
}
