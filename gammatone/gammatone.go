// Package gammatone implements an ERB-spaced bank of fourth-order gammatone
// filters, each realised as a cascade of four biquad sections.
package gammatone

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
)

// Glasberg & Moore ERB parameters.
const (
	EarQ  = 9.26449
	MinBW = 24.7
)

var ErrConfig = errors.New("gammatone: invalid filter bank configuration")

// Band holds the coefficients of one gammatone channel.
type Band struct {
	CenterFreq float64
	Sections   [4]biquad.Coefficients
	Gain       float64
}

// FilterBank is an immutable set of gammatone bands sorted by ascending
// centre frequency.
type FilterBank struct {
	SampleRate int
	MinFreq    float64
	MaxFreq    float64
	Bands      []Band
}

// New designs numBands filters between minFreq and maxFreq. maxFreq is
// clipped to just below Nyquist.
func New(sampleRate int, numBands int, minFreq float64, maxFreq float64) (*FilterBank, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrConfig, sampleRate)
	}
	if numBands < 1 {
		return nil, fmt.Errorf("%w: band count %d", ErrConfig, numBands)
	}
	nyquist := float64(sampleRate) / 2
	if maxFreq <= 0 || maxFreq > nyquist {
		maxFreq = nyquist
	}
	if minFreq <= 0 || minFreq >= maxFreq {
		return nil, fmt.Errorf("%w: frequency range [%g, %g]", ErrConfig, minFreq, maxFreq)
	}

	centers := CenterFrequencies(numBands, minFreq, maxFreq)
	fb := &FilterBank{
		SampleRate: sampleRate,
		MinFreq:    minFreq,
		MaxFreq:    maxFreq,
		Bands:      make([]Band, numBands),
	}
	for i, cf := range centers {
		fb.Bands[i] = designBand(float64(sampleRate), cf)
	}
	return fb, nil
}

// CenterFrequencies returns numBands ERB-spaced frequencies in ascending
// order. The highest sits just below hi, the lowest at lo.
func CenterFrequencies(numBands int, lo float64, hi float64) []float64 {
	out := make([]float64, numBands)
	c := EarQ * MinBW
	step := (math.Log(lo+c) - math.Log(hi+c)) / float64(numBands)
	for i := 1; i <= numBands; i++ {
		// i == 1 is the highest band; store ascending.
		out[numBands-i] = -c + math.Exp(float64(i)*step)*(hi+c)
	}
	return out
}

// NumBands returns the number of channels.
func (fb *FilterBank) NumBands() int {
	return len(fb.Bands)
}

// CenterFreqs returns a copy of the channel centre frequencies.
func (fb *FilterBank) CenterFreqs() []float64 {
	out := make([]float64, len(fb.Bands))
	for i, b := range fb.Bands {
		out[i] = b.CenterFreq
	}
	return out
}

// NewProcessor returns stateful filter chains for this bank. The bank itself
// stays read-only, so one bank can serve concurrent processors.
func (fb *FilterBank) NewProcessor() *Processor {
	p := &Processor{chains: make([]*biquad.Chain, len(fb.Bands))}
	for i, b := range fb.Bands {
		p.chains[i] = biquad.NewChain(b.Sections[:], biquad.WithGain(1/b.Gain))
	}
	return p
}

// Processor runs a frame through every band of a FilterBank.
type Processor struct {
	chains  []*biquad.Chain
	scratch []float64
}

// Reset clears the state of all bands.
func (p *Processor) Reset() {
	for _, c := range p.chains {
		c.Reset()
	}
}

// ProcessBand filters in through band b into a scratch buffer owned by the
// processor. The returned slice is overwritten by the next call.
func (p *Processor) ProcessBand(b int, in []float64) []float64 {
	if cap(p.scratch) < len(in) {
		p.scratch = make([]float64, len(in))
	}
	p.scratch = p.scratch[:len(in)]
	copy(p.scratch, in)
	p.chains[b].ProcessBlock(p.scratch)
	return p.scratch
}

// designBand follows Slaney's MakeERBFilters (order 1 ERB, 4th-order
// gammatone as four second-order sections).
func designBand(fs float64, cf float64) Band {
	t := 1 / fs
	erb := cf/EarQ + MinBW
	b := 1.019 * 2 * math.Pi * erb

	arg := 2 * cf * math.Pi * t
	cosArg := math.Cos(arg)
	sinArg := math.Sin(arg)
	expBT := math.Exp(b * t)

	a0 := t
	a2 := 0.0
	b1 := -2 * cosArg / expBT
	b2 := math.Exp(-2 * b * t)

	sqrtPlus := math.Sqrt(3 + math.Pow(2, 1.5))
	sqrtMinus := math.Sqrt(3 - math.Pow(2, 1.5))

	a11 := -(2*t*cosArg/expBT + 2*sqrtPlus*t*sinArg/expBT) / 2
	a12 := -(2*t*cosArg/expBT - 2*sqrtPlus*t*sinArg/expBT) / 2
	a13 := -(2*t*cosArg/expBT + 2*sqrtMinus*t*sinArg/expBT) / 2
	a14 := -(2*t*cosArg/expBT - 2*sqrtMinus*t*sinArg/expBT) / 2

	e4 := cmplx.Exp(complex(0, 4*cf*math.Pi*t))
	e2 := cmplx.Exp(complex(-b*t, 2*cf*math.Pi*t))
	term := func(k float64) complex128 {
		return -2*e4*complex(t, 0) + 2*e2*complex(t*(cosArg+k*sinArg), 0)
	}
	den := -2/complex(math.Exp(2*b*t), 0) - 2*e4 + 2*(1+e4)/complex(expBT, 0)
	num := term(-sqrtMinus) * term(sqrtMinus) * term(-sqrtPlus) * term(sqrtPlus)
	gain := cmplx.Abs(num / (den * den * den * den))

	sec := func(a1 float64) biquad.Coefficients {
		return biquad.Coefficients{B0: a0, B1: a1, B2: a2, A1: b1, A2: b2}
	}
	return Band{
		CenterFreq: cf,
		Sections:   [4]biquad.Coefficients{sec(a11), sec(a12), sec(a13), sec(a14)},
		Gain:       gain,
	}
}
