package spectrogram

import (
	"errors"
	"fmt"
	"math"
	"sync"

	approx "github.com/cwbudde/algo-approx"
	"github.com/cwbudde/algo-dsp/dsp/core"
	stime "github.com/cwbudde/algo-dsp/stats/time"

	"github.com/cwbudde/algo-visqol/gammatone"
	"github.com/cwbudde/algo-visqol/signal"
)

const (
	AudioBands     = 32
	SpeechBands    = 21
	DefaultMinFreq = 50.0
	SpeechMaxFreq  = 8000.0

	// Speech envelope shaping.
	speechCompression = 0.3
	speechReleaseSec  = 0.02
)

var (
	ErrWindowTooLong  = errors.New("spectrogram: analysis window longer than signal")
	ErrWindowMismatch = errors.New("spectrogram: window sample rate differs from signal")
)

// Builder turns a signal into a neurogram.
type Builder interface {
	Build(sig signal.Signal, w signal.AnalysisWindow) (*Spectrogram, error)
	NumBands() int
}

// Options configures a GammatoneBuilder.
type Options struct {
	NumBands int
	MinFreq  float64
	// MaxFreq <= 0 means Nyquist.
	MaxFreq float64
	// Envelope enables power-law compression and release smoothing per band.
	Envelope bool
}

// AudioOptions is the full-band configuration.
func AudioOptions() Options {
	return Options{NumBands: AudioBands, MinFreq: DefaultMinFreq}
}

// SpeechOptions is the narrow-band speech configuration.
func SpeechOptions() Options {
	return Options{
		NumBands: SpeechBands,
		MinFreq:  DefaultMinFreq,
		MaxFreq:  SpeechMaxFreq,
		Envelope: true,
	}
}

// GammatoneBuilder computes per-frame band RMS through a gammatone filter
// bank. Banks are designed lazily per sample rate and cached; a builder is
// safe for concurrent use.
type GammatoneBuilder struct {
	opts  Options
	mu    sync.Mutex
	banks map[int]*gammatone.FilterBank
}

func NewGammatoneBuilder(opts Options) (*GammatoneBuilder, error) {
	if opts.NumBands < 1 {
		return nil, fmt.Errorf("%w: band count %d", gammatone.ErrConfig, opts.NumBands)
	}
	if opts.MinFreq <= 0 {
		opts.MinFreq = DefaultMinFreq
	}
	return &GammatoneBuilder{opts: opts, banks: make(map[int]*gammatone.FilterBank)}, nil
}

func (g *GammatoneBuilder) NumBands() int {
	return g.opts.NumBands
}

// Bank returns the filter bank used for sampleRate.
func (g *GammatoneBuilder) Bank(sampleRate int) (*gammatone.FilterBank, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if fb, ok := g.banks[sampleRate]; ok {
		return fb, nil
	}
	fb, err := gammatone.New(sampleRate, g.opts.NumBands, g.opts.MinFreq, g.opts.MaxFreq)
	if err != nil {
		return nil, err
	}
	g.banks[sampleRate] = fb
	return fb, nil
}

// Build filters every frame of sig through each band and stores the band RMS.
// Filter state is reset at the start of each frame.
func (g *GammatoneBuilder) Build(sig signal.Signal, w signal.AnalysisWindow) (*Spectrogram, error) {
	if err := sig.Validate(); err != nil {
		return nil, fmt.Errorf("spectrogram: %w", err)
	}
	if w.SampleRate != sig.SampleRate {
		return nil, fmt.Errorf("%w: window %d Hz, signal %d Hz", ErrWindowMismatch, w.SampleRate, sig.SampleRate)
	}
	if w.Size > sig.Len() {
		return nil, fmt.Errorf("%w: %d > %d samples", ErrWindowTooLong, w.Size, sig.Len())
	}
	fb, err := g.Bank(sig.SampleRate)
	if err != nil {
		return nil, err
	}

	frames := w.FrameCount(sig.Len())
	spec := New(fb.CenterFreqs(), frames)
	proc := fb.NewProcessor()
	for f := 0; f < frames; f++ {
		start := f * w.Hop
		frame := sig.Samples[start : start+w.Size]
		proc.Reset()
		for b := range fb.Bands {
			spec.Data[b][f] = core.FlushDenormals(stime.RMS(proc.ProcessBand(b, frame)))
		}
	}

	if g.opts.Envelope {
		hopSec := float64(w.Hop) / float64(w.SampleRate)
		applyEnvelope(spec, releaseCoeff(hopSec))
	}
	return spec, nil
}

func releaseCoeff(hopSec float64) float64 {
	return float64(approx.FastExp(float32(-hopSec / speechReleaseSec)))
}

// applyEnvelope compresses each value and holds peaks with an exponential
// release across frames.
func applyEnvelope(spec *Spectrogram, alpha float64) {
	for _, row := range spec.Data {
		prev := 0.0
		for i, v := range row {
			y := math.Pow(v, speechCompression)
			if held := alpha * prev; held > y {
				y = held
			}
			row[i] = y
			prev = y
		}
	}
}
