package visqol

import (
	"fmt"

	"github.com/cwbudde/algo-visqol/alignment"
	"github.com/cwbudde/algo-visqol/patch"
	"github.com/cwbudde/algo-visqol/quality"
	"github.com/cwbudde/algo-visqol/signal"
	"github.com/cwbudde/algo-visqol/spectrogram"
)

const (
	AudioSampleRate          = 48000
	SpeechMaxSampleRate      = 16000
	DefaultDurationTolerance = 1.0
)

// SpeechMapping holds the coefficients of the speech MOS curve.
type SpeechMapping struct {
	A, B, X0 float64
}

// Config selects the mode and every tunable of the pipeline.
type Config struct {
	Speech                bool
	ModelPath             string
	UnscaledSpeechMapping bool

	WindowDuration float64
	Overlap        float64
	DynamicRangeDB float64

	SearchRadius int
	TieEpsilon   float64
	MaxPatches   int

	VADThreshold      float64
	VADHangover       int
	VADMinActiveRatio float64

	MaxLagSeconds  float64
	MinCorrelation float64

	// Workers parallelises the patch search; <= 1 runs serially.
	Workers int

	SpeechMapping     SpeechMapping
	DurationTolerance float64
	// ResampleTo resamples files on load; 0 keeps the file rate.
	ResampleTo int
}

// DefaultConfig returns the settings for speech or full-band audio.
func DefaultConfig(speech bool) Config {
	return Config{
		Speech:            speech,
		WindowDuration:    signal.DefaultWindowDuration,
		Overlap:           signal.DefaultOverlap,
		DynamicRangeDB:    spectrogram.DefaultDynamicRangeDB,
		VADThreshold:      patch.DefaultVADThreshold,
		VADHangover:       patch.DefaultVADHangover,
		VADMinActiveRatio: patch.DefaultVADMinActiveRatio,
		MaxLagSeconds:     alignment.DefaultMaxLagSeconds,
		MinCorrelation:    alignment.DefaultMinCorrelation,
		SpeechMapping: SpeechMapping{
			A:  quality.DefaultSpeechA,
			B:  quality.DefaultSpeechB,
			X0: quality.DefaultSpeechX0,
		},
		DurationTolerance: DefaultDurationTolerance,
	}
}

// PatchLength is the patch size in frames for the configured mode.
func (c Config) PatchLength() int {
	if c.Speech {
		return patch.SpeechPatchFrames
	}
	return patch.AudioPatchFrames
}

// NumBands is the gammatone band count for the configured mode.
func (c Config) NumBands() int {
	if c.Speech {
		return spectrogram.SpeechBands
	}
	return spectrogram.AudioBands
}

func (c Config) Validate() error {
	switch {
	case !(c.WindowDuration > 0):
		return fmt.Errorf("window duration must be > 0, got %g", c.WindowDuration)
	case c.Overlap < 0 || c.Overlap >= 1:
		return fmt.Errorf("overlap must be in [0,1), got %g", c.Overlap)
	case c.SearchRadius < 0:
		return fmt.Errorf("search radius must be >= 0, got %d", c.SearchRadius)
	case c.TieEpsilon < 0:
		return fmt.Errorf("tie epsilon must be >= 0, got %g", c.TieEpsilon)
	case c.MaxPatches < 0:
		return fmt.Errorf("max patches must be >= 0, got %d", c.MaxPatches)
	case c.VADThreshold < 0 || c.VADThreshold > 1:
		return fmt.Errorf("vad threshold must be in [0,1], got %g", c.VADThreshold)
	case c.VADHangover < 0:
		return fmt.Errorf("vad hangover must be >= 0, got %d", c.VADHangover)
	case c.VADMinActiveRatio < 0 || c.VADMinActiveRatio > 1:
		return fmt.Errorf("vad min active ratio must be in [0,1], got %g", c.VADMinActiveRatio)
	case c.MaxLagSeconds < 0:
		return fmt.Errorf("max lag must be >= 0, got %g", c.MaxLagSeconds)
	case c.MinCorrelation < 0 || c.MinCorrelation > 1:
		return fmt.Errorf("min correlation must be in [0,1], got %g", c.MinCorrelation)
	case c.DurationTolerance < 0:
		return fmt.Errorf("duration tolerance must be >= 0, got %g", c.DurationTolerance)
	case c.ResampleTo < 0:
		return fmt.Errorf("resample rate must be >= 0, got %d", c.ResampleTo)
	}
	return nil
}
