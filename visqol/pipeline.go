package visqol

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-visqol/alignment"
	"github.com/cwbudde/algo-visqol/patch"
	"github.com/cwbudde/algo-visqol/quality"
	"github.com/cwbudde/algo-visqol/signal"
	"github.com/cwbudde/algo-visqol/similarity"
	"github.com/cwbudde/algo-visqol/spectrogram"
)

// Components are the configured stages of one comparison. They are not
// modified after construction and may be shared between goroutines.
type Components struct {
	Builder        spectrogram.Builder
	Creator        patch.Creator
	Selector       *similarity.Selector
	Mapper         quality.Mapper
	Alignment      alignment.Options
	WindowDuration float64
	Overlap        float64
	DynamicRangeDB float64
}

// NewComponents builds every stage for cfg. The mapper is returned
// uninitialised.
func NewComponents(cfg Config) (*Components, error) {
	opts := spectrogram.AudioOptions()
	if cfg.Speech {
		opts = spectrogram.SpeechOptions()
	}
	builder, err := spectrogram.NewGammatoneBuilder(opts)
	if err != nil {
		return nil, err
	}

	var (
		creator patch.Creator
		mapper  quality.Mapper
	)
	if cfg.Speech {
		vad := patch.NewVADCreator(cfg.PatchLength())
		vad.Threshold = cfg.VADThreshold
		vad.Hangover = cfg.VADHangover
		vad.MinActiveRatio = cfg.VADMinActiveRatio
		creator = vad

		sm := quality.NewSpeechMapper(!cfg.UnscaledSpeechMapping)
		sm.A, sm.B, sm.X0 = cfg.SpeechMapping.A, cfg.SpeechMapping.B, cfg.SpeechMapping.X0
		mapper = sm
	} else {
		creator = patch.NewImageCreator(cfg.PatchLength(), cfg.MaxPatches)
		mapper = quality.NewSVRMapper(cfg.ModelPath)
	}

	return &Components{
		Builder: builder,
		Creator: creator,
		Selector: &similarity.Selector{
			SearchRadius: cfg.SearchRadius,
			TieEpsilon:   cfg.TieEpsilon,
			Workers:      cfg.Workers,
		},
		Mapper: mapper,
		Alignment: alignment.Options{
			MaxLagSeconds:       cfg.MaxLagSeconds,
			MinCorrelation:      cfg.MinCorrelation,
			MinRemainingSeconds: cfg.WindowDuration,
		},
		WindowDuration: cfg.WindowDuration,
		Overlap:        cfg.Overlap,
		DynamicRangeDB: cfg.DynamicRangeDB,
	}, nil
}

// Window returns the analysis window for sampleRate.
func (c *Components) Window(sampleRate int) (signal.AnalysisWindow, error) {
	return signal.NewAnalysisWindowDuration(sampleRate, c.Overlap, c.WindowDuration)
}

// Neurograms builds and prepares the reference and degraded spectrograms.
func (c *Components) Neurograms(ref, deg signal.Signal, w signal.AnalysisWindow) (*spectrogram.Spectrogram, *spectrogram.Spectrogram, error) {
	refSpec, err := c.Builder.Build(ref, w)
	if err != nil {
		return nil, nil, fmt.Errorf("reference spectrogram: %w", err)
	}
	degSpec, err := c.Builder.Build(deg, w)
	if err != nil {
		return nil, nil, fmt.Errorf("degraded spectrogram: %w", err)
	}
	r, d := spectrogram.PrepareForComparison(refSpec, degSpec, c.DynamicRangeDB)
	return r, d, nil
}

// CalculateSimilarity scores deg against ref. deg is expected to be aligned
// already. When no patch qualifies, the overlapping span of both neurograms
// is compared as a single patch and the result is marked as a fallback.
func (c *Components) CalculateSimilarity(ref, deg signal.Signal) (*similarity.Result, error) {
	w, err := c.Window(ref.SampleRate)
	if err != nil {
		return nil, invalid(err)
	}
	refSpec, degSpec, err := c.Neurograms(ref, deg, w)
	if err != nil {
		return nil, invalid(err)
	}

	patches := c.Creator.CreatePatches(refSpec, w)
	fallback := false
	if len(patches) == 0 {
		n := min(refSpec.NumFrames(), degSpec.NumFrames())
		patches = []patch.Patch{patch.NewPatch(0, n, w)}
		fallback = true
	}

	matches, err := c.Selector.Compare(patches, refSpec, degSpec, w)
	if err != nil {
		return nil, err
	}
	fvnsim, vnsim, err := similarity.Aggregate(matches, refSpec.NumBands())
	if err != nil {
		return nil, err
	}
	mos, err := c.Mapper.Predict(vnsim, fvnsim)
	if err != nil {
		if errors.Is(err, quality.ErrFeatureMismatch) {
			return nil, invalid(err)
		}
		return nil, fmt.Errorf("quality mapping: %w", err)
	}

	return &similarity.Result{
		MOSLQO:          mos,
		VNSIM:           vnsim,
		FVNSIM:          fvnsim,
		CenterFreqBands: append([]float64(nil), refSpec.CenterFreqs...),
		PatchSims:       matches,
		Fallback:        fallback,
	}, nil
}
