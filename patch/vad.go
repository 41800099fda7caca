package patch

import (
	"github.com/cwbudde/algo-visqol/signal"
	"github.com/cwbudde/algo-visqol/spectrogram"
)

const (
	DefaultVADThreshold      = 0.5
	DefaultVADHangover       = 3
	DefaultVADMinActiveRatio = 0.5
)

// VADCreator keeps only spans where enough frames carry voice activity.
type VADCreator struct {
	Length int
	// Threshold is the active level relative to the loudest frame.
	Threshold float64
	// Hangover extends each active frame forward by this many frames.
	Hangover       int
	MinActiveRatio float64
}

func NewVADCreator(length int) *VADCreator {
	if length < 1 {
		length = SpeechPatchFrames
	}
	return &VADCreator{
		Length:         length,
		Threshold:      DefaultVADThreshold,
		Hangover:       DefaultVADHangover,
		MinActiveRatio: DefaultVADMinActiveRatio,
	}
}

func (c *VADCreator) PatchLength() int { return c.Length }

func (c *VADCreator) CreatePatches(ref *spectrogram.Spectrogram, w signal.AnalysisWindow) []Patch {
	out := []Patch{}
	starts := candidateStarts(ref.NumFrames(), c.Length)
	if len(starts) == 0 {
		return out
	}
	active := c.Activity(ref)
	need := c.MinActiveRatio * float64(c.Length)
	for _, s := range starts {
		n := 0
		for _, a := range active[s : s+c.Length] {
			if a {
				n++
			}
		}
		if n > 0 && float64(n) >= need {
			out = append(out, NewPatch(s, c.Length, w))
		}
	}
	return out
}

// Activity classifies every frame of spec.
func (c *VADCreator) Activity(spec *spectrogram.Spectrogram) []bool {
	frames := spec.NumFrames()
	levels := make([]float64, frames)
	peak := 0.0
	for f := range levels {
		var sum float64
		for _, row := range spec.Data {
			sum += row[f]
		}
		levels[f] = sum / float64(spec.NumBands())
		peak = max(peak, levels[f])
	}

	active := make([]bool, frames)
	hold := 0
	for f, l := range levels {
		switch {
		case l > 0 && l >= c.Threshold*peak:
			active[f] = true
			hold = c.Hangover
		case hold > 0:
			active[f] = true
			hold--
		}
	}
	return active
}
