package signal

import (
	"fmt"
	"math"
)

const (
	// DefaultWindowDuration is the analysis frame length in seconds.
	DefaultWindowDuration = 0.08
	// DefaultOverlap is the fraction of a frame shared with its successor.
	DefaultOverlap = 0.25
)

// AnalysisWindow describes how a signal is cut into frames.
// Frame i covers samples [i*Hop, i*Hop+Size).
type AnalysisWindow struct {
	SampleRate int
	Size       int
	Overlap    float64
	Hop        int
}

// NewAnalysisWindow returns the default 80 ms window for sampleRate.
func NewAnalysisWindow(sampleRate int, overlap float64) (AnalysisWindow, error) {
	return NewAnalysisWindowDuration(sampleRate, overlap, DefaultWindowDuration)
}

// NewAnalysisWindowDuration returns a window of the given duration.
func NewAnalysisWindowDuration(sampleRate int, overlap float64, duration float64) (AnalysisWindow, error) {
	if sampleRate <= 0 {
		return AnalysisWindow{}, fmt.Errorf("%w (got %d)", ErrSampleRate, sampleRate)
	}
	if overlap < 0 || overlap >= 1 || math.IsNaN(overlap) {
		return AnalysisWindow{}, fmt.Errorf("signal: overlap must be in [0,1), got %g", overlap)
	}
	if !(duration > 0) {
		return AnalysisWindow{}, fmt.Errorf("signal: window duration must be > 0, got %g", duration)
	}
	size := int(math.Round(float64(sampleRate) * duration))
	if size < 1 {
		size = 1
	}
	hop := int(math.Round(float64(size) * (1 - overlap)))
	if hop < 1 {
		hop = 1
	}
	return AnalysisWindow{
		SampleRate: sampleRate,
		Size:       size,
		Overlap:    overlap,
		Hop:        hop,
	}, nil
}

// FrameCount returns how many complete frames fit in n samples.
func (w AnalysisWindow) FrameCount(n int) int {
	if w.Size <= 0 || w.Hop <= 0 || n < w.Size {
		return 0
	}
	return 1 + (n-w.Size)/w.Hop
}

// FrameStartTime returns the start of frame i in seconds.
func (w AnalysisWindow) FrameStartTime(i int) float64 {
	return float64(i*w.Hop) / float64(w.SampleRate)
}

// FrameEndTime returns the end of frame i in seconds.
func (w AnalysisWindow) FrameEndTime(i int) float64 {
	return float64(i*w.Hop+w.Size) / float64(w.SampleRate)
}
