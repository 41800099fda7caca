// Package patch selects the fixed-length reference spans that are compared
// against the degraded neurogram.
package patch

import (
	"math"
	"sort"

	"github.com/cwbudde/algo-visqol/signal"
	"github.com/cwbudde/algo-visqol/spectrogram"
)

const (
	AudioPatchFrames  = 30
	SpeechPatchFrames = 20
)

// Patch is a span of reference frames.
type Patch struct {
	StartFrame int
	NumFrames  int
	StartTime  float64
	EndTime    float64
}

// EndFrame returns the exclusive end frame.
func (p Patch) EndFrame() int {
	return p.StartFrame + p.NumFrames
}

// NewPatch fills in the time bounds of a span from the window geometry.
func NewPatch(start, frames int, w signal.AnalysisWindow) Patch {
	return Patch{
		StartFrame: start,
		NumFrames:  frames,
		StartTime:  w.FrameStartTime(start),
		EndTime:    w.FrameEndTime(start + frames - 1),
	}
}

// Creator picks patches from a reference spectrogram. Results are in time
// order; an empty spectrogram yields no patches.
type Creator interface {
	CreatePatches(ref *spectrogram.Spectrogram, w signal.AnalysisWindow) []Patch
	PatchLength() int
}

// candidateStarts tiles frames with non-overlapping spans of patchLen,
// starting half a patch in.
func candidateStarts(frames, patchLen int) []int {
	if patchLen < 1 {
		return nil
	}
	first := max(0, patchLen/2-1)
	if frames-first < patchLen {
		return nil
	}
	count := (frames - first) / patchLen
	out := make([]int, count)
	for i := range out {
		out[i] = first + i*patchLen
	}
	return out
}

// ImageCreator keeps the spans carrying the most energy and variability.
type ImageCreator struct {
	Length int
	// MaxPatches caps the result; 0 keeps every candidate.
	MaxPatches int
}

func NewImageCreator(length int, maxPatches int) *ImageCreator {
	if length < 1 {
		length = AudioPatchFrames
	}
	return &ImageCreator{Length: length, MaxPatches: max(0, maxPatches)}
}

func (c *ImageCreator) PatchLength() int { return c.Length }

func (c *ImageCreator) CreatePatches(ref *spectrogram.Spectrogram, w signal.AnalysisWindow) []Patch {
	starts := candidateStarts(ref.NumFrames(), c.Length)
	if len(starts) == 0 {
		return []Patch{}
	}
	if c.MaxPatches > 0 && len(starts) > c.MaxPatches {
		type ranked struct {
			start int
			score float64
		}
		rs := make([]ranked, len(starts))
		for i, s := range starts {
			rs[i] = ranked{start: s, score: blockScore(ref, s, c.Length)}
		}
		sort.SliceStable(rs, func(i, j int) bool { return rs[i].score > rs[j].score })
		rs = rs[:c.MaxPatches]
		sort.Slice(rs, func(i, j int) bool { return rs[i].start < rs[j].start })
		starts = starts[:0]
		for _, r := range rs {
			starts = append(starts, r.start)
		}
	}

	out := make([]Patch, len(starts))
	for i, s := range starts {
		out[i] = NewPatch(s, c.Length, w)
	}
	return out
}

// blockScore is the sum of a span's values plus their standard deviation.
func blockScore(spec *spectrogram.Spectrogram, start, length int) float64 {
	var sum, sumSq float64
	n := 0
	for _, row := range spec.Data {
		for _, v := range row[start : start+length] {
			sum += v
			sumSq += v * v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	variance := max(0, sumSq/float64(n)-mean*mean)
	return sum + math.Sqrt(variance)
}
