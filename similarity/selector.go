package similarity

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cwbudde/algo-visqol/patch"
	"github.com/cwbudde/algo-visqol/signal"
	"github.com/cwbudde/algo-visqol/spectrogram"
)

var (
	ErrPatchOutOfRange = errors.New("similarity: patch exceeds reference spectrogram")
	ErrBandMismatch    = errors.New("similarity: spectrograms differ in band count")
)

// PatchMatch pairs a reference patch with its best degraded span.
type PatchMatch struct {
	Similarity    float64
	FreqBandMeans []float64
	RefStartTime  float64
	RefEndTime    float64
	DegStartTime  float64
	DegEndTime    float64
	// Offset is DegStartFrame - RefStartFrame.
	Offset        int
	RefStartFrame int
	DegStartFrame int
}

// Selector searches the degraded spectrogram around each reference patch.
// A Selector holds no per-comparison state.
type Selector struct {
	// SearchRadius in frames; 0 uses the patch length.
	SearchRadius int
	// TieEpsilon widens what counts as a tie with the best score.
	TieEpsilon float64
	// Workers > 1 scores patches concurrently.
	Workers int
}

// Compare returns one match per patch, in the order of patches. Among
// candidates scoring within TieEpsilon of the best, the smallest |offset|
// wins, then the earlier one.
func (s *Selector) Compare(patches []patch.Patch, ref, deg *spectrogram.Spectrogram, w signal.AnalysisWindow) ([]PatchMatch, error) {
	if ref.NumBands() != deg.NumBands() {
		return nil, fmt.Errorf("%w: %d vs %d", ErrBandMismatch, ref.NumBands(), deg.NumBands())
	}
	for i, p := range patches {
		if p.StartFrame < 0 || p.NumFrames < 1 || p.EndFrame() > ref.NumFrames() {
			return nil, fmt.Errorf("%w: patch %d spans frames [%d,%d) of %d",
				ErrPatchOutOfRange, i, p.StartFrame, p.EndFrame(), ref.NumFrames())
		}
	}

	out := make([]PatchMatch, len(patches))
	workers := s.Workers
	if workers <= 1 || len(patches) < 2 {
		for i, p := range patches {
			out[i] = s.match(p, ref, deg, w)
		}
		return out, nil
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < min(workers, len(patches)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				out[idx] = s.match(patches[idx], ref, deg, w)
			}
		}()
	}
	for i := range patches {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return out, nil
}

func (s *Selector) match(p patch.Patch, ref, deg *spectrogram.Spectrogram, w signal.AnalysisWindow) PatchMatch {
	starts := s.candidates(p, deg.NumFrames())
	scores := make([]float64, len(starts))
	means := make([][]float64, len(starts))
	best := 0
	for i, start := range starts {
		scores[i], means[i] = NSIM(ref, deg, p.StartFrame, start, p.NumFrames)
		if scores[i] > scores[best] {
			best = i
		}
	}
	// starts is ordered by preference, so the first near-best wins.
	for i := range starts {
		if scores[i] >= scores[best]-s.TieEpsilon {
			best = i
			break
		}
	}

	degStart := starts[best]
	return PatchMatch{
		Similarity:    scores[best],
		FreqBandMeans: means[best],
		RefStartTime:  p.StartTime,
		RefEndTime:    p.EndTime,
		DegStartTime:  w.FrameStartTime(degStart),
		DegEndTime:    w.FrameEndTime(degStart + p.NumFrames - 1),
		Offset:        degStart - p.StartFrame,
		RefStartFrame: p.StartFrame,
		DegStartFrame: degStart,
	}
}

// candidates lists degraded start frames within the search radius, ordered
// by |offset| and then by position.
func (s *Selector) candidates(p patch.Patch, degFrames int) []int {
	radius := s.SearchRadius
	if radius <= 0 {
		radius = p.NumFrames
	}
	last := max(0, degFrames-p.NumFrames)
	lo := min(max(0, p.StartFrame-radius), last)
	hi := min(max(0, p.StartFrame+radius), last)

	starts := make([]int, 0, hi-lo+1)
	for st := lo; st <= hi; st++ {
		starts = append(starts, st)
	}
	sort.SliceStable(starts, func(i, j int) bool {
		di, dj := abs(starts[i]-p.StartFrame), abs(starts[j]-p.StartFrame)
		if di != dj {
			return di < dj
		}
		return starts[i] < starts[j]
	})
	return starts
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
