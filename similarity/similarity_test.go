package similarity

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/cwbudde/algo-visqol/patch"
	"github.com/cwbudde/algo-visqol/signal"
	"github.com/cwbudde/algo-visqol/spectrogram"
)

func randomSpec(seed int64, bands, frames int) *spectrogram.Spectrogram {
	rng := rand.New(rand.NewSource(seed))
	cfs := make([]float64, bands)
	for i := range cfs {
		cfs[i] = float64(50 * (i + 1))
	}
	s := spectrogram.New(cfs, frames)
	for b := range s.Data {
		for f := range s.Data[b] {
			s.Data[b][f] = rng.Float64() * 40
		}
	}
	return s
}

// shiftFrames returns s delayed by d frames, zero-filled at the front.
func shiftFrames(s *spectrogram.Spectrogram, d int) *spectrogram.Spectrogram {
	out := spectrogram.New(s.CenterFreqs, s.NumFrames()+d)
	for b := range s.Data {
		copy(out.Data[b][d:], s.Data[b])
	}
	return out
}

func window(t *testing.T) signal.AnalysisWindow {
	t.Helper()
	w, err := signal.NewAnalysisWindow(48000, signal.DefaultOverlap)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	return w
}

func TestNSIMIdenticalIsOne(t *testing.T) {
	s := randomSpec(1, 8, 40)
	score, means := NSIM(s, s, 5, 5, 30)
	if math.Abs(score-1) > 1e-9 {
		t.Fatalf("score=%g, want 1", score)
	}
	for b, m := range means {
		if math.Abs(m-1) > 1e-9 {
			t.Fatalf("band %d mean %g", b, m)
		}
	}
}

func TestNSIMSilenceIsOne(t *testing.T) {
	s := spectrogram.New([]float64{100, 200, 300}, 20)
	score, _ := NSIM(s, s, 0, 0, 20)
	if math.IsNaN(score) || math.Abs(score-1) > 1e-12 {
		t.Fatalf("score=%g, want 1", score)
	}
}

func TestNSIMDifferentIsBounded(t *testing.T) {
	a := randomSpec(2, 8, 30)
	b := randomSpec(3, 8, 30)
	score, means := NSIM(a, b, 0, 0, 30)
	if score < 0 || score >= 0.9 {
		t.Fatalf("score=%g for unrelated blocks", score)
	}
	for i, m := range means {
		if m < 0 || m > 1 {
			t.Fatalf("band %d mean %g outside [0,1]", i, m)
		}
	}
}

func TestNSIMOutOfRangeDegradedReadsZero(t *testing.T) {
	a := randomSpec(4, 4, 30)
	score, _ := NSIM(a, a, 0, 25, 30)
	if math.IsNaN(score) || score < 0 || score > 1 {
		t.Fatalf("score=%g", score)
	}
}

func TestSelectorFindsShiftedPatch(t *testing.T) {
	w := window(t)
	ref := randomSpec(5, 8, 120)
	deg := shiftFrames(ref, 3)
	ps := patch.NewImageCreator(30, 0).CreatePatches(ref, w)

	sel := &Selector{}
	got, err := sel.Compare(ps, ref, deg, w)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if len(got) != len(ps) {
		t.Fatalf("got %d matches, want %d", len(got), len(ps))
	}
	for i, m := range got {
		if m.Offset != 3 || m.DegStartFrame != ps[i].StartFrame+3 {
			t.Fatalf("match %d offset %d, want 3", i, m.Offset)
		}
		if math.Abs(m.Similarity-1) > 1e-9 {
			t.Fatalf("match %d similarity %g", i, m.Similarity)
		}
		if m.RefStartTime != ps[i].StartTime || m.DegStartTime != w.FrameStartTime(m.DegStartFrame) {
			t.Fatalf("match %d times %+v", i, m)
		}
	}
}

func TestSelectorTiesPreferZeroOffset(t *testing.T) {
	w := window(t)
	ref := spectrogram.New([]float64{100, 200}, 100)
	for b := range ref.Data {
		for f := range ref.Data[b] {
			ref.Data[b][f] = 7
		}
	}
	ps := []patch.Patch{patch.NewPatch(40, 20, w)}
	got, err := (&Selector{}).Compare(ps, ref, ref.Clone(), w)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if got[0].Offset != 0 {
		t.Fatalf("offset=%d, want 0", got[0].Offset)
	}
}

func TestSelectorCandidatesOrder(t *testing.T) {
	sel := &Selector{SearchRadius: 2}
	got := sel.candidates(patch.Patch{StartFrame: 10, NumFrames: 5}, 100)
	want := []int{10, 9, 11, 8, 12}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	clipped := (&Selector{SearchRadius: 5}).candidates(patch.Patch{StartFrame: 0, NumFrames: 5}, 8)
	if len(clipped) != 4 || clipped[0] != 0 || clipped[3] != 3 {
		t.Fatalf("clipped=%v, want [0 1 2 3]", clipped)
	}
	short := (&Selector{}).candidates(patch.Patch{StartFrame: 4, NumFrames: 10}, 6)
	if len(short) != 1 || short[0] != 0 {
		t.Fatalf("short=%v, want [0]", short)
	}
}

func TestSelectorTieEpsilon(t *testing.T) {
	w := window(t)
	ref := randomSpec(6, 6, 80)
	deg := shiftFrames(ref, 1)
	ps := []patch.Patch{patch.NewPatch(30, 20, w)}

	exact, _ := (&Selector{}).Compare(ps, ref, deg, w)
	if exact[0].Offset != 1 {
		t.Fatalf("exact offset %d, want 1", exact[0].Offset)
	}
	loose, _ := (&Selector{TieEpsilon: 1}).Compare(ps, ref, deg, w)
	if loose[0].Offset != 0 {
		t.Fatalf("with wide epsilon offset %d, want 0", loose[0].Offset)
	}
}

func TestSelectorWorkersMatchSerial(t *testing.T) {
	w := window(t)
	ref := randomSpec(7, 8, 200)
	deg := randomSpec(8, 8, 210)
	ps := patch.NewImageCreator(30, 0).CreatePatches(ref, w)

	serial, err := (&Selector{}).Compare(ps, ref, deg, w)
	if err != nil {
		t.Fatalf("serial: %v", err)
	}
	parallel, err := (&Selector{Workers: 4}).Compare(ps, ref, deg, w)
	if err != nil {
		t.Fatalf("parallel: %v", err)
	}
	for i := range serial {
		if serial[i].Similarity != parallel[i].Similarity || serial[i].Offset != parallel[i].Offset {
			t.Fatalf("match %d differs: %+v vs %+v", i, serial[i], parallel[i])
		}
	}
}

func TestSelectorErrors(t *testing.T) {
	w := window(t)
	ref := randomSpec(9, 4, 30)
	if _, err := (&Selector{}).Compare([]patch.Patch{{StartFrame: 20, NumFrames: 20}}, ref, ref, w); !errors.Is(err, ErrPatchOutOfRange) {
		t.Fatalf("err=%v, want ErrPatchOutOfRange", err)
	}
	other := randomSpec(10, 5, 30)
	if _, err := (&Selector{}).Compare(nil, ref, other, w); !errors.Is(err, ErrBandMismatch) {
		t.Fatalf("err=%v, want ErrBandMismatch", err)
	}
}

func TestAggregate(t *testing.T) {
	matches := []PatchMatch{
		{Similarity: 0.75, FreqBandMeans: []float64{1, 0.5}},
		{Similarity: 0.25, FreqBandMeans: []float64{0.5, 0}},
	}
	fvnsim, vnsim, err := Aggregate(matches, 2)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if fvnsim[0] != 0.75 || fvnsim[1] != 0.25 {
		t.Fatalf("fvnsim=%v", fvnsim)
	}
	if math.Abs(vnsim-0.5) > 1e-12 {
		t.Fatalf("vnsim=%g, want 0.5", vnsim)
	}
	if _, _, err := Aggregate(nil, 2); !errors.Is(err, ErrNoPatches) {
		t.Fatalf("err=%v, want ErrNoPatches", err)
	}
	if _, _, err := Aggregate(matches, 3); err == nil {
		t.Fatal("expected band count error")
	}
}
