package patch

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-visqol/signal"
	"github.com/cwbudde/algo-visqol/spectrogram"
)

func testWindow(t *testing.T) signal.AnalysisWindow {
	t.Helper()
	w, err := signal.NewAnalysisWindow(48000, signal.DefaultOverlap)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	return w
}

func filled(bands, frames int, fn func(b, f int) float64) *spectrogram.Spectrogram {
	cfs := make([]float64, bands)
	for i := range cfs {
		cfs[i] = float64(100 * (i + 1))
	}
	s := spectrogram.New(cfs, frames)
	for b := range s.Data {
		for f := range s.Data[b] {
			s.Data[b][f] = fn(b, f)
		}
	}
	return s
}

func TestCandidateStarts(t *testing.T) {
	cases := []struct {
		frames, length int
		want           []int
	}{
		{100, 30, []int{14, 44}},
		{104, 30, []int{14, 44, 74}},
		{44, 30, []int{14}},
		{43, 30, nil},
		{40, 30, nil},
		{0, 30, nil},
		{60, 20, []int{9, 29}},
		{5, 1, []int{0, 1, 2, 3, 4}},
	}
	for _, tc := range cases {
		got := candidateStarts(tc.frames, tc.length)
		if len(got) != len(tc.want) {
			t.Fatalf("frames=%d len=%d: got %v, want %v", tc.frames, tc.length, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("frames=%d len=%d: got %v, want %v", tc.frames, tc.length, got, tc.want)
			}
		}
	}
}

func TestImageCreatorKeepsAllInTimeOrder(t *testing.T) {
	w := testWindow(t)
	spec := filled(4, 134, func(b, f int) float64 { return 1 })
	ps := NewImageCreator(AudioPatchFrames, 0).CreatePatches(spec, w)
	if len(ps) != 4 {
		t.Fatalf("got %d patches, want 4", len(ps))
	}
	for i, p := range ps {
		if p.StartFrame != 14+30*i || p.NumFrames != 30 {
			t.Fatalf("patch %d = %+v", i, p)
		}
		if math.Abs(p.StartTime-w.FrameStartTime(p.StartFrame)) > 1e-12 {
			t.Fatalf("patch %d start time %g", i, p.StartTime)
		}
		if math.Abs(p.EndTime-w.FrameEndTime(p.EndFrame()-1)) > 1e-12 {
			t.Fatalf("patch %d end time %g", i, p.EndTime)
		}
	}
}

func TestImageCreatorRanksByEnergy(t *testing.T) {
	w := testWindow(t)
	// Loud region in frames 74..103, medium in 14..43.
	spec := filled(4, 130, func(b, f int) float64 {
		switch {
		case f >= 74 && f < 104:
			return 10
		case f >= 14 && f < 44:
			return 5
		default:
			return 1
		}
	})
	ps := NewImageCreator(30, 2).CreatePatches(spec, w)
	if len(ps) != 2 || ps[0].StartFrame != 14 || ps[1].StartFrame != 74 {
		t.Fatalf("got %+v, want starts 14 and 74 in time order", ps)
	}
}

func TestImageCreatorTiesKeepEarlierSpan(t *testing.T) {
	spec := filled(2, 130, func(b, f int) float64 { return 2 })
	ps := NewImageCreator(30, 1).CreatePatches(spec, testWindow(t))
	if len(ps) != 1 || ps[0].StartFrame != 14 {
		t.Fatalf("got %+v, want the first span", ps)
	}
}

func TestCreatorsOnEmptySpectrogram(t *testing.T) {
	w := testWindow(t)
	empty := spectrogram.New([]float64{100, 200}, 0)
	if ps := NewImageCreator(30, 0).CreatePatches(empty, w); ps == nil || len(ps) != 0 {
		t.Fatalf("image: got %v, want empty non-nil", ps)
	}
	if ps := NewVADCreator(20).CreatePatches(empty, w); ps == nil || len(ps) != 0 {
		t.Fatalf("vad: got %v, want empty non-nil", ps)
	}
}

func TestVADCreatorSkipsSilence(t *testing.T) {
	w := testWindow(t)
	// Speech in frames 29..48 only.
	spec := filled(3, 90, func(b, f int) float64 {
		if f >= 29 && f < 49 {
			return 20
		}
		return 0
	})
	ps := NewVADCreator(SpeechPatchFrames).CreatePatches(spec, w)
	if len(ps) != 1 || ps[0].StartFrame != 29 {
		t.Fatalf("got %+v, want one patch at 29", ps)
	}
}

func TestVADCreatorSilenceYieldsNothing(t *testing.T) {
	spec := filled(3, 90, func(b, f int) float64 { return 0 })
	if ps := NewVADCreator(20).CreatePatches(spec, testWindow(t)); len(ps) != 0 {
		t.Fatalf("got %d patches from silence", len(ps))
	}
}

func TestVADActivityHangover(t *testing.T) {
	c := NewVADCreator(20)
	spec := filled(1, 8, func(b, f int) float64 {
		if f == 1 {
			return 1
		}
		return 0
	})
	got := c.Activity(spec)
	want := []bool{false, true, true, true, true, false, false, false}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("activity=%v, want %v", got, want)
		}
	}
}

func TestPatchCountIsDeterministic(t *testing.T) {
	w := testWindow(t)
	spec := filled(8, 200, func(b, f int) float64 { return float64((b*31+f*17)%13) + 1 })
	c := NewImageCreator(30, 3)
	first := c.CreatePatches(spec, w)
	for i := 0; i < 5; i++ {
		again := c.CreatePatches(spec, w)
		if len(again) != len(first) {
			t.Fatalf("run %d: %d patches, want %d", i, len(again), len(first))
		}
		for j := range again {
			if again[j] != first[j] {
				t.Fatalf("run %d patch %d differs", i, j)
			}
		}
	}
}
