package spectrogram

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-visqol/signal"
)

func BenchmarkGammatoneBuild(b *testing.B) {
	const sr = 48000
	x := make([]float64, sr*3)
	for i := range x {
		t := float64(i) / sr
		x[i] = 0.7*math.Sin(2*math.Pi*440*t) + 0.25*math.Sin(2*math.Pi*3100*t)
	}
	sig := signal.New(x, sr)
	w, err := signal.NewAnalysisWindow(sr, signal.DefaultOverlap)
	if err != nil {
		b.Fatal(err)
	}
	builder, err := NewGammatoneBuilder(AudioOptions())
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := builder.Build(sig, w); err != nil {
			b.Fatal(err)
		}
	}
}
