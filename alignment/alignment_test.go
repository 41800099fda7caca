package alignment

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/cwbudde/algo-visqol/signal"
)

func noise(seed int64, n int) []float64 {
	rng := rand.New(rand.NewSource(seed))
	x := make([]float64, n)
	for i := range x {
		x[i] = rng.Float64()*2 - 1
	}
	return x
}

func delayed(x []float64, d int) []float64 {
	out := make([]float64, len(x)+d)
	copy(out[d:], x)
	return out
}

func TestGloballyAlignRemovesDelay(t *testing.T) {
	const sr = 16000
	ref := signal.New(noise(1, sr), sr)
	deg := signal.New(delayed(ref.Samples, 480), sr)

	aligned, lag, err := GloballyAlign(ref, deg, DefaultOptions())
	if err != nil {
		t.Fatalf("GloballyAlign: %v", err)
	}
	if lag != 480 {
		t.Fatalf("lag=%d, want 480", lag)
	}
	if aligned.Len() != deg.Len()-480 {
		t.Fatalf("aligned len=%d, want %d", aligned.Len(), deg.Len()-480)
	}
	for i := 0; i < 100; i++ {
		if aligned.Samples[i] != ref.Samples[i] {
			t.Fatalf("sample %d not aligned", i)
		}
	}
	if deg.Len() != sr+480 {
		t.Fatal("input was modified")
	}
}

func TestGloballyAlignPadsEarlySignal(t *testing.T) {
	const sr = 16000
	src := noise(2, sr+200)
	ref := signal.New(src, sr)
	deg := signal.New(append([]float64(nil), src[200:]...), sr)

	aligned, lag, err := GloballyAlign(ref, deg, DefaultOptions())
	if err != nil {
		t.Fatalf("GloballyAlign: %v", err)
	}
	if lag != -200 {
		t.Fatalf("lag=%d, want -200", lag)
	}
	if aligned.Len() != deg.Len()+200 {
		t.Fatalf("aligned len=%d", aligned.Len())
	}
	for i := 0; i < 200; i++ {
		if aligned.Samples[i] != 0 {
			t.Fatalf("expected zero padding at %d", i)
		}
	}
	if aligned.Samples[200] != src[200] {
		t.Fatal("payload misplaced after padding")
	}
}

func TestGloballyAlignIsIdempotent(t *testing.T) {
	const sr = 8000
	ref := signal.New(noise(3, sr), sr)
	deg := signal.New(delayed(noise(3, sr), 123), sr)

	once, _, err := GloballyAlign(ref, deg, DefaultOptions())
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	_, lag, err := GloballyAlign(ref, once, DefaultOptions())
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if lag != 0 {
		t.Fatalf("second pass lag=%d, want 0", lag)
	}
}

func TestGloballyAlignSilenceIsUnchanged(t *testing.T) {
	ref := signal.New(make([]float64, 4800), 48000)
	deg := signal.New(noise(4, 4800), 48000)
	out, lag, err := GloballyAlign(ref, deg, DefaultOptions())
	if err != nil {
		t.Fatalf("GloballyAlign: %v", err)
	}
	if lag != 0 || out.Len() != deg.Len() {
		t.Fatalf("lag=%d len=%d, want unchanged", lag, out.Len())
	}
}

func TestGloballyAlignUncorrelatedIsUnreliable(t *testing.T) {
	ref := signal.New(noise(5, 16000), 16000)
	deg := signal.New(noise(6, 16000), 16000)
	est, err := EstimateLag(ref, deg, Options{MaxLagSeconds: 0.1, MinCorrelation: 0.5})
	if err != nil {
		t.Fatalf("EstimateLag: %v", err)
	}
	if est.Reliable {
		t.Fatalf("independent noise reported reliable (corr %.3f)", est.Correlation)
	}
	_, lag, _ := GloballyAlign(ref, deg, Options{MaxLagSeconds: 0.1, MinCorrelation: 0.5})
	if lag != 0 {
		t.Fatalf("lag=%d, want 0", lag)
	}
}

func TestGloballyAlignRespectsMaxLag(t *testing.T) {
	const sr = 8000
	ref := signal.New(noise(7, sr), sr)
	deg := signal.New(delayed(ref.Samples, 800), sr)
	est, err := EstimateLag(ref, deg, Options{MaxLagSeconds: 0.05, MinCorrelation: 0})
	if err != nil {
		t.Fatalf("EstimateLag: %v", err)
	}
	if est.Lag > 400 || est.Lag < -400 {
		t.Fatalf("lag %d outside ±400", est.Lag)
	}
}

func TestEstimateLagKeepsMinimumRemaining(t *testing.T) {
	const sr = 16000
	burst := noise(12, 800)
	ref := make([]float64, sr)
	copy(ref, burst)
	deg := make([]float64, sr)
	copy(deg[sr-800:], burst)

	opts := Options{MaxLagSeconds: 1, MinCorrelation: 0, MinRemainingSeconds: 0.08}
	aligned, lag, err := GloballyAlign(signal.New(ref, sr), signal.New(deg, sr), opts)
	if err != nil {
		t.Fatalf("GloballyAlign: %v", err)
	}
	if lag > sr-1280 {
		t.Fatalf("lag %d leaves less than 1280 samples", lag)
	}
	if aligned.Len() < 1280 {
		t.Fatalf("aligned length %d < 1280", aligned.Len())
	}
}

func TestGloballyAlignErrors(t *testing.T) {
	a := signal.New(noise(8, 100), 48000)
	b := signal.New(noise(9, 100), 16000)
	if _, _, err := GloballyAlign(a, b, DefaultOptions()); !errors.Is(err, ErrSampleRateMismatch) {
		t.Fatalf("err=%v, want ErrSampleRateMismatch", err)
	}
	if _, _, err := GloballyAlign(a, signal.New(nil, 48000), DefaultOptions()); !errors.Is(err, signal.ErrEmpty) {
		t.Fatalf("err=%v, want ErrEmpty", err)
	}
}

func TestDotAtLag(t *testing.T) {
	a := []float64{0, 0, 1, 2}
	b := []float64{1, 2, 0, 0}
	if got := dotAtLag(a, b, 2); got != 5 {
		t.Fatalf("dotAtLag=%g, want 5", got)
	}
	if got := dotAtLag(b, a, -2); got != 5 {
		t.Fatalf("dotAtLag=%g, want 5", got)
	}
}
