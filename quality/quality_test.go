package quality

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestSVRMapperPredictsFromTestModel(t *testing.T) {
	m := NewSVRMapper(filepath.Join("testdata", "linear_32.model"))
	if err := m.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	cases := []struct {
		sim, want float64
	}{
		{1, 5},
		{0.5, 3},
		{0, 1},
	}
	for _, tc := range cases {
		got, err := m.Predict(tc.sim, constant(32, tc.sim))
		if err != nil {
			t.Fatalf("Predict(%g): %v", tc.sim, err)
		}
		if math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("Predict(%g)=%g, want %g", tc.sim, got, tc.want)
		}
	}
}

func TestSVRMapperErrors(t *testing.T) {
	missing := NewSVRMapper(filepath.Join(t.TempDir(), "nope.model"))
	if err := missing.Init(); !errors.Is(err, ErrModelLoad) {
		t.Fatalf("missing: err=%v, want ErrModelLoad", err)
	}
	if _, err := missing.Predict(1, constant(32, 1)); !errors.Is(err, ErrModelNotReady) {
		t.Fatalf("predict after failed init: err=%v", err)
	}

	m := NewSVRMapper(filepath.Join("testdata", "linear_32.model"))
	if err := m.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := m.Predict(1, constant(21, 1)); !errors.Is(err, ErrFeatureMismatch) {
		t.Fatalf("err=%v, want ErrFeatureMismatch", err)
	}
}

func TestParseModelRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"bad type":     "svm_type c_svc\nkernel_type linear\nrho 0\nSV\n1 1:1\n",
		"no rho":       "svm_type nu_svr\nkernel_type linear\nSV\n1 1:1\n",
		"no vectors":   "svm_type nu_svr\nkernel_type linear\nrho 0\nSV\n",
		"bad feature":  "svm_type nu_svr\nkernel_type linear\nrho 0\nSV\n1 1=1\n",
		"zero index":   "svm_type nu_svr\nkernel_type linear\nrho 0\nSV\n1 0:1\n",
		"total_sv":     "svm_type nu_svr\nkernel_type linear\ntotal_sv 2\nrho 0\nSV\n1 1:1\n",
		"rbf no gamma": "svm_type nu_svr\nkernel_type rbf\nrho 0\nSV\n1 1:1\n",
		"unknown key":  "svm_type nu_svr\nbogus 1\nrho 0\nSV\n1 1:1\n",
	}
	for name, text := range cases {
		if _, err := ParseModel(strings.NewReader(text)); !errors.Is(err, ErrModelLoad) {
			t.Fatalf("%s: err=%v, want ErrModelLoad", name, err)
		}
	}
}

func TestModelPredictTrailingZeroFeatures(t *testing.T) {
	text := "svm_type nu_svr\nkernel_type rbf\ngamma 1\nrho 0\nSV\n1 1:0.5 2:0.5\n"
	md, err := ParseModel(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ParseModel: %v", err)
	}
	if md.NumFeatures != 2 {
		t.Fatalf("features=%d, want 2", md.NumFeatures)
	}
	got, err := md.Predict([]float64{0.5, 0.5, 0.25})
	if err != nil {
		t.Fatalf("Predict with trailing feature: %v", err)
	}
	// The omitted third feature is zero in the support vector.
	want := math.Exp(-0.25 * 0.25)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("Predict=%g, want %g", got, want)
	}
	if _, err := md.Predict([]float64{0.5}); !errors.Is(err, ErrFeatureMismatch) {
		t.Fatalf("short input: err=%v, want ErrFeatureMismatch", err)
	}
}

func TestParseModelSparseAndKernels(t *testing.T) {
	text := "svm_type epsilon_svr\nkernel_type rbf\ngamma 0.5\nrho 0.25\ntotal_sv 2\nSV\n2 1:1 3:1\n-1 2:1\n"
	md, err := ParseModel(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ParseModel: %v", err)
	}
	if md.NumFeatures != 3 || len(md.SupportVectors) != 2 {
		t.Fatalf("features=%d vectors=%d", md.NumFeatures, len(md.SupportVectors))
	}
	if sv := md.SupportVectors[0]; sv[0] != 1 || sv[1] != 0 || sv[2] != 1 {
		t.Fatalf("dense vector %v", sv)
	}

	x := []float64{1, 0, 1}
	got, err := md.Predict(x)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	// |sv0-x|^2 = 0, |sv1-x|^2 = 3.
	want := 2*1 - math.Exp(-0.5*3) - 0.25
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("rbf predict=%g, want %g", got, want)
	}

	md.Kernel = KernelPolynomial
	md.Degree = 2
	md.Coef0 = 1
	got, _ = md.Predict(x)
	want = 2*math.Pow(0.5*2+1, 2) - math.Pow(0.5*0+1, 2) - 0.25
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("poly predict=%g, want %g", got, want)
	}

	md.Kernel = KernelSigmoid
	got, _ = md.Predict(x)
	want = 2*math.Tanh(0.5*2+1) - math.Tanh(1) - 0.25
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("sigmoid predict=%g, want %g", got, want)
	}
}

func TestSVRMapperClampsToMOSRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steep.model")
	text := "svm_type nu_svr\nkernel_type linear\nrho -10\nSV\n1 1:1 2:1\n"
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m := NewSVRMapper(path)
	if err := m.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	got, _ := m.Predict(1, []float64{1, 1})
	if got != MaxMOS {
		t.Fatalf("got %g, want clamp to %g", got, MaxMOS)
	}
}

func TestSpeechMapper(t *testing.T) {
	scaled := NewSpeechMapper(true)
	if err := scaled.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	top, _ := scaled.Predict(1, nil)
	if math.Abs(top-MaxMOS) > 1e-12 {
		t.Fatalf("scaled(1)=%g, want %g", top, MaxMOS)
	}

	unscaled := NewSpeechMapper(false)
	raw := DefaultSpeechA + math.Exp(DefaultSpeechB*(1-DefaultSpeechX0))
	got, _ := unscaled.Predict(1, nil)
	if math.Abs(got-min(raw, MaxMOS)) > 1e-12 {
		t.Fatalf("unscaled(1)=%g, want %g", got, raw)
	}

	prev := 0.0
	for v := 0.0; v <= 1.0; v += 0.05 {
		q, _ := scaled.Predict(v, nil)
		if q < MinMOS || q > MaxMOS {
			t.Fatalf("scaled(%g)=%g out of range", v, q)
		}
		if q < prev {
			t.Fatalf("mapping not monotone at %g", v)
		}
		prev = q
	}
}
