package quality

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// SVRMapper predicts MOS from fvnsim with a libsvm regression model.
type SVRMapper struct {
	Path string

	once  sync.Once
	model *Model
	err   error
}

func NewSVRMapper(path string) *SVRMapper {
	return &SVRMapper{Path: path}
}

// Init loads the model once; later calls return the first outcome.
func (m *SVRMapper) Init() error {
	m.once.Do(func() {
		m.model, m.err = LoadModelFile(m.Path)
	})
	return m.err
}

// Model returns the loaded model, or nil before a successful Init.
func (m *SVRMapper) Model() *Model {
	if m.err != nil {
		return nil
	}
	return m.model
}

func (m *SVRMapper) Predict(_ float64, fvnsim []float64) (float64, error) {
	if m.model == nil || m.err != nil {
		return 0, ErrModelNotReady
	}
	v, err := m.model.Predict(fvnsim)
	if err != nil {
		return 0, err
	}
	return clampMOS(v), nil
}

// Predict evaluates sum(coef_i * K(sv_i, x)) - rho. x may be longer than
// NumFeatures: sparse models omit trailing zero features, so support vectors
// are zero beyond their highest index.
func (md *Model) Predict(x []float64) (float64, error) {
	if len(x) < md.NumFeatures {
		return 0, fmt.Errorf("%w: got %d, model has %d", ErrFeatureMismatch, len(x), md.NumFeatures)
	}
	var sum float64
	for i, sv := range md.SupportVectors {
		if len(sv) < len(x) {
			sv = append(sv[:len(sv):len(sv)], make([]float64, len(x)-len(sv))...)
		}
		sum += md.Coefs[i] * md.kernel(sv, x)
	}
	return sum - md.Rho, nil
}

func (md *Model) kernel(sv, x []float64) float64 {
	switch md.Kernel {
	case KernelPolynomial:
		return math.Pow(md.Gamma*floats.Dot(sv, x)+md.Coef0, float64(md.Degree))
	case KernelRBF:
		d := floats.Distance(sv, x, 2)
		return math.Exp(-md.Gamma * d * d)
	case KernelSigmoid:
		return math.Tanh(md.Gamma*floats.Dot(sv, x) + md.Coef0)
	default:
		return floats.Dot(sv, x)
	}
}
