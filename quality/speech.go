package quality

import "math"

// Exponential fit of speech MOS against vnsim.
const (
	DefaultSpeechA  = 1.155945
	DefaultSpeechB  = 4.68214
	DefaultSpeechX0 = 0.76785
)

// SpeechMapper applies A + exp(B*(vnsim-X0)). When Scaled is set the result
// is rescaled so that vnsim == 1 maps to MaxMOS.
type SpeechMapper struct {
	A, B, X0 float64
	Scaled   bool
}

func NewSpeechMapper(scaleToMaxMOS bool) *SpeechMapper {
	return &SpeechMapper{
		A:      DefaultSpeechA,
		B:      DefaultSpeechB,
		X0:     DefaultSpeechX0,
		Scaled: scaleToMaxMOS,
	}
}

func (m *SpeechMapper) Init() error { return nil }

func (m *SpeechMapper) Predict(vnsim float64, _ []float64) (float64, error) {
	return clampMOS(m.Raw(vnsim)), nil
}

// Raw returns the unclamped mapping, including the optional rescale.
func (m *SpeechMapper) Raw(vnsim float64) float64 {
	v := m.curve(vnsim)
	if m.Scaled {
		v *= MaxMOS / m.curve(1)
	}
	return v
}

func (m *SpeechMapper) curve(x float64) float64 {
	return m.A + math.Exp(m.B*(x-m.X0))
}
