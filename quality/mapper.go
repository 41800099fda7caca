// Package quality maps similarity scores to a MOS-LQO estimate.
package quality

import "errors"

const (
	MinMOS = 1.0
	MaxMOS = 5.0
)

var (
	ErrModelLoad       = errors.New("quality: cannot load model")
	ErrFeatureMismatch = errors.New("quality: feature count does not match model")
	ErrModelNotReady   = errors.New("quality: mapper not initialised")
)

// Mapper turns vnsim/fvnsim into a quality score in [MinMOS, MaxMOS].
type Mapper interface {
	Init() error
	Predict(vnsim float64, fvnsim []float64) (float64, error)
}

func clampMOS(v float64) float64 {
	return min(max(v, MinMOS), MaxMOS)
}
