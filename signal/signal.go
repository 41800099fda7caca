// Package signal holds the mono sample buffer compared by the quality
// pipeline and the analysis-window geometry derived from its sample rate.
package signal

import (
	"errors"
	"fmt"
)

var (
	ErrEmpty      = errors.New("signal: no samples")
	ErrSampleRate = errors.New("signal: sample rate must be > 0")
)

// Signal is a mono sample buffer at a fixed sample rate.
type Signal struct {
	Samples    []float64
	SampleRate int
}

// New wraps samples without copying them.
func New(samples []float64, sampleRate int) Signal {
	return Signal{Samples: samples, SampleRate: sampleRate}
}

// Len returns the number of samples.
func (s Signal) Len() int {
	return len(s.Samples)
}

// Duration returns the length in seconds.
func (s Signal) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// Validate reports whether the signal can be analysed.
func (s Signal) Validate() error {
	if s.SampleRate <= 0 {
		return fmt.Errorf("%w (got %d)", ErrSampleRate, s.SampleRate)
	}
	if len(s.Samples) == 0 {
		return ErrEmpty
	}
	return nil
}

// Clone returns a deep copy.
func (s Signal) Clone() Signal {
	return Signal{
		Samples:    append([]float64(nil), s.Samples...),
		SampleRate: s.SampleRate,
	}
}

// Energy returns the sum of squared samples.
func (s Signal) Energy() float64 {
	var sum float64
	for _, v := range s.Samples {
		sum += v * v
	}
	return sum
}
