// Package spectrogram builds band-by-frame gammatone neurograms and prepares
// pairs of them for similarity scoring.
package spectrogram

import "math"

// Spectrogram is a band×frame matrix of non-negative energies.
type Spectrogram struct {
	Data        [][]float64
	CenterFreqs []float64
}

// New allocates a zeroed spectrogram with one row per centre frequency.
func New(centerFreqs []float64, frames int) *Spectrogram {
	s := &Spectrogram{
		Data:        make([][]float64, len(centerFreqs)),
		CenterFreqs: append([]float64(nil), centerFreqs...),
	}
	for b := range s.Data {
		s.Data[b] = make([]float64, frames)
	}
	return s
}

func (s *Spectrogram) NumBands() int {
	return len(s.Data)
}

func (s *Spectrogram) NumFrames() int {
	if len(s.Data) == 0 {
		return 0
	}
	return len(s.Data[0])
}

// At returns the value at (band, frame), or 0 outside the matrix.
func (s *Spectrogram) At(band int, frame int) float64 {
	if band < 0 || band >= len(s.Data) || frame < 0 || frame >= len(s.Data[band]) {
		return 0
	}
	return s.Data[band][frame]
}

// Column copies frame i across all bands.
func (s *Spectrogram) Column(i int) []float64 {
	out := make([]float64, len(s.Data))
	for b := range s.Data {
		out[b] = s.Data[b][i]
	}
	return out
}

// Min returns the smallest value, or 0 for an empty matrix.
func (s *Spectrogram) Min() float64 {
	v, ok := s.reduce(math.Min)
	if !ok {
		return 0
	}
	return v
}

// Max returns the largest value, or 0 for an empty matrix.
func (s *Spectrogram) Max() float64 {
	v, ok := s.reduce(math.Max)
	if !ok {
		return 0
	}
	return v
}

func (s *Spectrogram) reduce(fn func(a, b float64) float64) (float64, bool) {
	var acc float64
	seen := false
	for _, row := range s.Data {
		for _, v := range row {
			if !seen {
				acc, seen = v, true
				continue
			}
			acc = fn(acc, v)
		}
	}
	return acc, seen
}

// Clone returns a deep copy.
func (s *Spectrogram) Clone() *Spectrogram {
	out := &Spectrogram{
		Data:        make([][]float64, len(s.Data)),
		CenterFreqs: append([]float64(nil), s.CenterFreqs...),
	}
	for b, row := range s.Data {
		out.Data[b] = append([]float64(nil), row...)
	}
	return out
}
