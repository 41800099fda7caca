package spectrogram

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/core"
)

// DefaultDynamicRangeDB is the depth kept below each spectrogram's peak.
const DefaultDynamicRangeDB = 45.0

const linearFloor = 1e-10

// PrepareForComparison converts both spectrograms to dB, raises each to its
// own peak minus rangeDB and shifts both by their common minimum so every
// value is >= 0. Inputs are not modified. rangeDB <= 0 selects the default.
func PrepareForComparison(ref, deg *Spectrogram, rangeDB float64) (*Spectrogram, *Spectrogram) {
	if rangeDB <= 0 {
		rangeDB = DefaultDynamicRangeDB
	}
	r := toFlooredDB(ref, rangeDB)
	d := toFlooredDB(deg, rangeDB)

	lowest := math.Min(r.Min(), d.Min())
	if r.NumFrames() == 0 {
		lowest = d.Min()
	} else if d.NumFrames() == 0 {
		lowest = r.Min()
	}
	for _, s := range []*Spectrogram{r, d} {
		for _, row := range s.Data {
			for i := range row {
				row[i] -= lowest
			}
		}
	}
	return r, d
}

func toFlooredDB(s *Spectrogram, rangeDB float64) *Spectrogram {
	out := s.Clone()
	for _, row := range out.Data {
		for i, v := range row {
			row[i] = core.LinearToDB(math.Max(v, linearFloor))
		}
	}
	floor := out.Max() - rangeDB
	for _, row := range out.Data {
		for i, v := range row {
			if v < floor {
				row[i] = floor
			}
		}
	}
	return out
}
