package similarity

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

var ErrNoPatches = errors.New("similarity: no patch matches to aggregate")

// Aggregate averages per-band means across matches (fvnsim) and returns
// their mean (vnsim).
func Aggregate(matches []PatchMatch, numBands int) ([]float64, float64, error) {
	if len(matches) == 0 {
		return nil, 0, ErrNoPatches
	}
	fvnsim := make([]float64, numBands)
	column := make([]float64, len(matches))
	for b := range fvnsim {
		for i, m := range matches {
			if len(m.FreqBandMeans) != numBands {
				return nil, 0, fmt.Errorf("similarity: match %d has %d bands, want %d", i, len(m.FreqBandMeans), numBands)
			}
			column[i] = m.FreqBandMeans[b]
		}
		fvnsim[b] = stat.Mean(column, nil)
	}
	return fvnsim, stat.Mean(fvnsim, nil), nil
}
