// Package similarity scores reference patches against a degraded neurogram
// with the neurogram similarity index (NSIM) and aggregates the matches.
package similarity

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/core"

	"github.com/cwbudde/algo-visqol/spectrogram"
)

// 3×3 Gaussian weights, rows are bands, columns are frames.
var gaussWindow = [3][3]float64{
	{0.0113, 0.0838, 0.0113},
	{0.0838, 0.6193, 0.0838},
	{0.0113, 0.0838, 0.0113},
}

const (
	k1 = 0.01
	k3 = 0.03
)

// NSIM compares frames [refStart, refStart+n) of ref with [degStart,
// degStart+n) of deg. It returns the mean over bands and the per-band means,
// each clamped to [0, 1]. Frames outside deg read as zero.
func NSIM(ref, deg *spectrogram.Spectrogram, refStart, degStart, n int) (float64, []float64) {
	bands := ref.NumBands()
	r := block(ref, refStart, n)
	d := block(deg, degStart, n)

	intensityRange := 1.0
	for _, row := range r {
		for _, v := range row {
			intensityRange = max(intensityRange, v)
		}
	}
	c1 := (k1 * intensityRange) * (k1 * intensityRange)
	c3 := (k3 * intensityRange) * (k3 * intensityRange) / 2

	means := make([]float64, bands)
	if n <= 0 || bands == 0 {
		return 0, means
	}
	var total float64
	for b := 0; b < bands; b++ {
		var sum float64
		for t := 0; t < n; t++ {
			var mr, md, rr, dd, rd float64
			for i := -1; i <= 1; i++ {
				bb := b + i
				if bb < 0 || bb >= bands {
					continue
				}
				for j := -1; j <= 1; j++ {
					tt := t + j
					if tt < 0 || tt >= n {
						continue
					}
					w := gaussWindow[i+1][j+1]
					x, y := r[bb][tt], d[bb][tt]
					mr += w * x
					md += w * y
					rr += w * x * x
					dd += w * y * y
					rd += w * x * y
				}
			}
			varR := max(0, rr-mr*mr)
			varD := max(0, dd-md*md)
			cov := rd - mr*md
			sdR, sdD := math.Sqrt(varR), math.Sqrt(varD)

			intensity := (2*mr*md + c1) / (mr*mr + md*md + c1)
			structure := (cov + c3) / (sdR*sdD + c3)
			sum += intensity * structure
		}
		means[b] = core.Clamp(sum/float64(n), 0, 1)
		total += means[b]
	}
	return total / float64(bands), means
}

func block(s *spectrogram.Spectrogram, start, n int) [][]float64 {
	out := make([][]float64, s.NumBands())
	for b := range out {
		row := make([]float64, max(n, 0))
		for t := range row {
			row[t] = s.At(b, start+t)
		}
		out[b] = row
	}
	return out
}
