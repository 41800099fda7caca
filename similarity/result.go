package similarity

// Result is the outcome of one reference/degraded comparison.
type Result struct {
	MOSLQO          float64
	VNSIM           float64
	FVNSIM          []float64
	CenterFreqBands []float64
	PatchSims       []PatchMatch
	// LagSamples is the shift applied by global alignment.
	LagSamples int
	// Fallback is set when no patch qualified and the whole overlap was
	// compared instead.
	Fallback bool
}
