package main

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/cwbudde/mayfly"

	"github.com/cwbudde/algo-visqol/quality"
	"github.com/cwbudde/algo-visqol/visqol"
)

type paramDef struct {
	Name string
	Min  float64
	Max  float64
}

// Search box for A, B and X0.
var speechDefs = []paramDef{
	{Name: "a", Min: 0.0, Max: 3.0},
	{Name: "b", Min: 0.5, Max: 12.0},
	{Name: "x0", Min: 0.0, Max: 1.0},
}

type fitSettings struct {
	variant   string
	pop       int
	rounds    int
	roundEval int
	seed      int64
}

type fitResult struct {
	Mapping visqol.SpeechMapping
	RMSE    float64
	Start   float64
	Evals   int
}

func fromNormalized(pos []float64, defs []paramDef) visqol.SpeechMapping {
	vals := make([]float64, len(defs))
	for i := range defs {
		x := 0.0
		if i < len(pos) {
			x = math.Min(1, math.Max(0, pos[i]))
		}
		vals[i] = defs[i].Min + x*(defs[i].Max-defs[i].Min)
	}
	return visqol.SpeechMapping{A: vals[0], B: vals[1], X0: vals[2]}
}

// rmse scores a mapping with the same clamped curve the speech mapper uses.
func rmse(m visqol.SpeechMapping, obs []observation) float64 {
	mapper := &quality.SpeechMapper{A: m.A, B: m.B, X0: m.X0}
	sum := 0.0
	for _, o := range obs {
		p, _ := mapper.Predict(o.VNSIM, nil)
		d := p - o.MOS
		sum += d * d
	}
	v := math.Sqrt(sum / float64(len(obs)))
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return math.MaxFloat64
	}
	return v
}

// fitSpeechMapping minimises RMSE over a number of Mayfly rounds, each with
// its own seed. The start mapping is kept unless a round beats it.
func fitSpeechMapping(obs []observation, start visqol.SpeechMapping, s fitSettings, progress func(round int, best float64)) (fitResult, error) {
	if len(obs) == 0 {
		return fitResult{}, fmt.Errorf("no observations")
	}
	if s.pop < 2 {
		s.pop = 2
	}
	if s.rounds < 1 {
		s.rounds = 1
	}
	if s.roundEval < 2*s.pop {
		s.roundEval = 2 * s.pop
	}

	var mu sync.Mutex
	best := fitResult{Mapping: start, RMSE: rmse(start, obs)}
	best.Start = best.RMSE
	best.Evals = 1

	for round := 1; round <= s.rounds; round++ {
		iters := max(1, s.roundEval/(2*s.pop))
		cfg, err := newMayflyConfig(s.variant, s.pop, len(speechDefs), iters)
		if err != nil {
			return fitResult{}, err
		}
		cfg.Rand = rand.New(rand.NewSource(s.seed + int64(round)*7919))
		cfg.ObjectiveFunc = func(pos []float64) float64 {
			cand := fromNormalized(pos, speechDefs)
			score := rmse(cand, obs)
			mu.Lock()
			best.Evals++
			if score < best.RMSE {
				best.Mapping = cand
				best.RMSE = score
			}
			mu.Unlock()
			return score
		}
		if _, err := runMayfly(cfg); err != nil {
			return best, fmt.Errorf("mayfly round %d: %w", round, err)
		}
		if progress != nil {
			progress(round, best.RMSE)
		}
	}
	return best, nil
}

func newMayflyConfig(variant string, pop int, dims int, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("unsupported variant %q", variant)
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	cfg.NC = 2 * pop
	cfg.NM = max(1, int(math.Round(0.05*float64(pop))))
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}
