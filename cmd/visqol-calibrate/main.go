package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-visqol/config"
	"github.com/cwbudde/algo-visqol/visqol"
)

func main() {
	dataPath := flag.String("data", "", "CSV of vnsim,mos or reference,degraded,mos rows")
	configPath := flag.String("config", "", "Optional JSON config used to score file pairs")
	outputPath := flag.String("output", "speech-mapping.json", "Output config JSON with the fitted speech mapping")
	seed := flag.Int64("seed", 1, "Random seed")
	rounds := flag.Int("rounds", 8, "Number of Mayfly rounds")
	mayflyVariant := flag.String("mayfly-variant", "desma", "Mayfly variant: ma|desma|olce|eobbma|gsasma|mpma|aoblmoa")
	mayflyPop := flag.Int("mayfly-pop", 10, "Male and female population size per Mayfly run")
	mayflyRoundEvals := flag.Int("mayfly-round-evals", 400, "Target eval budget per Mayfly round")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *dataPath == "" {
		die("-data is required")
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	obs, err := readObservationsFile(*dataPath)
	if err != nil {
		die("failed to read observations: %v", err)
	}

	cfg := visqol.DefaultConfig(true)
	if *configPath != "" {
		if cfg, err = config.LoadJSON(*configPath); err != nil {
			die("failed to load config: %v", err)
		}
		cfg.Speech = true
	}

	if needsScoring(obs) {
		m := visqol.NewManager(visqol.WithLogger(logger))
		if err := m.Init(cfg); err != nil {
			die("failed to initialise: %v", err)
		}
		var skipped int
		obs, skipped = scoreObservations(m, obs)
		if skipped > 0 {
			logger.WithField("skipped", skipped).Warn("some pairs could not be scored")
		}
		if len(obs) == 0 {
			die("no pairs could be scored")
		}
	}

	start := time.Now()
	variant := strings.ToLower(*mayflyVariant)
	settings := fitSettings{
		variant:   variant,
		pop:       *mayflyPop,
		rounds:    *rounds,
		roundEval: *mayflyRoundEvals,
		seed:      *seed,
	}
	res, err := fitSpeechMapping(obs, cfg.SpeechMapping, settings, func(round int, best float64) {
		fmt.Printf("Round %d elapsed=%.1fs best_rmse=%.4f\n", round, time.Since(start).Seconds(), best)
	})
	if err != nil {
		die("fit failed: %v", err)
	}

	if err := config.WriteJSON(*outputPath, config.SpeechMappingFile(res.Mapping)); err != nil {
		die("failed to write output: %v", err)
	}

	fmt.Printf("Done observations=%d evals=%d elapsed=%.1fs variant=%s\n", len(obs), res.Evals, time.Since(start).Seconds(), variant)
	fmt.Printf("RMSE:  %.4f -> %.4f\n", res.Start, res.RMSE)
	fmt.Printf("A=%.6f B=%.6f X0=%.6f\n", res.Mapping.A, res.Mapping.B, res.Mapping.X0)
	fmt.Printf("Wrote %s\n", *outputPath)
}

func needsScoring(obs []observation) bool {
	for _, o := range obs {
		if o.Pair != nil {
			return true
		}
	}
	return false
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
