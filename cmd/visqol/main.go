package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-visqol/config"
	"github.com/cwbudde/algo-visqol/internal/cliutil"
	"github.com/cwbudde/algo-visqol/report"
	"github.com/cwbudde/algo-visqol/visqol"
)

type options struct {
	configPath   string
	modelPath    string
	speech       bool
	unscaled     bool
	searchRadius int
	workersRaw   string
	resampleTo   int
	set          map[string]bool
}

func main() {
	referencePath := flag.String("reference", "", "Reference WAV path")
	degradedPath := flag.String("degraded", "", "Degraded WAV path")
	batchCSV := flag.String("batch-csv", "", "CSV of reference,degraded pairs to compare")
	batchWorkers := flag.String("batch-workers", "1", "Concurrent pairs in batch mode: integer >= 1 or 'auto'")
	jsonOut := flag.Bool("json", false, "Print results as JSON")
	resultsCSV := flag.String("results-csv", "", "Optional CSV summary output path")
	outputJSON := flag.String("output-json", "", "Optional JSON output path")
	debug := flag.Bool("debug", false, "Include per-patch similarity details")
	verbose := flag.Bool("verbose", false, "Enable debug logging")

	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Optional JSON config file")
	flag.StringVar(&opts.modelPath, "model", "", "libsvm model path for audio mode")
	flag.BoolVar(&opts.speech, "speech", false, "Use speech mode (21 bands, VAD patches, exponential mapping)")
	flag.BoolVar(&opts.unscaled, "unscaled", false, "Use the unscaled speech mapping")
	flag.IntVar(&opts.searchRadius, "search-radius", 0, "Patch search radius in frames (0 = patch length)")
	flag.StringVar(&opts.workersRaw, "workers", "1", "Patch search workers: integer >= 1 or 'auto'")
	flag.IntVar(&opts.resampleTo, "resample", 0, "Resample inputs to this rate (0 = keep)")
	flag.Parse()

	opts.set = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg, err := buildConfig(opts)
	if err != nil {
		die("invalid configuration: %v", err)
	}

	m := visqol.NewManager(visqol.WithLogger(logger))
	if err := m.Init(cfg); err != nil {
		die("failed to initialise: %v", err)
	}

	var results []*visqol.Result
	switch {
	case *batchCSV != "":
		pairs, err := readPairs(*batchCSV)
		if err != nil {
			die("failed to read batch csv: %v", err)
		}
		n, err := cliutil.ParseWorkers(*batchWorkers)
		if err != nil {
			die("invalid -batch-workers: %v", err)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		results, err = m.BatchParallel(ctx, pairs, cliutil.ResolveWorkers(n))
		if err != nil {
			die("batch stopped after %d results: %v", len(results), err)
		}
	case *referencePath != "" && *degradedPath != "":
		res, err := m.CompareFiles(*referencePath, *degradedPath)
		if err != nil {
			die("comparison failed: %v", err)
		}
		results = append(results, res)
	default:
		die("either -reference and -degraded, or -batch-csv is required")
	}

	records := make([]report.Record, len(results))
	for i, res := range results {
		records[i] = report.NewRecord(res, *debug)
	}

	if *resultsCSV != "" {
		if err := report.WriteCSVFile(*resultsCSV, records); err != nil {
			die("failed to write csv: %v", err)
		}
	}
	if *outputJSON != "" {
		if err := report.WriteJSON(*outputJSON, jsonPayload(records)); err != nil {
			die("failed to write json: %v", err)
		}
	}
	if *jsonOut {
		if err := report.EncodeJSON(os.Stdout, jsonPayload(records)); err != nil {
			die("json encode failed: %v", err)
		}
		return
	}
	for _, r := range records {
		printRecord(r, *debug)
	}
}

func buildConfig(opts options) (visqol.Config, error) {
	cfg := visqol.DefaultConfig(opts.speech)
	if opts.configPath != "" {
		loaded, err := config.LoadJSON(opts.configPath)
		if err != nil {
			return visqol.Config{}, err
		}
		cfg = loaded
		if opts.set["speech"] {
			cfg.Speech = opts.speech
		}
	}
	if opts.set["model"] || cfg.ModelPath == "" {
		cfg.ModelPath = opts.modelPath
	}
	if opts.set["unscaled"] {
		cfg.UnscaledSpeechMapping = opts.unscaled
	}
	if opts.set["search-radius"] {
		cfg.SearchRadius = opts.searchRadius
	}
	if opts.set["resample"] {
		cfg.ResampleTo = opts.resampleTo
	}
	if opts.set["workers"] || opts.configPath == "" {
		n, err := cliutil.ParseWorkers(opts.workersRaw)
		if err != nil {
			return visqol.Config{}, fmt.Errorf("workers: %w", err)
		}
		cfg.Workers = cliutil.ResolveWorkers(n)
	}
	if !cfg.Speech && cfg.ModelPath == "" {
		return visqol.Config{}, fmt.Errorf("audio mode needs -model or model_path in the config")
	}
	return cfg, cfg.Validate()
}

func readPairs(path string) ([]visqol.PathPair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return report.ReadPairsCSV(f)
}

func jsonPayload(records []report.Record) any {
	if len(records) == 1 {
		return records[0]
	}
	return records
}

func printRecord(r report.Record, debug bool) {
	if r.ReferencePath != "" {
		fmt.Printf("Reference:  %s\n", r.ReferencePath)
		fmt.Printf("Degraded:   %s\n", r.DegradedPath)
	}
	fmt.Printf("MOS-LQO:    %.4f\n", r.MOSLQO)
	fmt.Printf("VNSIM:      %.4f\n", r.VNSIM)
	fmt.Printf("Lag:        %d samples\n", r.LagSamples)
	if r.Fallback {
		fmt.Println("Patches:    none selected, whole overlap compared")
	}
	for _, w := range r.Warnings {
		fmt.Printf("Warning:    %s\n", w)
	}
	fmt.Println()
	fmt.Printf("%-10s %s\n", "Band (Hz)", "FVNSIM")
	fmt.Println(strings.Repeat("─", 24))
	for i, v := range r.FVNSIM {
		fmt.Printf("%-10.1f %.4f\n", r.CenterFreqBands[i], v)
	}
	if debug {
		fmt.Println()
		fmt.Printf("%-20s %-20s %s\n", "Ref (s)", "Deg (s)", "Similarity")
		for _, p := range r.PatchSims {
			fmt.Printf("%7.3f - %-10.3f %7.3f - %-10.3f %.4f\n",
				p.RefPatchStartTime, p.RefPatchEndTime, p.DegPatchStartTime, p.DegPatchEndTime, p.Similarity)
		}
	}
	fmt.Println()
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
