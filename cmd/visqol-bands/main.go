package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/cwbudde/algo-visqol/config"
	"github.com/cwbudde/algo-visqol/internal/audiofile"
	"github.com/cwbudde/algo-visqol/report"
	"github.com/cwbudde/algo-visqol/visqol"
)

func main() {
	refPath := flag.String("reference", "", "Reference WAV")
	degPath := flag.String("degraded", "", "Degraded WAV")
	configPath := flag.String("config", "", "Optional JSON config")
	speech := flag.Bool("speech", false, "Use the speech filter bank")
	resample := flag.Int("resample", 0, "Resample inputs to this rate (0 = keep)")
	jsonOut := flag.Bool("json", false, "Print the report as JSON")
	flag.Parse()

	if *refPath == "" || *degPath == "" {
		die("-reference and -degraded are required")
	}

	cfg := visqol.DefaultConfig(*speech)
	if *configPath != "" {
		loaded, err := config.LoadJSON(*configPath)
		if err != nil {
			die("config: %v", err)
		}
		cfg = loaded
	}
	if *resample > 0 {
		cfg.ResampleTo = *resample
	}
	if err := cfg.Validate(); err != nil {
		die("config: %v", err)
	}
	comp, err := visqol.NewComponents(cfg)
	if err != nil {
		die("components: %v", err)
	}

	ref, err := audiofile.LoadAsMono(*refPath, cfg.ResampleTo)
	if err != nil {
		die("reference: %v", err)
	}
	deg, err := audiofile.LoadAsMono(*degPath, cfg.ResampleTo)
	if err != nil {
		die("degraded: %v", err)
	}

	rep, err := analyze(comp, ref, deg)
	if err != nil {
		die("analysis failed: %v", err)
	}
	if *jsonOut {
		if err := report.EncodeJSON(os.Stdout, rep); err != nil {
			die("json encode failed: %v", err)
		}
		return
	}

	fmt.Printf("Reference: %d samples @ %d Hz (%.2fs)\n", ref.Len(), ref.SampleRate, ref.Duration())
	fmt.Printf("Degraded:  %d samples @ %d Hz (%.2fs)\n", deg.Len(), deg.SampleRate, deg.Duration())
	reliable := "reliable"
	if !rep.Reliable {
		reliable = "not applied"
	}
	fmt.Printf("Lag: %d samples (%.1fms) corr=%.3f %s\n", rep.Lag, float64(rep.Lag)/float64(rep.SampleRate)*1000, rep.Correlation, reliable)
	fmt.Printf("Frames compared: %d  NSIM: %.4f\n\n", rep.Frames, rep.NSIM)

	fmt.Printf("%-10s %10s %10s %8s %10s\n", "Band (Hz)", "Ref (dB)", "Deg (dB)", "NSIM", "Spec diff")
	fmt.Println(strings.Repeat("─", 52))
	for _, b := range rep.Bands {
		fmt.Printf("%-10.1f %10.2f %10.2f %8.4f %+9.2fdB\n", b.CenterFreq, b.RefLevel, b.DegLevel, b.NSIM, b.SpectrumDiffDB)
	}
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
