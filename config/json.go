// Package config reads JSON overrides for the comparison pipeline.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-visqol/visqol"
)

// File is the JSON schema for pipeline settings. Absent keys keep the mode
// defaults.
type File struct {
	Mode                  string         `json:"mode,omitempty"`
	ModelPath             string         `json:"model_path,omitempty"`
	UnscaledSpeechMapping *bool          `json:"unscaled_speech_mapping,omitempty"`
	WindowDuration        *float64       `json:"window_duration,omitempty"`
	DynamicRangeDB        *float64       `json:"dynamic_range_db,omitempty"`
	SearchRadius          *int           `json:"search_radius,omitempty"`
	TieEpsilon            *float64       `json:"tie_epsilon,omitempty"`
	MaxPatches            *int           `json:"max_patches,omitempty"`
	VADThreshold          *float64       `json:"vad_threshold,omitempty"`
	VADHangover           *int           `json:"vad_hangover,omitempty"`
	VADMinActiveRatio     *float64       `json:"vad_min_active_ratio,omitempty"`
	MaxLagSeconds         *float64       `json:"max_lag_seconds,omitempty"`
	MinCorrelation        *float64       `json:"min_correlation,omitempty"`
	Workers               *int           `json:"workers,omitempty"`
	DurationTolerance     *float64       `json:"duration_tolerance,omitempty"`
	ResampleTo            *int           `json:"resample_to,omitempty"`
	SpeechMapping         *SpeechMapping `json:"speech_mapping,omitempty"`
}

// SpeechMapping overrides the speech MOS curve coefficients.
type SpeechMapping struct {
	A  *float64 `json:"a,omitempty"`
	B  *float64 `json:"b,omitempty"`
	X0 *float64 `json:"x0,omitempty"`
}

// LoadJSON reads path and applies it on top of the defaults for its mode.
// A relative model_path is resolved against the file's directory.
func LoadJSON(path string) (visqol.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return visqol.Config{}, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return visqol.Config{}, fmt.Errorf("%s: %w", path, err)
	}

	speech, err := parseMode(f.Mode)
	if err != nil {
		return visqol.Config{}, err
	}
	cfg := visqol.DefaultConfig(speech)
	if err := ApplyFile(&cfg, &f); err != nil {
		return visqol.Config{}, fmt.Errorf("%s: %w", path, err)
	}

	if cfg.ModelPath != "" && !filepath.IsAbs(cfg.ModelPath) {
		cfg.ModelPath = filepath.Clean(filepath.Join(filepath.Dir(path), cfg.ModelPath))
	}
	return cfg, nil
}

func parseMode(mode string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "audio":
		return false, nil
	case "speech":
		return true, nil
	default:
		return false, fmt.Errorf("mode must be \"audio\" or \"speech\", got %q", mode)
	}
}

// ApplyFile applies a parsed file onto an existing config. The mode key is
// ignored here; it only selects defaults in LoadJSON.
func ApplyFile(dst *visqol.Config, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination config")
	}
	if f == nil {
		return nil
	}

	if f.ModelPath != "" {
		dst.ModelPath = strings.TrimSpace(f.ModelPath)
	}
	if f.UnscaledSpeechMapping != nil {
		dst.UnscaledSpeechMapping = *f.UnscaledSpeechMapping
	}
	if f.WindowDuration != nil {
		if *f.WindowDuration <= 0 {
			return fmt.Errorf("window_duration must be > 0")
		}
		dst.WindowDuration = *f.WindowDuration
	}
	if f.DynamicRangeDB != nil {
		if *f.DynamicRangeDB <= 0 {
			return fmt.Errorf("dynamic_range_db must be > 0")
		}
		dst.DynamicRangeDB = *f.DynamicRangeDB
	}
	if f.SearchRadius != nil {
		if *f.SearchRadius < 0 {
			return fmt.Errorf("search_radius must be >= 0")
		}
		dst.SearchRadius = *f.SearchRadius
	}
	if f.TieEpsilon != nil {
		if *f.TieEpsilon < 0 {
			return fmt.Errorf("tie_epsilon must be >= 0")
		}
		dst.TieEpsilon = *f.TieEpsilon
	}
	if f.MaxPatches != nil {
		if *f.MaxPatches < 0 {
			return fmt.Errorf("max_patches must be >= 0")
		}
		dst.MaxPatches = *f.MaxPatches
	}
	if f.VADThreshold != nil {
		if *f.VADThreshold < 0 || *f.VADThreshold > 1 {
			return fmt.Errorf("vad_threshold must be in [0,1]")
		}
		dst.VADThreshold = *f.VADThreshold
	}
	if f.VADHangover != nil {
		if *f.VADHangover < 0 {
			return fmt.Errorf("vad_hangover must be >= 0")
		}
		dst.VADHangover = *f.VADHangover
	}
	if f.VADMinActiveRatio != nil {
		if *f.VADMinActiveRatio < 0 || *f.VADMinActiveRatio > 1 {
			return fmt.Errorf("vad_min_active_ratio must be in [0,1]")
		}
		dst.VADMinActiveRatio = *f.VADMinActiveRatio
	}
	if f.MaxLagSeconds != nil {
		if *f.MaxLagSeconds < 0 {
			return fmt.Errorf("max_lag_seconds must be >= 0")
		}
		dst.MaxLagSeconds = *f.MaxLagSeconds
	}
	if f.MinCorrelation != nil {
		if *f.MinCorrelation < 0 || *f.MinCorrelation > 1 {
			return fmt.Errorf("min_correlation must be in [0,1]")
		}
		dst.MinCorrelation = *f.MinCorrelation
	}
	if f.Workers != nil {
		if *f.Workers < 0 {
			return fmt.Errorf("workers must be >= 0")
		}
		dst.Workers = *f.Workers
	}
	if f.DurationTolerance != nil {
		if *f.DurationTolerance < 0 {
			return fmt.Errorf("duration_tolerance must be >= 0")
		}
		dst.DurationTolerance = *f.DurationTolerance
	}
	if f.ResampleTo != nil {
		if *f.ResampleTo < 0 {
			return fmt.Errorf("resample_to must be >= 0")
		}
		dst.ResampleTo = *f.ResampleTo
	}
	if sm := f.SpeechMapping; sm != nil {
		if sm.A != nil {
			dst.SpeechMapping.A = *sm.A
		}
		if sm.B != nil {
			if *sm.B <= 0 {
				return fmt.Errorf("speech_mapping.b must be > 0")
			}
			dst.SpeechMapping.B = *sm.B
		}
		if sm.X0 != nil {
			dst.SpeechMapping.X0 = *sm.X0
		}
	}
	return nil
}

// SpeechMappingFile returns a file that only sets the speech curve.
func SpeechMappingFile(m visqol.SpeechMapping) *File {
	a, b, x0 := m.A, m.B, m.X0
	return &File{
		Mode:          "speech",
		SpeechMapping: &SpeechMapping{A: &a, B: &b, X0: &x0},
	}
}

// WriteJSON stores f as indented JSON, creating parent directories.
func WriteJSON(path string, f *File) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644)
}
