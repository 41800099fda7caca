// Package visqol wires the neurogram, alignment, patch search and quality
// mapping stages into a reference/degraded comparison.
package visqol

import (
	"fmt"
	"math"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-visqol/alignment"
	"github.com/cwbudde/algo-visqol/internal/audiofile"
	"github.com/cwbudde/algo-visqol/signal"
	"github.com/cwbudde/algo-visqol/similarity"
)

// Result is a finished comparison plus its inputs and any input warnings.
type Result struct {
	similarity.Result
	ReferencePath string
	DegradedPath  string
	Warnings      []string
}

// Manager owns the configured pipeline. Init must succeed before any
// comparison; after that a Manager is safe for concurrent use.
type Manager struct {
	log logrus.FieldLogger

	mu          sync.RWMutex
	cfg         Config
	comp        *Components
	initialized bool
}

type Option func(*Manager)

func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Manager) { m.log = l }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{log: logrus.StandardLogger()}
	for _, o := range opts {
		o(m)
	}
	return m
}

// InitMode initialises with the default configuration of a mode.
func (m *Manager) InitMode(modelPath string, speech bool, unscaledSpeech bool) error {
	cfg := DefaultConfig(speech)
	cfg.ModelPath = modelPath
	cfg.UnscaledSpeechMapping = unscaledSpeech
	return m.Init(cfg)
}

// Init builds the pipeline for cfg. On failure the manager stays (or
// becomes) uninitialised.
func (m *Manager) Init(cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized = false
	m.comp = nil

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	comp, err := NewComponents(cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if err := comp.Mapper.Init(); err != nil {
		m.log.WithFields(logrus.Fields{
			"model":  cfg.ModelPath,
			"speech": cfg.Speech,
		}).WithError(err).Error("quality mapper init failed")
		return err
	}

	m.cfg = cfg
	m.comp = comp
	m.initialized = true
	m.log.WithFields(logrus.Fields{
		"speech": cfg.Speech,
		"bands":  cfg.NumBands(),
		"patch":  cfg.PatchLength(),
		"model":  cfg.ModelPath,
	}).Debug("visqol initialised")
	return nil
}

func (m *Manager) Initialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// Config returns the active configuration.
func (m *Manager) Config() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) snapshot() (Config, *Components, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		return Config{}, nil, ErrNotInitialized
	}
	return m.cfg, m.comp, nil
}

// Compare validates, aligns and scores deg against ref. Neither input is
// modified. A failed comparison returns a nil result.
func (m *Manager) Compare(ref, deg signal.Signal) (*Result, error) {
	cfg, comp, err := m.snapshot()
	if err != nil {
		return nil, err
	}
	warnings, err := m.validate(cfg, ref, deg)
	if err != nil {
		return nil, err
	}

	aligned, lag, err := alignment.GloballyAlign(ref, deg, comp.Alignment)
	if err != nil {
		return nil, invalid(err)
	}
	if lag != 0 {
		m.log.WithFields(logrus.Fields{
			"lag_samples": lag,
			"lag_seconds": float64(lag) / float64(ref.SampleRate),
		}).Debug("degraded signal aligned")
	}

	sim, err := comp.CalculateSimilarity(ref, aligned)
	if err != nil {
		return nil, err
	}
	sim.LagSamples = lag
	if sim.Fallback {
		msg := "no patches selected; compared the full overlapping span"
		m.log.WithFields(logrus.Fields{
			"ref_duration": ref.Duration(),
			"deg_duration": deg.Duration(),
		}).Warn(msg)
		warnings = append(warnings, msg)
	}
	return &Result{Result: *sim, Warnings: warnings}, nil
}

// CompareFiles loads both files as mono and compares them.
func (m *Manager) CompareFiles(refPath, degPath string) (*Result, error) {
	cfg, _, err := m.snapshot()
	if err != nil {
		return nil, err
	}
	ref, err := audiofile.LoadAsMono(refPath, cfg.ResampleTo)
	if err != nil {
		return nil, invalid(fmt.Errorf("reference: %w", err))
	}
	deg, err := audiofile.LoadAsMono(degPath, cfg.ResampleTo)
	if err != nil {
		return nil, invalid(fmt.Errorf("degraded: %w", err))
	}
	res, err := m.Compare(ref, deg)
	if err != nil {
		return nil, err
	}
	res.ReferencePath = refPath
	res.DegradedPath = degPath
	return res, nil
}

// validate rejects unusable pairs and returns non-fatal warnings.
func (m *Manager) validate(cfg Config, ref, deg signal.Signal) ([]string, error) {
	if err := ref.Validate(); err != nil {
		return nil, invalid(fmt.Errorf("reference: %w", err))
	}
	if err := deg.Validate(); err != nil {
		return nil, invalid(fmt.Errorf("degraded: %w", err))
	}
	if ref.SampleRate != deg.SampleRate {
		return nil, fmt.Errorf("%w: sample rates differ (reference %d Hz, degraded %d Hz)",
			ErrInvalidArgument, ref.SampleRate, deg.SampleRate)
	}

	var warnings []string
	warn := func(fields logrus.Fields, msg string) {
		m.log.WithFields(fields).Warn(msg)
		warnings = append(warnings, msg)
	}

	refDur, degDur := ref.Duration(), deg.Duration()
	if math.Abs(refDur-degDur) > cfg.DurationTolerance {
		warn(logrus.Fields{
			"ref_duration": refDur,
			"deg_duration": degDur,
			"tolerance":    cfg.DurationTolerance,
		}, fmt.Sprintf("duration mismatch: reference %.3fs, degraded %.3fs", refDur, degDur))
	}
	if cfg.Speech && ref.SampleRate > SpeechMaxSampleRate {
		warn(logrus.Fields{"sample_rate": ref.SampleRate},
			fmt.Sprintf("sample rate %d Hz is above %d Hz; speech mode ignores content above 8 kHz",
				ref.SampleRate, SpeechMaxSampleRate))
	}
	if !cfg.Speech && ref.SampleRate != AudioSampleRate {
		warn(logrus.Fields{"sample_rate": ref.SampleRate},
			fmt.Sprintf("sample rate %d Hz differs from the expected %d Hz for audio mode",
				ref.SampleRate, AudioSampleRate))
	}
	return warnings, nil
}
