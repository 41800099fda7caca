// Package audiofile loads and writes the WAV files compared by the tools.
package audiofile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"

	"github.com/cwbudde/algo-visqol/signal"
)

var ErrDecode = errors.New("audiofile: cannot decode wav")

// LoadAsMono reads path, averages its channels and resamples to targetRate
// when targetRate > 0 and differs from the file rate.
func LoadAsMono(path string, targetRate int) (signal.Signal, error) {
	samples, sr, err := ReadWAVMono(path)
	if err != nil {
		return signal.Signal{}, err
	}
	if targetRate > 0 && targetRate != sr {
		samples, err = ResampleIfNeeded(samples, sr, targetRate)
		if err != nil {
			return signal.Signal{}, fmt.Errorf("resample %s: %w", path, err)
		}
		sr = targetRate
	}
	sig := signal.New(samples, sr)
	if err := sig.Validate(); err != nil {
		return signal.Signal{}, fmt.Errorf("%s: %w", path, err)
	}
	return sig, nil
}

func ReadWAVMono(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("%w: %s", ErrDecode, path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, fmt.Errorf("%w: %s: no channels", ErrDecode, path)
	}
	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < ch; c++ {
			sum += float64(buf.Data[i*ch+c])
		}
		out[i] = sum / float64(ch)
	}
	return out, buf.Format.SampleRate, nil
}

func ResampleIfNeeded(in []float64, fromRate int, toRate int) ([]float64, error) {
	if fromRate == toRate {
		return in, nil
	}
	r, err := dspresample.NewForRates(
		float64(fromRate),
		float64(toRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, err
	}
	return r.Process(in), nil
}

// WriteMonoWAV stores sig as 16-bit PCM, creating parent directories.
func WriteMonoWAV(path string, sig signal.Signal) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := wav.NewEncoder(f, sig.SampleRate, 16, 1, 1)

	data := make([]float32, len(sig.Samples))
	for i, v := range sig.Samples {
		data[i] = float32(v)
	}
	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sig.SampleRate,
			NumChannels: 1,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}
