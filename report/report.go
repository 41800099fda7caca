// Package report serialises comparison results as JSON records and CSV
// summaries.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cwbudde/algo-visqol/visqol"
)

// Record is the JSON form of one comparison.
type Record struct {
	ReferencePath   string        `json:"reference_path,omitempty"`
	DegradedPath    string        `json:"degraded_path,omitempty"`
	MOSLQO          float64       `json:"moslqo"`
	VNSIM           float64       `json:"vnsim"`
	FVNSIM          []float64     `json:"fvnsim"`
	CenterFreqBands []float64     `json:"center_freq_bands"`
	LagSamples      int           `json:"lag_samples"`
	Fallback        bool          `json:"fallback,omitempty"`
	Warnings        []string      `json:"warnings,omitempty"`
	PatchSims       []PatchRecord `json:"patch_sims,omitempty"`
}

// PatchRecord describes one matched patch.
type PatchRecord struct {
	Similarity        float64   `json:"similarity"`
	RefPatchStartTime float64   `json:"ref_patch_start_time"`
	RefPatchEndTime   float64   `json:"ref_patch_end_time"`
	DegPatchStartTime float64   `json:"deg_patch_start_time"`
	DegPatchEndTime   float64   `json:"deg_patch_end_time"`
	FreqBandMeans     []float64 `json:"freq_band_means"`
}

// NewRecord converts res. Patch details are kept only when debug is set.
func NewRecord(res *visqol.Result, debug bool) Record {
	r := Record{
		ReferencePath:   res.ReferencePath,
		DegradedPath:    res.DegradedPath,
		MOSLQO:          res.MOSLQO,
		VNSIM:           res.VNSIM,
		FVNSIM:          res.FVNSIM,
		CenterFreqBands: res.CenterFreqBands,
		LagSamples:      res.LagSamples,
		Fallback:        res.Fallback,
		Warnings:        res.Warnings,
	}
	if debug {
		r.PatchSims = make([]PatchRecord, len(res.PatchSims))
		for i, p := range res.PatchSims {
			r.PatchSims[i] = PatchRecord{
				Similarity:        p.Similarity,
				RefPatchStartTime: p.RefStartTime,
				RefPatchEndTime:   p.RefEndTime,
				DegPatchStartTime: p.DegStartTime,
				DegPatchEndTime:   p.DegEndTime,
				FreqBandMeans:     p.FreqBandMeans,
			}
		}
	}
	return r
}

// EncodeJSON writes v as indented JSON.
func EncodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteJSON stores v at path, creating parent directories.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644)
}

var csvHeader = []string{"reference", "degraded", "moslqo", "vnsim", "lag_samples", "fallback"}

// WriteCSV writes one summary row per record.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.ReferencePath,
			r.DegradedPath,
			strconv.FormatFloat(r.MOSLQO, 'f', 6, 64),
			strconv.FormatFloat(r.VNSIM, 'f', 6, 64),
			strconv.Itoa(r.LagSamples),
			strconv.FormatBool(r.Fallback),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes records to path.
func WriteCSVFile(path string, records []Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadPairsCSV reads reference,degraded rows. A first row whose cells are
// literally "reference" and "degraded" is skipped.
func ReadPairsCSV(r io.Reader) ([]visqol.PathPair, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	var pairs []visqol.PathPair
	for i, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("row %d: want reference,degraded, got %d fields", i+1, len(row))
		}
		if i == 0 && row[0] == "reference" && row[1] == "degraded" {
			continue
		}
		pairs = append(pairs, visqol.PathPair{Reference: row[0], Degraded: row[1]})
	}
	return pairs, nil
}
