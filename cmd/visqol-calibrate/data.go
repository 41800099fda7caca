package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-visqol/visqol"
)

// observation is one subjective score. Rows that name a reference/degraded
// pair have their vnsim filled in by scoreObservations.
type observation struct {
	VNSIM float64
	MOS   float64
	Pair  *visqol.PathPair
}

func readObservationsFile(path string) ([]observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	obs, err := readObservations(f)
	if err != nil {
		return nil, err
	}
	base := filepath.Dir(path)
	for i := range obs {
		if p := obs[i].Pair; p != nil {
			p.Reference = resolvePath(base, p.Reference)
			p.Degraded = resolvePath(base, p.Degraded)
		}
	}
	return obs, nil
}

// readObservations accepts "vnsim,mos" or "reference,degraded,mos" rows.
// A leading row whose last cell is not a number is treated as a header.
func readObservations(r io.Reader) ([]observation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}

	var out []observation
	for i, row := range rows {
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		mos, err := strconv.ParseFloat(strings.TrimSpace(row[len(row)-1]), 64)
		if err != nil {
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("row %d: invalid mos %q", i+1, row[len(row)-1])
		}
		switch len(row) {
		case 2:
			v, err := strconv.ParseFloat(strings.TrimSpace(row[0]), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid vnsim %q", i+1, row[0])
			}
			out = append(out, observation{VNSIM: v, MOS: mos})
		case 3:
			out = append(out, observation{
				MOS:  mos,
				Pair: &visqol.PathPair{Reference: row[0], Degraded: row[1]},
			})
		default:
			return nil, fmt.Errorf("row %d: want 2 or 3 fields, got %d", i+1, len(row))
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no observations")
	}
	return out, nil
}

// scoreObservations runs the speech pipeline for every row that names a
// file pair. Failed pairs are dropped and counted.
func scoreObservations(m *visqol.Manager, obs []observation) ([]observation, int) {
	kept := obs[:0:0]
	skipped := 0
	for _, o := range obs {
		if o.Pair != nil {
			res, err := m.CompareFiles(o.Pair.Reference, o.Pair.Degraded)
			if err != nil {
				skipped++
				continue
			}
			o.VNSIM = res.VNSIM
		}
		kept = append(kept, o)
	}
	return kept, skipped
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
