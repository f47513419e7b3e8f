package survey

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/gocarina/gocsv"
)

//go:embed bandpasses.csv
var bandpassesCSV []byte

// Bandpass is a row of the embedded bandpass table
type Bandpass struct {
	Name        string  `csv:"name"`
	WaveEff     float64 `csv:"wave_eff"` // Angstrom
	Description string  `csv:"description"`
}

var (
	bandpassOnce  sync.Once
	bandpassCache map[string]Bandpass
	bandpassErr   error
)

func loadBandpasses() {
	var rows []Bandpass
	if err := gocsv.UnmarshalBytes(bandpassesCSV, &rows); err != nil {
		bandpassErr = fmt.Errorf("could not parse bandpass table: %w", err)
		return
	}

	bandpassCache = make(map[string]Bandpass, len(rows))
	for _, row := range rows {
		bandpassCache[strings.ToLower(row.Name)] = row
	}
}

// LookupBandpass returns the bandpass with the given name, e.g. "sdssr"
func LookupBandpass(name string) (Bandpass, error) {
	bandpassOnce.Do(loadBandpasses)
	if bandpassErr != nil {
		return Bandpass{}, bandpassErr
	}

	bp, ok := bandpassCache[strings.ToLower(name)]
	if !ok {
		return Bandpass{}, fmt.Errorf("%w: no bandpass named '%s'", ErrUnknownBand, name)
	}
	return bp, nil
}
