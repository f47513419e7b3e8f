package spectrum

import (
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"
)

// Row of a spectrum CSV file, lbda is in header units
type Row struct {
	Lbda     float64  `csv:"lbda"`
	Flux     float64  `csv:"flux"`
	Variance *float64 `csv:"variance,omitempty"`
}

// ReadCSV reads a spectrum written by WriteCSV. Either every row or none has a variance.
func ReadCSV(r io.Reader, name string) (*Spectrum, error) {
	var rows []Row
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmpty
	}

	lbda := make([]float64, len(rows))
	flux := make([]float64, len(rows))
	var variance []float64
	if rows[0].Variance != nil {
		variance = make([]float64, len(rows))
	}

	for i, row := range rows {
		lbda[i] = row.Lbda
		flux[i] = row.Flux
		if (row.Variance != nil) != (variance != nil) {
			return nil, fmt.Errorf("%w: row %d, variance must be given for all rows or none", ErrLengthMismatch, i+1)
		}
		if variance != nil {
			variance[i] = *row.Variance
		}
	}
	return New(lbda, flux, variance, name)
}

func (s *Spectrum) WriteCSV(w io.Writer) error {
	raw := s.RawLbda()
	rows := make([]Row, len(raw))
	for i := range raw {
		rows[i] = Row{Lbda: raw[i], Flux: s.y[i]}
		if s.v != nil {
			v := s.v[i]
			rows[i].Variance = &v
		}
	}
	return gocsv.Marshal(rows, w)
}

func Load(path string) (*Spectrum, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return ReadCSV(fh, path)
}
