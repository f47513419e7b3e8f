package catalogue

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"astrocat/survey"
	"astrocat/vizier"
)

// Load reads a catalogue written by WriteCSV
func Load(path string, schema *survey.Schema) (*Catalogue, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	records, err := csv.NewReader(fh).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	df, err := vizier.LoadRecords(records)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return New(schema, df)
}

// WriteCSV writes every object of the catalogue, field of view ignored, with a header row
func (c *Catalogue) WriteCSV(w io.Writer) error {
	if c.data == nil {
		return ErrNoData
	}
	return c.data.WriteCSV(w)
}

// Save writes the catalogue to path, see WriteCSV
func (c *Catalogue) Save(path string) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := c.WriteCSV(fh); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}
