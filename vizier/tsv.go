package vizier

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

var ErrNoTable = errors.New("no table in VizieR response")

// Values VizieR uses for missing data
var nanValues = []string{"", "NaN", "<nil>"}

// ParseTSV reads the first table of an ASU-TSV document.
//
// The document is a sequence of '#' comment lines and tables; a table is a
// header line, a units line, a line of dashes and then the data rows, ending
// at the next blank or comment line.
func ParseTSV(r io.Reader) (dataframe.DataFrame, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var records [][]string
	state := 0 // 0: before header, 1: units, 2: dashes, 3: rows
loop:
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		switch state {
		case 0:
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			records = append(records, splitFields(line))
			state = 1
		case 1:
			state = 2
		case 2:
			if !strings.HasPrefix(strings.TrimSpace(line), "-") {
				return dataframe.DataFrame{}, fmt.Errorf("malformed table: expected dashes after the units line, got '%s'", line)
			}
			state = 3
		case 3:
			if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
				break loop
			}
			fields := splitFields(line)
			if len(fields) != len(records[0]) {
				return dataframe.DataFrame{}, fmt.Errorf("malformed table: row %d has %d fields, header has %d",
					len(records), len(fields), len(records[0]))
			}
			records = append(records, fields)
		}
	}
	if err := scanner.Err(); err != nil {
		return dataframe.DataFrame{}, err
	}

	if state < 3 {
		return dataframe.DataFrame{}, ErrNoTable
	}
	return LoadRecords(records)
}

func splitFields(line string) []string {
	fields := strings.Split(line, "\t")
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}

// LoadRecords builds a DataFrame from a header row followed by data rows.
// Every column is kept as the verbatim string VizieR returned, so that
// identifiers and coordinates survive a CSV round trip unchanged.
// A header without rows gives a DataFrame with zero rows.
func LoadRecords(records [][]string) (dataframe.DataFrame, error) {
	if len(records) == 0 {
		return dataframe.DataFrame{}, ErrNoTable
	}

	if len(records) == 1 {
		columns := make([]series.Series, len(records[0]))
		for i, name := range records[0] {
			columns[i] = series.New([]string{}, series.String, name)
		}
		df := dataframe.New(columns...)
		return df, df.Err
	}

	df := dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nanValues),
	)
	return df, df.Err
}
