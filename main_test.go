package main

import (
	"context"
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astrocat/survey"
)

const extraSchemas = `
- name: UCAC4
  catalog: I/322A
  columns: [UCAC4, RAJ2000, DEJ2000, Vmag, e_Vmag]
  row_limit: 100000
  keys:
    id: UCAC4
    ra: RAJ2000
    dec: DEJ2000
    all_stars: true
  wavelength:
    rule: fixed
    bands:
      Vmag: 5448
  suggested_mag: Vmag
`

func TestSetup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(extraSchemas), 0o644))

	args := CmdArgs{Verbose: true, Schemas: []string{path}}
	require.NoError(t, args.setup())
	defer slog.SetLogLoggerLevel(slog.LevelInfo)

	assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelDebug))
	schema, err := survey.Lookup("ucac4")
	require.NoError(t, err)
	assert.Equal(t, "I/322A", schema.Catalog)

	args = CmdArgs{Schemas: []string{filepath.Join(t.TempDir(), "missing.yaml")}}
	assert.Error(t, args.setup())
}

func TestParseInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2MASS.csv")
	fh, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, csv.NewWriter(fh).WriteAll([][]string{
		{"2MASS", "RAJ2000", "DEJ2000", "Jmag", "e_Jmag"},
		{"05351234-0523456", "083.801417", "-05.395999", "10.125", "0.023"},
	}))
	require.NoError(t, fh.Close())

	args := CmdArgs{}
	_, err = newParser(&args).ParseArgs([]string{"inspect", "--file", path, "--survey", "2mass"})
	require.NoError(t, err)
	assert.Equal(t, "Jmag", args.Inspect.Mag)
	assert.Equal(t, 0.1, args.Inspect.DensityRadius)

	args = CmdArgs{}
	_, err = newParser(&args).ParseArgs([]string{"inspect", "--survey", "2mass"})
	assert.Error(t, err, "--file is required")

	args = CmdArgs{}
	_, err = newParser(&args).ParseArgs([]string{"catalogue"})
	assert.Error(t, err)
}
