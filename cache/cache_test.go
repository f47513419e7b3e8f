package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/rickb777/period"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astrocat/vizier"
)

type fakeQuerier struct {
	calls   int
	records [][]string
	err     error
}

func (f *fakeQuerier) QueryRegion(_ context.Context, _ vizier.Query) (dataframe.DataFrame, error) {
	f.calls++
	if f.err != nil {
		return dataframe.DataFrame{}, f.err
	}
	return vizier.LoadRecords(f.records)
}

var records = [][]string{
	{"Source", "RA_ICRS", "DE_ICRS", "<Gmag>"},
	{"3017375223516672000", "83.8187510", "-5.3869451", "12.345678"},
	{"3017375257876377088", "83.8305472", "-5.3834208", "NaN"},
}

var query = vizier.Query{Catalog: "I/337/gaia", Radius: 0.1, Filters: map[string]string{"<Gmag>": "<19"}}

func TestQueryRegionCaches(t *testing.T) {
	next := &fakeQuerier{records: records}
	c := New(next, t.TempDir(), period.Period{}, false)

	first, err := c.QueryRegion(context.Background(), query)
	require.NoError(t, err)
	second, err := c.QueryRegion(context.Background(), query)
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first.Records(), second.Records())
	// identifiers and coordinates are kept verbatim
	assert.Equal(t, "3017375257876377088", second.Col("Source").Records()[1])
	assert.Equal(t, "83.8187510", second.Col("RA_ICRS").Records()[0])
	assert.True(t, second.Col("<Gmag>").Elem(1).IsNA())

	_, err = os.Stat(c.Path(query))
	assert.NoError(t, err)
}

func TestQueryRegionDifferentQueries(t *testing.T) {
	next := &fakeQuerier{records: records}
	c := New(next, t.TempDir(), period.Period{}, false)

	other := query
	other.Radius = 0.2

	assert.NotEqual(t, c.Path(query), c.Path(other))
	_, err := c.QueryRegion(context.Background(), query)
	require.NoError(t, err)
	_, err = c.QueryRegion(context.Background(), other)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestQueryRegionExpires(t *testing.T) {
	ttl, err := period.Parse("P7D")
	require.NoError(t, err)

	next := &fakeQuerier{records: records}
	c := New(next, t.TempDir(), ttl, false)

	_, err = c.QueryRegion(context.Background(), query)
	require.NoError(t, err)

	c.now = func() time.Time { return time.Now().Add(6 * 24 * time.Hour) }
	_, err = c.QueryRegion(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)

	c.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	_, err = c.QueryRegion(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestQueryRegionOverwrite(t *testing.T) {
	next := &fakeQuerier{records: records}
	dir := t.TempDir()

	_, err := New(next, dir, period.Period{}, false).QueryRegion(context.Background(), query)
	require.NoError(t, err)
	_, err = New(next, dir, period.Period{}, true).QueryRegion(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestQueryRegionEmptyTable(t *testing.T) {
	next := &fakeQuerier{records: records[:1]}
	c := New(next, t.TempDir(), period.Period{}, false)

	for range 2 {
		df, err := c.QueryRegion(context.Background(), query)
		require.NoError(t, err)
		assert.Equal(t, 0, df.Nrow())
		assert.Equal(t, records[0], df.Names())
	}
	assert.Equal(t, 1, next.calls)
}

func TestQueryRegionErrorNotCached(t *testing.T) {
	failure := errors.New("boom")
	next := &fakeQuerier{err: failure}
	c := New(next, t.TempDir(), period.Period{}, false)

	_, err := c.QueryRegion(context.Background(), query)
	assert.ErrorIs(t, err, failure)

	_, err = os.Stat(c.Path(query))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestQueryRegionCorruptEntry(t *testing.T) {
	next := &fakeQuerier{records: records}
	c := New(next, t.TempDir(), period.Period{}, false)

	_, err := c.QueryRegion(context.Background(), query)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(c.Path(query), []byte("a,b\n\"unterminated\n"), 0o644))

	df, err := c.QueryRegion(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, 2, df.Nrow())
	assert.Equal(t, 2, next.calls)
}
