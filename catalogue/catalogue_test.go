package catalogue

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astrocat/skycoord"
	"astrocat/survey"
	"astrocat/vizier"
)

var sdssRecords = [][]string{
	{"objID", "RAJ2000", "DEJ2000", "cl", "rmag", "e_rmag"},
	{"1237663785276211326", "150.000000", "2.000000", "6", "15.000", "0.010"},
	{"1237663785276211327", "150.001000", "2.000000", "6", "17.000", "0.020"},
	{"1237663785276211328", "150.050000", "2.000000", "3", "19.000", "0.050"},
	{"1237663785276211329", "150.500000", "2.000000", "6", "", ""},
}

var center = skycoord.SkyCoord{RA: 150, Dec: 2}

func sdssCatalogue(t *testing.T) *Catalogue {
	t.Helper()
	df, err := vizier.LoadRecords(sdssRecords)
	require.NoError(t, err)
	cat, err := New(survey.MustLookup(survey.SDSS), df)
	require.NoError(t, err)
	return cat
}

func TestFieldOfView(t *testing.T) {
	cat := sdssCatalogue(t)
	assert.Equal(t, 4, cat.NObjects())
	assert.Equal(t, 4, cat.NObjectsInFov())

	require.NoError(t, cat.SetFieldOfView(center, 0.1))
	assert.Equal(t, 4, cat.NObjects())
	assert.Equal(t, 3, cat.NObjectsInFov())

	fov, err := cat.FovMask()
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, true, false}, fov)

	ra, err := cat.RA()
	require.NoError(t, err)
	assert.Equal(t, []float64{150, 150.001, 150.05}, ra)

	ids, err := cat.IDs()
	require.NoError(t, err)
	assert.Equal(t, "1237663785276211328", ids[2])

	assert.ErrorIs(t, cat.SetFieldOfView(center, 0), skycoord.ErrInvalidAngle)

	cat.ClearFieldOfView()
	assert.Equal(t, 4, cat.NObjectsInFov())
}

func TestMissingIDs(t *testing.T) {
	records := [][]string{
		{"objID", "RAJ2000", "DEJ2000", "cl", "rmag", "e_rmag"},
		{"", "150.000000", "2.000000", "6", "15.000", "0.010"},
		{"NA", "150.001000", "2.000000", "6", "NA", "0.020"},
		{"1237663785276211328", "150.050000", "2.000000", "3", "19.000", "0.050"},
	}
	df, err := vizier.LoadRecords(records)
	require.NoError(t, err)
	cat, err := New(survey.MustLookup(survey.SDSS), df)
	require.NoError(t, err)

	ids, err := cat.IDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"", "NA", "1237663785276211328"}, ids)

	require.NoError(t, cat.SetMagKeys("rmag", "e_rmag"))
	entries, err := cat.Entries(nil)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "", entries[0].ID)
	assert.Nil(t, entries[1].Mag)
}

func TestMasksFollowFieldOfView(t *testing.T) {
	cat := sdssCatalogue(t)
	require.NoError(t, cat.SetMagKeys("rmag", "e_rmag"))

	for _, radius := range []float64{0.01, 0.1, 1} {
		require.NoError(t, cat.SetFieldOfView(center, radius))

		stars, err := cat.StarMask()
		require.NoError(t, err)
		assert.Len(t, stars, cat.NObjectsInFov())

		mask, err := cat.GetMask(MaskOptions{StarsOnly: true, MagRange: &[2]float64{0, 30}, IsolatedOnly: true})
		require.NoError(t, err)
		assert.Len(t, mask, cat.NObjectsInFov())

		classes, err := cat.ObjectType()
		require.NoError(t, err)
		assert.Len(t, classes, cat.NObjectsInFov())
	}
}

func TestStarMask(t *testing.T) {
	cat := sdssCatalogue(t)

	stars, err := cat.StarMask()
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, false, true}, stars)

	require.NoError(t, cat.SetStarsID("cl", 3))
	stars, err = cat.StarMask()
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, true, false}, stars)

	assert.ErrorIs(t, cat.SetStarsID("class", 3), ErrColumnMissing)
}

func TestMagnitudeRequiresKeys(t *testing.T) {
	cat := sdssCatalogue(t)

	_, err := cat.Mag()
	require.ErrorIs(t, err, ErrConfigurationRequired)

	var confErr *ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, "mag", confErr.Key)
	assert.Equal(t, survey.SDSS, confErr.Survey)
	assert.Contains(t, confErr.Hint, `"rmag"`)

	_, err = cat.Lbda()
	assert.ErrorIs(t, err, ErrConfigurationRequired)

	_, err = cat.GetMask(MaskOptions{MagRange: &[2]float64{10, 20}})
	assert.ErrorIs(t, err, ErrConfigurationRequired)

	require.NoError(t, cat.SetMagKeys("rmag", "e_rmag"))
	mags, err := cat.Mag()
	require.NoError(t, err)
	assert.Equal(t, 17.0, mags[1])
}

func TestSetMagKeys(t *testing.T) {
	cat := sdssCatalogue(t)

	assert.ErrorIs(t, cat.SetMagKeys("xmag", ""), survey.ErrUnknownBand)
	assert.ErrorIs(t, cat.SetMagKeys("gmag", "e_gmag"), ErrColumnMissing)
	assert.ErrorIs(t, cat.SetMagKeys("", ""), ErrConfigurationRequired)
	assert.False(t, cat.Keys().HasMag())

	require.NoError(t, cat.SetMagKeys("rmag", ""))
	_, err := cat.MagErr()
	assert.ErrorIs(t, err, ErrConfigurationRequired)
}

func TestLbdaIndependentOfLoadOrder(t *testing.T) {
	type testCase struct {
		survey string
		mag    string
		magErr string
		lbda   float64
	}

	cases := []testCase{
		{survey.SDSS, "rmag", "e_rmag", 6185.19},
		{survey.SDSS, "gmag", "e_gmag", 4718.87},
		{survey.TwoMASS, "Hmag", "e_Hmag", 16620},
		{survey.Gaia, "<Gmag>", "", 6730},
	}

	for _, c := range cases {
		schema := survey.MustLookup(c.survey)
		columns := append([]string{schema.Keys.RA, schema.Keys.Dec}, c.mag)
		if c.magErr != "" {
			columns = append(columns, c.magErr)
		}
		cols := make([]series.Series, len(columns))
		for i, name := range columns {
			cols[i] = seriesOf(name, 1.5)
		}
		df := dataframe.New(cols...)

		before := NewEmpty(schema)
		require.NoError(t, before.SetMagKeys(c.mag, c.magErr))
		require.NoError(t, before.Create(df))

		after := NewEmpty(schema)
		require.NoError(t, after.Create(df))
		require.NoError(t, after.SetMagKeys(c.mag, c.magErr))

		lbdaBefore, err := before.Lbda()
		require.NoError(t, err)
		lbdaAfter, err := after.Lbda()
		require.NoError(t, err)

		assert.Equal(t, lbdaBefore, lbdaAfter, c.mag)
		assert.InDelta(t, c.lbda, lbdaAfter, 1e-9, c.mag)
	}
}

func seriesOf(name string, values ...float64) series.Series {
	return series.New(values, series.Float, name)
}

func TestSurveySpecifics(t *testing.T) {
	twomass := NewEmpty(survey.MustLookup(survey.TwoMASS))
	require.NoError(t, twomass.Create(dataframe.New(
		series.New([]string{"a", "b"}, series.String, "2MASS"),
		seriesOf("RAJ2000", 10, 11),
		seriesOf("DEJ2000", 20, 21),
		seriesOf("Jmag", 12, 13),
	)))

	stars, err := twomass.StarMask()
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true}, stars)
	_, err = twomass.ObjectType()
	assert.ErrorIs(t, err, ErrClassificationUnavailable)

	var confErr *ConfigurationError
	_, err = twomass.Mag()
	require.ErrorAs(t, err, &confErr)
	assert.Contains(t, confErr.Hint, `"Jmag"`)
	assert.ErrorIs(t, twomass.SetMagKeys("Qmag", ""), survey.ErrUnknownBand)

	wise := NewEmpty(survey.MustLookup(survey.WISE))
	require.NoError(t, wise.SetMagKeys("W1mag", "e_W1mag"))
	_, err = wise.Lbda()
	assert.ErrorIs(t, err, survey.ErrWavelengthUndefined)
	_, err = wise.StarMask()
	assert.ErrorIs(t, err, ErrClassificationUnavailable)

	gaia := NewEmpty(survey.MustLookup(survey.Gaia))
	lbda, err := gaia.Lbda()
	require.NoError(t, err)
	assert.Equal(t, 6730.0, lbda)
	_, err = gaia.MagErr()
	assert.ErrorIs(t, err, ErrConfigurationRequired)
}

func TestGetMask(t *testing.T) {
	cat := sdssCatalogue(t)
	require.NoError(t, cat.SetMagKeys("rmag", "e_rmag"))

	type testCase struct {
		name     string
		opts     MaskOptions
		expected []bool
	}

	cases := []testCase{
		{"everything", MaskOptions{}, []bool{true, true, true, true}},
		{"stars", MaskOptions{StarsOnly: true}, []bool{true, true, false, true}},
		{"magnitude", MaskOptions{MagRange: &[2]float64{14, 18}}, []bool{true, true, false, false}},
		{"isolated", MaskOptions{IsolatedOnly: true}, []bool{false, false, true, true}},
		{"isolated wide", MaskOptions{IsolatedOnly: true, IsolationRadius: 0.1}, []bool{false, false, false, true}},
		{"isolated stars", MaskOptions{StarsOnly: true, IsolatedOnly: true}, []bool{false, false, false, true}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			mask, err := cat.GetMask(c.opts)
			require.NoError(t, err)
			assert.Equal(t, c.expected, mask)
		})
	}
}

func TestGet(t *testing.T) {
	cat := sdssCatalogue(t)
	require.NoError(t, cat.SetMagKeys("rmag", "e_rmag"))

	values, err := cat.Get([]string{"ra", "dec", "mag", "e_rmag"}, []bool{true, false, true, false})
	require.NoError(t, err)
	assert.Equal(t, []float64{150, 150.05}, values[0])
	assert.Equal(t, []float64{2, 2}, values[1])
	assert.Equal(t, []float64{15, 19}, values[2])
	assert.Equal(t, []float64{0.01, 0.05}, values[3])

	_, err = cat.Get([]string{"ra"}, []bool{true})
	assert.ErrorIs(t, err, ErrMaskLength)

	_, err = cat.Get([]string{"umag"}, nil)
	assert.ErrorIs(t, err, ErrColumnMissing)
}

func TestEntries(t *testing.T) {
	cat := sdssCatalogue(t)
	require.NoError(t, cat.SetMagKeys("rmag", "e_rmag"))

	entries, err := cat.Entries(nil)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	first := entries[0]
	assert.Equal(t, "1237663785276211326", first.ID)
	require.NotNil(t, first.Mag)
	assert.Equal(t, 15.0, *first.Mag)
	require.NotNil(t, first.Class)
	assert.Equal(t, 6, *first.Class)
	require.NotNil(t, first.IsStar)
	assert.True(t, *first.IsStar)

	last := entries[3]
	assert.Nil(t, last.Mag)
	assert.Nil(t, last.MagErr)

	galaxies, err := cat.Entries([]bool{false, false, true, false})
	require.NoError(t, err)
	require.Len(t, galaxies, 1)
	assert.False(t, *galaxies[0].IsStar)

	require.NoError(t, cat.SetFieldOfView(center, 0.1))
	_, err = cat.Entries([]bool{true, true, true, true})
	assert.ErrorIs(t, err, ErrMaskLength)
}

func TestStellarDensity(t *testing.T) {
	cat := sdssCatalogue(t)

	density, err := cat.StellarDensity(nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, density)

	all, err := cat.GetMask(MaskOptions{})
	require.NoError(t, err)
	density, err = cat.StellarDensity(all, 0.1)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 3, 1}, density)

	require.NoError(t, cat.SetFieldOfView(center, 0.1))
	density, err = cat.StellarDensity(nil, 0.1)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, density)

	_, err = cat.StellarDensity(all, 0.1)
	assert.ErrorIs(t, err, ErrMaskLength)

	wise := NewEmpty(survey.MustLookup(survey.WISE))
	_, err = wise.StellarDensity(nil, 0.1)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestCreateMissingPosition(t *testing.T) {
	df := dataframe.New(seriesOf("RA_ICRS", 1), seriesOf("Dec", 2))
	_, err := New(survey.MustLookup(survey.Gaia), df)
	assert.ErrorIs(t, err, ErrColumnMissing)

	_, err = NewEmpty(survey.MustLookup(survey.Gaia)).RA()
	assert.ErrorIs(t, err, ErrNoData)
}

func TestSaveLoad(t *testing.T) {
	cat := sdssCatalogue(t)
	path := filepath.Join(t.TempDir(), "SDSS.csv")
	require.NoError(t, cat.Save(path))

	loaded, err := Load(path, survey.MustLookup(survey.SDSS))
	require.NoError(t, err)
	assert.Equal(t, cat.Data().Records(), loaded.Data().Records())

	ids, err := loaded.IDs()
	require.NoError(t, err)
	assert.Equal(t, "1237663785276211329", ids[3])

	var buf bytes.Buffer
	assert.ErrorIs(t, NewEmpty(survey.MustLookup(survey.SDSS)).WriteCSV(&buf), ErrNoData)
}

type fakeQuerier struct {
	queries []vizier.Query
	records [][]string
	err     error
}

func (f *fakeQuerier) QueryRegion(_ context.Context, q vizier.Query) (dataframe.DataFrame, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return dataframe.DataFrame{}, f.err
	}
	return vizier.LoadRecords(f.records)
}

func TestFetch(t *testing.T) {
	q := &fakeQuerier{records: sdssRecords}

	first, err := FetchSDSS(context.Background(), q, center, 0.5, FetchOptions{})
	require.NoError(t, err)
	second, err := FetchSDSS(context.Background(), q, center, 0.5, FetchOptions{})
	require.NoError(t, err)

	assert.Equal(t, first.NObjects(), second.NObjects())
	assert.Equal(t, first.Keys(), second.Keys())
	assert.Equal(t, "objID", first.Keys().ID)

	require.Len(t, q.queries, 2)
	query := q.queries[0]
	assert.Equal(t, "V/139", query.Catalog)
	assert.Equal(t, map[string]string{"mode": "1", "Q": "2.3", "rmag": "5..25"}, query.Filters)
	assert.Equal(t, vizier.Unlimited, query.RowLimit)
	assert.Equal(t, 0.5, query.Radius)
}

func TestFetchOptions(t *testing.T) {
	q := &fakeQuerier{records: [][]string{{"2MASS", "RAJ2000", "DEJ2000", "Qflg"}, {"x", "1", "2", "AAA"}}}

	cat, err := Fetch2MASS(context.Background(), q, center, 0.5, FetchOptions{
		ExtraColumns:  []string{"Qflg"},
		ColumnFilters: map[string]string{"Kmag": "<14"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, cat.NObjects())

	query := q.queries[0]
	assert.Equal(t, "II/246", query.Catalog)
	assert.Equal(t, "Qflg", query.Columns[len(query.Columns)-1])
	assert.Equal(t, map[string]string{"Kmag": "<14"}, query.Filters)
	assert.Equal(t, 100000, query.RowLimit)
}

func TestFetchErrors(t *testing.T) {
	failure := errors.New("connection reset")
	_, err := FetchGaia(context.Background(), &fakeQuerier{err: failure}, center, 0.1, FetchOptions{})
	assert.ErrorIs(t, err, vizier.ErrQueryFailed)
	assert.ErrorIs(t, err, failure)

	// a table without the position columns
	_, err = FetchWISE(context.Background(), &fakeQuerier{records: [][]string{{"AllWISE"}, {"J000000.00+000000.0"}}}, center, 0.1, FetchOptions{})
	assert.ErrorIs(t, err, vizier.ErrQueryFailed)
	assert.ErrorIs(t, err, ErrColumnMissing)
}
