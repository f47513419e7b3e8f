// Package catalogue normalises the tables returned by the supported surveys
// into one Catalogue type with typed accessors.
//
// The survey.Schema of a catalogue tells it which column is the identifier,
// the position, the magnitude and the star/galaxy flag. Accessors fail with
// ErrConfigurationRequired when the key they need has not been set.
package catalogue

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"astrocat/skycoord"
	"astrocat/survey"
)

var (
	ErrConfigurationRequired     = errors.New("catalogue configuration required")
	ErrColumnMissing             = errors.New("column not in catalogue")
	ErrMaskLength                = errors.New("mask length does not match the objects in the field of view")
	ErrClassificationUnavailable = errors.New("catalogue has no star/galaxy classification")
	ErrNoData                    = errors.New("catalogue has no data")
)

// ConfigurationError names the key that must be set before an accessor can be used
type ConfigurationError struct {
	Survey string
	Key    string
	Hint   string
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("%s catalogue: no '%s' key defined", e.Survey, e.Key)
	if e.Hint != "" {
		msg += ", " + e.Hint
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfigurationRequired
}

type fieldOfView struct {
	center skycoord.SkyCoord
	radius float64
}

// Catalogue is a table of objects from a single survey
type Catalogue struct {
	schema *survey.Schema
	keys   survey.Keys
	data   *dataframe.DataFrame
	fov    *fieldOfView
}

// NewEmpty returns a catalogue configured for the survey and without data, see Create
func NewEmpty(schema *survey.Schema) *Catalogue {
	return &Catalogue{schema: schema, keys: schema.Keys}
}

// New returns a catalogue holding df
func New(schema *survey.Schema, df dataframe.DataFrame) (*Catalogue, error) {
	c := NewEmpty(schema)
	if err := c.Create(df); err != nil {
		return nil, err
	}
	return c, nil
}

// Create sets the data of the catalogue, the position columns must be present
func (c *Catalogue) Create(df dataframe.DataFrame) error {
	if df.Err != nil {
		return df.Err
	}

	names := df.Names()
	for _, key := range []string{c.keys.RA, c.keys.Dec} {
		if !slices.Contains(names, key) {
			return fmt.Errorf("%w: %s position column '%s'", ErrColumnMissing, c.Name(), key)
		}
	}

	c.data = &df
	return nil
}

// Name of the survey
func (c *Catalogue) Name() string {
	return c.schema.Name
}

func (c *Catalogue) Schema() *survey.Schema {
	return c.schema
}

func (c *Catalogue) Keys() survey.Keys {
	return c.keys
}

// Data returns the full table, field of view ignored
func (c *Catalogue) Data() dataframe.DataFrame {
	if c.data == nil {
		return dataframe.DataFrame{Err: ErrNoData}
	}
	return *c.data
}

func (c *Catalogue) HasData() bool {
	return c.data != nil
}

func (c *Catalogue) NObjects() int {
	if c.data == nil {
		return 0
	}
	return c.data.Nrow()
}

func (c *Catalogue) NObjectsInFov() int {
	idx, err := c.fovIndexes()
	if err != nil {
		return 0
	}
	return len(idx)
}

// SetMagKeys selects the magnitude column, and its error column, used by Mag, MagErr and Lbda.
// A key that is not a band of the survey is rejected, the keys are left unchanged.
func (c *Catalogue) SetMagKeys(mag, magErr string) error {
	if mag == "" {
		return &ConfigurationError{Survey: c.Name(), Key: "mag", Hint: c.magHint()}
	}
	if _, err := c.schema.EffectiveWavelength(mag); err != nil && !errors.Is(err, survey.ErrWavelengthUndefined) {
		return err
	}
	if err := c.checkColumns(mag, magErr); err != nil {
		return err
	}

	c.keys.Mag = mag
	c.keys.MagErr = magErr
	return nil
}

// SetStarsID defines the classification column and the value it takes for stars
func (c *Catalogue) SetStarsID(classKey string, starValue int) error {
	if classKey == "" {
		return &ConfigurationError{Survey: c.Name(), Key: "class"}
	}
	if err := c.checkColumns(classKey); err != nil {
		return err
	}

	c.keys.Class = classKey
	c.keys.StarValue = &starValue
	c.keys.AllStars = false
	return nil
}

// Lbda is the effective wavelength, in Angstrom, of the magnitude band.
// It only depends on the magnitude key, not on the data.
func (c *Catalogue) Lbda() (float64, error) {
	if !c.keys.HasMag() {
		return 0, &ConfigurationError{Survey: c.Name(), Key: "mag", Hint: c.magHint()}
	}
	return c.schema.EffectiveWavelength(c.keys.Mag)
}

func (c *Catalogue) magHint() string {
	if c.schema.SuggestedMag == "" {
		return "use SetMagKeys"
	}
	return fmt.Sprintf("use SetMagKeys(%q, %q)", c.schema.SuggestedMag, c.schema.SuggestedMagErr)
}

// checkColumns only applies once data is loaded, keys may be set beforehand
func (c *Catalogue) checkColumns(columns ...string) error {
	if c.data == nil {
		return nil
	}
	names := c.data.Names()
	for _, column := range columns {
		if column != "" && !slices.Contains(names, column) {
			return fmt.Errorf("%w: %s has no column '%s'", ErrColumnMissing, c.Name(), column)
		}
	}
	return nil
}

// SetFieldOfView restricts the accessors to the objects within radius (degrees) of center
func (c *Catalogue) SetFieldOfView(center skycoord.SkyCoord, radius float64) error {
	if radius <= 0 || math.IsNaN(radius) {
		return fmt.Errorf("%w: field of view radius must be positive, got %v", skycoord.ErrInvalidAngle, radius)
	}
	c.fov = &fieldOfView{center: center, radius: radius}
	return nil
}

func (c *Catalogue) ClearFieldOfView() {
	c.fov = nil
}

// FovMask tells, for every object of the catalogue, whether it lies in the field of view
func (c *Catalogue) FovMask() ([]bool, error) {
	if c.data == nil {
		return nil, ErrNoData
	}

	ra := c.data.Col(c.keys.RA).Float()
	dec := c.data.Col(c.keys.Dec).Float()

	mask := make([]bool, len(ra))
	for i := range ra {
		if c.fov == nil {
			mask[i] = true
			continue
		}
		mask[i] = c.fov.center.Separation(skycoord.SkyCoord{RA: ra[i], Dec: dec[i]}) <= c.fov.radius
	}
	return mask, nil
}

func (c *Catalogue) fovIndexes() ([]int, error) {
	mask, err := c.FovMask()
	if err != nil {
		return nil, err
	}

	idx := make([]int, 0, len(mask))
	for i, in := range mask {
		if in {
			idx = append(idx, i)
		}
	}
	return idx, nil
}

// column returns the in-FoV values of a column
func (c *Catalogue) column(name string) (series.Series, error) {
	if c.data == nil {
		return series.Series{}, ErrNoData
	}
	if err := c.checkColumns(name); err != nil {
		return series.Series{}, err
	}

	idx, err := c.fovIndexes()
	if err != nil {
		return series.Series{}, err
	}
	if len(idx) == 0 {
		return series.New([]float64{}, series.Float, name), nil
	}

	s := c.data.Col(name).Subset(idx)
	return s, s.Err
}

func (c *Catalogue) floats(name string) ([]float64, error) {
	s, err := c.column(name)
	if err != nil {
		return nil, err
	}
	return s.Float(), nil
}

func (c *Catalogue) IDs() ([]string, error) {
	if c.keys.ID == "" {
		return nil, &ConfigurationError{Survey: c.Name(), Key: "id"}
	}
	s, err := c.column(c.keys.ID)
	if err != nil {
		return nil, err
	}

	// missing identifiers stay empty
	ids := make([]string, s.Len())
	for i := range ids {
		if e := s.Elem(i); !e.IsNA() {
			ids[i] = e.String()
		}
	}
	return ids, nil
}

func (c *Catalogue) RA() ([]float64, error) {
	return c.floats(c.keys.RA)
}

func (c *Catalogue) Dec() ([]float64, error) {
	return c.floats(c.keys.Dec)
}

// Coords returns the in-FoV positions
func (c *Catalogue) Coords() ([]skycoord.SkyCoord, error) {
	ra, err := c.RA()
	if err != nil {
		return nil, err
	}
	dec, err := c.Dec()
	if err != nil {
		return nil, err
	}

	coords := make([]skycoord.SkyCoord, len(ra))
	for i := range ra {
		coords[i] = skycoord.SkyCoord{RA: ra[i], Dec: dec[i]}
	}
	return coords, nil
}

// Mag returns the magnitudes, NaN where the survey has none
func (c *Catalogue) Mag() ([]float64, error) {
	if !c.keys.HasMag() {
		return nil, &ConfigurationError{Survey: c.Name(), Key: "mag", Hint: c.magHint()}
	}
	return c.floats(c.keys.Mag)
}

func (c *Catalogue) MagErr() ([]float64, error) {
	if c.keys.MagErr == "" {
		return nil, &ConfigurationError{Survey: c.Name(), Key: "magerr", Hint: c.magHint()}
	}
	return c.floats(c.keys.MagErr)
}

// ClassUnknown marks an object without classification value in ObjectType
const ClassUnknown = -1

// ObjectType returns the raw classification flag of each object
func (c *Catalogue) ObjectType() ([]int, error) {
	if c.keys.Class == "" {
		return nil, fmt.Errorf("%w: %s", ErrClassificationUnavailable, c.Name())
	}
	values, err := c.floats(c.keys.Class)
	if err != nil {
		return nil, err
	}

	classes := make([]int, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			classes[i] = ClassUnknown
			continue
		}
		classes[i] = int(v)
	}
	return classes, nil
}

// StarMask tells which of the in-FoV objects are stars
func (c *Catalogue) StarMask() ([]bool, error) {
	if c.keys.AllStars {
		if c.data == nil {
			return nil, ErrNoData
		}
		mask := make([]bool, c.NObjectsInFov())
		for i := range mask {
			mask[i] = true
		}
		return mask, nil
	}

	if !c.keys.HasClassification() {
		return nil, fmt.Errorf("%w: %s, use SetStarsID", ErrClassificationUnavailable, c.Name())
	}

	classes, err := c.ObjectType()
	if err != nil {
		return nil, err
	}
	mask := make([]bool, len(classes))
	for i, class := range classes {
		mask[i] = class == *c.keys.StarValue
	}
	return mask, nil
}
