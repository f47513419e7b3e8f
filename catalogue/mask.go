package catalogue

import (
	"fmt"
	"math"

	"astrocat/skycoord"
)

const (
	DefaultDensityRadius   = 0.1        // degrees
	DefaultIsolationRadius = 10. / 3600 // degrees
)

// MaskOptions select in-FoV objects, all the given criteria must hold
type MaskOptions struct {
	StarsOnly bool
	// Inclusive [min, max] magnitude range, NaN magnitudes never match
	MagRange *[2]float64
	// Keep only objects without neighbour within IsolationRadius
	IsolatedOnly    bool
	IsolationRadius float64
}

// GetMask returns a mask of length NObjectsInFov
func (c *Catalogue) GetMask(opts MaskOptions) ([]bool, error) {
	if c.data == nil {
		return nil, ErrNoData
	}

	mask := make([]bool, c.NObjectsInFov())
	for i := range mask {
		mask[i] = true
	}

	if opts.StarsOnly {
		stars, err := c.StarMask()
		if err != nil {
			return nil, err
		}
		and(mask, stars)
	}

	if opts.MagRange != nil {
		mags, err := c.Mag()
		if err != nil {
			return nil, err
		}
		for i, m := range mags {
			mask[i] = mask[i] && !math.IsNaN(m) && m >= opts.MagRange[0] && m <= opts.MagRange[1]
		}
	}

	if opts.IsolatedOnly {
		radius := opts.IsolationRadius
		if radius <= 0 {
			radius = DefaultIsolationRadius
		}
		coords, err := c.Coords()
		if err != nil {
			return nil, err
		}
		for i, n := range skycoord.NeighbourCounts(coords, radius) {
			mask[i] = mask[i] && n == 1
		}
	}

	return mask, nil
}

func and(mask, other []bool) {
	for i := range mask {
		mask[i] = mask[i] && other[i]
	}
}

func (c *Catalogue) checkMask(mask []bool) error {
	if mask != nil && len(mask) != c.NObjectsInFov() {
		return fmt.Errorf("%w: got %d, %d objects in the field of view", ErrMaskLength, len(mask), c.NObjectsInFov())
	}
	return nil
}

func apply[T any](values []T, mask []bool) []T {
	if mask == nil {
		return values
	}
	out := make([]T, 0, len(values))
	for i, v := range values {
		if mask[i] {
			out = append(out, v)
		}
	}
	return out
}

// Get returns the in-FoV values of the given columns, restricted to mask when not nil.
// Besides the column names, "ra", "dec", "mag" and "magerr" refer to the key columns.
func (c *Catalogue) Get(columns []string, mask []bool) ([][]float64, error) {
	if err := c.checkMask(mask); err != nil {
		return nil, err
	}

	out := make([][]float64, len(columns))
	for i, name := range columns {
		var values []float64
		var err error
		switch name {
		case "ra":
			values, err = c.RA()
		case "dec":
			values, err = c.Dec()
		case "mag":
			values, err = c.Mag()
		case "magerr":
			values, err = c.MagErr()
		default:
			values, err = c.floats(name)
		}
		if err != nil {
			return nil, err
		}
		out[i] = apply(values, mask)
	}
	return out, nil
}

// Entry is one object of a catalogue, optional fields are nil when the
// survey (or its configuration) does not provide them
type Entry struct {
	ID     string
	RA     float64
	Dec    float64
	Mag    *float64
	MagErr *float64
	Class  *int
	IsStar *bool
}

func optional(values []float64, i int) *float64 {
	if values == nil || math.IsNaN(values[i]) {
		return nil
	}
	v := values[i]
	return &v
}

// Entries returns the in-FoV objects, restricted to mask when not nil
func (c *Catalogue) Entries(mask []bool) ([]Entry, error) {
	if err := c.checkMask(mask); err != nil {
		return nil, err
	}

	ra, err := c.RA()
	if err != nil {
		return nil, err
	}
	dec, err := c.Dec()
	if err != nil {
		return nil, err
	}

	var ids []string
	if c.keys.ID != "" {
		if ids, err = c.IDs(); err != nil {
			return nil, err
		}
	}

	var mags, magErrs []float64
	if c.keys.HasMag() {
		if mags, err = c.Mag(); err != nil {
			return nil, err
		}
	}
	if c.keys.MagErr != "" {
		if magErrs, err = c.MagErr(); err != nil {
			return nil, err
		}
	}

	var classes []int
	if c.keys.Class != "" {
		if classes, err = c.ObjectType(); err != nil {
			return nil, err
		}
	}

	var stars []bool
	if c.keys.HasClassification() {
		if stars, err = c.StarMask(); err != nil {
			return nil, err
		}
	}

	entries := make([]Entry, 0, len(ra))
	for i := range ra {
		if mask != nil && !mask[i] {
			continue
		}

		e := Entry{RA: ra[i], Dec: dec[i], Mag: optional(mags, i), MagErr: optional(magErrs, i)}
		if ids != nil {
			e.ID = ids[i]
		}
		if classes != nil && classes[i] != ClassUnknown {
			class := classes[i]
			e.Class = &class
		}
		if stars != nil {
			isStar := stars[i]
			e.IsStar = &isStar
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// StellarDensity counts, for every selected object, the selected objects
// within radius degrees, the object itself included.
// By default the selection is the stars and the radius DefaultDensityRadius.
func (c *Catalogue) StellarDensity(mask []bool, radius float64) ([]int, error) {
	if mask == nil {
		stars, err := c.GetMask(MaskOptions{StarsOnly: true})
		if err != nil {
			return nil, err
		}
		mask = stars
	}
	if err := c.checkMask(mask); err != nil {
		return nil, err
	}
	if radius <= 0 {
		radius = DefaultDensityRadius
	}

	coords, err := c.Coords()
	if err != nil {
		return nil, err
	}
	return skycoord.NeighbourCounts(apply(coords, mask), radius), nil
}
