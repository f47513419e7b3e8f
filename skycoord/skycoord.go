// Package skycoord holds equatorial sky positions and the angular helpers
// the catalogues need: parsing of query centers and radii, separations, and
// cross-matching of positions on the sphere.
package skycoord

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidAngle = errors.New("invalid angle")

const (
	deg2rad = math.Pi / 180
	rad2deg = 180 / math.Pi
)

// SkyCoord is an equatorial position in degrees (ICRS/J2000).
type SkyCoord struct {
	RA  float64
	Dec float64
}

// New returns a SkyCoord with RA wrapped into [0, 360). Dec must lie in [-90, 90].
func New(ra, dec float64) (SkyCoord, error) {
	if math.IsNaN(ra) || math.IsNaN(dec) || math.IsInf(ra, 0) || math.IsInf(dec, 0) {
		return SkyCoord{}, fmt.Errorf("%w: non-finite position (%v, %v)", ErrInvalidAngle, ra, dec)
	}
	if dec < -90 || dec > 90 {
		return SkyCoord{}, fmt.Errorf("%w: declination %v outside [-90, 90]", ErrInvalidAngle, dec)
	}
	ra = math.Mod(ra, 360)
	if ra < 0 {
		ra += 360
	}
	return SkyCoord{RA: ra, Dec: dec}, nil
}

// String formats the position the way the VizieR "-c" parameter expects it.
func (c SkyCoord) String() string {
	return fmt.Sprintf("%.7f %+.7f", c.RA, c.Dec)
}

// UnitVector returns the cartesian direction of the position on the unit sphere.
func (c SkyCoord) UnitVector() [3]float64 {
	ra, dec := c.RA*deg2rad, c.Dec*deg2rad
	cosDec := math.Cos(dec)
	return [3]float64{cosDec * math.Cos(ra), cosDec * math.Sin(ra), math.Sin(dec)}
}

// Separation returns the great-circle distance to other in degrees.
// Uses the Vincenty formula, which stays accurate at both small and antipodal separations.
func (c SkyCoord) Separation(other SkyCoord) float64 {
	ra1, dec1 := c.RA*deg2rad, c.Dec*deg2rad
	ra2, dec2 := other.RA*deg2rad, other.Dec*deg2rad
	dra := ra2 - ra1

	sinDec1, cosDec1 := math.Sincos(dec1)
	sinDec2, cosDec2 := math.Sincos(dec2)
	sinDra, cosDra := math.Sincos(dra)

	num1 := cosDec2 * sinDra
	num2 := cosDec1*sinDec2 - sinDec1*cosDec2*cosDra
	denom := sinDec1*sinDec2 + cosDec1*cosDec2*cosDra

	return math.Atan2(math.Hypot(num1, num2), denom) * rad2deg
}

// chordSquared is the squared straight-line distance between two unit vectors
// separated by the given angle in degrees.
func chordSquared(angle float64) float64 {
	chord := 2 * math.Sin(angle*deg2rad/2)
	return chord * chord
}
