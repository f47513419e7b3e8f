package skycoord

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Angle units accepted by ParseRadius, in degrees per unit.
var angleUnits = []struct {
	suffix string
	scale  float64
}{
	// longest suffixes first so "arcmin" is not read as "n"
	{"arcmin", 1.0 / 60},
	{"arcsec", 1.0 / 3600},
	{"amin", 1.0 / 60},
	{"asec", 1.0 / 3600},
	{"deg", 1},
	{"°", 1},
	{"'", 1.0 / 60},
	{"\"", 1.0 / 3600},
	{"d", 1},
	{"m", 1.0 / 60},
	{"s", 1.0 / 3600},
}

// ParseRadius parses a search radius such as "1d", "0.5deg", "30m", "30arcmin"
// or "10s" and returns it in degrees. A bare number is read as degrees.
func ParseRadius(input string) (float64, error) {
	s := strings.TrimSpace(strings.ToLower(input))
	if s == "" {
		return 0, fmt.Errorf("%w: empty radius", ErrInvalidAngle)
	}

	scale := 1.0
	for _, u := range angleUnits {
		if strings.HasSuffix(s, u.suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			scale = u.scale
			break
		}
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: could not parse radius '%s'", ErrInvalidAngle, input)
	}
	if value < 0 {
		return 0, fmt.Errorf("%w: negative radius '%s'", ErrInvalidAngle, input)
	}
	return value * scale, nil
}

// ParseCenter parses a query center given as "ra dec".
//
// Accepted forms:
//
//	"10.6847 41.2690"             decimal degrees
//	"10.6847,+41.2690"            decimal degrees, comma separated
//	"00 42 44.3 +41 16 09"        sexagesimal, RA in hours
//	"00:42:44.3 +41:16:09"
//	"00h42m44.3s +41d16m09s"
//
// Mixing a decimal and a sexagesimal value is an error.
func ParseCenter(input string) (SkyCoord, error) {
	fields := strings.FieldsFunc(strings.TrimSpace(input), func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})

	var ra, dec float64
	var err error

	switch len(fields) {
	case 2:
		raDeg, raErr := strconv.ParseFloat(fields[0], 64)
		decDeg, decErr := strconv.ParseFloat(fields[1], 64)
		if raErr == nil && decErr == nil {
			ra, dec = raDeg, decDeg
			break
		}
		// a decimal RA is in degrees, a sexagesimal one in hours
		if raErr == nil || decErr == nil {
			return SkyCoord{}, fmt.Errorf("%w: center '%s' mixes decimal and sexagesimal values", ErrInvalidAngle, input)
		}
		if ra, err = sexagesimal(splitSexagesimal(fields[0])); err != nil {
			return SkyCoord{}, err
		}
		ra *= 15
		if dec, err = sexagesimal(splitSexagesimal(fields[1])); err != nil {
			return SkyCoord{}, err
		}
	case 6:
		if ra, err = sexagesimal(fields[0:3]); err != nil {
			return SkyCoord{}, err
		}
		ra *= 15
		if dec, err = sexagesimal(fields[3:6]); err != nil {
			return SkyCoord{}, err
		}
	default:
		return SkyCoord{}, fmt.Errorf("%w: could not parse center '%s', expected 'ra dec'", ErrInvalidAngle, input)
	}

	return New(ra, dec)
}

// Splits "00h42m44.3s", "+41d16m09s" or "00:42:44.3" into their components
func splitSexagesimal(token string) []string {
	return strings.FieldsFunc(token, func(r rune) bool {
		switch r {
		case 'h', 'd', 'm', 's', ':', '\'', '"', '°':
			return true
		}
		return false
	})
}

func sexagesimal(parts []string) (float64, error) {
	if len(parts) == 0 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: malformed sexagesimal value %v", ErrInvalidAngle, parts)
	}

	sign := 1.0
	first := parts[0]
	if strings.HasPrefix(first, "-") {
		sign = -1
	}
	first = strings.TrimLeft(first, "+-")

	var value float64
	scale := 1.0
	for i, p := range append([]string{first}, parts[1:]...) {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("%w: malformed sexagesimal component '%s'", ErrInvalidAngle, p)
		}
		if i > 0 && v >= 60 {
			return 0, fmt.Errorf("%w: sexagesimal component '%s' must be below 60", ErrInvalidAngle, p)
		}
		value += v / scale
		scale *= 60
	}
	return sign * value, nil
}
