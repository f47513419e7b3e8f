// Package survey describes how each supported VizieR survey names its columns.
//
// A Schema replaces what would otherwise be one catalogue type per survey: it
// lists the columns to request, the filters to apply, which columns play the
// generic roles (ID, position, magnitude, classification) and how the effective
// wavelength follows from the chosen magnitude column.
package survey

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

var (
	ErrUnknownSurvey       = errors.New("unknown survey")
	ErrUnknownBand         = errors.New("unknown photometric band")
	ErrWavelengthUndefined = errors.New("effective wavelength not defined for this survey")
	ErrInvalidSchema       = errors.New("invalid survey schema")
)

// Names of the built-in surveys
const (
	Gaia    = "Gaia"
	SDSS    = "SDSS"
	TwoMASS = "2MASS"
	WISE    = "WISE"
)

// Keys map the generic catalogue fields to source column names.
// An empty string means the survey (or the user) has not set that key.
type Keys struct {
	ID     string `yaml:"id"`
	RA     string `yaml:"ra"`
	Dec    string `yaml:"dec"`
	Mag    string `yaml:"mag"`
	MagErr string `yaml:"magerr"`
	Class  string `yaml:"class"`
	// Value of the Class column that denotes a star
	StarValue *int `yaml:"star_value"`
	// The survey only contains point sources, every object is a star
	AllStars bool `yaml:"all_stars"`
}

// HasMag reports whether the magnitude key is set
func (k Keys) HasMag() bool {
	return k.Mag != ""
}

// HasClassification reports whether stars can be told apart from other objects
func (k Keys) HasClassification() bool {
	return k.AllStars || (k.Class != "" && k.StarValue != nil)
}

// Wavelength rules
const (
	RuleContains  = "contains"
	RuleFixed     = "fixed"
	RuleBandpass  = "bandpass"
	RuleUndefined = "undefined"
)

type WavelengthRule struct {
	Rule   string             `yaml:"rule"`
	Bands  map[string]float64 `yaml:"bands"`
	Prefix string             `yaml:"prefix"`
}

type Schema struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
	// VizieR catalogue identifier, e.g. "II/246"
	Catalog string   `yaml:"catalog"`
	Columns []string `yaml:"columns"`
	// Used when the caller gives no filters
	DefaultFilters map[string]string `yaml:"default_filters"`
	// Always applied, user filters on the same column take precedence
	QualityFilters map[string]string `yaml:"quality_filters"`
	// Maximum number of rows, -1 for unlimited
	RowLimit        int            `yaml:"row_limit"`
	Keys            Keys           `yaml:"keys"`
	Wavelength      WavelengthRule `yaml:"wavelength"`
	SuggestedMag    string         `yaml:"suggested_mag"`
	SuggestedMagErr string         `yaml:"suggested_magerr"`
}

func (s *Schema) validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidSchema)
	}
	if s.Catalog == "" {
		return fmt.Errorf("%w: %s has no catalog identifier", ErrInvalidSchema, s.Name)
	}
	if s.Keys.RA == "" || s.Keys.Dec == "" {
		return fmt.Errorf("%w: %s must define ra and dec keys", ErrInvalidSchema, s.Name)
	}
	if s.Keys.Class != "" && s.Keys.StarValue == nil && !s.Keys.AllStars {
		return fmt.Errorf("%w: %s defines a class key without star_value", ErrInvalidSchema, s.Name)
	}

	switch s.Wavelength.Rule {
	case RuleContains, RuleFixed:
		if len(s.Wavelength.Bands) == 0 {
			return fmt.Errorf("%w: %s wavelength rule '%s' needs bands", ErrInvalidSchema, s.Name, s.Wavelength.Rule)
		}
	case RuleBandpass:
		if s.Wavelength.Prefix == "" {
			return fmt.Errorf("%w: %s wavelength rule 'bandpass' needs a prefix", ErrInvalidSchema, s.Name)
		}
	case RuleUndefined:
	case "":
		s.Wavelength.Rule = RuleUndefined
	default:
		return fmt.Errorf("%w: %s has unknown wavelength rule '%s'", ErrInvalidSchema, s.Name, s.Wavelength.Rule)
	}
	return nil
}

// matches reports whether name refers to this schema (case insensitive)
func (s *Schema) matches(name string) bool {
	if strings.EqualFold(s.Name, name) {
		return true
	}
	return slices.ContainsFunc(s.Aliases, func(a string) bool {
		return strings.EqualFold(a, name)
	})
}

// QueryColumns returns the base columns followed by any extra column not already requested
func (s *Schema) QueryColumns(extra []string) []string {
	columns := slices.Clone(s.Columns)
	for _, c := range extra {
		if !slices.Contains(columns, c) {
			columns = append(columns, c)
		}
	}
	return columns
}

// QueryFilters merges the survey filters with the user provided ones.
// A nil user map selects the default filters; quality filters are always kept
// unless the user overrides that same column.
func (s *Schema) QueryFilters(user map[string]string) map[string]string {
	filters := maps.Clone(s.QualityFilters)
	if filters == nil {
		filters = make(map[string]string)
	}

	if user == nil {
		user = s.DefaultFilters
	}
	for column, expr := range user {
		filters[column] = expr
	}
	return filters
}

// EffectiveWavelength returns the effective wavelength, in Angstrom, of the
// band measured by the magnitude column magKey.
// It depends only on the key, never on the loaded data.
func (s *Schema) EffectiveWavelength(magKey string) (float64, error) {
	if magKey == "" {
		return 0, fmt.Errorf("%w: empty magnitude key", ErrUnknownBand)
	}

	switch s.Wavelength.Rule {
	case RuleContains:
		bands := make([]string, 0, len(s.Wavelength.Bands))
		for band := range s.Wavelength.Bands {
			bands = append(bands, band)
		}
		slices.Sort(bands)

		for _, band := range bands {
			if strings.Contains(magKey, band) {
				return s.Wavelength.Bands[band], nil
			}
		}
	case RuleFixed:
		if lbda, ok := s.Wavelength.Bands[magKey]; ok {
			return lbda, nil
		}
	case RuleBandpass:
		bp, err := LookupBandpass(s.Wavelength.Prefix + strings.ToLower(magKey[:1]))
		if err != nil {
			return 0, err
		}
		return bp.WaveEff, nil
	case RuleUndefined:
		return 0, fmt.Errorf("%w (%s)", ErrWavelengthUndefined, s.Name)
	}

	return 0, fmt.Errorf("%w: '%s' is not a recognized %s band", ErrUnknownBand, magKey, s.Name)
}
