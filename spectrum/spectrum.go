// Package spectrum holds one-dimensional spectra sampled on a regular
// wavelength grid, as described by the NAXIS1, CDELT1 and CRVAL1 header keys.
//
// A grid whose start is small (see HasVelocityStep) is a velocity step grid:
// the header values are the natural logarithm of the wavelength.
package spectrum

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

var (
	ErrEmpty          = errors.New("empty spectrum")
	ErrLengthMismatch = errors.New("length mismatch")
	ErrNoVariance     = errors.New("spectrum has no variance")
	ErrInvalidGrid    = errors.New("wavelength grid must be increasing with a constant step")
)

// Below this start the header grid is taken as log(wavelength)
const DefaultMinLinearStart = 100

// Header are the fundamental parameters of the wavelength grid
type Header struct {
	NPix  int     `csv:"NAXIS1"`
	Step  float64 `csv:"CDELT1"`
	Start float64 `csv:"CRVAL1"`
}

// HeaderParametersToLbda returns the npix grid values start + i*step
func HeaderParametersToLbda(npix int, step, start float64) []float64 {
	lbda := make([]float64, npix)
	for i := range lbda {
		lbda[i] = float64(i)*step + start
	}
	return lbda
}

// LbdaToHeaderParameters is the inverse of HeaderParametersToLbda
func LbdaToHeaderParameters(lbda []float64) (npix int, step, start float64, err error) {
	if len(lbda) == 0 {
		return 0, 0, 0, ErrEmpty
	}
	npix, start = len(lbda), lbda[0]
	if npix > 1 {
		step = (lbda[npix-1] - start) / float64(npix-1)
	}
	return npix, step, start, nil
}

type Spectrum struct {
	Name   string
	header Header
	y      []float64
	v      []float64
}

// New returns a spectrum on the grid lbda, given in header units.
// variance may be nil.
func New(lbda, flux, variance []float64, name string) (*Spectrum, error) {
	npix, step, start, err := LbdaToHeaderParameters(lbda)
	if err != nil {
		return nil, err
	}
	if err := checkGrid(lbda, step); err != nil {
		return nil, err
	}
	return NewFromHeader(Header{NPix: npix, Step: step, Start: start}, flux, variance, name)
}

func checkGrid(lbda []float64, step float64) error {
	if len(lbda) == 1 {
		return nil
	}
	if !(step > 0) {
		return fmt.Errorf("%w: step %v", ErrInvalidGrid, step)
	}
	tolerance := 1e-6 * step
	for i, x := range lbda {
		if math.Abs(x-(lbda[0]+float64(i)*step)) > tolerance {
			return fmt.Errorf("%w: pixel %d at %v", ErrInvalidGrid, i, x)
		}
	}
	return nil
}

func NewFromHeader(h Header, flux, variance []float64, name string) (*Spectrum, error) {
	if h.NPix <= 0 {
		return nil, ErrEmpty
	}
	if len(flux) != h.NPix {
		return nil, fmt.Errorf("%w: flux has %d pixels, wavelength %d", ErrLengthMismatch, len(flux), h.NPix)
	}
	if variance != nil && len(variance) != h.NPix {
		return nil, fmt.Errorf("%w: variance has %d pixels, wavelength %d", ErrLengthMismatch, len(variance), h.NPix)
	}

	return &Spectrum{
		Name:   name,
		header: h,
		y:      slices.Clone(flux),
		v:      slices.Clone(variance),
	}, nil
}

func (s *Spectrum) Header() Header { return s.header }
func (s *Spectrum) NPix() int      { return s.header.NPix }
func (s *Spectrum) Step() float64  { return s.header.Step }
func (s *Spectrum) Start() float64 { return s.header.Start }

// HasVelocityStep reports whether the grid is in log(wavelength)
func (s *Spectrum) HasVelocityStep(minLinearStart float64) bool {
	return s.header.Start <= minLinearStart
}

// RawLbda is the grid in header units
func (s *Spectrum) RawLbda() []float64 {
	return HeaderParametersToLbda(s.header.NPix, s.header.Step, s.header.Start)
}

// Lbda is the wavelength of each pixel
func (s *Spectrum) Lbda() []float64 {
	lbda := s.RawLbda()
	if s.HasVelocityStep(DefaultMinLinearStart) {
		for i, x := range lbda {
			lbda[i] = math.Exp(x)
		}
	}
	return lbda
}

func (s *Spectrum) Flux() []float64 {
	return s.y
}

// Variance is nil when the spectrum has none
func (s *Spectrum) Variance() []float64 {
	return s.v
}

func (s *Spectrum) HasVariance() bool {
	return s.v != nil
}

// SetFlux replaces the flux, its length must match the grid
func (s *Spectrum) SetFlux(flux []float64) error {
	if len(flux) != s.header.NPix {
		return fmt.Errorf("%w: flux has %d pixels, wavelength %d", ErrLengthMismatch, len(flux), s.header.NPix)
	}
	s.y = slices.Clone(flux)
	return nil
}

// SetVariance replaces the variance, nil removes it
func (s *Spectrum) SetVariance(variance []float64) error {
	if variance != nil && len(variance) != s.header.NPix {
		return fmt.Errorf("%w: variance has %d pixels, wavelength %d", ErrLengthMismatch, len(variance), s.header.NPix)
	}
	s.v = slices.Clone(variance)
	return nil
}

func (s *Spectrum) Copy() *Spectrum {
	return &Spectrum{
		Name:   s.Name,
		header: s.header,
		y:      slices.Clone(s.y),
		v:      slices.Clone(s.v),
	}
}
