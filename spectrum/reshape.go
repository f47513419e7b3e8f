package spectrum

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat/distuv"
)

// Speed of light in km/s
const SpeedOfLight = 299792.458

// interpolate evaluates an Akima spline through the finite (x, y) points at xModel.
// Outside the range of x, with fewer than two finite points or when the fit
// fails, the result is NaN.
func interpolate(x, y, xModel []float64) []float64 {
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if !math.IsNaN(y[i]) && !math.IsInf(y[i], 0) {
			xs = append(xs, x[i])
			ys = append(ys, y[i])
		}
	}
	if len(xs) < 2 {
		return nanSlice(len(xModel))
	}

	var spline interp.AkimaSpline
	if err := spline.Fit(xs, ys); err != nil {
		return nanSlice(len(xModel))
	}

	out := make([]float64, len(xModel))
	margin := 1e-9 * (x[len(x)-1] - x[0])
	for i, xm := range xModel {
		if xm < x[0]-margin || xm > x[len(x)-1]+margin {
			out[i] = math.NaN()
			continue
		}
		out[i] = spline.Predict(xm)
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// Reshape moves the spectrum onto xModel, a regular grid in the same units as RawLbda.
// The variance, if any, is interpolated too and kept positive.
func (s *Spectrum) Reshape(xModel []float64) error {
	npix, step, start, err := LbdaToHeaderParameters(xModel)
	if err != nil {
		return err
	}
	if err := checkGrid(xModel, step); err != nil {
		return err
	}

	raw := s.RawLbda()
	if len(raw) < 2 {
		return fmt.Errorf("%w: cannot interpolate a single pixel", ErrInvalidGrid)
	}

	y := interpolate(raw, s.y, xModel)
	var v []float64
	if s.HasVariance() {
		v = interpolate(raw, s.v, xModel)
		for i := range v {
			v[i] = math.Abs(v[i])
		}
	}

	s.header = Header{NPix: npix, Step: step, Start: start}
	s.y = y
	s.v = v
	return nil
}

// Reshaped is Reshape on a copy
func (s *Spectrum) Reshaped(xModel []float64) (*Spectrum, error) {
	out := s.Copy()
	if err := out.Reshape(xModel); err != nil {
		return nil, err
	}
	return out, nil
}

// Truncate keeps the pixels whose wavelength (not in log) lies within
// [minLbda, maxLbda]. A NaN bound stays open.
func (s *Spectrum) Truncate(minLbda, maxLbda float64) error {
	if math.IsNaN(minLbda) && math.IsNaN(maxLbda) {
		return nil
	}

	lbda := s.Lbda()
	if math.IsNaN(minLbda) {
		minLbda = lbda[0]
	}
	if math.IsNaN(maxLbda) {
		maxLbda = lbda[len(lbda)-1]
	}

	raw := s.RawLbda()
	var kept []float64
	for i, l := range lbda {
		if l >= minLbda && l <= maxLbda {
			kept = append(kept, raw[i])
		}
	}
	if len(kept) == 0 {
		return fmt.Errorf("%w: no pixel between %v and %v", ErrEmpty, minLbda, maxLbda)
	}
	if len(kept) == 1 {
		return s.keepPixel(kept[0])
	}
	return s.Reshape(kept)
}

// keepPixel reduces the spectrum to the pixel at raw grid value x
func (s *Spectrum) keepPixel(x float64) error {
	i := int(math.Round((x - s.header.Start) / s.header.Step))
	s.header = Header{NPix: 1, Step: s.header.Step, Start: x}
	s.y = []float64{s.y[i]}
	if s.v != nil {
		s.v = []float64{s.v[i]}
	}
	return nil
}

// Shift applies the relativistic Doppler shift of a source receding at
// velocity km/s (negative when approaching) to the wavelength grid
func (s *Spectrum) Shift(velocity float64) error {
	beta := velocity / SpeedOfLight
	if math.Abs(beta) >= 1 {
		return fmt.Errorf("velocity %v km/s is not below the speed of light", velocity)
	}
	factor := math.Sqrt((1 + beta) / (1 - beta))

	if s.HasVelocityStep(DefaultMinLinearStart) {
		// log grid, the step is unchanged
		s.header.Start += math.Log(factor)
		return nil
	}
	s.header.Start *= factor
	s.header.Step *= factor
	return nil
}

// Reshuffled returns a copy whose flux is redrawn, pixel by pixel, from a
// normal distribution centred on the flux with the variance of the spectrum.
// src may be nil to use the global source.
func (s *Spectrum) Reshuffled(src rand.Source) (*Spectrum, error) {
	if !s.HasVariance() {
		return nil, ErrNoVariance
	}

	out := s.Copy()
	for i := range out.y {
		dist := distuv.Normal{Mu: s.y[i], Sigma: math.Sqrt(s.v[i]), Src: src}
		out.y[i] = dist.Rand()
	}
	return out, nil
}

// Merge combines two spectra on a common grid with the finest step of both,
// covering both ranges. Pixels are weighted by their inverse variance when both
// spectra have one, evenly otherwise. Pixels covered by neither are NaN.
func Merge(a, b *Spectrum) (*Spectrum, error) {
	if a.HasVelocityStep(DefaultMinLinearStart) != b.HasVelocityStep(DefaultMinLinearStart) {
		return nil, fmt.Errorf("%w: cannot merge a velocity step grid with a linear one", ErrInvalidGrid)
	}

	rawA, rawB := a.RawLbda(), b.RawLbda()
	step := math.Min(a.Step(), b.Step())
	start := math.Min(a.Start(), b.Start())
	end := math.Max(floats.Max(rawA), floats.Max(rawB))
	if !(step > 0) {
		return nil, fmt.Errorf("%w: step %v", ErrInvalidGrid, step)
	}

	npix := int(math.Floor((end-start)/step+1e-9)) + 1
	grid := HeaderParametersToLbda(npix, step, start)

	ra, err := a.Reshaped(grid)
	if err != nil {
		return nil, err
	}
	rb, err := b.Reshaped(grid)
	if err != nil {
		return nil, err
	}

	withVariance := a.HasVariance() && b.HasVariance()
	y := make([]float64, npix)
	var v []float64
	if withVariance {
		v = make([]float64, npix)
	}

	for i := range grid {
		wa, wb := 1., 1.
		if withVariance {
			wa, wb = 1/ra.v[i], 1/rb.v[i]
		}
		if math.IsNaN(ra.y[i]) || math.IsNaN(wa) || math.IsInf(wa, 0) {
			wa = 0
		}
		if math.IsNaN(rb.y[i]) || math.IsNaN(wb) || math.IsInf(wb, 0) {
			wb = 0
		}

		total := wa + wb
		if total <= 0 {
			y[i] = math.NaN()
			if withVariance {
				v[i] = math.NaN()
			}
			continue
		}

		var sum float64
		if wa > 0 {
			sum += ra.y[i] * wa
		}
		if wb > 0 {
			sum += rb.y[i] * wb
		}
		y[i] = sum / total
		if withVariance {
			v[i] = 1 / total
		}
	}

	return NewFromHeader(Header{NPix: npix, Step: step, Start: start}, y, v, a.Name)
}
