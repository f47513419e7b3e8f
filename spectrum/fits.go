package spectrum

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/astrogo/fitsio"
)

// Extension names holding the variance, or the error when squared
var (
	varianceExtensions = []string{"VARIANCE", "VAR", "VARIANCES"}
	errorExtensions    = []string{"ERROR", "ERR", "ERRORS"}
)

var ErrNotSpectrum = errors.New("FITS data is not a one-dimensional spectrum")

func headerFloat(hdr *fitsio.Header, key string) (float64, error) {
	card := hdr.Get(key)
	if card == nil {
		return 0, fmt.Errorf("%w: missing header key %s", ErrNotSpectrum, key)
	}
	switch v := card.Value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return 0, fmt.Errorf("%w: header key %s is not a number (%v)", ErrNotSpectrum, key, card.Value)
}

func readImage(hdu fitsio.HDU) ([]float64, *fitsio.Header, error) {
	img, ok := hdu.(fitsio.Image)
	if !ok {
		return nil, nil, fmt.Errorf("%w: HDU '%s' is not an image", ErrNotSpectrum, hdu.Name())
	}
	hdr := img.Header()
	axes := hdr.Axes()
	if len(axes) != 1 {
		return nil, nil, fmt.Errorf("%w: HDU '%s' has axes %v", ErrNotSpectrum, hdu.Name(), axes)
	}

	data := make([]float64, axes[0])
	if err := img.Read(&data); err != nil {
		return nil, nil, err
	}
	return data, hdr, nil
}

// ReadFITS reads the spectrum stored in the primary HDU, its grid given by
// the NAXIS1, CDELT1 and CRVAL1 keys. A second HDU named VARIANCE or ERROR
// holds the variance or its square root. An empty name is taken from OBJECT.
func ReadFITS(r io.Reader, name string) (*Spectrum, error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hdus := f.HDUs()
	if len(hdus) == 0 {
		return nil, ErrEmpty
	}

	flux, hdr, err := readImage(hdus[0])
	if err != nil {
		return nil, err
	}

	h := Header{NPix: hdr.Axes()[0]}
	if h.Step, err = headerFloat(hdr, "CDELT1"); err != nil {
		return nil, err
	}
	if h.Start, err = headerFloat(hdr, "CRVAL1"); err != nil {
		return nil, err
	}

	if name == "" {
		if card := hdr.Get("OBJECT"); card != nil {
			name, _ = card.Value.(string)
		}
	}

	var variance []float64
	if len(hdus) > 1 {
		ext := strings.ToUpper(strings.TrimSpace(hdus[1].Name()))
		isError := slices.Contains(errorExtensions, ext)
		if isError || slices.Contains(varianceExtensions, ext) {
			if variance, _, err = readImage(hdus[1]); err != nil {
				return nil, err
			}
			if isError {
				for i, e := range variance {
					variance[i] = e * e
				}
			}
		}
	}
	return NewFromHeader(h, flux, variance, name)
}

func newImage(data []float64, cards ...fitsio.Card) (fitsio.Image, error) {
	img := fitsio.NewImage(-64, []int{len(data)})
	if err := img.Header().Append(cards...); err != nil {
		img.Close()
		return nil, err
	}
	if err := img.Write(data); err != nil {
		img.Close()
		return nil, err
	}
	return img, nil
}

// WriteFITS writes the flux in the primary HDU and the variance, if any, in a
// VARIANCE extension. With saveError the extension is ERROR and holds sqrt(v).
func (s *Spectrum) WriteFITS(w io.Writer, saveError bool) (err error) {
	f, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	primary, err := newImage(s.y,
		fitsio.Card{Name: "CRVAL1", Value: s.header.Start, Comment: "first pixel of the grid"},
		fitsio.Card{Name: "CDELT1", Value: s.header.Step, Comment: "grid step"},
		fitsio.Card{Name: "OBJECT", Value: s.Name},
	)
	if err != nil {
		return err
	}
	defer primary.Close()
	if err := f.Write(primary); err != nil {
		return err
	}

	if !s.HasVariance() {
		return nil
	}

	extname, data := "VARIANCE", s.v
	if saveError {
		extname = "ERROR"
		data = make([]float64, len(s.v))
		for i, v := range s.v {
			data[i] = math.Sqrt(v)
		}
	}
	ext, err := newImage(data, fitsio.Card{Name: "EXTNAME", Value: extname})
	if err != nil {
		return err
	}
	defer ext.Close()
	return f.Write(ext)
}

func LoadFITS(path string) (*Spectrum, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return ReadFITS(fh, "")
}

// SaveFITS writes the spectrum to path, an existing file is only replaced with overwrite
func (s *Spectrum) SaveFITS(path string, saveError, overwrite bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	fh, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return err
	}
	if err := s.WriteFITS(fh, saveError); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}
