package inspect

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"astrocat/catalogue"
	"astrocat/skycoord"
	"astrocat/survey"
)

type Config struct {
	File             string `long:"file" required:"true" description:"Catalogue CSV written by 'fetch'"`
	Survey           string `long:"survey" required:"true" description:"Survey the catalogue comes from"`
	Mag              string `long:"mag" default:"" description:"Magnitude column, the survey suggestion by default"`
	MagErr           string `long:"magerr" default:"" description:"Magnitude error column, the survey suggestion by default"`
	CenterCmd        string `long:"center" default:"" description:"Optional center of the field of view, 'ra dec'"`
	FovRadiusCmd     string `long:"fov-radius" default:"" description:"Radius of the field of view, required with '--center'"`
	DensityRadiusCmd string `long:"density-radius" default:"0.1d" description:"Radius used to count the neighbours of each object"`
	StarsOnly        bool   `long:"stars-only" description:"Only count stars in the stellar density"`
	Schema           *survey.Schema
	Center           *skycoord.SkyCoord
	FovRadius        float64
	DensityRadius    float64
}

func (config *Config) setup() error {
	var err error
	if config.Schema, err = survey.Lookup(config.Survey); err != nil {
		return err
	}
	if config.Mag == "" {
		config.Mag = config.Schema.SuggestedMag
		if config.MagErr == "" {
			config.MagErr = config.Schema.SuggestedMagErr
		}
	}

	if config.CenterCmd != "" {
		center, err := skycoord.ParseCenter(config.CenterCmd)
		if err != nil {
			return err
		}
		if config.FovRadius, err = skycoord.ParseRadius(config.FovRadiusCmd); err != nil {
			return fmt.Errorf("'--center' needs a valid '--fov-radius': %w", err)
		}
		config.Center = &center
	}

	if config.DensityRadius, err = skycoord.ParseRadius(config.DensityRadiusCmd); err != nil {
		return err
	}
	return nil
}

// This method is automatically called by go-flags while parsing the cmd
func (config *Config) Execute(_ []string) error {
	if err := config.setup(); err != nil {
		return err
	}

	cat, err := catalogue.Load(config.File, config.Schema)
	if err != nil {
		return err
	}

	summary, err := Summarize(cat, config)
	if err != nil {
		return err
	}
	summary.Print(os.Stdout)
	return nil
}

// Summary of a catalogue, optional values are nil when the catalogue cannot provide them
type Summary struct {
	Survey        string
	NObjects      int
	NObjectsInFov int
	NStars        *int
	MagKey        string
	Lbda          *float64
	MagRange      *[2]float64
	Density       *DensitySummary
}

type DensitySummary struct {
	Radius float64
	Count  int
	Mean   float64
	StdDev float64
	Median float64
	Max    float64
}

func Summarize(cat *catalogue.Catalogue, config *Config) (*Summary, error) {
	if config.Center != nil {
		if err := cat.SetFieldOfView(*config.Center, config.FovRadius); err != nil {
			return nil, err
		}
	}

	summary := &Summary{
		Survey:        cat.Name(),
		NObjects:      cat.NObjects(),
		NObjectsInFov: cat.NObjectsInFov(),
	}

	if config.Mag != "" {
		if err := cat.SetMagKeys(config.Mag, config.MagErr); err != nil {
			return nil, err
		}
		summary.MagKey = config.Mag

		if lbda, err := cat.Lbda(); err == nil {
			summary.Lbda = &lbda
		} else if !errors.Is(err, survey.ErrWavelengthUndefined) {
			return nil, err
		}

		mags, err := cat.Mag()
		if err != nil {
			return nil, err
		}
		mags = finite(mags)
		if len(mags) > 0 {
			summary.MagRange = &[2]float64{floats.Min(mags), floats.Max(mags)}
		}
	}

	var mask []bool
	stars, err := cat.StarMask()
	switch {
	case err == nil:
		n := 0
		for _, s := range stars {
			if s {
				n++
			}
		}
		summary.NStars = &n
		if config.StarsOnly {
			mask = stars
		}
	case errors.Is(err, catalogue.ErrClassificationUnavailable):
		if config.StarsOnly {
			return nil, err
		}
		slog.Info(fmt.Sprintf("%s: no classification, the density counts every object", cat.Name()))
	default:
		return nil, err
	}

	if mask == nil {
		// every in-FoV object
		mask = make([]bool, cat.NObjectsInFov())
		for i := range mask {
			mask[i] = true
		}
	}

	counts, err := cat.StellarDensity(mask, config.DensityRadius)
	if err != nil {
		return nil, err
	}
	summary.Density = summarizeDensity(counts, config.DensityRadius)
	return summary, nil
}

func summarizeDensity(counts []int, radius float64) *DensitySummary {
	if len(counts) == 0 {
		return nil
	}

	x := make([]float64, len(counts))
	for i, c := range counts {
		x[i] = float64(c)
	}
	mean, std := stat.MeanStdDev(x, nil)
	slices.Sort(x)

	return &DensitySummary{
		Radius: radius,
		Count:  len(x),
		Mean:   mean,
		StdDev: std,
		Median: stat.Quantile(0.5, stat.Empirical, x, nil),
		Max:    x[len(x)-1],
	}
}

func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

func (s *Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "Survey:            %s\n", s.Survey)
	fmt.Fprintf(w, "Objects:           %d\n", s.NObjects)
	fmt.Fprintf(w, "Objects in FoV:    %d\n", s.NObjectsInFov)
	if s.NStars != nil {
		fmt.Fprintf(w, "Stars in FoV:      %d\n", *s.NStars)
	}
	if s.MagKey != "" {
		fmt.Fprintf(w, "Magnitude:         %s\n", s.MagKey)
	}
	if s.Lbda != nil {
		fmt.Fprintf(w, "Eff. wavelength:   %.1f A\n", *s.Lbda)
	}
	if s.MagRange != nil {
		fmt.Fprintf(w, "Magnitude range:   %.3f - %.3f\n", s.MagRange[0], s.MagRange[1])
	}
	if d := s.Density; d != nil {
		fmt.Fprintf(w, "Density (%.4f deg, %d objects): mean %.2f, std %.2f, median %.0f, max %.0f\n",
			d.Radius, d.Count, d.Mean, d.StdDev, d.Median, d.Max)
	}
}
