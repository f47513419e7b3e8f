package catalogue

import (
	"context"
	"errors"
	"fmt"

	"astrocat/skycoord"
	"astrocat/survey"
	"astrocat/vizier"
)

type FetchOptions struct {
	// Columns requested on top of the survey's base columns
	ExtraColumns []string
	// VizieR constraints, e.g. {"rmag": "5..25"}. They replace the survey's
	// default filters when not nil; its quality filters are always applied.
	ColumnFilters map[string]string
}

// Fetch queries the survey catalogue around center, within radius degrees
func Fetch(ctx context.Context, q vizier.RegionQuerier, schema *survey.Schema, center skycoord.SkyCoord, radius float64, opts FetchOptions) (*Catalogue, error) {
	query := vizier.Query{
		Catalog:  schema.Catalog,
		Columns:  schema.QueryColumns(opts.ExtraColumns),
		Filters:  schema.QueryFilters(opts.ColumnFilters),
		Center:   center,
		Radius:   radius,
		RowLimit: schema.RowLimit,
	}

	df, err := q.QueryRegion(ctx, query)
	if err != nil {
		if !errors.Is(err, vizier.ErrQueryFailed) {
			err = fmt.Errorf("%w: %s: %w", vizier.ErrQueryFailed, schema.Catalog, err)
		}
		return nil, err
	}

	cat := NewEmpty(schema)
	if err := cat.Create(df); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", vizier.ErrQueryFailed, schema.Catalog, err)
	}
	return cat, nil
}

// FetchGaia queries Gaia DR1 (I/337/gaia)
func FetchGaia(ctx context.Context, q vizier.RegionQuerier, center skycoord.SkyCoord, radius float64, opts FetchOptions) (*Catalogue, error) {
	return Fetch(ctx, q, survey.MustLookup(survey.Gaia), center, radius, opts)
}

// FetchSDSS queries SDSS DR9 (V/139), by default with rmag between 5 and 25
func FetchSDSS(ctx context.Context, q vizier.RegionQuerier, center skycoord.SkyCoord, radius float64, opts FetchOptions) (*Catalogue, error) {
	return Fetch(ctx, q, survey.MustLookup(survey.SDSS), center, radius, opts)
}

// Fetch2MASS queries the 2MASS point source catalogue (II/246)
func Fetch2MASS(ctx context.Context, q vizier.RegionQuerier, center skycoord.SkyCoord, radius float64, opts FetchOptions) (*Catalogue, error) {
	return Fetch(ctx, q, survey.MustLookup(survey.TwoMASS), center, radius, opts)
}

// FetchWISE queries AllWISE (II/328)
func FetchWISE(ctx context.Context, q vizier.RegionQuerier, center skycoord.SkyCoord, radius float64, opts FetchOptions) (*Catalogue, error) {
	return Fetch(ctx, q, survey.MustLookup(survey.WISE), center, radius, opts)
}
