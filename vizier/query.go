package vizier

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"astrocat/skycoord"
)

// RegionQuerier answers cone searches, *Client and the query cache implement it
type RegionQuerier interface {
	QueryRegion(ctx context.Context, q Query) (dataframe.DataFrame, error)
}

// Unlimited can be used as RowLimit to retrieve every row
const Unlimited = -1

// Query describes a cone search on a single VizieR catalogue
type Query struct {
	// Catalogue identifier, e.g. "I/337/gaia"
	Catalog string
	Columns []string
	// Column constraints in VizieR syntax, e.g. {"rmag": "5..25", "mode": "1"}
	Filters map[string]string
	Center  skycoord.SkyCoord
	// Search radius in degrees
	Radius float64
	// Maximum number of rows, Unlimited (or 0) for no limit
	RowLimit int
}

func (q Query) validate() error {
	if q.Catalog == "" {
		return fmt.Errorf("no catalog given")
	}
	if !(q.Radius > 0) || math.IsInf(q.Radius, 0) {
		return fmt.Errorf("search radius must be positive, got %v", q.Radius)
	}
	return nil
}

// Values returns the ASU parameters of the query
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("-source", q.Catalog)
	if len(q.Columns) > 0 {
		v.Set("-out", strings.Join(q.Columns, ","))
	}
	v.Set("-c", q.Center.String())
	v.Set("-c.rd", strconv.FormatFloat(q.Radius, 'f', -1, 64))
	v.Set("-oc.form", "dec")

	if q.RowLimit > 0 {
		v.Set("-out.max", strconv.Itoa(q.RowLimit))
	} else {
		v.Set("-out.max", "unlimited")
	}

	for column, expr := range q.Filters {
		v.Set(column, expr)
	}
	return v
}

// Key identifies the query independently of the map ordering of its filters
func (q Query) Key() string {
	filters := make([]string, 0, len(q.Filters))
	for column, expr := range q.Filters {
		filters = append(filters, column+"="+expr)
	}
	slices.Sort(filters)

	return strings.Join([]string{
		q.Catalog,
		strings.Join(q.Columns, ","),
		strings.Join(filters, "&"),
		q.Center.String(),
		strconv.FormatFloat(q.Radius, 'g', -1, 64),
		strconv.Itoa(q.RowLimit),
	}, "|")
}
