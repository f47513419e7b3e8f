// Package cache keeps the answers of VizieR region queries on disk
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/rickb777/period"

	"astrocat/metrics"
	"astrocat/vizier"
)

var ErrStale = errors.New("cache entry is stale")

// Querier answers region queries from the cache directory and only asks Next
// when the entry is missing, expired or Overwrite is set.
// Cache failures are logged and never fail the query.
type Querier struct {
	Next vizier.RegionQuerier
	Dir  string
	// How long an entry stays fresh, the zero period never expires
	TTL       period.Period
	Overwrite bool
	Metrics   *metrics.Collector

	now func() time.Time
}

func New(next vizier.RegionQuerier, dir string, ttl period.Period, overwrite bool) *Querier {
	return &Querier{Next: next, Dir: dir, TTL: ttl, Overwrite: overwrite, now: time.Now}
}

// Path of the file caching q
func (c *Querier) Path(q vizier.Query) string {
	sum := sha256.Sum256([]byte(q.Key()))
	return filepath.Join(c.Dir, filepath.FromSlash(q.Catalog), hex.EncodeToString(sum[:])+".csv")
}

func (c *Querier) QueryRegion(ctx context.Context, q vizier.Query) (dataframe.DataFrame, error) {
	path := c.Path(q)

	if !c.Overwrite {
		df, err := c.read(path)
		if err == nil {
			slog.Debug(fmt.Sprintf("%s: using cached result %s", q.Catalog, path))
			c.Metrics.ObserveQuery(q.Catalog, metrics.OutcomeCached, 0, df.Nrow())
			return df, nil
		}
		if !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, ErrStale) {
			slog.Warn(fmt.Sprintf("%s: ignoring unreadable cache entry: %s", q.Catalog, err))
		}
	}

	df, err := c.Next.QueryRegion(ctx, q)
	if err != nil {
		return df, err
	}

	if err := c.write(path, df); err != nil {
		slog.Warn(fmt.Sprintf("%s: could not cache result: %s", q.Catalog, err))
	}
	return df, nil
}

func (c *Querier) read(path string) (dataframe.DataFrame, error) {
	info, err := os.Stat(path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	if !c.TTL.IsZero() {
		expiry, _ := c.TTL.AddTo(info.ModTime())
		if !c.clock().Before(expiry) {
			return dataframe.DataFrame{}, fmt.Errorf("%w: %s", ErrStale, path)
		}
	}

	fh, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer fh.Close()

	records, err := csv.NewReader(fh).ReadAll()
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%s: %w", path, err)
	}
	return vizier.LoadRecords(records)
}

func (c *Querier) write(path string, df dataframe.DataFrame) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}

	// Readers never see a partially written entry
	tmp, err := os.CreateTemp(dir, ".tmp-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := df.WriteCSV(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (c *Querier) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}
