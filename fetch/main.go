package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rickb777/period"

	"astrocat/cache"
	"astrocat/catalogue"
	"astrocat/metrics"
	"astrocat/skycoord"
	"astrocat/survey"
	"astrocat/utils"
	"astrocat/vizier"
)

type Config struct {
	SurveysCmd  string        `long:"survey" default:"" description:"Optional comma separated list of surveys. By default all registered surveys are fetched"`
	CenterCmd   string        `long:"center" required:"true" description:"Center of the search, 'ra dec' in degrees or sexagesimal (e.g. '10:00:24 +02:12:00')"`
	RadiusCmd   string        `long:"radius" default:"0.1d" description:"Search radius, with unit d, m or s (e.g. '30m')"`
	ColumnsCmd  string        `long:"columns" default:"" description:"Optional comma separated list of columns to request on top of the survey columns"`
	FiltersCmd  []string      `long:"filter" description:"Column constraint 'column:expression' (e.g. 'rmag:5..20'), can be repeated. Replaces the survey default constraints"`
	BaseDir     string        `long:"dir" default:"./" description:"Directory the catalogues are written to"`
	CacheDir    string        `long:"cache-dir" default:"" description:"Optional directory used to cache query results"`
	CacheTTL    string        `long:"cache-ttl" default:"P7D" description:"ISO 8601 period after which cached results are fetched again"`
	Overwrite   bool          `long:"overwrite" description:"Ignore cached results and overwrite existing catalogues"`
	Timeout     time.Duration `long:"timeout" default:"10m" description:"Maximum duration of the whole fetch"`
	MetricsFile string        `long:"metrics-file" default:"" description:"Optional path of a Prometheus textfile with the query metrics"`
	Email       []string      `long:"email" description:"Optional email address used to notify if the program crashed"`
	Surveys     []string
	Columns     []string
	Filters     map[string]string
	Center      skycoord.SkyCoord
	Radius      float64
	TTL         period.Period
}

// Populates the config by parsing the cmd strings
func (config *Config) setup() error {
	names := utils.SplitList(config.SurveysCmd)
	for i, name := range names {
		// aliases like 'twomass' resolve to the registered name
		if s, err := survey.Lookup(name); err == nil {
			names[i] = s.Name
		}
	}
	config.Surveys = utils.FilterSlice(names, survey.Names(), "Survey '%s' is not registered, skipping")
	if len(config.Surveys) == 0 {
		return errors.New("no known survey selected, see '--survey'")
	}

	config.Columns = utils.SplitList(config.ColumnsCmd)

	if config.FiltersCmd != nil {
		config.Filters = make(map[string]string, len(config.FiltersCmd))
		for _, filter := range config.FiltersCmd {
			column, expr, found := strings.Cut(filter, ":")
			if !found || column == "" {
				return fmt.Errorf("invalid filter '%s', expected 'column:expression'", filter)
			}
			config.Filters[column] = expr
		}
	}

	var err error
	if config.Center, err = skycoord.ParseCenter(config.CenterCmd); err != nil {
		return err
	}
	if config.Radius, err = skycoord.ParseRadius(config.RadiusCmd); err != nil {
		return err
	}
	if !(config.Radius > 0) {
		return fmt.Errorf("%w: radius must be positive", skycoord.ErrInvalidAngle)
	}

	if config.CacheDir != "" {
		if config.TTL, err = period.Parse(config.CacheTTL); err != nil {
			return fmt.Errorf("invalid '--cache-ttl': %w", err)
		}
	}
	return nil
}

// This method is automatically called by go-flags while parsing the cmd
func (config *Config) Execute(_ []string) error {
	if err := config.setup(); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(registry)
	if err != nil {
		return err
	}

	var querier vizier.RegionQuerier = vizier.NewClient(collector)
	if config.CacheDir != "" {
		cached := cache.New(querier, config.CacheDir, config.TTL, config.Overwrite)
		cached.Metrics = collector
		querier = cached
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	failed := 0
	for i, result := range fetchAll(ctx, querier, config) {
		name := config.Surveys[i]
		if result.Err != nil {
			slog.Error(fmt.Sprintf("%s: %s", name, result.Err))
			failed++
			continue
		}
		if err := save(result.Ok, config); err != nil {
			slog.Error(fmt.Sprintf("%s: could not save catalogue: %s", name, err))
			failed++
		}
	}

	if config.MetricsFile != "" {
		if err := collector.WriteTextfile(config.MetricsFile); err != nil {
			slog.Error(fmt.Sprintf("Could not write metrics to '%s': %s", config.MetricsFile, err))
		}
	}

	if failed == len(config.Surveys) {
		return fmt.Errorf("all %d queries failed", failed)
	}
	return nil
}

// fetchAll queries the surveys concurrently, results are in the order of config.Surveys
func fetchAll(ctx context.Context, querier vizier.RegionQuerier, config *Config) []utils.Result[*catalogue.Catalogue] {
	results := make([]utils.Result[*catalogue.Catalogue], len(config.Surveys))
	opts := catalogue.FetchOptions{ExtraColumns: config.Columns, ColumnFilters: config.Filters}

	var wg sync.WaitGroup
	for i, name := range config.Surveys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer utils.SendEmailOnPanic(fmt.Sprintf("%s fetch", name), config.Email)

			schema, err := survey.Lookup(name)
			if err != nil {
				results[i] = utils.Err[*catalogue.Catalogue](err)
				return
			}

			slog.Info(fmt.Sprintf("%s: querying %s within %.4f deg of %s", name, schema.Catalog, config.Radius, config.Center))
			cat, err := catalogue.Fetch(ctx, querier, schema, config.Center, config.Radius, opts)
			if err != nil {
				results[i] = utils.Err[*catalogue.Catalogue](err)
				return
			}

			slog.Info(fmt.Sprintf("%s: %d objects", name, cat.NObjects()))
			results[i] = utils.Ok(cat)
		}()
	}
	wg.Wait()

	return results
}

// save writes the catalogue to '<dir>/<survey>.csv', existing files are kept unless Overwrite is set
func save(cat *catalogue.Catalogue, config *Config) error {
	path := filepath.Join(config.BaseDir, cat.Name()+".csv")
	if _, err := os.Stat(path); err == nil && !config.Overwrite {
		slog.Info(fmt.Sprintf("Skipping %s because '%s' already exists", cat.Name(), path))
		return nil
	}

	if err := os.MkdirAll(config.BaseDir, os.ModePerm); err != nil {
		return err
	}
	if err := cat.Save(path); err != nil {
		return err
	}
	slog.Info(fmt.Sprintf("%s: written to '%s'", cat.Name(), path))
	return nil
}
