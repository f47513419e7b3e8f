package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"

	"astrocat/archive"
	"astrocat/catalogue"
	"astrocat/survey"
	"astrocat/utils"
)

type Config struct {
	BaseDir    string   `long:"dir" default:"./" description:"Directory with the catalogues written by 'fetch'"`
	SurveysCmd string   `long:"survey" default:"" description:"Optional comma separated list of surveys. By default every catalogue found in '--dir' is migrated"`
	Mag        string   `long:"mag" default:"" description:"Magnitude column, the survey suggestion by default"`
	MagErr     string   `long:"magerr" default:"" description:"Magnitude error column, the survey suggestion by default"`
	LogToFile  bool     `long:"log-file" description:"Write the log to '<dir>/archive_migrate_log.txt'"`
	Email      []string `long:"email" description:"Optional email address used to notify if the program crashed"`
	Surveys    []string
}

func (config *Config) setup() {
	names := utils.SplitList(config.SurveysCmd)
	for i, name := range names {
		if s, err := survey.Lookup(name); err == nil {
			names[i] = s.Name
		}
	}
	config.Surveys = utils.FilterSlice(names, survey.Names(), "Survey '%s' is not registered, skipping")
}

// This method is automatically called by go-flags while parsing the cmd
func (config *Config) Execute(_ []string) error {
	config.setup()
	defer utils.SendEmailOnPanic("migrate", config.Email)

	if config.LogToFile {
		fh, err := utils.SetLogFile(config.BaseDir, "archive", "migrate")
		if err == nil {
			defer fh.Close()
			defer utils.ResetLogOutput()
		}
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, os.Getenv("ARCHIVE_CONN"))
	if err != nil {
		return fmt.Errorf("could not connect to the archive: %w", err)
	}
	defer pool.Close()

	if err := archive.CreateTable(ctx, pool); err != nil {
		return err
	}
	return migrate(ctx, pool, config)
}

func migrate(ctx context.Context, db archive.DB, config *Config) error {
	var errs []error
	for _, name := range config.Surveys {
		path := filepath.Join(config.BaseDir, name+".csv")
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			slog.Info(fmt.Sprintf("%s: no catalogue at '%s', skipping", name, path))
			continue
		}

		if err := migrateFile(ctx, db, path, name, config); err != nil {
			slog.Error(fmt.Sprintf("%s: %s", name, err))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func migrateFile(ctx context.Context, db archive.DB, path, name string, config *Config) error {
	schema, err := survey.Lookup(name)
	if err != nil {
		return err
	}

	cat, err := catalogue.Load(path, schema)
	if err != nil {
		return err
	}

	mag, magErr := config.Mag, config.MagErr
	if mag == "" {
		mag, magErr = schema.SuggestedMag, schema.SuggestedMagErr
	}
	if mag != "" {
		if err := cat.SetMagKeys(mag, magErr); err != nil {
			return err
		}
	}

	count, err := archive.InsertCatalogue(ctx, db, cat)
	if err != nil {
		return err
	}

	logStr := fmt.Sprintf("%s: %v/%v rows inserted", name, count, cat.NObjectsInFov())
	if int(count) != cat.NObjectsInFov() {
		slog.Warn(logStr)
	} else {
		slog.Info(logStr)
	}
	return nil
}
