// Package archive exports catalogue entries to the PostgreSQL archive
package archive

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"astrocat/catalogue"
)

var Table = pgx.Identifier{"catalogue", "entries"}

var Columns = []string{"survey", "source_id", "ra", "dec", "mag", "mag_err", "class", "is_star", "lbda"}

const schemaSQL = `
CREATE SCHEMA IF NOT EXISTS catalogue;
CREATE TABLE IF NOT EXISTS catalogue.entries (
    survey    TEXT NOT NULL,
    source_id TEXT NOT NULL,
    ra        DOUBLE PRECISION NOT NULL,
    dec       DOUBLE PRECISION NOT NULL,
    mag       DOUBLE PRECISION,
    mag_err   DOUBLE PRECISION,
    class     INTEGER,
    is_star   BOOLEAN,
    lbda      DOUBLE PRECISION
);`

// DB is satisfied by *pgxpool.Pool and *pgx.Conn
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

// Row mimics the catalogue.entries table
type Row struct {
	Survey string
	// Identifier in the survey, empty if the survey has none
	SourceID string
	RA       float64
	Dec      float64
	Mag      *float64
	MagErr   *float64
	// Survey specific object class
	Class  *int
	IsStar *bool
	// Effective wavelength of Mag in Angstrom
	Lbda *float64
}

func (r *Row) ToRow() []any {
	return []any{r.Survey, r.SourceID, r.RA, r.Dec, r.Mag, r.MagErr, r.Class, r.IsStar, r.Lbda}
}

// NewRows converts catalogue entries, lbda may be nil when the wavelength is undefined
func NewRows(survey string, entries []catalogue.Entry, lbda *float64) []Row {
	rows := make([]Row, len(entries))
	for i, e := range entries {
		rows[i] = Row{
			Survey:   survey,
			SourceID: e.ID,
			RA:       e.RA,
			Dec:      e.Dec,
			Mag:      e.Mag,
			MagErr:   e.MagErr,
			Class:    e.Class,
			IsStar:   e.IsStar,
		}
		// entries without magnitude have no wavelength either
		if e.Mag != nil {
			rows[i].Lbda = lbda
		}
	}
	return rows
}

// CreateTable creates the archive table if it does not exist yet
func CreateTable(ctx context.Context, db DB) error {
	_, err := db.Exec(ctx, schemaSQL)
	return err
}

func Insert(ctx context.Context, db DB, rows []Row) (int64, error) {
	count, err := db.CopyFrom(
		ctx,
		Table,
		Columns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			return rows[i].ToRow(), nil
		}),
	)
	if err != nil {
		return count, fmt.Errorf("could not copy to %s: %w", Table.Sanitize(), err)
	}
	slog.Debug(fmt.Sprintf("Inserted %d rows into %s", count, Table.Sanitize()))
	return count, nil
}

// InsertCatalogue archives the in-FoV entries of c
func InsertCatalogue(ctx context.Context, db DB, c *catalogue.Catalogue) (int64, error) {
	entries, err := c.Entries(nil)
	if err != nil {
		return 0, err
	}

	var lbda *float64
	if c.Keys().HasMag() {
		if l, err := c.Lbda(); err == nil {
			lbda = &l
		}
	}
	return Insert(ctx, db, NewRows(c.Name(), entries, lbda))
}
