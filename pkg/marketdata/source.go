// Package marketdata provides the historical job-market sources the analytics
// service reads from. Every source returns yearly rows for a country, city
// and skill, ordered by year.
//
// Available sources:
//   - SQLiteSource   - embedded database file (modernc.org/sqlite)
//   - PostgresSource - shared PostgreSQL database (pgx)
//   - HTTPSource     - any JSON API, fields extracted with gjson paths
package marketdata

import (
	"context"

	"github.com/HatiCode/skillhalflife/pkg/analytics"
)

// Source retrieves yearly rows for a regional skill.
//
// Rows returns an empty slice, not an error, when nothing is stored for key.
type Source interface {
	Rows(ctx context.Context, key analytics.Key) ([]analytics.Row, error)

	// Name returns a short identifier such as "sqlite" or "http".
	Name() string

	Ping(ctx context.Context) error
	Close() error
}

// Writer is implemented by sources that can persist rows.
type Writer interface {
	// Upsert stores rows for key, replacing any existing row for the same year.
	Upsert(ctx context.Context, key analytics.Key, rows []analytics.Row) error
}

const schemaJobMarket = `
CREATE TABLE IF NOT EXISTS job_market (
	id                TEXT PRIMARY KEY,
	country           TEXT NOT NULL,
	city              TEXT NOT NULL,
	skill             TEXT NOT NULL,
	year              INTEGER NOT NULL,
	demand_index      DOUBLE PRECISION NOT NULL,
	salary_estimate   DOUBLE PRECISION NOT NULL,
	job_openings      INTEGER NOT NULL,
	competition_index DOUBLE PRECISION NOT NULL,
	UNIQUE (country, city, skill, year)
);
CREATE INDEX IF NOT EXISTS idx_job_market_lookup ON job_market (country, city, skill, year);
`
