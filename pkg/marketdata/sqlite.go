package marketdata

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/HatiCode/skillhalflife/pkg/analytics"
)

// SQLiteSource stores job-market rows in a local SQLite file.
type SQLiteSource struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies migrations.
// Use ":memory:" for a throwaway database.
func OpenSQLite(path string) (*SQLiteSource, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		// each connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &SQLiteSource{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return s, nil
}

func (s *SQLiteSource) migrate() error {
	version := 0
	_ = s.db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);` + schemaJobMarket); err != nil {
			return err
		}
		if _, err := s.db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (1)`); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteSource) Name() string { return "sqlite" }

// Rows implements Source. Matching on country, city and skill ignores case.
func (s *SQLiteSource) Rows(ctx context.Context, key analytics.Key) ([]analytics.Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT year, demand_index, salary_estimate, job_openings, competition_index
		FROM job_market
		WHERE lower(country) = lower(?) AND lower(city) = lower(?) AND lower(skill) = lower(?)
		ORDER BY year ASC`,
		key.Country, key.City, key.Skill,
	)
	if err != nil {
		return nil, fmt.Errorf("query job_market: %w", err)
	}
	defer rows.Close()

	out := []analytics.Row{}
	for rows.Next() {
		var r analytics.Row
		if err := rows.Scan(&r.Year, &r.DemandIndex, &r.SalaryEstimate, &r.JobOpenings, &r.CompetitionIndex); err != nil {
			return nil, fmt.Errorf("scan job_market: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Upsert implements Writer.
func (s *SQLiteSource) Upsert(ctx context.Context, key analytics.Key, rows []analytics.Row) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO job_market (id, country, city, skill, year, demand_index, salary_estimate, job_openings, competition_index)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (country, city, skill, year) DO UPDATE SET
			demand_index = excluded.demand_index,
			salary_estimate = excluded.salary_estimate,
			job_openings = excluded.job_openings,
			competition_index = excluded.competition_index`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, uuid.NewString(), key.Country, key.City, key.Skill,
			r.Year, r.DemandIndex, r.SalaryEstimate, r.JobOpenings, r.CompetitionIndex); err != nil {
			return fmt.Errorf("upsert year %d: %w", r.Year, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteSource) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteSource) Close() error {
	return s.db.Close()
}
