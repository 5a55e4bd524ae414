package marketdata

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/HatiCode/skillhalflife/pkg/analytics"
)

// PostgresSource reads job-market rows from PostgreSQL.
type PostgresSource struct {
	pool *pgxpool.Pool
}

// ConnectPostgres opens a pool for databaseURL, verifies it and ensures the
// job_market table exists.
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresSource, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaJobMarket); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return &PostgresSource{pool: pool}, nil
}

func (p *PostgresSource) Name() string { return "postgres" }

// Rows implements Source.
func (p *PostgresSource) Rows(ctx context.Context, key analytics.Key) ([]analytics.Row, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT year, demand_index, salary_estimate, job_openings, competition_index
		FROM job_market
		WHERE lower(country) = lower($1) AND lower(city) = lower($2) AND lower(skill) = lower($3)
		ORDER BY year ASC`,
		key.Country, key.City, key.Skill,
	)
	if err != nil {
		return nil, fmt.Errorf("query job_market: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (analytics.Row, error) {
		var r analytics.Row
		err := row.Scan(&r.Year, &r.DemandIndex, &r.SalaryEstimate, &r.JobOpenings, &r.CompetitionIndex)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan job_market: %w", err)
	}
	return out, nil
}

// Upsert implements Writer.
func (p *PostgresSource) Upsert(ctx context.Context, key analytics.Key, rows []analytics.Row) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO job_market (id, country, city, skill, year, demand_index, salary_estimate, job_openings, competition_index)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (country, city, skill, year) DO UPDATE SET
				demand_index = EXCLUDED.demand_index,
				salary_estimate = EXCLUDED.salary_estimate,
				job_openings = EXCLUDED.job_openings,
				competition_index = EXCLUDED.competition_index`,
			uuid.NewString(), key.Country, key.City, key.Skill,
			r.Year, r.DemandIndex, r.SalaryEstimate, r.JobOpenings, r.CompetitionIndex)
	}
	if err := p.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert job_market: %w", err)
	}
	return nil
}

func (p *PostgresSource) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresSource) Close() error {
	p.pool.Close()
	return nil
}
