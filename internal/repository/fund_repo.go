package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/epeers/fundsync/internal/database"
	"github.com/epeers/fundsync/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FundRepository handles read queries against the fund tables
type FundRepository struct {
	pool *database.Pool
}

// NewFundRepository creates a new FundRepository
func NewFundRepository(pool *database.Pool) *FundRepository {
	return &FundRepository{pool: pool}
}

// CountRows returns the number of rows in a known fund table.
func (r *FundRepository) CountRows(ctx context.Context, table string) (int64, error) {
	tbl, ok := LookupTable(table)
	if !ok {
		return 0, fmt.Errorf("unknown table %q", table)
	}

	var count int64
	err := r.pool.WithConn(ctx, func(conn *pgxpool.Conn) error {
		return conn.QueryRow(ctx, "SELECT count(*) FROM "+quoteIdent(tbl.Name)).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return count, nil
}

// ExistingOverviewISINs returns the subset of isins that have a fund_overview row,
// in the order given.
func (r *FundRepository) ExistingOverviewISINs(ctx context.Context, isins []string) ([]string, error) {
	if len(isins) == 0 {
		return nil, nil
	}

	found := make(map[string]bool, len(isins))
	err := r.pool.WithConn(ctx, func(conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, `SELECT isin FROM fund_overview WHERE isin = ANY($1)`, isins)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var isin string
			if err := rows.Scan(&isin); err != nil {
				return err
			}
			found[isin] = true
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query fund overviews: %w", err)
	}

	out := make([]string, 0, len(found))
	for _, isin := range isins {
		if found[isin] {
			out = append(out, isin)
		}
	}
	return out, nil
}

// GetNav retrieves NAV observations for an ISIN within a date range
func (r *FundRepository) GetNav(ctx context.Context, isin string, startDate, endDate time.Time) ([]models.NavObservation, error) {
	query := `
		SELECT isin, date, close
		FROM nav
		WHERE isin = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`
	var navs []models.NavObservation
	err := r.pool.WithConn(ctx, func(conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, query, isin, startDate, endDate)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var n models.NavObservation
			if err := rows.Scan(&n.ISIN, &n.Date, &n.Close); err != nil {
				return err
			}
			navs = append(navs, n)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query nav: %w", err)
	}
	return navs, nil
}

// GetPerformance retrieves the stored performance snapshot for an ISIN, or nil.
func (r *FundRepository) GetPerformance(ctx context.Context, isin string) (*models.PerformanceSnapshot, error) {
	query := `
		SELECT isin, inception, one_day, one_week, one_month, three_months, six_months,
		       one_year, two_years, three_years, five_years, ten_years
		FROM performance
		WHERE isin = $1
	`
	p := &models.PerformanceSnapshot{}
	err := r.pool.WithConn(ctx, func(conn *pgxpool.Conn) error {
		return conn.QueryRow(ctx, query, isin).Scan(
			&p.ISIN, &p.Inception, &p.OneDay, &p.OneWeek, &p.OneMonth, &p.ThreeMonths, &p.SixMonths,
			&p.OneYear, &p.TwoYears, &p.ThreeYears, &p.FiveYears, &p.TenYears,
		)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get performance: %w", err)
	}
	return p, nil
}
