package repository

import (
	"context"

	"github.com/epeers/fundsync/internal/database"
)

// FundStore bundles a pool with the writer and reader built on it. It is
// opened once per ingestion run and closed when the run's write stage ends.
type FundStore struct {
	*FundWriter
	*FundRepository
	pool *database.Pool
}

// OpenFundStore builds the pool for cfg and the repositories on top of it.
func OpenFundStore(ctx context.Context, cfg database.Config) (*FundStore, error) {
	pool, err := database.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &FundStore{
		FundWriter:     NewFundWriter(pool),
		FundRepository: NewFundRepository(pool),
		pool:           pool,
	}, nil
}

// Pool returns the underlying connection pool.
func (s *FundStore) Pool() *database.Pool {
	return s.pool
}

// Close closes the pool.
func (s *FundStore) Close() {
	s.pool.Close()
}
