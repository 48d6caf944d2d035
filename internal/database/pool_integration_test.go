//go:build integration

package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/epeers/fundsync/internal/database"
	"github.com/epeers/fundsync/internal/testhelpers"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_OpensEveryConnection(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	cfg := testDB.Root
	cfg.PoolSize = 3

	pool, err := database.New(context.Background(), cfg)
	require.NoError(t, err)
	defer pool.Close()

	assert.Equal(t, int32(3), pool.Size())
	assert.Equal(t, int32(3), pool.Stat().TotalConns())
	assert.Equal(t, int32(0), pool.Stat().AcquiredConns())
}

func TestPool_AcquireBlocksUntilRelease(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	cfg := testDB.Root
	cfg.PoolSize = 1

	pool, err := database.New(context.Background(), cfg)
	require.NoError(t, err)
	defer pool.Close()

	conn, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err = pool.Acquire(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, database.ErrExhaustedOrUnreachable))

	done := make(chan error, 1)
	go func() {
		err := pool.WithConn(context.Background(), func(c *pgxpool.Conn) error {
			return c.QueryRow(context.Background(), "SELECT 1").Scan(new(int))
		})
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	pool.Release(conn)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("waiter never acquired the released connection")
	}
	assert.Equal(t, int32(0), pool.Stat().AcquiredConns())
}

func TestPool_WithConnReleasesOnError(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	cfg := testDB.Root
	cfg.PoolSize = 1

	pool, err := database.New(context.Background(), cfg)
	require.NoError(t, err)
	defer pool.Close()

	boom := errors.New("boom")
	err = pool.WithConn(context.Background(), func(*pgxpool.Conn) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(0), pool.Stat().AcquiredConns())
}
