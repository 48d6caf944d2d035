//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/epeers/fundsync/internal/models"
	"github.com/epeers/fundsync/internal/testhelpers"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	isinA = "LU0996182563"
	isinB = "IE00B4L5Y983"
)

func setupStore(t *testing.T) *FundStore {
	t.Helper()
	testDB := testhelpers.GetTestDB(t)
	cfg := testDB.CreateSchemaDatabase(t)

	store, err := OpenFundStore(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func day(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func strPtr(s string) *string { return &s }

func seedOverviews(t *testing.T, store *FundStore, isins ...string) {
	t.Helper()
	overviews := make([]models.FundOverview, len(isins))
	for i, isin := range isins {
		overviews[i] = models.FundOverview{ISIN: isin, Name: strPtr("Fund " + isin)}
	}
	_, err := store.UpsertOverviews(context.Background(), overviews)
	require.NoError(t, err)
}

func TestUpsertNav_NewerCloseWins(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	seedOverviews(t, store, isinA)

	_, err := store.UpsertNav(ctx, []models.NavObservation{{ISIN: isinA, Date: day("2024-01-02"), Close: 101.5}})
	require.NoError(t, err)
	result, err := store.UpsertNav(ctx, []models.NavObservation{{ISIN: isinA, Date: day("2024-01-02"), Close: 102.0}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rows)

	navs, err := store.GetNav(ctx, isinA, day("2024-01-01"), day("2024-01-31"))
	require.NoError(t, err)
	require.Len(t, navs, 1)
	assert.InDelta(t, 102.0, navs[0].Close, 1e-9)
}

func TestUpsert_Idempotent(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	seedOverviews(t, store, isinA, isinB)

	navs := []models.NavObservation{
		{ISIN: isinA, Date: day("2024-01-02"), Close: 10},
		{ISIN: isinA, Date: day("2024-01-03"), Close: 11},
		{ISIN: isinB, Date: day("2024-01-02"), Close: 20},
	}
	for i := 0; i < 2; i++ {
		_, err := store.UpsertNav(ctx, navs)
		require.NoError(t, err)
	}

	count, err := store.CountRows(ctx, TableNav)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	count, err = store.CountRows(ctx, TableFundOverview)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestUpsertPerformance_ReplacesEveryHorizon(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	seedOverviews(t, store, isinA)

	one, two := 1.0, 2.0
	_, err := store.UpsertPerformance(ctx, []models.PerformanceSnapshot{{ISIN: isinA, OneYear: &one, TenYears: &one}})
	require.NoError(t, err)
	_, err = store.UpsertPerformance(ctx, []models.PerformanceSnapshot{{ISIN: isinA, OneYear: &two}})
	require.NoError(t, err)

	snap, err := store.GetPerformance(ctx, isinA)
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.NotNil(t, snap.OneYear)
	assert.InDelta(t, 2.0, *snap.OneYear, 1e-9)
	assert.Nil(t, snap.TenYears)

	missing, err := store.GetPerformance(ctx, isinB)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestWrite_Append(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	rows := ToRows([]models.FundCatalogEntry{
		{AllfundsID: "AF1", ISIN: isinA},
		{AllfundsID: "AF2", ISIN: isinB},
	})
	result, err := store.Write(ctx, rows, TableFundCatalog, ModeAppend)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Rows)

	// Appending the same keys again violates the primary key; nothing lands.
	_, err = store.Write(ctx, rows, TableFundCatalog, ModeAppend)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDB))

	count, err := store.CountRows(ctx, TableFundCatalog)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestWrite_ReplaceSwapsContents(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.UpsertCatalog(ctx, []models.FundCatalogEntry{{AllfundsID: "AF1", ISIN: isinA}, {AllfundsID: "AF2", ISIN: isinB}})
	require.NoError(t, err)

	_, err = store.Write(ctx, ToRows([]models.FundCatalogEntry{{AllfundsID: "AF3", ISIN: isinA}}), TableFundCatalog, ModeReplace)
	require.NoError(t, err)

	count, err := store.CountRows(ctx, TableFundCatalog)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestWrite_ReplaceFailureRestoresRows(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.UpsertCatalog(ctx, []models.FundCatalogEntry{{AllfundsID: "AF1", ISIN: isinA}, {AllfundsID: "AF2", ISIN: isinB}})
	require.NoError(t, err)

	// The second row breaks the NOT NULL on isin after the truncate has run.
	rows := []models.Row{
		{Columns: []string{"allfunds_id", "isin"}, Values: []any{"AF9", isinA}},
		{Columns: []string{"allfunds_id", "isin"}, Values: []any{"AF10", nil}},
	}
	_, err = store.Write(ctx, rows, TableFundCatalog, ModeReplace)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDB))

	count, err := store.CountRows(ctx, TableFundCatalog)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestWrite_UpsertAllKeyColumns(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	seedOverviews(t, store, isinA)

	rows := []models.Row{{Columns: []string{"isin"}, Values: []any{isinA}}}
	result, err := store.Write(ctx, rows, TableFundOverview, ModeUpsert, "isin")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rows)

	// The existing row keeps its name.
	var name string
	err = store.Pool().WithConn(ctx, func(conn *pgxpool.Conn) error {
		return conn.QueryRow(ctx, `SELECT name FROM fund_overview WHERE isin = $1`, isinA).Scan(&name)
	})
	require.NoError(t, err)
	assert.Equal(t, "Fund "+isinA, name)
}

func TestUpsertNav_ForeignKeyRollsBackBatch(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	seedOverviews(t, store, isinA)

	_, err := store.UpsertNav(ctx, []models.NavObservation{
		{ISIN: isinA, Date: day("2024-01-02"), Close: 1},
		{ISIN: isinB, Date: day("2024-01-02"), Close: 2},
	})
	require.Error(t, err)

	var we *WriteError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, TableNav, we.Table)

	count, err := store.CountRows(ctx, TableNav)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestExistingOverviewISINs(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	seedOverviews(t, store, isinB)

	got, err := store.ExistingOverviewISINs(ctx, []string{isinA, isinB})
	require.NoError(t, err)
	assert.Equal(t, []string{isinB}, got)
}

func TestPool_ReleasedAfterWrites(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	seedOverviews(t, store, isinA)

	_, _ = store.UpsertNav(ctx, []models.NavObservation{{ISIN: isinB, Date: day("2024-01-02"), Close: 2}})

	stat := store.Pool().Stat()
	assert.Equal(t, int32(0), stat.AcquiredConns())
	assert.Equal(t, store.Pool().Size(), stat.TotalConns())
}
