package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/epeers/fundsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func navRow(isin, date string, price float64) models.Row {
	return models.Row{Columns: []string{"isin", "date", "close"}, Values: []any{isin, date, price}}
}

func TestBuildInsert(t *testing.T) {
	got := buildInsert("nav", []string{"isin", "date", "close"})
	assert.Equal(t, `INSERT INTO "nav" ("isin", "date", "close") VALUES ($1, $2, $3)`, got)
}

func TestBuildUpsert(t *testing.T) {
	got := buildUpsert("nav", []string{"isin", "date", "close"}, []string{"isin", "date"})
	assert.Equal(t,
		`INSERT INTO "nav" ("isin", "date", "close") VALUES ($1, $2, $3) ON CONFLICT ("isin", "date") DO UPDATE SET "close" = EXCLUDED."close"`,
		got)
}

func TestBuildUpsert_AllKeyColumnsDoNothing(t *testing.T) {
	got := buildUpsert("fund_overview", []string{"isin"}, []string{"isin"})
	assert.Equal(t, `INSERT INTO "fund_overview" ("isin") VALUES ($1) ON CONFLICT ("isin") DO NOTHING`, got)
}

func TestQuoteIdent_EscapesQuotes(t *testing.T) {
	assert.Equal(t, `"we""ird"`, quoteIdent(`we"ird`))
}

func TestPrepareWrite_Replace(t *testing.T) {
	stmt, err := prepareWrite([]models.Row{navRow("LU0996182563", "2024-01-02", 1)}, TableNav, ModeReplace, nil)
	require.NoError(t, err)
	assert.Equal(t, `TRUNCATE TABLE "nav"`, stmt.truncate)
	assert.Equal(t, `INSERT INTO "nav" ("isin", "date", "close") VALUES ($1, $2, $3)`, stmt.query)
}

func TestPrepareWrite_Errors(t *testing.T) {
	good := []models.Row{navRow("LU0996182563", "2024-01-02", 1)}

	tests := []struct {
		name  string
		rows  []models.Row
		table string
		mode  WriteMode
		keys  []string
		kind  error
	}{
		{"upsert without keys", good, TableNav, ModeUpsert, nil, ErrMissingKeyColumns},
		{"unknown table", good, "users", ModeAppend, nil, ErrInvalidBatch},
		{"unknown mode", good, TableNav, WriteMode("merge"), nil, ErrInvalidBatch},
		{"key not in batch", good, TableNav, ModeUpsert, []string{"isin", "day"}, ErrInvalidBatch},
		{"unknown column", []models.Row{{Columns: []string{"isin", "price"}, Values: []any{"X", 1}}},
			TableNav, ModeAppend, nil, ErrInvalidBatch},
		{"duplicate column", []models.Row{{Columns: []string{"isin", "isin"}, Values: []any{"X", "X"}}},
			TableNav, ModeAppend, nil, ErrInvalidBatch},
		{"ragged batch", []models.Row{
			navRow("LU0996182563", "2024-01-02", 1),
			{Columns: []string{"isin", "date"}, Values: []any{"LU0996182563", "2024-01-03"}},
		}, TableNav, ModeAppend, nil, ErrInvalidBatch},
		{"value count mismatch", []models.Row{{Columns: []string{"isin", "date", "close"}, Values: []any{"X"}}},
			TableNav, ModeAppend, nil, ErrInvalidBatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := prepareWrite(tt.rows, tt.table, tt.mode, tt.keys)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)

			var we *WriteError
			require.True(t, errors.As(err, &we))
			assert.Equal(t, tt.table, we.Table)
		})
	}
}

func TestWrite_EmptyBatchSkipsWithoutPool(t *testing.T) {
	// A nil pool would panic if the writer tried to acquire a connection.
	w := NewFundWriter(nil)

	result, err := w.Write(context.Background(), nil, TableNav, ModeUpsert, "isin", "date")
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, 0, result.Rows)
}

func TestWrite_ValidationBeforeConnection(t *testing.T) {
	w := NewFundWriter(nil)

	_, err := w.Write(context.Background(), []models.Row{navRow("LU0996182563", "2024-01-02", 1)}, TableNav, ModeUpsert)
	assert.True(t, errors.Is(err, ErrMissingKeyColumns))
}

func TestToRows(t *testing.T) {
	ret := 2.5
	rows := ToRows([]models.PerformanceSnapshot{{ISIN: "LU0996182563", OneYear: &ret}})
	require.Len(t, rows, 1)

	spec, ok := LookupTable(TablePerformance)
	require.True(t, ok)
	assert.Equal(t, spec.Columns, rows[0].Columns)

	v, ok := rows[0].Value("one_year")
	require.True(t, ok)
	assert.Equal(t, &ret, v)
}

func TestRecordColumnsMatchTables(t *testing.T) {
	cases := map[string]models.Row{
		TableFundCatalog:  models.FundCatalogEntry{}.ToRow(),
		TableFundOverview: models.FundOverview{}.ToRow(),
		TableNav:          models.NavObservation{}.ToRow(),
		TablePerformance:  models.PerformanceSnapshot{}.ToRow(),
	}
	for table, row := range cases {
		spec, ok := LookupTable(table)
		require.True(t, ok, table)
		assert.Equal(t, spec.Columns, row.Columns, table)
		assert.Len(t, row.Values, len(row.Columns), table)
	}
}
