package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/epeers/fundsync/internal/database"
	"github.com/epeers/fundsync/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// WriteMode selects how a batch lands in its table.
type WriteMode string

const (
	// ModeAppend inserts every row with no duplicate detection.
	ModeAppend WriteMode = "append"
	// ModeReplace truncates the table and inserts every row in one transaction.
	ModeReplace WriteMode = "replace"
	// ModeUpsert inserts every row, overwriting non-key columns on key collision.
	ModeUpsert WriteMode = "upsert"
)

// WriteResult describes a finished write call.
type WriteResult struct {
	Table   string    `json:"table"`
	Mode    WriteMode `json:"mode"`
	Rows    int       `json:"rows"`
	Skipped bool      `json:"skipped"`
}

// FundWriter writes normalized rows into the fund tables.
type FundWriter struct {
	pool *database.Pool
}

// NewFundWriter creates a new FundWriter
func NewFundWriter(pool *database.Pool) *FundWriter {
	return &FundWriter{pool: pool}
}

// Write stores rows into table using mode. keyColumns is required for ModeUpsert.
// An empty batch is skipped without touching the database. Every row is
// written in one transaction; any failure rolls the whole batch back.
func (w *FundWriter) Write(ctx context.Context, rows []models.Row, table string, mode WriteMode, keyColumns ...string) (*WriteResult, error) {
	if len(rows) == 0 {
		log.Infof("Rows for '%s' are empty, skipping insertion.", table)
		return &WriteResult{Table: table, Mode: mode, Skipped: true}, nil
	}

	stmt, err := prepareWrite(rows, table, mode, keyColumns)
	if err != nil {
		return nil, err
	}

	err = w.pool.WithConn(ctx, func(conn *pgxpool.Conn) error {
		return execWrite(ctx, conn, stmt, rows)
	})
	if err != nil {
		return nil, &WriteError{Kind: ErrDB, Table: table, Mode: mode, Err: err}
	}

	switch mode {
	case ModeAppend:
		log.Infof("Appended %d rows to '%s'.", len(rows), table)
	case ModeReplace:
		log.Infof("Replaced all data and inserted %d rows into '%s'.", len(rows), table)
	case ModeUpsert:
		log.Infof("Upserted %d rows into '%s'.", len(rows), table)
	}
	return &WriteResult{Table: table, Mode: mode, Rows: len(rows)}, nil
}

// writeStatement is a validated batch ready to execute.
type writeStatement struct {
	table    Table
	mode     WriteMode
	truncate string
	query    string
}

func prepareWrite(rows []models.Row, table string, mode WriteMode, keyColumns []string) (*writeStatement, error) {
	invalidf := func(format string, args ...any) error {
		return &WriteError{Kind: ErrInvalidBatch, Table: table, Mode: mode, Err: fmt.Errorf(format, args...)}
	}

	tbl, ok := LookupTable(table)
	if !ok {
		return nil, invalidf("unknown table")
	}

	columns, err := batchColumns(tbl, rows)
	if err != nil {
		return nil, invalidf("%v", err)
	}

	stmt := &writeStatement{table: tbl, mode: mode}
	switch mode {
	case ModeAppend:
		stmt.query = buildInsert(tbl.Name, columns)
	case ModeReplace:
		stmt.truncate = "TRUNCATE TABLE " + quoteIdent(tbl.Name)
		stmt.query = buildInsert(tbl.Name, columns)
	case ModeUpsert:
		if len(keyColumns) == 0 {
			return nil, &WriteError{Kind: ErrMissingKeyColumns, Table: table, Mode: mode}
		}
		for _, k := range keyColumns {
			if !slices.Contains(columns, k) {
				return nil, invalidf("key column %q is not in the batch", k)
			}
		}
		stmt.query = buildUpsert(tbl.Name, columns, keyColumns)
	default:
		return nil, invalidf("invalid mode %q, choose append, replace, or upsert", mode)
	}
	return stmt, nil
}

// batchColumns checks every row against the table's columns and returns the
// shared column order. All rows must carry the same columns in the same order.
func batchColumns(tbl Table, rows []models.Row) ([]string, error) {
	columns := rows[0].Columns
	if len(columns) == 0 {
		return nil, errors.New("row has no columns")
	}

	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if !tbl.HasColumn(c) {
			return nil, fmt.Errorf("unknown column %q", c)
		}
		if seen[c] {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		seen[c] = true
	}

	for i, r := range rows {
		if !slices.Equal(r.Columns, columns) {
			return nil, fmt.Errorf("row %d columns %v differ from %v", i, r.Columns, columns)
		}
		if len(r.Values) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values for %d columns", i, len(r.Values), len(columns))
		}
	}
	return columns, nil
}

func execWrite(ctx context.Context, conn *pgxpool.Conn, stmt *writeStatement, rows []models.Row) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// No-op once committed.
	defer tx.Rollback(ctx)

	if stmt.truncate != "" {
		if _, err := tx.Exec(ctx, stmt.truncate); err != nil {
			return fmt.Errorf("failed to truncate: %w", err)
		}
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(stmt.query, r.Values...)
	}

	br := tx.SendBatch(ctx, batch)
	for i := range rows {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to finish batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func quoteIdents(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}

func buildInsert(table string, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), quoteIdents(columns), strings.Join(placeholders, ", "))
}

// buildUpsert overwrites every non-key column on conflict. When the batch
// holds only key columns there is nothing to overwrite and a colliding row is
// left as it is.
func buildUpsert(table string, columns, keyColumns []string) string {
	var assignments []string
	for _, c := range columns {
		if slices.Contains(keyColumns, c) {
			continue
		}
		assignments = append(assignments, fmt.Sprintf("%s = EXCLUDED.%s", quoteIdent(c), quoteIdent(c)))
	}

	query := buildInsert(table, columns) + " ON CONFLICT (" + quoteIdents(keyColumns) + ")"
	if len(assignments) == 0 {
		return query + " DO NOTHING"
	}
	return query + " DO UPDATE SET " + strings.Join(assignments, ", ")
}

type rowSource interface {
	ToRow() models.Row
}

// ToRows flattens typed records into rows.
func ToRows[T rowSource](items []T) []models.Row {
	rows := make([]models.Row, len(items))
	for i, it := range items {
		rows[i] = it.ToRow()
	}
	return rows
}

// UpsertOverviews writes fund_overview keyed by isin.
func (w *FundWriter) UpsertOverviews(ctx context.Context, overviews []models.FundOverview) (*WriteResult, error) {
	return w.Write(ctx, ToRows(overviews), TableFundOverview, ModeUpsert, "isin")
}

// UpsertCatalog writes fund_catalog keyed by the upstream id.
func (w *FundWriter) UpsertCatalog(ctx context.Context, entries []models.FundCatalogEntry) (*WriteResult, error) {
	return w.Write(ctx, ToRows(entries), TableFundCatalog, ModeUpsert, "allfunds_id")
}

// UpsertNav writes nav keyed by (isin, date); a re-ingested date takes the newer close.
func (w *FundWriter) UpsertNav(ctx context.Context, navs []models.NavObservation) (*WriteResult, error) {
	return w.Write(ctx, ToRows(navs), TableNav, ModeUpsert, "isin", "date")
}

// UpsertPerformance writes performance keyed by isin, replacing every horizon.
func (w *FundWriter) UpsertPerformance(ctx context.Context, snaps []models.PerformanceSnapshot) (*WriteResult, error) {
	return w.Write(ctx, ToRows(snaps), TablePerformance, ModeUpsert, "isin")
}
