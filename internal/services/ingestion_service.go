package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/epeers/fundsync/internal/allfunds"
	"github.com/epeers/fundsync/internal/metrics"
	"github.com/epeers/fundsync/internal/models"
	"github.com/epeers/fundsync/internal/normalize"
	"github.com/epeers/fundsync/internal/provision"
	"github.com/epeers/fundsync/internal/repository"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ErrRunInProgress is returned when Run is called while another run is active.
var ErrRunInProgress = errors.New("ingestion run already in progress")

// Stage names, in execution order.
const (
	StageSchema   = "schema"
	StageAccounts = "accounts"
	StageIngest   = "ingest"
	StageVerify   = "verify"
)

// Dataset names used in reports, warnings and metrics.
const (
	DatasetOverview    = "overview"
	DatasetCatalog     = "catalog"
	DatasetNav         = "nav"
	DatasetPerformance = "performance"
)

// FundSource is the upstream the ingest stage reads from. *allfunds.Client satisfies it.
type FundSource interface {
	FetchCatalog(ctx context.Context) ([]allfunds.Payload, error)
	FetchOverviewBatch(ctx context.Context, isins []string) []allfunds.Result[allfunds.Payload]
	FetchNavBatch(ctx context.Context, isins []string, since time.Time, until *time.Time) []allfunds.Result[allfunds.Payload]
	FetchPerformanceBatch(ctx context.Context, isins []string) []allfunds.Result[allfunds.Payload]
}

// SchemaSetup creates the database and applies the table script.
type SchemaSetup interface {
	EnsureDatabase(ctx context.Context, name string) error
	ApplyScript(ctx context.Context, path string) (*provision.ScriptResult, error)
}

// AccountSetup manages the database login roles.
type AccountSetup interface {
	ProvisionUser(ctx context.Context, username, password string, role models.Role) error
	VerifyReadOnly(ctx context.Context, username string, tables []string) error
}

// FundStore is the write side of the ingest stage. *repository.FundStore satisfies it.
type FundStore interface {
	UpsertOverviews(ctx context.Context, overviews []models.FundOverview) (*repository.WriteResult, error)
	UpsertCatalog(ctx context.Context, entries []models.FundCatalogEntry) (*repository.WriteResult, error)
	UpsertNav(ctx context.Context, navs []models.NavObservation) (*repository.WriteResult, error)
	UpsertPerformance(ctx context.Context, snaps []models.PerformanceSnapshot) (*repository.WriteResult, error)
	ExistingOverviewISINs(ctx context.Context, isins []string) ([]string, error)
	CountRows(ctx context.Context, table string) (int64, error)
	Close()
}

// StoreOpener opens a FundStore for the duration of the ingest stage.
type StoreOpener func(ctx context.Context) (FundStore, error)

// IngestionConfig carries the run parameters.
type IngestionConfig struct {
	Database    string
	SchemaPath  string
	Admin       models.DatabaseAccount
	Reader      models.DatabaseAccount
	ISINs       []string
	NavSince    time.Time
	NavUntil    *time.Time
	StrictFetch bool
}

// StageReport describes one finished (or failed) stage.
type StageReport struct {
	Name       string `json:"name"`
	OK         bool   `json:"ok"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// DatasetReport describes one dataset written during the ingest stage.
type DatasetReport struct {
	Dataset   string `json:"dataset"`
	Table     string `json:"table"`
	Requested int    `json:"requested"`
	Failed    int    `json:"failed"`
	Rows      int    `json:"rows"`
	Skipped   bool   `json:"skipped"`
	TableRows int64  `json:"table_rows"`
}

// RunReport is the outcome of one ingestion run.
type RunReport struct {
	RunID       string                  `json:"run_id"`
	StartedAt   time.Time               `json:"started_at"`
	FinishedAt  time.Time               `json:"finished_at"`
	Succeeded   bool                    `json:"succeeded"`
	FailedStage string                  `json:"failed_stage,omitempty"`
	Error       string                  `json:"error,omitempty"`
	Stages      []StageReport           `json:"stages"`
	Datasets    []DatasetReport         `json:"datasets"`
	Schema      *provision.ScriptResult `json:"schema,omitempty"`
	Warnings    []models.Warning        `json:"warnings"`
}

// StageError reports the stage a run stopped at.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// IngestionService runs the provisioning and ingestion pipeline.
type IngestionService struct {
	cfg       IngestionConfig
	source    FundSource
	schema    SchemaSetup
	accounts  AccountSetup
	openStore StoreOpener
	metrics   *metrics.Metrics
	now       func() time.Time

	running sync.Mutex

	mu   sync.RWMutex
	last *RunReport
}

// NewIngestionService creates a new IngestionService
func NewIngestionService(
	cfg IngestionConfig,
	source FundSource,
	schema SchemaSetup,
	accounts AccountSetup,
	openStore StoreOpener,
	m *metrics.Metrics,
) *IngestionService {
	if m == nil {
		m = metrics.New()
	}
	return &IngestionService{
		cfg:       cfg,
		source:    source,
		schema:    schema,
		accounts:  accounts,
		openStore: openStore,
		metrics:   m,
		now:       time.Now,
	}
}

// LastReport returns the report of the most recent run, or nil before the first run.
func (s *IngestionService) LastReport() *RunReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

type stage struct {
	name  string
	label string
	run   func(ctx context.Context, report *RunReport) error
}

// Run executes the schema, accounts, ingest and verify stages in order and
// stops at the first failing stage. The returned report is always non-nil
// unless another run is active.
func (s *IngestionService) Run(ctx context.Context) (*RunReport, error) {
	if !s.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.running.Unlock()

	report := &RunReport{
		RunID:     uuid.New().String(),
		StartedAt: s.now(),
		Stages:    []StageReport{},
		Datasets:  []DatasetReport{},
	}
	ctx, wc := NewWarningContext(ctx, report.RunID)
	logger := log.WithField("run_id", report.RunID)

	defer func() {
		report.Warnings = wc.GetWarnings()
		report.FinishedAt = s.now()
		s.mu.Lock()
		s.last = report
		s.mu.Unlock()
	}()

	stages := []stage{
		{StageSchema, "Setting up database and tables", s.setupSchema},
		{StageAccounts, "Setting up database users", s.setupAccounts},
		{StageIngest, "Ingesting fund data", s.ingest},
		{StageVerify, "Verifying read-only access", s.verify},
	}

	for i, st := range stages {
		logger.Infof("[STEP %d/%d] %s...", i+1, len(stages), st.label)

		start := time.Now()
		err := st.run(ctx, report)
		elapsed := TrackTime("IngestionService."+st.name, start)

		sr := StageReport{Name: st.name, OK: err == nil, DurationMS: elapsed.Milliseconds()}
		outcome := "success"
		if err != nil {
			sr.Error = err.Error()
			outcome = "failure"
		}
		report.Stages = append(report.Stages, sr)
		s.metrics.StageDuration.WithLabelValues(st.name, outcome).Observe(elapsed.Seconds())

		if err != nil {
			logger.WithError(err).Errorf("Stage %s failed", st.name)
			report.FailedStage = st.name
			report.Error = err.Error()
			s.metrics.Runs.WithLabelValues("failure").Inc()
			return report, &StageError{Stage: st.name, Err: err}
		}
	}

	report.Succeeded = true
	s.metrics.Runs.WithLabelValues("success").Inc()
	logger.WithField("warnings", wc.Summary()).Infof("Ingestion run finished with %d warnings.", wc.Len())
	return report, nil
}

func (s *IngestionService) setupSchema(ctx context.Context, report *RunReport) error {
	if err := s.schema.EnsureDatabase(ctx, s.cfg.Database); err != nil {
		return err
	}
	result, err := s.schema.ApplyScript(ctx, s.cfg.SchemaPath)
	report.Schema = result
	return err
}

func (s *IngestionService) setupAccounts(ctx context.Context, _ *RunReport) error {
	for _, acct := range []models.DatabaseAccount{s.cfg.Admin, s.cfg.Reader} {
		if err := s.accounts.ProvisionUser(ctx, acct.Username, acct.Password, acct.Role); err != nil {
			return fmt.Errorf("failed to provision %s user %s: %w", acct.Role, acct.Username, err)
		}
	}
	return nil
}

func (s *IngestionService) verify(ctx context.Context, _ *RunReport) error {
	return s.accounts.VerifyReadOnly(ctx, s.cfg.Reader.Username, repository.FundTables())
}

// ingest writes overview first so that nav and performance rows always have
// a parent fund_overview row to reference.
func (s *IngestionService) ingest(ctx context.Context, report *RunReport) error {
	store, err := s.openStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	isins := s.cfg.ISINs

	overviews, dr, err := collect(ctx, s, DatasetOverview, s.source.FetchOverviewBatch(ctx, isins),
		func(_ string, p allfunds.Payload) ([]models.FundOverview, error) {
			o, err := normalize.Overview(p)
			if err != nil {
				return nil, err
			}
			return []models.FundOverview{o}, nil
		})
	if err != nil {
		return err
	}
	if err := s.write(ctx, store, report, dr, repository.TableFundOverview, func() (*repository.WriteResult, error) {
		return store.UpsertOverviews(ctx, overviews)
	}); err != nil {
		return err
	}

	if err := s.ingestCatalog(ctx, store, report); err != nil {
		return err
	}

	eligible, err := store.ExistingOverviewISINs(ctx, isins)
	if err != nil {
		return err
	}
	s.warnOrphans(ctx, isins, eligible)

	navs, dr, err := collect(ctx, s, DatasetNav, s.source.FetchNavBatch(ctx, eligible, s.cfg.NavSince, s.cfg.NavUntil),
		normalize.Nav)
	if err != nil {
		return err
	}
	if err := s.write(ctx, store, report, dr, repository.TableNav, func() (*repository.WriteResult, error) {
		return store.UpsertNav(ctx, navs)
	}); err != nil {
		return err
	}

	snaps, dr, err := collect(ctx, s, DatasetPerformance, s.source.FetchPerformanceBatch(ctx, eligible),
		func(isin string, p allfunds.Payload) ([]models.PerformanceSnapshot, error) {
			snap, err := normalize.Performance(isin, p)
			if err != nil {
				return nil, err
			}
			return []models.PerformanceSnapshot{snap}, nil
		})
	if err != nil {
		return err
	}
	return s.write(ctx, store, report, dr, repository.TablePerformance, func() (*repository.WriteResult, error) {
		return store.UpsertPerformance(ctx, snaps)
	})
}

// ingestCatalog fetches the whole catalog in one request; any failure is fatal.
func (s *IngestionService) ingestCatalog(ctx context.Context, store FundStore, report *RunReport) error {
	payloads, err := s.source.FetchCatalog(ctx)
	if err != nil {
		s.metrics.FetchFailures.WithLabelValues(DatasetCatalog).Inc()
		return fmt.Errorf("failed to fetch catalog: %w", err)
	}
	entries, err := normalize.Catalog(payloads)
	if err != nil {
		return fmt.Errorf("failed to normalize catalog: %w", err)
	}
	dr := &DatasetReport{Dataset: DatasetCatalog, Requested: len(payloads)}
	return s.write(ctx, store, report, dr, repository.TableFundCatalog, func() (*repository.WriteResult, error) {
		return store.UpsertCatalog(ctx, entries)
	})
}

// collect normalizes the successful results of a batch fetch. Per-ISIN
// failures become warnings unless StrictFetch is set; a batch in which every
// ISIN failed is an error either way.
func collect[T any](
	ctx context.Context,
	s *IngestionService,
	dataset string,
	results []allfunds.Result[allfunds.Payload],
	norm func(isin string, p allfunds.Payload) ([]T, error),
) ([]T, *DatasetReport, error) {
	dr := &DatasetReport{Dataset: dataset, Requested: len(results)}
	if s.cfg.StrictFetch {
		if err := allfunds.FirstError(results); err != nil {
			return nil, dr, fmt.Errorf("failed to fetch %s: %w", dataset, err)
		}
	}

	var out []T
	var lastErr error
	for _, r := range results {
		err := r.Err
		code := models.WarnFetchFailed
		var items []T
		if err == nil {
			items, err = norm(r.ISIN, r.Value)
			code = models.WarnNormalizeFailed
		} else if errors.Is(err, allfunds.ErrInvalidISIN) {
			code = models.WarnISINRejected
		}

		if err != nil {
			if s.cfg.StrictFetch {
				return nil, dr, fmt.Errorf("failed to normalize %s for %s: %w", dataset, r.ISIN, err)
			}
			dr.Failed++
			lastErr = err
			s.metrics.FetchFailures.WithLabelValues(dataset).Inc()
			AddWarning(ctx, models.Warning{Code: code, Dataset: dataset, ISIN: r.ISIN, Message: err.Error()})
			continue
		}
		out = append(out, items...)
	}

	if dr.Requested > 0 && dr.Failed == dr.Requested {
		return nil, dr, fmt.Errorf("every ISIN failed for %s: %w", dataset, lastErr)
	}
	return out, dr, nil
}

func (s *IngestionService) write(
	ctx context.Context,
	store FundStore,
	report *RunReport,
	dr *DatasetReport,
	table string,
	upsert func() (*repository.WriteResult, error),
) error {
	dr.Table = table
	result, err := upsert()
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", table, err)
	}

	dr.Rows = result.Rows
	dr.Skipped = result.Skipped
	if result.Skipped {
		log.Infof("No %s data to insert.", dr.Dataset)
		AddWarning(ctx, models.Warning{
			Code:    models.WarnNothingToInsert,
			Dataset: dr.Dataset,
			Message: fmt.Sprintf("no %s rows to insert", dr.Dataset),
		})
	} else {
		s.metrics.RowsWritten.WithLabelValues(table, string(result.Mode)).Add(float64(result.Rows))
	}

	count, err := store.CountRows(ctx, table)
	if err != nil {
		return err
	}
	dr.TableRows = count
	report.Datasets = append(report.Datasets, *dr)
	return nil
}

func (s *IngestionService) warnOrphans(ctx context.Context, requested, eligible []string) {
	present := make(map[string]bool, len(eligible))
	for _, isin := range eligible {
		present[isin] = true
	}
	for _, isin := range requested {
		if present[isin] {
			continue
		}
		log.WithField("isin", isin).Warn("No fund_overview row, skipping nav and performance")
		AddWarning(ctx, models.Warning{
			Code:    models.WarnOrphanSkipped,
			ISIN:    isin,
			Message: "no fund_overview row; nav and performance not fetched",
		})
	}
}
