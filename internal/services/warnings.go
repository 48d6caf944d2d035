package services

import (
	"context"
	"sync"

	"github.com/epeers/fundsync/internal/models"
	log "github.com/sirupsen/logrus"
)

type warningContextKey struct{}

// WarningCollector accumulates the non-fatal problems of one ingestion run.
// Each warning is logged as it is added, tagged with the run id.
type WarningCollector struct {
	runID    string
	mu       sync.Mutex
	warnings []models.Warning
}

// NewWarningContext returns a context carrying a fresh collector for runID,
// plus the collector itself so the run can copy warnings into its report.
func NewWarningContext(ctx context.Context, runID string) (context.Context, *WarningCollector) {
	wc := &WarningCollector{runID: runID}
	return context.WithValue(ctx, warningContextKey{}, wc), wc
}

// AddWarning records w on the collector in ctx. Without a collector the
// warning is only logged.
func AddWarning(ctx context.Context, w models.Warning) {
	wc, _ := ctx.Value(warningContextKey{}).(*WarningCollector)

	entry := log.WithFields(log.Fields{"code": w.Code, "dataset": w.Dataset, "isin": w.ISIN})
	if wc == nil {
		entry.Warn(w.Message)
		return
	}
	entry.WithField("run_id", wc.runID).Warn(w.Message)

	wc.mu.Lock()
	defer wc.mu.Unlock()
	wc.warnings = append(wc.warnings, w)
}

// GetWarnings returns a copy of the collected warnings, never nil.
func (wc *WarningCollector) GetWarnings() []models.Warning {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	out := make([]models.Warning, len(wc.warnings))
	copy(out, wc.warnings)
	return out
}

// Len returns the number of warnings collected so far.
func (wc *WarningCollector) Len() int {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	return len(wc.warnings)
}

// Summary counts the collected warnings per code.
func (wc *WarningCollector) Summary() map[models.WarningCode]int {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	counts := make(map[models.WarningCode]int)
	for _, w := range wc.warnings {
		counts[w.Code]++
	}
	return counts
}
