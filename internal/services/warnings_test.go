package services

import (
	"context"
	"sync"
	"testing"

	"github.com/epeers/fundsync/internal/models"
)

func TestWarningCollector_BasicUsage(t *testing.T) {
	ctx, wc := NewWarningContext(context.Background(), "run-1")

	AddWarning(ctx, models.Warning{Code: models.WarnFetchFailed, Dataset: DatasetNav, ISIN: "LU0000000001", Message: "timeout"})
	AddWarning(ctx, models.Warning{Code: models.WarnNothingToInsert, Dataset: DatasetPerformance, Message: "nothing to insert"})

	warnings := wc.GetWarnings()
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %d", len(warnings))
	}
	if warnings[0].Code != models.WarnFetchFailed {
		t.Errorf("expected code %s, got %s", models.WarnFetchFailed, warnings[0].Code)
	}
	if warnings[1].Dataset != DatasetPerformance {
		t.Errorf("expected dataset %s, got %s", DatasetPerformance, warnings[1].Dataset)
	}
}

func TestWarningCollector_NoCollectorNoPanic(t *testing.T) {
	AddWarning(context.Background(), models.Warning{Code: models.WarnFetchFailed, Message: "logged only"})
}

func TestWarningCollector_EmptyByDefault(t *testing.T) {
	_, wc := NewWarningContext(context.Background(), "run-1")
	warnings := wc.GetWarnings()
	if warnings == nil || len(warnings) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", warnings)
	}
	if wc.Len() != 0 {
		t.Errorf("expected Len 0, got %d", wc.Len())
	}
}

func TestWarningCollector_CopyIsDetached(t *testing.T) {
	ctx, wc := NewWarningContext(context.Background(), "run-1")
	AddWarning(ctx, models.Warning{Code: models.WarnFetchFailed, Message: "first"})

	got := wc.GetWarnings()
	got[0].Message = "changed"
	AddWarning(ctx, models.Warning{Code: models.WarnFetchFailed, Message: "second"})

	if wc.GetWarnings()[0].Message != "first" {
		t.Errorf("collector was modified through a returned slice")
	}
	if len(got) != 1 {
		t.Errorf("expected earlier copy to keep 1 warning, got %d", len(got))
	}
}

func TestWarningCollector_Summary(t *testing.T) {
	ctx, wc := NewWarningContext(context.Background(), "run-1")
	AddWarning(ctx, models.Warning{Code: models.WarnFetchFailed, Message: "a"})
	AddWarning(ctx, models.Warning{Code: models.WarnFetchFailed, Message: "b"})
	AddWarning(ctx, models.Warning{Code: models.WarnOrphanSkipped, Message: "c"})

	summary := wc.Summary()
	if summary[models.WarnFetchFailed] != 2 {
		t.Errorf("expected 2 %s, got %d", models.WarnFetchFailed, summary[models.WarnFetchFailed])
	}
	if summary[models.WarnOrphanSkipped] != 1 {
		t.Errorf("expected 1 %s, got %d", models.WarnOrphanSkipped, summary[models.WarnOrphanSkipped])
	}
	if wc.Len() != 3 {
		t.Errorf("expected Len 3, got %d", wc.Len())
	}
}

func TestWarningCollector_ConcurrentSafe(t *testing.T) {
	ctx, wc := NewWarningContext(context.Background(), "run-1")

	var wg sync.WaitGroup
	n := 100
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			AddWarning(ctx, models.Warning{Code: models.WarnFetchFailed, Message: "concurrent warning"})
		}()
	}
	wg.Wait()

	if wc.Len() != n {
		t.Errorf("expected %d warnings, got %d", n, wc.Len())
	}
}
