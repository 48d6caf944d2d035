package allfunds

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of fetching one ISIN within a batch.
type Result[T any] struct {
	ISIN  string
	Value T
	Err   error
}

// FetchOverviewBatch fetches overviews for every ISIN. One ISIN failing does not
// stop the others; results keep the input order.
func (c *Client) FetchOverviewBatch(ctx context.Context, isins []string) []Result[Payload] {
	return fetchBatch(ctx, c.concurrency, isins, c.FetchOverview)
}

// FetchNavBatch fetches close prices for every ISIN over the same date range.
func (c *Client) FetchNavBatch(ctx context.Context, isins []string, since time.Time, until *time.Time) []Result[Payload] {
	// Pin "today" once so every ISIN in the batch shares the same range.
	if until == nil {
		today := c.now()
		until = &today
	}
	return fetchBatch(ctx, c.concurrency, isins, func(ctx context.Context, isin string) (Payload, error) {
		return c.FetchNav(ctx, isin, since, until)
	})
}

// FetchPerformanceBatch fetches performance objects for every ISIN.
func (c *Client) FetchPerformanceBatch(ctx context.Context, isins []string) []Result[Payload] {
	return fetchBatch(ctx, c.concurrency, isins, c.FetchPerformance)
}

func fetchBatch[T any](ctx context.Context, limit int, isins []string, fetch func(context.Context, string) (T, error)) []Result[T] {
	results := make([]Result[T], len(isins))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, isin := range isins {
		i, isin := i, isin
		g.Go(func() error {
			v, err := fetch(ctx, isin)
			if err != nil {
				log.WithError(err).WithField("isin", isin).Warn("Fetch failed")
			}
			results[i] = Result[T]{ISIN: isin, Value: v, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// FirstError returns the first failure in input order, or nil. Callers that
// want fail-fast batch semantics use it to reject the whole batch.
func FirstError[T any](results []Result[T]) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}
