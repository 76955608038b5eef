package reconcile

import (
	"context"
	"sync"
	"time"

	"ledgerkeeper/internal/balance"
	"ledgerkeeper/internal/logger"
	"ledgerkeeper/internal/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBatchSize   = 100
	defaultConcurrency = 8
)

type SweepOptions struct {
	BatchSize   int    `json:"batch_size"`
	Concurrency int    `json:"concurrency"`
	AsOf        int64  `json:"as_of"`
	Apply       bool   `json:"apply"`
	UpdatedBy   string `json:"updated_by"`
	Trigger     string `json:"trigger"`
}

type SweepReport struct {
	RunID      string                         `json:"run_id"`
	StartedAt  int64                          `json:"started_at"`
	FinishedAt int64                          `json:"finished_at"`
	Stats      BulkStats                      `json:"stats"`
	Results    []balance.ReconciliationResult `json:"results"`
	Errors     []UserError                    `json:"errors"`
}

// Sweep reconciles many users batch by batch. Users within a batch run
// concurrently up to the configured limit; batches run sequentially so
// the backing store never sees unbounded fan-out. A failing user is
// captured into the error list and never aborts the sweep.
func (s *service) Sweep(ctx context.Context, userIDs []string, opts SweepOptions) (*SweepReport, error) {
	batches, err := CreateBatches(userIDs, opts.BatchSize)
	if err != nil {
		return nil, err
	}

	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Trigger == "" {
		opts.Trigger = "sync"
	}

	runID := uuid.New().String()
	startedAt := time.Now().UnixMilli()

	logger.Info("reconciliation sweep started",
		"run_id", runID,
		"users", len(userIDs),
		"batches", len(batches),
		"apply", opts.Apply,
	)

	var (
		mu       sync.Mutex
		results  []balance.ReconciliationResult
		userErrs []UserError
	)

	for _, batch := range batches {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Concurrency)

		for _, userID := range batch {
			userID := userID
			g.Go(func() error {
				res, err := s.ReconcileUser(gctx, userID, opts.AsOf, opts.Apply, opts.UpdatedBy)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					userErrs = append(userErrs, UserError{UserID: userID, Error: err.Error()})
					return nil
				}
				results = append(results, *res)
				return nil
			})
		}

		// Per-user errors are captured above; Wait only propagates a
		// cancelled context.
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	finishedAt := time.Now().UnixMilli()

	report := &SweepReport{
		RunID:      runID,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Stats:      CalculateBulkStats(results, userErrs, startedAt, finishedAt),
		Results:    SortByPriority(results),
		Errors:     userErrs,
	}

	metrics.RecordSweep(opts.Trigger, float64(finishedAt-startedAt)/1000)
	logger.Info("reconciliation sweep finished",
		"run_id", runID,
		"processed", report.Stats.ProcessedCount,
		"updated", report.Stats.UpdatedCount,
		"inconsistencies", report.Stats.InconsistencyCount,
		"errors", report.Stats.ErrorCount,
		"duration_ms", report.Stats.ProcessingTimeMs,
	)

	return report, nil
}

func (s *service) SweepAll(ctx context.Context, opts SweepOptions) (*SweepReport, error) {
	userIDs, err := s.ledgerRepo.ListUserIDs(ctx)
	if err != nil {
		return nil, err
	}
	return s.Sweep(ctx, userIDs, opts)
}
