package reconcile

import (
	"context"
	"encoding/json"
	"time"

	"ledgerkeeper/internal/logger"
	"ledgerkeeper/internal/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sweepQueueKey  = "reconcile:sweeps"
	failedQueueKey = "reconcile:sweeps:failed"
	maxTries       = 3
)

// SweepJob is an async sweep request. Empty UserIDs means sweep every
// user with ledger entries.
type SweepJob struct {
	ID          string    `json:"id"`
	UserIDs     []string  `json:"user_ids,omitempty"`
	BatchSize   int       `json:"batch_size"`
	Concurrency int       `json:"concurrency"`
	AsOf        int64     `json:"as_of"`
	Apply       bool      `json:"apply"`
	RequestedBy string    `json:"requested_by"`
	Tries       int       `json:"tries"`
	Created     time.Time `json:"created"`
}

type failedJob struct {
	Job      SweepJob  `json:"job"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// Queue runs async reconciliation sweeps off a redis list. Jobs are
// retried up to maxTries, then parked in a failed-jobs list for manual
// inspection.
type Queue struct {
	redis   *redis.Client
	service Service
}

func NewQueue(client *redis.Client, service Service) *Queue {
	return &Queue{
		redis:   client,
		service: service,
	}
}

func (q *Queue) Enqueue(ctx context.Context, job SweepJob) (string, error) {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.Created.IsZero() {
		job.Created = time.Now()
	}

	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("Failed to marshal sweep job: %v", err)
		return "", err
	}

	if err := q.redis.LPush(ctx, sweepQueueKey, data).Err(); err != nil {
		logger.Errorf("Failed to enqueue sweep job %s: %v", job.ID, err)
		return "", err
	}

	q.updateQueueLength(ctx)
	logger.Infof("Sweep job queued: %s (requested by %s)", job.ID, job.RequestedBy)
	return job.ID, nil
}

func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.redis.LLen(ctx, sweepQueueKey).Result()
}

func (q *Queue) Start(ctx context.Context) {
	logger.Info("Sweep queue worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Sweep queue worker stopped")
			return
		default:
			q.processNext(ctx)
		}
	}
}

func (q *Queue) processNext(ctx context.Context) {
	result, err := q.redis.BRPop(ctx, 2*time.Second, sweepQueueKey).Result()
	if err != nil {
		return
	}
	q.updateQueueLength(ctx)

	var job SweepJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad sweep job data: %v", err)
		return
	}

	job.Tries++
	logger.Infof("Running sweep job %s (attempt %d)", job.ID, job.Tries)
	if err := q.run(ctx, job); err != nil {
		logger.Errorf("Sweep job %s failed: %v", job.ID, err)

		if job.Tries < maxTries {
			time.Sleep(5 * time.Second)
			data, _ := json.Marshal(job)
			q.redis.LPush(context.Background(), sweepQueueKey, data)
			logger.Infof("Retrying sweep job %s (attempt %d)", job.ID, job.Tries+1)
		} else {
			logger.Errorf("Sweep job %s failed after %d attempts", job.ID, maxTries)
			q.saveFailed(job, err)
		}
		return
	}

	logger.Infof("Sweep job %s completed", job.ID)
}

func (q *Queue) run(ctx context.Context, job SweepJob) error {
	asOf := job.AsOf
	if asOf == 0 {
		asOf = time.Now().UnixMilli()
	}

	opts := SweepOptions{
		BatchSize:   job.BatchSize,
		Concurrency: job.Concurrency,
		AsOf:        asOf,
		Apply:       job.Apply,
		UpdatedBy:   job.RequestedBy,
		Trigger:     "queue",
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}

	var (
		report *SweepReport
		err    error
	)
	if len(job.UserIDs) == 0 {
		report, err = q.service.SweepAll(ctx, opts)
	} else {
		report, err = q.service.Sweep(ctx, job.UserIDs, opts)
	}
	if err != nil {
		return err
	}

	logger.Info("sweep job report",
		"job_id", job.ID,
		"run_id", report.RunID,
		"processed", report.Stats.ProcessedCount,
		"updated", report.Stats.UpdatedCount,
		"inconsistencies", report.Stats.InconsistencyCount,
		"errors", report.Stats.ErrorCount,
	)
	return nil
}

func (q *Queue) saveFailed(job SweepJob, jobErr error) {
	data, err := json.Marshal(failedJob{
		Job:      job,
		Error:    jobErr.Error(),
		FailedAt: time.Now(),
	})
	if err != nil {
		logger.Errorf("Failed to marshal failed sweep job %s: %v", job.ID, err)
		return
	}

	if err := q.redis.LPush(context.Background(), failedQueueKey, data).Err(); err != nil {
		logger.Errorf("Failed to park sweep job %s: %v", job.ID, err)
	}
}

func (q *Queue) updateQueueLength(ctx context.Context) {
	if length, err := q.redis.LLen(ctx, sweepQueueKey).Result(); err == nil {
		metrics.SweepQueueLength.Set(float64(length))
	}
}

func (q *Queue) Close() error {
	return q.redis.Close()
}
