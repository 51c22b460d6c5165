package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/balance"
	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
)

// BalanceWarmupJob recomputes the balance report off-peak so the first
// reader after a quiet period hits a warm cache.
type BalanceWarmupJob struct {
	Balances *balance.Service
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewBalanceWarmupJob initialises the warmup handler.
func NewBalanceWarmupJob(balances *balance.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *BalanceWarmupJob {
	return &BalanceWarmupJob{Balances: balances, Logger: logger, Metrics: metrics}
}

// Handle recomputes the unfiltered report, populating the cache.
func (j *BalanceWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Balances == nil {
		return errors.New("balance warmup: handler not configured")
	}
	var payload BalanceWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := time.Now()
	tracker := j.Metrics.Track(TaskBalanceWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	rows, err := j.Balances.Report(ctx, nil, balance.Filters{})
	if err != nil {
		resultErr = err
		j.logger().Error("balance warmup failed", slog.Any("error", err))
		return resultErr
	}

	j.logger().Info("completed balance warmup",
		slog.Int("rows", len(rows)),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *BalanceWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
