// Package jobs hosts the Asynq worker, the background task definitions and
// their handlers.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStockAlert scans for items at or below their minimum stock.
	TaskStockAlert = "inventory:stock_alert"
	// TaskBalanceWarmup recomputes and caches the balance projection.
	TaskBalanceWarmup = "inventory:balance_warmup"
)

// StockAlertPayload carries scheduling metadata for the low-stock scan.
type StockAlertPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewStockAlertTask constructs an Asynq task for the low-stock scan.
func NewStockAlertTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(StockAlertPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockAlert, body, asynq.Queue(QueueDefault)), nil
}

// BalanceWarmupPayload carries scheduling metadata for the cache warmup.
type BalanceWarmupPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewBalanceWarmupTask constructs an Asynq task for the balance warmup.
func NewBalanceWarmupTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(BalanceWarmupPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBalanceWarmup, body, asynq.Queue(QueueDefault)), nil
}
