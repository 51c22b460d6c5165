package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
)

// StockAlertJob scans the item catalog for positions at or below their
// minimum stock and reports them.
type StockAlertJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewStockAlertJob initialises the low-stock scan handler.
func NewStockAlertJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *StockAlertJob {
	return &StockAlertJob{Pool: pool, Logger: logger, Metrics: metrics}
}

type lowStockRow struct {
	ItemID       int64
	SKU          string
	Name         string
	WarehouseID  int64
	CurrentStock int64
	MinimumStock int64
}

// Handle executes the low-stock scan.
func (j *StockAlertJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("stock alert: handler not configured")
	}
	var payload StockAlertPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := time.Now()
	tracker := j.metrics().Track(TaskStockAlert)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	logger.Info("starting low-stock scan")

	rows, err := j.scan(ctx)
	if err != nil {
		resultErr = err
		logger.Error("low-stock scan failed", slog.Any("error", err))
		return resultErr
	}

	byWarehouse := make(map[int64]int)
	for _, row := range rows {
		logger.Warn("item at or below minimum stock",
			slog.Int64("item_id", row.ItemID),
			slog.String("sku", row.SKU),
			slog.Int64("warehouse_id", row.WarehouseID),
			slog.Int64("current", row.CurrentStock),
			slog.Int64("minimum", row.MinimumStock),
		)
		byWarehouse[row.WarehouseID]++
	}
	for warehouseID, count := range byWarehouse {
		j.metrics().AddStockAlerts(warehouseID, count)
	}

	logger.Info("completed low-stock scan",
		slog.Int("alerts", len(rows)),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *StockAlertJob) scan(ctx context.Context) ([]lowStockRow, error) {
	if j.Pool == nil {
		return nil, errors.New("stock alert: pool not configured")
	}
	rows, err := j.Pool.Query(ctx,
		`SELECT id, sku, name, COALESCE(warehouse_id, 0), current_stock, minimum_stock
		 FROM items
		 WHERE active AND tracked AND current_stock <= minimum_stock
		 ORDER BY warehouse_id, sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []lowStockRow
	for rows.Next() {
		var row lowStockRow
		if err := rows.Scan(&row.ItemID, &row.SKU, &row.Name, &row.WarehouseID, &row.CurrentStock, &row.MinimumStock); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (j *StockAlertJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *StockAlertJob) metrics() *jobmetrics.Metrics {
	return j.Metrics
}
