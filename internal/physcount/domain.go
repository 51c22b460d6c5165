// Package physcount implements physical count reconciliation sessions:
// theoretical balances are snapshotted, counted quantities keyed in, and
// the variance saved as an immutable audit record.
package physcount

import (
	"time"

	"github.com/shopspring/decimal"
)

// Session is the header of one saved count.
type Session struct {
	ID          int64
	Reference   string
	WarehouseID *int64 // nil = counted across all warehouses
	CountDate   time.Time
	Description string
	CreatedBy   int64
	CreatedAt   time.Time
	Lines       []Line
}

// Line is one frozen count row. Saved lines never change, even when later
// movements alter live balances.
type Line struct {
	ID              int64
	SessionID       int64
	ItemID          int64
	WarehouseID     int64
	SKU             string
	ItemName        string
	TheoreticalQty  int64
	CountedQty      int64
	DifferenceQty   int64
	UnitCost        decimal.Decimal
	TheoreticalCost decimal.Decimal
	CountedCost     decimal.Decimal
	CostDifference  decimal.Decimal
}

// SessionInput describes a count session to save.
type SessionInput struct {
	WarehouseID *int64
	CountDate   time.Time
	Description string
}

// Row is a candidate count row before saving: the projected position plus
// whatever the user counted.
type Row struct {
	ItemID          int64           `json:"item_id"`
	WarehouseID     int64           `json:"warehouse_id"`
	SKU             string          `json:"sku"`
	ItemName        string          `json:"item_name"`
	Category        string          `json:"category"`
	TheoreticalQty  int64           `json:"theoretical_qty"`
	CountedQty      int64           `json:"counted_qty"`
	DifferenceQty   int64           `json:"difference_qty"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	TheoreticalCost decimal.Decimal `json:"theoretical_cost"`
	CountedCost     decimal.Decimal `json:"counted_cost"`
	CostDifference  decimal.Decimal `json:"cost_difference"`
}
