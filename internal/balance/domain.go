package balance

import (
	"github.com/shopspring/decimal"
)

// Row is a flat report record for one stock position, shaped for tabular
// display and spreadsheet export.
type Row struct {
	WarehouseID   int64           `json:"warehouse_id"`
	WarehouseName string          `json:"warehouse_name"`
	ItemID        int64           `json:"item_id"`
	SKU           string          `json:"sku"`
	ItemName      string          `json:"item_name"`
	Category      string          `json:"category"`
	Quantity      int64           `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	StockValue    decimal.Decimal `json:"stock_value"`
	SaleValue     decimal.Decimal `json:"sale_value"`
}

// Filters narrows the balance report.
type Filters struct {
	WarehouseID *int64
	Search      string
	ExcludeZero bool
}
