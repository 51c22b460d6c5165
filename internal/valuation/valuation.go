// Package valuation implements the single costing rule shared by warehouse
// summaries, transfer checks and physical-count cost columns: weighted
// average cost when one is maintained, list cost otherwise. FIFO/LIFO
// costing is deliberately not supported.
package valuation

import (
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/catalog"
)

// UnitCost returns the item's average cost, falling back to its list cost
// price, falling back to zero.
func UnitCost(item catalog.Item) decimal.Decimal {
	if item.AverageCost != nil {
		return *item.AverageCost
	}
	return item.CostPrice
}

// PositionValue returns quantity priced at the unit cost rule.
func PositionValue(item catalog.Item, quantity int64) decimal.Decimal {
	return UnitCost(item).Mul(decimal.NewFromInt(quantity))
}

// PositionSaleValue returns quantity priced at the selling price.
func PositionSaleValue(item catalog.Item, quantity int64) decimal.Decimal {
	return item.SellingPrice.Mul(decimal.NewFromInt(quantity))
}
