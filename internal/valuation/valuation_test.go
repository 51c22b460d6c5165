package valuation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/catalog"
)

func TestUnitCostFallbackOrder(t *testing.T) {
	avg := decimal.RequireFromString("12.50")
	item := catalog.Item{
		CostPrice:    decimal.NewFromInt(10),
		SellingPrice: decimal.NewFromInt(20),
		AverageCost:  &avg,
	}
	require.True(t, UnitCost(item).Equal(avg), "average cost wins when present")

	item.AverageCost = nil
	require.True(t, UnitCost(item).Equal(decimal.NewFromInt(10)), "falls back to cost price")

	require.True(t, UnitCost(catalog.Item{}).IsZero(), "falls back to zero")
}

func TestPositionValues(t *testing.T) {
	avg := decimal.RequireFromString("2.5")
	item := catalog.Item{
		CostPrice:    decimal.NewFromInt(3),
		SellingPrice: decimal.NewFromInt(4),
		AverageCost:  &avg,
	}
	require.True(t, PositionValue(item, 8).Equal(decimal.NewFromInt(20)))
	require.True(t, PositionSaleValue(item, 8).Equal(decimal.NewFromInt(32)))
}
