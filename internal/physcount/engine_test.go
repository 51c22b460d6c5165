package physcount

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/balance"
	"github.com/meridian-erp/meridian-erp/internal/catalog"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

func ptrInt64(v int64) *int64 { return &v }

func testItems() []catalog.Item {
	return []catalog.Item{
		{ID: 1, SKU: "SKU-A", Name: "Bolt", Category: "fasteners", WarehouseID: ptrInt64(1), CurrentStock: 100, CostPrice: decimal.NewFromInt(10)},
		{ID: 2, SKU: "SKU-B", Name: "Nut", Category: "fasteners", WarehouseID: ptrInt64(2), CurrentStock: 40, CostPrice: decimal.NewFromInt(2)},
		{ID: 3, SKU: "SKU-C", Name: "Paint", Category: "finishing", WarehouseID: ptrInt64(1), CurrentStock: 5, CostPrice: decimal.NewFromInt(30)},
	}
}

func TestReconciliationArithmetic(t *testing.T) {
	rows := BuildCandidateRows(testItems()[:1], nil, nil, balance.Filters{})
	require.Len(t, rows, 1)

	counted := ApplyCounts(rows, map[balance.Key]int64{
		{WarehouseID: 1, ItemID: 1}: 97,
	})

	row := counted[0]
	require.Equal(t, int64(100), row.TheoreticalQty)
	require.Equal(t, int64(97), row.CountedQty)
	require.Equal(t, int64(-3), row.DifferenceQty)
	require.True(t, row.TheoreticalCost.Equal(decimal.NewFromInt(1000)))
	require.True(t, row.CountedCost.Equal(decimal.NewFromInt(970)))
	require.True(t, row.CostDifference.Equal(decimal.NewFromInt(-30)))
}

func TestApplyCountsDefaultsToZero(t *testing.T) {
	rows := BuildCandidateRows(testItems(), nil, nil, balance.Filters{})

	counted := ApplyCounts(rows, nil)
	for _, row := range counted {
		require.Equal(t, int64(0), row.CountedQty)
		require.Equal(t, -row.TheoreticalQty, row.DifferenceQty)
	}
}

func TestBuildCandidateRowsWarehouseFilter(t *testing.T) {
	rows := BuildCandidateRows(testItems(), nil, nil, balance.Filters{WarehouseID: ptrInt64(1)})
	require.Len(t, rows, 2)
	for _, row := range rows {
		require.Equal(t, int64(1), row.WarehouseID)
	}
}

func TestBuildCandidateRowsSearch(t *testing.T) {
	rows := BuildCandidateRows(testItems(), nil, nil, balance.Filters{Search: "paint"})
	require.Len(t, rows, 1)
	require.Equal(t, "SKU-C", rows[0].SKU)

	rows = BuildCandidateRows(testItems(), nil, nil, balance.Filters{Search: "FASTEN"})
	require.Len(t, rows, 2)
}

func TestBuildCandidateRowsExcludeZero(t *testing.T) {
	items := testItems()
	movements := []ledger.Movement{{
		ItemID:          3,
		Kind:            ledger.KindTransfer,
		Quantity:        5,
		MovementDate:    time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		FromWarehouseID: ptrInt64(1),
		ToWarehouseID:   ptrInt64(2),
	}}

	rows := BuildCandidateRows(items, movements, nil, balance.Filters{WarehouseID: ptrInt64(1)})
	require.Len(t, rows, 2)

	rows = BuildCandidateRows(items, movements, nil, balance.Filters{WarehouseID: ptrInt64(1), ExcludeZero: true})
	require.Len(t, rows, 1)
	require.Equal(t, "SKU-A", rows[0].SKU)
}

func TestBuildCandidateRowsCutoff(t *testing.T) {
	items := testItems()
	movements := []ledger.Movement{{
		ItemID:          1,
		Kind:            ledger.KindTransfer,
		Quantity:        10,
		MovementDate:    time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		FromWarehouseID: ptrInt64(1),
		ToWarehouseID:   ptrInt64(2),
	}}

	cutoff := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	rows := BuildCandidateRows(items, movements, &cutoff, balance.Filters{WarehouseID: ptrInt64(1)})
	for _, row := range rows {
		if row.ItemID == 1 {
			require.Equal(t, int64(100), row.TheoreticalQty)
		}
	}
}
