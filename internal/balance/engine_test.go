package balance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/catalog"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

func ptrInt64(v int64) *int64 { return &v }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func transfer(itemID, qty, from, to int64, date string) ledger.Movement {
	return ledger.Movement{
		ItemID:          itemID,
		Kind:            ledger.KindTransfer,
		Quantity:        qty,
		MovementDate:    day(date),
		FromWarehouseID: ptrInt64(from),
		ToWarehouseID:   ptrInt64(to),
	}
}

func TestComputeBalancesSeedsHomeStock(t *testing.T) {
	items := []catalog.Item{
		{ID: 1, WarehouseID: ptrInt64(10), CurrentStock: 50},
		{ID: 2, WarehouseID: ptrInt64(20), CurrentStock: 7},
		{ID: 3, WarehouseID: nil, CurrentStock: 99},
		{ID: 4, WarehouseID: ptrInt64(10), CurrentStock: 0},
	}

	got := ComputeBalances(items, nil, nil)

	require.Equal(t, map[Key]int64{
		{WarehouseID: 10, ItemID: 1}: 50,
		{WarehouseID: 20, ItemID: 2}: 7,
	}, got)
}

func TestComputeBalancesFoldsTransfers(t *testing.T) {
	items := []catalog.Item{{ID: 1, WarehouseID: ptrInt64(1), CurrentStock: 50}}
	movements := []ledger.Movement{transfer(1, 20, 1, 2, "2026-01-10")}

	got := ComputeBalances(items, movements, nil)

	require.Equal(t, map[Key]int64{
		{WarehouseID: 1, ItemID: 1}: 30,
		{WarehouseID: 2, ItemID: 1}: 20,
	}, got)
}

func TestComputeBalancesConservesTotals(t *testing.T) {
	items := []catalog.Item{{ID: 1, WarehouseID: ptrInt64(1), CurrentStock: 50}}
	movements := []ledger.Movement{
		transfer(1, 20, 1, 2, "2026-01-10"),
		transfer(1, 5, 2, 3, "2026-01-11"),
		transfer(1, 15, 1, 3, "2026-01-12"),
	}

	got := ComputeBalances(items, movements, nil)

	require.Equal(t, int64(50), TotalForItem(got, 1))
}

func TestComputeBalancesIdempotent(t *testing.T) {
	items := []catalog.Item{
		{ID: 1, WarehouseID: ptrInt64(1), CurrentStock: 50},
		{ID: 2, WarehouseID: ptrInt64(2), CurrentStock: 12},
	}
	movements := []ledger.Movement{
		transfer(1, 20, 1, 2, "2026-01-10"),
		transfer(2, 4, 2, 1, "2026-01-11"),
	}

	first := ComputeBalances(items, movements, nil)
	second := ComputeBalances(items, movements, nil)

	require.Equal(t, first, second)
}

func TestComputeBalancesCutoff(t *testing.T) {
	items := []catalog.Item{{ID: 1, WarehouseID: ptrInt64(1), CurrentStock: 50}}
	movements := []ledger.Movement{
		transfer(1, 20, 1, 2, "2026-01-10"),
		transfer(1, 10, 1, 2, "2026-02-01"),
	}

	cutoff := day("2026-01-15")
	got := ComputeBalances(items, movements, &cutoff)

	require.Equal(t, map[Key]int64{
		{WarehouseID: 1, ItemID: 1}: 30,
		{WarehouseID: 2, ItemID: 1}: 20,
	}, got)
}

func TestComputeBalancesSkipsNonTransferKinds(t *testing.T) {
	items := []catalog.Item{{ID: 1, WarehouseID: ptrInt64(1), CurrentStock: 50}}
	movements := []ledger.Movement{
		{ItemID: 1, Kind: ledger.KindEntry, Quantity: 10, MovementDate: day("2026-01-10")},
		{ItemID: 1, Kind: ledger.KindExit, Quantity: 5, MovementDate: day("2026-01-10")},
		{ItemID: 1, Kind: ledger.KindAdjustment, Quantity: 3, MovementDate: day("2026-01-10")},
	}

	got := ComputeBalances(items, movements, nil)

	require.Equal(t, map[Key]int64{{WarehouseID: 1, ItemID: 1}: 50}, got)
}

func TestComputeBalancesSkipsMalformedRows(t *testing.T) {
	items := []catalog.Item{{ID: 1, WarehouseID: ptrInt64(1), CurrentStock: 50}}
	movements := []ledger.Movement{
		{ItemID: 1, Kind: ledger.KindTransfer, Quantity: 10, MovementDate: day("2026-01-10"), FromWarehouseID: ptrInt64(1)},
		{ItemID: 0, Kind: ledger.KindTransfer, Quantity: 10, MovementDate: day("2026-01-10"), FromWarehouseID: ptrInt64(1), ToWarehouseID: ptrInt64(2)},
	}

	got := ComputeBalances(items, movements, nil)

	require.Equal(t, map[Key]int64{{WarehouseID: 1, ItemID: 1}: 50}, got)
}
