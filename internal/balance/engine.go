// Package balance projects per-warehouse, per-item on-hand quantities from
// the item catalog and the movement ledger.
package balance

import (
	"time"

	"github.com/meridian-erp/meridian-erp/internal/catalog"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

// Key identifies one stock position.
type Key struct {
	WarehouseID int64
	ItemID      int64
}

// projectedKinds names the movement kinds folded into the cross-warehouse
// projection. Entry/exit/adjustment movements mutate Item.CurrentStock
// through the external posting step instead; whether adjustments should
// also fold into warehouse balances is an open question upstream, so they
// stay excluded here. Changing this policy is a one-line edit.
var projectedKinds = map[ledger.Kind]bool{
	ledger.KindTransfer: true,
}

// ComputeBalances folds base stock and transfer movements into a quantity
// map. It is a pure function of its inputs: no I/O, no side effects, and
// recomputing on the same snapshot yields an identical map. Movements after
// cutoff are ignored; a nil cutoff means all movements. Malformed rows
// (missing item or warehouse references) are skipped, not fatal.
func ComputeBalances(items []catalog.Item, movements []ledger.Movement, cutoff *time.Time) map[Key]int64 {
	balances := make(map[Key]int64)

	for _, item := range items {
		if item.WarehouseID == nil || item.CurrentStock == 0 {
			continue
		}
		balances[Key{WarehouseID: *item.WarehouseID, ItemID: item.ID}] += item.CurrentStock
	}

	for _, m := range movements {
		if !projectedKinds[m.Kind] {
			continue
		}
		if m.FromWarehouseID == nil || m.ToWarehouseID == nil || m.ItemID == 0 {
			continue
		}
		if cutoff != nil && m.MovementDate.After(*cutoff) {
			continue
		}
		balances[Key{WarehouseID: *m.FromWarehouseID, ItemID: m.ItemID}] -= m.Quantity
		balances[Key{WarehouseID: *m.ToWarehouseID, ItemID: m.ItemID}] += m.Quantity
	}

	return balances
}

// TotalForItem sums an item's projected quantity across all warehouses.
// Transfers move quantity between keys, so the total is invariant under
// any sequence of transfer movements.
func TotalForItem(balances map[Key]int64, itemID int64) int64 {
	var total int64
	for key, qty := range balances {
		if key.ItemID == itemID {
			total += qty
		}
	}
	return total
}
