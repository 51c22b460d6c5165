package physcount

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/balance"
	"github.com/meridian-erp/meridian-erp/internal/catalog"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/valuation"
)

// BuildCandidateRows projects balances as of cutoff and shapes them into
// count rows, optionally restricted to one warehouse, matched against a
// free-text search over sku/name/category, and with zero theoretical rows
// excluded. Counted quantities start at zero.
func BuildCandidateRows(items []catalog.Item, movements []ledger.Movement, cutoff *time.Time, filters balance.Filters) []Row {
	balances := balance.ComputeBalances(items, movements, cutoff)

	itemsByID := make(map[int64]catalog.Item, len(items))
	for _, item := range items {
		itemsByID[item.ID] = item
	}

	rows := make([]Row, 0, len(balances))
	for key, qty := range balances {
		item, ok := itemsByID[key.ItemID]
		if !ok {
			continue
		}
		if filters.WarehouseID != nil && key.WarehouseID != *filters.WarehouseID {
			continue
		}
		if filters.ExcludeZero && qty == 0 {
			continue
		}
		if !matchesSearch(item, filters.Search) {
			continue
		}
		unitCost := valuation.UnitCost(item)
		rows = append(rows, Row{
			ItemID:          item.ID,
			WarehouseID:     key.WarehouseID,
			SKU:             item.SKU,
			ItemName:        item.Name,
			Category:        item.Category,
			TheoreticalQty:  qty,
			UnitCost:        unitCost,
			TheoreticalCost: unitCost.Mul(decimal.NewFromInt(qty)),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].WarehouseID != rows[j].WarehouseID {
			return rows[i].WarehouseID < rows[j].WarehouseID
		}
		return rows[i].SKU < rows[j].SKU
	})
	return ApplyCounts(rows, nil)
}

// ApplyCounts fills counted quantities into rows and recomputes the
// variance columns. Rows absent from counts default to a counted quantity
// of zero. The input slice is not mutated.
func ApplyCounts(rows []Row, counts map[balance.Key]int64) []Row {
	out := make([]Row, len(rows))
	for i, row := range rows {
		row.CountedQty = counts[balance.Key{WarehouseID: row.WarehouseID, ItemID: row.ItemID}]
		row.DifferenceQty = row.CountedQty - row.TheoreticalQty
		row.TheoreticalCost = row.UnitCost.Mul(decimal.NewFromInt(row.TheoreticalQty))
		row.CountedCost = row.UnitCost.Mul(decimal.NewFromInt(row.CountedQty))
		row.CostDifference = row.UnitCost.Mul(decimal.NewFromInt(row.DifferenceQty))
		out[i] = row
	}
	return out
}

func matchesSearch(item catalog.Item, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	return strings.Contains(strings.ToLower(item.SKU), needle) ||
		strings.Contains(strings.ToLower(item.Name), needle) ||
		strings.Contains(strings.ToLower(item.Category), needle)
}
