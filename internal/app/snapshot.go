package app

import (
	"context"

	"github.com/meridian-erp/meridian-erp/internal/catalog"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

// SnapshotSource bridges the catalog and ledger services into the balance
// projection's input port.
type SnapshotSource struct {
	Catalog *catalog.Service
	Ledger  *ledger.Service
}

// ItemSnapshot returns every item.
func (s SnapshotSource) ItemSnapshot(ctx context.Context) ([]catalog.Item, error) {
	return s.Catalog.ItemSnapshot(ctx)
}

// WarehouseSnapshot returns every warehouse.
func (s SnapshotSource) WarehouseSnapshot(ctx context.Context) ([]catalog.Warehouse, error) {
	return s.Catalog.WarehouseSnapshot(ctx)
}

// MovementSnapshot returns the full movement log.
func (s SnapshotSource) MovementSnapshot(ctx context.Context) ([]ledger.Movement, error) {
	return s.Ledger.MovementSnapshot(ctx)
}
