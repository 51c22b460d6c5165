package balance

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meridian-erp/meridian-erp/internal/catalog"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/valuation"
)

// SnapshotSource supplies the inputs of a projection run. Implementations
// fetch from the record store; the projection itself never does I/O.
type SnapshotSource interface {
	ItemSnapshot(ctx context.Context) ([]catalog.Item, error)
	WarehouseSnapshot(ctx context.Context) ([]catalog.Warehouse, error)
	MovementSnapshot(ctx context.Context) ([]ledger.Movement, error)
}

// Snapshot bundles a consistent read of items, warehouses and movements.
type Snapshot struct {
	Items      []catalog.Item
	Warehouses []catalog.Warehouse
	Movements  []ledger.Movement
}

// Service recomputes the projection from a fresh snapshot on every read.
// There is no incremental update; the cache only avoids refetching between
// postings. Balances read this way are advisory under concurrent writers:
// two posters can each act on the same snapshot (see documents.Service).
type Service struct {
	src   SnapshotSource
	cache *Cache
}

// NewService builds the balance service.
func NewService(src SnapshotSource, cache *Cache) *Service {
	return &Service{src: src, cache: cache}
}

// FetchSnapshot loads items, warehouses and movements concurrently.
func (s *Service) FetchSnapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := s.src.ItemSnapshot(ctx)
		if err != nil {
			return err
		}
		snap.Items = items
		return nil
	})
	g.Go(func() error {
		warehouses, err := s.src.WarehouseSnapshot(ctx)
		if err != nil {
			return err
		}
		snap.Warehouses = warehouses
		return nil
	})
	g.Go(func() error {
		movements, err := s.src.MovementSnapshot(ctx)
		if err != nil {
			return err
		}
		snap.Movements = movements
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Balances computes the projection as of cutoff (nil = now) from a fresh
// snapshot. Never cached: document posting must see the latest data.
func (s *Service) Balances(ctx context.Context, cutoff *time.Time) (map[Key]int64, error) {
	snap, err := s.FetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return ComputeBalances(snap.Items, snap.Movements, cutoff), nil
}

// Report returns valued report rows, cached per (cutoff, filters) until the
// next Invalidate.
func (s *Service) Report(ctx context.Context, cutoff *time.Time, filters Filters) ([]Row, error) {
	key, err := s.cache.BuildKey(ctx, "balance", "report", cutoffToken(cutoff), filtersToken(filters))
	if err != nil {
		return nil, err
	}
	var rows []Row
	err = s.cache.FetchJSON(ctx, key, &rows, func(ctx context.Context) (any, error) {
		snap, err := s.FetchSnapshot(ctx)
		if err != nil {
			return nil, err
		}
		return BuildReport(snap, cutoff, filters), nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Invalidate drops all cached projections. Called after any posting that
// changes stock distribution.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// BuildReport shapes projection output into valued report rows. Pure.
func BuildReport(snap Snapshot, cutoff *time.Time, filters Filters) []Row {
	balances := ComputeBalances(snap.Items, snap.Movements, cutoff)

	itemsByID := make(map[int64]catalog.Item, len(snap.Items))
	for _, item := range snap.Items {
		itemsByID[item.ID] = item
	}
	warehouseNames := make(map[int64]string, len(snap.Warehouses))
	for _, w := range snap.Warehouses {
		warehouseNames[w.ID] = w.Name
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
		rows = append(rows, Row{
			WarehouseID:   key.WarehouseID,
			WarehouseName: warehouseNames[key.WarehouseID],
			ItemID:        item.ID,
			SKU:           item.SKU,
			ItemName:      item.Name,
			Category:      item.Category,
			Quantity:      qty,
			UnitCost:      valuation.UnitCost(item),
			StockValue:    valuation.PositionValue(item, qty),
			SaleValue:     valuation.PositionSaleValue(item, qty),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].WarehouseID != rows[j].WarehouseID {
			return rows[i].WarehouseID < rows[j].WarehouseID
		}
		return rows[i].SKU < rows[j].SKU
	})
	return rows
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

func cutoffToken(cutoff *time.Time) string {
	if cutoff == nil {
		return "latest"
	}
	return cutoff.UTC().Format("2006-01-02T15:04:05")
}

func filtersToken(filters Filters) string {
	parts := []string{"all", "", "0"}
	if filters.WarehouseID != nil {
		parts[0] = strconv.FormatInt(*filters.WarehouseID, 10)
	}
	parts[1] = strings.ToLower(filters.Search)
	if filters.ExcludeZero {
		parts[2] = "1"
	}
	return strings.Join(parts, ":")
}
