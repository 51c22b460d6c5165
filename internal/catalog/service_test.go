package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryRepo struct {
	items      map[int64]Item
	warehouses map[int64]Warehouse
	nextItem   int64
	nextWh     int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: map[int64]Item{}, warehouses: map[int64]Warehouse{}}
}

func (r *memoryRepo) ListItems(_ context.Context, _ ListFilters) ([]Item, int, error) {
	out := make([]Item, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, it)
	}
	return out, len(out), nil
}

func (r *memoryRepo) GetItem(_ context.Context, id int64) (Item, error) {
	it, ok := r.items[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return it, nil
}

func (r *memoryRepo) ItemsByID(_ context.Context, ids []int64) (map[int64]Item, error) {
	out := map[int64]Item{}
	for _, id := range ids {
		if it, ok := r.items[id]; ok {
			out[id] = it
		}
	}
	return out, nil
}

func (r *memoryRepo) AllItems(_ context.Context) ([]Item, error) {
	out := make([]Item, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, it)
	}
	return out, nil
}

func (r *memoryRepo) CreateItem(_ context.Context, item Item) (Item, error) {
	for _, existing := range r.items {
		if existing.SKU == item.SKU {
			return Item{}, ErrSKUTaken
		}
	}
	r.nextItem++
	item.ID = r.nextItem
	r.items[item.ID] = item
	return item, nil
}

func (r *memoryRepo) UpdateItem(_ context.Context, id int64, item Item) error {
	if _, ok := r.items[id]; !ok {
		return ErrItemNotFound
	}
	item.ID = id
	r.items[id] = item
	return nil
}

func (r *memoryRepo) SetItemActive(_ context.Context, id int64, active bool) error {
	it, ok := r.items[id]
	if !ok {
		return ErrItemNotFound
	}
	it.Active = active
	r.items[id] = it
	return nil
}

func (r *memoryRepo) ListWarehouses(_ context.Context) ([]Warehouse, error) {
	out := make([]Warehouse, 0, len(r.warehouses))
	for _, w := range r.warehouses {
		out = append(out, w)
	}
	return out, nil
}

func (r *memoryRepo) GetWarehouse(_ context.Context, id int64) (Warehouse, error) {
	w, ok := r.warehouses[id]
	if !ok {
		return Warehouse{}, ErrWarehouseNotFound
	}
	return w, nil
}

func (r *memoryRepo) CreateWarehouse(_ context.Context, warehouse Warehouse) (Warehouse, error) {
	r.nextWh++
	warehouse.ID = r.nextWh
	r.warehouses[warehouse.ID] = warehouse
	return warehouse, nil
}

func (r *memoryRepo) UpdateWarehouse(_ context.Context, id int64, warehouse Warehouse) error {
	if _, ok := r.warehouses[id]; !ok {
		return ErrWarehouseNotFound
	}
	warehouse.ID = id
	r.warehouses[id] = warehouse
	return nil
}

func (r *memoryRepo) DeleteWarehouse(_ context.Context, id int64) error {
	if _, ok := r.warehouses[id]; !ok {
		return ErrWarehouseNotFound
	}
	for _, it := range r.items {
		if it.WarehouseID != nil && *it.WarehouseID == id {
			return ErrWarehouseInUse
		}
	}
	delete(r.warehouses, id)
	return nil
}

func validItem(sku string) Item {
	return Item{
		SKU:          sku,
		Name:         "Widget " + sku,
		Category:     "widgets",
		CurrentStock: 10,
		CostPrice:    decimal.NewFromInt(5),
		SellingPrice: decimal.NewFromInt(9),
		Tracked:      true,
		Active:       true,
	}
}

func TestCreateItemValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.CreateItem(ctx, Item{Name: "missing sku"}, 1)
	require.True(t, shared.IsValidation(err))

	max := int64(5)
	bad := validItem("SKU-1")
	bad.MaximumStock = &max // below current stock of 10
	_, err = svc.CreateItem(ctx, bad, 1)
	require.True(t, shared.IsValidation(err))

	created, err := svc.CreateItem(ctx, validItem("SKU-1"), 1)
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	_, err = svc.CreateItem(ctx, validItem("SKU-1"), 1)
	require.True(t, shared.IsValidation(err), "duplicate sku must surface as validation error")
}

func TestCreateItemUnknownHomeWarehouse(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	missing := int64(99)
	item := validItem("SKU-2")
	item.WarehouseID = &missing
	_, err := svc.CreateItem(context.Background(), item, 1)
	require.True(t, shared.IsValidation(err))
}

func TestDeleteWarehouseGuard(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	wh, err := svc.CreateWarehouse(ctx, Warehouse{Code: "W1", Name: "Main"}, 1)
	require.NoError(t, err)

	item := validItem("SKU-3")
	item.WarehouseID = &wh.ID
	_, err = svc.CreateItem(ctx, item, 1)
	require.NoError(t, err)

	err = svc.DeleteWarehouse(ctx, wh.ID, 1)
	require.ErrorIs(t, err, shared.ErrConflict)
}
