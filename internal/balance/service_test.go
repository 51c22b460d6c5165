package balance

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/catalog"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

type fakeSource struct {
	items      []catalog.Item
	warehouses []catalog.Warehouse
	movements  []ledger.Movement
	calls      int
}

func (f *fakeSource) ItemSnapshot(ctx context.Context) ([]catalog.Item, error) {
	f.calls++
	return f.items, nil
}

func (f *fakeSource) WarehouseSnapshot(ctx context.Context) ([]catalog.Warehouse, error) {
	return f.warehouses, nil
}

func (f *fakeSource) MovementSnapshot(ctx context.Context) ([]ledger.Movement, error) {
	return f.movements, nil
}

func newTestSource() *fakeSource {
	cost := decimal.NewFromInt(10)
	return &fakeSource{
		items: []catalog.Item{
			{
				ID: 1, SKU: "SKU-1", Name: "Widget", Category: "parts",
				WarehouseID: ptrInt64(1), CurrentStock: 50,
				CostPrice: cost, SellingPrice: decimal.NewFromInt(15),
			},
		},
		warehouses: []catalog.Warehouse{
			{ID: 1, Code: "W1", Name: "Main"},
			{ID: 2, Code: "W2", Name: "Annex"},
		},
		movements: []ledger.Movement{transfer(1, 20, 1, 2, "2026-01-10")},
	}
}

func newTestService(t *testing.T) (*Service, *fakeSource, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	src := newTestSource()
	return NewService(src, NewCache(client, time.Minute)), src, mr
}

func TestReportRowsAreValued(t *testing.T) {
	svc, _, _ := newTestService(t)

	rows, err := svc.Report(context.Background(), nil, Filters{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.Equal(t, "Main", rows[0].WarehouseName)
	require.Equal(t, int64(30), rows[0].Quantity)
	require.True(t, rows[0].StockValue.Equal(decimal.NewFromInt(300)))
	require.True(t, rows[0].SaleValue.Equal(decimal.NewFromInt(450)))
	require.Equal(t, "Annex", rows[1].WarehouseName)
	require.Equal(t, int64(20), rows[1].Quantity)
}

func TestReportUsesCacheUntilInvalidated(t *testing.T) {
	svc, src, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Report(ctx, nil, Filters{})
	require.NoError(t, err)
	_, err = svc.Report(ctx, nil, Filters{})
	require.NoError(t, err)
	require.Equal(t, 1, src.calls)

	require.NoError(t, svc.Invalidate(ctx))
	_, err = svc.Report(ctx, nil, Filters{})
	require.NoError(t, err)
	require.Equal(t, 2, src.calls)
}

func TestReportFilters(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	rows, err := svc.Report(ctx, nil, Filters{WarehouseID: ptrInt64(2)})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, int64(2), rows[0].WarehouseID)

	rows, err = svc.Report(ctx, nil, Filters{Search: "widg"})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	rows, err = svc.Report(ctx, nil, Filters{Search: "no-match"})
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestBalancesAlwaysFresh(t *testing.T) {
	svc, src, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Balances(ctx, nil)
	require.NoError(t, err)
	_, err = svc.Balances(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 2, src.calls)
}
