package catalog

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository abstracts catalog persistence.
type Repository interface {
	ListItems(ctx context.Context, filters ListFilters) ([]Item, int, error)
	GetItem(ctx context.Context, id int64) (Item, error)
	ItemsByID(ctx context.Context, ids []int64) (map[int64]Item, error)
	AllItems(ctx context.Context) ([]Item, error)
	CreateItem(ctx context.Context, item Item) (Item, error)
	UpdateItem(ctx context.Context, id int64, item Item) error
	SetItemActive(ctx context.Context, id int64, active bool) error

	ListWarehouses(ctx context.Context) ([]Warehouse, error)
	GetWarehouse(ctx context.Context, id int64) (Warehouse, error)
	CreateWarehouse(ctx context.Context, warehouse Warehouse) (Warehouse, error)
	UpdateWarehouse(ctx context.Context, id int64, warehouse Warehouse) error
	DeleteWarehouse(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed catalog repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const itemColumns = "id, sku, name, category, warehouse_id, current_stock, minimum_stock, maximum_stock, cost_price, selling_price, average_cost, tracked, active, created_at, updated_at"

func (r *repository) ListItems(ctx context.Context, filters ListFilters) ([]Item, int, error) {
	base := psql.Select().From("items")
	if filters.Search != "" {
		like := "%" + filters.Search + "%"
		base = base.Where(sq.Or{
			sq.ILike{"sku": like},
			sq.ILike{"name": like},
			sq.ILike{"category": like},
		})
	}
	if filters.Category != "" {
		base = base.Where(sq.Eq{"category": filters.Category})
	}
	if filters.WarehouseID != nil {
		base = base.Where(sq.Eq{"warehouse_id": *filters.WarehouseID})
	}
	if filters.ActiveOnly {
		base = base.Where(sq.Eq{"active": true})
	}

	countSQL, countArgs, err := base.Columns("COUNT(*)").ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := base.Columns(itemColumns).OrderBy("sku ASC")
	if filters.PerPage > 0 {
		offset := 0
		if filters.Page > 1 {
			offset = (filters.Page - 1) * filters.PerPage
		}
		query = query.Limit(uint64(filters.PerPage)).Offset(uint64(offset))
	}
	listSQL, listArgs, err := query.ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

func (r *repository) GetItem(ctx context.Context, id int64) (Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, err
	}
	return item, nil
}

func (r *repository) ItemsByID(ctx context.Context, ids []int64) (map[int64]Item, error) {
	if len(ids) == 0 {
		return map[int64]Item{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]Item, len(ids))
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out[item.ID] = item
	}
	return out, rows.Err()
}

func (r *repository) AllItems(ctx context.Context) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM items ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *repository) CreateItem(ctx context.Context, item Item) (Item, error) {
	now := time.Now().UTC()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO items (sku, name, category, warehouse_id, current_stock, minimum_stock, maximum_stock, cost_price, selling_price, average_cost, tracked, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		 RETURNING id`,
		item.SKU, item.Name, item.Category, item.WarehouseID, item.CurrentStock, item.MinimumStock, item.MaximumStock,
		item.CostPrice, item.SellingPrice, nullDecimal(item.AverageCost), item.Tracked, item.Active, now,
	).Scan(&item.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Item{}, ErrSKUTaken
		}
		return Item{}, err
	}
	item.CreatedAt = now
	item.UpdatedAt = now
	return item, nil
}

func (r *repository) UpdateItem(ctx context.Context, id int64, item Item) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE items SET sku=$1, name=$2, category=$3, warehouse_id=$4, current_stock=$5, minimum_stock=$6, maximum_stock=$7,
		 cost_price=$8, selling_price=$9, average_cost=$10, tracked=$11, active=$12, updated_at=$13 WHERE id=$14`,
		item.SKU, item.Name, item.Category, item.WarehouseID, item.CurrentStock, item.MinimumStock, item.MaximumStock,
		item.CostPrice, item.SellingPrice, nullDecimal(item.AverageCost), item.Tracked, item.Active, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *repository) SetItemActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE items SET active=$1, updated_at=$2 WHERE id=$3`, active, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *repository) ListWarehouses(ctx context.Context) ([]Warehouse, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name, location, created_at, updated_at FROM warehouses ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var warehouses []Warehouse
	for rows.Next() {
		var w Warehouse
		if err := rows.Scan(&w.ID, &w.Code, &w.Name, &w.Location, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		warehouses = append(warehouses, w)
	}
	return warehouses, rows.Err()
}

func (r *repository) GetWarehouse(ctx context.Context, id int64) (Warehouse, error) {
	var w Warehouse
	err := r.pool.QueryRow(ctx, `SELECT id, code, name, location, created_at, updated_at FROM warehouses WHERE id = $1`, id).
		Scan(&w.ID, &w.Code, &w.Name, &w.Location, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Warehouse{}, ErrWarehouseNotFound
		}
		return Warehouse{}, err
	}
	return w, nil
}

func (r *repository) CreateWarehouse(ctx context.Context, warehouse Warehouse) (Warehouse, error) {
	now := time.Now().UTC()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO warehouses (code, name, location, created_at, updated_at) VALUES ($1, $2, $3, $4, $4) RETURNING id`,
		warehouse.Code, warehouse.Name, warehouse.Location, now,
	).Scan(&warehouse.ID)
	if err != nil {
		return Warehouse{}, err
	}
	warehouse.CreatedAt = now
	warehouse.UpdatedAt = now
	return warehouse, nil
}

func (r *repository) UpdateWarehouse(ctx context.Context, id int64, warehouse Warehouse) error {
	tag, err := r.pool.Exec(ctx, `UPDATE warehouses SET code=$1, name=$2, location=$3, updated_at=$4 WHERE id=$5`,
		warehouse.Code, warehouse.Name, warehouse.Location, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWarehouseNotFound
	}
	return nil
}

// DeleteWarehouse removes a warehouse. The foreign key from items.warehouse_id
// maps to ErrWarehouseInUse so callers can report a conflict.
func (r *repository) DeleteWarehouse(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM warehouses WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrWarehouseInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWarehouseNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (Item, error) {
	var (
		item Item
		avg  decimal.NullDecimal
	)
	err := row.Scan(&item.ID, &item.SKU, &item.Name, &item.Category, &item.WarehouseID,
		&item.CurrentStock, &item.MinimumStock, &item.MaximumStock,
		&item.CostPrice, &item.SellingPrice, &avg, &item.Tracked, &item.Active,
		&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Item{}, err
	}
	if avg.Valid {
		item.AverageCost = &avg.Decimal
	}
	return item, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
