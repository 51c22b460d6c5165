package ledger

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository persists the append-only movement log. There are deliberately
// no update or delete operations.
type Repository interface {
	Append(ctx context.Context, movements []Movement) ([]Movement, error)
	List(ctx context.Context, filter Filter) ([]Movement, int, error)
	AllMovements(ctx context.Context) ([]Movement, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed movement repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const movementColumns = "id, item_id, kind, quantity, unit_cost, movement_date, from_warehouse_id, to_warehouse_id, reference, notes, created_by, created_at"

// Append inserts every movement inside one transaction so a multi-line
// posting lands atomically or not at all.
func (r *repository) Append(ctx context.Context, movements []Movement) ([]Movement, error) {
	out := make([]Movement, len(movements))
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		for i, m := range movements {
			m.CreatedAt = now
			err := tx.QueryRow(ctx,
				`INSERT INTO stock_movements (item_id, kind, quantity, unit_cost, movement_date, from_warehouse_id, to_warehouse_id, reference, notes, created_by, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
				 RETURNING id`,
				m.ItemID, string(m.Kind), m.Quantity, m.UnitCost, m.MovementDate,
				m.FromWarehouseID, m.ToWarehouseID, m.Reference, m.Notes, m.CreatedBy, m.CreatedAt,
			).Scan(&m.ID)
			if err != nil {
				return err
			}
			out[i] = m
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) List(ctx context.Context, filter Filter) ([]Movement, int, error) {
	base := psql.Select().From("stock_movements")
	if filter.ItemID != nil {
		base = base.Where(sq.Eq{"item_id": *filter.ItemID})
	}
	if filter.Kind != "" {
		base = base.Where(sq.Eq{"kind": string(filter.Kind)})
	}
	if filter.WarehouseID != nil {
		base = base.Where(sq.Or{
			sq.Eq{"from_warehouse_id": *filter.WarehouseID},
			sq.Eq{"to_warehouse_id": *filter.WarehouseID},
		})
	}
	if !filter.From.IsZero() {
		base = base.Where(sq.GtOrEq{"movement_date": filter.From})
	}
	if !filter.To.IsZero() {
		base = base.Where(sq.LtOrEq{"movement_date": filter.To})
	}

	countSQL, countArgs, err := base.Columns("COUNT(*)").ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := base.Columns(movementColumns).OrderBy("movement_date DESC", "id DESC")
	if filter.PerPage > 0 {
		offset := 0
		if filter.Page > 1 {
			offset = (filter.Page - 1) * filter.PerPage
		}
		query = query.Limit(uint64(filter.PerPage)).Offset(uint64(offset))
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

	movements, err := scanMovements(rows)
	if err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}

func (r *repository) AllMovements(ctx context.Context) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+movementColumns+` FROM stock_movements ORDER BY movement_date, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMovements(rows)
}

func scanMovements(rows pgx.Rows) ([]Movement, error) {
	var movements []Movement
	for rows.Next() {
		var (
			m    Movement
			kind string
		)
		if err := rows.Scan(&m.ID, &m.ItemID, &kind, &m.Quantity, &m.UnitCost, &m.MovementDate,
			&m.FromWarehouseID, &m.ToWarehouseID, &m.Reference, &m.Notes, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Kind = Kind(kind)
		movements = append(movements, m)
	}
	return movements, rows.Err()
}
