package physcount

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository persists count sessions. Sessions are insert-only: there are
// no update or delete operations, saved lines are immutable.
type Repository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, id int64) (Session, error)
	ListSessions(ctx context.Context, filter ListFilter) ([]Session, int, error)
}

// ListFilter narrows session listings.
type ListFilter struct {
	WarehouseID *int64
	Page        int
	PerPage     int
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed session repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const sessionColumns = "id, reference, warehouse_id, count_date, description, created_by, created_at"

func (r *repository) CreateSession(ctx context.Context, session Session) (Session, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		session.CreatedAt = time.Now().UTC()
		err := tx.QueryRow(ctx,
			`INSERT INTO count_sessions (reference, warehouse_id, count_date, description, created_by, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id`,
			session.Reference, session.WarehouseID, session.CountDate,
			session.Description, session.CreatedBy, session.CreatedAt,
		).Scan(&session.ID)
		if err != nil {
			return err
		}
		for i := range session.Lines {
			line := &session.Lines[i]
			line.SessionID = session.ID
			err := tx.QueryRow(ctx,
				`INSERT INTO count_session_lines (session_id, item_id, warehouse_id, sku, item_name, theoretical_qty, counted_qty, difference_qty, unit_cost, theoretical_cost, counted_cost, cost_difference)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
				 RETURNING id`,
				session.ID, line.ItemID, line.WarehouseID, line.SKU, line.ItemName,
				line.TheoreticalQty, line.CountedQty, line.DifferenceQty,
				line.UnitCost, line.TheoreticalCost, line.CountedCost, line.CostDifference,
			).Scan(&line.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	return session, nil
}

func (r *repository) GetSession(ctx context.Context, id int64) (Session, error) {
	var session Session
	err := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM count_sessions WHERE id = $1`, id).
		Scan(&session.ID, &session.Reference, &session.WarehouseID, &session.CountDate,
			&session.Description, &session.CreatedBy, &session.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, shared.ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, item_id, warehouse_id, sku, item_name, theoretical_qty, counted_qty, difference_qty, unit_cost, theoretical_cost, counted_cost, cost_difference
		 FROM count_session_lines WHERE session_id = $1 ORDER BY id`, id)
	if err != nil {
		return Session{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.SessionID, &line.ItemID, &line.WarehouseID,
			&line.SKU, &line.ItemName, &line.TheoreticalQty, &line.CountedQty, &line.DifferenceQty,
			&line.UnitCost, &line.TheoreticalCost, &line.CountedCost, &line.CostDifference); err != nil {
			return Session{}, err
		}
		session.Lines = append(session.Lines, line)
	}
	return session, rows.Err()
}

func (r *repository) ListSessions(ctx context.Context, filter ListFilter) ([]Session, int, error) {
	base := psql.Select().From("count_sessions")
	if filter.WarehouseID != nil {
		base = base.Where(sq.Eq{"warehouse_id": *filter.WarehouseID})
	}

	countSQL, countArgs, err := base.Columns("COUNT(*)").ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := base.Columns(sessionColumns).OrderBy("count_date DESC", "id DESC")
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

	var sessions []Session
	for rows.Next() {
		var session Session
		if err := rows.Scan(&session.ID, &session.Reference, &session.WarehouseID, &session.CountDate,
			&session.Description, &session.CreatedBy, &session.CreatedAt); err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, session)
	}
	return sessions, total, rows.Err()
}
