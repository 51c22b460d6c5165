package documents

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

// Repository persists entry and transfer documents. Status transitions go
// through the Mark* methods, which refuse to touch non-draft rows.
type Repository interface {
	CreateEntry(ctx context.Context, doc EntryDocument) (EntryDocument, error)
	GetEntry(ctx context.Context, id int64) (EntryDocument, error)
	ListEntries(ctx context.Context, filter Filter) ([]EntryDocument, int, error)
	MarkEntryPosted(ctx context.Context, id int64, postedAt time.Time) error
	MarkEntryCancelled(ctx context.Context, id int64) error

	CreateTransfer(ctx context.Context, doc TransferDocument) (TransferDocument, error)
	GetTransfer(ctx context.Context, id int64) (TransferDocument, error)
	ListTransfers(ctx context.Context, filter Filter) ([]TransferDocument, int, error)
	MarkTransferPosted(ctx context.Context, id int64, postedAt time.Time) error
	MarkTransferCancelled(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed document repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	entryColumns    = "id, reference, warehouse_id, source_type, source_id, document_date, status, notes, created_by, created_at, posted_at"
	transferColumns = "id, reference, from_warehouse_id, to_warehouse_id, transfer_date, status, notes, created_by, created_at, posted_at"
)

func (r *repository) CreateEntry(ctx context.Context, doc EntryDocument) (EntryDocument, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		doc.CreatedAt = time.Now().UTC()
		err := tx.QueryRow(ctx,
			`INSERT INTO warehouse_entries (reference, warehouse_id, source_type, source_id, document_date, status, notes, created_by, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING id`,
			doc.Reference, doc.WarehouseID, string(doc.SourceType), doc.SourceID,
			doc.DocumentDate, string(doc.Status), doc.Notes, doc.CreatedBy, doc.CreatedAt,
		).Scan(&doc.ID)
		if err != nil {
			return err
		}
		for i := range doc.Lines {
			doc.Lines[i].DocumentID = doc.ID
			err := tx.QueryRow(ctx,
				`INSERT INTO warehouse_entry_lines (document_id, item_id, quantity, unit_cost, notes)
				 VALUES ($1, $2, $3, $4, $5)
				 RETURNING id`,
				doc.ID, doc.Lines[i].ItemID, doc.Lines[i].Quantity, doc.Lines[i].UnitCost, doc.Lines[i].Notes,
			).Scan(&doc.Lines[i].ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return EntryDocument{}, err
	}
	return doc, nil
}

func (r *repository) GetEntry(ctx context.Context, id int64) (EntryDocument, error) {
	var (
		doc        EntryDocument
		sourceType string
		status     string
	)
	err := r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM warehouse_entries WHERE id = $1`, id).
		Scan(&doc.ID, &doc.Reference, &doc.WarehouseID, &sourceType, &doc.SourceID,
			&doc.DocumentDate, &status, &doc.Notes, &doc.CreatedBy, &doc.CreatedAt, &doc.PostedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return EntryDocument{}, shared.ErrNotFound
	}
	if err != nil {
		return EntryDocument{}, err
	}
	doc.SourceType = SourceType(sourceType)
	doc.Status = Status(status)

	rows, err := r.pool.Query(ctx,
		`SELECT id, document_id, item_id, quantity, unit_cost, notes
		 FROM warehouse_entry_lines WHERE document_id = $1 ORDER BY id`, id)
	if err != nil {
		return EntryDocument{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line EntryLine
		if err := rows.Scan(&line.ID, &line.DocumentID, &line.ItemID, &line.Quantity, &line.UnitCost, &line.Notes); err != nil {
			return EntryDocument{}, err
		}
		doc.Lines = append(doc.Lines, line)
	}
	return doc, rows.Err()
}

func (r *repository) ListEntries(ctx context.Context, filter Filter) ([]EntryDocument, int, error) {
	base := psql.Select().From("warehouse_entries")
	if filter.WarehouseID != nil {
		base = base.Where(sq.Eq{"warehouse_id": *filter.WarehouseID})
	}
	if filter.Status != "" {
		base = base.Where(sq.Eq{"status": string(filter.Status)})
	}

	total, err := r.count(ctx, base)
	if err != nil {
		return nil, 0, err
	}

	listSQL, listArgs, err := paginate(base.Columns(entryColumns).OrderBy("document_date DESC", "id DESC"), filter).ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var docs []EntryDocument
	for rows.Next() {
		var (
			doc        EntryDocument
			sourceType string
			status     string
		)
		if err := rows.Scan(&doc.ID, &doc.Reference, &doc.WarehouseID, &sourceType, &doc.SourceID,
			&doc.DocumentDate, &status, &doc.Notes, &doc.CreatedBy, &doc.CreatedAt, &doc.PostedAt); err != nil {
			return nil, 0, err
		}
		doc.SourceType = SourceType(sourceType)
		doc.Status = Status(status)
		docs = append(docs, doc)
	}
	return docs, total, rows.Err()
}

// MarkEntryPosted flips a draft to posted. ErrAlreadyPosted when the row
// is missing or already left draft.
func (r *repository) MarkEntryPosted(ctx context.Context, id int64, postedAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE warehouse_entries SET status = $1, posted_at = $2 WHERE id = $3 AND status = $4`,
		string(StatusPosted), postedAt, id, string(StatusDraft))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyPosted
	}
	return nil
}

func (r *repository) MarkEntryCancelled(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE warehouse_entries SET status = $1 WHERE id = $2 AND status = $3`,
		string(StatusCancelled), id, string(StatusDraft))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyPosted
	}
	return nil
}

func (r *repository) CreateTransfer(ctx context.Context, doc TransferDocument) (TransferDocument, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		doc.CreatedAt = time.Now().UTC()
		err := tx.QueryRow(ctx,
			`INSERT INTO warehouse_transfers (reference, from_warehouse_id, to_warehouse_id, transfer_date, status, notes, created_by, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id`,
			doc.Reference, doc.FromWarehouseID, doc.ToWarehouseID, doc.TransferDate,
			string(doc.Status), doc.Notes, doc.CreatedBy, doc.CreatedAt,
		).Scan(&doc.ID)
		if err != nil {
			return err
		}
		for i := range doc.Lines {
			doc.Lines[i].DocumentID = doc.ID
			err := tx.QueryRow(ctx,
				`INSERT INTO warehouse_transfer_lines (document_id, item_id, quantity, notes)
				 VALUES ($1, $2, $3, $4)
				 RETURNING id`,
				doc.ID, doc.Lines[i].ItemID, doc.Lines[i].Quantity, doc.Lines[i].Notes,
			).Scan(&doc.Lines[i].ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return TransferDocument{}, err
	}
	return doc, nil
}

func (r *repository) GetTransfer(ctx context.Context, id int64) (TransferDocument, error) {
	var (
		doc    TransferDocument
		status string
	)
	err := r.pool.QueryRow(ctx, `SELECT `+transferColumns+` FROM warehouse_transfers WHERE id = $1`, id).
		Scan(&doc.ID, &doc.Reference, &doc.FromWarehouseID, &doc.ToWarehouseID,
			&doc.TransferDate, &status, &doc.Notes, &doc.CreatedBy, &doc.CreatedAt, &doc.PostedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return TransferDocument{}, shared.ErrNotFound
	}
	if err != nil {
		return TransferDocument{}, err
	}
	doc.Status = Status(status)

	rows, err := r.pool.Query(ctx,
		`SELECT id, document_id, item_id, quantity, notes
		 FROM warehouse_transfer_lines WHERE document_id = $1 ORDER BY id`, id)
	if err != nil {
		return TransferDocument{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line TransferLine
		if err := rows.Scan(&line.ID, &line.DocumentID, &line.ItemID, &line.Quantity, &line.Notes); err != nil {
			return TransferDocument{}, err
		}
		doc.Lines = append(doc.Lines, line)
	}
	return doc, rows.Err()
}

func (r *repository) ListTransfers(ctx context.Context, filter Filter) ([]TransferDocument, int, error) {
	base := psql.Select().From("warehouse_transfers")
	if filter.WarehouseID != nil {
		base = base.Where(sq.Or{
			sq.Eq{"from_warehouse_id": *filter.WarehouseID},
			sq.Eq{"to_warehouse_id": *filter.WarehouseID},
		})
	}
	if filter.Status != "" {
		base = base.Where(sq.Eq{"status": string(filter.Status)})
	}

	total, err := r.count(ctx, base)
	if err != nil {
		return nil, 0, err
	}

	listSQL, listArgs, err := paginate(base.Columns(transferColumns).OrderBy("transfer_date DESC", "id DESC"), filter).ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var docs []TransferDocument
	for rows.Next() {
		var (
			doc    TransferDocument
			status string
		)
		if err := rows.Scan(&doc.ID, &doc.Reference, &doc.FromWarehouseID, &doc.ToWarehouseID,
			&doc.TransferDate, &status, &doc.Notes, &doc.CreatedBy, &doc.CreatedAt, &doc.PostedAt); err != nil {
			return nil, 0, err
		}
		doc.Status = Status(status)
		docs = append(docs, doc)
	}
	return docs, total, rows.Err()
}

// MarkTransferPosted flips a draft to posted, same contract as entries.
func (r *repository) MarkTransferPosted(ctx context.Context, id int64, postedAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE warehouse_transfers SET status = $1, posted_at = $2 WHERE id = $3 AND status = $4`,
		string(StatusPosted), postedAt, id, string(StatusDraft))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyPosted
	}
	return nil
}

func (r *repository) MarkTransferCancelled(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE warehouse_transfers SET status = $1 WHERE id = $2 AND status = $3`,
		string(StatusCancelled), id, string(StatusDraft))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyPosted
	}
	return nil
}

func (r *repository) count(ctx context.Context, base sq.SelectBuilder) (int, error) {
	countSQL, countArgs, err := base.Columns("COUNT(*)").ToSql()
	if err != nil {
		return 0, err
	}
	var total int
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func paginate(query sq.SelectBuilder, filter Filter) sq.SelectBuilder {
	if filter.PerPage <= 0 {
		return query
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * filter.PerPage
	}
	return query.Limit(uint64(filter.PerPage)).Offset(uint64(offset))
}
