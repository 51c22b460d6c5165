package physcount

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/balance"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// SnapshotPort supplies the projection inputs for candidate rows.
type SnapshotPort interface {
	FetchSnapshot(ctx context.Context) (balance.Snapshot, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service builds candidate rows and persists immutable count sessions.
type Service struct {
	repo     Repository
	snapshot SnapshotPort
	audit    AuditPort
}

// NewService builds the count session service.
func NewService(repo Repository, snapshot SnapshotPort, audit AuditPort) *Service {
	return &Service{repo: repo, snapshot: snapshot, audit: audit}
}

// CandidateRows projects balances as of cutoff (nil = now) and returns
// count rows for the given filters.
func (s *Service) CandidateRows(ctx context.Context, cutoff *time.Time, filters balance.Filters) ([]Row, error) {
	snap, err := s.snapshot.FetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return BuildCandidateRows(snap.Items, snap.Movements, cutoff, filters), nil
}

// Save persists a session from counted rows. Rows where both the
// theoretical and counted quantity are zero are dropped; an empty result
// is a validation failure and nothing is stored.
func (s *Service) Save(ctx context.Context, input SessionInput, rows []Row, actorID int64) (Session, error) {
	if input.CountDate.IsZero() {
		return Session{}, shared.NewValidationError("count date required")
	}

	kept := make([]Line, 0, len(rows))
	for _, row := range rows {
		if row.TheoreticalQty == 0 && row.CountedQty == 0 {
			continue
		}
		kept = append(kept, Line{
			ItemID:          row.ItemID,
			WarehouseID:     row.WarehouseID,
			SKU:             row.SKU,
			ItemName:        row.ItemName,
			TheoreticalQty:  row.TheoreticalQty,
			CountedQty:      row.CountedQty,
			DifferenceQty:   row.DifferenceQty,
			UnitCost:        row.UnitCost,
			TheoreticalCost: row.TheoreticalCost,
			CountedCost:     row.CountedCost,
			CostDifference:  row.CostDifference,
		})
	}
	if len(kept) == 0 {
		return Session{}, shared.NewValidationError("no rows to save")
	}

	session := Session{
		Reference:   fmt.Sprintf("PC-%d", time.Now().UTC().UnixNano()),
		WarehouseID: input.WarehouseID,
		CountDate:   input.CountDate,
		Description: input.Description,
		CreatedBy:   actorID,
		Lines:       kept,
	}
	saved, err := s.repo.CreateSession(ctx, session)
	if err != nil {
		return Session{}, shared.NewPersistenceError("physcount.save", err)
	}
	s.recordAudit(ctx, actorID, "count:save", saved.ID, map[string]any{"reference": saved.Reference, "lines": len(saved.Lines)})
	return saved, nil
}

// ListSessions enumerates saved session headers.
func (s *Service) ListSessions(ctx context.Context, filter ListFilter) ([]Session, int, error) {
	sessions, total, err := s.repo.ListSessions(ctx, filter)
	if err != nil {
		return nil, 0, shared.NewPersistenceError("physcount.list", err)
	}
	return sessions, total, nil
}

// SessionDetail loads one saved session with its frozen lines.
func (s *Service) SessionDetail(ctx context.Context, id int64) (Session, error) {
	session, err := s.repo.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Session{}, err
		}
		return Session{}, shared.NewPersistenceError("physcount.detail", err)
	}
	return session, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "count_session",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
	})
}
