package ledger

import (
	"context"
	"fmt"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service guards the append-only movement log.
type Service struct {
	repo  Repository
	audit AuditPort
}

// NewService builds the ledger service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Append validates and stores one or more movements atomically.
func (s *Service) Append(ctx context.Context, movements []Movement, actorID int64) ([]Movement, error) {
	if len(movements) == 0 {
		return nil, shared.NewValidationError("no movements to append")
	}
	for i := range movements {
		movements[i].CreatedBy = actorID
		if err := movements[i].Validate(); err != nil {
			return nil, shared.NewValidationError(err.Error())
		}
	}
	appended, err := s.repo.Append(ctx, movements)
	if err != nil {
		return nil, shared.NewPersistenceError("ledger.append", err)
	}
	if s.audit != nil {
		for _, m := range appended {
			_ = s.audit.Record(ctx, shared.AuditLog{
				ActorID:  actorID,
				Action:   fmt.Sprintf("ledger:%s", m.Kind),
				Entity:   "stock_movement",
				EntityID: fmt.Sprintf("%d", m.ID),
				Meta: map[string]any{
					"item_id":  m.ItemID,
					"quantity": m.Quantity,
				},
			})
		}
	}
	return appended, nil
}

// List enumerates movements newest first.
func (s *Service) List(ctx context.Context, filter Filter) ([]Movement, int, error) {
	if filter.PerPage <= 0 {
		filter.PerPage = 50
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, 0, shared.NewValidationError("unknown movement kind")
	}
	movements, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, shared.NewPersistenceError("ledger.list", err)
	}
	return movements, total, nil
}

// MovementSnapshot returns the full log for projection input.
func (s *Service) MovementSnapshot(ctx context.Context) ([]Movement, error) {
	movements, err := s.repo.AllMovements(ctx)
	if err != nil {
		return nil, shared.NewPersistenceError("ledger.snapshot", err)
	}
	return movements, nil
}
